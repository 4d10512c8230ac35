package report

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/aarogyam/labdesk/internal/domain/patient"
)

type Handler struct {
	gen *Generator
}

func NewHandler(gen *Generator) *Handler {
	return &Handler{gen: gen}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients/:id/report", h.GenerateReport)
	api.GET("/patients/:id/report", h.DownloadReport)
	api.GET("/patients/:id/receipt", h.DownloadReceipt)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, patient.ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, patient.ErrNoResults), errors.Is(err, ErrNoLetterhead):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) GenerateReport(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.PatientID = c.Param("id")

	out, err := h.gen.Generate(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) DownloadReport(c echo.Context) error {
	p, err := h.gen.patients.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if !p.ReportGenerated || p.PDFPath == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no report generated for this patient")
	}
	return c.Attachment(p.PDFPath, filepath.Base(p.PDFPath))
}

func (h *Handler) DownloadReceipt(c echo.Context) error {
	id := c.Param("id")
	data, err := h.gen.Receipt(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "receipt_"+id+".pdf"))
	return c.Blob(http.StatusOK, "application/pdf", data)
}
