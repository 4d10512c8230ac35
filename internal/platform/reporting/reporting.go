package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

// Visit is the slice of a patient record the dashboard needs.
type Visit struct {
	RegisteredOn time.Time
	TotalBill    int
	Reported     bool
}

// Source supplies dashboard inputs.
type Source interface {
	Visits(ctx context.Context) ([]Visit, error)
	TestCount(ctx context.Context) (int, error)
}

// Summary holds the counters shown on the lab dashboard.
type Summary struct {
	TotalPatients  int       `json:"total_patients"`
	TotalTests     int       `json:"total_tests"`
	PendingReports int       `json:"pending_reports"`
	TodayPatients  int       `json:"today_patients"`
	TodayIncome    int       `json:"today_income"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Summarize computes a Summary. "Today" is the calendar day of now in now's
// location.
func Summarize(visits []Visit, testCount int, now time.Time) Summary {
	y, m, d := now.Date()
	today := lo.Filter(visits, func(v Visit, _ int) bool {
		if v.RegisteredOn.IsZero() {
			return false
		}
		vy, vm, vd := v.RegisteredOn.In(now.Location()).Date()
		return vy == y && vm == m && vd == d
	})

	return Summary{
		TotalPatients:  len(visits),
		TotalTests:     testCount,
		PendingReports: lo.CountBy(visits, func(v Visit) bool { return !v.Reported }),
		TodayPatients:  len(today),
		TodayIncome:    lo.SumBy(today, func(v Visit) int { return v.TotalBill }),
		GeneratedAt:    now,
	}
}

// Handler provides HTTP handlers for the dashboard API.
type Handler struct {
	source Source
	now    func() time.Time
}

// NewHandler creates a new dashboard handler.
func NewHandler(source Source) *Handler {
	return &Handler{source: source, now: time.Now}
}

// RegisterRoutes registers the dashboard API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.Dashboard)
}

// Dashboard returns the current Summary.
func (h *Handler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	visits, err := h.source.Visits(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("load patients: %v", err))
	}
	tests, err := h.source.TestCount(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("load tests: %v", err))
	}

	return c.JSON(http.StatusOK, Summarize(visits, tests, h.now()))
}
