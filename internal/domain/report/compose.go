package report

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var (
	ErrTemplateOpen = errors.New("letterhead template cannot be opened")
	ErrReportOpen   = errors.New("generated report cannot be opened")
)

func init() {
	// pdfcpu otherwise materializes a config directory on first use.
	api.DisableConfigDir()
}

// templateIndexes maps each report page to the 0-based template page drawn
// beneath it.
func templateIndexes(reportPages, templatePages int) []int {
	out := make([]int, reportPages)
	for i := range out {
		out[i] = i % templatePages
	}
	return out
}

type pageSize struct{ w, h float64 }

// Overlay writes outputPath with one page per page of reportPath, each drawn
// over template page i mod n of templatePath and sized to it. Nothing is
// written when either input cannot be read.
func Overlay(templatePath, reportPath, outputPath string) error {
	templatePages, err := api.PageCountFile(templatePath)
	if err != nil || templatePages == 0 {
		return fmt.Errorf("%w: %s: %v", ErrTemplateOpen, templatePath, err)
	}
	reportPages, err := api.PageCountFile(reportPath)
	if err != nil || reportPages == 0 {
		return fmt.Errorf("%w: %s: %v", ErrReportOpen, reportPath, err)
	}

	pdf, err := stamp(templatePath, reportPath, templatePages, reportPages)
	if err != nil {
		return err
	}
	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("write merged report %s: %w", outputPath, err)
	}
	return nil
}

// stamp builds the merged document. gofpdi reports parse failures by
// panicking, so those are recovered into errors.
func stamp(templatePath, reportPath string, templatePages, reportPages int) (pdf *fpdf.Fpdf, err error) {
	defer func() {
		if r := recover(); r != nil {
			pdf, err = nil, fmt.Errorf("merge letterhead: %v", r)
		}
	}()

	pdf = fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	imp := gofpdi.NewImporter()

	tplIDs := make([]int, templatePages)
	tplSizes := make([]pageSize, templatePages)
	for i := range tplIDs {
		tplIDs[i] = imp.ImportPage(pdf, templatePath, i+1, "/MediaBox")
		tplSizes[i] = mediaBox(imp, i+1)
	}

	for i, t := range templateIndexes(reportPages, templatePages) {
		reportID := imp.ImportPage(pdf, reportPath, i+1, "/MediaBox")
		rs := mediaBox(imp, i+1)
		ts := tplSizes[t]

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: ts.w, Ht: ts.h})
		imp.UseImportedTemplate(pdf, tplIDs[t], 0, 0, ts.w, ts.h)
		imp.UseImportedTemplate(pdf, reportID, 0, 0, rs.w, rs.h)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("merge letterhead: %w", err)
	}
	return pdf, nil
}

// mediaBox reads the size of page n of the source most recently imported from.
func mediaBox(imp *gofpdi.Importer, n int) pageSize {
	box := imp.GetPageSizes()[n]["/MediaBox"]
	return pageSize{w: box["w"], h: box["h"]}
}
