package report

import (
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"
)

// Table columns.
const (
	colLabel  = 50.0
	colIndent = 65.0
	colValue  = 250.0
	colUnit   = 340.0
	colRange  = 430.0
	colRight  = PageWidth - 35
)

// Renderer draws a Layout onto A4 pages.
type Renderer struct {
	// Compress toggles stream compression in the output PDF.
	Compress bool
}

func newDocument(compress bool) *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	return pdf
}

// Render writes l to path as a PDF.
func (r Renderer) Render(l *Layout, path string) error {
	pdf := newDocument(r.Compress)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range l.Pages {
		pdf.AddPage()
		drawHeader(pdf, tr, l.Header)
		drawColumns(pdf)

		y := contentTop
		for _, row := range page.Rows {
			drawRow(pdf, tr, row, y)
			y += row.Height()
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("layout report: %w", err)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		os.Remove(path)
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

func drawHeader(pdf *fpdf.Fpdf, tr func(string) string, h Header) {
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.8)
	pdf.Rect(headerLeft, headerTop, headerWidth, headerHeight, "D")

	const (
		labelX, colonX, valueX  = 55.0, 125.0, 135.0
		rLabelX, rColonX, rValX = 320.0, 400.0, 410.0
		gap                     = 14.0
	)
	field := func(lx, cx, vx, y float64, label, value string) {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.Text(lx, y, label)
		pdf.Text(cx, y, ":")
		pdf.SetFont("Helvetica", "", 8)
		pdf.Text(vx, y, tr(value))
	}

	y := headerTop + 15
	field(labelX, colonX, valueX, y, "Date", h.Date)
	field(rLabelX, rColonX, rValX, y, "Lab No.", h.LabNo)
	y += gap
	field(labelX, colonX, valueX, y, "Name", h.Name)
	field(rLabelX, rColonX, rValX, y, "Sample Collected", h.SampleSite)
	y += gap
	field(labelX, colonX, valueX, y, "Age & Sex", h.AgeSex)
	field(rLabelX, rColonX, rValX, y, "Registered On", h.RegisteredOn)
	y += gap
	field(labelX, colonX, valueX, y, "Mobile No.", h.Phone)
	field(rLabelX, rColonX, rValX, y, "Reported On", h.ReportedOn)
	y += gap
	field(labelX, colonX, valueX, y, "Referred By", h.ReferredBy)

	if h.QRPath != "" {
		const size = 60.0
		x := headerLeft + headerWidth - size - 6
		top := headerTop + (headerHeight-size)/2 - 8
		pdf.ImageOptions(h.QRPath, x, top, size, size, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
}

func drawColumns(pdf *fpdf.Fpdf) {
	y := columnsTop + 12
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.Text(colLabel, y, "TEST")
	pdf.Text(colValue, y, "RESULT")
	pdf.Text(colUnit, y, "UNIT")
	pdf.Text(colRange, y, "REFERENCE RANGE")
	pdf.SetLineWidth(0.5)
	pdf.Line(headerLeft, y+5, headerLeft+headerWidth, y+5)
}

func drawRow(pdf *fpdf.Fpdf, tr func(string) string, row Row, top float64) {
	base := top + row.Kind.Height() - 4

	switch row.Kind {
	case RowHeading:
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(0, 51, 102)
		pdf.Text(colLabel, base, tr(row.Label))
		if row.Category != "" {
			pdf.SetFont("Helvetica", "B", 8)
			pdf.Text(colRight-pdf.GetStringWidth(row.Category), base, tr(row.Category))
		}
		pdf.SetTextColor(0, 0, 0)

	case RowRemark:
		pdf.SetFont("Helvetica", "I", 8)
		for i, line := range row.Lines {
			text := line
			if i == 0 && row.Label != "" {
				text = row.Label + ": " + line
			}
			pdf.Text(colLabel, base+float64(i)*row.Kind.Height(), tr(text))
		}

	default:
		x, size := colLabel, 9.0
		if row.Kind == RowParam {
			x, size = colIndent, 8.5
		}
		pdf.SetFont("Helvetica", "", size)
		pdf.Text(x, base, tr(row.Label))
		pdf.SetFont("Helvetica", "B", size)
		pdf.Text(colValue, base, tr(row.Value))
		pdf.SetFont("Helvetica", "", size)
		pdf.Text(colUnit, base, tr(row.Unit))
		pdf.Text(colRange, base, tr(row.Range))
	}
}
