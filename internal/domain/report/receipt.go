package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/divan/num2words"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aarogyam/labdesk/internal/domain/patient"
)

// ReceiptLine is one billed test.
type ReceiptLine struct {
	Test  string
	Price int
}

// Receipt is a patient bill.
type Receipt struct {
	Lab     LabInfo
	Patient *patient.Patient
	Date    time.Time
	Lines   []ReceiptLine
}

func (r Receipt) Total() int {
	return lo.SumBy(r.Lines, func(l ReceiptLine) int { return l.Price })
}

// AmountInWords spells a rupee amount, e.g. "Rs. Three Hundred Only".
func AmountInWords(amount int) string {
	words := cases.Title(language.English).String(num2words.Convert(amount))
	return "Rs. " + words + " Only"
}

// RenderReceipt writes the receipt PDF to w.
func RenderReceipt(w io.Writer, r Receipt, compress bool) error {
	pdf := newDocument(compress)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	p := r.Patient
	const (
		left   = 60.0
		right  = PageWidth - 60
		amount = 420.0
		bottom = PageHeight - 100
	)
	rightText := func(x, y float64, s string) {
		s = tr(s)
		pdf.Text(x-pdf.GetStringWidth(s), y, s)
	}
	center := func(y float64, s string) {
		s = tr(s)
		pdf.Text((PageWidth-pdf.GetStringWidth(s))/2, y, s)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	center(60, r.Lab.Name)
	pdf.SetFont("Helvetica", "", 10)
	center(75, r.Lab.Address)
	center(90, "Ph: "+r.Lab.Phone)
	pdf.SetFont("Helvetica", "B", 13)
	center(120, "RECEIPT")

	pdf.SetFont("Helvetica", "", 10)
	y := 150.0
	pdf.Text(left, y, tr("Name : "+p.Name))
	rightText(right, y, "Date : "+r.Date.Format(patient.DateLayout))
	y += 18
	pdf.Text(left, y, tr(fmt.Sprintf("Age / Gender : %s / %s", p.Age, p.Gender)))
	rightText(right, y, "Referred By : "+p.Doctor)

	y += 35
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Text(left, y, "Tests Carried Out")
	rightText(PageWidth-140, y, "Amount (Rs.)")
	pdf.Line(50, y+5, PageWidth-50, y+5)

	pdf.SetFont("Helvetica", "", 10)
	y += 25
	for _, line := range r.Lines {
		if y > bottom {
			pdf.AddPage()
			pdf.SetFont("Helvetica", "", 10)
			y = 100
		}
		pdf.Text(left, y, tr(line.Test))
		rightText(amount, y, fmt.Sprintf("%.2f", float64(line.Price)))
		y += 15
	}

	total := r.Total()
	pdf.Line(250, y+5, amount, y+5)
	y += 20
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Text(left, y, "Total Amount:")
	rightText(amount, y, fmt.Sprintf("%.2f", float64(total)))

	y += 35
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(left, y, tr("Amount In Words : "+AmountInWords(total)))

	y += 50
	rightText(right, y, "For "+r.Lab.Name)
	y += 40
	pdf.SetFont("Helvetica", "I", 10)
	center(y, "Thank you for visiting!")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	return nil
}

// Receipt bills every selected test at its current catalog price. Tests no
// longer in the catalog are billed at zero.
func (g *Generator) Receipt(ctx context.Context, patientID string) ([]byte, error) {
	p, err := g.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	lines := make([]ReceiptLine, 0, len(p.Tests))
	for _, name := range p.Tests {
		def, ok, err := g.catalog.LookupTest(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("look up test %q: %w", name, err)
		}
		line := ReceiptLine{Test: name}
		if ok {
			line.Price = def.Price
		}
		lines = append(lines, line)
	}

	var buf bytes.Buffer
	r := Receipt{Lab: g.opts.Lab, Patient: p, Date: g.now(), Lines: lines}
	if err := RenderReceipt(&buf, r, g.opts.Compress); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
