package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func TestAmountInWords(t *testing.T) {
	if got := AmountInWords(300); got != "Rs. Three Hundred Only" {
		t.Errorf("unexpected words %q", got)
	}
	if got := AmountInWords(0); !strings.HasPrefix(got, "Rs. Zero") {
		t.Errorf("unexpected words for zero %q", got)
	}
}

func TestReceipt_Total(t *testing.T) {
	r := Receipt{Lines: []ReceiptLine{{"CBC", 300}, {"ESR", 100}, {"Retired", 0}}}
	if r.Total() != 400 {
		t.Errorf("expected 400, got %d", r.Total())
	}
}

func TestRenderReceipt(t *testing.T) {
	r := Receipt{
		Lab:     LabInfo{Name: "Test Lab", Address: "Main Road", Phone: "12345"},
		Patient: samplePatient(),
		Date:    reportTime,
		Lines:   []ReceiptLine{{"CBC", 300}, {"ESR", 100}},
	}
	var buf bytes.Buffer
	if err := RenderReceipt(&buf, r, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"(RECEIPT)", "(CBC)", "(300.00)", "(400.00)", "(Thank you for visiting!)", "(Name : Mr. Rohit Sharma)"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("expected %s in receipt", want)
		}
	}
}

func TestRenderReceipt_Paginates(t *testing.T) {
	r := Receipt{Patient: samplePatient(), Date: reportTime}
	for i := 0; i < 60; i++ {
		r.Lines = append(r.Lines, ReceiptLine{Test: fmt.Sprintf("Test %02d", i), Price: 10})
	}
	path := filepath.Join(t.TempDir(), "receipt.pdf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := RenderReceipt(f, r, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Close()

	n, err := api.PageCountFile(path)
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if n < 2 {
		t.Errorf("expected the receipt to spill onto a second page, got %d", n)
	}
}
