package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aarogyam/labdesk/internal/domain/catalog"
	"github.com/aarogyam/labdesk/internal/domain/patient"
	"github.com/aarogyam/labdesk/internal/domain/results"
)

var reportTime = time.Date(2025, 3, 5, 16, 45, 0, 0, time.Local)

func cbcDefinition() catalog.TestDefinition {
	return catalog.TestDefinition{
		Name:  "CBC",
		Price: 300,
		SubTests: []catalog.SubTestDefinition{
			{Name: "Hemoglobin", Unit: "g/dL", Range: "13-17"},
			{Name: "Total W.B.C. Count", Unit: "/cumm", Range: "4000-11000"},
			{Name: "DLC", Params: []catalog.ParameterDefinition{
				{Name: "Neutrophils", Unit: "%", Range: "40-75"},
				{Name: "Lymphocytes", Unit: "%", Range: "20-40"},
			}},
		},
	}
}

func samplePatient() *patient.Patient {
	return &patient.Patient{
		ID:           "b6a1c2d3-0000-4000-8000-000000000001",
		Name:         "Mr. Rohit Sharma",
		Age:          patient.Age{Value: 32, Unit: patient.Years},
		Gender:       patient.Male,
		Phone:        "+91 98765 43210",
		Doctor:       "Dr. Kulkarni (MBBS)",
		Tests:        []string{"CBC"},
		SampleSite:   patient.InsideLab,
		RegisteredOn: "05/03/2025 10:30 AM",
		Results: results.ResultMap{
			results.CanonicalKey("CBC", "Hemoglobin", ""): {Value: "14.2", Unit: "g/dL", Range: "13-17", OriginalName: "Hemoglobin"},
			// legacy spelling with a trailing underscore
			"CBC::DLC::Neutrophils_":      {Value: "60"},
			results.CategoryKey("CBC"):    {Value: "HEMATOLOGY"},
			results.DescriptionKey("CBC"): results.Remark("Sample slightly hemolysed"),
		},
	}
}

func rowStrings(l *Layout) []string {
	var out []string
	for _, r := range l.Rows() {
		out = append(out, r.String())
	}
	return out
}

func contains(rows []string, want string) bool {
	for _, r := range rows {
		if r == want {
			return true
		}
	}
	return false
}

func TestBuild_EnteredValueRow(t *testing.T) {
	l, warnings := Build(context.Background(), Input{
		Patient:    samplePatient(),
		Snapshot:   map[string]catalog.TestDefinition{"CBC": cbcDefinition()},
		ReportedOn: reportTime,
	})
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	rows := rowStrings(l)
	if !contains(rows, "Hemoglobin | 14.2 | g/dL | 13-17") {
		t.Errorf("expected hemoglobin row, got %v", rows)
	}
	if !contains(rows, "Neutrophils | 60 | % | 40-75") {
		t.Errorf("expected legacy-keyed parameter row, got %v", rows)
	}
}

func TestBuild_BlankRowsStayVisible(t *testing.T) {
	l, _ := Build(context.Background(), Input{
		Patient:  samplePatient(),
		Snapshot: map[string]catalog.TestDefinition{"CBC": cbcDefinition()},
	})
	rows := rowStrings(l)
	if !contains(rows, "Total W.B.C. Count |  | /cumm | 4000-11000") {
		t.Errorf("expected blank WBC row, got %v", rows)
	}
	if !contains(rows, "Lymphocytes |  | % | 20-40") {
		t.Errorf("expected blank lymphocytes row, got %v", rows)
	}

	all := l.Rows()
	kinds := []RowKind{RowHeading, RowSubTest, RowSubTest, RowSubTest, RowParam, RowParam, RowRemark}
	if len(all) != len(kinds) {
		t.Fatalf("expected %d rows, got %d: %v", len(kinds), len(all), rows)
	}
	for i, k := range kinds {
		if all[i].Kind != k {
			t.Errorf("row %d: expected kind %d, got %d", i, k, all[i].Kind)
		}
	}
	if all[0].Category != "HEMATOLOGY" {
		t.Errorf("expected category on heading, got %q", all[0].Category)
	}
	if all[6].String() != "Remarks: Sample slightly hemolysed" {
		t.Errorf("unexpected remark %q", all[6].String())
	}
}

func TestBuild_Header(t *testing.T) {
	l, _ := Build(context.Background(), Input{
		Patient:    samplePatient(),
		ReportedOn: reportTime,
		QRPath:     "/tmp/qr.png",
	})
	h := l.Header
	if h.Date != "05/03/2025" || h.ReportedOn != "05/03/2025 04:45 PM" {
		t.Errorf("unexpected dates %q %q", h.Date, h.ReportedOn)
	}
	if h.AgeSex != "32 Years | Male" {
		t.Errorf("unexpected age/sex %q", h.AgeSex)
	}
	if h.SampleSite != "At Inside Lab" {
		t.Errorf("unexpected sample site %q", h.SampleSite)
	}
	if h.LabNo != "B6A1C2D3" {
		t.Errorf("unexpected lab no %q", h.LabNo)
	}
	if h.QRPath != "/tmp/qr.png" {
		t.Errorf("unexpected qr path %q", h.QRPath)
	}
}

type fakeLookup struct {
	defs  map[string]catalog.TestDefinition
	err   error
	calls []string
}

func (f *fakeLookup) LookupTest(_ context.Context, name string) (catalog.TestDefinition, bool, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return catalog.TestDefinition{}, false, f.err
	}
	d, ok := f.defs[name]
	return d, ok, nil
}

func TestBuild_FallsBackToLiveLookup(t *testing.T) {
	lookup := &fakeLookup{defs: map[string]catalog.TestDefinition{"CBC": cbcDefinition()}}
	l, _ := Build(context.Background(), Input{Patient: samplePatient(), Lookup: lookup})

	if len(lookup.calls) != 1 || lookup.calls[0] != "CBC" {
		t.Errorf("expected one live lookup for CBC, got %v", lookup.calls)
	}
	if !contains(rowStrings(l), "Hemoglobin | 14.2 | g/dL | 13-17") {
		t.Error("expected row built from live definition")
	}
}

func TestBuild_LookupErrorIsWarning(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("store unreachable")}
	l, warnings := Build(context.Background(), Input{Patient: samplePatient(), Lookup: lookup})

	if len(warnings) != 1 || !strings.Contains(warnings[0], "store unreachable") {
		t.Errorf("expected lookup warning, got %v", warnings)
	}
	if len(l.Rows()) != 0 {
		t.Errorf("expected no rows, got %v", rowStrings(l))
	}
}

func TestBuild_UnknownTestSkipped(t *testing.T) {
	p := samplePatient()
	p.Tests = []string{"Lipid Profile", "CBC"}
	l, warnings := Build(context.Background(), Input{
		Patient:  p,
		Snapshot: map[string]catalog.TestDefinition{"CBC": cbcDefinition()},
	})
	if len(warnings) != 0 {
		t.Errorf("expected silent skip, got %v", warnings)
	}
	if got := l.Rows()[0].Label; got != "CBC" {
		t.Errorf("expected CBC first, got %q", got)
	}
}

func TestTestOrder_Fallbacks(t *testing.T) {
	snapshot := map[string]catalog.TestDefinition{"Widal": {}, "CBC": {}, "ESR": {}}

	p := samplePatient()
	if got := testOrder(p, snapshot); len(got) != 1 || got[0] != "CBC" {
		t.Errorf("expected patient selection, got %v", got)
	}

	p.Tests = nil
	p.Results = results.ResultMap{"ESR::ESR": {Value: "12"}, results.CategoryKey("Widal"): {Value: "SEROLOGY"}}
	if got := testOrder(p, snapshot); fmt.Sprint(got) != "[ESR Widal]" {
		t.Errorf("expected tests from results, got %v", got)
	}

	p.Results = nil
	if got := testOrder(p, snapshot); fmt.Sprint(got) != "[CBC ESR Widal]" {
		t.Errorf("expected whole catalog, got %v", got)
	}
}

func TestPaginate_NeverDropsRows(t *testing.T) {
	def := catalog.TestDefinition{Name: "Panel"}
	for i := 0; i < 120; i++ {
		def.SubTests = append(def.SubTests, catalog.SubTestDefinition{Name: fmt.Sprintf("Analyte %03d", i)})
	}
	p := samplePatient()
	p.Tests = []string{"Panel", "CBC"}

	l, _ := Build(context.Background(), Input{
		Patient:  p,
		Snapshot: map[string]catalog.TestDefinition{"Panel": def, "CBC": cbcDefinition()},
	})

	if len(l.Pages) < 2 {
		t.Fatalf("expected several pages, got %d", len(l.Pages))
	}
	if got := len(l.Rows()); got != 1+120+7 {
		t.Errorf("expected every row kept, got %d", got)
	}
	for i, page := range l.Pages {
		y := contentTop
		for _, r := range page.Rows {
			y += r.Height()
		}
		if y > contentBottom {
			t.Errorf("page %d overflows: %.1f > %.1f", i, y, contentBottom)
		}
		if last := page.Rows[len(page.Rows)-1]; last.Kind == RowHeading && i < len(l.Pages)-1 {
			t.Errorf("page %d ends with heading %q", i, last.Label)
		}
	}
}

func TestPaginate_SplitsLongRemarks(t *testing.T) {
	words := make([]string, 1200)
	for i := range words {
		words[i] = fmt.Sprintf("word%04d", i)
	}
	p := samplePatient()
	p.Results[results.DescriptionKey("CBC")] = results.Remark(strings.Join(words, " "))

	l, _ := Build(context.Background(), Input{
		Patient:  p,
		Snapshot: map[string]catalog.TestDefinition{"CBC": cbcDefinition()},
	})

	wantLines := wrap(strings.Join(words, " "), remarkWrap)
	if len(wantLines) <= 40 {
		t.Fatalf("expected a remark longer than a page, got %d lines", len(wantLines))
	}
	if len(l.Pages) < 3 {
		t.Fatalf("expected the remark to spill over several pages, got %d", len(l.Pages))
	}

	var gotLines []string
	var parts []Row
	for i, page := range l.Pages {
		y := contentTop
		for _, r := range page.Rows {
			y += r.Height()
			if r.Kind == RowRemark {
				parts = append(parts, r)
				gotLines = append(gotLines, r.Lines...)
			}
		}
		if y > contentBottom {
			t.Errorf("page %d overflows: %.1f > %.1f", i, y, contentBottom)
		}
	}
	if fmt.Sprint(gotLines) != fmt.Sprint(wantLines) {
		t.Errorf("expected every remark line kept in order, got %d of %d", len(gotLines), len(wantLines))
	}
	if parts[0].Label != "Remarks" {
		t.Errorf("expected first part labelled, got %q", parts[0].Label)
	}
	for _, r := range parts[1:] {
		if r.Label != "" {
			t.Errorf("expected continuation without label, got %q", r.Label)
		}
	}
}

func TestWrap(t *testing.T) {
	lines := wrap("one two three four five", 9)
	want := []string{"one two", "three", "four five"}
	if fmt.Sprint(lines) != fmt.Sprint(want) {
		t.Errorf("got %q, want %q", lines, want)
	}
	r := Row{Kind: RowRemark, Lines: lines}
	if r.Height() != 3*RowRemark.Height() {
		t.Errorf("expected remark height to grow with lines, got %.1f", r.Height())
	}
}
