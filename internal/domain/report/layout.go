package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/aarogyam/labdesk/internal/domain/catalog"
	"github.com/aarogyam/labdesk/internal/domain/patient"
	"github.com/aarogyam/labdesk/internal/domain/results"
)

// Page geometry in points, origin at the top-left of an A4 sheet. The top of
// the page is left clear for the letterhead.
const (
	PageWidth  = 595.28
	PageHeight = 841.89

	headerTop    = 145.0
	headerHeight = 80.0
	headerLeft   = 40.0
	headerWidth  = PageWidth - 70

	columnsTop    = headerTop + headerHeight + 10
	contentTop    = columnsTop + 20
	contentBottom = PageHeight - 70

	remarkWrap = 95
)

type RowKind int

const (
	RowHeading RowKind = iota
	RowSubTest
	RowParam
	RowRemark
)

// Height is the vertical space a single-line row of this kind occupies.
func (k RowKind) Height() float64 {
	switch k {
	case RowHeading:
		return 22
	case RowParam:
		return 13
	default:
		return 14
	}
}

// Row is one printed line group of the results table.
type Row struct {
	Kind     RowKind
	Label    string
	Value    string
	Unit     string
	Range    string
	Category string
	// Lines holds wrapped remark text.
	Lines []string
}

func (r Row) Height() float64 {
	if r.Kind == RowRemark && len(r.Lines) > 1 {
		return float64(len(r.Lines)) * r.Kind.Height()
	}
	return r.Kind.Height()
}

// String renders the row as "Label | Value | Unit | Range". Headings and
// remarks render their text only.
func (r Row) String() string {
	switch r.Kind {
	case RowHeading:
		return r.Label
	case RowRemark:
		if r.Label == "" {
			return strings.Join(r.Lines, " ")
		}
		return r.Label + ": " + strings.Join(r.Lines, " ")
	}
	return strings.Join([]string{r.Label, r.Value, r.Unit, r.Range}, " | ")
}

// Header is the patient block repeated at the top of every page.
type Header struct {
	Date         string
	LabNo        string
	Name         string
	SampleSite   string
	AgeSex       string
	RegisteredOn string
	Phone        string
	ReportedOn   string
	ReferredBy   string
	QRPath       string
}

type Page struct {
	Rows []Row
}

// Layout is a fully paginated report ready for rendering.
type Layout struct {
	Header Header
	Pages  []Page
}

// Rows flattens all pages.
func (l *Layout) Rows() []Row {
	return lo.FlatMap(l.Pages, func(p Page, _ int) []Row { return p.Rows })
}

// TestLookup is the live catalog consulted when a snapshot lacks a test.
type TestLookup interface {
	LookupTest(ctx context.Context, name string) (catalog.TestDefinition, bool, error)
}

// Input is everything the layout engine reads. Snapshot and Lookup may each
// be nil.
type Input struct {
	Patient    *patient.Patient
	Snapshot   map[string]catalog.TestDefinition
	Lookup     TestLookup
	ReportedOn time.Time
	QRPath     string
}

// LabNumber is the short lab number printed on reports and receipts.
func LabNumber(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func headerFor(p *patient.Patient, reportedOn time.Time, qrPath string) Header {
	return Header{
		Date:         reportedOn.Format(patient.DateLayout),
		LabNo:        LabNumber(p.ID),
		Name:         p.Name,
		SampleSite:   "At " + string(p.SampleSite),
		AgeSex:       p.Age.String() + " | " + string(p.Gender),
		RegisteredOn: orDash(p.RegisteredOn),
		Phone:        orDash(p.Phone),
		ReportedOn:   patient.FormatTimestamp(reportedOn),
		ReferredBy:   p.Doctor,
		QRPath:       qrPath,
	}
}

// testOrder is the patient's selection, else the tests present in the result
// map, else the whole catalog.
func testOrder(p *patient.Patient, snapshot map[string]catalog.TestDefinition) []string {
	if len(p.Tests) > 0 {
		return p.Tests
	}
	if names := p.Results.Tests(); len(names) > 0 {
		return names
	}
	names := lo.Keys(snapshot)
	sort.Strings(names)
	return names
}

// Build lays out the report for in.Patient. Tests missing from the catalog are
// skipped; a failing live lookup is reported as a warning and also skipped.
func Build(ctx context.Context, in Input) (*Layout, []string) {
	var warnings []string
	p := in.Patient

	var rows []Row
	for _, test := range testOrder(p, in.Snapshot) {
		def, ok := in.Snapshot[test]
		if !ok && in.Lookup != nil {
			var err error
			def, ok, err = in.Lookup.LookupTest(ctx, test)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("catalog lookup for %q failed: %v", test, err))
				continue
			}
		}
		if !ok {
			continue
		}
		rows = append(rows, testRows(p.Results, test, def)...)
	}

	return &Layout{
		Header: headerFor(p, in.ReportedOn, in.QRPath),
		Pages:  paginate(rows),
	}, warnings
}

func testRows(m results.ResultMap, test string, def catalog.TestDefinition) []Row {
	rows := []Row{{Kind: RowHeading, Label: test, Category: m.Category(test)}}

	for _, sub := range def.SubTests {
		rows = append(rows, resultRow(m, RowSubTest, test, sub.Name, "", sub.Name, sub.Unit, sub.Range))
		for _, param := range sub.Params {
			rows = append(rows, resultRow(m, RowParam, test, sub.Name, param.Name, param.Name, param.Unit, param.Range))
		}
	}

	if desc := strings.TrimSpace(m.Description(test)); desc != "" {
		rows = append(rows, Row{Kind: RowRemark, Label: "Remarks", Lines: wrap(desc, remarkWrap)})
	}
	return rows
}

// resultRow resolves one value. Units and ranges come from the stored entry
// and fall back to the current definition.
func resultRow(m results.ResultMap, kind RowKind, test, sub, param, name, unit, rng string) Row {
	row := Row{Kind: kind, Label: name, Unit: unit, Range: rng}
	key, ok := results.ResolveResultKey(m, test, sub, param)
	if !ok {
		return row
	}
	e := m[key]
	row.Label = e.Label(name)
	row.Value = e.Value
	if e.Unit != "" {
		row.Unit = e.Unit
	}
	if e.Range != "" {
		row.Range = e.Range
	}
	return row
}

// paginate fills pages top to bottom. A heading is never left as the last
// row on a page, and a remark that does not fit is split across pages with
// the label only on its first part.
func paginate(rows []Row) []Page {
	pages := []Page{{}}
	y := contentTop
	place := func(r Row) {
		pages[len(pages)-1].Rows = append(pages[len(pages)-1].Rows, r)
		y += r.Height()
	}
	breakPage := func() {
		pages = append(pages, Page{})
		y = contentTop
	}
	pageEmpty := func() bool { return len(pages[len(pages)-1].Rows) == 0 }

	for i, r := range rows {
		if r.Kind == RowRemark && len(r.Lines) > 0 && r.Height() > contentBottom-y {
			if r.Height() <= contentBottom-contentTop && !pageEmpty() {
				breakPage()
				place(r)
				continue
			}
			splitRemark(r, &y, place, breakPage)
			continue
		}

		need := r.Height()
		if r.Kind == RowHeading && i+1 < len(rows) {
			next := rows[i+1]
			if next.Kind == RowRemark {
				need += next.Kind.Height()
			} else {
				need += next.Height()
			}
		}
		if y+need > contentBottom && !pageEmpty() {
			breakPage()
		}
		place(r)
	}
	return pages
}

// splitRemark places r's lines in chunks that fill the rest of the current
// page and then whole pages.
func splitRemark(r Row, y *float64, place func(Row), breakPage func()) {
	lines, label := r.Lines, r.Label
	for len(lines) > 0 {
		fit := int((contentBottom - *y) / r.Kind.Height())
		if fit <= 0 {
			breakPage()
			continue
		}
		n := min(fit, len(lines))
		place(Row{Kind: RowRemark, Label: label, Lines: lines[:n]})
		lines, label = lines[n:], ""
	}
}

func wrap(text string, width int) []string {
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(text) {
		if cur.Len() > 0 && cur.Len()+1+len(word) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
