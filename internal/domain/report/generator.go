package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aarogyam/labdesk/internal/domain/catalog"
	"github.com/aarogyam/labdesk/internal/domain/patient"
	"github.com/aarogyam/labdesk/internal/platform/artifact"
	"github.com/aarogyam/labdesk/internal/platform/events"
	"github.com/aarogyam/labdesk/internal/platform/notification"
)

var ErrNoLetterhead = errors.New("no letterhead template configured")

const backgroundTimeout = 30 * time.Second

type Patients interface {
	GetByID(ctx context.Context, id string) (*patient.Patient, error)
}

type Catalog interface {
	TestLookup
	Snapshot(ctx context.Context) (map[string]catalog.TestDefinition, error)
}

// LabInfo is printed on receipts.
type LabInfo struct {
	Name    string
	Address string
	Phone   string
}

// Opener shows a generated file to the operator.
type Opener func(path string) error

// Options configures a Generator. Publisher, Events and Opener are optional.
type Options struct {
	Dir            string
	LinkBase       string
	LetterheadPath string
	Lab            LabInfo
	Compress       bool

	Publisher artifact.Publisher
	Events    events.Publisher
	Opener    Opener
}

// Request asks for one patient's report.
type Request struct {
	PatientID  string `json:"patient_id"`
	Letterhead bool   `json:"letterhead"`
}

// Outcome describes a generated report. Warnings carry non-fatal problems.
type Outcome struct {
	FileName    string   `json:"file_name"`
	Path        string   `json:"path"`
	QRPath      string   `json:"qr_path"`
	Link        string   `json:"link"`
	ReportedOn  string   `json:"reported_on"`
	WhatsAppURL string   `json:"whatsapp_url,omitempty"`
	Pages       int      `json:"pages"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Generator runs the report pipeline: QR, layout, optional letterhead,
// record update, then best-effort publication.
type Generator struct {
	opts     Options
	patients Patients
	catalog  Catalog
	updater  *Updater
	messages *notification.TemplateEngine
	renderer Renderer
	logger   zerolog.Logger
	now      func() time.Time

	wg sync.WaitGroup
}

func NewGenerator(opts Options, patients Patients, cat Catalog, marker Marker, logger zerolog.Logger) *Generator {
	if opts.Events == nil {
		opts.Events = events.NopPublisher{}
	}
	return &Generator{
		opts:     opts,
		patients: patients,
		catalog:  cat,
		updater:  NewUpdater(marker, logger),
		messages: notification.NewTemplateEngine(),
		renderer: Renderer{Compress: opts.Compress},
		logger:   logger,
		now:      time.Now,
	}
}

// Generate produces the report for req.PatientID. Missing patients, empty
// result maps and file errors fail the call; store and catalog problems are
// returned as warnings alongside a usable report.
func (g *Generator) Generate(ctx context.Context, req Request) (*Outcome, error) {
	p, err := g.patients.GetByID(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	if len(p.Results) == 0 {
		return nil, fmt.Errorf("%w for patient %s", patient.ErrNoResults, p.ID)
	}
	if req.Letterhead && g.opts.LetterheadPath == "" {
		return nil, ErrNoLetterhead
	}
	if err := os.MkdirAll(g.opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare report dir: %w", err)
	}

	now := g.now()
	out := &Outcome{
		FileName:   FileName(p, now),
		QRPath:     filepath.Join(g.opts.Dir, QRFileName(p.ID)),
		ReportedOn: patient.FormatTimestamp(now),
	}
	out.Path = filepath.Join(g.opts.Dir, out.FileName)
	out.Link = Link(g.opts.LinkBase, out.FileName)

	if err := RenderQR(out.Link, out.QRPath); err != nil {
		return nil, err
	}

	snapshot, err := g.catalog.Snapshot(ctx)
	if err != nil {
		g.logger.Warn().Err(err).Str("patient_id", p.ID).Msg("catalog snapshot failed, using live lookups")
		out.Warnings = append(out.Warnings, fmt.Sprintf("test catalog unavailable, used live lookups: %v", err))
	}

	layout, warnings := Build(ctx, Input{
		Patient:    p,
		Snapshot:   snapshot,
		Lookup:     g.catalog,
		ReportedOn: now,
		QRPath:     out.QRPath,
	})
	out.Warnings = append(out.Warnings, warnings...)
	out.Pages = len(layout.Pages)

	if err := g.write(layout, out.Path, req.Letterhead); err != nil {
		return nil, err
	}

	if w := g.updater.MarkReported(ctx, p.ID, out.Path, out.ReportedOn); w != "" {
		out.Warnings = append(out.Warnings, w)
	}

	if msg, err := g.messages.ReportReady(p.Name, out.Link); err == nil {
		out.WhatsAppURL = notification.WhatsAppLink(p.Phone, msg)
	}

	g.afterGenerate(p.ID, out)

	g.logger.Info().
		Str("patient_id", p.ID).
		Str("file", out.FileName).
		Int("pages", out.Pages).
		Bool("letterhead", req.Letterhead).
		Int("warnings", len(out.Warnings)).
		Msg("report generated")

	return out, nil
}

// write renders directly to path, or through a temp file merged onto the
// letterhead. The temp file is removed either way.
func (g *Generator) write(layout *Layout, path string, letterhead bool) error {
	if !letterhead {
		return g.renderer.Render(layout, path)
	}

	tmp := filepath.Join(filepath.Dir(path), TempFileName(filepath.Base(path)))
	defer os.Remove(tmp)

	if err := g.renderer.Render(layout, tmp); err != nil {
		return err
	}
	return Overlay(g.opts.LetterheadPath, tmp, path)
}

// afterGenerate starts publication, event emission and the optional open in
// the background. None of them can fail the generation.
func (g *Generator) afterGenerate(patientID string, out *Outcome) {
	if g.opts.Publisher != nil {
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			g.publish(patientID, out.FileName, out.Path)
		}()
	}

	evt := events.ReportGenerated{
		PatientID:  patientID,
		FileName:   out.FileName,
		Link:       out.Link,
		ReportedOn: out.ReportedOn,
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		if err := g.opts.Events.PublishReportGenerated(ctx, evt); err != nil {
			g.logger.Warn().Err(err).Str("patient_id", patientID).Msg("report event not published")
		}
	}()

	if g.opts.Opener != nil {
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			if err := g.opts.Opener(out.Path); err != nil {
				g.logger.Debug().Err(err).Str("path", out.Path).Msg("could not open report")
			}
		}()
	}
}

func (g *Generator) publish(patientID, key, path string) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	f, err := os.Open(path)
	if err != nil {
		g.logger.Warn().Err(err).Str("patient_id", patientID).Msg("report not published")
		return
	}
	defer f.Close()

	obj, err := g.opts.Publisher.Publish(ctx, key, "application/pdf", f)
	if err != nil {
		g.logger.Warn().Err(err).Str("patient_id", patientID).Msg("report not published")
		return
	}
	g.logger.Info().Str("patient_id", patientID).Str("key", obj.Key).Int64("size", obj.Size).Msg("report published")
}

// Wait blocks until background work from earlier generations has finished.
func (g *Generator) Wait() { g.wg.Wait() }

// Close waits for background work and releases the event publisher.
func (g *Generator) Close() error {
	g.wg.Wait()
	return g.opts.Events.Close()
}

// SystemOpener opens path with the desktop's default viewer.
func SystemOpener(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	case "darwin":
		cmd = exec.Command("open", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Run()
}
