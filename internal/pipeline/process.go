package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"etiquetas/internal"
	"etiquetas/internal/artifacts"
	"etiquetas/internal/config"
	"etiquetas/internal/label"
)

// ErrRender wraps failures while drawing or writing label artifacts.
var ErrRender = errors.New("label render failed")

// RunRecorder stores one row per label run. Record values are not part of it.
type RunRecorder interface {
	InsertRun(run internal.LabelRun, timingsJSON string) error
}

type LabelService struct {
	parser     *Parser
	store      *artifacts.Store
	runs       RunRecorder
	layout     label.Options
	previewDPI float64
	log        zerolog.Logger
	newID      func() string
}

type LabelResult struct {
	TraceID     string                `json:"traceId"`
	Record      internal.DeviceRecord `json:"record"`
	Missing     []internal.Field      `json:"missing"`
	PDFName     string                `json:"pdfName"`
	PreviewName string                `json:"previewName"`
}

func NewLabelService(parser *Parser, store *artifacts.Store, runs RunRecorder, cfg config.Config, log zerolog.Logger) *LabelService {
	return &LabelService{
		parser: parser,
		store:  store,
		runs:   runs,
		layout: label.Options{
			Brand:      cfg.LabelBrand,
			QRTemplate: cfg.LabelQRTemplate,
			Phone:      cfg.LabelWhatsAppPhone,
		},
		previewDPI: float64(cfg.PreviewDPI),
		log:        log,
		newID:      func() string { return uuid.NewString() },
	}
}

// ParseReport detects the report kind and parses it without rendering.
func (s *LabelService) ParseReport(filename string, blob []byte) (Result, internal.ReportKind, error) {
	kind, err := DetectKind(filename, blob)
	if err != nil {
		return Result{}, "", err
	}
	text, err := ReportText(kind, blob)
	if err != nil {
		return Result{}, kind, err
	}
	res, err := s.parser.Analyze(text)
	return res, kind, err
}

// FromReport parses the upload, keeps it and renders the label. A valid
// imei replaces the one found in the report. Rejected reports are recorded
// as failed runs and not kept.
func (s *LabelService) FromReport(ctx context.Context, filename string, blob []byte, imei string) (LabelResult, error) {
	start := time.Now()
	id := s.newID()
	log := s.log.With().Str("traceId", id).Str("source", filename).Logger()

	res, kind, err := s.ParseReport(filename, blob)
	if err != nil {
		log.Info().Err(err).Msg("report rejected")
		s.recordRun(log, internal.LabelRun{
			TraceID: id,
			Source:  filename,
			Kind:    string(kind),
			Status:  string(internal.RunFailed),
		}, timings(start, time.Since(start)))
		return LabelResult{}, err
	}
	if value, ok := s.parser.overrideIMEI(imei); ok {
		res = res.with(internal.FieldIMEI, value)
	}
	parsed := time.Since(start)

	if _, err := s.store.SaveUpload(id, filename, blob); err != nil {
		return LabelResult{}, fmt.Errorf("save upload: %w", err)
	}

	return s.finish(ctx, log, id, filename, kind, res, start, parsed)
}

func (s *LabelService) FromManual(ctx context.Context, entry ManualEntry) (LabelResult, error) {
	start := time.Now()
	id := s.newID()
	log := s.log.With().Str("traceId", id).Str("source", "manual").Logger()

	res := s.parser.AnalyzeManual(entry)
	return s.finish(ctx, log, id, "manual", internal.KindManual, res, start, time.Since(start))
}

func (s *LabelService) finish(ctx context.Context, log zerolog.Logger, id, source string, kind internal.ReportKind, res Result, start time.Time, parsed time.Duration) (LabelResult, error) {
	run := internal.LabelRun{
		TraceID:      id,
		Source:       source,
		Kind:         string(kind),
		MissingCount: len(res.Missing),
	}

	pdfName, previewName, err := s.Render(ctx, id, res.Record)
	if err != nil {
		run.Status = string(internal.RunFailed)
		s.recordRun(log, run, timings(start, parsed))
		log.Error().Err(err).Msg("label render failed")
		return LabelResult{}, err
	}

	run.Status = string(internal.RunRendered)
	run.PDFName = pdfName
	run.PreviewName = previewName
	t := timings(start, parsed)
	s.recordRun(log, run, t)

	log.Info().Int("missing", run.MissingCount).Float64("totalMs", t["totalMs"]).Msg("label rendered")
	return LabelResult{TraceID: id, Record: res.Record, Missing: res.Missing, PDFName: pdfName, PreviewName: previewName}, nil
}

func timings(start time.Time, parsed time.Duration) map[string]float64 {
	return map[string]float64{
		"parseMs": float64(parsed.Milliseconds()),
		"totalMs": float64(time.Since(start).Milliseconds()),
	}
}

// Render writes etiqueta_<id>.pdf and preview_<id>.png for rec.
func (s *LabelService) Render(ctx context.Context, id string, rec internal.DeviceRecord) (string, string, error) {
	page, err := label.Layout(rec, s.layout)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrRender, err)
	}

	pdfName := "etiqueta_" + id + ".pdf"
	if err := s.writeArtifact(pdfName, func(w io.Writer) error { return label.RenderPDF(page, w) }); err != nil {
		return "", "", err
	}
	if err := ctx.Err(); err != nil {
		_ = s.store.Remove(pdfName)
		return "", "", err
	}

	previewName := "preview_" + id + ".png"
	if err := s.writeArtifact(previewName, func(w io.Writer) error { return label.RenderPNG(page, s.previewDPI, w) }); err != nil {
		_ = s.store.Remove(pdfName)
		return "", "", err
	}
	return pdfName, previewName, nil
}

func (s *LabelService) writeArtifact(name string, render func(io.Writer) error) error {
	f, err := s.store.Create(name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
	if err := render(f); err != nil {
		_ = f.Close()
		_ = s.store.Remove(name)
		return fmt.Errorf("%w: %s: %v", ErrRender, name, err)
	}
	if err := f.Close(); err != nil {
		_ = s.store.Remove(name)
		return fmt.Errorf("%w: %s: %v", ErrRender, name, err)
	}
	return nil
}

func (s *LabelService) recordRun(log zerolog.Logger, run internal.LabelRun, timings map[string]float64) {
	if s.runs == nil {
		return
	}
	blob, _ := json.Marshal(timings)
	if err := s.runs.InsertRun(run, string(blob)); err != nil {
		log.Warn().Err(err).Msg("record label run")
	}
}
