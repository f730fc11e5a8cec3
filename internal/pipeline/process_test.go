package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etiquetas/internal"
	"etiquetas/internal/artifacts"
	"etiquetas/internal/catalog"
	"etiquetas/internal/config"
	"etiquetas/internal/storage"
)

func newTestService(t *testing.T) (*LabelService, *artifacts.Store, *storage.DB) {
	t.Helper()
	tmp := t.TempDir()

	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := artifacts.NewStore(filepath.Join(tmp, "uploads"), filepath.Join(tmp, "generated"))
	require.NoError(t, err)

	cfg := config.Config{
		LabelBrand:         "EmaTecno",
		LabelWhatsAppPhone: "34600000000",
		LabelQRTemplate:    config.DefaultQRTemplate,
		PreviewDPI:         36,
	}
	svc := NewLabelService(NewParser(catalog.Default()), store, db, cfg, zerolog.Nop())
	return svc, store, db
}

func TestFromReportRendersArtifacts(t *testing.T) {
	svc, store, db := newTestService(t)

	res, err := svc.FromReport(context.Background(), "report_current.txt", readFixture(t, "report_current.txt"), "")
	require.NoError(t, err)
	assert.Equal(t, "iPhone 12 Pro", res.Record.Model)
	assert.Equal(t, "etiqueta_"+res.TraceID+".pdf", res.PDFName)
	assert.Equal(t, "preview_"+res.TraceID+".png", res.PreviewName)

	for _, name := range []string{res.PDFName, res.PreviewName} {
		path, err := store.Resolve(name)
		require.NoError(t, err)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	run, err := db.MustRunByTraceID(res.TraceID)
	require.NoError(t, err)
	assert.Equal(t, string(internal.RunRendered), run.Status)
	assert.Equal(t, string(internal.KindText), run.Kind)
	assert.Equal(t, 0, run.MissingCount)
}

func TestFromReportIMEIOverride(t *testing.T) {
	svc, _, _ := newTestService(t)

	res, err := svc.FromReport(context.Background(), "report_legacy.txt", readFixture(t, "report_legacy.txt"), "35-678910-123456-7")
	require.NoError(t, err)
	assert.Equal(t, "356789101234567", res.Record.IMEI)
}

func TestFromReportUnreadable(t *testing.T) {
	svc, store, db := newTestService(t)
	svc.newID = func() string { return "rejected-1" }

	_, err := svc.FromReport(context.Background(), "empty.txt", []byte("  \n"), "")
	assert.ErrorIs(t, err, ErrUnreadableInput)

	run, err := db.MustRunByTraceID("rejected-1")
	require.NoError(t, err)
	assert.Equal(t, string(internal.RunFailed), run.Status)
	assert.Equal(t, "empty.txt", run.Source)
	assert.Empty(t, run.PDFName)

	swept, err := store.Sweep(-time.Hour)
	require.NoError(t, err)
	assert.Equal(t, artifacts.SweepResult{}, swept, "rejected report left files behind")
}

func TestFromReportKeepsAcceptedUpload(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, err := svc.FromReport(context.Background(), "report_current.txt", readFixture(t, "report_current.txt"), "")
	require.NoError(t, err)

	swept, err := store.Sweep(-time.Hour)
	require.NoError(t, err)
	assert.Equal(t, artifacts.SweepResult{Uploads: 1, Generated: 2}, swept)
}

func TestFromReportMissingCountUsesDegradedFields(t *testing.T) {
	svc, _, db := newTestService(t)

	res, err := svc.FromReport(context.Background(), "report_blank_color.txt", readFixture(t, "report_blank_color.txt"), "")
	require.NoError(t, err)
	assert.Equal(t, []internal.Field{internal.FieldColor}, res.Missing)

	run, err := db.MustRunByTraceID(res.TraceID)
	require.NoError(t, err)
	assert.Equal(t, 1, run.MissingCount)
}

func TestFromManualPlaceholderInputIsNotMissing(t *testing.T) {
	svc, _, db := newTestService(t)

	res, err := svc.FromManual(context.Background(), ManualEntry{
		Model: "iPhone", Color: "N/A", Capacity: "64GB", Serial: "F2LDQ0ABCD12", IMEI: "N/A", BatteryHealth: "90%",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Missing)

	run, err := db.MustRunByTraceID(res.TraceID)
	require.NoError(t, err)
	assert.Equal(t, 0, run.MissingCount)
}

func TestFromManual(t *testing.T) {
	svc, _, db := newTestService(t)

	res, err := svc.FromManual(context.Background(), ManualEntry{Model: "iPhone 15", Color: "black"})
	require.NoError(t, err)
	assert.Equal(t, "Negro", res.Record.Color)

	run, err := db.MustRunByTraceID(res.TraceID)
	require.NoError(t, err)
	assert.Equal(t, string(internal.KindManual), run.Kind)
	assert.Equal(t, 4, run.MissingCount)
}

func TestExportRowsToXLSX(t *testing.T) {
	p := NewParser(catalog.Default())
	res, err := p.Analyze(readFixture(t, "report_partial.txt"))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "batch", "result.xlsx")
	rows := []BatchRow{
		{Source: "report_partial.txt", Record: res.Record, Missing: res.Missing},
		{Source: "broken.txt", Error: "unreadable report input"},
	}
	require.NoError(t, ExportRowsToXLSX(rows, out))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.Equal(t, "capacity,serial,imei,batteryHealth", internal.FieldNames(res.Missing))
}
