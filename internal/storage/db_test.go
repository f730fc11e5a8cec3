package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etiquetas/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLabelRuns(t *testing.T) {
	db := openTestDB(t)

	run := internal.LabelRun{
		TraceID:      "abc",
		Source:       "report.txt",
		Kind:         string(internal.KindText),
		Status:       string(internal.RunRendered),
		PDFName:      "etiqueta_abc.pdf",
		PreviewName:  "preview_abc.png",
		MissingCount: 2,
	}
	require.NoError(t, db.InsertRun(run, `{"totalMs":3}`))

	got, err := db.MustRunByTraceID("abc")
	require.NoError(t, err)
	assert.Equal(t, "etiqueta_abc.pdf", got.PDFName)
	assert.Equal(t, 2, got.MissingCount)

	future := time.Now().UTC().Add(time.Hour).Format("2006-01-02 15:04:05")
	expired, err := db.ListRunsBefore(future, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)

	past := time.Now().UTC().Add(-time.Hour).Format("2006-01-02 15:04:05")
	expired, err = db.ListRunsBefore(past, 10)
	require.NoError(t, err)
	assert.Empty(t, expired)

	require.NoError(t, db.UpdateRunStatus("abc", internal.RunExpired))
	expired, err = db.ListRunsBefore(future, 10)
	require.NoError(t, err)
	assert.Empty(t, expired)

	_, err = db.MustRunByTraceID("missing")
	assert.Error(t, err)
}

func TestCodeOverridesReplace(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.ReplaceCodeOverrides([]internal.CodeOverride{
		{Kind: "model", Token: "iphone18,1", Canonical: "iPhone 17 Pro"},
		{Kind: "color", Token: "coral", Canonical: "Coral"},
	}))
	require.NoError(t, db.ReplaceCodeOverrides([]internal.CodeOverride{
		{Kind: "color", Token: "sunset", Canonical: "Atardecer"},
	}))

	rows, err := db.ListCodeOverrides()
	require.NoError(t, err)
	assert.Equal(t, []internal.CodeOverride{{Kind: "color", Token: "sunset", Canonical: "Atardecer"}}, rows)
}

func TestEmailsAndMetadata(t *testing.T) {
	db := openTestDB(t)

	email, err := db.UpsertEmail("imap", "<m1@example.com>", "Reporte", "tienda@example.com", "2026-02-08T00:00:00Z", "hash", "/tmp/x.eml", "fetched")
	require.NoError(t, err)
	assert.NotZero(t, email.ID)

	pending, err := db.ListEmailsByStatus("fetched", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, db.UpdateEmailStatus(email.ID, "processed"))
	pending, err = db.ListEmailsByStatus("fetched", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, db.SetMetadata("tables.last_sync", "now"))
	v, err := db.GetMetadata("tables.last_sync")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "now", *v)

	missing, err := db.GetMetadata("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
