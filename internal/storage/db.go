package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"etiquetas/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS label_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL UNIQUE,
  source TEXT NOT NULL,
  kind TEXT NOT NULL,
  status TEXT NOT NULL,
  pdfName TEXT,
  previewName TEXT,
  missingCount INTEGER NOT NULL DEFAULT 0,
  timingsJson TEXT NOT NULL DEFAULT '{}',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_label_runs_created ON label_runs(createdAt);

CREATE TABLE IF NOT EXISTS code_overrides (
  kind TEXT NOT NULL,
  token TEXT NOT NULL,
  canonical TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY(kind, token)
);

CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) InsertRun(run internal.LabelRun, timingsJSON string) error {
	if timingsJSON == "" {
		timingsJSON = "{}"
	}
	_, err := d.conn.Exec(`
INSERT INTO label_runs (traceId, source, kind, status, pdfName, previewName, missingCount, timingsJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, run.TraceID, run.Source, run.Kind, run.Status, run.PDFName, run.PreviewName, run.MissingCount, timingsJSON)
	return err
}

func (d *DB) GetRunByTraceID(traceID string) (*internal.LabelRun, error) {
	var run internal.LabelRun
	var pdfName, previewName sql.NullString
	err := d.conn.QueryRow(`
SELECT id, traceId, source, kind, status, pdfName, previewName, missingCount, createdAt
FROM label_runs WHERE traceId = ?
`, traceID).Scan(&run.ID, &run.TraceID, &run.Source, &run.Kind, &run.Status, &pdfName, &previewName, &run.MissingCount, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.PDFName = pdfName.String
	run.PreviewName = previewName.String
	return &run, nil
}

// ListRunsBefore returns runs created before cutoff (RFC3339 or sqlite
// timestamp) that still own artifacts on disk.
func (d *DB) ListRunsBefore(cutoff string, limit int) ([]internal.LabelRun, error) {
	rows, err := d.conn.Query(`
SELECT id, traceId, source, kind, status, pdfName, previewName, missingCount, createdAt
FROM label_runs
WHERE status = ? AND datetime(createdAt) < datetime(?)
ORDER BY createdAt ASC LIMIT ?
`, string(internal.RunRendered), cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.LabelRun
	for rows.Next() {
		var run internal.LabelRun
		var pdfName, previewName sql.NullString
		if err := rows.Scan(&run.ID, &run.TraceID, &run.Source, &run.Kind, &run.Status, &pdfName, &previewName, &run.MissingCount, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.PDFName = pdfName.String
		run.PreviewName = previewName.String
		out = append(out, run)
	}
	return out, rows.Err()
}

func (d *DB) UpdateRunStatus(traceID string, status internal.RunStatus) error {
	_, err := d.conn.Exec(`UPDATE label_runs SET status = ? WHERE traceId = ?`, string(status), traceID)
	return err
}

func (d *DB) ReplaceCodeOverrides(overrides []internal.CodeOverride) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM code_overrides`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO code_overrides (kind, token, canonical) VALUES (?, ?, ?)
ON CONFLICT(kind, token) DO UPDATE SET canonical = excluded.canonical, updatedAt = CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range overrides {
		if _, err := stmt.Exec(o.Kind, o.Token, o.Canonical); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListCodeOverrides() ([]internal.CodeOverride, error) {
	rows, err := d.conn.Query(`SELECT kind, token, canonical FROM code_overrides ORDER BY kind, token`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CodeOverride
	for rows.Next() {
		var o internal.CodeOverride
		if err := rows.Scan(&o.Kind, &o.Token, &o.Canonical); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		var row internal.EmailRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) MustRunByTraceID(traceID string) (internal.LabelRun, error) {
	run, err := d.GetRunByTraceID(traceID)
	if err != nil {
		return internal.LabelRun{}, err
	}
	if run == nil {
		return internal.LabelRun{}, fmt.Errorf("label run not found: traceId=%s", traceID)
	}
	return *run, nil
}
