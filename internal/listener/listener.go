// Package listener polls a mailbox for mailed-in diagnostic reports and turns
// each one into a label.
package listener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"etiquetas/internal"
	"etiquetas/internal/config"
	"etiquetas/internal/connectors"
	gmailconnector "etiquetas/internal/connectors/gmail"
	imapconnector "etiquetas/internal/connectors/imap"
	"etiquetas/internal/pipeline"
	"etiquetas/internal/storage"
)

const (
	StatusExported  = "exported"
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

type Service struct {
	db        *storage.DB
	cfg       config.Config
	labels    *pipeline.LabelService
	connector connectors.MailConnector
	log       zerolog.Logger
}

type Option func(*Service)

// WithConnector replaces the connector built from MAIL_LISTENER_PROVIDER.
func WithConnector(c connectors.MailConnector) Option {
	return func(s *Service) { s.connector = c }
}

type CycleResult struct {
	Fetched   int
	Stored    int
	Processed int
	Skipped   int
	Failed    int
}

func NewService(db *storage.DB, cfg config.Config, labels *pipeline.LabelService, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{db: db, cfg: cfg, labels: labels, log: log.With().Str("component", "listener").Logger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			s.log.Error().Err(err).Msg("listener cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// RunCycle fetches new mail, then labels every stored message still waiting.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	provider := s.provider()
	mailConnector := s.connector
	if mailConnector == nil {
		var err error
		mailConnector, err = NewConnector(ctx, s.cfg, provider)
		if err != nil {
			return CycleResult{}, err
		}
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector, s.log)
	fetched, err := fetchService.FetchAndStore(ctx, connectors.FetchOptions{
		Label: s.cfg.MailListenerLabel,
		Max:   s.cfg.MailListenerFetchMax,
		Query: s.cfg.MailListenerQuery,
	})
	if err != nil {
		return CycleResult{}, err
	}
	result := CycleResult{Fetched: fetched.Fetched, Stored: fetched.Stored}

	batch := s.cfg.MailListenerProcessBatch
	if batch <= 0 {
		batch = 20
	}
	emails, err := s.db.ListEmailsByStatus(connectors.StatusFetched, batch)
	if err != nil {
		return result, err
	}

	for _, email := range emails {
		if email.Provider != provider {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		status := s.processEmail(ctx, email)
		switch status {
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		default:
			result.Processed++
		}
		if err := s.db.UpdateEmailStatus(email.ID, status); err != nil {
			return result, err
		}
	}

	s.log.Info().
		Str("provider", provider).
		Int("fetched", result.Fetched).
		Int("stored", result.Stored).
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("listener cycle done")
	return result, nil
}

func (s *Service) processEmail(ctx context.Context, email internal.EmailRow) string {
	log := s.log.With().Int("emailId", email.ID).Str("messageId", email.MessageID).Logger()

	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		log.Error().Err(err).Msg("read stored message")
		return StatusFailed
	}

	source := sanitizeMessageID(email.MessageID) + ".eml"
	res, err := s.labels.FromReport(ctx, source, raw, "")
	if err != nil {
		if pipeline.IsUnreadable(err) {
			log.Info().Str("subject", email.Subject).Msg("no diagnostic report in message")
			return StatusSkipped
		}
		log.Error().Err(err).Msg("label from message failed")
		return StatusFailed
	}

	if !s.cfg.MailListenerAutoExport {
		return StatusProcessed
	}
	row := pipeline.BatchRow{Source: email.Subject, Record: res.Record, Missing: res.Missing, PDF: res.PDFName}
	if row.Source == "" {
		row.Source = email.MessageID
	}
	filename := fmt.Sprintf("%d_%s.xlsx", email.ID, sanitizeMessageID(email.MessageID))
	outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
	if err := pipeline.ExportRowsToXLSX([]pipeline.BatchRow{row}, outputPath); err != nil {
		log.Warn().Err(err).Msg("export listener row")
		return StatusProcessed
	}
	return StatusExported
}

func (s *Service) provider() string {
	return strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
}

// NewConnector builds the mailbox connector for provider ("gmail" or "imap").
func NewConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}

func sanitizeMessageID(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_", "@", "_")
	out := strings.Trim(repl.Replace(input), "_")
	if len(out) > 120 {
		out = out[:120]
	}
	if out == "" {
		out = "message"
	}
	return out
}
