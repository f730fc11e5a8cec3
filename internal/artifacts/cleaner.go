package artifacts

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"etiquetas/internal"
)

// RunStore is the part of storage the cleaner needs.
type RunStore interface {
	ListRunsBefore(cutoff string, limit int) ([]internal.LabelRun, error)
	UpdateRunStatus(traceID string, status internal.RunStatus) error
}

type Cleaner struct {
	store     *Store
	runs      RunStore
	retention time.Duration
	log       zerolog.Logger
}

func NewCleaner(store *Store, runs RunStore, retention time.Duration, log zerolog.Logger) *Cleaner {
	return &Cleaner{store: store, runs: runs, retention: retention, log: log}
}

type CleanupResult struct {
	SweepResult
	Expired int
}

// RunOnce removes the artifacts of runs past retention, marks those runs
// expired, then sweeps any stray files.
func (c *Cleaner) RunOnce(ctx context.Context) (CleanupResult, error) {
	cutoff := c.store.now().UTC().Add(-c.retention).Format("2006-01-02 15:04:05")

	var res CleanupResult
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		runs, err := c.runs.ListRunsBefore(cutoff, 100)
		if err != nil {
			return res, err
		}
		if len(runs) == 0 {
			break
		}
		for _, run := range runs {
			for _, name := range []string{run.PDFName, run.PreviewName} {
				if name == "" {
					continue
				}
				if err := c.store.Remove(name); err != nil {
					c.log.Warn().Err(err).Str("traceId", run.TraceID).Str("file", name).Msg("remove artifact")
				}
			}
			if err := c.runs.UpdateRunStatus(run.TraceID, internal.RunExpired); err != nil {
				return res, err
			}
			res.Expired++
		}
	}

	sweep, err := c.store.Sweep(c.retention)
	res.SweepResult = sweep
	if err != nil {
		return res, err
	}
	return res, nil
}

// Run calls RunOnce every interval until ctx is done.
func (c *Cleaner) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := c.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			c.log.Error().Err(err).Msg("artifact cleanup failed")
		} else if res.Expired > 0 || res.Uploads > 0 || res.Generated > 0 {
			c.log.Info().Int("expired", res.Expired).Int("uploads", res.Uploads).Int("generated", res.Generated).Msg("artifact cleanup")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
