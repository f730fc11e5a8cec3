package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"etiquetas/internal"
	"etiquetas/internal/config"
)

// OverrideStore is the persistence the sync writes into.
type OverrideStore interface {
	ReplaceCodeOverrides(rows []internal.CodeOverride) error
	SetMetadata(key, value string) error
}

type SyncService struct {
	store  OverrideStore
	client *Client
	log    zerolog.Logger
}

const lastSyncKey = "tables.last_sync"

func NewSyncService(store OverrideStore, cfg config.Config, log zerolog.Logger) *SyncService {
	return &SyncService{store: store, client: NewClient(cfg), log: log}
}

// Sync replaces the stored overrides with the remote tables. Running
// processes keep their loaded tables; the new entries apply on next start.
func (s *SyncService) Sync(ctx context.Context) (int, error) {
	rows, err := s.client.FetchOverrides(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.store.ReplaceCodeOverrides(rows); err != nil {
		return 0, err
	}
	if err := s.store.SetMetadata(lastSyncKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.log.Warn().Err(err).Msg("record tables sync time")
	}
	s.log.Info().Int("overrides", len(rows)).Msg("tables synced")
	return len(rows), nil
}

func sortOverrides(rows []internal.CodeOverride) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Kind != rows[j].Kind {
			return rows[i].Kind < rows[j].Kind
		}
		return rows[i].Token < rows[j].Token
	})
}
