package connectors

import (
	"context"

	"github.com/rs/zerolog"
)

type FetchService struct {
	connector MailConnector
	store     *MailStoreService
	log       zerolog.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db EmailStore, rawMailDir string, connector MailConnector, log zerolog.Logger) *FetchService {
	return &FetchService{
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		log:       log,
	}
}

func (s *FetchService) FetchAndStore(ctx context.Context, opts FetchOptions) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, opts)
	if err != nil {
		return FetchResult{}, err
	}

	stored := 0
	for _, msg := range messages {
		row, isNew, err := s.store.Store(msg)
		if err != nil {
			return FetchResult{}, err
		}
		if !isNew {
			s.log.Debug().Str("messageId", msg.MessageID).Str("status", row.Status).Msg("message already handled")
			continue
		}
		stored++
	}

	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}
