package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"etiquetas/internal"
	"etiquetas/internal/config"
	"etiquetas/internal/connectors"
)

type Connector struct {
	service *gmail.Service
}

func NewConnector(ctx context.Context, cfg config.Config) (*Connector, error) {
	for name, value := range map[string]string{
		"GMAIL_CLIENT_ID":     cfg.GmailClientID,
		"GMAIL_CLIENT_SECRET": cfg.GmailClientSecret,
		"GMAIL_REFRESH_TOKEN": cfg.GmailRefreshToken,
	} {
		if err := cfg.Require(name, value); err != nil {
			return nil, err
		}
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc}, nil
}

// FetchInbox lists unread messages under opts.Label and downloads each one
// in raw form; envelope fields are read from the raw message itself.
func (c *Connector) FetchInbox(ctx context.Context, opts connectors.FetchOptions) ([]internal.FetchedMailMessage, error) {
	query := "is:unread"
	if opts.Query != "" {
		query += " " + opts.Query
	}
	listCall := c.service.Users.Messages.List("me").Q(query).Context(ctx)
	if opts.Label != "" {
		listCall = listCall.LabelIds(opts.Label)
	}
	if opts.Max > 0 {
		listCall = listCall.MaxResults(int64(opts.Max))
	}
	listResp, err := listCall.Do()
	if err != nil {
		return nil, err
	}

	out := make([]internal.FetchedMailMessage, 0, len(listResp.Messages))
	for _, msgRef := range listResp.Messages {
		if msgRef.Id == "" {
			continue
		}

		rawResp, err := c.service.Users.Messages.Get("me", msgRef.Id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		if rawResp.Raw == "" {
			continue
		}
		rawBytes, err := decodeBase64URL(rawResp.Raw)
		if err != nil {
			return nil, err
		}

		out = append(out, toFetched(msgRef.Id, rawResp.InternalDate, rawBytes))
	}

	return out, nil
}

func toFetched(id string, internalDateMs int64, raw []byte) internal.FetchedMailMessage {
	fetched := internal.FetchedMailMessage{Provider: "gmail", MessageID: id, Raw: raw}
	if h, err := connectors.HeadersFromRaw(raw); err == nil {
		if h.MessageID != "" {
			fetched.MessageID = h.MessageID
		}
		fetched.Subject = h.Subject
		fetched.From = h.From
		fetched.ReceivedAt = h.ReceivedAt
	}
	if fetched.ReceivedAt == "" && internalDateMs > 0 {
		fetched.ReceivedAt = time.UnixMilli(internalDateMs).UTC().Format(time.RFC3339)
	}
	if fetched.ReceivedAt == "" {
		fetched.ReceivedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return fetched
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
