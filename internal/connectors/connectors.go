// Package connectors pulls diagnostic reports that customers or technicians
// mail in, from an IMAP mailbox or a Gmail account.
package connectors

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jhillyerd/enmime"

	"etiquetas/internal"
)

// FetchOptions narrows a mailbox poll.
type FetchOptions struct {
	Label string
	Max   int
	// Query is a provider search expression; empty fetches every unread message.
	Query string
}

type MailConnector interface {
	FetchInbox(ctx context.Context, opts FetchOptions) ([]internal.FetchedMailMessage, error)
}

// Headers holds the envelope fields kept for each fetched message.
type Headers struct {
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
}

var mailDateLayouts = []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC850, time.ANSIC,
	"Mon, 2 Jan 2006 15:04:05 -0700", "Mon, 2 Jan 2006 15:04:05 -0700 (MST)"}

// HeadersFromRaw reads the envelope of a raw RFC 822 message.
func HeadersFromRaw(raw []byte) (Headers, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return Headers{}, fmt.Errorf("read message headers: %w", err)
	}
	h := Headers{
		MessageID: env.GetHeader("Message-ID"),
		Subject:   env.GetHeader("Subject"),
		From:      env.GetHeader("From"),
	}
	if parsed, err := ParseMailDate(env.GetHeader("Date")); err == nil {
		h.ReceivedAt = parsed.UTC().Format(time.RFC3339)
	}
	return h, nil
}

func ParseMailDate(value string) (time.Time, error) {
	for _, layout := range mailDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %q", value)
}
