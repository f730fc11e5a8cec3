package connectors

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
)

const rawMessage = "From: Tienda <tienda@example.com>\r\n" +
	"To: etiquetas@example.com\r\n" +
	"Subject: =?UTF-8?Q?Informe_bater=C3=ADa?=\r\n" +
	"Date: Fri, 14 Mar 2025 10:30:00 +0100\r\n" +
	"Message-ID: <abc@example.com>\r\n" +
	"\r\n" +
	"Device Model iPhone 12\r\n"

func TestHeadersFromRaw(t *testing.T) {
	h, err := HeadersFromRaw([]byte(rawMessage))
	require.NoError(t, err)
	assert.Equal(t, "<abc@example.com>", h.MessageID)
	assert.Equal(t, "Informe batería", h.Subject)
	assert.Contains(t, h.From, "tienda@example.com")
	assert.Equal(t, "2025-03-14T09:30:00Z", h.ReceivedAt)
}

func TestParseMailDate(t *testing.T) {
	got, err := ParseMailDate("Mon, 3 Mar 2025 08:00:00 +0000 (UTC)")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)))

	_, err = ParseMailDate("yesterday")
	assert.Error(t, err)
}

type memoryEmails struct {
	rows   map[string]internal.EmailRow
	nextID int
}

func newMemoryEmails() *memoryEmails {
	return &memoryEmails{rows: map[string]internal.EmailRow{}}
}

func (m *memoryEmails) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	key := provider + "|" + messageID
	row, ok := m.rows[key]
	if !ok {
		m.nextID++
		row = internal.EmailRow{ID: m.nextID, Provider: provider, MessageID: messageID, Status: status}
	}
	row.Subject, row.Sender, row.ReceivedAt, row.Hash, row.RawRef = subject, sender, receivedAt, hash, rawRef
	m.rows[key] = row
	return row, nil
}

func (m *memoryEmails) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	row, ok := m.rows[provider+"|"+messageID]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

type staticConnector []internal.FetchedMailMessage

func (s staticConnector) FetchInbox(context.Context, FetchOptions) ([]internal.FetchedMailMessage, error) {
	return s, nil
}

func TestMailStoreArchivesRawMessage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "raw")
	db := newMemoryEmails()
	store := NewMailStoreService(db, dir)

	msg := internal.FetchedMailMessage{Provider: "imap", MessageID: "<abc@example.com>", Raw: []byte(rawMessage)}
	row, isNew, err := store.Store(msg)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, StatusFetched, row.Status)
	assert.Equal(t, filepath.Join(dir, row.Hash+".eml"), row.RawRef)

	blob, err := os.ReadFile(row.RawRef)
	require.NoError(t, err)
	assert.Equal(t, rawMessage, string(blob))
}

func TestFetchAndStoreSkipsHandledMessages(t *testing.T) {
	db := newMemoryEmails()
	_, err := db.UpsertEmail("imap", "<done@example.com>", "", "", "", "", "", "processed")
	require.NoError(t, err)

	conn := staticConnector{
		{Provider: "imap", MessageID: "<done@example.com>", Raw: []byte("a")},
		{Provider: "imap", MessageID: "<new@example.com>", Raw: []byte("b")},
	}
	svc := NewFetchService(db, t.TempDir(), conn, zerolog.Nop())

	res, err := svc.FetchAndStore(context.Background(), FetchOptions{Label: "INBOX", Max: 5})
	require.NoError(t, err)
	assert.Equal(t, FetchResult{Fetched: 2, Stored: 1}, res)

	done, err := db.GetEmailByProviderMessageID("imap", "<done@example.com>")
	require.NoError(t, err)
	assert.Equal(t, "processed", done.Status)
}
