package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"etiquetas/internal"
	"etiquetas/internal/config"
)

// Client downloads operator-maintained code tables from TABLES_URL.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

const maxAttempts = 5

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TablesTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.TablesRateLimitRPS),
	}
}

// FetchOverrides returns the remote colour and model entries flattened into
// override rows, sorted by kind then token.
func (c *Client) FetchOverrides(ctx context.Context) ([]internal.CodeOverride, error) {
	body, err := c.fetchJSON(ctx)
	if err != nil {
		return nil, err
	}

	var doc tablesDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode tables payload: %w", err)
	}

	out := make([]internal.CodeOverride, 0, len(doc.Colors)+len(doc.Models))
	out = appendOverrides(out, KindColor, doc.Colors, colorKey)
	out = appendOverrides(out, KindModel, doc.Models, modelKey)
	return out, nil
}

func (c *Client) fetchJSON(ctx context.Context) ([]byte, error) {
	if strings.TrimSpace(c.cfg.TablesURL) == "" {
		return nil, errors.New("missing TABLES_URL")
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.TablesURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if token := strings.TrimSpace(c.cfg.TablesToken); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				lastErr = fmt.Errorf("tables status %d", resp.StatusCode)
				if err := sleepBackoff(ctx, attempt); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("tables api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var apiResp apiResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return nil, err
		}
		if !apiResp.Success {
			return nil, fmt.Errorf("tables api unsuccessful: %s %s", apiResp.Message, string(apiResp.Errors))
		}
		return apiResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("tables request failed")
	}
	return nil, lastErr
}

func sleepBackoff(ctx context.Context, attempt int) error {
	backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func appendOverrides(out []internal.CodeOverride, kind string, entries map[string]string, key func(string) string) []internal.CodeOverride {
	start := len(out)
	for token, canonical := range entries {
		token = key(token)
		canonical = strings.TrimSpace(canonical)
		if token == "" || canonical == "" {
			continue
		}
		out = append(out, internal.CodeOverride{Kind: kind, Token: token, Canonical: canonical})
	}
	sortOverrides(out[start:])
	return out
}
