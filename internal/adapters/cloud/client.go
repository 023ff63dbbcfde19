package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"classtrack/internal/domain/attendance"
)

// DefaultBaseURL is the key-value endpoint used when none is configured.
const DefaultBaseURL = "https://api.keyvalue.xyz"

// Errors
var (
	ErrRemote     = errors.New("remote sync failed")
	ErrNoSyncCode = errors.New("no sync code configured")
)

// maxBody bounds how much of a remote response is read.
const maxBody = 8 << 20

// Remote stores a whole ledger under an access code.
type Remote interface {
	Fetch(ctx context.Context, code string) (attendance.Ledger, error)
	Put(ctx context.Context, code string, l attendance.Ledger) error
}

// HTTPClient talks to a generic key-value endpoint: GET {base}/{code} reads
// the ledger, POST {base}/{code} replaces it.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// Compile-time check that *HTTPClient satisfies Remote.
var _ Remote = (*HTTPClient)(nil)

// NewHTTPClient creates a client for baseURL. A nil client gets a default
// with the given timeout.
// PRE: baseURL is an absolute http(s) URL or empty for DefaultBaseURL
func NewHTTPClient(baseURL string, client *http.Client, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (c *HTTPClient) endpoint(code string) string {
	return c.baseURL + "/" + url.PathEscape(code)
}

// Fetch reads the ledger stored under code.
// PRE: code is non-empty
// POST: Returns ErrRemote (wrapped) on transport failure, non-2xx status,
// or an undecodable body; an empty body is an empty ledger
func (c *HTTPClient) Fetch(ctx context.Context, code string) (attendance.Ledger, error) {
	if code == "" {
		return nil, ErrNoSyncCode
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(code), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRemote, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET returned %d", ErrRemote, resp.StatusCode)
	}

	ledger := attendance.Ledger{}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ledger, nil
	}
	if err := json.Unmarshal(trimmed, &ledger); err != nil {
		return nil, fmt.Errorf("%w: decode ledger: %v", ErrRemote, err)
	}
	for date, day := range ledger {
		if day.Hours == nil {
			day.Hours = map[string][]int{}
			ledger[date] = day
		}
	}
	if err := ledger.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid ledger: %v", ErrRemote, err)
	}

	slog.Debug("remote_fetched", "dates", len(ledger))
	return ledger, nil
}

// Put replaces the ledger stored under code.
// PRE: code is non-empty
// POST: Returns ErrRemote (wrapped) unless the endpoint answered 2xx
func (c *HTTPClient) Put(ctx context.Context, code string, l attendance.Ledger) error {
	if code == "" {
		return ErrNoSyncCode
	}
	if l == nil {
		l = attendance.Ledger{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(code), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: POST returned %d", ErrRemote, resp.StatusCode)
	}
	slog.Debug("remote_put", "dates", len(l), "bytes", len(data))
	return nil
}
