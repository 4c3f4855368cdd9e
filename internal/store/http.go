package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lunchvote/api/internal/state"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTP replicates snapshots to a JSON endpoint (typically a spreadsheet
// webhook): GET returns the stored snapshot, POST replaces it. Every call
// carries a bounded timeout so a slow endpoint degrades to "persisted
// locally, remote pending" instead of hanging.
type HTTP struct {
	url    string
	client *http.Client
}

// NewHTTP creates an HTTP store for url.
func NewHTTP(url string) *HTTP {
	return &HTTP{
		url:    url,
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (h *HTTP) Read(ctx context.Context) (*state.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch snapshot: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	return state.Decode(body)
}

func (h *HTTP) Write(ctx context.Context, snap *state.Snapshot) error {
	body, err := state.Encode(snap)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("push snapshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push snapshot: unexpected status %d", resp.StatusCode)
	}
	return nil
}
