package automator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/macrolink-io/macrolink/internal/catalog"
	"github.com/macrolink-io/macrolink/internal/config/store"
)

const (
	// DefaultTimeout bounds every request to an Automator instance. Triggers
	// come from live show control, so a slow instance must fail fast.
	DefaultTimeout = 5 * time.Second

	maxResponseSize = 4 * 1024 * 1024 // 4 MB

	apiKeyHeader = "X-API-Key"
)

// Client talks to Automator instances over their HTTP API. One client is
// shared by the dispatch path, the catalog refreshes and the connection
// checks so they all draw from a single pooled transport.
type Client struct {
	http   *http.Client
	logger *log.Logger
}

// Options configures an Automator client.
type Options struct {
	Timeout time.Duration
	Logger  *log.Logger
}

// NewClient creates an Automator HTTP client with a pooled transport.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[Automator] ", log.LstdFlags)
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

// Close releases idle pooled connections. Call on daemon shutdown.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// NormalizeBaseURL canonicalises a configured instance URL: missing schemes
// get http://, trailing slashes are stripped.
func NormalizeBaseURL(raw string) string {
	url := strings.TrimSpace(raw)
	if url == "" {
		return ""
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	return strings.TrimRight(url, "/")
}

func (c *Client) get(ctx context.Context, inst store.Automator, path string) (*http.Response, error) {
	base := NormalizeBaseURL(inst.URL)
	if base == "" {
		return nil, fmt.Errorf("automator: instance %s has no URL configured", inst.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("automator: build request: %w", err)
	}
	if inst.APIKey != "" {
		req.Header.Set(apiKeyHeader, inst.APIKey)
	}
	return c.http.Do(req)
}

// ConnectionStatus is the outcome of a reachability probe.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Detail    string `json:"detail"`
}

// CheckConnection probes the instance's web connection endpoint. It never
// returns an error; unreachability is a status, not a failure.
func (c *Client) CheckConnection(ctx context.Context, inst store.Automator) ConnectionStatus {
	if NormalizeBaseURL(inst.URL) == "" {
		return ConnectionStatus{Detail: "no URL configured"}
	}

	resp, err := c.get(ctx, inst, "/api/app/webconnection")
	if err != nil {
		return ConnectionStatus{Detail: classifyTransportError(err)}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ConnectionStatus{Detail: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	return ConnectionStatus{Connected: true, Detail: "connected"}
}

func classifyTransportError(err error) string {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		msg := err.Error()
		if strings.Contains(msg, "connection refused") {
			return "connection refused"
		}
		if strings.Contains(msg, "no such host") {
			return "unknown host"
		}
		return msg
	}
}

// FetchMacros returns the instance's macro list.
func (c *Client) FetchMacros(ctx context.Context, inst store.Automator) ([]catalog.Item, error) {
	items, err := c.fetchItems(ctx, inst, "/api/macro/")
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Type = catalog.TypeMacro
	}
	return items, nil
}

// FetchButtons returns the instance's trigger-button list.
func (c *Client) FetchButtons(ctx context.Context, inst store.Automator) ([]catalog.Item, error) {
	items, err := c.fetchItems(ctx, inst, "/api/trigger/button/")
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Type = catalog.TypeButton
	}
	return items, nil
}

// FetchShortcuts returns the instance's keyboard-shortcut list. Shortcuts
// arrive untyped and untitled; each gets its type tag and a synthesised
// key-combo title.
func (c *Client) FetchShortcuts(ctx context.Context, inst store.Automator) ([]catalog.Item, error) {
	items, err := c.fetchItems(ctx, inst, "/api/trigger/shortcut/")
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Type = catalog.TypeShortcut
		if items[i].Title == "" {
			items[i].Title = items[i].DisplayTitle()
		}
	}
	return items, nil
}

func (c *Client) fetchItems(ctx context.Context, inst store.Automator, path string) ([]catalog.Item, error) {
	resp, err := c.get(ctx, inst, path)
	if err != nil {
		return nil, fmt.Errorf("automator: fetch %s from %s: %w", path, inst.Name, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("automator: fetch %s from %s: HTTP %d", path, inst.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("automator: read %s response: %w", path, err)
	}

	var items []catalog.Item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("automator: decode %s response: %w", path, err)
	}
	return items, nil
}

func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, maxResponseSize)) //nolint:errcheck
	body.Close()
}
