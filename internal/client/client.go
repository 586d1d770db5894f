package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/macrolink-io/macrolink/internal/capture"
	"github.com/macrolink-io/macrolink/internal/config/store"
	"github.com/macrolink-io/macrolink/internal/eventlog"
	"github.com/macrolink-io/macrolink/internal/listener"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxErrorBody       = 8 << 10
)

// Client wraps HTTP interactions with the MacroLink daemon.
type Client struct {
	http    *http.Client
	baseURL string
}

// New builds a daemon client. baseURL points at the daemon's HTTP API.
func New(baseURL string) *Client {
	return &Client{
		http:    &http.Client{Timeout: defaultHTTPTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the daemon base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Status mirrors the daemon's GET /api/status payload.
type Status struct {
	Version         string            `json:"version"`
	UptimeSeconds   int64             `json:"uptime_seconds"`
	SnapshotVersion uint64            `json:"snapshot_version"`
	Listeners       []listener.Status `json:"listeners"`
	CaptureState    string            `json:"capture_state"`
	Commands        int               `json:"commands"`
	Automators      int               `json:"automators"`
}

// Status fetches daemon status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var out Status
	err := c.getJSON(ctx, "/api/status", &out)
	return out, err
}

// Health checks daemon liveness.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/health", &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("daemon reports status %q", out.Status)
	}
	return nil
}

// Events fetches the most recent event log entries, oldest first.
func (c *Client) Events(ctx context.Context, limit int) ([]eventlog.Entry, error) {
	path := "/events"
	if limit > 0 {
		path = fmt.Sprintf("/events?limit=%d", limit)
	}
	var out struct {
		Events []eventlog.Entry `json:"events"`
	}
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// Config fetches the full configuration document.
func (c *Client) Config(ctx context.Context) (store.Document, error) {
	var out store.Document
	err := c.getJSON(ctx, "/api/config", &out)
	return out, err
}

// ApplyConfig replaces the configuration document.
func (c *Client) ApplyConfig(ctx context.Context, doc store.Document) error {
	return c.postJSON(ctx, "/api/config", doc, nil)
}

// Automators lists the configured instances.
func (c *Client) Automators(ctx context.Context) ([]store.Automator, error) {
	var out struct {
		Automators []store.Automator `json:"automators"`
	}
	if err := c.getJSON(ctx, "/api/automators", &out); err != nil {
		return nil, err
	}
	return out.Automators, nil
}

// TestResult mirrors GET /api/automator/test.
type TestResult struct {
	AutomatorID string `json:"automator_id"`
	Name        string `json:"name"`
	Connected   bool   `json:"connected"`
	Detail      string `json:"detail"`
}

// TestAutomator probes an instance. Empty id targets the sole enabled one.
func (c *Client) TestAutomator(ctx context.Context, id string) (TestResult, error) {
	var out TestResult
	err := c.getJSON(ctx, "/api/automator/test?automator_id="+id, &out)
	return out, err
}

// RefreshResult mirrors POST /api/automator/refresh.
type RefreshResult struct {
	Status      string    `json:"status"`
	Detail      string    `json:"detail,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
	Items       int       `json:"items"`
}

// RefreshCatalog forces a catalog refresh.
func (c *Client) RefreshCatalog(ctx context.Context, id string) (RefreshResult, error) {
	var out RefreshResult
	err := c.postJSON(ctx, "/api/automator/refresh?automator_id="+id, nil, &out)
	return out, err
}

// Trigger dispatches one item manually.
func (c *Client) Trigger(ctx context.Context, itemID, itemType, automatorID string) (string, error) {
	path := fmt.Sprintf("/api/automator/trigger/%s?item_type=%s&automator_id=%s", itemID, itemType, automatorID)
	var out struct {
		Status string `json:"status"`
		Detail string `json:"detail"`
	}
	if err := c.postJSON(ctx, path, nil, &out); err != nil {
		return "", err
	}
	return out.Detail, nil
}

// CaptureStart claims the capture slot. port zero listens on any port.
func (c *Client) CaptureStart(ctx context.Context, port int) error {
	payload := map[string]int{"port": port}
	return c.postJSON(ctx, "/tcp/capture/start", payload, nil)
}

// CaptureStatus polls the capture slot. A captured trigger is returned
// exactly once.
func (c *Client) CaptureStatus(ctx context.Context) (capture.Result, capture.State, error) {
	var out struct {
		Status  string `json:"status"`
		Trigger string `json:"trigger"`
		Port    int    `json:"port"`
		Source  string `json:"source"`
	}
	if err := c.getJSON(ctx, "/tcp/capture/status", &out); err != nil {
		return capture.Result{}, "", err
	}
	return capture.Result{Trigger: out.Trigger, Port: out.Port, Source: out.Source}, capture.State(out.Status), nil
}

// CaptureCancel releases the capture slot.
func (c *Client) CaptureCancel(ctx context.Context) error {
	return c.postJSON(ctx, "/tcp/capture/cancel", nil, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(data))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil && payload.Error != "" {
			return errors.New(payload.Error)
		}
	}
	if trimmed == "" {
		return errors.New(resp.Status)
	}
	return errors.New(trimmed)
}
