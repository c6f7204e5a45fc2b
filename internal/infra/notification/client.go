// Package notification forwards in-app notifications (SLA breaches,
// finished batches, assignments) to Slack or a signed generic webhook.
package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is the provider neutral form of an outbound notification.
type Message struct {
	Kind     string // event type, e.g. "sla_breach"; defaults to "notification"
	Title    string
	Body     string
	Severity string            // finding severity, drives the accent color
	Fields   map[string]string // rendered as key/value pairs
}

// SendResult reports how the receiving endpoint answered.
type SendResult struct {
	Success    bool
	StatusCode int
	Error      string
}

// Client delivers messages to one provider.
type Client interface {
	// Send reports transport failures and non-2xx answers in the result.
	// The error is reserved for messages that cannot be encoded.
	Send(ctx context.Context, msg Message) (*SendResult, error)
	Provider() string
}

// Provider names a notification backend.
type Provider string

const (
	ProviderSlack   Provider = "slack"
	ProviderWebhook Provider = "webhook"
)

// Config selects and configures a provider.
type Config struct {
	Provider   Provider
	WebhookURL string
	// Secret signs generic webhook payloads. Empty disables signing.
	Secret  string
	Timeout time.Duration
}

// Finding severities understood by SeverityColor.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

var severityColors = map[string]string{
	SeverityCritical: "#dc2626",
	SeverityHigh:     "#ea580c",
	SeverityMedium:   "#ca8a04",
	SeverityLow:      "#2563eb",
}

const neutralColor = "#6b7280"

// SeverityColor returns the hex accent for severity, gray when unknown.
func SeverityColor(severity string) string {
	if c, ok := severityColors[severity]; ok {
		return c
	}
	return neutralColor
}

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "scanledger-notification/1.0"

	// errorBodyLimit caps how much of a failed response ends up in SendResult.
	errorBodyLimit = 512
)

// NewClient builds the client for cfg.Provider. An empty provider means
// the generic webhook.
func NewClient(cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderSlack:
		return NewSlackClient(cfg)
	case ProviderWebhook, "":
		return NewWebhookClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported notification provider: %q", cfg.Provider)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// deliver POSTs a JSON body and folds the outcome into a SendResult.
func deliver(ctx context.Context, hc *http.Client, url string, body []byte, header http.Header) (*SendResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range header {
		req.Header[k] = vs
	}

	resp, err := hc.Do(req)
	if err != nil {
		return &SendResult{Error: fmt.Sprintf("send request: %v", err)}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return &SendResult{Success: true, StatusCode: resp.StatusCode}, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return &SendResult{
		StatusCode: resp.StatusCode,
		Error:      fmt.Sprintf("endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)),
	}, nil
}
