package notification

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// SignatureHeader carries "sha256=" plus the hex HMAC-SHA256 of the body.
const SignatureHeader = "X-Scanledger-Signature"

// TimestampHeader repeats the payload timestamp so receivers can reject
// replays without parsing the body.
const TimestampHeader = "X-Scanledger-Timestamp"

const defaultKind = "notification"

// WebhookClient posts JSON payloads to an arbitrary HTTPS endpoint,
// signing them when a secret is configured.
type WebhookClient struct {
	webhookURL string
	secret     []byte
	httpClient *http.Client
	now        func() time.Time
}

// NewWebhookClient requires cfg.WebhookURL.
func NewWebhookClient(cfg Config) (*WebhookClient, error) {
	if cfg.WebhookURL == "" {
		return nil, errors.New("webhook URL is required")
	}
	return &WebhookClient{
		webhookURL: cfg.WebhookURL,
		secret:     []byte(cfg.Secret),
		httpClient: newHTTPClient(cfg.Timeout),
		now:        time.Now,
	}, nil
}

// Provider returns "webhook".
func (c *WebhookClient) Provider() string { return string(ProviderWebhook) }

// WebhookPayload is the body receivers get.
type WebhookPayload struct {
	EventType string            `json:"event_type"`
	Timestamp string            `json:"timestamp"`
	Source    string            `json:"source"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Severity  string            `json:"severity,omitempty"`
	Color     string            `json:"color,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Send posts msg, signed when a secret is set.
func (c *WebhookClient) Send(ctx context.Context, msg Message) (*SendResult, error) {
	payload := c.payload(msg)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set(TimestampHeader, payload.Timestamp)
	if len(c.secret) > 0 {
		header.Set(SignatureHeader, sign(c.secret, body))
	}
	return deliver(ctx, c.httpClient, c.webhookURL, body, header)
}

func (c *WebhookClient) payload(msg Message) WebhookPayload {
	p := WebhookPayload{
		EventType: msg.Kind,
		Timestamp: c.now().UTC().Format(time.RFC3339),
		Source:    "scanledger",
		Title:     msg.Title,
		Body:      msg.Body,
		Severity:  msg.Severity,
		Fields:    msg.Fields,
	}
	if p.EventType == "" {
		p.EventType = defaultKind
	}
	if msg.Severity != "" {
		p.Color = SeverityColor(msg.Severity)
	}
	return p
}

// Sign returns the SignatureHeader value for body under secret.
func Sign(secret string, body []byte) string {
	return sign([]byte(secret), body)
}

func sign(key, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the valid SignatureHeader for body.
func Verify(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}
