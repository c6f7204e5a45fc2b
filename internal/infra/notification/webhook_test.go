package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookClient_Send(t *testing.T) {
	var (
		gotBody      []byte
		gotSignature string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewWebhookClient(Config{WebhookURL: srv.URL, Secret: "s3cr3t"})
	require.NoError(t, err)
	client.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	result, err := client.Send(context.Background(), Message{
		Kind:     "batch_completed",
		Title:    "Scan batch ingested",
		Body:     "3 findings",
		Severity: SeverityHigh,
		Fields:   map[string]string{"batch": "nightly"},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, http.StatusAccepted, result.StatusCode)

	var payload WebhookPayload
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "Scan batch ingested", payload.Title)
	assert.Equal(t, "2026-03-01T12:00:00Z", payload.Timestamp)
	assert.Equal(t, "batch_completed", payload.EventType)
	assert.Equal(t, SeverityColor(SeverityHigh), payload.Color)
	assert.Equal(t, "nightly", payload.Fields["batch"])
	assert.Equal(t, Sign("s3cr3t", gotBody), gotSignature)
	assert.True(t, Verify("s3cr3t", gotBody, gotSignature))
	assert.False(t, Verify("other", gotBody, gotSignature))
}

func TestWebhookClient_SendUnsigned(t *testing.T) {
	var gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(SignatureHeader)
	}))
	defer srv.Close()

	client, err := NewWebhookClient(Config{WebhookURL: srv.URL})
	require.NoError(t, err)

	result, err := client.Send(context.Background(), Message{Title: "t"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, gotSignature)
}

func TestWebhookClient_SendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewWebhookClient(Config{WebhookURL: srv.URL})
	require.NoError(t, err)

	result, err := client.Send(context.Background(), Message{Title: "t"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, http.StatusBadGateway, result.StatusCode)
	assert.Contains(t, result.Error, "boom")
}

func TestSlackClient_Send(t *testing.T) {
	var msg slackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&msg)
	}))
	defer srv.Close()

	client, err := NewClient(Config{Provider: ProviderSlack, WebhookURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "slack", client.Provider())

	result, err := client.Send(context.Background(), Message{
		Title:  "SLA breaches",
		Body:   "2 findings breached",
		Fields: map[string]string{"b": "2", "a": "1"},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	require.Len(t, msg.Attachments, 1)
	blocks := msg.Attachments[0].Blocks
	require.Len(t, blocks, 3)
	assert.Equal(t, "header", blocks[0].Type)
	require.Len(t, blocks[2].Fields, 2)
	assert.Contains(t, blocks[2].Fields[0].Text, "*a:*")
}

func TestRenderSlack(t *testing.T) {
	fields := make(map[string]string, 12)
	for i := range 12 {
		fields[fmt.Sprintf("k%02d", i)] = "v"
	}

	msg := renderSlack(Message{
		Body:     "TLS <1.2> & weak ciphers",
		Severity: SeverityCritical,
		Fields:   fields,
	})

	blocks := msg.Attachments[0].Blocks
	require.Len(t, blocks, 3)
	assert.Equal(t, "TLS &lt;1.2&gt; &amp; weak ciphers", blocks[0].Text.Text)
	assert.Len(t, blocks[1].Fields, 10)
	assert.Len(t, blocks[2].Fields, 2)
	assert.Equal(t, SeverityColor(SeverityCritical), msg.Attachments[0].Color)
	assert.Equal(t, neutralColor, SeverityColor("info"))
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{Provider: "pagerduty", WebhookURL: "http://x"})
	assert.Error(t, err)

	_, err = NewClient(Config{Provider: ProviderWebhook})
	assert.Error(t, err)

	c, err := NewClient(Config{WebhookURL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, "webhook", c.Provider())
}
