package notification

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"slices"
	"strings"
)

// Slack rejects section blocks with more than ten fields.
const slackMaxFields = 10

// SlackClient posts to a Slack incoming webhook.
type SlackClient struct {
	webhookURL string
	httpClient *http.Client
}

// NewSlackClient requires cfg.WebhookURL.
func NewSlackClient(cfg Config) (*SlackClient, error) {
	if cfg.WebhookURL == "" {
		return nil, errors.New("slack webhook URL is required")
	}
	return &SlackClient{webhookURL: cfg.WebhookURL, httpClient: newHTTPClient(cfg.Timeout)}, nil
}

// Provider returns "slack".
func (c *SlackClient) Provider() string { return string(ProviderSlack) }

type slackMessage struct {
	Text        string            `json:"text,omitempty"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color,omitempty"`
	Blocks []slackBlock `json:"blocks,omitempty"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Send renders msg as a colored attachment and posts it.
func (c *SlackClient) Send(ctx context.Context, msg Message) (*SendResult, error) {
	body, err := json.Marshal(renderSlack(msg))
	if err != nil {
		return nil, err
	}
	return deliver(ctx, c.httpClient, c.webhookURL, body, nil)
}

func renderSlack(msg Message) slackMessage {
	var blocks []slackBlock
	if msg.Title != "" {
		blocks = append(blocks, slackBlock{Type: "header", Text: &slackText{Type: "plain_text", Text: msg.Title}})
	}
	if msg.Body != "" {
		blocks = append(blocks, slackBlock{Type: "section", Text: mrkdwn(slackEscape(msg.Body))})
	}

	keys := slices.Sorted(maps.Keys(msg.Fields))
	for chunk := range slices.Chunk(keys, slackMaxFields) {
		fields := make([]slackText, len(chunk))
		for i, k := range chunk {
			fields[i] = *mrkdwn("*" + slackEscape(k) + ":*\n" + slackEscape(msg.Fields[k]))
		}
		blocks = append(blocks, slackBlock{Type: "section", Fields: fields})
	}

	return slackMessage{
		Text:        msg.Title,
		Attachments: []slackAttachment{{Color: SeverityColor(msg.Severity), Blocks: blocks}},
	}
}

func mrkdwn(s string) *slackText {
	return &slackText{Type: "mrkdwn", Text: s}
}

// slackEscaper escapes the characters Slack treats as control sequences
// in mrkdwn text. Finding titles often contain them.
var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func slackEscape(s string) string { return slackEscaper.Replace(s) }
