package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	goslack "github.com/slack-go/slack"
)

// RichBlockChannel posts Payloads as Slack Block Kit messages to an
// incoming webhook URL.
type RichBlockChannel struct {
	httpClient *http.Client
	webhookURL string
}

// NewRichBlockChannel creates a RichBlockChannel posting to webhookURL.
func NewRichBlockChannel(webhookURL string) *RichBlockChannel {
	return &RichBlockChannel{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

// Name identifies this channel.
func (RichBlockChannel) Name() string { return "rich-block" }

// Send posts p as Block Kit blocks to the configured webhook.
func (c *RichBlockChannel) Send(ctx context.Context, p Payload) error {
	msg := goslack.WebhookMessage{
		Text:   fmt.Sprintf("%s %s (risk %d)", severityEmoji(p.Severity), p.Title, p.RiskScore),
		Blocks: &goslack.Blocks{BlockSet: richBlocks(p)},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling rich-block payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building rich-block request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting rich-block webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("rich-block webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func richBlocks(p Payload) []goslack.Block {
	header := goslack.NewHeaderBlock(
		goslack.NewTextBlockObject(goslack.PlainTextType,
			fmt.Sprintf("%s %s", severityEmoji(p.Severity), p.Title), true, false),
	)

	fields := []*goslack.TextBlockObject{
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*Severity:* %s", p.Severity), false, false),
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*Risk score:* %d/100", p.RiskScore), false, false),
	}
	if p.FrameworkContext != "" {
		fields = append(fields, goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*Technique:* %s", p.FrameworkContext), false, false))
	}

	blocks := []goslack.Block{header, goslack.NewSectionBlock(nil, fields, nil)}

	for k, v := range p.Details {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*%s:* %s", k, v), false, false),
			nil, nil,
		))
	}

	if len(p.ActionButtons) > 0 {
		var elems []goslack.BlockElement
		for _, a := range p.ActionButtons {
			text := goslack.NewTextBlockObject(goslack.PlainTextType, a.Label, true, false)
			if actionID, value, ok := guardActionFromURL(a.URL); ok {
				elems = append(elems, goslack.NewButtonBlockElement(actionID, value, text))
				continue
			}
			btn := goslack.NewButtonBlockElement(a.Label, a.Label, text)
			btn.URL = a.URL
			elems = append(elems, btn)
		}
		blocks = append(blocks, goslack.NewActionBlock("sentinyl_actions", elems...))
	}

	return blocks
}

// guardActionFromURL recognizes a guard-response action link (built by
// pkg/worker's notification payloads) and converts it into a Slack block
// action id and value, so clicking the button fires the interactions
// webhook instead of opening a plain link — pkg/slack's handler then
// records the operator verdict directly.
func guardActionFromURL(rawURL string) (actionID, value string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", false
	}
	eventID := u.Query().Get("event_id")
	response := u.Query().Get("response")
	if eventID == "" || (response != "safe" && response != "block") {
		return "", "", false
	}
	return "guard_" + response, eventID, true
}

func severityEmoji(severity string) string {
	switch severity {
	case "critical":
		return "🔴"
	case "high":
		return "🟠"
	case "medium":
		return "🟡"
	default:
		return "⚪"
	}
}
