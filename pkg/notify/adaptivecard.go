package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// AdaptiveCardChannel posts Payloads as Microsoft Teams-style adaptive
// cards to an incoming webhook URL.
type AdaptiveCardChannel struct {
	httpClient *http.Client
	webhookURL string
}

// NewAdaptiveCardChannel creates an AdaptiveCardChannel posting to
// webhookURL.
func NewAdaptiveCardChannel(webhookURL string) *AdaptiveCardChannel {
	return &AdaptiveCardChannel{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

// Name identifies this channel.
func (AdaptiveCardChannel) Name() string { return "adaptive-card" }

type adaptiveCardEnvelope struct {
	Type        string        `json:"type"`
	Attachments []cardAttach  `json:"attachments"`
}

type cardAttach struct {
	ContentType string   `json:"contentType"`
	Content     cardBody `json:"content"`
}

type cardBody struct {
	Schema  string      `json:"$schema"`
	Type    string       `json:"type"`
	Version string       `json:"version"`
	Body    []cardElement `json:"body"`
	Actions []cardAction `json:"actions,omitempty"`
}

type cardElement struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Size   string `json:"size,omitempty"`
	Weight string `json:"weight,omitempty"`
	Wrap   bool   `json:"wrap,omitempty"`
}

type cardAction struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Send posts p as an adaptive card to the configured webhook.
func (c *AdaptiveCardChannel) Send(ctx context.Context, p Payload) error {
	body := cardBody{
		Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
		Type:    "AdaptiveCard",
		Version: "1.4",
		Body: []cardElement{
			{Type: "TextBlock", Text: p.Title, Size: "Large", Weight: "Bolder", Wrap: true},
			{Type: "TextBlock", Text: fmt.Sprintf("Severity: %s · Risk score: %d/100", p.Severity, p.RiskScore), Wrap: true},
		},
	}
	if p.FrameworkContext != "" {
		body.Body = append(body.Body, cardElement{Type: "TextBlock", Text: "Technique: " + p.FrameworkContext, Wrap: true})
	}
	for k, v := range p.Details {
		body.Body = append(body.Body, cardElement{Type: "TextBlock", Text: fmt.Sprintf("%s: %s", k, v), Wrap: true})
	}
	for _, a := range p.ActionButtons {
		body.Actions = append(body.Actions, cardAction{Type: "Action.OpenUrl", Title: a.Label, URL: a.URL})
	}

	envelope := adaptiveCardEnvelope{
		Type: "message",
		Attachments: []cardAttach{
			{ContentType: "application/vnd.microsoft.card.adaptive", Content: body},
		},
	}

	encoded, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshalling adaptive card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("building adaptive-card request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting adaptive-card webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("adaptive-card webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
