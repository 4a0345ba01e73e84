package slack

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"
)

// Notifier posts ephemeral confirmations back to a user's Slack client.
// Fan-out of the guard alert itself is pkg/notify's RichBlockChannel;
// this notifier only handles the interaction-callback reply.
type Notifier struct {
	client *goslack.Client
	logger *slog.Logger
}

// NewNotifier creates a Notifier. If botToken is empty, the notifier is a
// noop (logging only) — convenient for installs that only wire the
// outbound webhook and skip interactive replies.
func NewNotifier(botToken string, logger *slog.Logger) *Notifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &Notifier{client: client, logger: logger}
}

// IsEnabled reports whether the notifier has a usable Slack client.
func (n *Notifier) IsEnabled() bool {
	return n.client != nil
}

// PostEphemeral posts a message visible only to userID in channelID.
func (n *Notifier) PostEphemeral(ctx context.Context, channelID, userID, text string) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping ephemeral message", "text", text)
		return nil
	}
	_, err := n.client.PostEphemeralContext(ctx, channelID, userID, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting ephemeral message: %w", err)
	}
	return nil
}
