package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"dementor/internal/model"
)

// SlackNotifier posts the run summary to a Slack channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier creates a notifier for the given bot token and channel.
// Extra options are passed through to the Slack client, which lets tests
// point it at a local server.
func NewSlackNotifier(token, channel string, opts ...slack.Option) (*SlackNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("slack token is not configured")
	}
	if channel == "" {
		return nil, fmt.Errorf("slack channel is not configured")
	}
	return &SlackNotifier{
		client:  slack.New(token, opts...),
		channel: channel,
	}, nil
}

func (s *SlackNotifier) NotifyRun(ctx context.Context, run model.RunResult) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(Summarize(run), false))
	if err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	return nil
}
