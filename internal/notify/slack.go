package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// SlackTransport posts messages to a Slack channel via a bot token,
// using the narrow client.PostMessage surface and nothing else.
type SlackTransport struct {
	client  *slack.Client
	channel string
}

// NewSlackTransport builds a transport bound to one channel. token and
// channel are the recognized SLACK_TOKEN/SLACK_CHANNEL config keys.
func NewSlackTransport(token, channel string) *SlackTransport {
	return &SlackTransport{client: slack.New(token), channel: channel}
}

// Send posts msg to the configured channel: an attachment when a URL
// is present (so the title links through), plain text otherwise.
func (s *SlackTransport) Send(ctx context.Context, msg Message) error {
	var opts []slack.MsgOption
	if msg.URL != "" {
		opts = append(opts, slack.MsgOptionAttachments(slack.Attachment{
			Title:     msg.Title,
			TitleLink: msg.URL,
			Text:      msg.Body,
		}))
	} else {
		text := msg.Title
		if msg.Body != "" {
			text = fmt.Sprintf("%s\n%s", msg.Title, msg.Body)
		}
		opts = append(opts, slack.MsgOptionText(text, false))
	}

	_, _, err := s.client.PostMessageContext(ctx, s.channel, opts...)
	if err != nil {
		return fmt.Errorf("slack: failed to post message: %w", err)
	}
	return nil
}
