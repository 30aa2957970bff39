package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/serviceops-ai/internal/adapter/inbound/slackbot/template"
	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
)

// Config holds Slack sink configuration.
type Config struct {
	BotToken string
	Channel  string
	// APIURL overrides the Slack Web API base URL.
	APIURL string
}

// Sink posts recommendation cards to a Slack channel.
type Sink struct {
	client  *slackapi.Client
	channel string
}

// New creates a new Slack Sink.
func New(cfg Config) (*Sink, error) {
	if cfg.Channel == "" {
		return nil, fmt.Errorf("slack sink channel is required")
	}
	opts := []slackapi.Option{}
	if cfg.APIURL != "" {
		opts = append(opts, slackapi.OptionAPIURL(cfg.APIURL))
	}
	return &Sink{
		client:  slackapi.New(cfg.BotToken, opts...),
		channel: cfg.Channel,
	}, nil
}

var _ outbound.RecommendationSink = (*Sink)(nil)

func (s *Sink) Name() string { return "slack" }

// Deliver posts a Block Kit card with the recommendation as fallback text.
func (s *Sink) Deliver(ctx context.Context, rec model.Recommendation) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slackapi.MsgOptionBlocks(template.BuildRecommendationBlocks(rec)...),
		slackapi.MsgOptionText(rec.Text, false),
	)
	if err != nil {
		return &model.DeliveryError{Sink: s.Name(), Err: fmt.Errorf("posting to %s: %w", s.channel, err)}
	}
	return nil
}
