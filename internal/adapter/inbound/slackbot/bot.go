package slackbot

import (
	"context"
	"log/slog"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/jonny/serviceops-ai/internal/domain/port/inbound"
)

// Config holds Slack bot configuration.
type Config struct {
	BotToken string
	AppToken string
}

// Bot answers direct messages and mentions through the agent's chat and
// serves the /serviceops slash command, all via Socket Mode.
type Bot struct {
	client     *slackapi.Client
	socketMode *socketmode.Client
	agent      inbound.AgentPort
	logger     *slog.Logger
}

// NewBot creates a new Bot with Socket Mode enabled.
func NewBot(cfg Config, agent inbound.AgentPort, logger *slog.Logger) *Bot {
	client := slackapi.New(cfg.BotToken, slackapi.OptionAppLevelToken(cfg.AppToken))
	sm := socketmode.New(client)
	return &Bot{
		client:     client,
		socketMode: sm,
		agent:      agent,
		logger:     logger,
	}
}

// Start begins processing Slack events. It blocks until ctx is cancelled,
// which is a clean shutdown.
func (b *Bot) Start(ctx context.Context) error {
	go b.handleEvents(ctx)
	err := b.socketMode.RunContext(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// handleEvents dispatches incoming Socket Mode events to the appropriate handler.
func (b *Bot) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-b.socketMode.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeConnecting:
				b.logger.Debug("connecting to slack")
			case socketmode.EventTypeConnected:
				b.logger.Info("connected to slack")
			case socketmode.EventTypeConnectionError:
				b.logger.Warn("slack connection failed, retrying", "data", evt.Data)
			case socketmode.EventTypeEventsAPI:
				b.handleEventsAPI(ctx, evt)
			case socketmode.EventTypeSlashCommand:
				b.handleSlashCommand(ctx, evt)
			default:
				if evt.Request != nil {
					b.socketMode.Ack(*evt.Request)
				}
			}
		}
	}
}
