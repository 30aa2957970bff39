package slackbot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/jonny/serviceops-ai/internal/adapter/inbound/slackbot/template"
	"github.com/jonny/serviceops-ai/internal/domain/model"
)

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

// handleEventsAPI processes Slack Events API payloads (mentions and DMs).
func (b *Bot) handleEventsAPI(ctx context.Context, evt socketmode.Event) {
	b.socketMode.Ack(*evt.Request)

	eventsPayload, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}

	switch ev := eventsPayload.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		b.reply(ctx, ev.Channel, threadOf(ev.ThreadTimeStamp, ev.TimeStamp), ev.Text)
	case *slackevents.MessageEvent:
		if !isDirectMessage(ev) {
			return
		}
		b.reply(ctx, ev.Channel, ev.ThreadTimeStamp, ev.Text)
	}
}

// reply routes the message text to the agent and posts the answer.
func (b *Bot) reply(ctx context.Context, channel, threadTS, text string) {
	message := cleanMessage(text)
	if message == "" {
		return
	}

	answer := b.agent.Chat(ctx, message)

	opts := []slackapi.MsgOption{slackapi.MsgOptionText(answer, false)}
	if threadTS != "" {
		opts = append(opts, slackapi.MsgOptionTS(threadTS))
	}
	if _, _, err := b.client.PostMessageContext(ctx, channel, opts...); err != nil {
		b.logger.Error("posting chat reply failed", "channel", channel, "error", err)
	}
}

// handleSlashCommand processes /serviceops slash commands. Recommendations
// can outlast Slack's acknowledgement window, so they are acked first and
// posted to the channel when ready.
func (b *Bot) handleSlashCommand(ctx context.Context, evt socketmode.Event) {
	cmd, ok := evt.Data.(slackapi.SlashCommand)
	if !ok {
		b.socketMode.Ack(*evt.Request)
		return
	}

	switch strings.TrimSpace(strings.ToLower(cmd.Text)) {
	case "recommend":
		b.socketMode.Ack(*evt.Request, map[string]string{
			"text": ":hourglass_flowing_sand: Analysing current metrics...",
		})
		blocks, text := b.recommendBlocks(ctx)
		_, _, err := b.client.PostMessageContext(ctx, cmd.ChannelID,
			slackapi.MsgOptionBlocks(blocks...),
			slackapi.MsgOptionText(text, false),
		)
		if err != nil {
			b.logger.Error("posting recommendation failed", "channel", cmd.ChannelID, "error", err)
		}
		return
	}

	blocks, text := b.commandResponse(ctx, cmd.Text)
	payload := map[string]any{"text": text}
	if len(blocks) > 0 {
		payload["blocks"] = blocks
	}
	b.socketMode.Ack(*evt.Request, payload)
}

// commandResponse builds the synchronous reply for a slash command.
func (b *Bot) commandResponse(ctx context.Context, text string) ([]slackapi.Block, string) {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case "status":
		snapshot, err := b.agent.Metrics(ctx)
		if err != nil {
			b.logger.Warn("status command: metrics unavailable", "error", err)
			return nil, ":x: Metrics are currently unavailable."
		}
		return template.BuildStatusBlocks(snapshot), fmt.Sprintf("%d services monitored", snapshot.ServiceCount())
	case "", "help":
		return nil, buildHelpText()
	default:
		sanitized := text
		if len(sanitized) > 100 {
			sanitized = sanitized[:100]
		}
		sanitized = strings.ReplaceAll(sanitized, "`", "'")
		return nil, fmt.Sprintf(":question: Unknown command `%s`. Try `/serviceops help`.", sanitized)
	}
}

func (b *Bot) recommendBlocks(ctx context.Context) ([]slackapi.Block, string) {
	rec, err := b.agent.Recommend(ctx)
	switch {
	case errors.Is(err, model.ErrNoData):
		return template.BuildStatusBlocks(model.MetricsSnapshot{}), "No metrics data available."
	case err != nil:
		b.logger.Error("recommend command failed", "error", err)
		text := ":x: Could not produce a recommendation."
		return []slackapi.Block{slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.MarkdownType, text, false, false), nil, nil)}, text
	}
	return template.BuildRecommendationBlocks(rec), rec.Text
}

func isDirectMessage(ev *slackevents.MessageEvent) bool {
	// Ignore bot messages to prevent loops.
	if ev.BotID != "" || ev.SubType != "" {
		return false
	}
	return ev.ChannelType == "im"
}

func threadOf(threadTS, ts string) string {
	if threadTS != "" {
		return threadTS
	}
	return ts
}

// cleanMessage strips user mentions and surrounding whitespace.
func cleanMessage(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

// buildHelpText returns the help message for the /serviceops slash command.
func buildHelpText() string {
	return strings.Join([]string{
		":robot_face: *ServiceOps AI Commands*",
		"",
		"*Slash Commands:*",
		"• `/serviceops status` - Current service health",
		"• `/serviceops recommend` - Analyse metrics now",
		"• `/serviceops help` - Show this help message",
		"",
		"*Chat:*",
		"• Mention the bot or send it a direct message to ask about your services",
	}, "\n")
}
