package template

import (
	"fmt"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/serviceops-ai/internal/domain/model"
)

// statusEmoji maps service health to an emoji prefix.
func statusEmoji(status model.HealthStatus) string {
	switch status {
	case model.HealthStatusError:
		return ":red_circle:"
	case model.HealthStatusWarning:
		return ":large_yellow_circle:"
	case model.HealthStatusHealthy:
		return ":large_green_circle:"
	default:
		return ":white_circle:"
	}
}

// BuildStatusBlocks constructs Block Kit blocks summarising a snapshot: a
// health tally followed by one line per service.
func BuildStatusBlocks(snapshot model.MetricsSnapshot) []slackapi.Block {
	if snapshot.IsEmpty() {
		return []slackapi.Block{slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.MarkdownType,
				":grey_question: *No metrics data available.*", false, false),
			nil, nil,
		)}
	}

	counts := map[model.HealthStatus]int{}
	for _, rec := range snapshot.Records {
		for _, svc := range rec.Services {
			counts[svc.Status()]++
		}
	}

	header := slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf(":bar_chart: *Service Status* (%d services)\n%s %d healthy  %s %d warning  %s %d error",
				snapshot.ServiceCount(),
				statusEmoji(model.HealthStatusHealthy), counts[model.HealthStatusHealthy],
				statusEmoji(model.HealthStatusWarning), counts[model.HealthStatusWarning],
				statusEmoji(model.HealthStatusError), counts[model.HealthStatusError]),
			false, false),
		nil, nil,
	)
	blocks := []slackapi.Block{header}

	for _, rec := range snapshot.Records {
		lines := make([]string, 0, len(rec.Services))
		for _, svc := range rec.Services {
			line := fmt.Sprintf("%s *%s*", statusEmoji(svc.Status()), svc.Name)
			if f, ok := svc.PrimaryNumber(); ok {
				line += fmt.Sprintf("  %s: %s", f.Name, f.Value)
			}
			lines = append(lines, line)
		}

		blocks = append(blocks, slackapi.NewDividerBlock())
		if label := recordLabel(rec); label != "" {
			blocks = append(blocks, slackapi.NewContextBlock("",
				slackapi.NewTextBlockObject(slackapi.MarkdownType, label, false, false)))
		}
		blocks = append(blocks, slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.MarkdownType,
				truncate(strings.Join(lines, "\n"), maxSectionText), false, false),
			nil, nil,
		))
	}
	return blocks
}

func recordLabel(rec model.MetricsRecord) string {
	var parts []string
	if rec.Environment != "" {
		parts = append(parts, rec.Environment)
	}
	if rec.Region != "" {
		parts = append(parts, rec.Region)
	}
	if !rec.Timestamp.IsZero() {
		parts = append(parts, rec.Timestamp.UTC().Format("2006-01-02 15:04 MST"))
	}
	return strings.Join(parts, " · ")
}
