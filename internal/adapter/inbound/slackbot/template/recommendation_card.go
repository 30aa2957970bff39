package template

import (
	"fmt"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/serviceops-ai/internal/domain/model"
)

// Slack rejects section text longer than 3000 characters.
const maxSectionText = 3000

// BuildRecommendationBlocks constructs Block Kit blocks for a recommendation.
func BuildRecommendationBlocks(rec model.Recommendation) []slackapi.Block {
	title := ":bulb: *ServiceOps AI Recommendation*"
	if rec.Failed {
		title = ":warning: *Recommendation unavailable*"
	}
	header := slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType, title, false, false),
		nil, nil,
	)

	body := slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType, truncate(rec.Text, maxSectionText), false, false),
		nil, nil,
	)

	blocks := []slackapi.Block{header, slackapi.NewDividerBlock(), body}

	var fields []*slackapi.TextBlockObject
	if rec.Provider != "" {
		fields = append(fields, slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*Model*\n%s/%s", rec.Provider, rec.Model), false, false))
	}
	if rec.LatencyMs > 0 {
		fields = append(fields, slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*Latency*\n%dms", rec.LatencyMs), false, false))
	}
	if len(fields) > 0 {
		blocks = append(blocks, slackapi.NewSectionBlock(nil, fields, nil))
	}

	blocks = append(blocks, slackapi.NewContextBlock("",
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("`%s` generated %s", rec.ID, rec.CreatedAt.UTC().Format(time.RFC3339)), false, false),
	))
	return blocks
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
