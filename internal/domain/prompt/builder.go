package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/jonny/serviceops-ai/internal/domain/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// NoMetricsDigest replaces the digest when the provider has nothing to report.
const NoMetricsDigest = "No metrics data available."

// Builder constructs prompts for recommendations and chat.
type Builder struct {
	templates *template.Template
}

// NewBuilder parses all embedded templates and returns a Builder.
func NewBuilder() (*Builder, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &Builder{templates: tmpl}, nil
}

// RecommendationInput holds data for the recommendation prompt template.
type RecommendationInput struct {
	Metrics string
}

// ChatSystemInput holds data for the chat system turn.
type ChatSystemInput struct {
	ServiceCount int
	Digest       string
}

// Persona renders the fixed agent role description.
func (b *Builder) Persona() (string, error) {
	return b.execute("persona", nil)
}

// BuildRecommendationPrompt embeds the serialised snapshot between delimiters
// and appends the analysis instructions.
func (b *Builder) BuildRecommendationPrompt(snapshot model.MetricsSnapshot) (string, error) {
	body, err := snapshot.MarshalIndent()
	if err != nil {
		return "", fmt.Errorf("serialising metrics: %w", err)
	}
	return b.execute("recommendation.tmpl", RecommendationInput{Metrics: body})
}

// BuildChatSystemPrompt renders persona, operating protocol and the live
// metrics digest.
func (b *Builder) BuildChatSystemPrompt(snapshot model.MetricsSnapshot) (string, error) {
	input := ChatSystemInput{
		ServiceCount: snapshot.ServiceCount(),
		Digest:       Digest(snapshot),
	}
	return b.execute("chat_system.tmpl", input)
}

func (b *Builder) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := b.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Digest summarises a snapshot as one "<service> - <metric>: <value>" line per
// service, using the first numeric non-status metric in key order. Services
// without a numeric metric are left out.
func Digest(snapshot model.MetricsSnapshot) string {
	if snapshot.IsEmpty() {
		return NoMetricsDigest
	}
	var lines []string
	for _, rec := range snapshot.Records {
		for _, svc := range rec.Services {
			f, ok := svc.PrimaryNumber()
			if !ok {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s - %s: %s", svc.Name, f.Name, f.Value))
		}
	}
	return strings.Join(lines, "\n")
}
