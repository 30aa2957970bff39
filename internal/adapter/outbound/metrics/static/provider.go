package static

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
)

//go:embed sample.yaml
var sampleSnapshot []byte

// Provider serves a snapshot from a YAML or JSON file, or the built-in
// sample when no path is set. The file is re-read on every call.
type Provider struct {
	path string
}

func NewProvider(path string) *Provider {
	return &Provider{path: path}
}

var _ outbound.MetricsProvider = (*Provider)(nil)

func (p *Provider) Name() string {
	if p.path == "" {
		return "static:sample"
	}
	return "static:" + p.path
}

// Get implements outbound.MetricsProvider.
func (p *Provider) Get(ctx context.Context) (model.MetricsSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.MetricsSnapshot{}, err
	}

	data := sampleSnapshot
	if p.path != "" {
		raw, err := os.ReadFile(p.path)
		if err != nil {
			return model.MetricsSnapshot{}, fmt.Errorf("reading metrics file: %w", err)
		}
		data = raw
	}

	var snapshot model.MetricsSnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return model.MetricsSnapshot{}, fmt.Errorf("parsing metrics file: %w", err)
	}
	return snapshot, nil
}
