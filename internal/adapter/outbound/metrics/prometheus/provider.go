package prometheus

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	prommodel "github.com/prometheus/common/model"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
)

// MetricQuery maps one PromQL expression to a named service metric. A
// breached threshold marks the service warning or error.
type MetricQuery struct {
	Name       string
	Query      string
	WarnAbove  *float64
	ErrorAbove *float64
}

type ServiceQuery struct {
	Name    string
	Metrics []MetricQuery
}

type Config struct {
	URL         string
	Environment string
	Region      string
	Timeout     time.Duration
	Services    []ServiceQuery
}

// Provider builds a snapshot by evaluating instant queries per service.
type Provider struct {
	client v1.API
	config Config
	now    func() time.Time
}

func NewProvider(cfg Config) (*Provider, error) {
	client, err := api.NewClient(api.Config{
		Address: cfg.URL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	return &Provider{
		client: v1.NewAPI(client),
		config: cfg,
		now:    time.Now,
	}, nil
}

var _ outbound.MetricsProvider = (*Provider)(nil)

func (p *Provider) Name() string { return "prometheus" }

// Get implements outbound.MetricsProvider. Queries that return no samples are
// left out; when no query returns data the snapshot is empty.
func (p *Provider) Get(ctx context.Context) (model.MetricsSnapshot, error) {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	now := p.now().UTC()
	rec := model.MetricsRecord{
		Timestamp:   now.Truncate(time.Second),
		Environment: p.config.Environment,
		Region:      p.config.Region,
	}

	for _, sq := range p.config.Services {
		svc, err := p.collect(ctx, sq, now)
		if err != nil {
			return model.MetricsSnapshot{}, fmt.Errorf("service %s: %w", sq.Name, err)
		}
		if len(svc.Fields) == 0 {
			continue
		}
		rec.Services = append(rec.Services, svc)
	}

	if len(rec.Services) == 0 {
		return model.MetricsSnapshot{}, nil
	}
	return model.MetricsSnapshot{Records: []model.MetricsRecord{rec}}, nil
}

// HealthCheck evaluates "up" to verify Prometheus is reachable.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if _, _, err := p.client.Query(ctx, "up", p.now()); err != nil {
		return fmt.Errorf("prometheus health check failed: %w", err)
	}
	return nil
}

func (p *Provider) collect(ctx context.Context, sq ServiceQuery, now time.Time) (model.ServiceMetric, error) {
	svc := model.ServiceMetric{Name: sq.Name}
	status := model.HealthStatusHealthy

	for _, mq := range sq.Metrics {
		value, found, warnings, err := p.querySingle(ctx, mq.Query, now)
		if err != nil {
			return svc, fmt.Errorf("%s query failed: %w", mq.Name, err)
		}
		for _, w := range warnings {
			svc.Logs = append(svc.Logs, model.LogEntry{
				Level:     model.LogLevelWarning,
				Timestamp: now,
				Message:   fmt.Sprintf("prometheus warning for %s: %s", mq.Name, w),
			})
		}
		if !found {
			continue
		}
		svc.Fields = append(svc.Fields, model.MetricField{Name: mq.Name, Value: model.NumberValue(value)})

		switch {
		case mq.ErrorAbove != nil && value > *mq.ErrorAbove:
			status = model.HealthStatusError
			svc.Logs = append(svc.Logs, breach(model.LogLevelError, mq.Name, value, *mq.ErrorAbove, now))
		case mq.WarnAbove != nil && value > *mq.WarnAbove:
			if status != model.HealthStatusError {
				status = model.HealthStatusWarning
			}
			svc.Logs = append(svc.Logs, breach(model.LogLevelWarning, mq.Name, value, *mq.WarnAbove, now))
		}
	}

	if len(svc.Fields) > 0 {
		svc.Fields = append(svc.Fields, model.MetricField{Name: "status", Value: model.StatusValue(status)})
	}
	return svc, nil
}

// querySingle sums the instant vector. found is false when the query matched
// no series.
func (p *Provider) querySingle(ctx context.Context, query string, ts time.Time) (float64, bool, v1.Warnings, error) {
	result, warnings, err := p.client.Query(ctx, query, ts)
	if err != nil {
		return 0, false, warnings, err
	}

	switch v := result.(type) {
	case nil:
		return 0, false, warnings, nil
	case prommodel.Vector:
		if len(v) == 0 {
			return 0, false, warnings, nil
		}
		sum := 0.0
		for _, sample := range v {
			sum += float64(sample.Value)
		}
		if math.IsNaN(sum) || math.IsInf(sum, 0) {
			return 0, false, warnings, nil
		}
		return sum, true, warnings, nil
	case *prommodel.Scalar:
		f := float64(v.Value)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false, warnings, nil
		}
		return f, true, warnings, nil
	default:
		return 0, false, warnings, fmt.Errorf("unsupported result type %s", result.Type())
	}
}

func breach(level model.LogLevel, metric string, value, threshold float64, ts time.Time) model.LogEntry {
	return model.LogEntry{
		Level:     level,
		Timestamp: ts,
		Message: fmt.Sprintf("%s at %s is above the %s threshold of %s",
			metric, model.FormatNumber(value), level, model.FormatNumber(threshold)),
	}
}
