package httpsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
	"github.com/jonny/serviceops-ai/pkg/version"
)

// Path is appended to the configured API URL.
const Path = "/api/recommendation"

// Config configures the sink. A non-empty Token is sent as a bearer token.
type Config struct {
	APIURL  string
	Token   string
	Timeout time.Duration
}

// Sink POSTs {"recommendation": text} to {APIURL}/api/recommendation.
type Sink struct {
	url        string
	token      string
	httpClient *http.Client
}

func New(cfg Config) (*Sink, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("http sink API URL is required")
	}
	return &Sink{
		url:        strings.TrimRight(cfg.APIURL, "/") + Path,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

var _ outbound.RecommendationSink = (*Sink)(nil)

func (s *Sink) Name() string { return "http" }

type payload struct {
	Recommendation string `json:"recommendation"`
}

// Deliver sends one request. Any non-2xx status is a DeliveryError.
func (s *Sink) Deliver(ctx context.Context, rec model.Recommendation) error {
	body, err := json.Marshal(payload{Recommendation: rec.Text})
	if err != nil {
		return s.fail(fmt.Errorf("encoding payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return s.fail(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Recommendation-ID", rec.ID)
	req.Header.Set("User-Agent", version.UserAgent())
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return s.fail(fmt.Errorf("posting to %s: %w", s.url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return s.fail(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	return nil
}

func (s *Sink) fail(err error) error {
	return &model.DeliveryError{Sink: s.Name(), Err: err}
}
