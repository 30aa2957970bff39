package model

import "time"

// Recommendation is the text result of one analysis. Failed marks the
// placeholder text produced when the LLM call did not succeed.
type Recommendation struct {
	ID        string    `json:"id"`
	Text      string    `json:"recommendation"`
	Failed    bool      `json:"failed"`
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`
	LatencyMs int64     `json:"latency_ms,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewRecommendation(text string, failed bool) Recommendation {
	return Recommendation{
		ID:        generateID(),
		Text:      text,
		Failed:    failed,
		CreatedAt: time.Now().UTC(),
	}
}

func (r Recommendation) WithProvenance(provider, model string, latencyMs int64) Recommendation {
	r.Provider = provider
	r.Model = model
	r.LatencyMs = latencyMs
	return r
}
