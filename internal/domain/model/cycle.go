package model

import "time"

type CycleOutcome string

const (
	CycleOutcomeDelivered CycleOutcome = "delivered"
	CycleOutcomeSkipped   CycleOutcome = "skipped"
	CycleOutcomeFailed    CycleOutcome = "failed"
)

// CycleReport summarises one polling cycle.
type CycleReport struct {
	ID               string        `json:"id"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
	Outcome          CycleOutcome  `json:"outcome"`
	RecommendationID string        `json:"recommendation_id,omitempty"`
	Detail           string        `json:"detail,omitempty"`
}

func NewCycleReport() CycleReport {
	return CycleReport{
		ID:        generateID(),
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the outcome and elapsed time.
func (c CycleReport) Finish(outcome CycleOutcome, detail string) CycleReport {
	c.Outcome = outcome
	c.Detail = detail
	c.Duration = time.Since(c.StartedAt)
	return c
}
