package model

import (
	"errors"
	"fmt"
)

// ErrNoData means the metrics provider had nothing to report. Callers skip
// the cycle rather than fail.
var ErrNoData = errors.New("no metrics data available")

// ErrMissingCredential is returned by an LLM provider whose API key is unset.
var ErrMissingCredential = errors.New("llm credential is not configured")

// LLMRequestError wraps any failure of a completion call.
type LLMRequestError struct {
	Op  string
	Err error
}

func (e *LLMRequestError) Error() string {
	return fmt.Sprintf("llm %s request failed: %v", e.Op, e.Err)
}

func (e *LLMRequestError) Unwrap() error { return e.Err }

// DeliveryError wraps a recommendation sink failure.
type DeliveryError struct {
	Sink string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver recommendation via %s: %v", e.Sink, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
