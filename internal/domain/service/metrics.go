package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serviceops_polling_cycles_total",
			Help: "Polling cycles by outcome",
		},
		[]string{"outcome"},
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "serviceops_polling_cycle_duration_seconds",
			Help:    "Wall time of one polling cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	llmCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serviceops_llm_calls_total",
			Help: "LLM completion calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	llmCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "serviceops_llm_call_duration_seconds",
			Help:    "LLM completion latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"operation"},
	)

	chatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serviceops_chat_turns_total",
			Help: "Chat requests by result",
		},
		[]string{"result"},
	)

	historyLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "serviceops_conversation_history_turns",
			Help: "Turns currently held in conversation history",
		},
	)

	deliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serviceops_delivery_failures_total",
			Help: "Recommendation deliveries that failed, by sink",
		},
		[]string{"sink"},
	)
)

const (
	resultSuccess = "success"
	resultError   = "error"
)
