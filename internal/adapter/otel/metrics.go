package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "kanbd"

// Metrics holds the mutation engine's metric instruments.
type Metrics struct {
	MutationsCommitted metric.Int64Counter
	CASConflicts       metric.Int64Counter
	RetriesExhausted   metric.Int64Counter
	UpdateAttempts     metric.Int64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.MutationsCommitted, err = meter.Int64Counter("kanbd.tasks.mutations_committed",
		metric.WithDescription("Number of task mutations committed"))
	if err != nil {
		return nil, err
	}

	m.CASConflicts, err = meter.Int64Counter("kanbd.tasks.cas_conflicts",
		metric.WithDescription("Number of compare-and-write version conflicts"))
	if err != nil {
		return nil, err
	}

	m.RetriesExhausted, err = meter.Int64Counter("kanbd.tasks.retries_exhausted",
		metric.WithDescription("Number of updates that exhausted all retry attempts"))
	if err != nil {
		return nil, err
	}

	m.UpdateAttempts, err = meter.Int64Histogram("kanbd.tasks.update_attempts",
		metric.WithDescription("Compare-and-write attempts per committed update"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
