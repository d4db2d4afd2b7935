package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Library semantic conventions.
const (
	LibraryFromKey   = attribute.Key("library.from_category")
	LibraryToKey     = attribute.Key("library.to_category")
	LibraryReasonKey = attribute.Key("library.reason")
	RejectionKindKey = attribute.Key("library.rejection")
)

// LibraryMetrics collects the transition counters. A nil *LibraryMetrics is a
// valid no-op recorder, so callers stay unconditional.
type LibraryMetrics struct {
	Transitions metric.Int64Counter
	Rejections  metric.Int64Counter
	Noops       metric.Int64Counter
	Retries     metric.Int64Counter
	Duration    metric.Float64Histogram
}

// NewLibraryMetrics registers the instrument set on meter.
func NewLibraryMetrics(meter metric.Meter) (*LibraryMetrics, error) {
	m := &LibraryMetrics{}
	var err error
	if m.Transitions, err = meter.Int64Counter("library.transitions",
		metric.WithDescription("Committed library transitions")); err != nil {
		return nil, fmt.Errorf("transitions counter: %w", err)
	}
	if m.Rejections, err = meter.Int64Counter("library.rejections",
		metric.WithDescription("Rejected transition requests")); err != nil {
		return nil, fmt.Errorf("rejections counter: %w", err)
	}
	if m.Noops, err = meter.Int64Counter("library.noops",
		metric.WithDescription("Idempotent self-transitions")); err != nil {
		return nil, fmt.Errorf("noops counter: %w", err)
	}
	if m.Retries, err = meter.Int64Counter("library.retries",
		metric.WithDescription("Internal retries after write conflicts")); err != nil {
		return nil, fmt.Errorf("retries counter: %w", err)
	}
	if m.Duration, err = meter.Float64Histogram("library.transition.duration_ms",
		metric.WithDescription("End-to-end transition latency")); err != nil {
		return nil, fmt.Errorf("duration histogram: %w", err)
	}
	return m, nil
}

func (m *LibraryMetrics) RecordTransition(ctx context.Context, from, to, reason string, durMS float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		LibraryFromKey.String(from),
		LibraryToKey.String(to),
		LibraryReasonKey.String(reason),
	)
	m.Transitions.Add(ctx, 1, attrs)
	m.Duration.Record(ctx, durMS, attrs)
}

func (m *LibraryMetrics) RecordRejection(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.Rejections.Add(ctx, 1, metric.WithAttributes(RejectionKindKey.String(kind)))
}

func (m *LibraryMetrics) RecordNoop(ctx context.Context) {
	if m == nil {
		return
	}
	m.Noops.Add(ctx, 1)
}

func (m *LibraryMetrics) RecordRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.Retries.Add(ctx, 1)
}
