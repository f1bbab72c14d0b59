package actor

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
)

// MetricsEventKind enumerates the mailbox and dispatch events the core
// can report to an installed MetricsSink.
type MetricsEventKind uint8

const (
	EventMailboxEnqueued MetricsEventKind = iota
	EventMailboxDequeued
	EventMailboxDroppedOldest
	EventMailboxDroppedNewest
	EventMailboxGrewTo
	EventMailboxSuspended
	EventMailboxResumed
	EventActorDeregistered
	EventTelemetryInvoked
	EventTelemetryLatencyNanos
)

// MetricsEvent is emitted to an installed MetricsSink. Only the fields
// relevant to Kind are populated; the rest are zero.
type MetricsEvent struct {
	Kind MetricsEventKind

	Count    int // DroppedOldest/DroppedNewest
	Capacity int // GrewTo

	SuspendCount   int
	ResumeCount    int
	LastDuration   *time.Duration
	TotalDuration  *time.Duration

	LatencyNanos int64 // TelemetryLatencyNanos
}

// MetricsSink is the external collaborator trait the core reports
// instrumentation events to. Installing no sink (nil) disables
// instrumentation with zero overhead beyond a nil check.
type MetricsSink interface {
	Record(event MetricsEvent)
}

// openCensusMetricsSink bridges MetricsEvent to OpenCensus measures and
// tagged views, the default MetricsSink the module ships so embedders don't
// have to hand-write one themselves.
type openCensusMetricsSink struct {
	ctx context.Context
}

var (
	measureEnqueued       = stats.Int64("cellex/mailbox_enqueued", "mailbox envelopes enqueued", stats.UnitDimensionless)
	measureDequeued       = stats.Int64("cellex/mailbox_dequeued", "mailbox envelopes dequeued", stats.UnitDimensionless)
	measureDroppedOldest  = stats.Int64("cellex/mailbox_dropped_oldest", "mailbox envelopes dropped (oldest)", stats.UnitDimensionless)
	measureDroppedNewest  = stats.Int64("cellex/mailbox_dropped_newest", "mailbox envelopes dropped (newest)", stats.UnitDimensionless)
	measureGrewTo         = stats.Int64("cellex/mailbox_capacity", "mailbox capacity after Grow", stats.UnitDimensionless)
	measureSuspended      = stats.Int64("cellex/mailbox_suspended", "mailbox suspend events", stats.UnitDimensionless)
	measureResumed        = stats.Int64("cellex/mailbox_resumed", "mailbox resume events", stats.UnitDimensionless)
	measureActorDeregistered = stats.Int64("cellex/actor_deregistered", "actor cells pruned", stats.UnitDimensionless)
	measureTelemetryInvoked  = stats.Int64("cellex/telemetry_invoked", "failure telemetry invocations", stats.UnitDimensionless)
	measureTelemetryLatency  = stats.Int64("cellex/telemetry_latency_ns", "failure telemetry latency", stats.UnitNanoseconds)
)

// RegisterOpenCensusViews registers the default views for the measures the
// OpenCensus sink records. Embedders call this once at startup if they want
// these surfaced through OpenCensus exporters; it is not called implicitly
// so importing this package never has exporter side effects.
func RegisterOpenCensusViews() error {
	views := []*view.View{
		{Name: "cellex/mailbox_enqueued_count", Measure: measureEnqueued, Aggregation: view.Count()},
		{Name: "cellex/mailbox_dequeued_count", Measure: measureDequeued, Aggregation: view.Count()},
		{Name: "cellex/mailbox_dropped_oldest_sum", Measure: measureDroppedOldest, Aggregation: view.Sum()},
		{Name: "cellex/mailbox_dropped_newest_sum", Measure: measureDroppedNewest, Aggregation: view.Sum()},
		{Name: "cellex/mailbox_capacity_latest", Measure: measureGrewTo, Aggregation: view.LastValue()},
		{Name: "cellex/mailbox_suspended_count", Measure: measureSuspended, Aggregation: view.Count()},
		{Name: "cellex/mailbox_resumed_count", Measure: measureResumed, Aggregation: view.Count()},
		{Name: "cellex/actor_deregistered_count", Measure: measureActorDeregistered, Aggregation: view.Count()},
		{Name: "cellex/telemetry_invoked_count", Measure: measureTelemetryInvoked, Aggregation: view.Count()},
		{Name: "cellex/telemetry_latency_ns_distribution", Measure: measureTelemetryLatency, Aggregation: view.Distribution(0, 1e5, 1e6, 1e7, 1e8, 1e9)},
	}
	return view.Register(views...)
}

// NewOpenCensusMetricsSink returns the default MetricsSink implementation.
func NewOpenCensusMetricsSink() MetricsSink {
	return &openCensusMetricsSink{ctx: context.Background()}
}

func (s *openCensusMetricsSink) Record(event MetricsEvent) {
	switch event.Kind {
	case EventMailboxEnqueued:
		stats.Record(s.ctx, measureEnqueued.M(1))
	case EventMailboxDequeued:
		stats.Record(s.ctx, measureDequeued.M(1))
	case EventMailboxDroppedOldest:
		stats.Record(s.ctx, measureDroppedOldest.M(int64(event.Count)))
	case EventMailboxDroppedNewest:
		stats.Record(s.ctx, measureDroppedNewest.M(int64(event.Count)))
	case EventMailboxGrewTo:
		stats.Record(s.ctx, measureGrewTo.M(int64(event.Capacity)))
	case EventMailboxSuspended:
		stats.Record(s.ctx, measureSuspended.M(1))
	case EventMailboxResumed:
		stats.Record(s.ctx, measureResumed.M(1))
	case EventActorDeregistered:
		stats.Record(s.ctx, measureActorDeregistered.M(1))
	case EventTelemetryInvoked:
		stats.Record(s.ctx, measureTelemetryInvoked.M(1))
	case EventTelemetryLatencyNanos:
		stats.Record(s.ctx, measureTelemetryLatency.M(event.LatencyNanos))
	}
}

var _ MetricsSink = (*openCensusMetricsSink)(nil)
