package actor

import "time"

// parentIDOf returns the ActorId addressed by path's parent, and false if
// path is already root. Since ActorPath's elements are themselves the dense
// ActorIds assigned along the way, the parent's id is simply the leaf of
// the parent path (or ROOT, if the parent path is itself empty).
func parentIDOf(path ActorPath) (ActorId, bool) {
	parentPath, ok := path.Parent()
	if !ok {
		return 0, false
	}
	if id, ok := parentPath.Leaf(); ok {
		return id, true
	}
	return ROOT, true
}

// CompositeEscalationSink implements the forwarding chain a failure that a
// child's Supervisor decided to Escalate travels through: a custom
// handler gets first refusal, then the parent guardian's Control
// channel, then a root-level handler, then a root event listener. Failure
// telemetry is reported unconditionally at the end as an observability
// side channel, independent of whether any stage actually handled it.
type CompositeEscalationSink struct {
	Guardian                *Guardian
	CustomEscalationHandler func(info FailureInfo) error
	RootEscalationHandler   func(info FailureInfo) error
	EventListener           FailureEventListener
	Telemetry               FailureTelemetry
	Observation             FailureObservationConfig
	Metrics                 MetricsSink
}

// Escalate runs info through the forwarding chain once, discarding the
// handled/unhandled distinction; callers that need to retry unhandled
// escalations (the scheduler's escalations buffer) should use TryEscalate
// instead.
func (s *CompositeEscalationSink) Escalate(info FailureInfo) error {
	_, err := s.TryEscalate(info)
	return err
}

// TryEscalate runs info through the forwarding chain and reports whether
// any stage actually handled it, so a caller can retain an unhandled info
// for a later retry.
func (s *CompositeEscalationSink) TryEscalate(info FailureInfo) (bool, error) {
	handled, err := s.tryHandle(info)
	s.reportTelemetry(info, handled)
	return handled, err
}

func (s *CompositeEscalationSink) tryHandle(info FailureInfo) (bool, error) {
	var customErr error
	if s.CustomEscalationHandler != nil {
		if err := s.CustomEscalationHandler(info); err == nil {
			return true, nil
		} else {
			customErr = err
		}
	}

	if s.Guardian != nil {
		if parentID, ok := parentIDOf(info.Path); ok {
			next, _ := info.EscalateToParent(parentID)
			if handled, err := s.Guardian.EscalateFailure(next); handled {
				return true, err
			}
		}
	}

	if s.RootEscalationHandler != nil {
		return true, s.RootEscalationHandler(info)
	}

	if s.EventListener != nil {
		s.EventListener.Call(NewRootEscalatedEvent(info))
		return true, nil
	}

	return false, customErr
}

func (s *CompositeEscalationSink) reportTelemetry(info FailureInfo, handled bool) {
	if s.Telemetry == nil {
		return
	}
	if s.Observation.Sample != nil && !s.Observation.Sample(info) {
		return
	}

	var start time.Time
	if s.Observation.RecordTiming {
		start = time.Now()
	}

	snapshot := &FailureSnapshot{
		Description: info.Failure.Error(),
		Actor:       info.Actor,
		Path:        info.Path,
		Stage:       info.Stage,
	}
	s.Telemetry.OnFailure(snapshot)

	if s.Metrics != nil {
		s.Metrics.Record(MetricsEvent{Kind: EventTelemetryInvoked})
	}
	if s.Observation.RecordTiming {
		elapsed := time.Since(start)
		snapshot.TimingNanos = new(int64)
		*snapshot.TimingNanos = elapsed.Nanoseconds()
		if s.Metrics != nil {
			s.Metrics.Record(MetricsEvent{Kind: EventTelemetryLatencyNanos, LatencyNanos: elapsed.Nanoseconds()})
		}
	}

	_ = handled
}
