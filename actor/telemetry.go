package actor

// FailureTelemetry is the external collaborator trait the composite
// escalation sink invokes last, with a read-only snapshot of the failure.
type FailureTelemetry interface {
	OnFailure(snapshot *FailureSnapshot)
}

// FailureEventListener receives root-level failure events.
type FailureEventListener interface {
	Call(event FailureEvent)
}

// FailureObservationConfig controls whether the escalation sink brackets
// the FailureTelemetry call with timing, and an optional sampling hook.
type FailureObservationConfig struct {
	RecordTiming bool
	// Sample, if set, is consulted before invoking telemetry at all; a
	// false result skips both the telemetry call and its timing/metrics.
	// Nil means "always sample".
	Sample func(info FailureInfo) bool
}

// funcFailureTelemetry adapts a plain function to FailureTelemetry, the
// same "adapt a closure to a one-method interface" idiom used elsewhere
// in this package for DeadLetterListenerFunc and FailureEventListenerFunc.
type funcFailureTelemetry func(snapshot *FailureSnapshot)

func (f funcFailureTelemetry) OnFailure(snapshot *FailureSnapshot) { f(snapshot) }

// FailureTelemetryFunc adapts a plain function to FailureTelemetry.
func FailureTelemetryFunc(f func(snapshot *FailureSnapshot)) FailureTelemetry {
	return funcFailureTelemetry(f)
}

type funcFailureEventListener func(event FailureEvent)

func (f funcFailureEventListener) Call(event FailureEvent) { f(event) }

// FailureEventListenerFunc adapts a plain function to FailureEventListener.
func FailureEventListenerFunc(f func(event FailureEvent)) FailureEventListener {
	return funcFailureEventListener(f)
}
