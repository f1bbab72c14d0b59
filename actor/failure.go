package actor

// Stage records the hop count and origin of a FailureInfo as it escalates
// up the actor tree.
type Stage struct {
	hops   uint32
	origin ActorId
}

// Hops reports the number of parent-escalation hops this failure has
// travelled. It is non-decreasing under EscalateToParent.
func (s Stage) Hops() uint32 { return s.hops }

// Origin reports the ActorId where this failure was first raised.
func (s Stage) Origin() ActorId { return s.origin }

// FailureInfo describes one failure as it propagates from the actor that
// raised it up toward the root guardian.
type FailureInfo struct {
	Actor      ActorId
	Path       ActorPath
	Failure    *BehaviorFailure
	Stage      Stage
	CauseChain []error
}

// NewFailureInfo builds the initial FailureInfo at the origin of a failure.
func NewFailureInfo(actor ActorId, path ActorPath, failure *BehaviorFailure) FailureInfo {
	return FailureInfo{
		Actor:   actor,
		Path:    path,
		Failure: failure,
		Stage:   Stage{hops: 0, origin: actor},
	}
}

// EscalateToParent yields a new FailureInfo addressed to the parent's
// ActorId/path, with hops incremented by one. Escalating past the root
// yields ok=false and the original FailureInfo is returned unmodified.
func (f FailureInfo) EscalateToParent(parentID ActorId) (FailureInfo, bool) {
	parentPath, ok := f.Path.Parent()
	if !ok {
		// f.Path is already root; nothing above it to escalate to.
		return f, false
	}
	next := f
	next.Actor = parentID
	next.Path = parentPath
	next.Stage = Stage{hops: f.Stage.hops + 1, origin: f.Stage.origin}
	return next, true
}

// WithCause appends to the cause chain, preserving order (oldest first).
func (f FailureInfo) WithCause(err error) FailureInfo {
	chain := make([]error, len(f.CauseChain), len(f.CauseChain)+1)
	copy(chain, f.CauseChain)
	chain = append(chain, err)
	f.CauseChain = chain
	return f
}

// FailureSnapshot is the read-only view handed to FailureTelemetry.OnFailure,
// optionally carrying timing information when observation config requests
// it.
type FailureSnapshot struct {
	Description  string
	Actor        ActorId
	Path         ActorPath
	Stage        Stage
	TimingNanos  *int64
}

// FailureEventKind tags the FailureEvent sum type.
type FailureEventKind uint8

const (
	// RootEscalated fires when a failure reaches the root escalation
	// sink's listener stage.
	RootEscalated FailureEventKind = iota
)

// FailureEvent is handed to a FailureEventListener.
type FailureEvent struct {
	Kind FailureEventKind
	Info FailureInfo
}

// NewRootEscalatedEvent builds a FailureEvent{Kind: RootEscalated}.
func NewRootEscalatedEvent(info FailureInfo) FailureEvent {
	return FailureEvent{Kind: RootEscalated, Info: info}
}
