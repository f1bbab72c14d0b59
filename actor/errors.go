package actor

import "fmt"

// OverflowPolicy selects how a Mailbox's Regular queue behaves once its
// bounded capacity is reached. Control never participates in overflow.
type OverflowPolicy uint8

const (
	// Block returns QueueFullError on a full Regular queue, preserving the
	// offered envelope for the caller to retry or dead-letter.
	Block OverflowPolicy = iota
	// DropNewest rejects the incoming envelope, returning QueueFullError
	// with the rejected envelope preserved.
	DropNewest
	// DropOldest evicts the oldest Regular envelope to make room,
	// succeeding with OutcomeDroppedOldest.
	DropOldest
	// Grow expands Regular capacity to accept the envelope, succeeding
	// with OutcomeGrewTo.
	Grow
)

func (p OverflowPolicy) String() string {
	switch p {
	case Block:
		return "Block"
	case DropNewest:
		return "DropNewest"
	case DropOldest:
		return "DropOldest"
	case Grow:
		return "Grow"
	default:
		return "Unknown"
	}
}

// QueueFullError is returned by try_send when a Regular queue is at capacity
// under policy Block or DropNewest. The offered envelope is preserved so
// the caller may retry or route it to a dead-letter sink.
type QueueFullError struct {
	Policy    OverflowPolicy
	Preserved PriorityEnvelope
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("mailbox: queue full (policy=%s)", e.Policy)
}

// ClosedError is returned by try_send once the mailbox has been closed; the
// payload that could not be delivered is preserved.
type ClosedError struct {
	Preserved PriorityEnvelope
}

func (e *ClosedError) Error() string { return "mailbox: closed" }

// BackpressureError signals the sender should back off; it never closes the
// mailbox and carries no preserved payload (the send did not fail
// terminally, the caller is only asked to slow down).
type BackpressureError struct{}

func (e *BackpressureError) Error() string { return "mailbox: backpressure" }

// ResourceExhaustedError models allocator failure at enqueue or dequeue
// time; the payload is preserved for dead-letter routing.
type ResourceExhaustedError struct {
	Preserved PriorityEnvelope
}

func (e *ResourceExhaustedError) Error() string { return "mailbox: resource exhausted" }

// DisconnectedError is terminal: the mailbox is closed and empty, recv will
// never yield another envelope.
type DisconnectedError struct{}

func (e *DisconnectedError) Error() string { return "mailbox: disconnected" }

// QueueError is the scheduler-facing error returned by dispatch operations;
// it wraps one of the mailbox error kinds above, or a reason specific to
// dispatch itself (e.g. recv on a mailbox that was never registered).
type QueueError struct {
	Reason string
	Err    error
}

func (e *QueueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("queue: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("queue: %s", e.Reason)
}

func (e *QueueError) Unwrap() error { return e.Err }

// NameExistsError is a spawn-time naming conflict, not a runtime failure:
// a sibling with the requested name already exists under the same parent
// path.
type NameExistsError struct {
	Name string
}

func (e *NameExistsError) Error() string { return fmt.Sprintf("actor: name %q already exists", e.Name) }

// SpawnError enumerates the ways SpawnActor/Context.SpawnChild can fail.
type SpawnError struct {
	Reason string
	Err    error
}

func (e *SpawnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("spawn: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("spawn: %s", e.Reason)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// AskErrorKind enumerates the ways an ask() exchange can fail.
type AskErrorKind uint8

const (
	AskMissingResponder AskErrorKind = iota
	AskResponderDropped
	AskTimeout
	AskSendFailed
	AskDisconnected
)

func (k AskErrorKind) String() string {
	switch k {
	case AskMissingResponder:
		return "MissingResponder"
	case AskResponderDropped:
		return "ResponderDropped"
	case AskTimeout:
		return "Timeout"
	case AskSendFailed:
		return "SendFailed"
	case AskDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// AskError is the caller-visible error type for the ask/respond pattern.
type AskError struct {
	Kind AskErrorKind
	Err  error
}

func (e *AskError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ask: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("ask: %s", e.Kind)
}

func (e *AskError) Unwrap() error { return e.Err }

// BehaviorFailure is produced either explicitly by a handler, or by panic
// conversion (the scheduler recovers handler panics on every dispatch). It
// carries a human-readable description and optional access to the original
// cause via errors.Unwrap/errors.As.
type BehaviorFailure struct {
	Description string
	Cause       error
	FromPanic   bool
}

func (f *BehaviorFailure) Error() string { return f.Description }

func (f *BehaviorFailure) Unwrap() error { return f.Cause }

// NewBehaviorFailure wraps an explicit handler error as a BehaviorFailure.
func NewBehaviorFailure(err error) *BehaviorFailure {
	return &BehaviorFailure{Description: err.Error(), Cause: err}
}

// BehaviorFailureFromPanicPayload converts a recovered panic value into a
// BehaviorFailure, turning a handler panic into the same failure shape as
// a returned error.
func BehaviorFailureFromPanicPayload(payload interface{}) *BehaviorFailure {
	if err, ok := payload.(error); ok {
		return &BehaviorFailure{Description: fmt.Sprintf("panic: %v", err), Cause: err, FromPanic: true}
	}
	return &BehaviorFailure{Description: fmt.Sprintf("panic: %v", payload), FromPanic: true}
}
