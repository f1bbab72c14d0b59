package actor

import "context"

// OfferOutcome is the success-side result of Mailbox.TrySend.
type OfferOutcomeKind uint8

const (
	OutcomeEnqueued OfferOutcomeKind = iota
	OutcomeDroppedOldest
	OutcomeDroppedNewest
	OutcomeGrewTo
)

// OfferOutcome reports how a successful TrySend was actually handled.
type OfferOutcome struct {
	Kind     OfferOutcomeKind
	Count    int // for DroppedOldest/DroppedNewest: number discarded
	Capacity int // for GrewTo: the new capacity
}

// MailboxConfig configures a mailbox queue's capacity and overflow
// behavior, consumed both directly and through the external MailboxFactory
// trait's recognized option fields.
type MailboxConfig struct {
	// Capacity is the Regular channel's bounded capacity; nil means
	// unbounded (subject only to Grow bookkeeping / allocator limits).
	Capacity *int
	// PriorityLevels times ControlCapacityPerLevel sizes the Control
	// channel's initial heap allocation. Control is one heap ordered by
	// priority, not a set of per-level buckets. Regular messages are sorted
	// by priority, then insertion order, when they are drained.
	PriorityLevels int
	// ControlCapacityPerLevel is advisory headroom, not an eviction
	// trigger: control messages never silently drop.
	ControlCapacityPerLevel int
	OverflowPolicy          OverflowPolicy
}

// DefaultMailboxConfig returns reasonable defaults: unbounded Regular
// capacity, Block policy, 8 priority levels.
func DefaultMailboxConfig() MailboxConfig {
	return MailboxConfig{
		Capacity:                nil,
		PriorityLevels:          8,
		ControlCapacityPerLevel: 64,
		OverflowPolicy:          Block,
	}
}

// MailboxSignal is a level-triggered async wake primitive. Notify is
// idempotent and non-blocking; Wait yields a channel that is readable once
// a notification has been latched since the last Wait consumed one, or
// immediately if one is already pending. At least one pending notification
// is always remembered, so a producer enqueueing before a consumer awaits
// still wakes it.
type MailboxSignal interface {
	// Notify latches a pending wake, waking any current or future Wait.
	Notify()
	// Wait returns a channel that becomes readable on the next
	// notification, or immediately if one is already latched. Each
	// successful receive consumes exactly one latched notification.
	Wait() <-chan struct{}
}

// Mailbox is the consumer half of a per-actor mailbox queue.
type Mailbox interface {
	// Recv resolves when an envelope is available, or with an error once
	// the mailbox is closed and drained (Disconnected).
	Recv(ctx context.Context) (PriorityEnvelope, error)
	// Close is monotonic. Subsequent TrySend calls from any Producer fail
	// with ClosedError. In-flight messages remain drainable via Recv
	// until empty, after which Recv returns Disconnected.
	Close()
	// Closed reports whether Close has been called.
	Closed() bool
	// Len reports the number of envelopes currently queued (both
	// channels), used by the ready-queue's spurious-wake check and by
	// ResumeCondition capacity checks.
	Len() int
	// Signal returns a cloneable handle to this mailbox's wake primitive.
	Signal() MailboxSignal
	// DrainBatch removes and returns all currently queued envelopes in
	// dispatch order (Control-desc-priority, then Regular-desc-priority,
	// with insertion-order tie-break in both). Used by the scheduler's per-actor
	// dispatch; not part of the external consumer contract, but exposed
	// for it.
	DrainBatch() []PriorityEnvelope
}

// MailboxProducer is a producer handle; many may share one Mailbox.
type MailboxProducer interface {
	// TrySend is non-blocking. See OfferOutcome/QueueFullError/
	// ClosedError for the full result space.
	TrySend(env PriorityEnvelope) (OfferOutcome, error)
	// Signal returns the same wake handle as the paired Mailbox.
	Signal() MailboxSignal
}

// MailboxFactory is the external collaborator trait the core consumes to
// build a mailbox's storage. This module ships one concrete implementation
// (NewPriorityMailboxFactory, in mailbox_queue.go); embedded or
// Tokio-backed storage implementations are out of scope here and only
// need to satisfy this interface.
type MailboxFactory interface {
	BuildMailbox(config MailboxConfig) (Mailbox, MailboxProducer)
}
