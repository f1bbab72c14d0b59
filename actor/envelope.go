package actor

// Channel distinguishes the two sub-queues a mailbox maintains. Control
// always drains before Regular; see mailbox_queue.go.
type Channel uint8

const (
	// Regular carries ordinary user payloads.
	Regular Channel = iota
	// Control carries system messages and other high-priority traffic
	// that must never be silently dropped.
	Control
)

func (c Channel) String() string {
	if c == Control {
		return "Control"
	}
	return "Regular"
}

// Priority is a signed 8-bit priority value. Higher sorts first within a
// channel. It is independent of Channel: Control-vs-Regular is a separate
// dimension, not a sentinel priority.
type Priority int8

// Fixed priorities assigned to system messages.
const (
	PriorityStopEscalate    Priority = 100
	PrioritySystemMedium    Priority = 50
	PrioritySystemLow       Priority = 10
	PriorityUserDefault     Priority = 0
	PriorityWatchInjection  Priority = PrioritySystemLow + 1 // just above Watch/Unwatch, below Restart/Suspend/Resume
)

// SystemMessageKind tags the variant of a SystemMessage.
type SystemMessageKind uint8

const (
	SysStop SystemMessageKind = iota
	SysRestart
	SysSuspend
	SysResume
	SysWatch
	SysUnwatch
	SysEscalate
	// SysReceiveTimeout is injected by a ReceiveTimeoutScheduler after a
	// configured period of inactivity. It is added here as an extension of
	// the same tagged type rather than a second message channel.
	SysReceiveTimeout
	// SysTerminated is delivered to every watcher of an actor once it has
	// fully stopped.
	SysTerminated
)

func (k SystemMessageKind) String() string {
	switch k {
	case SysStop:
		return "Stop"
	case SysRestart:
		return "Restart"
	case SysSuspend:
		return "Suspend"
	case SysResume:
		return "Resume"
	case SysWatch:
		return "Watch"
	case SysUnwatch:
		return "Unwatch"
	case SysEscalate:
		return "Escalate"
	case SysReceiveTimeout:
		return "ReceiveTimeout"
	case SysTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// SystemMessage is the tagged variant type for control-plane messages.
// Exactly one of the payload fields is meaningful, selected by Kind.
type SystemMessage struct {
	Kind       SystemMessageKind
	Watch      ActorId          // valid when Kind == SysWatch or SysUnwatch
	Failure    *FailureInfo     // valid when Kind == SysEscalate
	Terminated ActorId          // valid when Kind == SysTerminated
	ResumeOn   *ResumeCondition // optional, valid when Kind == SysSuspend
}

// Priority returns the fixed Control-channel priority for a system message
// kind: Stop/Escalate high, Restart/Suspend/Resume medium, Watch/Unwatch
// low.
func (m SystemMessage) Priority() Priority {
	switch m.Kind {
	case SysStop, SysEscalate:
		return PriorityStopEscalate
	case SysRestart, SysSuspend, SysResume:
		return PrioritySystemMedium
	case SysWatch, SysUnwatch, SysTerminated:
		return PrioritySystemLow
	case SysReceiveTimeout:
		return PrioritySystemMedium
	default:
		return PrioritySystemLow
	}
}

func SystemStop() SystemMessage                    { return SystemMessage{Kind: SysStop} }
func SystemRestart() SystemMessage                 { return SystemMessage{Kind: SysRestart} }
func SystemSuspend() SystemMessage { return SystemMessage{Kind: SysSuspend} }

// SystemSuspendUntil suspends with an attached ResumeCondition the
// scheduler checks before each subsequent dispatch of the cell, auto-
// resuming it once satisfied.
func SystemSuspendUntil(cond ResumeCondition) SystemMessage {
	return SystemMessage{Kind: SysSuspend, ResumeOn: &cond}
}
func SystemResume() SystemMessage                  { return SystemMessage{Kind: SysResume} }
func SystemWatch(id ActorId) SystemMessage         { return SystemMessage{Kind: SysWatch, Watch: id} }
func SystemUnwatch(id ActorId) SystemMessage       { return SystemMessage{Kind: SysUnwatch, Watch: id} }
func SystemEscalate(f FailureInfo) SystemMessage   { return SystemMessage{Kind: SysEscalate, Failure: &f} }
func SystemTerminated(id ActorId) SystemMessage    { return SystemMessage{Kind: SysTerminated, Terminated: id} }

// Metadata carries optional sender/responder routing information attached
// to a User envelope. It is produced by Context.Request/ask/forward and
// consumed by Respond. The zero value carries nothing.
type Metadata struct {
	SenderDispatcher    string
	ResponderDispatcher string
	SenderPid           *Pid
	ResponderPid        *Pid

	// responder, when set, is the in-process responder used by ask() to
	// deliver a reply without a round trip through the process registry.
	// It is nil for ordinary Send/Request/Forward metadata.
	responder *askResponder
}

// HasResponder reports whether this metadata carries a way to deliver a
// reply, either via ResponderPid or an in-process ask responder.
func (m *Metadata) HasResponder() bool {
	return m != nil && (m.ResponderPid != nil || m.responder != nil)
}

// MessageKind tags the Envelope sum type: User{payload, metadata} or
// System(SystemMessage).
type MessageKind uint8

const (
	KindUser MessageKind = iota
	KindSystem
)

// Envelope is the sum type carried inside a PriorityEnvelope: either a user
// payload with optional Metadata, or a SystemMessage.
type Envelope struct {
	Kind     MessageKind
	Payload  interface{}
	Metadata *Metadata
	System   SystemMessage
}

// UserEnvelope builds a User envelope.
func UserEnvelope(payload interface{}, md *Metadata) Envelope {
	return Envelope{Kind: KindUser, Payload: payload, Metadata: md}
}

// SystemEnvelope builds a System envelope.
func SystemEnvelope(msg SystemMessage) Envelope {
	return Envelope{Kind: KindSystem, System: msg}
}

// IsSystem reports whether e carries a SystemMessage.
func (e Envelope) IsSystem() bool { return e.Kind == KindSystem }

// PriorityEnvelope wraps a Envelope with its dispatch priority and channel.
// Channel is immutable once created; priority is stable across forwarding;
// Map transforms the payload but preserves priority and channel exactly.
type PriorityEnvelope struct {
	Message  Envelope
	priority Priority
	channel  Channel
	seq      uint64 // insertion sequence, for stable FIFO tie-break
}

// NewUserPriorityEnvelope wraps a user payload at the given priority on the
// Regular channel.
func NewUserPriorityEnvelope(payload interface{}, md *Metadata, priority Priority) PriorityEnvelope {
	return PriorityEnvelope{
		Message:  UserEnvelope(payload, md),
		priority: priority,
		channel:  Regular,
	}
}

// NewSystemPriorityEnvelope wraps a system message on the Control channel
// at its fixed priority.
func NewSystemPriorityEnvelope(msg SystemMessage) PriorityEnvelope {
	return PriorityEnvelope{
		Message:  SystemEnvelope(msg),
		priority: msg.Priority(),
		channel:  Control,
	}
}

// Priority returns the envelope's dispatch priority.
func (e PriorityEnvelope) Priority() Priority { return e.priority }

// Channel returns the envelope's channel.
func (e PriorityEnvelope) Channel() Channel { return e.channel }

// Seq returns the insertion sequence assigned at enqueue time, used for
// stable FIFO tie-break within a (channel, priority) pair.
func (e PriorityEnvelope) Seq() uint64 { return e.seq }

// WithSeq returns a copy of e with its sequence number set; used internally
// by the mailbox queue at enqueue time.
func (e PriorityEnvelope) WithSeq(seq uint64) PriorityEnvelope {
	e.seq = seq
	return e
}

// Map transforms the payload of a User envelope while preserving priority
// and channel exactly. System envelopes are returned unchanged: a system
// message's meaning must not be altered by a producer-side map (e.g. a
// receive-timeout factory's map_system only changes how the message is
// delivered, not reinterpreted as user data).
func (e PriorityEnvelope) Map(f func(interface{}) interface{}) PriorityEnvelope {
	if e.Message.Kind != KindUser {
		return e
	}
	mapped := e
	mapped.Message.Payload = f(e.Message.Payload)
	return mapped
}
