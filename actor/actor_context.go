package actor

import "time"

// Context is the in-handler surface granted to a running actor:
// its own address, the message under dispatch, and the messaging/spawn/
// supervision operations available from inside a Handler. One instance is
// reused across every invocation of one cell; its message/metadata fields
// are only valid for the duration of the call that handed it to Handler.
type Context interface {
	// Self returns this actor's own Pid.
	Self() Pid
	ActorID() ActorId
	ActorPath() ActorPath

	// Message returns the payload currently being handled.
	Message() interface{}
	// Sender returns the Pid of the message's declared sender, if the
	// message arrived via Request and carried one.
	Sender() *Pid

	// Tell delivers msg to target with default priority and no sender
	// metadata; fire-and-forget.
	Tell(target Pid, msg interface{})
	// SendToSelf delivers msg back into this cell's own mailbox.
	SendToSelf(msg interface{})
	// SendSystemToSelf injects a system message into this cell's own
	// Control channel.
	SendSystemToSelf(msg SystemMessage)

	// Request delivers msg to target with this actor's Pid attached as
	// sender, readable on the receiving side through Sender. It attaches
	// no responder, so a Respond to it is routed to the dead-letter sink.
	Request(target Pid, msg interface{})
	// Forward re-delivers the message currently under dispatch to target,
	// preserving its original sender metadata. A no-op if the current
	// invocation carries neither a message nor metadata.
	Forward(target Pid)
	// Ask delivers msg to target and blocks until a Respond call on the
	// receiving side completes the exchange, timeout elapses (zero means
	// no timeout), or delivery itself fails.
	Ask(target Pid, msg interface{}, timeout time.Duration) (interface{}, error)
	// Respond completes the ask exchange the current message arrived
	// through. A no-op routed to the dead-letter sink if the current
	// message carries no responder.
	Respond(msg interface{})

	// SpawnChild registers and schedules a new child cell under this
	// actor, returning its Pid.
	SpawnChild(props Props) (Pid, error)

	// Watch subscribes this actor to who's termination notice.
	Watch(who Pid)
	// Unwatch cancels a prior Watch.
	Unwatch(who Pid)

	// SetReceiveTimeout arms (d>0) or disarms (d<=0) this cell's
	// receive-timeout watchdog.
	SetReceiveTimeout(d time.Duration)
	CancelReceiveTimeout()

	// Extensions returns this cell's ExtensionRegistry, or nil if none was
	// configured at spawn time.
	Extensions() *ExtensionRegistry
	// Extension looks up id in Extensions and invokes f with the value
	// under a read lock; returns false if no registry or no such entry.
	Extension(id ExtensionID, f func(value interface{})) bool
}

// actorContext is the concrete Context implementation, grounded on the
// teacher's actorContext (one struct per cell, message/metadata mutated
// per invocation rather than reallocated).
type actorContext struct {
	sched *ActorScheduler
	cell  *ActorCell

	msg      interface{}
	metadata *Metadata
}

var _ Context = (*actorContext)(nil)

func (ctx *actorContext) Self() Pid {
	return Pid{System: ctx.sched.config.SystemID, Path: ctx.cell.path.Clone()}
}

func (ctx *actorContext) ActorID() ActorId     { return ctx.cell.id }
func (ctx *actorContext) ActorPath() ActorPath { return ctx.cell.path.Clone() }

func (ctx *actorContext) Message() interface{} { return ctx.msg }

func (ctx *actorContext) Sender() *Pid {
	if ctx.metadata == nil {
		return nil
	}
	return ctx.metadata.SenderPid
}

func (ctx *actorContext) Tell(target Pid, msg interface{}) {
	ctx.sched.deliverUser(target, NewUserPriorityEnvelope(msg, nil, PriorityUserDefault))
}

func (ctx *actorContext) SendToSelf(msg interface{}) {
	_, _ = ctx.cell.producer.TrySend(NewUserPriorityEnvelope(msg, nil, PriorityUserDefault))
}

func (ctx *actorContext) SendSystemToSelf(msg SystemMessage) {
	_, _ = ctx.cell.producer.TrySend(NewSystemPriorityEnvelope(ctx.cell.mapSystem(msg)))
}

func (ctx *actorContext) Request(target Pid, msg interface{}) {
	self := ctx.Self()
	md := &Metadata{SenderPid: &self}
	ctx.sched.deliverUser(target, NewUserPriorityEnvelope(msg, md, PriorityUserDefault))
}

func (ctx *actorContext) Forward(target Pid) {
	if ctx.metadata == nil && ctx.msg == nil {
		return
	}
	// The underlying Envelope distinguishes system messages only at the
	// PriorityEnvelope layer; a Context invocation only ever carries a user
	// payload (system messages are handled by the scheduler itself before
	// Handler is invoked), so Forward always re-wraps a user payload here.
	ctx.sched.deliverUser(target, NewUserPriorityEnvelope(ctx.msg, ctx.metadata, PriorityUserDefault))
}

func (ctx *actorContext) Ask(target Pid, msg interface{}, timeout time.Duration) (interface{}, error) {
	future, responder := newAskFuture()
	md := &Metadata{responder: responder}
	if err := ctx.sched.deliverUser(target, NewUserPriorityEnvelope(msg, md, PriorityUserDefault)); err != nil {
		return nil, &AskError{Kind: AskSendFailed, Err: err}
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	return future.Wait(timeoutCh)
}

func (ctx *actorContext) Respond(msg interface{}) {
	if ctx.metadata == nil || !ctx.metadata.HasResponder() {
		ctx.sched.notifyDeadLetter(DeadLetterEvent{Reason: DeliveryRejected, Payload: msg})
		return
	}
	if ctx.metadata.responder != nil {
		ctx.metadata.responder.deliver(msg)
		return
	}
	ctx.sched.deliverUser(*ctx.metadata.ResponderPid, NewUserPriorityEnvelope(msg, nil, PriorityUserDefault))
}

func (ctx *actorContext) SpawnChild(props Props) (Pid, error) {
	return ctx.sched.spawnChild(ctx.cell, props)
}

func (ctx *actorContext) Watch(who Pid) {
	ctx.sched.deliverSystem(who, SystemWatch(ctx.cell.id))
}

func (ctx *actorContext) Unwatch(who Pid) {
	ctx.sched.deliverSystem(who, SystemUnwatch(ctx.cell.id))
}

func (ctx *actorContext) SetReceiveTimeout(d time.Duration) {
	ctx.cell.setReceiveTimeout(d, ctx.sched.config.ReceiveTimeoutFactory)
}

func (ctx *actorContext) CancelReceiveTimeout() {
	ctx.cell.cancelReceiveTimeout()
}

func (ctx *actorContext) Extensions() *ExtensionRegistry { return ctx.cell.extensions }

func (ctx *actorContext) Extension(id ExtensionID, f func(value interface{})) bool {
	if ctx.cell.extensions == nil {
		return false
	}
	return ctx.cell.extensions.With(id, f)
}
