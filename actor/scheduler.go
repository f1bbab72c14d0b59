package actor

import (
	"sync"

	"github.com/j5ik2o/cellex-go/log"
)

// ReceiveTimeoutMessage is delivered to a cell's Handler when its
// receive-timeout watchdog fires. The watchdog fires once per idle period;
// the next user message re-arms it with the same duration, until
// Context.CancelReceiveTimeout is called.
type ReceiveTimeoutMessage struct{}

// Terminated is delivered to a cell's Handler once for every actor it is
// watching that has fully stopped.
type Terminated struct{ Who ActorId }

// ActorScheduler is the single-lock dispatch engine: one ReadyQueueState,
// one Guardian, and a dense map from
// ActorId to ActorCell, mutated only under mu. mu is held for the entire
// duration of a per-actor dispatch, including the handler invocation
// itself; a handler that blocks therefore stalls this scheduler only, not
// any other scheduler instance. Cross-scheduler round trips (e.g. Ask
// targeting an actor owned by a different ActorScheduler sharing the same
// ProcessRegistry) are the supported way to keep a blocking call from
// deadlocking the caller's own scheduler.
type ActorScheduler struct {
	mu sync.Mutex

	config   SchedulerConfig
	guardian *Guardian
	ids      *actorIDAllocator
	ready    *ReadyQueueState

	cells   map[ActorId]*ActorCell
	cellAt  map[MailboxIndex]*ActorCell
	indexOf map[ActorId]MailboxIndex
	freeIdx []MailboxIndex
	nextIdx MailboxIndex

	escalation  *CompositeEscalationSink
	escalations []FailureInfo
	wake        *chanMailboxSignal
}

// NewActorScheduler builds a scheduler from cfg, wiring its Guardian and
// CompositeEscalationSink from cfg's configured handlers/listeners/
// telemetry.
func NewActorScheduler(cfg SchedulerConfig) *ActorScheduler {
	guardian := NewGuardian()

	telemetry := cfg.FailureTelemetry
	if telemetry == nil && cfg.FailureTelemetryBuilder != nil {
		telemetry = cfg.FailureTelemetryBuilder()
	}

	s := &ActorScheduler{
		config:  cfg,
		guardian: guardian,
		ids:     newActorIDAllocator(),
		ready:   NewReadyQueueState(),
		cells:   make(map[ActorId]*ActorCell),
		cellAt:  make(map[MailboxIndex]*ActorCell),
		indexOf: make(map[ActorId]MailboxIndex),
		wake:    newMailboxSignal(),
	}
	s.escalation = &CompositeEscalationSink{
		Guardian:                guardian,
		CustomEscalationHandler: cfg.CustomEscalationHandler,
		RootEscalationHandler:   cfg.RootEscalationHandler,
		EventListener:           cfg.FailureEventListener,
		Telemetry:               telemetry,
		Observation:             cfg.FailureObservation,
		Metrics:                 cfg.MetricsSink,
	}
	return s
}

// SpawnActor registers a new top-level actor (no ActorCell parent) and
// returns its Pid. Called from outside any dispatch, so it takes mu itself
// around the bookkeeping mutation.
func (s *ActorScheduler) SpawnActor(props Props) (Pid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawnWithParentLocked(ActorPath{}, false, 0, props)
}

// spawnChild is reached only through Context.SpawnChild, itself only
// callable from inside a handler; the dispatching goroutine already holds
// mu for the whole handler invocation (see DispatchNext), so this must not
// lock again.
func (s *ActorScheduler) spawnChild(parent *ActorCell, props Props) (Pid, error) {
	return s.spawnWithParentLocked(parent.path, true, parent.id, props)
}

// spawnWithParentLocked builds and registers a new cell. The caller must
// already hold mu (either SpawnActor's own lock, or the dispatch lock held
// across the handler invocation that called Context.SpawnChild).
func (s *ActorScheduler) spawnWithParentLocked(parentPath ActorPath, hasParent bool, parentID ActorId, props Props) (Pid, error) {
	mailbox, producer := s.config.MailboxFactory.BuildMailbox(props.MailboxConfig)
	if pm, ok := mailbox.(*priorityMailbox); ok {
		pm.SetMetricsSink(s.config.MetricsSink)
	}

	id := s.ids.allocate()
	path := parentPath.Child(id)

	spec := ChildSpawnSpec{
		Mailbox:               mailbox,
		Producer:              producer,
		Supervisor:            props.Supervisor,
		Handler:               props.Handler,
		MapSystem:             props.MapSystem,
		ParentPath:            parentPath,
		Naming:                props.Naming,
		Extensions:            s.config.Extensions,
		receiveTimeoutFactory: props.ReceiveTimeoutFactory,
		receiveTimeout:        props.ReceiveTimeout,
	}

	if err := s.guardian.RegisterChild(spec, id, path); err != nil {
		return Pid{}, &SpawnError{Reason: "name collision", Err: err}
	}

	cell := newActorCell(id, path, hasParent, parentID, spec)

	idx := s.allocateIndexLocked()
	cell.index = idx
	s.cells[id] = cell
	s.cellAt[idx] = cell
	s.indexOf[id] = idx
	s.ready.Register(idx)

	if pm, ok := mailbox.(*priorityMailbox); ok {
		pm.setWakeHook(func() { s.markReady(idx) })
	}

	watcherID := parentID
	if !hasParent {
		watcherID = ROOT
	}
	_, _ = producer.TrySend(NewSystemPriorityEnvelope(cell.mapSystem(SystemWatch(watcherID))))

	pid := s.config.ProcessRegistry.RegisterLocal(path, &cellProcessHandle{sched: s, cell: cell})
	return pid, nil
}

func (s *ActorScheduler) allocateIndexLocked() MailboxIndex {
	if n := len(s.freeIdx); n > 0 {
		idx := s.freeIdx[n-1]
		s.freeIdx = s.freeIdx[:n-1]
		return idx
	}
	idx := s.nextIdx
	s.nextIdx++
	return idx
}

// markReady is the mailbox wake hook, invoked synchronously from inside
// TrySend on an empty-to-non-empty transition. It deliberately does not
// touch the scheduler's dispatch lock (mu): TrySend can itself happen from
// code a handler runs while this goroutine already holds mu (Tell to a
// sibling, Ask, SpawnChild), so re-locking here would self-deadlock.
// ReadyQueueState carries its own lock for exactly this reason.
func (s *ActorScheduler) markReady(idx MailboxIndex) {
	s.ready.MarkReady(idx)
	s.wake.Notify()
}

// DispatchNext pops and fully processes one ready cell's drained batch,
// holding the scheduler lock for the whole of it, including the handler
// invocation inside dispatchCell. It returns false if the ready queue was
// empty (nothing to do).
func (s *ActorScheduler) DispatchNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.ready.PopReady()
	if !ok {
		// Even an idle tick retries the escalations buffer, so an
		// at-least-once escalation eventually drains without requiring
		// unrelated actor traffic to drive it.
		s.processEscalationsLocked()
		return false
	}
	cell := s.cellAt[idx]
	if cell == nil {
		s.ready.FinishDispatch(idx, false)
		s.processEscalationsLocked()
		return true
	}

	hasMore := s.dispatchCell(cell)

	if cell.stopped {
		s.pruneCellLocked(cell)
		s.ready.FinishDispatch(idx, false)
	} else {
		s.ready.FinishDispatch(idx, hasMore)
	}
	s.processEscalationsLocked()
	return true
}

// dispatchCell drains cell's mailbox and processes every envelope in
// dispatch order, bracketing each user-message invocation with the cell's
// Supervisor hooks. Envelopes
// that arrive while the cell is suspended, or that are
// left over once the cell stops mid-batch, are re-offered to the mailbox
// rather than discarded.
func (s *ActorScheduler) dispatchCell(cell *ActorCell) bool {
	if cell.suspended && cell.resumeCondition != nil && cell.resumeCondition.Satisfied(cell.mailbox.Len()) {
		cell.suspended = false
		cell.resumeCondition = nil
		if s.config.MetricsSink != nil {
			s.config.MetricsSink.Record(MetricsEvent{Kind: EventMailboxResumed})
		}
	}

	batch := cell.mailbox.DrainBatch()
	if len(batch) == 0 {
		return false
	}

	var deferred []PriorityEnvelope
	for _, env := range batch {
		if cell.stopped {
			deferred = append(deferred, env)
			continue
		}
		if env.Message.IsSystem() {
			s.handleSystemMessage(cell, env.Message.System)
			continue
		}
		if cell.suspended {
			deferred = append(deferred, env)
			continue
		}
		cell.supervisor.BeforeHandle()
		s.invokeUser(cell, env)
		cell.supervisor.AfterHandle()
	}

	for _, env := range deferred {
		_, _ = cell.producer.TrySend(env)
	}
	return cell.mailbox.Len() > 0
}

func (s *ActorScheduler) invokeUser(cell *ActorCell, env PriorityEnvelope) {
	cell.notifyActivity()
	s.deliverToHandler(cell, env.Message.Payload, env.Message.Metadata)
}

func (s *ActorScheduler) deliverToHandler(cell *ActorCell, payload interface{}, metadata *Metadata) {
	ctx := &actorContext{sched: s, cell: cell, msg: payload, metadata: metadata}
	if failure := s.invokeSafely(cell, ctx); failure != nil {
		s.handleFailure(cell, failure)
	}
}

func (s *ActorScheduler) invokeSafely(cell *ActorCell, ctx *actorContext) (failure *BehaviorFailure) {
	defer func() {
		if r := recover(); r != nil {
			failure = BehaviorFailureFromPanicPayload(r)
		}
	}()
	if err := cell.handler(ctx, ctx.msg); err != nil {
		return NewBehaviorFailure(err)
	}
	return nil
}

func (s *ActorScheduler) handleFailure(cell *ActorCell, failure *BehaviorFailure) {
	info, err := s.guardian.NotifyFailure(cell.id, failure)
	if err != nil {
		return
	}
	if info != nil {
		s.escalations = append(s.escalations, *info)
	}
}

// processEscalationsLocked drains the escalations buffer through the
// composite sink, retaining any entry no stage handled for a retry on a
// later dispatch cycle (at-least-once delivery for local escalation
// handling). Caller holds mu.
func (s *ActorScheduler) processEscalationsLocked() {
	if len(s.escalations) == 0 {
		return
	}
	pending := s.escalations
	s.escalations = nil
	for _, info := range pending {
		if handled, _ := s.escalation.TryEscalate(info); !handled {
			s.escalations = append(s.escalations, info)
		}
	}
}

func (s *ActorScheduler) handleSystemMessage(cell *ActorCell, msg SystemMessage) {
	switch msg.Kind {
	case SysStop:
		cell.stopped = true
		cell.cancelReceiveTimeout()
		s.notifyTermination(cell)
	case SysRestart:
		cell.suspended = false
		cell.resumeCondition = nil
	case SysSuspend:
		cell.suspended = true
		cell.resumeCondition = msg.ResumeOn
		if s.config.MetricsSink != nil {
			s.config.MetricsSink.Record(MetricsEvent{Kind: EventMailboxSuspended})
		}
	case SysResume:
		cell.suspended = false
		cell.resumeCondition = nil
		if s.config.MetricsSink != nil {
			s.config.MetricsSink.Record(MetricsEvent{Kind: EventMailboxResumed})
		}
	case SysWatch:
		cell.addWatcher(msg.Watch)
	case SysUnwatch:
		cell.removeWatcher(msg.Watch)
	case SysEscalate:
		if msg.Failure != nil {
			s.escalations = append(s.escalations, *msg.Failure)
		}
	case SysReceiveTimeout:
		s.deliverToHandler(cell, ReceiveTimeoutMessage{}, nil)
	case SysTerminated:
		s.deliverToHandler(cell, Terminated{Who: msg.Terminated}, nil)
	}
}

// notifyTermination is reached only from handleSystemMessage, itself only
// reached from dispatchCell under DispatchNext's held lock, so it reads
// s.cells directly rather than re-locking mu.
func (s *ActorScheduler) notifyTermination(cell *ActorCell) {
	for _, w := range cell.watcherList() {
		watcher := s.cells[w]
		if watcher != nil {
			_, _ = watcher.producer.TrySend(NewSystemPriorityEnvelope(watcher.mapSystem(SystemTerminated(cell.id))))
		}
	}
	if cell.hasParent {
		parent := s.cells[cell.parentID]
		if parent != nil {
			_, _ = parent.producer.TrySend(NewSystemPriorityEnvelope(parent.mapSystem(SystemTerminated(cell.id))))
		}
	}
}

// pruneCellLocked removes a stopped cell's bookkeeping. Caller holds mu.
func (s *ActorScheduler) pruneCellLocked(cell *ActorCell) {
	delete(s.cells, cell.id)
	delete(s.cellAt, cell.index)
	delete(s.indexOf, cell.id)
	s.freeIdx = append(s.freeIdx, cell.index)
	s.ready.Reset(cell.index)
	s.guardian.RemoveChild(cell.id)
	s.config.ProcessRegistry.Deregister(Pid{System: s.config.SystemID, Path: cell.path})
	cell.mailbox.Close()
	for _, env := range cell.mailbox.DrainBatch() {
		if md := env.Message.Metadata; md != nil && md.responder != nil {
			md.responder.Abandon()
		}
	}
	if s.config.MetricsSink != nil {
		s.config.MetricsSink.Record(MetricsEvent{Kind: EventActorDeregistered})
	}
}

// deliverUser resolves target through the configured ProcessRegistry and
// forwards env, reporting a DeadLetterEvent on any failure to resolve or
// deliver.
func (s *ActorScheduler) deliverUser(target Pid, env PriorityEnvelope) error {
	res := s.config.ProcessRegistry.ResolvePid(target)
	if res.Kind != ResolvedLocal || res.Handle == nil {
		log.Warn("dead letter: unresolved pid", log.Stringer("pid", target))
		s.notifyDeadLetter(DeadLetterEvent{Target: target, Reason: UnregisteredPid, Payload: env.Message.Payload})
		return &QueueError{Reason: "deliver: unresolved pid"}
	}
	if err := res.Handle.SendUser(env); err != nil {
		log.Warn("dead letter: delivery rejected", log.Stringer("pid", target), log.Error(err))
		s.notifyDeadLetter(DeadLetterEvent{Target: target, Reason: DeliveryRejected, Payload: env.Message.Payload})
		return err
	}
	return nil
}

func (s *ActorScheduler) deliverSystem(target Pid, msg SystemMessage) error {
	res := s.config.ProcessRegistry.ResolvePid(target)
	if res.Kind != ResolvedLocal || res.Handle == nil {
		s.notifyDeadLetter(DeadLetterEvent{Target: target, Reason: UnregisteredPid})
		return &QueueError{Reason: "deliver: unresolved pid"}
	}
	if err := res.Handle.SendSystem(msg); err != nil {
		s.notifyDeadLetter(DeadLetterEvent{Target: target, Reason: DeliveryRejected})
		return err
	}
	return nil
}

func (s *ActorScheduler) notifyDeadLetter(event DeadLetterEvent) {
	if lpr, ok := s.config.ProcessRegistry.(*LocalProcessRegistry); ok {
		lpr.notifyDeadLetter(event)
	}
}

// RunUntilIdle dispatches ready cells until none remain ready, used by the
// in-process test harness deployment target where no background worker
// goroutine is running.
func (s *ActorScheduler) RunUntilIdle() {
	for s.DispatchNext() {
	}
}

// Tell delivers msg to target from outside any actor's Handler: the entry
// point an embedder or test harness uses to bootstrap a running actor tree,
// since Context.Tell is only reachable from within a dispatch.
func (s *ActorScheduler) Tell(target Pid, msg interface{}) error {
	return s.deliverUser(target, NewUserPriorityEnvelope(msg, nil, PriorityUserDefault))
}

// SendSystem delivers a SystemMessage to target's Control channel from
// outside any actor's Handler.
func (s *ActorScheduler) SendSystem(target Pid, msg SystemMessage) error {
	return s.deliverSystem(target, msg)
}

// cellProcessHandle adapts an ActorCell to ProcessHandle for registration
// with a ProcessRegistry.
type cellProcessHandle struct {
	sched *ActorScheduler
	cell  *ActorCell
}

func (h *cellProcessHandle) SendUser(env PriorityEnvelope) error {
	_, err := h.cell.producer.TrySend(env)
	return err
}

func (h *cellProcessHandle) SendSystem(msg SystemMessage) error {
	_, err := h.cell.producer.TrySend(NewSystemPriorityEnvelope(h.cell.mapSystem(msg)))
	return err
}

var _ ProcessHandle = (*cellProcessHandle)(nil)
