package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// recordingMetricsSink captures every MetricsEvent for assertions, guarded
// by its own mutex since the scheduler may record from multiple cells'
// dispatch paths.
type recordingMetricsSink struct {
	mu     sync.Mutex
	events []MetricsEvent
}

func (r *recordingMetricsSink) Record(event MetricsEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingMetricsSink) count(kind MetricsEventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func newTestScheduler(opts ...SchedulerOption) *ActorScheduler {
	cfg := NewSchedulerConfig(opts...)
	return NewActorScheduler(cfg)
}

// actorIDOf extracts the leaf ActorId addressed by pid, valid for any Pid
// this scheduler handed out (SpawnActor/SpawnChild always append exactly
// one ActorId to the parent path).
func actorIDOf(pid Pid) ActorId {
	id, _ := pid.Path.Leaf()
	return id
}

func TestSpawnActorAndTellDeliversMessage(t *testing.T) {
	sched := newTestScheduler()

	var received []interface{}
	pid, err := sched.SpawnActor(NewProps(func(ctx Context, msg interface{}) error {
		received = append(received, msg)
		return nil
	}))
	require.NoError(t, err)

	err = sched.deliverUser(pid, NewUserPriorityEnvelope("hello", nil, PriorityUserDefault))
	require.NoError(t, err)

	sched.RunUntilIdle()
	require.Equal(t, []interface{}{"hello"}, received)
}

func TestTellViaContextReachesSibling(t *testing.T) {
	sched := newTestScheduler()

	var got interface{}
	done := make(chan struct{})
	target, err := sched.SpawnActor(NewProps(func(ctx Context, msg interface{}) error {
		got = msg
		close(done)
		return nil
	}))
	require.NoError(t, err)

	sender, err := sched.SpawnActor(NewProps(func(ctx Context, msg interface{}) error {
		ctx.Tell(target, "ping")
		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, sched.deliverUser(sender, NewUserPriorityEnvelope("go", nil, PriorityUserDefault)))

	sched.RunUntilIdle() // sender runs and calls Tell, which wakes target within the same pass
	sched.RunUntilIdle() // nothing is left ready; a no-op

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tell to reach sibling")
	}
	require.Equal(t, "ping", got)
}

func TestSpawnChildSynchronouslyReturnsNameCollision(t *testing.T) {
	sched := newTestScheduler()

	var firstErr, secondErr error
	parent, err := sched.SpawnActor(NewProps(func(ctx Context, msg interface{}) error {
		_, firstErr = ctx.SpawnChild(NewProps(func(Context, interface{}) error { return nil }).WithNaming(NamedAs("only")))
		_, secondErr = ctx.SpawnChild(NewProps(func(Context, interface{}) error { return nil }).WithNaming(NamedAs("only")))
		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, sched.deliverUser(parent, NewUserPriorityEnvelope("go", nil, PriorityUserDefault)))
	sched.RunUntilIdle()

	require.NoError(t, firstErr)
	var nameErr *NameExistsError
	require.ErrorAs(t, secondErr, &nameErr)
	require.Equal(t, "only", nameErr.Name)
}

func TestSuspendedCellDefersUserMessagesUntilResumed(t *testing.T) {
	sched := newTestScheduler()

	var received []interface{}
	pid, err := sched.SpawnActor(NewProps(func(ctx Context, msg interface{}) error {
		received = append(received, msg)
		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, sched.deliverSystem(pid, SystemSuspend()))
	require.NoError(t, sched.deliverUser(pid, NewUserPriorityEnvelope("queued", nil, PriorityUserDefault)))
	sched.RunUntilIdle()
	require.Empty(t, received, "a suspended cell must defer user messages rather than handle them")

	require.NoError(t, sched.deliverSystem(pid, SystemResume()))
	sched.RunUntilIdle()
	require.Equal(t, []interface{}{"queued"}, received)
}

func TestResumeConditionAutoResumesOnCapacity(t *testing.T) {
	sink := &recordingMetricsSink{}
	sched := newTestScheduler(WithMetricsSink(sink))

	var received []interface{}
	pid, err := sched.SpawnActor(NewProps(func(ctx Context, msg interface{}) error {
		received = append(received, msg)
		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, sched.deliverSystem(pid, SystemSuspendUntil(ResumeWhenCapacity(1))))
	require.NoError(t, sched.deliverUser(pid, NewUserPriorityEnvelope("one", nil, PriorityUserDefault)))
	sched.RunUntilIdle()
	require.Equal(t, []interface{}{"one"}, received, "the deferred message is re-offered and the cell re-dispatched within the same RunUntilIdle; dispatchCell re-checks Satisfied there, and a length of 1 satisfies threshold 1")

	sched.RunUntilIdle()
	require.Equal(t, []interface{}{"one"}, received, "the resumed message is handled exactly once")
	require.GreaterOrEqual(t, sink.count(EventMailboxResumed), 1)
}

func TestWatchDeliversTerminatedAfterStop(t *testing.T) {
	sched := newTestScheduler()

	var terminatedWho ActorId
	done := make(chan struct{})

	target, err := sched.SpawnActor(NewProps(func(Context, interface{}) error { return nil }))
	require.NoError(t, err)

	watcher, err := sched.SpawnActor(NewProps(func(ctx Context, msg interface{}) error {
		if term, ok := msg.(Terminated); ok {
			terminatedWho = term.Who
			close(done)
		}
		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, sched.deliverSystem(target, SystemWatch(actorIDOf(watcher))))
	// Register the watch before sending Stop: Stop outranks Watch on the
	// Control channel, so in a shared batch it would be handled first.
	sched.RunUntilIdle()
	require.NoError(t, sched.deliverSystem(target, SystemStop()))
	sched.RunUntilIdle()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Terminated notification")
	}
	require.Equal(t, actorIDOf(target), terminatedWho)
}

// TestAskRespondRoundTripAcrossSchedulers exercises a blocking Ask from a
// handler. A scheduler holds its dispatch lock for the whole of a handler
// invocation, so a handler that blocks waiting on an AskFuture would
// deadlock its own scheduler if the responder lived there too; the
// supported shape is two independent schedulers, each driven by its own
// worker goroutine and sharing one ProcessRegistry, so the responder's
// scheduler keeps dispatching while the asker's is parked in Ask.
func TestAskRespondRoundTripAcrossSchedulers(t *testing.T) {
	defer goleak.VerifyNone(t)

	systemID := NewSystemId()
	registry := NewLocalProcessRegistry(systemID)

	echoSched := newTestScheduler(WithSystemID(systemID), WithProcessRegistry(registry))
	askerSched := newTestScheduler(WithSystemID(systemID), WithProcessRegistry(registry))

	echoPid, err := echoSched.SpawnActor(NewProps(func(ctx Context, msg interface{}) error {
		ctx.Respond(msg)
		return nil
	}))
	require.NoError(t, err)

	askerDone := make(chan interface{}, 1)
	askerPid, err := askerSched.SpawnActor(NewProps(func(ctx Context, msg interface{}) error {
		reply, askErr := ctx.Ask(echoPid, "ping", 2*time.Second)
		if askErr != nil {
			askerDone <- askErr
			return nil
		}
		askerDone <- reply
		return nil
	}))
	require.NoError(t, err)

	shutdown := NewShutdownToken()
	echoWorker := NewReadyQueueWorker(echoSched, shutdown)
	askerWorker := NewReadyQueueWorker(askerSched, shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = echoWorker.Run(ctx) }()
	go func() { _ = askerWorker.Run(ctx) }()
	defer shutdown.Trigger()

	require.NoError(t, askerSched.deliverUser(askerPid, NewUserPriorityEnvelope("go", nil, PriorityUserDefault)))

	select {
	case reply := <-askerDone:
		require.Equal(t, "ping", reply)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for ask/respond round trip")
	}
}

func TestEscalateDirectiveReachesRootEscalationHandler(t *testing.T) {
	var rootFailure *FailureInfo
	done := make(chan struct{})
	sched := newTestScheduler(WithRootEscalationHandler(func(info FailureInfo) error {
		rootFailure = &info
		close(done)
		return nil
	}))

	pid, err := sched.SpawnActor(NewProps(func(ctx Context, msg interface{}) error {
		return errors.New("boom")
	}).WithSupervisor(AlwaysEscalate{}))
	require.NoError(t, err)

	require.NoError(t, sched.deliverUser(pid, NewUserPriorityEnvelope("trigger", nil, PriorityUserDefault)))
	sched.RunUntilIdle()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for root escalation")
	}
	require.NotNil(t, rootFailure)
	require.Equal(t, "boom", rootFailure.Failure.Cause.Error())
}

func TestAlwaysRestartSupervisorRecoversCellForNextMessage(t *testing.T) {
	sched := newTestScheduler()

	calls := 0
	pid, err := sched.SpawnActor(NewProps(func(ctx Context, msg interface{}) error {
		calls++
		if calls == 1 {
			return errors.New("first call fails")
		}
		return nil
	}).WithSupervisor(AlwaysRestart{}))
	require.NoError(t, err)

	require.NoError(t, sched.deliverUser(pid, NewUserPriorityEnvelope("a", nil, PriorityUserDefault)))
	sched.RunUntilIdle()
	require.NoError(t, sched.deliverUser(pid, NewUserPriorityEnvelope("b", nil, PriorityUserDefault)))
	sched.RunUntilIdle()

	require.Equal(t, 2, calls)
}

// TestSpawnEnqueuesSelfWatchAheadOfUserMessages verifies that a freshly
// spawned actor's own mailbox carries a self-addressed Watch(ROOT) that
// drains ahead of any user message a caller enqueues afterward, while a
// Stop sent afterward still drains first because it outranks Watch on the
// Control channel. Draining the cell's raw mailbox (rather than observing handler calls)
// is necessary because system messages are consumed internally by
// handleSystemMessage and never forwarded to the user handler.
func TestSpawnEnqueuesSelfWatchAheadOfUserMessages(t *testing.T) {
	sched := newTestScheduler()

	pid, err := sched.SpawnActor(NewProps(func(Context, interface{}) error { return nil }))
	require.NoError(t, err)

	require.NoError(t, sched.deliverUser(pid, NewUserPriorityEnvelope(42, nil, PriorityUserDefault)))
	require.NoError(t, sched.deliverSystem(pid, SystemStop()))

	cell := sched.cells[actorIDOf(pid)]
	require.NotNil(t, cell)
	batch := cell.mailbox.DrainBatch()

	require.Len(t, batch, 3)
	require.True(t, batch[0].Message.IsSystem())
	require.Equal(t, SysStop, batch[0].Message.System.Kind)
	require.True(t, batch[1].Message.IsSystem())
	require.Equal(t, SysWatch, batch[1].Message.System.Kind)
	require.Equal(t, ROOT, batch[1].Message.System.Watch)
	require.False(t, batch[2].Message.IsSystem())
	require.Equal(t, 42, batch[2].Message.Payload)
}

// TestEscalationBufferRetriesCustomHandlerFailureOnNextCycle exercises the
// at-least-once retry contract: a custom escalation handler that fails once
// and succeeds the second time must leave the scheduler's escalations
// buffer non-empty after the first dispatch cycle and empty after the next.
func TestEscalationBufferRetriesCustomHandlerFailureOnNextCycle(t *testing.T) {
	var attempts int
	handled := make(chan struct{})
	sched := newTestScheduler(WithCustomEscalationHandler(func(info FailureInfo) error {
		attempts++
		if attempts == 1 {
			return errors.New("handler not ready yet")
		}
		close(handled)
		return nil
	}))

	pid, err := sched.SpawnActor(NewProps(func(ctx Context, msg interface{}) error {
		return errors.New("boom")
	}).WithSupervisor(AlwaysEscalate{}))
	require.NoError(t, err)

	require.NoError(t, sched.deliverUser(pid, NewUserPriorityEnvelope("trigger", nil, PriorityUserDefault)))
	sched.DispatchNext() // dispatches the failing handler, escalates, and attempts (and fails) once

	require.Equal(t, 1, attempts)
	require.NotEmpty(t, sched.escalations, "a failing custom handler must retain the escalation for retry")

	sched.DispatchNext() // ready queue is now empty; this cycle only retries the buffered escalation

	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for escalation retry to succeed")
	}
	require.Equal(t, 2, attempts)
	require.Empty(t, sched.escalations, "a successful retry must drain the escalations buffer")
}

func TestAlwaysStopSupervisorPrunesCellAfterFailure(t *testing.T) {
	sched := newTestScheduler()

	pid, err := sched.SpawnActor(NewProps(func(ctx Context, msg interface{}) error {
		return errors.New("fatal")
	}).WithSupervisor(AlwaysStop{}))
	require.NoError(t, err)

	require.NoError(t, sched.deliverUser(pid, NewUserPriorityEnvelope("a", nil, PriorityUserDefault)))
	sched.RunUntilIdle()
	sched.RunUntilIdle() // a no-op: the first pass already re-dispatched the cell for the guardian's SysStop and pruned it

	res := sched.config.ProcessRegistry.ResolvePid(pid)
	require.Equal(t, ResolvedNotFound, res.Kind)
}
