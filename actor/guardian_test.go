package actor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeProducer records every envelope offered to it, standing in for a
// cell's real MailboxProducer in tests that don't need a full scheduler.
// Guarded by a mutex since receive-timeout tests fire it from a timer
// goroutine concurrently with the test goroutine's assertions.
type fakeProducer struct {
	mu   sync.Mutex
	sent []PriorityEnvelope
}

func (p *fakeProducer) TrySend(env PriorityEnvelope) (OfferOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, env)
	return OfferOutcome{Kind: OutcomeEnqueued}, nil
}

func (p *fakeProducer) Signal() MailboxSignal { return nil }

func (p *fakeProducer) snapshot() []PriorityEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PriorityEnvelope, len(p.sent))
	copy(out, p.sent)
	return out
}

func registerTestChild(t *testing.T, g *Guardian, id ActorId, naming NamingPolicy, supervisor Supervisor) (*fakeProducer, ActorPath) {
	t.Helper()
	producer := &fakeProducer{}
	path := ActorPath{id}
	spec := ChildSpawnSpec{
		Producer:   producer,
		Supervisor: supervisor,
		ParentPath: ActorPath{},
		Naming:     naming,
	}
	require.NoError(t, g.RegisterChild(spec, id, path))
	return producer, path
}

func TestRegisterChildRejectsDuplicateNamedSibling(t *testing.T) {
	g := NewGuardian()
	_, _ = registerTestChild(t, g, 1, NamedAs("worker"), AlwaysRestart{})

	err := g.RegisterChild(ChildSpawnSpec{
		Producer:   &fakeProducer{},
		Supervisor: AlwaysRestart{},
		ParentPath: ActorPath{},
		Naming:     NamedAs("worker"),
	}, 2, ActorPath{2})

	var nameErr *NameExistsError
	require.ErrorAs(t, err, &nameErr)
	require.Equal(t, "worker", nameErr.Name)
}

func TestRegisterChildAutoNamingNeverCollides(t *testing.T) {
	g := NewGuardian()
	for i := ActorId(1); i <= 5; i++ {
		err := g.RegisterChild(ChildSpawnSpec{
			Producer:   &fakeProducer{},
			Supervisor: AlwaysRestart{},
			ParentPath: ActorPath{},
			Naming:     AutoName(),
		}, i, ActorPath{i})
		require.NoError(t, err)
	}
	stats, ok := g.ChildRestartStatistics(1)
	require.True(t, ok)
	require.Equal(t, 0, stats.Count())
}

func TestNotifyFailureRestartSendsSysRestart(t *testing.T) {
	g := NewGuardian()
	producer, _ := registerTestChild(t, g, 1, NamedAs("kid"), AlwaysRestart{})

	info, err := g.NotifyFailure(1, NewBehaviorFailure(errStub{}))
	require.NoError(t, err)
	require.Nil(t, info)
	require.Len(t, producer.sent, 1)
	require.Equal(t, SysRestart, producer.sent[0].Message.System.Kind)

	stats, ok := g.ChildRestartStatistics(1)
	require.True(t, ok)
	require.Equal(t, 1, stats.Count())
}

func TestNotifyFailureStopSendsSysStopAndMarksForRemoval(t *testing.T) {
	g := NewGuardian()
	producer, _ := registerTestChild(t, g, 1, NamedAs("kid"), AlwaysStop{})

	_, err := g.NotifyFailure(1, NewBehaviorFailure(errStub{}))
	require.NoError(t, err)
	require.Len(t, producer.sent, 1)
	require.Equal(t, SysStop, producer.sent[0].Message.System.Kind)
	require.True(t, g.MarkedForRemoval(1))
}

func TestNotifyFailureEscalateReturnsFailureInfoAtOrigin(t *testing.T) {
	g := NewGuardian()
	_, path := registerTestChild(t, g, 1, NamedAs("kid"), AlwaysEscalate{})

	info, err := g.NotifyFailure(1, NewBehaviorFailure(errStub{}))
	require.NoError(t, err)
	require.NotNil(t, info)
	require.Equal(t, ActorId(1), info.Actor)
	require.Equal(t, path, info.Path)
	require.Equal(t, uint32(0), info.Stage.Hops())
	require.Equal(t, ActorId(1), info.Stage.Origin())
}

func TestNotifyFailureResumeIsNoOp(t *testing.T) {
	g := NewGuardian()
	producer, _ := registerTestChild(t, g, 1, NamedAs("kid"), AlwaysResume{})

	info, err := g.NotifyFailure(1, NewBehaviorFailure(errStub{}))
	require.NoError(t, err)
	require.Nil(t, info)
	require.Empty(t, producer.sent)
}

func TestRemoveChildFreesSiblingName(t *testing.T) {
	g := NewGuardian()
	registerTestChild(t, g, 1, NamedAs("kid"), AlwaysRestart{})
	g.RemoveChild(1)

	err := g.RegisterChild(ChildSpawnSpec{
		Producer:   &fakeProducer{},
		Supervisor: AlwaysRestart{},
		ParentPath: ActorPath{},
		Naming:     NamedAs("kid"),
	}, 2, ActorPath{2})
	require.NoError(t, err, "removing a child must free its name for reuse by a sibling")
}

type errStub struct{}

func (errStub) Error() string { return "stub failure" }
