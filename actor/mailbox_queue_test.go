package actor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func capOf(n int) *int { return &n }

func TestDrainBatchOrdersControlBeforeRegularRegardlessOfPriority(t *testing.T) {
	factory := NewPriorityMailboxFactory()
	mailbox, producer := factory.BuildMailbox(DefaultMailboxConfig())

	_, err := producer.TrySend(NewUserPriorityEnvelope("user-high", nil, PriorityStopEscalate))
	require.NoError(t, err)
	_, err = producer.TrySend(NewSystemPriorityEnvelope(SystemWatch(1)))
	require.NoError(t, err)

	batch := mailbox.DrainBatch()
	require.Len(t, batch, 2)
	require.True(t, batch[0].Message.IsSystem(), "Control always drains before Regular even though the user envelope carries a numerically higher priority")
	require.False(t, batch[1].Message.IsSystem())
}

func TestDrainBatchOrdersRegularByPriorityThenFIFO(t *testing.T) {
	factory := NewPriorityMailboxFactory()
	mailbox, producer := factory.BuildMailbox(DefaultMailboxConfig())

	_, _ = producer.TrySend(NewUserPriorityEnvelope("low-1", nil, 0))
	_, _ = producer.TrySend(NewUserPriorityEnvelope("high-1", nil, 5))
	_, _ = producer.TrySend(NewUserPriorityEnvelope("low-2", nil, 0))
	_, _ = producer.TrySend(NewUserPriorityEnvelope("high-2", nil, 5))

	batch := mailbox.DrainBatch()
	require.Len(t, batch, 4)
	require.Equal(t, "high-1", batch[0].Message.Payload)
	require.Equal(t, "high-2", batch[1].Message.Payload)
	require.Equal(t, "low-1", batch[2].Message.Payload)
	require.Equal(t, "low-2", batch[3].Message.Payload)
}

func TestDrainBatchOrdersControlByPriorityThenFIFO(t *testing.T) {
	factory := NewPriorityMailboxFactory()
	mailbox, producer := factory.BuildMailbox(DefaultMailboxConfig())

	_, _ = producer.TrySend(NewSystemPriorityEnvelope(SystemWatch(1)))   // low
	_, _ = producer.TrySend(NewSystemPriorityEnvelope(SystemStop()))     // highest
	_, _ = producer.TrySend(NewSystemPriorityEnvelope(SystemUnwatch(2))) // low

	batch := mailbox.DrainBatch()
	require.Len(t, batch, 3)
	require.Equal(t, SysStop, batch[0].Message.System.Kind)
	require.Equal(t, SysWatch, batch[1].Message.System.Kind)
	require.Equal(t, SysUnwatch, batch[2].Message.System.Kind)
}

func TestTrySendBlockPolicyRejectsOnceFull(t *testing.T) {
	cfg := DefaultMailboxConfig()
	cfg.Capacity = capOf(1)
	cfg.OverflowPolicy = Block
	_, producer := NewPriorityMailboxFactory().BuildMailbox(cfg)

	_, err := producer.TrySend(NewUserPriorityEnvelope("a", nil, 0))
	require.NoError(t, err)

	_, err = producer.TrySend(NewUserPriorityEnvelope("b", nil, 0))
	var qf *QueueFullError
	require.ErrorAs(t, err, &qf)
	require.Equal(t, Block, qf.Policy)
	require.Equal(t, "b", qf.Preserved.Message.Payload)
}

func TestTrySendDropOldestEvictsEarliestRegular(t *testing.T) {
	cfg := DefaultMailboxConfig()
	cfg.Capacity = capOf(2)
	cfg.OverflowPolicy = DropOldest
	mailbox, producer := NewPriorityMailboxFactory().BuildMailbox(cfg)

	_, _ = producer.TrySend(NewUserPriorityEnvelope("oldest", nil, 0))
	_, _ = producer.TrySend(NewUserPriorityEnvelope("middle", nil, 0))
	outcome, err := producer.TrySend(NewUserPriorityEnvelope("newest", nil, 0))
	require.NoError(t, err)
	require.Equal(t, OutcomeDroppedOldest, outcome.Kind)

	batch := mailbox.DrainBatch()
	require.Len(t, batch, 2)
	require.Equal(t, "middle", batch[0].Message.Payload)
	require.Equal(t, "newest", batch[1].Message.Payload)
}

func TestTrySendGrowExpandsCapacity(t *testing.T) {
	cfg := DefaultMailboxConfig()
	cfg.Capacity = capOf(1)
	cfg.OverflowPolicy = Grow
	_, producer := NewPriorityMailboxFactory().BuildMailbox(cfg)

	_, _ = producer.TrySend(NewUserPriorityEnvelope("a", nil, 0))
	outcome, err := producer.TrySend(NewUserPriorityEnvelope("b", nil, 0))
	require.NoError(t, err)
	require.Equal(t, OutcomeGrewTo, outcome.Kind)
	require.Equal(t, 3, outcome.Capacity)
}

func TestTrySendAfterCloseReturnsClosedError(t *testing.T) {
	mailbox, producer := NewPriorityMailboxFactory().BuildMailbox(DefaultMailboxConfig())
	mailbox.Close()

	_, err := producer.TrySend(NewUserPriorityEnvelope("a", nil, 0))
	var closedErr *ClosedError
	require.ErrorAs(t, err, &closedErr)
}

func TestCloseIsIdempotent(t *testing.T) {
	mailbox, _ := NewPriorityMailboxFactory().BuildMailbox(DefaultMailboxConfig())
	mailbox.Close()
	mailbox.Close()
	require.True(t, mailbox.Closed())
}
