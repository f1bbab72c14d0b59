package actor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerReceiveTimeoutFiresSysReceiveTimeout(t *testing.T) {
	producer := &fakeProducer{}
	factory := NewTimerReceiveTimeoutSchedulerFactory()
	scheduler := factory.Create(producer, IdentitySystemMapper)

	scheduler.Set(20 * time.Millisecond)
	require.Eventually(t, func() bool {
		return len(producer.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, SysReceiveTimeout, producer.snapshot()[0].Message.System.Kind)
}

func TestTimerReceiveTimeoutNotifyActivityPostponesFire(t *testing.T) {
	producer := &fakeProducer{}
	factory := NewTimerReceiveTimeoutSchedulerFactory()
	scheduler := factory.Create(producer, IdentitySystemMapper)

	scheduler.Set(40 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	scheduler.NotifyActivity()
	time.Sleep(30 * time.Millisecond)
	require.Empty(t, producer.snapshot(), "NotifyActivity must reset the deadline so the original 40ms window never elapses uninterrupted")

	require.Eventually(t, func() bool {
		return len(producer.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestTimerReceiveTimeoutCancelSuppressesFire(t *testing.T) {
	producer := &fakeProducer{}
	factory := NewTimerReceiveTimeoutSchedulerFactory()
	scheduler := factory.Create(producer, IdentitySystemMapper)

	scheduler.Set(15 * time.Millisecond)
	scheduler.Cancel()
	time.Sleep(40 * time.Millisecond)
	require.Empty(t, producer.snapshot())
}

func TestReceiveTimeoutMapSystemIsApplied(t *testing.T) {
	producer := &fakeProducer{}
	factory := NewTimerReceiveTimeoutSchedulerFactory()
	mapped := func(msg SystemMessage) SystemMessage {
		msg.Kind = SysWatch
		return msg
	}
	scheduler := factory.Create(producer, mapped)

	scheduler.Set(10 * time.Millisecond)
	require.Eventually(t, func() bool {
		return len(producer.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, SysWatch, producer.snapshot()[0].Message.System.Kind)
}
