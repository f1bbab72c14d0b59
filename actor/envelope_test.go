package actor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriorityEnvelopeChannelDominatesPriority(t *testing.T) {
	control := NewSystemPriorityEnvelope(SystemStop())
	user := NewUserPriorityEnvelope("hi", nil, PriorityStopEscalate)

	require.Equal(t, Control, control.Channel())
	require.Equal(t, Regular, user.Channel())
	require.Equal(t, PriorityStopEscalate, user.Priority(), "a user envelope may carry any priority value, even one numerically equal to a system one")
}

func TestSystemMessagePriorityAssignment(t *testing.T) {
	require.Equal(t, PriorityStopEscalate, SystemStop().Priority())
	require.Equal(t, PriorityStopEscalate, SystemEscalate(FailureInfo{}).Priority())
	require.Equal(t, PrioritySystemMedium, SystemRestart().Priority())
	require.Equal(t, PrioritySystemMedium, SystemSuspend().Priority())
	require.Equal(t, PrioritySystemMedium, SystemResume().Priority())
	require.Equal(t, PrioritySystemLow, SystemWatch(1).Priority())
	require.Equal(t, PrioritySystemLow, SystemUnwatch(1).Priority())
	require.Equal(t, PrioritySystemLow, SystemTerminated(1).Priority())
}

func TestPriorityEnvelopeMapPreservesSystemUnchanged(t *testing.T) {
	env := NewSystemPriorityEnvelope(SystemStop())
	mapped := env.Map(func(p interface{}) interface{} { return "mutated" })

	require.True(t, mapped.Message.IsSystem())
	require.Equal(t, SysStop, mapped.Message.System.Kind)
}

func TestPriorityEnvelopeMapTransformsUserPayload(t *testing.T) {
	env := NewUserPriorityEnvelope(1, nil, PriorityUserDefault)
	mapped := env.Map(func(p interface{}) interface{} { return p.(int) + 1 })

	require.Equal(t, 2, mapped.Message.Payload)
	require.Equal(t, env.Priority(), mapped.Priority())
	require.Equal(t, env.Channel(), mapped.Channel())
}

func TestSystemSuspendUntilAttachesResumeCondition(t *testing.T) {
	cond := ResumeWhenCapacity(0)
	msg := SystemSuspendUntil(cond)

	require.Equal(t, SysSuspend, msg.Kind)
	require.NotNil(t, msg.ResumeOn)
	require.True(t, msg.ResumeOn.Satisfied(0))
	require.False(t, msg.ResumeOn.Satisfied(5))
}
