package actor

import (
	"time"

	"go.uber.org/atomic"
)

// ResumeConditionKind tags ResumeCondition's variant.
type ResumeConditionKind uint8

const (
	// ResumeAfterKind resumes once a fixed duration has elapsed.
	ResumeAfterKind ResumeConditionKind = iota
	// ResumeWhenCapacityKind resumes once mailbox length falls to or below
	// a threshold.
	ResumeWhenCapacityKind
	// ResumeOnSignalKind resumes once an external caller fires the paired
	// trigger function returned by ResumeOnSignal.
	ResumeOnSignalKind
)

// ResumeCondition is the predicate a suspended cell is checked against
// before each dispatch, covering the three ways a backpressure-suspended
// actor can become eligible to run again. A single Satisfied(mailboxLen)
// check covers all three variants, so the scheduler's dispatch loop needs
// no per-kind branching.
type ResumeCondition struct {
	kind              ResumeConditionKind
	deadline          time.Time
	capacityThreshold int
	triggered         *atomic.Bool
}

// ResumeAfter resumes once d has elapsed since the condition was attached.
func ResumeAfter(d time.Duration) ResumeCondition {
	return ResumeCondition{kind: ResumeAfterKind, deadline: time.Now().Add(d)}
}

// ResumeWhenCapacity resumes once the mailbox's length is at or below
// threshold.
func ResumeWhenCapacity(threshold int) ResumeCondition {
	return ResumeCondition{kind: ResumeWhenCapacityKind, capacityThreshold: threshold}
}

// ResumeOnSignal returns a condition plus the trigger function an external
// caller invokes once to mark it satisfied.
func ResumeOnSignal() (ResumeCondition, func()) {
	flag := atomic.NewBool(false)
	cond := ResumeCondition{kind: ResumeOnSignalKind, triggered: flag}
	return cond, func() { flag.Store(true) }
}

// Satisfied reports whether the condition currently holds, given the
// suspended cell's current mailbox length.
func (c ResumeCondition) Satisfied(mailboxLen int) bool {
	switch c.kind {
	case ResumeAfterKind:
		return !time.Now().Before(c.deadline)
	case ResumeWhenCapacityKind:
		return mailboxLen <= c.capacityThreshold
	case ResumeOnSignalKind:
		return c.triggered != nil && c.triggered.Load()
	default:
		return false
	}
}
