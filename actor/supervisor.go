package actor

// SupervisorDirective is the decision a Supervisor returns for a failed
// child.
type SupervisorDirective uint8

const (
	DirectiveResume SupervisorDirective = iota
	DirectiveRestart
	DirectiveStop
	DirectiveEscalate
)

func (d SupervisorDirective) String() string {
	switch d {
	case DirectiveResume:
		return "Resume"
	case DirectiveRestart:
		return "Restart"
	case DirectiveStop:
		return "Stop"
	case DirectiveEscalate:
		return "Escalate"
	default:
		return "Unknown"
	}
}

// Supervisor is the per-cell strategy contract: BeforeHandle/AfterHandle
// bracket every user-message invocation, and Decide is consulted by the
// guardian on a child failure.
type Supervisor interface {
	BeforeHandle()
	AfterHandle()
	Decide(failure *BehaviorFailure) SupervisorDirective
}

// baseSupervisor gives the built-in strategies no-op BeforeHandle/
// AfterHandle so only Decide needs overriding.
type baseSupervisor struct{}

func (baseSupervisor) BeforeHandle() {}
func (baseSupervisor) AfterHandle()  {}

// AlwaysRestart always directs Restart.
type AlwaysRestart struct{ baseSupervisor }

func (AlwaysRestart) Decide(*BehaviorFailure) SupervisorDirective { return DirectiveRestart }

// AlwaysStop always directs Stop.
type AlwaysStop struct{ baseSupervisor }

func (AlwaysStop) Decide(*BehaviorFailure) SupervisorDirective { return DirectiveStop }

// AlwaysResume always directs Resume.
type AlwaysResume struct{ baseSupervisor }

func (AlwaysResume) Decide(*BehaviorFailure) SupervisorDirective { return DirectiveResume }

// AlwaysEscalate always directs Escalate.
type AlwaysEscalate struct{ baseSupervisor }

func (AlwaysEscalate) Decide(*BehaviorFailure) SupervisorDirective { return DirectiveEscalate }

// PolicyFunc adapts a plain decide function to a full Supervisor with
// no-op BeforeHandle/AfterHandle, for embedders who only care about the
// decision and not the before/after hooks.
type PolicyFunc struct {
	baseSupervisor
	Decider func(failure *BehaviorFailure) SupervisorDirective
}

func (p PolicyFunc) Decide(failure *BehaviorFailure) SupervisorDirective {
	if p.Decider == nil {
		return DirectiveEscalate
	}
	return p.Decider(failure)
}

var (
	_ Supervisor = AlwaysRestart{}
	_ Supervisor = AlwaysStop{}
	_ Supervisor = AlwaysResume{}
	_ Supervisor = AlwaysEscalate{}
	_ Supervisor = PolicyFunc{}
)
