package actor

// Handler is the boxed-closure shape an actor cell's handler takes:
// invoked once per drained user message, and once per ReceiveTimeoutMessage
// or Terminated notification the scheduler derives from a system message,
// with the in-handler Context surface. A returned error becomes a BehaviorFailure and is handed to
// the guardian.
type Handler func(ctx Context, msg interface{}) error

// NamingPolicyKind tags NamingPolicy's variant.
type NamingPolicyKind uint8

const (
	NamingAuto NamingPolicyKind = iota
	NamingPrefix
	NamingNamed
)

// NamingPolicy selects how a spawned child's name is derived.
type NamingPolicy struct {
	Kind NamingPolicyKind
	Name string // prefix for NamingPrefix, exact name for NamingNamed
}

// AutoName generates a name of the form "$c{seq}".
func AutoName() NamingPolicy { return NamingPolicy{Kind: NamingAuto} }

// PrefixName generates a name of the form "$prefix-{seq}".
func PrefixName(prefix string) NamingPolicy {
	return NamingPolicy{Kind: NamingPrefix, Name: prefix}
}

// NamedAs requests the exact name; spawn fails NameExistsError on a sibling
// collision under the same parent path.
func NamedAs(name string) NamingPolicy {
	return NamingPolicy{Kind: NamingNamed, Name: name}
}

// Props is the caller-facing configuration for one spawn: handler,
// mailbox shape, supervision strategy, and naming, built fluently and
// handed to SpawnActor/Context.SpawnChild.
type Props struct {
	Handler               Handler
	MailboxConfig         MailboxConfig
	Supervisor            Supervisor
	Naming                NamingPolicy
	MapSystem             SystemMapper
	ReceiveTimeoutFactory ReceiveTimeoutSchedulerFactory
	ReceiveTimeout        *ReceiveTimeoutConfig
}

// ReceiveTimeoutConfig captures an initial receive-timeout to arm at spawn.
type ReceiveTimeoutConfig struct {
	Duration int64 // nanoseconds
}

// NewProps builds a Props with the given handler and sane defaults: an
// AlwaysRestart supervisor, auto-generated name, default mailbox config,
// identity system mapping.
func NewProps(handler Handler) Props {
	return Props{
		Handler:       handler,
		MailboxConfig: DefaultMailboxConfig(),
		Supervisor:    AlwaysRestart{},
		Naming:        AutoName(),
		MapSystem:     IdentitySystemMapper,
	}
}

// WithSupervisor returns a copy of p using the given Supervisor.
func (p Props) WithSupervisor(s Supervisor) Props { p.Supervisor = s; return p }

// WithMailboxConfig returns a copy of p using the given MailboxConfig.
func (p Props) WithMailboxConfig(c MailboxConfig) Props { p.MailboxConfig = c; return p }

// WithNaming returns a copy of p using the given NamingPolicy.
func (p Props) WithNaming(n NamingPolicy) Props { p.Naming = n; return p }

// WithMapSystem returns a copy of p using the given SystemMapper.
func (p Props) WithMapSystem(m SystemMapper) Props { p.MapSystem = m; return p }

// ChildSpawnSpec is the spawn record a Context assembles from Props and
// hands to the scheduler's child-registration path: everything needed to
// build the child's mailbox, register it with the guardian, and fold its
// MailboxIndex into the ready-queue, in one synchronous call from within
// the parent's handler.
type ChildSpawnSpec struct {
	Mailbox    Mailbox
	Producer   MailboxProducer
	Supervisor Supervisor
	Handler    Handler
	Watchers   []ActorId
	MapSystem  SystemMapper
	ParentPath ActorPath
	Naming     NamingPolicy
	Extensions *ExtensionRegistry

	receiveTimeoutFactory ReceiveTimeoutSchedulerFactory
	receiveTimeout        *ReceiveTimeoutConfig
}
