package actor

import "sync"

// ProcessHandle is the minimal delivery surface a ProcessRegistry entry
// needs: enough to forward a message to whatever local actor (or, in a
// full deployment, remote transport) it addresses. Full PID routing and
// remote transport are out of scope here; this is the seam the core
// hands registrations through.
type ProcessHandle interface {
	SendUser(env PriorityEnvelope) error
	SendSystem(msg SystemMessage) error
}

// ProcessResolutionKind tags ProcessResolution's variant.
type ProcessResolutionKind uint8

const (
	ResolvedLocal ProcessResolutionKind = iota
	ResolvedRemote
	ResolvedDeadLetter
	ResolvedNotFound
)

// ProcessResolution is the result of resolving a Pid through a
// ProcessRegistry.
type ProcessResolution struct {
	Kind   ProcessResolutionKind
	Handle ProcessHandle
}

// DeadLetterReason tags why a message could not be delivered.
type DeadLetterReason uint8

const (
	DeliveryRejected DeadLetterReason = iota
	UnregisteredPid
	NetworkUnreachable
)

func (r DeadLetterReason) String() string {
	switch r {
	case DeliveryRejected:
		return "DeliveryRejected"
	case UnregisteredPid:
		return "UnregisteredPid"
	case NetworkUnreachable:
		return "NetworkUnreachable"
	default:
		return "Unknown"
	}
}

// DeadLetterEvent is handed to a DeadLetterListener when delivery fails
// terminally.
type DeadLetterEvent struct {
	Target  Pid
	Reason  DeadLetterReason
	Payload interface{}
}

// DeadLetterListener receives DeadLetterEvents from a ProcessRegistry.
type DeadLetterListener interface {
	OnDeadLetter(event DeadLetterEvent)
}

type funcDeadLetterListener func(event DeadLetterEvent)

func (f funcDeadLetterListener) OnDeadLetter(event DeadLetterEvent) { f(event) }

// DeadLetterListenerFunc adapts a plain function to DeadLetterListener.
func DeadLetterListenerFunc(f func(event DeadLetterEvent)) DeadLetterListener {
	return funcDeadLetterListener(f)
}

// ProcessRegistry is the external collaborator trait the core consumes for
// PID registration/resolution and dead-letter subscription. Remote
// transport, clustering and a production-grade registry are out of
// scope; this module only specifies the trait plus one local-only default.
type ProcessRegistry interface {
	RegisterLocal(path ActorPath, handle ProcessHandle) Pid
	ResolvePid(pid Pid) ProcessResolution
	Deregister(pid Pid)
	SubscribeDeadLetters(listener DeadLetterListener)
}

// LocalProcessRegistry is a minimal, single-process, map-backed
// ProcessRegistry default: enough for the in-process test harness and for
// a scheduler that never leaves one process. A clustered/remote registry
// is an external collaborator left to embedders.
type LocalProcessRegistry struct {
	mu        sync.RWMutex
	systemID  SystemId
	byPath    map[string]ProcessHandle
	listeners []DeadLetterListener
}

// NewLocalProcessRegistry builds a LocalProcessRegistry for one system id.
func NewLocalProcessRegistry(systemID SystemId) *LocalProcessRegistry {
	return &LocalProcessRegistry{
		systemID: systemID,
		byPath:   make(map[string]ProcessHandle),
	}
}

func (r *LocalProcessRegistry) RegisterLocal(path ActorPath, handle ProcessHandle) Pid {
	pid := Pid{System: r.systemID, Path: path.Clone()}
	r.mu.Lock()
	r.byPath[path.String()] = handle
	r.mu.Unlock()
	return pid
}

func (r *LocalProcessRegistry) ResolvePid(pid Pid) ProcessResolution {
	if !pid.Local() {
		return ProcessResolution{Kind: ResolvedRemote}
	}
	r.mu.RLock()
	handle, ok := r.byPath[pid.Path.String()]
	r.mu.RUnlock()
	if !ok {
		return ProcessResolution{Kind: ResolvedNotFound}
	}
	return ProcessResolution{Kind: ResolvedLocal, Handle: handle}
}

func (r *LocalProcessRegistry) Deregister(pid Pid) {
	r.mu.Lock()
	delete(r.byPath, pid.Path.String())
	r.mu.Unlock()
}

func (r *LocalProcessRegistry) SubscribeDeadLetters(listener DeadLetterListener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, listener)
	r.mu.Unlock()
}

// notifyDeadLetter is used internally by the scheduler/context when
// delivery to an unresolved or rejecting Pid fails.
func (r *LocalProcessRegistry) notifyDeadLetter(event DeadLetterEvent) {
	r.mu.RLock()
	listeners := make([]DeadLetterListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()
	for _, l := range listeners {
		l.OnDeadLetter(event)
	}
}

var _ ProcessRegistry = (*LocalProcessRegistry)(nil)
