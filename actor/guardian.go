package actor

import (
	"fmt"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// RestartStatistics tracks per-child failure accounting: count and first/
// last failure timestamps. It exists to support future restart-rate-
// limiting strategies at negligible cost, so every child carries one,
// read-only to supervisors via ChildRestartStatistics.
type RestartStatistics struct {
	mu             sync.RWMutex
	count          int
	firstFailureAt *time.Time
	lastFailureAt  *time.Time
}

func newRestartStatistics() *RestartStatistics { return &RestartStatistics{} }

func (r *RestartStatistics) record(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	if r.firstFailureAt == nil {
		r.firstFailureAt = &now
	}
	r.lastFailureAt = &now
}

// Count returns the number of failures recorded.
func (r *RestartStatistics) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

type childEntry struct {
	id         ActorId
	path       ActorPath
	name       string
	parentPath ActorPath
	producer   MailboxProducer
	supervisor Supervisor
	mapSystem  SystemMapper
	stats      *RestartStatistics
	removing   bool
}

// Guardian registers children under an actor path and routes escalations,
// applying supervisor decisions. One Guardian instance backs one
// scheduler; register_child/notify_failure are invoked only from dispatch
// code already holding the scheduler's lock, but the
// sibling-name index is additionally safe to query from other goroutines,
// e.g. an ActorRef handle held on a caller's goroutine checking whether
// a sibling name is already taken while this scheduler's dispatch loop
// runs concurrently in a multi-scheduler deployment, so it is backed by
// github.com/orcaman/concurrent-map/v2 rather than the same mutex that
// guards `children`.
type Guardian struct {
	mu           sync.Mutex
	children     map[ActorId]*childEntry
	siblingNames cmap.ConcurrentMap[string, ActorId]
	nameSeq      uint64
}

// NewGuardian returns an empty Guardian.
func NewGuardian() *Guardian {
	return &Guardian{
		children:     make(map[ActorId]*childEntry),
		siblingNames: cmap.New[ActorId](),
	}
}

func siblingKey(parentPath ActorPath, name string) string {
	return parentPath.String() + "/" + name
}

// RegisterChild resolves a name for spec per its NamingPolicy and registers
// the already-allocated (id, path) pair as a child under spec.ParentPath.
// The id and path are chosen by the caller (Context.SpawnChild, via the
// scheduler's lock-free id allocator) before this call, so that a naming
// collision is the only way registration can fail and the caller can
// allocate the child's mailbox ahead of the call without risking a wasted
// allocation on the common, non-colliding path.
func (g *Guardian) RegisterChild(spec ChildSpawnSpec, id ActorId, path ActorPath) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	name, err := g.resolveName(spec.ParentPath, spec.Naming)
	if err != nil {
		return err
	}

	mapSystem := spec.MapSystem
	if mapSystem == nil {
		mapSystem = IdentitySystemMapper
	}

	g.children[id] = &childEntry{
		id:         id,
		path:       path,
		name:       name,
		parentPath: spec.ParentPath,
		producer:   spec.Producer,
		supervisor: spec.Supervisor,
		mapSystem:  mapSystem,
		stats:      newRestartStatistics(),
	}
	g.siblingNames.Set(siblingKey(spec.ParentPath, name), id)
	return nil
}

func (g *Guardian) resolveName(parentPath ActorPath, naming NamingPolicy) (string, error) {
	switch naming.Kind {
	case NamingNamed:
		key := siblingKey(parentPath, naming.Name)
		if _, exists := g.siblingNames.Get(key); exists {
			return "", &NameExistsError{Name: naming.Name}
		}
		return naming.Name, nil
	case NamingPrefix:
		for {
			g.nameSeq++
			name := fmt.Sprintf("$%s-%d", naming.Name, g.nameSeq)
			if _, exists := g.siblingNames.Get(siblingKey(parentPath, name)); !exists {
				return name, nil
			}
		}
	default: // NamingAuto
		for {
			g.nameSeq++
			name := fmt.Sprintf("$c%d", g.nameSeq)
			if _, exists := g.siblingNames.Get(siblingKey(parentPath, name)); !exists {
				return name, nil
			}
		}
	}
}

// NotifyFailure applies the child's supervisor decision: Resume is a no-op,
// Restart/Stop send the corresponding system message to the child's own
// mailbox, and Escalate returns a new FailureInfo for the caller to push
// through the composite escalation sink.
func (g *Guardian) NotifyFailure(actor ActorId, failure *BehaviorFailure) (*FailureInfo, error) {
	g.mu.Lock()
	entry, ok := g.children[actor]
	g.mu.Unlock()
	if !ok {
		return nil, &QueueError{Reason: fmt.Sprintf("notify_failure: unknown actor %s", actor)}
	}

	entry.stats.record(time.Now())
	directive := entry.supervisor.Decide(failure)

	switch directive {
	case DirectiveResume:
		return nil, nil
	case DirectiveRestart:
		env := NewSystemPriorityEnvelope(entry.mapSystem(SystemRestart()))
		if _, err := entry.producer.TrySend(env); err != nil {
			return nil, &QueueError{Reason: "notify_failure: restart send failed", Err: err}
		}
		return nil, nil
	case DirectiveStop:
		env := NewSystemPriorityEnvelope(entry.mapSystem(SystemStop()))
		g.mu.Lock()
		entry.removing = true
		g.mu.Unlock()
		if _, err := entry.producer.TrySend(env); err != nil {
			return nil, &QueueError{Reason: "notify_failure: stop send failed", Err: err}
		}
		return nil, nil
	case DirectiveEscalate:
		info := NewFailureInfo(actor, entry.path, failure)
		return &info, nil
	default:
		return nil, &QueueError{Reason: "notify_failure: unknown directive"}
	}
}

// EscalateFailure forwards info to the child entry named by info.Actor:
// by the time this is called, info has already been advanced to the
// parent's ActorId/path via FailureInfo.EscalateToParent. Returns
// handled=false (not an error) if info.Actor names no registered child,
// letting the composite sink fall through to its later stages.
func (g *Guardian) EscalateFailure(info FailureInfo) (handled bool, err error) {
	g.mu.Lock()
	entry, ok := g.children[info.Actor]
	g.mu.Unlock()
	if !ok {
		return false, nil
	}
	env := NewSystemPriorityEnvelope(entry.mapSystem(SystemEscalate(info)))
	if _, sendErr := entry.producer.TrySend(env); sendErr != nil {
		return false, &QueueError{Reason: "escalate_failure: send failed", Err: sendErr}
	}
	return true, nil
}

// RemoveChild deregisters actor; it is safe to call even if actor is
// unknown (no-op).
func (g *Guardian) RemoveChild(actor ActorId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.children[actor]
	if !ok {
		return
	}
	delete(g.children, actor)
	g.siblingNames.Remove(siblingKey(entry.parentPath, entry.name))
}

// ChildRoute returns the (producer, mapSystem) pair the composite sink
// forwards escalations through.
func (g *Guardian) ChildRoute(actor ActorId) (MailboxProducer, SystemMapper, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.children[actor]
	if !ok {
		return nil, nil, false
	}
	return entry.producer, entry.mapSystem, true
}

// MarkedForRemoval reports whether actor was marked by a prior Stop
// directive, used by the scheduler's prune-on-drain step.
func (g *Guardian) MarkedForRemoval(actor ActorId) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.children[actor]
	return ok && entry.removing
}

// ChildRestartStatistics exposes the read-only restart accounting for
// actor, if registered.
func (g *Guardian) ChildRestartStatistics(actor ActorId) (*RestartStatistics, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.children[actor]
	if !ok {
		return nil, false
	}
	return entry.stats, true
}
