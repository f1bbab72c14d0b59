package actor

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// ActorId is an opaque, dense, per-scheduler integer identifying one actor
// cell. ROOT is reserved for the scheduler's implicit root guardian.
type ActorId uint64

// ROOT is the reserved ActorId of the root guardian.
const ROOT ActorId = 0

func (id ActorId) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// actorIDAllocator hands out dense, monotonically increasing ActorIds per
// scheduler instance. Backed by go.uber.org/atomic-style lock-free
// increment (via the stdlib atomic package directly on a uint64, since
// go.uber.org/atomic's value is used for the richer Bool flags
// elsewhere in this package, see ready_queue.go and config.go).
type actorIDAllocator struct {
	next uint64
}

func newActorIDAllocator() *actorIDAllocator {
	// 0 is reserved for ROOT; the first allocated id is 1.
	return &actorIDAllocator{next: 1}
}

func (a *actorIDAllocator) allocate() ActorId {
	return ActorId(atomic.AddUint64(&a.next, 1) - 1)
}

// ActorPath is an ordered sequence of ActorIds from root to the addressed
// actor, used both for addressing and for escalation routing.
type ActorPath []ActorId

// Root reports whether this path is the empty (root) path.
func (p ActorPath) Root() bool { return len(p) == 0 }

// Parent returns the path one hop up, and false if p is already root.
func (p ActorPath) Parent() (ActorPath, bool) {
	if len(p) == 0 {
		return nil, false
	}
	parent := make(ActorPath, len(p)-1)
	copy(parent, p[:len(p)-1])
	return parent, true
}

// Child returns a new path with id appended.
func (p ActorPath) Child(id ActorId) ActorPath {
	child := make(ActorPath, len(p)+1)
	copy(child, p)
	child[len(p)] = id
	return child
}

// Leaf returns the last element of the path (the addressed actor itself),
// and false for the root path.
func (p ActorPath) Leaf() (ActorId, bool) {
	if len(p) == 0 {
		return 0, false
	}
	return p[len(p)-1], true
}

func (p ActorPath) String() string {
	parts := make([]string, len(p))
	for i, id := range p {
		parts[i] = id.String()
	}
	return "/" + strings.Join(parts, "/")
}

// Equal reports whether p and o name the same path.
func (p ActorPath) Equal(o ActorPath) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Clone returns a defensive copy of p.
func (p ActorPath) Clone() ActorPath {
	c := make(ActorPath, len(p))
	copy(c, p)
	return c
}

// SystemId identifies one ActorSystem instance within a process or cluster.
type SystemId string

// NodeId identifies one physical/logical node in a (possibly remote)
// deployment. Local PIDs carry no NodeId.
type NodeId string

// NewSystemId generates a default SystemId when the embedder does not
// supply one via SchedulerConfig.WithSystemID.
func NewSystemId() SystemId {
	return SystemId(uuid.NewString())
}

// Pid addresses one actor, locally or (conceptually) remotely. Remote
// transport itself is out of scope here; NodeId is carried so the
// external collaborators the core hands Pids to (ProcessRegistry, remote
// codecs) have somewhere to put it.
type Pid struct {
	System SystemId
	Path   ActorPath
	Node   *NodeId
}

// Local reports whether this Pid names a local actor (no NodeId attached).
func (p Pid) Local() bool { return p.Node == nil }

func (p Pid) String() string {
	if p.Node != nil {
		return string(p.System) + "@" + string(*p.Node) + p.Path.String()
	}
	return string(p.System) + p.Path.String()
}
