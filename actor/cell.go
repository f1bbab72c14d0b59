package actor

import (
	"time"

	"github.com/emirpasic/gods/sets/hashset"
)

// ActorCell is the scheduler-owned state backing one actor: its address,
// mailbox, supervision strategy, user handler, death-watch set and optional
// receive-timeout watchdog. Every field here is
// touched only from dispatch code holding the scheduler's single lock, or
// is itself independently synchronized (mailbox, receiveTimeout).
type ActorCell struct {
	id        ActorId
	path      ActorPath
	hasParent bool
	parentID  ActorId

	index MailboxIndex

	mailbox    Mailbox
	producer   MailboxProducer
	supervisor Supervisor
	handler    Handler
	mapSystem  SystemMapper

	watchers *hashset.Set // ActorId values watching this cell for termination

	receiveTimeout        ReceiveTimeoutScheduler
	receiveTimeoutFactory ReceiveTimeoutSchedulerFactory

	extensions *ExtensionRegistry

	stopped         bool
	suspended       bool
	resumeCondition *ResumeCondition
}

func newActorCell(id ActorId, path ActorPath, hasParent bool, parentID ActorId, spec ChildSpawnSpec) *ActorCell {
	mapSystem := spec.MapSystem
	if mapSystem == nil {
		mapSystem = IdentitySystemMapper
	}
	cell := &ActorCell{
		id:                    id,
		path:                  path,
		hasParent:             hasParent,
		parentID:              parentID,
		mailbox:               spec.Mailbox,
		producer:              spec.Producer,
		supervisor:            spec.Supervisor,
		handler:               spec.Handler,
		mapSystem:             mapSystem,
		watchers:              hashset.New(),
		extensions:            spec.Extensions,
		receiveTimeoutFactory: spec.receiveTimeoutFactory,
	}
	for _, w := range spec.Watchers {
		cell.watchers.Add(w)
	}
	if cell.receiveTimeoutFactory != nil {
		cell.receiveTimeout = cell.receiveTimeoutFactory.Create(cell.producer, cell.mapSystem)
		if spec.receiveTimeout != nil {
			cell.receiveTimeout.Set(time.Duration(spec.receiveTimeout.Duration))
		}
	}
	return cell
}

// addWatcher registers watcher to be notified with SysTerminated once this
// cell finishes stopping.
func (c *ActorCell) addWatcher(watcher ActorId) { c.watchers.Add(watcher) }

// removeWatcher deregisters watcher.
func (c *ActorCell) removeWatcher(watcher ActorId) { c.watchers.Remove(watcher) }

// watcherList snapshots the current watcher set as a slice.
func (c *ActorCell) watcherList() []ActorId {
	values := c.watchers.Values()
	out := make([]ActorId, len(values))
	for i, v := range values {
		out[i] = v.(ActorId)
	}
	return out
}

// notifyActivity pings the cell's receive-timeout watchdog, if one is
// configured, before each user message is handed to the handler.
func (c *ActorCell) notifyActivity() {
	if c.receiveTimeout != nil {
		c.receiveTimeout.NotifyActivity()
	}
}

// setReceiveTimeout arms (or disarms, for d<=0) the watchdog, lazily
// building one from the configured factory if none exists yet.
func (c *ActorCell) setReceiveTimeout(d time.Duration, factory ReceiveTimeoutSchedulerFactory) {
	if c.receiveTimeout == nil {
		if c.receiveTimeoutFactory == nil {
			c.receiveTimeoutFactory = factory
		}
		if c.receiveTimeoutFactory == nil {
			c.receiveTimeoutFactory = NewTimerReceiveTimeoutSchedulerFactory()
		}
		c.receiveTimeout = c.receiveTimeoutFactory.Create(c.producer, c.mapSystem)
	}
	if d <= 0 {
		c.receiveTimeout.Cancel()
		return
	}
	c.receiveTimeout.Set(d)
}

func (c *ActorCell) cancelReceiveTimeout() {
	if c.receiveTimeout != nil {
		c.receiveTimeout.Cancel()
	}
}
