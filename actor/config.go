package actor

import (
	"sync"

	"go.uber.org/atomic"
)

// ExtensionID names one entry in an ExtensionRegistry.
type ExtensionID string

// ExtensionRegistry is the shared, read-mostly registry Context exposes
// as extensions()/extension::<E>(id, closure). Writes go through the
// registry's own mutex, independent of the scheduler lock.
type ExtensionRegistry struct {
	mu     sync.RWMutex
	values map[ExtensionID]interface{}
}

// NewExtensionRegistry returns an empty ExtensionRegistry.
func NewExtensionRegistry() *ExtensionRegistry {
	return &ExtensionRegistry{values: make(map[ExtensionID]interface{})}
}

// Set installs or replaces the value at id.
func (r *ExtensionRegistry) Set(id ExtensionID, value interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[id] = value
}

// Get returns the value at id, if any.
func (r *ExtensionRegistry) Get(id ExtensionID) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[id]
	return v, ok
}

// With looks up id and, if present, invokes f with the value while holding
// only a read lock, matching Context.extension::<E>(id, closure)'s shape.
func (r *ExtensionRegistry) With(id ExtensionID, f func(value interface{})) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[id]
	if !ok {
		return false
	}
	f(v)
	return true
}

// ShutdownToken is the cooperative, monotonic shutdown signal: workers
// check it each iteration and return cleanly, never via
// cancellation-induced panics.
type ShutdownToken struct {
	triggered atomic.Bool
	done      chan struct{}
	once      sync.Once
}

// NewShutdownToken returns an untriggered ShutdownToken.
func NewShutdownToken() *ShutdownToken {
	return &ShutdownToken{done: make(chan struct{})}
}

// Trigger requests shutdown. Idempotent.
func (t *ShutdownToken) Trigger() {
	if t.triggered.CompareAndSwap(false, true) {
		t.once.Do(func() { close(t.done) })
	}
}

// Triggered reports whether Trigger has been called.
func (t *ShutdownToken) Triggered() bool { return t.triggered.Load() }

// Done returns a channel closed once Trigger has been called, for use in a
// select alongside "ready signaled" in the worker loop.
func (t *ShutdownToken) Done() <-chan struct{} { return t.done }

// SchedulerConfig holds the ActorSystem's configuration, expressed as a
// typed, functional-options-built struct rather than a stringly-keyed map.
type SchedulerConfig struct {
	FailureEventListener    FailureEventListener
	ReceiveTimeoutFactory   ReceiveTimeoutSchedulerFactory
	MetricsSink             MetricsSink
	FailureTelemetry        FailureTelemetry
	FailureTelemetryBuilder func() FailureTelemetry
	FailureObservation      FailureObservationConfig
	Extensions              *ExtensionRegistry
	ReadyQueueWorkerCount   int
	SystemID                SystemId
	NodeID                  *NodeId
	MailboxFactory          MailboxFactory
	ProcessRegistry         ProcessRegistry
	CustomEscalationHandler func(info FailureInfo) error
	RootEscalationHandler   func(info FailureInfo) error
}

// SchedulerOption configures a SchedulerConfig in the functional-options
// style.
type SchedulerOption func(*SchedulerConfig)

// NewSchedulerConfig builds a SchedulerConfig with defaults: 1 ready-queue
// worker, a generated SystemID, the default priority mailbox factory, and
// a local-only ProcessRegistry.
func NewSchedulerConfig(opts ...SchedulerOption) SchedulerConfig {
	systemID := NewSystemId()
	cfg := SchedulerConfig{
		ReadyQueueWorkerCount: 1,
		SystemID:              systemID,
		MailboxFactory:        NewPriorityMailboxFactory(),
		ProcessRegistry:       NewLocalProcessRegistry(systemID),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func WithFailureEventListener(l FailureEventListener) SchedulerOption {
	return func(c *SchedulerConfig) { c.FailureEventListener = l }
}

func WithReceiveTimeoutFactory(f ReceiveTimeoutSchedulerFactory) SchedulerOption {
	return func(c *SchedulerConfig) { c.ReceiveTimeoutFactory = f }
}

func WithMetricsSink(sink MetricsSink) SchedulerOption {
	return func(c *SchedulerConfig) { c.MetricsSink = sink }
}

func WithFailureTelemetry(t FailureTelemetry) SchedulerOption {
	return func(c *SchedulerConfig) { c.FailureTelemetry = t }
}

func WithFailureTelemetryBuilder(b func() FailureTelemetry) SchedulerOption {
	return func(c *SchedulerConfig) { c.FailureTelemetryBuilder = b }
}

func WithFailureObservationConfig(o FailureObservationConfig) SchedulerOption {
	return func(c *SchedulerConfig) { c.FailureObservation = o }
}

func WithExtensions(r *ExtensionRegistry) SchedulerOption {
	return func(c *SchedulerConfig) { c.Extensions = r }
}

func WithReadyQueueWorkerCount(n int) SchedulerOption {
	return func(c *SchedulerConfig) {
		if n > 0 {
			c.ReadyQueueWorkerCount = n
		}
	}
}

func WithSystemID(id SystemId) SchedulerOption {
	return func(c *SchedulerConfig) { c.SystemID = id }
}

func WithNodeID(id NodeId) SchedulerOption {
	return func(c *SchedulerConfig) { c.NodeID = &id }
}

func WithMailboxFactory(f MailboxFactory) SchedulerOption {
	return func(c *SchedulerConfig) { c.MailboxFactory = f }
}

func WithProcessRegistry(r ProcessRegistry) SchedulerOption {
	return func(c *SchedulerConfig) { c.ProcessRegistry = r }
}

func WithCustomEscalationHandler(f func(info FailureInfo) error) SchedulerOption {
	return func(c *SchedulerConfig) { c.CustomEscalationHandler = f }
}

func WithRootEscalationHandler(f func(info FailureInfo) error) SchedulerOption {
	return func(c *SchedulerConfig) { c.RootEscalationHandler = f }
}
