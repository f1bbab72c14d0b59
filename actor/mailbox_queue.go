package actor

import (
	"context"
	"sort"
	"sync"

	"github.com/Workiva/go-datastructures/queue"
)

// priorityMailbox is the one concrete Mailbox/MailboxProducer pair this
// module ships; embedded/Tokio-backed storage is out of scope here, and
// only the MailboxFactory trait they'd satisfy is specified.
//
// Storage is split by channel: Control never evicts, so it is backed by
// github.com/Workiva/go-datastructures/queue.PriorityQueue, which gives
// heap-ordered highest-priority-first retrieval with a stable FIFO
// tie-break via a monotonic sequence number on each item. Regular is a
// plain insertion-ordered slice: insertion order is exactly what
// DropOldest/DropNewest eviction needs ("oldest" = earliest inserted), and
// since a mailbox's Regular queue is drained to empty every dispatch
// cycle, a single stable sort by (priority desc, seq asc)
// at drain time reproduces the same priority-then-insertion order Control
// gets "for free" from the heap, without paying heap-maintenance cost on
// every enqueue of what is typically a small per-cycle batch.
type priorityMailbox struct {
	mu      sync.Mutex
	control *queue.PriorityQueue
	regular []PriorityEnvelope

	capacity *int
	policy   OverflowPolicy
	closed   bool
	seq      uint64

	signal  *chanMailboxSignal
	metrics MetricsSink

	notifyEmptyToNonEmpty func() // scheduler wake-hook, set post-construction
}

// pqItem adapts a PriorityEnvelope to go-datastructures' queue.Item.
// The queue pops the smallest item first, so Compare returns <0 when the
// receiver should be dequeued before other: strictly higher Priority wins;
// on a tie, the lower sequence number (the earlier insertion) wins, giving
// FIFO tie-break within a priority level.
type pqItem struct{ env PriorityEnvelope }

func (i pqItem) Compare(other queue.Item) int {
	o := other.(pqItem)
	if i.env.priority != o.env.priority {
		if i.env.priority > o.env.priority {
			return -1
		}
		return 1
	}
	if i.env.seq < o.env.seq {
		return -1
	}
	if i.env.seq > o.env.seq {
		return 1
	}
	return 0
}

// priorityMailboxFactory is the default MailboxFactory implementation.
type priorityMailboxFactory struct{}

// NewPriorityMailboxFactory returns the module's default MailboxFactory.
func NewPriorityMailboxFactory() MailboxFactory { return priorityMailboxFactory{} }

func (priorityMailboxFactory) BuildMailbox(config MailboxConfig) (Mailbox, MailboxProducer) {
	hint := config.ControlCapacityPerLevel * maxInt(config.PriorityLevels, 1)
	if hint <= 0 {
		hint = 16
	}
	m := &priorityMailbox{
		control:  queue.NewPriorityQueue(hint, true),
		capacity: config.Capacity,
		policy:   config.OverflowPolicy,
		signal:   newMailboxSignal(),
	}
	return m, m
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (m *priorityMailbox) Signal() MailboxSignal { return m.signal }

// SetMetricsSink installs a metrics sink; used internally by the scheduler
// at spawn time when a global sink is configured. Not part of the exported
// Mailbox contract since a consumer never needs to install its own sink.
func (m *priorityMailbox) SetMetricsSink(sink MetricsSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = sink
}

// setWakeHook installs the scheduler's ready-queue wake callback, invoked
// exactly once per empty-to-non-empty transition.
func (m *priorityMailbox) setWakeHook(hook func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifyEmptyToNonEmpty = hook
}

func (m *priorityMailbox) lenLocked() int {
	return m.control.Len() + len(m.regular)
}

func (m *priorityMailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lenLocked()
}

func (m *priorityMailbox) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *priorityMailbox) nextSeq() uint64 {
	m.seq++
	return m.seq
}

func (m *priorityMailbox) TrySend(env PriorityEnvelope) (OfferOutcome, error) {
	m.mu.Lock()
	if m.closed {
		preserved := env
		m.mu.Unlock()
		return OfferOutcome{}, &ClosedError{Preserved: preserved}
	}

	wasEmpty := m.lenLocked() == 0
	env = env.WithSeq(m.nextSeq())

	if env.Channel() == Control {
		_ = m.control.Put(pqItem{env: env})
		m.recordEnqueued()
		m.mu.Unlock()
		m.afterEnqueue(wasEmpty)
		return OfferOutcome{Kind: OutcomeEnqueued}, nil
	}

	if m.capacity == nil || len(m.regular) < *m.capacity {
		m.regular = append(m.regular, env)
		m.recordEnqueued()
		m.mu.Unlock()
		m.afterEnqueue(wasEmpty)
		return OfferOutcome{Kind: OutcomeEnqueued}, nil
	}

	switch m.policy {
	case Block:
		m.mu.Unlock()
		return OfferOutcome{}, &QueueFullError{Policy: Block, Preserved: env}
	case DropNewest:
		m.mu.Unlock()
		return OfferOutcome{}, &QueueFullError{Policy: DropNewest, Preserved: env}
	case DropOldest:
		copy(m.regular, m.regular[1:])
		m.regular[len(m.regular)-1] = env
		m.recordDroppedOldest(1)
		m.recordEnqueued()
		m.mu.Unlock()
		m.afterEnqueue(wasEmpty)
		return OfferOutcome{Kind: OutcomeDroppedOldest, Count: 1}, nil
	case Grow:
		newCap := *m.capacity*2 + 1
		m.capacity = &newCap
		m.regular = append(m.regular, env)
		m.recordGrewTo(newCap)
		m.recordEnqueued()
		m.mu.Unlock()
		m.afterEnqueue(wasEmpty)
		return OfferOutcome{Kind: OutcomeGrewTo, Capacity: newCap}, nil
	default:
		m.mu.Unlock()
		return OfferOutcome{}, &QueueFullError{Policy: m.policy, Preserved: env}
	}
}

// afterEnqueue invokes the scheduler wake-hook exactly once per
// empty-to-non-empty transition, and latches the mailbox signal
// unconditionally (cheap, idempotent) so a direct Mailbox consumer not
// wired through a scheduler still observes the wake.
func (m *priorityMailbox) afterEnqueue(wasEmpty bool) {
	m.signal.Notify()
	if wasEmpty {
		m.mu.Lock()
		hook := m.notifyEmptyToNonEmpty
		m.mu.Unlock()
		if hook != nil {
			hook()
		}
	}
}

func (m *priorityMailbox) recordEnqueued() {
	if m.metrics != nil {
		m.metrics.Record(MetricsEvent{Kind: EventMailboxEnqueued})
	}
}

func (m *priorityMailbox) recordDequeued(n int) {
	if m.metrics != nil {
		for i := 0; i < n; i++ {
			m.metrics.Record(MetricsEvent{Kind: EventMailboxDequeued})
		}
	}
}

func (m *priorityMailbox) recordDroppedOldest(count int) {
	if m.metrics != nil {
		m.metrics.Record(MetricsEvent{Kind: EventMailboxDroppedOldest, Count: count})
	}
}

func (m *priorityMailbox) recordDroppedNewest(count int) {
	if m.metrics != nil {
		m.metrics.Record(MetricsEvent{Kind: EventMailboxDroppedNewest, Count: count})
	}
}

func (m *priorityMailbox) recordGrewTo(capacity int) {
	if m.metrics != nil {
		m.metrics.Record(MetricsEvent{Kind: EventMailboxGrewTo, Capacity: capacity})
	}
}

// DrainBatch returns every queued envelope in dispatch order: all Control
// envelopes (priority desc, FIFO tie-break), then all Regular envelopes
// (priority desc, FIFO tie-break). Channel is the dominant sort key so a
// Regular message can never numerically out-rank a Control message
// regardless of its user-assigned Priority value.
func (m *priorityMailbox) DrainBatch() []PriorityEnvelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PriorityEnvelope, 0, m.lenLocked())

	for m.control.Len() > 0 {
		items, err := m.control.Get(m.control.Len())
		if err != nil {
			break
		}
		for _, it := range items {
			out = append(out, it.(pqItem).env)
		}
	}

	if len(m.regular) > 0 {
		regular := m.regular
		m.regular = nil
		sort.SliceStable(regular, func(i, j int) bool {
			if regular[i].priority != regular[j].priority {
				return regular[i].priority > regular[j].priority
			}
			return regular[i].seq < regular[j].seq
		})
		out = append(out, regular...)
	}

	m.recordDequeued(len(out))
	return out
}

// Recv resolves once an envelope is available, draining the
// highest-priority one. It is provided for direct (non-scheduler)
// consumers; the scheduler's own dispatch loop uses DrainBatch directly
// under its own lock discipline instead.
func (m *priorityMailbox) Recv(ctx context.Context) (PriorityEnvelope, error) {
	for {
		m.mu.Lock()
		if m.control.Len() > 0 {
			items, err := m.control.Get(1)
			if err == nil && len(items) > 0 {
				m.recordDequeued(1)
				m.mu.Unlock()
				return items[0].(pqItem).env, nil
			}
		}
		if len(m.regular) > 0 {
			sort.SliceStable(m.regular, func(i, j int) bool {
				if m.regular[i].priority != m.regular[j].priority {
					return m.regular[i].priority > m.regular[j].priority
				}
				return m.regular[i].seq < m.regular[j].seq
			})
			env := m.regular[0]
			m.regular = m.regular[1:]
			m.recordDequeued(1)
			m.mu.Unlock()
			return env, nil
		}
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return PriorityEnvelope{}, &DisconnectedError{}
		}
		select {
		case <-ctx.Done():
			return PriorityEnvelope{}, &QueueError{Reason: "recv cancelled", Err: ctx.Err()}
		case <-m.signal.Wait():
		}
	}
}

func (m *priorityMailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.signal.Notify()
}

var (
	_ Mailbox         = (*priorityMailbox)(nil)
	_ MailboxProducer = (*priorityMailbox)(nil)
)
