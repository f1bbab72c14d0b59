package actor

import (
	"sync"

	"github.com/emirpasic/gods/lists/doublylinkedlist"
	"go.uber.org/atomic"
)

// MailboxIndex is the compact, dense index the ready-queue addresses actor
// cells by.
type MailboxIndex int

// ReadyQueueState is three parallel structures indexed by MailboxIndex: a
// FIFO deque of pending indices, and two flag arrays (queued/running). It
// carries its own lock, deliberately separate from the scheduler's
// dispatch lock: a mailbox's wake hook calls MarkReady synchronously from
// inside TrySend, which can itself run from code invoked while the
// scheduler's dispatch lock is held by the current goroutine (a handler
// sending to a sibling), so ReadyQueueState must not depend on that lock
// to stay reentrancy-safe. The flag arrays are nonetheless atomic.Bool
// (not plain bool) so that IsRunning and IsQueued can read them without
// taking this lock at all.
type ReadyQueueState struct {
	mu      sync.Mutex
	queue   *doublylinkedlist.List
	queued  []*atomic.Bool
	running []*atomic.Bool
}

// NewReadyQueueState returns an empty ReadyQueueState.
func NewReadyQueueState() *ReadyQueueState {
	return &ReadyQueueState{queue: doublylinkedlist.New()}
}

func (s *ReadyQueueState) ensure(idx MailboxIndex) {
	for MailboxIndex(len(s.queued)) <= idx {
		s.queued = append(s.queued, atomic.NewBool(false))
		s.running = append(s.running, atomic.NewBool(false))
	}
}

// Register grows the flag arrays to cover idx; called once at spawn time.
func (s *ReadyQueueState) Register(idx MailboxIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(idx)
}

// MarkReady enqueues idx if it is neither already queued nor currently
// running. If idx is running, the pending-work flag is latched so
// FinishDispatch re-enqueues it atomically once the current dispatch
// returns to idle.
func (s *ReadyQueueState) MarkReady(idx MailboxIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(idx)
	if s.running[idx].Load() {
		s.queued[idx].Store(true)
		return
	}
	if s.queued[idx].CompareAndSwap(false, true) {
		s.queue.Add(idx)
	}
}

// PopReady removes and returns the next ready index, marking it running.
// Returns ok=false if the queue is empty.
func (s *ReadyQueueState) PopReady() (MailboxIndex, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Empty() {
		return 0, false
	}
	v, _ := s.queue.Get(0)
	s.queue.Remove(0)
	idx := v.(MailboxIndex)
	s.queued[idx].Store(false)
	s.running[idx].Store(true)
	return idx, true
}

// FinishDispatch marks idx no longer running. If pending work arrived
// while it was running (queued latched true during MarkReady), or hasMore
// is true (the caller observed more work directly), idx is re-enqueued.
func (s *ReadyQueueState) FinishDispatch(idx MailboxIndex, hasMore bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(idx)
	s.running[idx].Store(false)
	if hasMore {
		s.queued[idx].Store(true)
	}
	if s.queued[idx].Load() {
		s.queue.Add(idx)
		return
	}
}

// IsRunning reports whether idx is currently under dispatch. It reads the
// atomic flag directly without taking the state's lock.
func (s *ReadyQueueState) IsRunning(idx MailboxIndex) bool {
	if idx >= MailboxIndex(len(s.running)) {
		return false
	}
	return s.running[idx].Load()
}

// IsQueued reports whether idx is currently pending in the ready deque,
// under the same no-lock discipline as IsRunning.
func (s *ReadyQueueState) IsQueued(idx MailboxIndex) bool {
	if idx >= MailboxIndex(len(s.queued)) {
		return false
	}
	return s.queued[idx].Load()
}

// Reset clears idx's flags without removing it from the deque (the caller
// is responsible for ensuring idx is not already queued before reuse, e.g.
// after pruning a stopped cell and before reassigning its index to a new
// one, see scheduler.go's free-index list).
func (s *ReadyQueueState) Reset(idx MailboxIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(idx)
	s.queued[idx].Store(false)
	s.running[idx].Store(false)
}

// Len reports how many indices are currently pending in the deque.
func (s *ReadyQueueState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Size()
}
