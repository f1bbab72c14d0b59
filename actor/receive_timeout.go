package actor

import (
	"sync"
	"time"
)

// SystemMapper transforms a SystemMessage before it is handed to a
// producer, used when a message is routed through an adapter or down to
// a child whose handler expects a mapped representation. The identity
// mapper (IdentitySystemMapper) is used whenever no adaptation is needed.
type SystemMapper func(SystemMessage) SystemMessage

// IdentitySystemMapper returns msg unchanged.
func IdentitySystemMapper(msg SystemMessage) SystemMessage { return msg }

// ReceiveTimeoutScheduler is the per-cell watchdog contract:
// Set/Cancel/NotifyActivity. After each non-system message the cell calls
// NotifyActivity; once Set's duration elapses without activity, the
// scheduler enqueues a timeout system message through the cell's producer.
type ReceiveTimeoutScheduler interface {
	Set(d time.Duration)
	Cancel()
	NotifyActivity()
}

// ReceiveTimeoutSchedulerFactory is the external collaborator trait used to
// build one ReceiveTimeoutScheduler per actor cell.
type ReceiveTimeoutSchedulerFactory interface {
	Create(producer MailboxProducer, mapSystem SystemMapper) ReceiveTimeoutScheduler
}

// timerReceiveTimeoutScheduler is the module's default, time.Timer-backed
// ReceiveTimeoutScheduler. Tokio/embedded-specific timer drivers are out
// of scope here; only this trait needs satisfying.
type timerReceiveTimeoutScheduler struct {
	mu        sync.Mutex
	producer  MailboxProducer
	mapSystem SystemMapper
	timer     *time.Timer
	duration  time.Duration
}

type timerReceiveTimeoutSchedulerFactory struct{}

// NewTimerReceiveTimeoutSchedulerFactory returns the module's default
// ReceiveTimeoutSchedulerFactory.
func NewTimerReceiveTimeoutSchedulerFactory() ReceiveTimeoutSchedulerFactory {
	return timerReceiveTimeoutSchedulerFactory{}
}

func (timerReceiveTimeoutSchedulerFactory) Create(producer MailboxProducer, mapSystem SystemMapper) ReceiveTimeoutScheduler {
	if mapSystem == nil {
		mapSystem = IdentitySystemMapper
	}
	return &timerReceiveTimeoutScheduler{producer: producer, mapSystem: mapSystem}
}

func (s *timerReceiveTimeoutScheduler) Set(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duration = d
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, s.fire)
}

func (s *timerReceiveTimeoutScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.duration = 0
}

func (s *timerReceiveTimeoutScheduler) NotifyActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil || s.duration == 0 {
		return
	}
	s.timer.Stop()
	s.timer = time.AfterFunc(s.duration, s.fire)
}

func (s *timerReceiveTimeoutScheduler) fire() {
	s.mu.Lock()
	producer := s.producer
	mapSystem := s.mapSystem
	s.mu.Unlock()
	msg := mapSystem(SystemMessage{Kind: SysReceiveTimeout})
	_, _ = producer.TrySend(NewSystemPriorityEnvelope(msg))
}

var _ ReceiveTimeoutSchedulerFactory = timerReceiveTimeoutSchedulerFactory{}
