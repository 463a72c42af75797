// Package scheduler runs deferred work: send-later deliveries and standup
// expiries. Tasks execute one at a time on a single goroutine, so a task
// never races another task; store access still goes through the store's own
// mutex, so tasks never race requests either.
package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Scheduler struct {
	tasks  chan func()
	done   chan struct{}
	logger *zap.Logger

	mu     sync.Mutex
	timers []*time.Timer
	closed bool
}

func New(logger *zap.Logger) *Scheduler {
	s := &Scheduler{
		tasks:  make(chan func(), 64),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.run()
	return s
}

func (s *Scheduler) run() {
	for {
		select {
		case task := <-s.tasks:
			task()
		case <-s.done:
			return
		}
	}
}

// Schedule runs fn at time at. A time in the past fires immediately. Pending
// work is not persisted; a restart drops it.
func (s *Scheduler) Schedule(at time.Time, fn func()) {
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	timer := time.AfterFunc(delay, func() {
		select {
		case s.tasks <- fn:
		case <-s.done:
		}
	})
	s.timers = append(s.timers, timer)
}

// Stop cancels pending timers and stops the worker. Tasks already queued may
// be dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.mu.Unlock()
	close(s.done)
	s.logger.Debug("scheduler stopped")
}
