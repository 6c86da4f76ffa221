package broker

import (
	"sync"
	"time"
)

// wakeupScheduler is a single process-wide, idempotently-armed timer
// (spec.md §4.7). When it fires it walks the registry and wakes any
// watcher whose queue is non-empty. High-watermark, dropped-events, and
// close wakes bypass it entirely by calling Watcher.wakeReaders
// directly.
type wakeupScheduler struct {
	mu      sync.Mutex
	armed   bool
	delay   time.Duration
	timer   *time.Timer
	wake    func()
	closed  bool
}

func newWakeupScheduler(delay time.Duration, wake func()) *wakeupScheduler {
	return &wakeupScheduler{delay: delay, wake: wake}
}

// arm schedules a wake after the coalesce window if one is not already
// pending. Arming is idempotent.
func (s *wakeupScheduler) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed || s.closed {
		return
	}
	s.armed = true
	s.timer = time.AfterFunc(s.delay, s.fire)
}

func (s *wakeupScheduler) fire() {
	s.mu.Lock()
	s.armed = false
	s.mu.Unlock()
	s.wake()
}

// stop cancels any pending timer and prevents future arming, used on
// Broker.Close.
func (s *wakeupScheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
}
