/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler is the round timer of a single session. It holds at most one
// armed timer; scheduling a new one replaces it.
type Scheduler struct {
	clock clockwork.Clock
	fire  func(Tag)

	mu    sync.Mutex
	timer clockwork.Timer
	stop  chan struct{}
	tag   Tag
}

// NewScheduler returns a Scheduler that calls fire with the armed tag when a
// timer elapses. fire runs on the timer's goroutine.
func NewScheduler(clock clockwork.Clock, fire func(Tag)) *Scheduler {
	return &Scheduler{
		clock: clock,
		fire:  fire,
	}
}

// Schedule cancels any pending timer and arms a new one.
func (s *Scheduler) Schedule(after time.Duration, tag Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()

	t := s.clock.NewTimer(after)
	stop := make(chan struct{})

	s.timer = t
	s.stop = stop
	s.tag = tag

	go s.wait(t, stop, tag)
}

func (s *Scheduler) wait(t clockwork.Timer, stop <-chan struct{}, tag Tag) {
	select {
	case <-t.Chan():
	case <-stop:
		return
	}

	// A Cancel or Schedule that got the lock first wins.
	s.mu.Lock()
	current := s.timer == t
	if current {
		s.timer = nil
		s.stop = nil
		s.tag = Tag{}
	}
	s.mu.Unlock()

	if current {
		s.fire(tag)
	}
}

// Cancel disarms the pending timer, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
}

func (s *Scheduler) cancelLocked() {
	if s.timer == nil {
		return
	}

	stopAndDrainTimer(s.timer)
	close(s.stop)

	s.timer = nil
	s.stop = nil
	s.tag = Tag{}
}

// Pending reports the tag of the armed timer.
func (s *Scheduler) Pending() (Tag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tag, s.timer != nil
}

func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
