/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const archiveTimeout = 5 * time.Second

// Subscriber receives the events of the sessions it is attached to.
// Deliver must not block; returning false drops the subscriber from the
// session.
type Subscriber interface {
	ID() PlayerID
	Deliver(Event) bool
}

type request struct {
	cmd Command
	sub Subscriber

	// attach adds sub to the session's subscribers once cmd succeeds;
	// detach removes it before cmd is applied.
	attach bool
	detach bool

	reply chan error
}

// Hub owns one Session. A single goroutine applies every command to it,
// syncs the round timer with the outcome and fans events out in order.
type Hub struct {
	code    string
	session *Session
	sched   *Scheduler
	archive Archive
	clock   clockwork.Clock
	logger  zerolog.Logger

	requests chan request
	done     chan struct{}
	stopOnce sync.Once

	// owned by run
	subscribers map[PlayerID]Subscriber

	mu         sync.RWMutex
	lastActive time.Time
	snapshot   Snapshot
}

func newHub(code string, q Quiz, opts Options) *Hub {
	h := &Hub{
		code:        code,
		session:     NewSession(code, q, opts.Timing),
		archive:     opts.Archive,
		clock:       opts.Clock,
		logger:      log.With().Str("game", code).Logger(),
		requests:    make(chan request),
		done:        make(chan struct{}),
		subscribers: make(map[PlayerID]Subscriber),
		lastActive:  opts.Clock.Now(),
	}
	h.sched = NewScheduler(opts.Clock, h.fire)
	h.snapshot = h.session.Snapshot()

	return h
}

func (h *Hub) run() {
	for {
		select {
		case req := <-h.requests:
			err := h.handle(req)
			if req.reply != nil {
				req.reply <- err
			}
		case <-h.done:
			return
		}
	}
}

func (h *Hub) handle(req request) error {
	defer h.refresh()

	h.touch()

	if req.detach && req.sub != nil {
		delete(h.subscribers, req.sub.ID())
	}

	if req.cmd == nil {
		if req.attach && req.sub != nil {
			h.subscribers[req.sub.ID()] = req.sub
			h.deliver(req.sub, newEvent(EventGameCreated, GameCreated{Code: h.code}))
		}

		return nil
	}

	out, err := h.session.Apply(req.cmd)
	recordCommand(req.cmd, err)
	if err != nil {
		if ignored(err) {
			h.logger.Debug().Str("command", req.cmd.name()).Err(err).Msg("command dropped")
		}

		return err
	}

	if req.attach && req.sub != nil {
		h.subscribers[req.sub.ID()] = req.sub
	}

	// The timer is synced before anything is delivered.
	switch {
	case out.Timer != nil:
		h.sched.Schedule(out.Timer.After, out.Timer.Tag)
	case h.session.Pending().IsZero():
		h.sched.Cancel()
	}

	for _, ev := range out.Events {
		eventsTotal.WithLabelValues(string(ev.Type)).Inc()

		h.broadcast(ev)

		if over, ok := ev.Data.(GameOver); ok {
			h.saveResult(over)
		}
	}

	return nil
}

func (h *Hub) broadcast(ev Event) {
	for _, sub := range h.subscribers {
		h.deliver(sub, ev)
	}
}

func (h *Hub) deliver(sub Subscriber, ev Event) {
	if sub.Deliver(ev) {
		return
	}

	delete(h.subscribers, sub.ID())
	deliveriesDropped.Inc()

	h.logger.Warn().Str("player", string(sub.ID())).Str("event", string(ev.Type)).Msg("subscriber dropped")
}

func (h *Hub) saveResult(over GameOver) {
	if h.archive == nil {
		return
	}

	result := Result{
		Code:       h.code,
		Title:      h.session.quiz.Title,
		Players:    over.Players,
		FinishedAt: h.clock.Now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		if err := h.archive.Save(ctx, result); err != nil {
			h.logger.Error().Err(err).Msg("failed to archive result")

			return
		}

		h.logger.Debug().Int("players", len(result.Players)).Msg("result archived")
	}()
}

// fire runs on the scheduler's goroutine.
func (h *Hub) fire(tag Tag) {
	select {
	case h.requests <- request{cmd: TimerFired{Tag: tag}}:
	case <-h.done:
	}
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = h.clock.Now()
	h.mu.Unlock()
}

func (h *Hub) refresh() {
	snap := h.session.Snapshot()

	h.mu.Lock()
	h.snapshot = snap
	h.mu.Unlock()
}

func (h *Hub) do(ctx context.Context, req request) error {
	select {
	case <-h.done:
		return ErrGameNotFound
	default:
	}

	req.reply = make(chan error, 1)

	select {
	case h.requests <- req:
	case <-h.done:
		return ErrGameNotFound
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-h.done:
		return ErrGameNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit applies cmd to the session and waits for its events to be
// delivered.
func (h *Hub) Submit(ctx context.Context, cmd Command) error {
	return h.do(ctx, request{cmd: cmd})
}

// Attach subscribes sub without joining it as a player and sends it a
// gameCreated event.
func (h *Hub) Attach(ctx context.Context, sub Subscriber) error {
	return h.do(ctx, request{sub: sub, attach: true})
}

// Join adds sub as a player. It is subscribed before playerJoined is sent,
// so it sees its own join.
func (h *Hub) Join(ctx context.Context, sub Subscriber, name string) error {
	return h.do(ctx, request{
		cmd:    Join{Player: sub.ID(), Name: name},
		sub:    sub,
		attach: true,
	})
}

// Leave unsubscribes sub and removes it from the roster if it was a player.
func (h *Hub) Leave(ctx context.Context, sub Subscriber) error {
	return h.do(ctx, request{
		cmd:    Leave{Player: sub.ID()},
		sub:    sub,
		detach: true,
	})
}

// Stop ends the session. Pending and later requests fail with
// ErrGameNotFound.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.sched.Cancel()
	})
}

func (h *Hub) Code() string { return h.code }

// LastActive returns the time of the last request handled.
func (h *Hub) LastActive() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive
}

// Snapshot returns the session state as of the last request handled.
func (h *Hub) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.snapshot
}
