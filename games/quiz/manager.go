/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Options configures the sessions created by a GameManager.
type Options struct {
	Clock       clockwork.Clock
	Timing      Timing
	Archive     Archive
	IdleTimeout time.Duration
}

// GameManager holds the live sessions keyed by code.
type GameManager struct {
	mu   sync.RWMutex
	hubs map[string]*Hub
	opts Options

	newCode func() (string, error)
}

// NewGameManager fills in a real clock and the default timing when opts
// leaves them unset.
func NewGameManager(opts Options) *GameManager {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Timing == (Timing{}) {
		opts.Timing = DefaultTiming()
	}

	return &GameManager{
		hubs:    make(map[string]*Hub),
		opts:    opts,
		newCode: newCode,
	}
}

// Create starts a session for q under a fresh code. Generation and insertion
// happen under one lock, so two concurrent creates never share a code.
func (gm *GameManager) Create(q Quiz) (*Hub, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := gm.newCode()
		if err != nil {
			return nil, err
		}

		if _, exists := gm.hubs[code]; exists {
			continue
		}

		hub := newHub(code, q, gm.opts)
		gm.hubs[code] = hub
		go hub.run()

		sessionsCreated.Inc()
		sessionsActive.Inc()

		log.Debug().Str("game", code).Int("questions", len(q.Questions)).Msg("session created")

		return hub, nil
	}

	return nil, ErrCodeSpaceExhausted
}

// Get looks a session up by code, ignoring case and surrounding whitespace.
func (gm *GameManager) Get(code string) (*Hub, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	hub, ok := gm.hubs[normalizeCode(code)]
	if !ok {
		return nil, ErrGameNotFound
	}

	return hub, nil
}

// Remove stops and forgets a session.
func (gm *GameManager) Remove(code string) {
	gm.mu.Lock()
	hub, ok := gm.hubs[normalizeCode(code)]
	if ok {
		delete(gm.hubs, hub.code)
	}
	gm.mu.Unlock()

	if ok {
		hub.Stop()
		sessionsActive.Dec()
	}
}

func (gm *GameManager) Len() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	return len(gm.hubs)
}

// Run reaps sessions idle for longer than the idle timeout until ctx is
// done, then stops every remaining session.
func (gm *GameManager) Run(ctx context.Context) error {
	defer gm.stopAll()

	if gm.opts.IdleTimeout <= 0 {
		<-ctx.Done()

		return nil
	}

	ticker := gm.opts.Clock.NewTicker(gm.opts.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			gm.reap(gm.opts.Clock.Now().Add(-gm.opts.IdleTimeout))
		case <-ctx.Done():
			return nil
		}
	}
}

func (gm *GameManager) reap(cutoff time.Time) {
	var stale []*Hub

	gm.mu.Lock()
	for code, hub := range gm.hubs {
		if hub.LastActive().Before(cutoff) {
			delete(gm.hubs, code)
			stale = append(stale, hub)
		}
	}
	gm.mu.Unlock()

	for _, hub := range stale {
		hub.Stop()
		sessionsActive.Dec()

		log.Debug().Str("game", hub.code).Msg("idle session reaped")
	}
}

func (gm *GameManager) stopAll() {
	gm.mu.Lock()
	hubs := gm.hubs
	gm.hubs = make(map[string]*Hub)
	gm.mu.Unlock()

	for _, hub := range hubs {
		hub.Stop()
		sessionsActive.Dec()
	}
}
