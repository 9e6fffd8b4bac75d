/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Seednode/quizbox/games/quiz"
	"github.com/Seednode/quizbox/games/quiz/mocks"
)

type recorder struct {
	id quiz.PlayerID

	mu     sync.Mutex
	events []quiz.Event
	full   bool
}

func newRecorder(id string) *recorder {
	return &recorder{id: quiz.PlayerID(id)}
}

func (r *recorder) ID() quiz.PlayerID { return r.id }

func (r *recorder) Deliver(ev quiz.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full {
		return false
	}
	r.events = append(r.events, ev)

	return true
}

func (r *recorder) setFull(full bool) {
	r.mu.Lock()
	r.full = full
	r.mu.Unlock()
}

func (r *recorder) Events() []quiz.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]quiz.Event(nil), r.events...)
}

func (r *recorder) Types() []quiz.EventType {
	var out []quiz.EventType
	for _, ev := range r.Events() {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) Count(t quiz.EventType) int {
	n := 0
	for _, ev := range r.Events() {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (r *recorder) Last() quiz.Event {
	events := r.Events()
	if len(events) == 0 {
		return quiz.Event{}
	}
	return events[len(events)-1]
}

type harness struct {
	t       *testing.T
	clock   *clockwork.FakeClock
	games   *quiz.GameManager
	gateway *quiz.Gateway
}

func newHarness(t *testing.T, archive quiz.Archive, library *quiz.Library) *harness {
	clock := clockwork.NewFakeClock()
	games := quiz.NewGameManager(quiz.Options{
		Clock:   clock,
		Timing:  quiz.DefaultTiming(),
		Archive: archive,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = games.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &harness{
		t:       t,
		clock:   clock,
		games:   games,
		gateway: quiz.NewGateway(games, library),
	}
}

func (h *harness) send(sub quiz.Subscriber, msg quiz.ClientMessage) error {
	return h.gateway.Handle(context.Background(), sub, msg)
}

func (h *harness) create(host *recorder, q quiz.Quiz) string {
	h.t.Helper()

	require.NoError(h.t, h.send(host, quiz.ClientMessage{Type: quiz.MessageCreateGame, Quiz: &q}))

	ev := host.Last()
	require.Equal(h.t, quiz.EventGameCreated, ev.Type)

	return ev.Data.(quiz.GameCreated).Code
}

// advance moves the clock and waits until r has seen want more events of
// type t.
func (h *harness) advance(d time.Duration, r *recorder, t quiz.EventType) {
	h.t.Helper()

	before := r.Count(t)
	h.clock.Advance(d)

	require.Eventually(h.t, func() bool {
		return r.Count(t) > before
	}, time.Second, 5*time.Millisecond, "no %s after advancing %s", t, d)
}

func answer(i int) *int { return &i }

func numbers(questions int) quiz.Quiz {
	q := quiz.Quiz{Title: "Numbers"}
	for n := 0; n < questions; n++ {
		q.Questions = append(q.Questions, quiz.Question{
			Text:      "Pick four",
			Options:   []string{"1", "2", "3", "4"},
			Correct:   3,
			TimeLimit: 5,
		})
	}
	return q
}

func TestGatewayPlaysSingleQuestionGame(t *testing.T) {
	h := newHarness(t, nil, nil)
	host, p := newRecorder("host"), newRecorder("p")

	code := h.create(host, numbers(1))

	require.NoError(t, h.send(p, quiz.ClientMessage{Type: quiz.MessageJoinGame, Code: strings.ToLower(code), Username: "P"}))
	require.NoError(t, h.send(host, quiz.ClientMessage{Type: quiz.MessageStartCountdown, Code: code}))

	h.advance(5*time.Second, p, quiz.EventNewQuestion)

	require.NoError(t, h.send(p, quiz.ClientMessage{Type: quiz.MessageSubmitAnswer, Code: code, AnswerIndex: answer(3)}))

	h.advance(5*time.Second, p, quiz.EventRevealAnswer)
	h.advance(3*time.Second, p, quiz.EventGameOver)

	want := []quiz.EventType{
		quiz.EventPlayerJoined,
		quiz.EventStartCountdown,
		quiz.EventNewQuestion,
		quiz.EventScoreUpdate,
		quiz.EventRevealAnswer,
		quiz.EventGameOver,
	}
	assert.Equal(t, want, p.Types())

	require.Eventually(t, func() bool { return host.Count(quiz.EventGameOver) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, append([]quiz.EventType{quiz.EventGameCreated}, want...), host.Types())

	players := []quiz.Player{{ID: "p", Name: "P", Score: 1000}}
	assert.Equal(t, quiz.GameOver{Players: players}, p.Last().Data)

	hub, err := h.games.Get(code)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return hub.Snapshot().Phase == quiz.PhaseGameOver
	}, time.Second, 5*time.Millisecond)
}

func TestGatewayForcedAdvancesRevealOncePerQuestion(t *testing.T) {
	h := newHarness(t, nil, nil)
	host := newRecorder("host")

	code := h.create(host, numbers(3))

	require.NoError(t, h.send(host, quiz.ClientMessage{Type: quiz.MessageStartCountdown, Code: code}))
	h.advance(5*time.Second, host, quiz.EventNewQuestion)

	for i := 0; i < 3; i++ {
		require.NoError(t, h.send(host, quiz.ClientMessage{Type: quiz.MessageNextQuestion, Code: code}))
		require.Equal(t, i+1, host.Count(quiz.EventRevealAnswer))

		// A second nudge during the reveal pause does nothing.
		require.ErrorIs(t, h.send(host, quiz.ClientMessage{Type: quiz.MessageNextQuestion, Code: code}), quiz.ErrInvalidTransition)

		if i < 2 {
			h.advance(3*time.Second, host, quiz.EventNewQuestion)
		} else {
			h.advance(3*time.Second, host, quiz.EventGameOver)
		}
	}

	h.clock.Advance(time.Minute)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 3, host.Count(quiz.EventRevealAnswer))
	assert.Equal(t, 3, host.Count(quiz.EventNewQuestion))
	assert.Equal(t, 1, host.Count(quiz.EventGameOver))
}

func TestGatewayUnknownCodeErrorsToCallerOnly(t *testing.T) {
	h := newHarness(t, nil, nil)
	host, p := newRecorder("host"), newRecorder("p")

	h.create(host, numbers(1))

	err := h.send(p, quiz.ClientMessage{Type: quiz.MessageJoinGame, Code: "NOPE00", Username: "P"})
	require.ErrorIs(t, err, quiz.ErrGameNotFound)

	assert.Equal(t, []quiz.Event{{
		Type: quiz.EventError,
		Data: quiz.ErrorMessage{Message: "Game not found"},
	}}, p.Events())
	assert.Equal(t, []quiz.EventType{quiz.EventGameCreated}, host.Types())

	for _, msgType := range []string{quiz.MessageSubmitAnswer, quiz.MessageStartCountdown, quiz.MessageNextQuestion} {
		err := h.send(p, quiz.ClientMessage{Type: msgType, Code: "NOPE00", AnswerIndex: answer(0)})
		assert.ErrorIs(t, err, quiz.ErrGameNotFound)
	}
	assert.Equal(t, 4, p.Count(quiz.EventError))
}

func TestGatewayCreateFromLibrary(t *testing.T) {
	library := quiz.NewLibrary(map[string]quiz.Quiz{"numbers": numbers(2)})
	h := newHarness(t, nil, library)
	host := newRecorder("host")

	require.NoError(t, h.send(host, quiz.ClientMessage{Type: quiz.MessageCreateGame, QuizID: "numbers"}))
	code := host.Last().Data.(quiz.GameCreated).Code

	hub, err := h.games.Get(code)
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Snapshot().QuestionCount)
	assert.Equal(t, "Numbers", hub.Snapshot().Title)

	err = h.send(host, quiz.ClientMessage{Type: quiz.MessageCreateGame, QuizID: "missing"})
	require.ErrorIs(t, err, quiz.ErrQuizNotFound)
	assert.Equal(t, quiz.ErrorMessage{Message: "Quiz not found"}, host.Last().Data)
	assert.Equal(t, 1, h.games.Len())
}

func TestGatewayIgnoresInvalidCommandsQuietly(t *testing.T) {
	h := newHarness(t, nil, nil)
	host, p := newRecorder("host"), newRecorder("p")

	code := h.create(host, numbers(1))
	require.NoError(t, h.send(p, quiz.ClientMessage{Type: quiz.MessageJoinGame, Code: code, Username: "P"}))

	cases := map[string]struct {
		msg quiz.ClientMessage
		err error
	}{
		"answer before start": {
			msg: quiz.ClientMessage{Type: quiz.MessageSubmitAnswer, Code: code, AnswerIndex: answer(3)},
			err: quiz.ErrInvalidTransition,
		},
		"answer without index": {
			msg: quiz.ClientMessage{Type: quiz.MessageSubmitAnswer, Code: code},
			err: quiz.ErrInvalidTransition,
		},
		"advance in lobby": {
			msg: quiz.ClientMessage{Type: quiz.MessageNextQuestion, Code: code},
			err: quiz.ErrInvalidTransition,
		},
		"join twice": {
			msg: quiz.ClientMessage{Type: quiz.MessageJoinGame, Code: code, Username: "P"},
			err: quiz.ErrInvalidTransition,
		},
		"unknown type": {
			msg: quiz.ClientMessage{Type: "dance", Code: code},
			err: quiz.ErrUnknownCommand,
		},
		"unknown type without code": {
			msg: quiz.ClientMessage{Type: "dance"},
			err: quiz.ErrUnknownCommand,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			before := len(p.Events())

			err := h.send(p, tc.msg)
			assert.ErrorIs(t, err, tc.err)
			assert.Len(t, p.Events(), before)
		})
	}
}

func TestGatewayDisconnect(t *testing.T) {
	h := newHarness(t, nil, nil)
	host, p := newRecorder("host"), newRecorder("p")

	code := h.create(host, numbers(1))
	require.NoError(t, h.send(p, quiz.ClientMessage{Type: quiz.MessageJoinGame, Code: code, Username: "P"}))

	h.gateway.Disconnect(context.Background(), p)

	assert.Equal(t, quiz.Event{Type: quiz.EventPlayerLeft, Data: quiz.PlayerLeft{PlayerID: "p"}}, host.Last())

	hub, err := h.games.Get(code)
	require.NoError(t, err)
	assert.Empty(t, hub.Snapshot().Players)

	// The host was never a player, so its departure only unsubscribes it.
	h.gateway.Disconnect(context.Background(), host)
	require.NoError(t, h.send(p, quiz.ClientMessage{Type: quiz.MessageStartCountdown, Code: code}))

	assert.Equal(t, quiz.EventPlayerLeft, host.Last().Type)
}

func TestGatewayDropsSlowSubscribers(t *testing.T) {
	h := newHarness(t, nil, nil)
	host, p := newRecorder("host"), newRecorder("p")

	code := h.create(host, numbers(1))

	host.setFull(true)
	require.NoError(t, h.send(p, quiz.ClientMessage{Type: quiz.MessageJoinGame, Code: code, Username: "P"}))
	host.setFull(false)

	require.NoError(t, h.send(p, quiz.ClientMessage{Type: quiz.MessageStartCountdown, Code: code}))

	assert.Equal(t, []quiz.EventType{quiz.EventGameCreated}, host.Types())
	assert.Equal(t, []quiz.EventType{quiz.EventPlayerJoined, quiz.EventStartCountdown}, p.Types())
}

func TestGatewayArchivesFinishedGame(t *testing.T) {
	ctrl := gomock.NewController(t)
	archive := mocks.NewMockArchive(ctrl)

	saved := make(chan quiz.Result, 1)
	archive.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, result quiz.Result) error {
			saved <- result
			return nil
		}).
		Times(1)

	h := newHarness(t, archive, nil)
	host, p := newRecorder("host"), newRecorder("p")

	code := h.create(host, quiz.Quiz{Title: "Empty"})
	require.NoError(t, h.send(p, quiz.ClientMessage{Type: quiz.MessageJoinGame, Code: code, Username: "P"}))
	require.NoError(t, h.send(host, quiz.ClientMessage{Type: quiz.MessageStartCountdown, Code: code}))

	h.advance(5*time.Second, host, quiz.EventGameOver)

	select {
	case result := <-saved:
		assert.Equal(t, code, result.Code)
		assert.Equal(t, "Empty", result.Title)
		assert.Equal(t, []quiz.Player{{ID: "p", Name: "P"}}, result.Players)
		assert.True(t, h.clock.Now().Equal(result.FinishedAt))
	case <-time.After(time.Second):
		t.Fatal("result was not archived")
	}
}
