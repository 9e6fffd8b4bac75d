/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Inbound message types.
const (
	MessageCreateGame     = "createGame"
	MessageJoinGame       = "joinGame"
	MessageSubmitAnswer   = "submitAnswer"
	MessageStartCountdown = "startCountdown"
	MessageNextQuestion   = "nextQuestion"
)

// ClientMessage is a message received from a connection.
type ClientMessage struct {
	Type        string `json:"type"`
	Code        string `json:"code,omitempty"`
	Username    string `json:"username,omitempty"`
	AnswerIndex *int   `json:"answerIndex,omitempty"`
	Quiz        *Quiz  `json:"quiz,omitempty"`
	QuizID      string `json:"quizId,omitempty"`
}

// Gateway routes client messages to sessions and remembers which sessions
// each connection is subscribed to.
type Gateway struct {
	games   *GameManager
	library *Library

	mu   sync.Mutex
	subs map[PlayerID]map[string]*Hub
}

func NewGateway(games *GameManager, library *Library) *Gateway {
	return &Gateway{
		games:   games,
		library: library,
		subs:    make(map[PlayerID]map[string]*Hub),
	}
}

// Handle processes msg on behalf of sub. Errors meant for players are also
// delivered to sub as an error event; nobody else sees them.
func (g *Gateway) Handle(ctx context.Context, sub Subscriber, msg ClientMessage) error {
	err := g.dispatch(ctx, sub, msg)
	if err != nil && Public(err) {
		sub.Deliver(newEvent(EventError, ErrorMessage{Message: err.Error()}))
	}

	return err
}

func (g *Gateway) dispatch(ctx context.Context, sub Subscriber, msg ClientMessage) error {
	switch msg.Type {
	case MessageCreateGame:
		return g.create(ctx, sub, msg)
	case MessageJoinGame, MessageSubmitAnswer, MessageStartCountdown, MessageNextQuestion:
	default:
		return ErrUnknownCommand
	}

	hub, err := g.games.Get(msg.Code)
	if err != nil {
		return err
	}

	switch msg.Type {
	case MessageJoinGame:
		if err := hub.Join(ctx, sub, msg.Username); err != nil {
			return err
		}
		g.track(sub, hub)

		return nil
	case MessageSubmitAnswer:
		if msg.AnswerIndex == nil {
			return ErrInvalidTransition
		}

		return hub.Submit(ctx, SubmitAnswer{Player: sub.ID(), Answer: *msg.AnswerIndex})
	case MessageStartCountdown:
		return hub.Submit(ctx, Start{})
	case MessageNextQuestion:
		return hub.Submit(ctx, Advance{})
	default:
		return ErrUnknownCommand
	}
}

func (g *Gateway) create(ctx context.Context, sub Subscriber, msg ClientMessage) error {
	var q Quiz

	switch {
	case msg.Quiz != nil:
		q = *msg.Quiz
	case msg.QuizID != "":
		var ok bool
		if q, ok = g.library.Get(msg.QuizID); !ok {
			return ErrQuizNotFound
		}
	}

	hub, err := g.games.Create(q)
	if err != nil {
		return err
	}

	if err := hub.Attach(ctx, sub); err != nil {
		return err
	}
	g.track(sub, hub)

	return nil
}

func (g *Gateway) track(sub Subscriber, hub *Hub) {
	g.mu.Lock()
	defer g.mu.Unlock()

	hubs, ok := g.subs[sub.ID()]
	if !ok {
		hubs = make(map[string]*Hub)
		g.subs[sub.ID()] = hubs
	}
	hubs[hub.code] = hub
}

// Disconnect unsubscribes sub from every session it was attached to and
// removes it from their rosters.
func (g *Gateway) Disconnect(ctx context.Context, sub Subscriber) {
	g.mu.Lock()
	hubs := g.subs[sub.ID()]
	delete(g.subs, sub.ID())
	g.mu.Unlock()

	for _, hub := range hubs {
		err := hub.Leave(ctx, sub)
		if err != nil && !ignored(err) && !Public(err) {
			log.Warn().Str("game", hub.code).Str("player", string(sub.ID())).Err(err).Msg("leave failed")
		}
	}
}
