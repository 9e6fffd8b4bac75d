/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

// EventType names an outbound message.
type EventType string

const (
	EventGameCreated    EventType = "gameCreated"
	EventPlayerJoined   EventType = "playerJoined"
	EventPlayerLeft     EventType = "playerLeft"
	EventScoreUpdate    EventType = "scoreUpdate"
	EventStartCountdown EventType = "startCountdown"
	EventNewQuestion    EventType = "newQuestion"
	EventRevealAnswer   EventType = "revealAnswer"
	EventGameOver       EventType = "gameOver"
	EventError          EventType = "error"
)

// Event is what subscribers receive. Data holds one of the payload types
// below, or a Player for playerJoined.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

func newEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data}
}

// PlayerID is the opaque per-connection id of a player.
type PlayerID string

// Player is the public view of a player.
type Player struct {
	ID    PlayerID `json:"id"`
	Name  string   `json:"name"`
	Score int      `json:"score"`
}

type GameCreated struct {
	Code string `json:"code"`
}

type PlayerLeft struct {
	PlayerID PlayerID `json:"playerId"`
}

type ScoreUpdate struct {
	PlayerID PlayerID `json:"playerId"`
	Score    int      `json:"score"`
}

type Countdown struct {
	Seconds int `json:"seconds"`
}

// QuestionView is a question as shown to players; the correct index is
// withheld until the reveal.
type QuestionView struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type NewQuestion struct {
	Question  QuestionView `json:"question"`
	TimeLimit int          `json:"timeLimit"`
	Index     int          `json:"index"`
	Total     int          `json:"total"`
}

// RevealAnswer lists the roster in join order; clients sort it for display.
type RevealAnswer struct {
	CorrectAnswer  int        `json:"correctAnswer"`
	CorrectPlayers []PlayerID `json:"correctPlayers"`
	UpdatedPlayers []Player   `json:"updatedPlayers"`
}

type GameOver struct {
	Players []Player `json:"players"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}
