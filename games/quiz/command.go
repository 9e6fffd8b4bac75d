/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

// Command is an input to Session.Apply. The set is closed: only the types in
// this file implement it.
type Command interface {
	name() string
}

// Join adds a player to the session.
type Join struct {
	Player PlayerID
	Name   string
}

// Leave removes a player, usually because its connection went away.
type Leave struct {
	Player PlayerID
}

// Start begins the pre-game countdown.
type Start struct{}

// SubmitAnswer records a player's answer to the live question.
type SubmitAnswer struct {
	Player PlayerID
	Answer int
}

// Advance is the host forcing the live question to be revealed early.
type Advance struct{}

// TimerFired is issued by the round timer when the delay armed under Tag
// elapses.
type TimerFired struct {
	Tag Tag
}

func (Join) name() string         { return "join" }
func (Leave) name() string        { return "leave" }
func (Start) name() string        { return "start" }
func (SubmitAnswer) name() string { return "submit_answer" }
func (Advance) name() string      { return "advance" }
func (TimerFired) name() string   { return "timer" }
