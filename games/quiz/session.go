/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import (
	"slices"
	"strings"
	"time"
)

// CorrectAnswerPoints is the flat bonus for a correct answer.
const CorrectAnswerPoints = 1000

const anonymous = "Anonymous"

// Phase is the state of a session.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseCountdown
	PhaseQuestion
	PhaseReveal
	PhaseGameOver
)

var phaseNames = map[Phase]string{
	PhaseLobby:     "lobby",
	PhaseCountdown: "countdown",
	PhaseQuestion:  "question",
	PhaseReveal:    "reveal",
	PhaseGameOver:  "gameover",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Tag identifies one armed timer. A TimerFired whose tag no longer matches
// the session's pending tag is stale.
type Tag struct {
	Seq   uint64
	Phase Phase
	Index int
}

// IsZero reports whether no timer is armed.
func (t Tag) IsZero() bool {
	return t.Seq == 0
}

// Timing holds the fixed delays around each round.
type Timing struct {
	Countdown time.Duration
	Reveal    time.Duration
}

// DefaultTiming is a 5s countdown before the first question and a 3s pause
// after each reveal.
func DefaultTiming() Timing {
	return Timing{
		Countdown: 5 * time.Second,
		Reveal:    3 * time.Second,
	}
}

// TimerRequest asks the caller to replace the pending timer.
type TimerRequest struct {
	Tag   Tag
	After time.Duration
}

// Outcome is the result of applying a command.
type Outcome struct {
	Events []Event
	Timer  *TimerRequest
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	Code          string   `json:"code"`
	Title         string   `json:"title"`
	Phase         Phase    `json:"phase"`
	QuestionIndex int      `json:"questionIndex"`
	QuestionCount int      `json:"questionCount"`
	Players       []Player `json:"players"`
	Answered      int      `json:"answered"`
}

// Session is the state machine of a single game. It is not safe for
// concurrent use; a Hub owns each Session and serializes access to it.
type Session struct {
	code   string
	quiz   Quiz
	timing Timing

	phase Phase
	index int

	players map[PlayerID]*Player
	order   []PlayerID

	// round answer record, cleared at every reveal and new question
	answers  map[PlayerID]int
	answered []PlayerID

	pending Tag
	seq     uint64
}

// NewSession returns a session in the lobby.
func NewSession(code string, q Quiz, timing Timing) *Session {
	return &Session{
		code:    code,
		quiz:    q.normalize(),
		timing:  timing,
		phase:   PhaseLobby,
		index:   -1,
		players: make(map[PlayerID]*Player),
		answers: make(map[PlayerID]int),
	}
}

func (s *Session) Code() string { return s.code }

func (s *Session) Phase() Phase { return s.phase }

// Pending returns the tag of the armed timer, or the zero Tag.
func (s *Session) Pending() Tag { return s.pending }

// Apply runs cmd against the session. Commands that are not valid in the
// current phase return ErrInvalidTransition and change nothing.
func (s *Session) Apply(cmd Command) (Outcome, error) {
	switch c := cmd.(type) {
	case Join:
		return s.join(c)
	case Leave:
		return s.leave(c)
	case Start:
		return s.start()
	case SubmitAnswer:
		return s.submit(c)
	case Advance:
		if s.phase != PhaseQuestion {
			return Outcome{}, ErrInvalidTransition
		}
		return s.reveal(), nil
	case TimerFired:
		return s.timerFired(c)
	default:
		return Outcome{}, ErrUnknownCommand
	}
}

func (s *Session) join(c Join) (Outcome, error) {
	if s.phase == PhaseGameOver {
		return Outcome{}, ErrGameOver
	}
	if _, ok := s.players[c.Player]; ok {
		return Outcome{}, ErrInvalidTransition
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = anonymous
	}

	p := &Player{ID: c.Player, Name: name}
	s.players[p.ID] = p
	s.order = append(s.order, p.ID)

	return Outcome{Events: []Event{newEvent(EventPlayerJoined, *p)}}, nil
}

// leave keeps the player's recorded answer and score credit; only the roster
// entry goes away.
func (s *Session) leave(c Leave) (Outcome, error) {
	if _, ok := s.players[c.Player]; !ok {
		return Outcome{}, ErrInvalidTransition
	}

	delete(s.players, c.Player)
	s.order = slices.DeleteFunc(s.order, func(id PlayerID) bool {
		return id == c.Player
	})

	return Outcome{Events: []Event{newEvent(EventPlayerLeft, PlayerLeft{PlayerID: c.Player})}}, nil
}

func (s *Session) start() (Outcome, error) {
	if s.phase != PhaseLobby {
		return Outcome{}, ErrInvalidTransition
	}

	s.phase = PhaseCountdown

	return Outcome{
		Events: []Event{newEvent(EventStartCountdown, Countdown{Seconds: int(s.timing.Countdown / time.Second)})},
		Timer:  s.arm(s.timing.Countdown),
	}, nil
}

func (s *Session) submit(c SubmitAnswer) (Outcome, error) {
	if s.phase != PhaseQuestion {
		return Outcome{}, ErrInvalidTransition
	}

	p, ok := s.players[c.Player]
	if !ok {
		return Outcome{}, ErrInvalidTransition
	}
	if _, done := s.answers[c.Player]; done {
		return Outcome{}, ErrInvalidTransition
	}

	q, ok := s.current()
	if !ok {
		return Outcome{}, ErrInvalidTransition
	}

	s.answers[c.Player] = c.Answer
	s.answered = append(s.answered, c.Player)

	if c.Answer != q.Correct {
		return Outcome{}, nil
	}

	p.Score += CorrectAnswerPoints

	return Outcome{Events: []Event{newEvent(EventScoreUpdate, ScoreUpdate{PlayerID: p.ID, Score: p.Score})}}, nil
}

func (s *Session) timerFired(c TimerFired) (Outcome, error) {
	if c.Tag.IsZero() || c.Tag != s.pending {
		return Outcome{}, ErrStaleTimer
	}
	s.pending = Tag{}

	switch s.phase {
	case PhaseCountdown, PhaseReveal:
		return s.next(), nil
	case PhaseQuestion:
		return s.reveal(), nil
	default:
		return Outcome{}, ErrStaleTimer
	}
}

func (s *Session) reveal() Outcome {
	q, ok := s.current()
	if !ok {
		return s.finish()
	}

	correct := make([]PlayerID, 0, len(s.answered))
	for _, id := range s.answered {
		if s.answers[id] == q.Correct {
			correct = append(correct, id)
		}
	}

	ev := RevealAnswer{
		CorrectAnswer:  q.Correct,
		CorrectPlayers: correct,
		UpdatedPlayers: s.roster(),
	}

	s.clearAnswers()
	s.phase = PhaseReveal

	return Outcome{
		Events: []Event{newEvent(EventRevealAnswer, ev)},
		Timer:  s.arm(s.timing.Reveal),
	}
}

func (s *Session) next() Outcome {
	s.index++

	q, ok := s.current()
	if !ok {
		return s.finish()
	}

	s.clearAnswers()
	s.phase = PhaseQuestion

	ev := NewQuestion{
		Question:  q.view(),
		TimeLimit: q.TimeLimit,
		Index:     s.index,
		Total:     len(s.quiz.Questions),
	}

	return Outcome{
		Events: []Event{newEvent(EventNewQuestion, ev)},
		Timer:  s.arm(q.Duration()),
	}
}

func (s *Session) finish() Outcome {
	s.phase = PhaseGameOver
	s.index = len(s.quiz.Questions)
	s.pending = Tag{}
	s.clearAnswers()

	return Outcome{Events: []Event{newEvent(EventGameOver, GameOver{Players: s.roster()})}}
}

// arm tags a new timer for the current phase and index. The previous tag,
// if any, becomes stale.
func (s *Session) arm(after time.Duration) *TimerRequest {
	s.seq++
	s.pending = Tag{Seq: s.seq, Phase: s.phase, Index: s.index}

	return &TimerRequest{Tag: s.pending, After: after}
}

func (s *Session) current() (Question, bool) {
	if s.index < 0 || s.index >= len(s.quiz.Questions) {
		return Question{}, false
	}
	return s.quiz.Questions[s.index], true
}

func (s *Session) clearAnswers() {
	clear(s.answers)
	s.answered = s.answered[:0]
}

func (s *Session) roster() []Player {
	out := make([]Player, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.players[id])
	}
	return out
}

// Snapshot returns a copy of the session's public state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Code:          s.code,
		Title:         s.quiz.Title,
		Phase:         s.phase,
		QuestionIndex: s.index,
		QuestionCount: len(s.quiz.Questions),
		Players:       s.roster(),
		Answered:      len(s.answered),
	}
}
