/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package quiz implements the quizbox game engine.
//
// A host creates a session from a Quiz, players join it with the session
// code, and every session runs on its own Hub: a single goroutine that
// applies commands to the Session state machine, arms the round timer and
// fans the resulting events out to every subscribed connection in order.
package quiz

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultTimeLimit is used for questions without a positive time limit.
	DefaultTimeLimit = 20

	untitledQuiz = "Untitled Quiz"
)

// Question is a single multiple-choice question. The UI always renders four
// options, but nothing here depends on that.
type Question struct {
	ID        int      `json:"id" yaml:"id"`
	Text      string   `json:"text" yaml:"text"`
	Options   []string `json:"options" yaml:"options"`
	Correct   int      `json:"correctAnswer" yaml:"correct_answer"`
	TimeLimit int      `json:"timeLimit" yaml:"time_limit"`
}

// Duration returns the question's time limit.
func (q Question) Duration() time.Duration {
	return time.Duration(q.TimeLimit) * time.Second
}

func (q Question) view() QuestionView {
	return QuestionView{
		ID:      q.ID,
		Text:    q.Text,
		Options: slices.Clone(q.Options),
	}
}

// Quiz is the immutable content of a session.
type Quiz struct {
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// normalize fills in missing fields instead of rejecting the quiz.
func (q Quiz) normalize() Quiz {
	out := Quiz{
		Title:     strings.TrimSpace(q.Title),
		Questions: make([]Question, len(q.Questions)),
	}
	if out.Title == "" {
		out.Title = untitledQuiz
	}

	for i, question := range q.Questions {
		question.ID = i
		question.Text = strings.TrimSpace(question.Text)
		if question.Text == "" {
			question.Text = fmt.Sprintf("Question %d", i+1)
		}
		question.Options = slices.Clone(question.Options)
		if question.Correct < 0 || question.Correct >= len(question.Options) {
			question.Correct = 0
		}
		if question.TimeLimit <= 0 {
			question.TimeLimit = DefaultTimeLimit
		}
		out.Questions[i] = question
	}

	return out
}

// LibraryEntry describes a quiz available in a Library.
type LibraryEntry struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Questions int    `json:"questions"`
}

// Library holds the quizzes loaded from a directory of YAML files, keyed by
// file name without extension. A nil Library is empty.
type Library struct {
	quizzes map[string]Quiz
}

// NewLibrary returns a Library holding the given quizzes.
func NewLibrary(quizzes map[string]Quiz) *Library {
	l := &Library{quizzes: make(map[string]Quiz, len(quizzes))}
	for id, q := range quizzes {
		l.quizzes[id] = q.normalize()
	}
	return l
}

// LoadLibrary reads every *.yaml and *.yml file in dir. An empty dir yields
// an empty library.
func LoadLibrary(dir string) (*Library, error) {
	if dir == "" {
		return NewLibrary(nil), nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read quiz dir: %w", err)
	}

	quizzes := make(map[string]Quiz)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read quiz %s: %w", entry.Name(), err)
		}

		var q Quiz
		if err := yaml.Unmarshal(data, &q); err != nil {
			return nil, fmt.Errorf("parse quiz %s: %w", entry.Name(), err)
		}

		quizzes[strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))] = q
	}

	return NewLibrary(quizzes), nil
}

// Get returns the quiz stored under id.
func (l *Library) Get(id string) (Quiz, bool) {
	if l == nil {
		return Quiz{}, false
	}
	q, ok := l.quizzes[id]
	return q, ok
}

// List returns the library contents sorted by id.
func (l *Library) List() []LibraryEntry {
	if l == nil {
		return []LibraryEntry{}
	}

	out := make([]LibraryEntry, 0, len(l.quizzes))
	for id, q := range l.quizzes {
		out = append(out, LibraryEntry{
			ID:        id,
			Title:     q.Title,
			Questions: len(q.Questions),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out
}
