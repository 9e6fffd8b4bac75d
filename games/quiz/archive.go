/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

//go:generate mockgen -package=mocks -destination=mocks/mock_archive.go github.com/Seednode/quizbox/games/quiz Archive

import (
	"context"
	"time"
)

// Result is the final standing of a finished session.
type Result struct {
	Code       string    `json:"code"`
	Title      string    `json:"title"`
	Players    []Player  `json:"players"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Archive stores results of finished sessions.
type Archive interface {
	Save(ctx context.Context, result Result) error
}
