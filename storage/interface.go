package storage

import (
	"context"
	"time"
)

// GameRecord is one finished game. Loser fields are empty for games
// that ended by cancellation rather than a natural loss.
type GameRecord struct {
	ID            string    `json:"id"`
	FinishedAt    time.Time `json:"finishedAt"`
	LoserUUID     string    `json:"loserUuid,omitempty"`
	LoserNickname string    `json:"loserNickname,omitempty"`
	SumTotal      int       `json:"sumTotal"`
	SumLimit      int       `json:"sumLimit"`
	PlayerCount   int       `json:"playerCount"`
	EndReason     string    `json:"endReason"`
}

// HistoryStore abstracts persistence of finished games. Implementations
// can be swapped for testing or different backends. Live game state is
// never persisted; only outcomes are.
type HistoryStore interface {
	InsertGameResult(ctx context.Context, rec GameRecord) error
	ListRecent(ctx context.Context, limit int) ([]GameRecord, error)
	Close()
}

// Ensure *Store implements HistoryStore at compile time.
var _ HistoryStore = (*Store)(nil)
