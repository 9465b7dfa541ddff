package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS game_results (
	id             UUID PRIMARY KEY,
	finished_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	loser_uuid     TEXT,
	loser_nickname TEXT,
	sum_total      INT NOT NULL,
	sum_limit      INT NOT NULL,
	player_count   INT NOT NULL,
	end_reason     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_game_results_finished_at ON game_results(finished_at DESC);
`

// Store persists game outcomes to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database and ensures the schema exists.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	slog.Info("history store connected", "tag", "storage")
	return &Store{pool: pool}, nil
}

// InsertGameResult records one finished game. A missing ID is filled
// in; empty loser fields are stored as NULL.
func (s *Store) InsertGameResult(ctx context.Context, rec GameRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO game_results (id, loser_uuid, loser_nickname, sum_total, sum_limit, player_count, end_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, nullIfEmpty(rec.LoserUUID), nullIfEmpty(rec.LoserNickname),
		rec.SumTotal, rec.SumLimit, rec.PlayerCount, rec.EndReason)
	if err != nil {
		return fmt.Errorf("inserting game result: %w", err)
	}
	return nil
}

// ListRecent returns the most recently finished games, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, finished_at, loser_uuid, loser_nickname, sum_total, sum_limit, player_count, end_reason
		FROM game_results
		ORDER BY finished_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing game results: %w", err)
	}
	defer rows.Close()

	var records []GameRecord
	for rows.Next() {
		var rec GameRecord
		var loserUUID, loserNickname *string
		if err := rows.Scan(&rec.ID, &rec.FinishedAt, &loserUUID, &loserNickname,
			&rec.SumTotal, &rec.SumLimit, &rec.PlayerCount, &rec.EndReason); err != nil {
			return nil, fmt.Errorf("scanning game result: %w", err)
		}
		if loserUUID != nil {
			rec.LoserUUID = *loserUUID
		}
		if loserNickname != nil {
			rec.LoserNickname = *loserNickname
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
