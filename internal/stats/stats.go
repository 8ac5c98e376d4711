// Package stats persists per-user match outcomes. Recording is best effort:
// the game never blocks on the database and a failed write only logs.
package stats

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Participant is one human seat in a finished match.
type Participant struct {
	UserID string
	Winner bool
}

// Recorder persists multiplayer match outcomes.
type Recorder interface {
	RecordMultiplayerMatch(ctx context.Context, participants []Participant) error
}

// NoopRecorder discards outcomes. Used when no database is configured.
type NoopRecorder struct{}

func (NoopRecorder) RecordMultiplayerMatch(context.Context, []Participant) error {
	return nil
}

// Modes tracked per user. Every multiplayer result also rolls into the
// user's all-mode total.
const (
	ModeMultiplayer = "multiplayer"
	ModeTotal       = "total"
)

const schema = `
CREATE TABLE IF NOT EXISTS player_stats (
    user_id   TEXT    NOT NULL,
    mode      TEXT    NOT NULL,
    num_games INTEGER NOT NULL DEFAULT 0,
    num_wins  INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (user_id, mode),
    CHECK (num_wins <= num_games)
)`

const upsertResult = `
INSERT INTO player_stats (user_id, mode, num_games, num_wins)
VALUES ($1, $2, 1, $3)
ON CONFLICT (user_id, mode) DO UPDATE
SET num_games = player_stats.num_games + 1,
    num_wins  = player_stats.num_wins + $3`

// PostgresRecorder stores outcomes in a player_stats table keyed by user and
// mode.
type PostgresRecorder struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresRecorder connects, verifies the connection and ensures the
// schema exists.
func NewPostgresRecorder(ctx context.Context, connString string, log zerolog.Logger) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to stats database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping stats database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure stats schema: %w", err)
	}
	return &PostgresRecorder{pool: pool, log: log}, nil
}

// Close releases the connection pool.
func (r *PostgresRecorder) Close() {
	r.pool.Close()
}

// RecordMultiplayerMatch increments game and win counters for every
// participant with a user id, in a single transaction so a match is either
// fully recorded or not at all.
func (r *PostgresRecorder) RecordMultiplayerMatch(ctx context.Context, participants []Participant) error {
	sanitized := participants[:0:0]
	for _, p := range participants {
		if p.UserID != "" {
			sanitized = append(sanitized, p)
		}
	}
	if len(sanitized) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin stats transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range sanitized {
		win := 0
		if p.Winner {
			win = 1
		}
		if _, err := tx.Exec(ctx, upsertResult, p.UserID, ModeMultiplayer, win); err != nil {
			return fmt.Errorf("record multiplayer result for %s: %w", p.UserID, err)
		}
		if _, err := tx.Exec(ctx, upsertResult, p.UserID, ModeTotal, win); err != nil {
			return fmt.Errorf("record total result for %s: %w", p.UserID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit stats transaction: %w", err)
	}

	r.log.Debug().Int("participants", len(sanitized)).Msg("recorded multiplayer match")
	return nil
}

// UserStats is one per-mode counter row.
type UserStats struct {
	Mode   string `json:"mode"`
	Games  int    `json:"numGames"`
	Wins   int    `json:"numWins"`
	Losses int    `json:"numLosses"`
}

// FetchUserStats returns the counters for one user, multiplayer before
// total. Users with no recorded matches get an empty slice.
func (r *PostgresRecorder) FetchUserStats(ctx context.Context, userID string) ([]UserStats, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT mode, num_games, num_wins FROM player_stats
		 WHERE user_id = $1
		 ORDER BY CASE mode WHEN $2 THEN 0 WHEN $3 THEN 1 ELSE 2 END`,
		userID, ModeMultiplayer, ModeTotal)
	if err != nil {
		return nil, fmt.Errorf("query user stats: %w", err)
	}
	defer rows.Close()

	out := []UserStats{}
	for rows.Next() {
		var s UserStats
		if err := rows.Scan(&s.Mode, &s.Games, &s.Wins); err != nil {
			return nil, fmt.Errorf("scan user stats: %w", err)
		}
		s.Losses = s.Games - s.Wins
		out = append(out, s)
	}
	return out, rows.Err()
}
