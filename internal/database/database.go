// Package database persists finished-game results to Postgres. Like the
// Redis historian, the pool is optional: a nil DB turns every store call
// into a no-op at the caller.
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xylophonehero/hearts/internal/models"
)

// DB is the shared connection pool. Nil when Postgres is not configured;
// callers must nil-check before storing.
var DB *pgxpool.Pool

// Connect opens the pool and ensures the results table exists.
func Connect(ctx context.Context, url string) error {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}
	DB = pool
	return createTables(ctx)
}

func createTables(ctx context.Context) error {
	_, err := DB.Exec(ctx, `
CREATE TABLE IF NOT EXISTS game_results (
    id       BIGSERIAL PRIMARY KEY,
    room_id  TEXT NOT NULL,
    winner   TEXT NOT NULL,
    ended_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    result   JSONB NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("create game_results: %w", err)
	}
	return nil
}

// StoreGameResult inserts one finished game.
func StoreGameResult(ctx context.Context, res models.GameResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal game result: %w", err)
	}
	_, err = DB.Exec(ctx,
		`INSERT INTO game_results (room_id, winner, result) VALUES ($1, $2, $3)`,
		res.RoomID, res.Winner, payload)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

// Close releases the shared pool.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}
