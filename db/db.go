// Package db provides the Postgres connection, schema migration and the
// channel event journal.
//
// The journal is an audit trail only. The channel registry is never rebuilt
// from it, so a restart still starts with nothing tracked.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'

	"github.com/onnwee/tempvoice/lifecycle"
)

// Connect opens a Postgres connection pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty DB_DSN")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	database.SetMaxOpenConns(4)
	database.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return database, nil
}

// Migrate applies idempotent schema changes for all required tables and indices.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS channel_events (
			id BIGSERIAL PRIMARY KEY,
			kind TEXT NOT NULL,
			channel_id TEXT,
			guild_id TEXT,
			name TEXT,
			owner_id TEXT,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_channel_events_created ON channel_events(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_channel_events_channel ON channel_events(channel_id)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}

// Event is a journal row.
type Event struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	ChannelID string    `json:"channel_id,omitempty"`
	GuildID   string    `json:"guild_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Journal appends lifecycle actions to channel_events. It implements
// lifecycle.Journal.
type Journal struct {
	db *sql.DB
}

// NewJournal returns a Journal writing to db. Migrate must have run.
func NewJournal(db *sql.DB) *Journal { return &Journal{db: db} }

var _ lifecycle.Journal = (*Journal)(nil)

// Record inserts a row for a.
func (j *Journal) Record(ctx context.Context, a lifecycle.Action) error {
	var errText sql.NullString
	if a.Err != nil {
		errText = sql.NullString{String: a.Err.Error(), Valid: true}
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO channel_events (kind, channel_id, guild_id, name, owner_id, error) VALUES ($1,$2,$3,$4,$5,$6)`,
		string(a.Kind), a.Channel.ID, a.Channel.GuildID, a.Channel.Name, a.Channel.OwnerID, errText)
	if err != nil {
		return fmt.Errorf("insert channel event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, kind, COALESCE(channel_id,''), COALESCE(guild_id,''), COALESCE(name,''), COALESCE(owner_id,''), COALESCE(error,''), created_at
		 FROM channel_events ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query channel events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Kind, &e.ChannelID, &e.GuildID, &e.Name, &e.OwnerID, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Ping checks the database is reachable.
func (j *Journal) Ping(ctx context.Context) error { return j.db.PingContext(ctx) }
