package devlog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// insertTimeout bounds one asynchronous insert.
const insertTimeout = 5 * time.Second

const createTableSQL = `
CREATE TABLE IF NOT EXISTS devlog_entries (
	id           BIGSERIAL PRIMARY KEY,
	kind         TEXT        NOT NULL,
	request_at   TIMESTAMPTZ NOT NULL,
	response_at  TIMESTAMPTZ NOT NULL,
	input        TEXT        NOT NULL,
	output       TEXT        NOT NULL DEFAULT '',
	error        TEXT        NOT NULL DEFAULT ''
)`

const insertEntrySQL = `
INSERT INTO devlog_entries (kind, request_at, response_at, input, output, error)
VALUES ($1, $2, $3, $4, $5, $6)`

// PostgresSink retains entries in a Postgres table for operators. Inserts
// run asynchronously; failures are logged and dropped, never surfaced to the
// pipeline.
type PostgresSink struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Compile-time interface assertion.
var _ Sink = (*PostgresSink)(nil)

// NewPostgresSink creates a sink writing to pool and ensures the table
// exists.
func NewPostgresSink(ctx context.Context, pool *pgxpool.Pool) (*PostgresSink, error) {
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("devlog: create table: %w", err)
	}
	return &PostgresSink{pool: pool, logger: slog.Default()}, nil
}

// Record inserts e on a detached goroutine.
func (s *PostgresSink) Record(e Entry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		defer cancel()
		_, err := s.pool.Exec(ctx, insertEntrySQL,
			string(e.Kind), e.RequestAt, e.ResponseAt, e.Input, e.Output, e.Error)
		if err != nil {
			s.logger.Warn("devlog: postgres insert failed", "kind", e.Kind, "error", err)
		}
	}()
}

// RecentEntries returns up to limit retained entries, newest first.
func (s *PostgresSink) RecentEntries(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT kind, request_at, response_at, input, output, error
		FROM devlog_entries ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("devlog: query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&kind, &e.RequestAt, &e.ResponseAt, &e.Input, &e.Output, &e.Error); err != nil {
			return nil, fmt.Errorf("devlog: scan entry: %w", err)
		}
		e.Kind = Kind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("devlog: iterate entries: %w", err)
	}
	return out, nil
}
