package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/mnemo/memory/providers/facts"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS facts (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	key         TEXT NOT NULL,
	value       TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT 'general',
	confidence  INTEGER NOT NULL DEFAULT 50,
	source      TEXT NOT NULL DEFAULT 'explicit',
	metadata    TEXT,
	active      INTEGER NOT NULL DEFAULT 1,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_facts_user ON facts(user_id, active);
CREATE UNIQUE INDEX IF NOT EXISTS idx_facts_active_triple ON facts(user_id, key, category) WHERE active = 1;

CREATE TABLE IF NOT EXISTS summaries (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	session_id    TEXT NOT NULL,
	summary       TEXT NOT NULL,
	topics        TEXT,
	action_items  TEXT,
	sentiment     TEXT,
	message_count INTEGER NOT NULL DEFAULT 0,
	started_at    TEXT NOT NULL,
	ended_at      TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_summaries_user ON summaries(user_id, created_at DESC);
`

const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const factColumns = "id, user_id, key, value, category, confidence, source, metadata, active, created_at, updated_at"

type sqliteStorer struct {
	options facts.Options
	db      *sql.DB
}

func (s *sqliteStorer) Store(ctx context.Context, userId string, key string, value string, category string, confidence int, source facts.Source, metadata map[string]any) (string, error) {
	if len(category) == 0 {
		category = "general"
	}

	confidence = facts.ClampConfidence(confidence)

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	now := time.Now().UTC().Format(timeFormat)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(
		ctx,
		`SELECT id FROM facts WHERE user_id = ? AND key = ? AND category = ? AND active = 1`,
		userId, key, category,
	).Scan(&id)

	switch {
	case err == sql.ErrNoRows:
		id = uuid.New().String()
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO facts (`+factColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			id, userId, key, value, category, confidence, string(source), string(metaJSON), now, now,
		)
		if err != nil {
			return "", fmt.Errorf("insert fact: %w", err)
		}
	case err != nil:
		return "", err
	default:
		_, err = tx.ExecContext(
			ctx,
			`UPDATE facts SET value = ?, confidence = ?, source = ?, metadata = ?, updated_at = ? WHERE id = ?`,
			value, confidence, string(source), string(metaJSON), now, id,
		)
		if err != nil {
			return "", fmt.Errorf("update fact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return id, nil
}

func (s *sqliteStorer) Get(ctx context.Context, userId string, key string, category string) (*facts.Fact, error) {
	query := `SELECT ` + factColumns + ` FROM facts WHERE user_id = ? AND key = ? AND active = 1`
	args := []any{userId, key}

	if len(category) > 0 {
		query += ` AND category = ?`
		args = append(args, category)
	}

	query += ` ORDER BY updated_at DESC LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, args...)

	fact, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return fact, nil
}

func (s *sqliteStorer) GetByCategory(ctx context.Context, userId string, category string) ([]facts.Fact, error) {
	return s.query(
		ctx,
		`SELECT `+factColumns+` FROM facts WHERE user_id = ? AND category = ? AND active = 1 ORDER BY updated_at DESC`,
		userId, category,
	)
}

func (s *sqliteStorer) GetAll(ctx context.Context, userId string) ([]facts.Fact, error) {
	return s.query(
		ctx,
		`SELECT `+factColumns+` FROM facts WHERE user_id = ? AND active = 1 ORDER BY category ASC, updated_at DESC`,
		userId,
	)
}

func (s *sqliteStorer) Search(ctx context.Context, userId string, query string, category string) ([]facts.Fact, error) {
	needle := "%" + strings.ToLower(query) + "%"

	sqlQuery := `SELECT ` + factColumns + ` FROM facts WHERE user_id = ? AND active = 1 AND (lower(key) LIKE ? OR lower(value) LIKE ?)`
	args := []any{userId, needle, needle}

	if len(category) > 0 {
		sqlQuery += ` AND category = ?`
		args = append(args, category)
	}

	sqlQuery += ` ORDER BY confidence DESC, updated_at DESC`

	return s.query(ctx, sqlQuery, args...)
}

func (s *sqliteStorer) Delete(ctx context.Context, userId string, key string, category string) (bool, error) {
	query := `UPDATE facts SET active = 0, updated_at = ? WHERE user_id = ? AND key = ? AND active = 1`
	args := []any{time.Now().UTC().Format(timeFormat), userId, key}

	if len(category) > 0 {
		query += ` AND category = ?`
		args = append(args, category)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("soft delete fact: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (s *sqliteStorer) StoreSummary(ctx context.Context, summary facts.Summary) (string, error) {
	if len(summary.Id) == 0 {
		summary.Id = uuid.New().String()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}

	topics, err := json.Marshal(summary.Topics)
	if err != nil {
		return "", fmt.Errorf("marshal topics: %w", err)
	}

	items, err := json.Marshal(summary.ActionItems)
	if err != nil {
		return "", fmt.Errorf("marshal action items: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO summaries (id, user_id, session_id, summary, topics, action_items, sentiment, message_count, started_at, ended_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.Id, summary.UserId, summary.SessionId, summary.Summary,
		string(topics), string(items), summary.Sentiment, summary.MessageCount,
		summary.StartedAt.UTC().Format(timeFormat),
		summary.EndedAt.UTC().Format(timeFormat),
		summary.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return "", fmt.Errorf("insert summary: %w", err)
	}

	return summary.Id, nil
}

func (s *sqliteStorer) ListSummaries(ctx context.Context, userId string) ([]facts.Summary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, session_id, summary, topics, action_items, sentiment, message_count, started_at, ended_at, created_at
		 FROM summaries WHERE user_id = ? ORDER BY created_at DESC`,
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []facts.Summary

	for rows.Next() {
		var sum facts.Summary
		var topics, items, startedAt, endedAt, createdAt string

		if err := rows.Scan(
			&sum.Id, &sum.UserId, &sum.SessionId, &sum.Summary,
			&topics, &items, &sum.Sentiment, &sum.MessageCount,
			&startedAt, &endedAt, &createdAt,
		); err != nil {
			return nil, err
		}

		_ = json.Unmarshal([]byte(topics), &sum.Topics)
		_ = json.Unmarshal([]byte(items), &sum.ActionItems)
		sum.StartedAt, _ = time.Parse(timeFormat, startedAt)
		sum.EndedAt, _ = time.Parse(timeFormat, endedAt)
		sum.CreatedAt, _ = time.Parse(timeFormat, createdAt)

		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}

func (s *sqliteStorer) query(ctx context.Context, query string, args ...any) ([]facts.Fact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []facts.Fact

	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *fact)
	}

	return results, rows.Err()
}

func (s *sqliteStorer) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFact(row scanner) (*facts.Fact, error) {
	var fact facts.Fact
	var source, metaJSON, createdAt, updatedAt string
	var active int

	err := row.Scan(
		&fact.Id, &fact.UserId, &fact.Key, &fact.Value, &fact.Category,
		&fact.Confidence, &source, &metaJSON, &active, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	fact.Source = facts.Source(source)
	fact.Active = active == 1

	if err := json.Unmarshal([]byte(metaJSON), &fact.Metadata); err != nil {
		fact.Metadata = nil
	}

	fact.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	fact.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return &fact, nil
}

// NewStorer opens (or creates) the sqlite database at the configured
// location and applies the schema. Location ":memory:" is valid for tests.
func NewStorer(opts ...facts.Option) (*sqliteStorer, error) {
	options := facts.NewOptions(opts...)

	if len(options.Location) == 0 {
		return nil, fmt.Errorf("missing location for sqlite storer")
	}

	db, err := sql.Open("sqlite", options.Location+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// A single writer keeps :memory: databases coherent across pool conns.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &sqliteStorer{
		options: options,
		db:      db,
	}, nil
}
