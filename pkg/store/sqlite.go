// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// SQLiteStore keeps snapshots in a single-file database. It suits
// single-node deployments that do not run Redis.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS pipelines (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL,
		body TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pipelines_user ON pipelines(user_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put upserts the snapshot.
func (s *SQLiteStore) Put(ctx context.Context, p *pipeline.Pipeline) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline %s: %w", p.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pipelines (id, user_id, status, body, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			status = excluded.status,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		p.ID, p.UserID, string(p.Status), string(body), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store pipeline %s: %w", p.ID, err)
	}
	return nil
}

// Get loads the snapshot for id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*pipeline.Pipeline, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM pipelines WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline %s: %w", id, err)
	}

	var p pipeline.Pipeline
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline %s: %w", id, err)
	}
	return &p, nil
}

// Delete removes the snapshot for id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pipelines WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete pipeline %s: %w", id, err)
	}
	return nil
}

// List returns all snapshots ordered by id.
func (s *SQLiteStore) List(ctx context.Context) ([]*pipeline.Pipeline, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, body FROM pipelines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}
	defer rows.Close()

	var out []*pipeline.Pipeline
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline row: %w", err)
		}
		var p pipeline.Pipeline
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			logrus.Errorf("skipping corrupt pipeline record %s: %v", id, err)
			continue
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Ping checks the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
