// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package task persists A2A tasks for the server.
//
// The in-memory backend is the a2asrv default and needs no store here. The
// sql backend keeps one row per task in a2a_tasks, with status, history,
// artifacts and metadata stored as JSON, so a restarted server can still
// resume a thread waiting in input-required.
package task

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

const migrationTable = "graphchat_task_migrations"

//go:embed migrations
var migrations embed.FS

// SQLTaskStore implements a2asrv.TaskStore on a SQL database.
type SQLTaskStore struct {
	db      *sql.DB
	dialect string
}

type taskRow struct {
	ID            string
	ContextID     string
	State         string
	StatusJSON    string
	HistoryJSON   sql.NullString
	ArtifactsJSON sql.NullString
	MetadataJSON  sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSQLTaskStore creates the store and applies pending migrations.
// The db connection should be shared with the checkpoint store when both
// use the same SQLite file.
func NewSQLTaskStore(ctx context.Context, db *sql.DB, dialect string) (*SQLTaskStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if dialect == "sqlite3" {
		dialect = "sqlite"
	}

	var gooseDialect goose.Dialect
	switch dialect {
	case "sqlite":
		gooseDialect = goose.DialectSQLite3
	case "postgres":
		gooseDialect = goose.DialectPostgres
	case "mysql":
		gooseDialect = goose.DialectMySQL
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	fsys, err := fs.Sub(migrations, "migrations/"+dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	store, err := database.NewStore(gooseDialect, migrationTable)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration store: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectCustom, db, fsys, goose.WithStore(store))
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate task schema: %w", err)
	}
	if len(results) > 0 {
		slog.Info("Applied task migrations", "dialect", dialect, "count", len(results))
	}

	return &SQLTaskStore{db: db, dialect: dialect}, nil
}

// Save upserts task. created_at is kept on update.
func (s *SQLTaskStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task is required")
	}
	row, err := toRow(task)
	if err != nil {
		return fmt.Errorf("failed to serialize task: %w", err)
	}

	var query string
	switch s.dialect {
	case "postgres":
		query = `
INSERT INTO a2a_tasks (id, context_id, state, status_json, history_json, artifacts_json, metadata_json, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    context_id = EXCLUDED.context_id,
    state = EXCLUDED.state,
    status_json = EXCLUDED.status_json,
    history_json = EXCLUDED.history_json,
    artifacts_json = EXCLUDED.artifacts_json,
    metadata_json = EXCLUDED.metadata_json,
    updated_at = EXCLUDED.updated_at
`
	case "mysql":
		query = `
INSERT INTO a2a_tasks (id, context_id, state, status_json, history_json, artifacts_json, metadata_json, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    context_id = VALUES(context_id),
    state = VALUES(state),
    status_json = VALUES(status_json),
    history_json = VALUES(history_json),
    artifacts_json = VALUES(artifacts_json),
    metadata_json = VALUES(metadata_json),
    updated_at = VALUES(updated_at)
`
	default:
		query = `
INSERT INTO a2a_tasks (id, context_id, state, status_json, history_json, artifacts_json, metadata_json, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    context_id = excluded.context_id,
    state = excluded.state,
    status_json = excluded.status_json,
    history_json = excluded.history_json,
    artifacts_json = excluded.artifacts_json,
    metadata_json = excluded.metadata_json,
    updated_at = excluded.updated_at
`
	}

	if _, err := s.db.ExecContext(ctx, query,
		row.ID, row.ContextID, row.State, row.StatusJSON,
		row.HistoryJSON, row.ArtifactsJSON, row.MetadataJSON,
		row.CreatedAt, row.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	slog.Debug("Task saved", "task_id", row.ID, "state", row.State)
	return nil
}

// Get loads a task, or returns a2a.ErrTaskNotFound.
func (s *SQLTaskStore) Get(ctx context.Context, taskID a2a.TaskID) (*a2a.Task, error) {
	query := `
SELECT id, context_id, state, status_json, history_json, artifacts_json, metadata_json, created_at, updated_at
FROM a2a_tasks WHERE id = ?`
	if s.dialect == "postgres" {
		query = `
SELECT id, context_id, state, status_json, history_json, artifacts_json, metadata_json, created_at, updated_at
FROM a2a_tasks WHERE id = $1`
	}

	var row taskRow
	err := s.db.QueryRowContext(ctx, query, string(taskID)).Scan(
		&row.ID, &row.ContextID, &row.State, &row.StatusJSON,
		&row.HistoryJSON, &row.ArtifactsJSON, &row.MetadataJSON,
		&row.CreatedAt, &row.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, a2a.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return fromRow(&row)
}

func toRow(task *a2a.Task) (*taskRow, error) {
	status, err := json.Marshal(task.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status: %w", err)
	}
	history, err := marshalNullable(task.History, len(task.History) > 0)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	artifacts, err := marshalNullable(task.Artifacts, len(task.Artifacts) > 0)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifacts: %w", err)
	}
	metadata, err := marshalNullable(task.Metadata, len(task.Metadata) > 0)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := time.Now().UTC()
	return &taskRow{
		ID:            string(task.ID),
		ContextID:     task.ContextID,
		State:         string(task.Status.State),
		StatusJSON:    string(status),
		HistoryJSON:   history,
		ArtifactsJSON: artifacts,
		MetadataJSON:  metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func marshalNullable(v any, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func fromRow(row *taskRow) (*a2a.Task, error) {
	task := &a2a.Task{
		ID:        a2a.TaskID(row.ID),
		ContextID: row.ContextID,
	}
	if err := json.Unmarshal([]byte(row.StatusJSON), &task.Status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	if row.HistoryJSON.Valid {
		if err := json.Unmarshal([]byte(row.HistoryJSON.String), &task.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history: %w", err)
		}
	}
	if row.ArtifactsJSON.Valid {
		if err := json.Unmarshal([]byte(row.ArtifactsJSON.String), &task.Artifacts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifacts: %w", err)
		}
	}
	if row.MetadataJSON.Valid {
		if err := json.Unmarshal([]byte(row.MetadataJSON.String), &task.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return task, nil
}

var _ a2asrv.TaskStore = (*SQLTaskStore)(nil)
