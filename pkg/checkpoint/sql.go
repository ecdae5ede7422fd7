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

package checkpoint

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// migrationTable records applied checkpoint migrations. It is separate from
// goose's default table so other stores can migrate the same database.
const migrationTable = "graphchat_checkpoint_migrations"

//go:embed migrations
var migrations embed.FS

// SQLStore persists checkpoints in a SQL database.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLStore creates a SQL-backed store and applies pending migrations.
// The db connection should come from the shared pool so SQLite keeps a single
// writer.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect string) (*SQLStore, error) {
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
		return nil, fmt.Errorf("failed to migrate checkpoint schema: %w", err)
	}
	if len(results) > 0 {
		slog.Info("Applied checkpoint migrations", "dialect", dialect, "count", len(results))
	}

	return &SQLStore{db: db, dialect: dialect}, nil
}

// Get loads the checkpoint of threadID.
func (s *SQLStore) Get(ctx context.Context, threadID string) (*State, error) {
	query := `SELECT state_json FROM graph_checkpoints WHERE thread_id = ?`
	if s.dialect == "postgres" {
		query = `SELECT state_json FROM graph_checkpoints WHERE thread_id = $1`
	}

	var data string
	err := s.db.QueryRowContext(ctx, query, threadID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoint: %w", err)
	}
	return Deserialize([]byte(data))
}

// Put upserts the checkpoint of state.ThreadID in one statement.
func (s *SQLStore) Put(ctx context.Context, state *State) error {
	if err := validateForPut(state); err != nil {
		return err
	}
	data, err := state.Serialize()
	if err != nil {
		return err
	}

	var query string
	switch s.dialect {
	case "postgres":
		query = `
INSERT INTO graph_checkpoints (thread_id, status, version, state_json, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (thread_id) DO UPDATE SET
    status = EXCLUDED.status,
    version = EXCLUDED.version,
    state_json = EXCLUDED.state_json,
    updated_at = EXCLUDED.updated_at
`
	case "mysql":
		query = `
INSERT INTO graph_checkpoints (thread_id, status, version, state_json, updated_at)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    status = VALUES(status),
    version = VALUES(version),
    state_json = VALUES(state_json),
    updated_at = VALUES(updated_at)
`
	default:
		query = `
INSERT INTO graph_checkpoints (thread_id, status, version, state_json, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(thread_id) DO UPDATE SET
    status = excluded.status,
    version = excluded.version,
    state_json = excluded.state_json,
    updated_at = excluded.updated_at
`
	}

	if _, err := s.db.ExecContext(ctx, query,
		state.ThreadID, string(state.Status), state.Version, string(data), state.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

var _ Store = (*SQLStore)(nil)
