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

package task

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/graphchat/pkg/checkpoint"
	"github.com/kadirpekel/graphchat/pkg/config"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleTask() *a2a.Task {
	return &a2a.Task{
		ID:        a2a.TaskID("task-1"),
		ContextID: "thread-1",
		Status:    a2a.TaskStatus{State: a2a.TaskStateWorking},
	}
}

func TestSQLTaskStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLTaskStore(ctx, openSQLite(t), "sqlite3")
	require.NoError(t, err)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, a2a.ErrTaskNotFound)

	task := sampleTask()
	require.NoError(t, store.Save(ctx, task))

	got, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "thread-1", got.ContextID)
	assert.Equal(t, a2a.TaskStateWorking, got.Status.State)
	assert.Empty(t, got.Artifacts)

	task.Status = a2a.TaskStatus{State: a2a.TaskStateCompleted}
	task.Artifacts = []*a2a.Artifact{{
		ID:    a2a.ArtifactID("artifact-1"),
		Parts: a2a.ContentParts{a2a.TextPart{Text: "100 * 200 = 20000"}},
	}}
	task.Metadata = map[string]any{"steps": 2.0}
	require.NoError(t, store.Save(ctx, task))

	got, err = store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
	require.Len(t, got.Artifacts, 1)
	require.Len(t, got.Artifacts[0].Parts, 1)
	var text string
	switch p := got.Artifacts[0].Parts[0].(type) {
	case a2a.TextPart:
		text = p.Text
	case *a2a.TextPart:
		text = p.Text
	}
	assert.Equal(t, "100 * 200 = 20000", text)
	assert.Equal(t, 2.0, got.Metadata["steps"])
}

func TestSQLTaskStore_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewSQLTaskStore(ctx, nil, "sqlite")
	assert.ErrorContains(t, err, "database connection is required")

	_, err = NewSQLTaskStore(ctx, openSQLite(t), "oracle")
	assert.ErrorContains(t, err, "unsupported dialect")

	store, err := NewSQLTaskStore(ctx, openSQLite(t), "sqlite")
	require.NoError(t, err)
	assert.Error(t, store.Save(ctx, nil))
}

func TestSQLTaskStore_SharesDatabaseWithCheckpoints(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	_, err := checkpoint.NewSQLStore(ctx, db, "sqlite")
	require.NoError(t, err)
	store, err := NewSQLTaskStore(ctx, db, "sqlite")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, sampleTask()))

	// Re-opening applies nothing new.
	_, err = NewSQLTaskStore(ctx, db, "sqlite")
	require.NoError(t, err)
}

func TestNewTaskStoreFromConfig(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.SetDefaults()
	store, err := NewTaskStoreFromConfig(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, store)

	cfg = &config.Config{
		Server: config.ServerConfig{Tasks: config.TasksConfig{Backend: config.StorageBackendSQL, Database: "main"}},
		Databases: map[string]*config.DatabaseConfig{
			"main": {Driver: "sqlite", Database: filepath.Join(t.TempDir(), "graphchat.db")},
		},
	}
	cfg.SetDefaults()

	_, err = NewTaskStoreFromConfig(ctx, cfg, nil)
	assert.ErrorContains(t, err, "DBPool is required")

	pool := config.NewDBPool()
	defer pool.Close()
	store, err = NewTaskStoreFromConfig(ctx, cfg, pool)
	require.NoError(t, err)
	assert.IsType(t, &SQLTaskStore{}, store)
}
