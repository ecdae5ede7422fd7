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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("model:\n  api_key: test-key\n"))
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.Model.Provider)
	assert.Equal(t, DefaultModelName, cfg.Model.Model)
	assert.Equal(t, DefaultSystemInstruction, cfg.Graph.SystemInstruction)
	assert.Equal(t, DefaultMaxSteps, cfg.Graph.MaxSteps)
	assert.Equal(t, UnknownToolsDrop, cfg.Graph.UnknownTools)
	assert.Equal(t, []string{"multiply_function", "add_function"}, cfg.Graph.Tools)
	assert.False(t, cfg.Graph.Approval.Enabled)
	assert.Equal(t, ApprovalAlways, cfg.Graph.Approval.Policy)
	assert.Equal(t, CheckpointBackendMemory, cfg.Checkpoint.Backend)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "/a2a/chatbot", cfg.Server.Route)
	assert.Equal(t, "http://localhost:8000/a2a/chatbot", cfg.Server.PublicURL)
	assert.True(t, cfg.Server.Streaming())
	assert.Equal(t, "1.5.0", cfg.Server.Version)
	assert.Equal(t, []string{TransportJSONRPC, TransportHTTPJSON}, cfg.Server.Transports)
	assert.Equal(t, "http://localhost:8000", cfg.Server.RESTURL())
	assert.Equal(t, time.Second, cfg.Remote.PollInterval)
	assert.Equal(t, 60, cfg.Remote.MaxPolls)
	assert.Equal(t, TimeoutPartial, cfg.Remote.TimeoutPolicy)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("GRAPHCHAT_TEST_KEY", "from-env")
	t.Setenv("GRAPHCHAT_TEST_ROUTE", "")

	cfg, err := Parse([]byte(`
model:
  api_key: ${GRAPHCHAT_TEST_KEY}
server:
  route: ${GRAPHCHAT_TEST_ROUTE:-/a2a/custom}
remote:
  poll_interval: 250ms
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Model.APIKey)
	assert.Equal(t, "/a2a/custom", cfg.Server.Route)
	assert.Equal(t, 250*time.Millisecond, cfg.Remote.PollInterval)
}

func TestParse_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "google-key", cfg.Model.APIKey)
}

func TestParse_JSON(t *testing.T) {
	cfg, err := Parse([]byte(`{"model": {"api_key": "k"}, "graph": {"max_steps": 3}}`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Graph.MaxSteps)
}

func TestParse_Errors(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing api key", "graph: {}", "api_key is required"},
		{"unknown key", "model: {api_key: k}\nmodle: {}", "modle"},
		{"bad unknown tool policy", "model: {api_key: k}\ngraph: {unknown_tools: ignore}", "unknown_tools"},
		{"rego without module", "model: {api_key: k}\ngraph: {approval: {enabled: true, policy: rego}}", "rego or rego_file"},
		{"undefined checkpoint database", "model: {api_key: k}\ncheckpoint: {backend: sql, database: main}", `checkpoint.database "main"`},
		{"undefined task database", "model: {api_key: k}\nserver: {tasks: {backend: sql, database: tasks}}", `server.tasks.database "tasks"`},
		{"bad mode", "model: {api_key: k}\nserver: {mode: batch}", "invalid mode"},
		{"bad log level", "model: {api_key: k}\nlogger: {level: loud}", "invalid log level"},
		{"bad log format", "model: {api_key: k}\nlogger: {format: xml}", "invalid log format"},
		{"bad transport", "model: {api_key: k}\nserver: {transports: [SOAP]}", "invalid transport"},
		{"bad timeout policy", "model: {api_key: k}\nremote: {timeout_policy: retry}", "timeout_policy"},
		{"stdio without command", "model: {api_key: k}\nmcp: {servers: [{name: a, transport: stdio}]}", "command is required"},
		{"invalid yaml", "model: [unclosed", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_Transports(t *testing.T) {
	cfg, err := Parse([]byte("model: {api_key: k}\nserver: {transports: [HTTP+JSON]}"))
	require.NoError(t, err)
	assert.True(t, cfg.Server.HasTransport(TransportHTTPJSON))
	assert.False(t, cfg.Server.HasTransport(TransportJSONRPC))
}

func TestParse_SQLCheckpoint(t *testing.T) {
	cfg, err := Parse([]byte(`
model: {api_key: k}
checkpoint:
  backend: sql
  database: main
databases:
  main:
    driver: sqlite
    database: ./graphchat.db
`))
	require.NoError(t, err)
	db, ok := cfg.Database("main")
	require.True(t, ok)
	assert.Equal(t, "sqlite3", db.DriverName())
	assert.Equal(t, "sqlite", db.Dialect())
}

func TestMCPDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
model: {api_key: k}
mcp:
  servers:
    - command: ./server
    - name: weather
      url: http://localhost:9000/mcp
`))
	require.NoError(t, err)
	require.Len(t, cfg.MCP.Servers, 2)
	assert.Equal(t, "mcp-0", cfg.MCP.Servers[0].Name)
	assert.Equal(t, "stdio", cfg.MCP.Servers[0].Transport)
	assert.Equal(t, "streamable-http", cfg.MCP.Servers[1].Transport)
}

func TestLoader_FileNotFound(t *testing.T) {
	_, _, err := LoadConfigFile(context.Background(), "/nonexistent/graphchat.yaml")
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoader_WatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: {api_key: k}\ngraph: {max_steps: 5}\n"), 0o644))

	src, err := NewFileSource(path, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	reloaded := make(chan *Config, 4)
	loader := NewLoader(src, WithOnChange(func(cfg *Config) { reloaded <- cfg }))
	defer loader.Close()

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Graph.MaxSteps)
	assert.Same(t, cfg, loader.Current())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loader.Watch(ctx) }()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-reloaded:
			assert.Equal(t, 7, cfg.Graph.MaxSteps)
			assert.Same(t, cfg, loader.Current())
			return
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte("model: {api_key: k}\ngraph: {max_steps: 7}\n"), 0o644))
		case <-deadline:
			t.Fatal("config was not reloaded")
		}
	}
}
