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

package mcptoolset

import (
	"context"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *server.MCPServer {
	s := server.NewMCPServer("test", "1.0.0")
	s.AddTool(mcp.NewTool("echo",
		mcp.WithDescription("Echoes text"),
		mcp.WithString("text", mcp.Required()),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(fmt.Sprint(req.GetArguments()["text"])), nil
	})
	s.AddTool(mcp.NewTool("broken",
		mcp.WithDescription("Always fails"),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("broken on purpose"), nil
	})
	return s
}

func inProcess(t *testing.T, cfg Config) *Toolset {
	t.Helper()
	set, err := New(cfg)
	require.NoError(t, err)
	srv := newTestServer()
	set.dial = func(context.Context) (*client.Client, error) {
		return client.NewInProcessClient(srv)
	}
	t.Cleanup(func() { set.Close() })
	return set
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"empty", Config{}, "either url or command"},
		{"stdio without command", Config{URL: "http://x", Transport: TransportStdio}, "command is required"},
		{"unknown transport", Config{URL: "http://x", Transport: "carrier-pigeon"}, "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	set, err := New(Config{Command: "mcp-server"})
	require.NoError(t, err)
	assert.Equal(t, TransportStdio, set.cfg.Transport)

	set, err = New(Config{URL: "http://localhost:9000/mcp"})
	require.NoError(t, err)
	assert.Equal(t, TransportStreamableHTTP, set.cfg.Transport)
}

func TestHeaders_BearerToken(t *testing.T) {
	set, err := New(Config{URL: "http://x", Token: "secret", Headers: map[string]string{"X-Trace": "1"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Authorization": "Bearer secret", "X-Trace": "1"}, set.headers())
}

func TestToolset_InProcess(t *testing.T) {
	set := inProcess(t, Config{Name: "local", URL: "inproc"})

	tools, err := set.Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)

	byName := map[string]int{}
	for i, tl := range tools {
		byName[tl.Name()] = i
	}
	echo := tools[byName["echo"]]
	assert.Equal(t, "Echoes text", echo.Description())
	assert.Equal(t, "object", echo.Schema()["type"])

	res, err := echo.Call(context.Background(), map[string]any{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Content)
	assert.False(t, res.IsError)

	res, err = tools[byName["broken"]].Call(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "broken on purpose", res.Content)
}

func TestToolset_Filter(t *testing.T) {
	set := inProcess(t, Config{URL: "inproc", Filter: []string{"echo"}})

	tools, err := set.Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "echo", tools[0].Name())
}

func TestCall_AfterClose(t *testing.T) {
	set := inProcess(t, Config{URL: "inproc"})
	tools, err := set.Tools(context.Background())
	require.NoError(t, err)
	require.NoError(t, set.Close())

	_, err = tools[0].Call(context.Background(), nil)
	assert.ErrorContains(t, err, "not connected")
}

func TestConvertResult(t *testing.T) {
	res := convertResult(&mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "a"}, mcp.TextContent{Type: "text", Text: "b"}},
	})
	assert.Equal(t, "a\nb", res.Content)

	res = convertResult(&mcp.CallToolResult{IsError: true})
	assert.True(t, res.IsError)
	assert.Equal(t, "unknown error", res.Content)
}
