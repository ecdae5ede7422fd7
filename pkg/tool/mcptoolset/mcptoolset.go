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

// Package mcptoolset provides a Toolset implementation for MCP servers.
//
// The toolset uses lazy initialization: the MCP connection is only
// established when Tools() is first called.
//
// Transport Support:
//   - stdio: subprocess communication
//   - sse: legacy HTTP+SSE servers
//   - streamable-http: the current HTTP transport
//
// HTTP transports send an Authorization bearer header when Token is set.
package mcptoolset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kadirpekel/graphchat/pkg/tool"
)

// Supported transports.
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

const protocolVersion = "2024-11-05"

// Config configures an MCP toolset.
type Config struct {
	// Name identifies this toolset.
	Name string

	// URL is the MCP server URL (for HTTP transports).
	URL string

	// Transport specifies the MCP transport (stdio, sse, streamable-http).
	// Defaults to stdio when Command is set, streamable-http otherwise.
	Transport string

	// Token is sent as a bearer token on HTTP transports.
	Token string

	// Headers are extra HTTP headers.
	Headers map[string]string

	// Command for stdio transport.
	Command string

	// Args for stdio transport.
	Args []string

	// Env for stdio transport.
	Env map[string]string

	// Filter limits which tools are exposed.
	Filter []string
}

// Toolset is an MCP-backed toolset with lazy initialization.
type Toolset struct {
	cfg       Config
	filterSet map[string]bool

	// dial is replaced in tests.
	dial func(ctx context.Context) (*client.Client, error)

	mu        sync.Mutex
	client    *client.Client
	tools     []tool.CallableTool
	connected bool
}

// New creates a new MCP toolset.
func New(cfg Config) (*Toolset, error) {
	if cfg.URL == "" && cfg.Command == "" {
		return nil, fmt.Errorf("either url or command is required")
	}
	if cfg.Transport == "" {
		if cfg.Command != "" {
			cfg.Transport = TransportStdio
		} else {
			cfg.Transport = TransportStreamableHTTP
		}
	}
	switch cfg.Transport {
	case TransportStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("command is required for stdio transport")
		}
	case TransportSSE, TransportStreamableHTTP, "streamable_http":
		if cfg.URL == "" {
			return nil, fmt.Errorf("url is required for %s transport", cfg.Transport)
		}
	default:
		return nil, fmt.Errorf("unsupported MCP transport %q", cfg.Transport)
	}
	if cfg.Name == "" {
		cfg.Name = "mcp"
	}

	var filterSet map[string]bool
	if len(cfg.Filter) > 0 {
		filterSet = make(map[string]bool, len(cfg.Filter))
		for _, name := range cfg.Filter {
			filterSet[name] = true
		}
	}

	t := &Toolset{cfg: cfg, filterSet: filterSet}
	t.dial = t.newClient
	return t, nil
}

// Name returns the toolset name.
func (t *Toolset) Name() string {
	return t.cfg.Name
}

// Tools returns the available tools, connecting lazily if needed.
func (t *Toolset) Tools(ctx context.Context) ([]tool.CallableTool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		if err := t.connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to MCP server %s: %w", t.cfg.Name, err)
		}
	}
	return t.tools, nil
}

func (t *Toolset) newClient(ctx context.Context) (*client.Client, error) {
	switch t.cfg.Transport {
	case TransportStdio:
		return client.NewStdioMCPClient(t.cfg.Command, convertEnv(t.cfg.Env), t.cfg.Args...)
	case TransportSSE:
		return client.NewSSEMCPClient(t.cfg.URL, transport.WithHeaders(t.headers()))
	default:
		return client.NewStreamableHttpClient(t.cfg.URL, transport.WithHTTPHeaders(t.headers()))
	}
}

func (t *Toolset) headers() map[string]string {
	h := make(map[string]string, len(t.cfg.Headers)+1)
	for k, v := range t.cfg.Headers {
		h[k] = v
	}
	if t.cfg.Token != "" {
		h["Authorization"] = "Bearer " + t.cfg.Token
	}
	return h
}

// connect establishes the MCP connection. Caller holds t.mu.
func (t *Toolset) connect(ctx context.Context) error {
	mcpClient, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "graphchat",
		Version: "1.5.0",
	}
	initReq.Params.ProtocolVersion = protocolVersion

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to initialize MCP: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to list tools: %w", err)
	}

	var tools []tool.CallableTool
	for _, remote := range listResp.Tools {
		if t.filterSet != nil && !t.filterSet[remote.Name] {
			continue
		}
		tools = append(tools, &mcpTool{
			toolset: t,
			name:    remote.Name,
			desc:    remote.Description,
			schema:  convertSchema(remote.InputSchema),
		})
	}

	t.client = mcpClient
	t.tools = tools
	t.connected = true

	slog.Info("Connected to MCP server",
		"name", t.cfg.Name,
		"transport", t.cfg.Transport,
		"tools", len(tools),
	)
	return nil
}

// Close closes the MCP connection.
func (t *Toolset) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.connected = false
	t.tools = nil
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

func (t *Toolset) currentClient() *client.Client {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client
}

// mcpTool wraps an MCP tool as tool.CallableTool.
type mcpTool struct {
	toolset *Toolset
	name    string
	desc    string
	schema  map[string]any
}

func (w *mcpTool) Name() string           { return w.name }
func (w *mcpTool) Description() string    { return w.desc }
func (w *mcpTool) Schema() map[string]any { return w.schema }

// Call executes the tool on the MCP server. Tool-level failures reported by
// the server come back as error results, transport failures as errors.
func (w *mcpTool) Call(ctx context.Context, args map[string]any) (*tool.Result, error) {
	mcpClient := w.toolset.currentClient()
	if mcpClient == nil {
		return nil, fmt.Errorf("MCP client not connected")
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = w.name
	req.Params.Arguments = args

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("MCP call failed: %w", err)
	}
	return convertResult(resp), nil
}

// convertResult joins the text content of a tool result.
func convertResult(resp *mcp.CallToolResult) *tool.Result {
	if resp == nil {
		return &tool.Result{}
	}
	var texts []string
	for _, content := range resp.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			texts = append(texts, textContent.Text)
		}
	}
	res := &tool.Result{Content: strings.Join(texts, "\n"), IsError: resp.IsError}
	if res.IsError && res.Content == "" {
		res.Content = "unknown error"
	}
	return res
}

// convertEnv converts map to slice of "KEY=VALUE".
func convertEnv(env map[string]string) []string {
	if env == nil {
		return nil
	}
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// convertSchema converts MCP tool schema to map.
func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

var (
	_ tool.Toolset      = (*Toolset)(nil)
	_ tool.CallableTool = (*mcpTool)(nil)
)
