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

// Package tool defines the capabilities a graph may invoke on behalf of the model.
//
// Tools are supplied explicitly when a graph is built, through a Registry.
// There is no ambient lookup: a tool call naming something that was not
// registered never reaches a tool.
//
// # Creating Tools
//
//	// Typed function tool
//	add, _ := functiontool.New(functiontool.Config{Name: "add", Description: "..."}, addFn)
//
//	// Tools served by an MCP server
//	set, _ := mcptoolset.New(mcptoolset.Config{Name: "calc", URL: "http://localhost:9000/mcp"})
//
//	// A remote A2A agent used as a tool
//	remoteTool, _ := remote.NewTool(bridge, remote.ToolConfig{Name: "calculator"})
package tool

import (
	"context"
)

// Tool defines the base interface for a tool.
type Tool interface {
	// Name returns the unique name of the tool.
	Name() string

	// Description returns a human-readable description of what the tool does.
	// Used by models to decide when to use this tool.
	Description() string

	// Schema returns the JSON schema for the tool's parameters.
	// Returns nil if the tool takes no parameters.
	Schema() map[string]any
}

// CallableTool extends Tool with synchronous execution.
type CallableTool interface {
	Tool

	// Call executes the tool with the given arguments.
	// A returned error aborts the run; a Result with IsError set is
	// reported back to the model instead.
	Call(ctx context.Context, args map[string]any) (*Result, error)
}

// Result represents the output of a tool execution.
type Result struct {
	// Content is the textual output handed back to the model.
	Content string

	// IsError marks a failure the model should see rather than the caller.
	IsError bool
}

// Text returns a successful result.
func Text(content string) *Result {
	return &Result{Content: content}
}

// Definition describes a tool to a model.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Toolset groups tools that are resolved together, such as all tools of one
// MCP server.
type Toolset interface {
	// Name returns the name of this toolset.
	Name() string

	// Tools connects if needed and returns the available tools.
	Tools(ctx context.Context) ([]CallableTool, error)

	// Close releases connections held by the toolset.
	Close() error
}
