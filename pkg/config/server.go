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
	"fmt"
	"slices"
	"strings"
)

// HTTP transports served next to the agent card.
const (
	TransportJSONRPC  = "JSONRPC"
	TransportHTTPJSON = "HTTP+JSON"
)

// Execution modes of the task adapter.
const (
	ModeImmediate = "immediate"
	ModeDeferred  = "deferred"
	ModeStreaming = "streaming"
)

// ServerConfig configures the A2A server.
type ServerConfig struct {
	// Host to bind to.
	// Default: 0.0.0.0
	Host string `yaml:"host,omitempty"`

	// Port to listen on (HTTP/JSON-RPC).
	// Default: 8000
	Port int `yaml:"port,omitempty"`

	// Route is the JSON-RPC endpoint path.
	// Default: /a2a/chatbot
	Route string `yaml:"route,omitempty"`

	// PublicURL is advertised in the agent card.
	// Default: http://localhost:<port><route>
	PublicURL string `yaml:"public_url,omitempty"`

	// Mode selects how runs are reported: "immediate", "deferred", or
	// "streaming" (default). Only streaming advertises the streaming capability.
	Mode string `yaml:"mode,omitempty"`

	// Version is advertised in the agent card.
	// Default: 1.5.0
	Version string `yaml:"version,omitempty"`

	// Transports lists the HTTP transports to serve. The first one is the
	// preferred transport on the agent card.
	// Default: [JSONRPC, HTTP+JSON]
	Transports []string `yaml:"transports,omitempty"`

	// GRPC enables the additional gRPC transport.
	GRPC GRPCConfig `yaml:"grpc,omitempty"`

	// Tasks configures the task store for A2A task persistence.
	Tasks TasksConfig `yaml:"tasks,omitempty"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`

	// Port for the gRPC listener.
	// Default: 50051
	Port int `yaml:"port,omitempty"`
}

// StorageBackend identifies a storage backend type.
type StorageBackend string

const (
	// StorageBackendInMemory uses in-memory storage (default).
	StorageBackendInMemory StorageBackend = "inmemory"

	// StorageBackendSQL uses SQL database for persistence.
	StorageBackendSQL StorageBackend = "sql"
)

// TasksConfig configures task storage.
type TasksConfig struct {
	// Backend specifies the storage backend: "inmemory" (default) or "sql".
	Backend StorageBackend `yaml:"backend,omitempty"`

	// Database is a reference to a database defined in the databases section.
	// Required when Backend is "sql".
	Database string `yaml:"database,omitempty"`
}

// SetDefaults applies default values to ServerConfig.
func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.Route == "" {
		c.Route = "/a2a/chatbot"
	}
	if c.PublicURL == "" {
		c.PublicURL = fmt.Sprintf("http://localhost:%d%s", c.Port, c.Route)
	}
	if c.Mode == "" {
		c.Mode = ModeStreaming
	}
	if c.Version == "" {
		c.Version = "1.5.0"
	}
	if len(c.Transports) == 0 {
		c.Transports = []string{TransportJSONRPC, TransportHTTPJSON}
	}
	if c.GRPC.Port == 0 {
		c.GRPC.Port = 50051
	}
	c.Tasks.SetDefaults()
}

// Validate checks the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.GRPC.Enabled && (c.GRPC.Port <= 0 || c.GRPC.Port > 65535 || c.GRPC.Port == c.Port) {
		return fmt.Errorf("invalid grpc.port %d", c.GRPC.Port)
	}
	if !strings.HasPrefix(c.Route, "/") {
		return fmt.Errorf("route must start with '/', got %q", c.Route)
	}
	if len(c.Transports) == 0 {
		return fmt.Errorf("at least one transport is required")
	}
	for _, t := range c.Transports {
		if t != TransportJSONRPC && t != TransportHTTPJSON {
			return fmt.Errorf("invalid transport %q (valid: %s, %s)", t, TransportJSONRPC, TransportHTTPJSON)
		}
	}
	switch c.Mode {
	case ModeImmediate, ModeDeferred, ModeStreaming:
	default:
		return fmt.Errorf("invalid mode %q (valid: immediate, deferred, streaming)", c.Mode)
	}
	if err := c.Tasks.Validate(); err != nil {
		return fmt.Errorf("tasks: %w", err)
	}
	return nil
}

// Streaming reports whether the server advertises streaming.
func (c *ServerConfig) Streaming() bool {
	return c.Mode == ModeStreaming
}

// HasTransport reports whether the named HTTP transport is served.
func (c *ServerConfig) HasTransport(name string) bool {
	return slices.Contains(c.Transports, name)
}

// RESTURL is the base URL of the HTTP+JSON transport: the public URL
// without the JSON-RPC route.
func (c *ServerConfig) RESTURL() string {
	return strings.TrimSuffix(c.PublicURL, c.Route)
}

// Address returns the HTTP server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GRPCAddress returns the gRPC server address.
func (c *ServerConfig) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPC.Port)
}

// SetDefaults applies default values for TasksConfig.
func (c *TasksConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = StorageBackendInMemory
	}
}

// Validate checks the tasks configuration.
func (c *TasksConfig) Validate() error {
	if c.Backend != StorageBackendInMemory && c.Backend != StorageBackendSQL {
		return fmt.Errorf("invalid backend %q (valid: inmemory, sql)", c.Backend)
	}
	if c.Backend == StorageBackendSQL && c.Database == "" {
		return fmt.Errorf("database reference is required when backend is sql")
	}
	if c.Database != "" && c.Backend != StorageBackendSQL {
		return fmt.Errorf("database reference requires backend to be sql")
	}
	return nil
}

// IsInMemory returns true if using in-memory task storage.
func (c *TasksConfig) IsInMemory() bool {
	return c == nil || c.Backend == "" || c.Backend == StorageBackendInMemory
}

// IsSQL returns true if using SQL task storage.
func (c *TasksConfig) IsSQL() bool {
	return c != nil && c.Backend == StorageBackendSQL
}
