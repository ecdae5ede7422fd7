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

import "fmt"

// MCPConfig lists MCP servers whose tools are offered to the model.
//
// Example:
//
//	mcp:
//	  servers:
//	    - name: weather
//	      url: http://localhost:9000/mcp
//	      token: ${WEATHER_TOKEN}
//	    - name: files
//	      command: npx
//	      args: ["-y", "@modelcontextprotocol/server-filesystem", "."]
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers,omitempty"`
}

// MCPServerConfig configures one MCP server connection.
type MCPServerConfig struct {
	// Name identifies the server in logs and errors.
	Name string `yaml:"name"`

	// URL of an sse or streamable-http server.
	URL string `yaml:"url,omitempty"`

	// Transport: "stdio", "sse", or "streamable-http".
	// Default: stdio when command is set, streamable-http otherwise.
	Transport string `yaml:"transport,omitempty"`

	// Token is sent as a bearer token.
	Token string `yaml:"token,omitempty"`

	Headers map[string]string `yaml:"headers,omitempty"`

	// Command, Args and Env launch a stdio server.
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`

	// Filter limits the exposed tools. Empty exposes all.
	Filter []string `yaml:"filter,omitempty"`
}

// SetDefaults applies default values to MCPConfig.
func (c *MCPConfig) SetDefaults() {
	for i := range c.Servers {
		s := &c.Servers[i]
		if s.Name == "" {
			s.Name = fmt.Sprintf("mcp-%d", i)
		}
		if s.Transport == "" {
			if s.Command != "" {
				s.Transport = "stdio"
			} else {
				s.Transport = "streamable-http"
			}
		}
	}
}

// Validate checks the MCP configuration.
func (c *MCPConfig) Validate() error {
	seen := make(map[string]bool, len(c.Servers))
	for _, s := range c.Servers {
		if seen[s.Name] {
			return fmt.Errorf("duplicate server name %q", s.Name)
		}
		seen[s.Name] = true

		switch s.Transport {
		case "stdio":
			if s.Command == "" {
				return fmt.Errorf("server %s: command is required for stdio", s.Name)
			}
		case "sse", "streamable-http", "streamable_http":
			if s.URL == "" {
				return fmt.Errorf("server %s: url is required for %s", s.Name, s.Transport)
			}
		default:
			return fmt.Errorf("server %s: invalid transport %q", s.Name, s.Transport)
		}
	}
	return nil
}
