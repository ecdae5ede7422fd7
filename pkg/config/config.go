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

// Package config defines the graphchat configuration file and its loader.
//
// A configuration is YAML (or JSON) decoded into Config, with ${VAR} and
// ${VAR:-default} references expanded from the environment. Every section
// applies its defaults before it is validated, so a zero Config is usable
// once SetDefaults has run and a model API key is available.
//
//	model:
//	  provider: gemini
//	  api_key: ${GEMINI_API_KEY}
//	graph:
//	  approval:
//	    enabled: true
//	checkpoint:
//	  backend: sql
//	  database: main
//	databases:
//	  main:
//	    driver: sqlite
//	    database: ./graphchat.db
package config

import (
	"fmt"
	"sort"

	"github.com/kadirpekel/graphchat/pkg/observability"
)

// Config is the root configuration.
type Config struct {
	// Version of the configuration format.
	Version string `yaml:"version,omitempty"`

	// Name of this deployment, used in logs.
	Name string `yaml:"name,omitempty"`

	Model         ModelConfig                `yaml:"model,omitempty"`
	Graph         GraphConfig                `yaml:"graph,omitempty"`
	Checkpoint    CheckpointConfig           `yaml:"checkpoint,omitempty"`
	Databases     map[string]*DatabaseConfig `yaml:"databases,omitempty"`
	Server        ServerConfig               `yaml:"server,omitempty"`
	Remote        RemoteConfig               `yaml:"remote,omitempty"`
	MCP           MCPConfig                  `yaml:"mcp,omitempty"`
	Observability observability.Config       `yaml:"observability,omitempty"`
	Logger        LoggerConfig               `yaml:"logger,omitempty"`
}

// SetDefaults applies default values to every section.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.Name == "" {
		c.Name = "graphchat"
	}
	if c.Databases == nil {
		c.Databases = make(map[string]*DatabaseConfig)
	}

	c.Model.SetDefaults()
	c.Graph.SetDefaults()
	c.Checkpoint.SetDefaults()
	for _, db := range c.Databases {
		if db != nil {
			db.SetDefaults()
		}
	}
	c.Server.SetDefaults()
	c.Remote.SetDefaults()
	c.MCP.SetDefaults()
	c.Observability.SetDefaults()
	c.Logger.SetDefaults()
}

// Validate checks every section and the references between them.
func (c *Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := c.Graph.Validate(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	if err := c.Checkpoint.Validate(); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	for _, name := range mapKeys(c.Databases) {
		db := c.Databases[name]
		if db == nil {
			return fmt.Errorf("databases.%s: empty definition", name)
		}
		if err := db.Validate(); err != nil {
			return fmt.Errorf("databases.%s: %w", name, err)
		}
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Remote.Validate(); err != nil {
		return fmt.Errorf("remote: %w", err)
	}
	if err := c.MCP.Validate(); err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	return c.validateReferences()
}

func (c *Config) validateReferences() error {
	if c.Checkpoint.Backend == CheckpointBackendSQL {
		if _, ok := c.Databases[c.Checkpoint.Database]; !ok {
			return fmt.Errorf("checkpoint.database %q is not defined in databases (available: %v)",
				c.Checkpoint.Database, mapKeys(c.Databases))
		}
	}
	if c.Server.Tasks.Backend == StorageBackendSQL {
		if _, ok := c.Databases[c.Server.Tasks.Database]; !ok {
			return fmt.Errorf("server.tasks.database %q is not defined in databases (available: %v)",
				c.Server.Tasks.Database, mapKeys(c.Databases))
		}
	}
	return nil
}

// Database returns the named database definition.
func (c *Config) Database(name string) (*DatabaseConfig, bool) {
	db, ok := c.Databases[name]
	return db, ok && db != nil
}

func mapKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
