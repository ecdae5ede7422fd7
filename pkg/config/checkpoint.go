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
	"time"
)

// Checkpoint backends.
const (
	CheckpointBackendMemory = "memory"
	CheckpointBackendSQL    = "sql"
	CheckpointBackendRedis  = "redis"
)

// CheckpointConfig selects where thread state is saved between runs.
//
// Example:
//
//	checkpoint:
//	  backend: redis
//	  redis:
//	    addr: localhost:6379
//	    ttl: 24h
type CheckpointConfig struct {
	// Backend specifies the store: "memory" (default), "sql", or "redis".
	Backend string `yaml:"backend,omitempty"`

	// Database is a reference to a database defined in the databases section.
	// Required when Backend is "sql".
	Database string `yaml:"database,omitempty"`

	// Redis configures the redis backend.
	Redis RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig configures a redis connection.
type RedisConfig struct {
	// Addr is host:port of the server.
	// Default: localhost:6379
	Addr string `yaml:"addr,omitempty"`

	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`

	// Prefix namespaces checkpoint keys.
	// Default: graphchat:checkpoint:
	Prefix string `yaml:"prefix,omitempty"`

	// TTL expires idle threads. Zero keeps them forever.
	TTL time.Duration `yaml:"ttl,omitempty"`
}

// SetDefaults applies default values to CheckpointConfig.
func (c *CheckpointConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = CheckpointBackendMemory
	}
	if c.Backend == CheckpointBackendRedis {
		if c.Redis.Addr == "" {
			c.Redis.Addr = "localhost:6379"
		}
		if c.Redis.Prefix == "" {
			c.Redis.Prefix = "graphchat:checkpoint:"
		}
	}
}

// Validate checks the checkpoint configuration.
func (c *CheckpointConfig) Validate() error {
	switch c.Backend {
	case CheckpointBackendMemory:
	case CheckpointBackendSQL:
		if c.Database == "" {
			return fmt.Errorf("database is required for the sql backend")
		}
	case CheckpointBackendRedis:
		if c.Redis.TTL < 0 {
			return fmt.Errorf("redis.ttl must be non-negative")
		}
	default:
		return fmt.Errorf("invalid backend %q (valid: memory, sql, redis)", c.Backend)
	}
	return nil
}
