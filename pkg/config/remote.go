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

// Remote timeout policies.
const (
	TimeoutPartial = "partial"
	TimeoutFail    = "fail"
)

// RemoteConfig configures the bridge to a remote agent used as a tool.
type RemoteConfig struct {
	// URL is the base URL the agent card is resolved from.
	// Default: http://localhost:8000
	URL string `yaml:"url,omitempty"`

	// PollInterval is the fixed delay between task polls.
	// Default: 1s
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`

	// MaxPolls bounds the number of polls per invocation.
	// Default: 60
	MaxPolls int `yaml:"max_polls,omitempty"`

	// TimeoutPolicy decides what running out of polls means.
	// Values: "partial" (default), "fail"
	TimeoutPolicy string `yaml:"timeout_policy,omitempty"`

	// OrchestratorPrompt is the system instruction of the orchestrating graph.
	OrchestratorPrompt string `yaml:"orchestrator_prompt,omitempty"`
}

// DefaultOrchestratorPrompt instructs the orchestrating model to delegate.
const DefaultOrchestratorPrompt = "You are an orchestrator agent. You can delegate tasks to the remote agent " +
	"available as a tool. Use it to answer questions that require calculations, " +
	"pass the user's request in the text argument and report its answer."

// SetDefaults applies default values to RemoteConfig.
func (c *RemoteConfig) SetDefaults() {
	if c.URL == "" {
		c.URL = "http://localhost:8000"
	}
	if c.PollInterval == 0 {
		c.PollInterval = time.Second
	}
	if c.MaxPolls == 0 {
		c.MaxPolls = 60
	}
	if c.TimeoutPolicy == "" {
		c.TimeoutPolicy = TimeoutPartial
	}
	if c.OrchestratorPrompt == "" {
		c.OrchestratorPrompt = DefaultOrchestratorPrompt
	}
}

// Validate checks the remote configuration.
func (c *RemoteConfig) Validate() error {
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval must be non-negative")
	}
	if c.MaxPolls < 1 {
		return fmt.Errorf("max_polls must be positive, got %d", c.MaxPolls)
	}
	switch c.TimeoutPolicy {
	case TimeoutPartial, TimeoutFail:
	default:
		return fmt.Errorf("invalid timeout_policy %q (valid: partial, fail)", c.TimeoutPolicy)
	}
	return nil
}
