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
	"os"
)

const (
	// DefaultSystemInstruction asks the model to answer in English.
	DefaultSystemInstruction = "英語で回答してください。"

	// DefaultMaxSteps bounds the number of model invocations per run.
	DefaultMaxSteps = 25
)

// Approval policies.
const (
	ApprovalAlways = "always"
	ApprovalNever  = "never"
	ApprovalRego   = "rego"
)

// Unknown tool policies.
const (
	UnknownToolsDrop   = "drop"
	UnknownToolsReport = "report"
	UnknownToolsFail   = "fail"
)

// GraphConfig configures the conversational graph.
type GraphConfig struct {
	// SystemInstruction is prepended to every fresh thread.
	// Default: 英語で回答してください。
	SystemInstruction string `yaml:"system_instruction,omitempty"`

	// MaxSteps limits model invocations within one run.
	// Default: 25
	MaxSteps int `yaml:"max_steps,omitempty"`

	// UnknownTools decides what happens to calls naming unregistered tools.
	// Values: "drop" (default), "report", "fail"
	UnknownTools string `yaml:"unknown_tools,omitempty"`

	// Tools lists the built-in tools offered to the model.
	// Default: [multiply_function, add_function]
	Tools []string `yaml:"tools,omitempty"`

	// Approval configures the human approval gate before tool execution.
	Approval ApprovalConfig `yaml:"approval,omitempty"`
}

// ApprovalConfig configures the approval gate.
//
// With the rego policy the module is evaluated with input
// {"thread_id": ..., "tool_calls": [{"id", "name", "args"}]} and approval is
// required when data.graphchat.approval.require is true.
type ApprovalConfig struct {
	// Enabled turns the gate on.
	// Default: false
	Enabled bool `yaml:"enabled,omitempty"`

	// Policy decides which tool calls need approval.
	// Values: "always" (default), "never", "rego"
	Policy string `yaml:"policy,omitempty"`

	// Rego is an inline policy module.
	Rego string `yaml:"rego,omitempty"`

	// RegoFile is a path to a policy module, used when Rego is empty.
	RegoFile string `yaml:"rego_file,omitempty"`
}

// SetDefaults applies default values to GraphConfig.
func (c *GraphConfig) SetDefaults() {
	if c.SystemInstruction == "" {
		c.SystemInstruction = DefaultSystemInstruction
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.UnknownTools == "" {
		c.UnknownTools = UnknownToolsDrop
	}
	if c.Tools == nil {
		c.Tools = []string{"multiply_function", "add_function"}
	}
	c.Approval.SetDefaults()
}

// Validate checks the graph configuration.
func (c *GraphConfig) Validate() error {
	if c.MaxSteps < 1 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	switch c.UnknownTools {
	case UnknownToolsDrop, UnknownToolsReport, UnknownToolsFail:
	default:
		return fmt.Errorf("invalid unknown_tools %q (valid: drop, report, fail)", c.UnknownTools)
	}
	if err := c.Approval.Validate(); err != nil {
		return fmt.Errorf("approval: %w", err)
	}
	return nil
}

// SetDefaults applies default values to ApprovalConfig.
func (c *ApprovalConfig) SetDefaults() {
	if c.Policy == "" {
		c.Policy = ApprovalAlways
	}
}

// Validate checks the approval configuration.
func (c *ApprovalConfig) Validate() error {
	switch c.Policy {
	case ApprovalAlways, ApprovalNever:
	case ApprovalRego:
		if c.Rego == "" && c.RegoFile == "" {
			return fmt.Errorf("rego or rego_file is required for the rego policy")
		}
	default:
		return fmt.Errorf("invalid policy %q (valid: always, never, rego)", c.Policy)
	}
	return nil
}

// RegoModule returns the policy source, reading RegoFile when needed.
func (c *ApprovalConfig) RegoModule() (string, error) {
	if c.Rego != "" {
		return c.Rego, nil
	}
	data, err := os.ReadFile(c.RegoFile)
	if err != nil {
		return "", fmt.Errorf("failed to read rego_file: %w", err)
	}
	return string(data), nil
}
