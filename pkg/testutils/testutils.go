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

// Package testutils provides testing utilities for graphchat.
package testutils

import (
	"context"
	"time"

	"github.com/kadirpekel/graphchat/pkg/config"
	"github.com/kadirpekel/graphchat/pkg/message"
)

// TestConfig returns a minimal valid configuration for testing.
func TestConfig() *config.Config {
	cfg := &config.Config{
		Model: config.ModelConfig{
			Provider: "gemini",
			APIKey:   "test-key",
		},
	}
	cfg.SetDefaults()
	return cfg
}

// TestContext returns a context with timeout for testing
func TestContext() context.Context {
	return TestContextWithTimeout(5 * time.Second)
}

// TestContextWithTimeout returns a context with custom timeout for testing
func TestContextWithTimeout(timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	// The context is released when the timeout expires.
	_ = cancel
	return ctx
}

// CalculatorScript replays the canonical arithmetic exchange: the model asks
// for 100*200 and 1+2, then answers with both results.
func CalculatorScript() *ScriptedModel {
	return NewScriptedModel(
		Call(
			message.ToolCall{ID: "call_mul", Name: "multiply_function", Args: map[string]any{"x": 100.0, "y": 200.0}},
			message.ToolCall{ID: "call_add", Name: "add_function", Args: map[string]any{"x": 1.0, "y": 2.0}},
		),
		Say("100 * 200 = 20000 and 1 + 2 = 3."),
	)
}
