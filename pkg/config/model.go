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

const (
	// DefaultModelName is used when model.model is empty.
	DefaultModelName = "gemini-2.5-flash"

	// ProviderGemini is the only supported model provider.
	ProviderGemini = "gemini"
)

// ModelConfig configures the model the graph invokes.
type ModelConfig struct {
	// Provider selects the model backend.
	// Default: gemini
	Provider string `yaml:"provider,omitempty"`

	// Model is the provider specific model name.
	// Default: gemini-2.5-flash
	Model string `yaml:"model,omitempty"`

	// APIKey authenticates against the provider.
	// Default: $GEMINI_API_KEY, then $GOOGLE_API_KEY
	APIKey string `yaml:"api_key,omitempty"`

	// Temperature controls randomness. Zero keeps the provider default.
	Temperature float64 `yaml:"temperature,omitempty"`

	// MaxTokens limits the response length. Zero keeps the provider default.
	MaxTokens int `yaml:"max_tokens,omitempty"`
}

// SetDefaults applies default values to ModelConfig.
func (c *ModelConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderGemini
	}
	if c.Model == "" {
		c.Model = DefaultModelName
	}
	if c.APIKey == "" {
		c.APIKey = GetProviderAPIKey(c.Provider)
	}
}

// Validate checks the model configuration.
func (c *ModelConfig) Validate() error {
	if c.Provider != ProviderGemini {
		return fmt.Errorf("unsupported provider %q (valid: gemini)", c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required (set GEMINI_API_KEY or GOOGLE_API_KEY)")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	return nil
}
