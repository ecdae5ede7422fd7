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
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order. godotenv never overrides a variable that is
// already set, so the earlier file wins.
var envFiles = []string{".env.local", ".env"}

// providerKeyVars lists the environment variables consulted for a model
// provider's API key, first match wins.
var providerKeyVars = map[string][]string{
	ProviderGemini: {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// LoadEnvFiles loads .env.local and .env from the working directory when
// present.
func LoadEnvFiles() error {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// GetProviderAPIKey returns the API key for a provider from the environment.
func GetProviderAPIKey(providerType string) string {
	for _, name := range providerKeyVars[providerType] {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	return ""
}
