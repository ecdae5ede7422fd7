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

	"github.com/kadirpekel/graphchat/pkg/logger"
)

// LoggerConfig is the logger section. Command-line flags and the LOG_*
// variables take precedence over it.
type LoggerConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level,omitempty"`

	// File receives the log instead of stderr.
	File string `yaml:"file,omitempty"`

	// Format is simple, verbose or json.
	Format string `yaml:"format,omitempty"`
}

func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = logger.FormatSimple
	}
}

func (c *LoggerConfig) Validate() error {
	if _, err := logger.ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "", logger.FormatSimple, logger.FormatVerbose, logger.FormatJSON:
		return nil
	}
	return fmt.Errorf("invalid log format %q (valid: %s, %s, %s)",
		c.Format, logger.FormatSimple, logger.FormatVerbose, logger.FormatJSON)
}
