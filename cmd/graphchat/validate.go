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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/graphchat/pkg/config"
)

// ValidateCmd validates a configuration file.
type ValidateCmd struct {
	File string `arg:"" name:"file" help:"Configuration file path." type:"path" placeholder:"PATH"`

	Format string `short:"f" help:"Output format: compact, verbose, json." default:"compact" enum:"compact,verbose,json"`

	PrintConfig bool `short:"p" name:"print-config" help:"Print the expanded configuration (with defaults applied and env vars resolved)."`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	ctx := context.Background()

	// LoadConfigFile applies defaults and validates.
	cfg, loader, err := config.LoadConfigFile(ctx, c.File)
	if err != nil {
		return printLoadError(os.Stderr, c.Format, c.File, err)
	}
	defer loader.Close()

	if c.PrintConfig {
		return printExpandedConfig(os.Stdout, c.Format, cfg)
	}
	printSuccess(os.Stdout, c.Format, c.File)
	return nil
}

// validationResult is the json output of validate.
type validationResult struct {
	Valid bool   `json:"valid"`
	File  string `json:"file"`
	Error string `json:"error,omitempty"`
}

func printLoadError(w io.Writer, format, file string, err error) error {
	switch format {
	case "json":
		writeJSON(w, validationResult{Valid: false, File: file, Error: err.Error()})
	case "verbose":
		fmt.Fprintf(w, "Configuration Load Error\n")
		fmt.Fprintf(w, "========================\n\n")
		fmt.Fprintf(w, "File:    %s\n", file)
		fmt.Fprintf(w, "Error:   %s\n", err.Error())
	default:
		fmt.Fprintf(w, "%s: load error: %s\n", file, err.Error())
	}
	return fmt.Errorf("config load failed")
}

func printSuccess(w io.Writer, format, file string) {
	switch format {
	case "json":
		writeJSON(w, validationResult{Valid: true, File: file})
	case "verbose":
		fmt.Fprintf(w, "Configuration Valid\n")
		fmt.Fprintf(w, "===================\n\n")
		fmt.Fprintf(w, "File:    %s\n", file)
	default:
		fmt.Fprintf(w, "%s: valid\n", file)
	}
}

// printExpandedConfig prints cfg as YAML, or JSON for the json format.
// API keys are masked.
func printExpandedConfig(w io.Writer, format string, cfg *config.Config) error {
	redacted := *cfg
	if redacted.Model.APIKey != "" {
		redacted.Model.APIKey = "***"
	}

	if format == "json" {
		return writeJSON(w, redacted)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&redacted); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
