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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Loader turns a Source into validated Configs and keeps the latest one.
type Loader struct {
	source   Source
	onChange func(*Config)
	current  atomic.Pointer[Config]
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithOnChange registers fn for every config accepted by Watch.
func WithOnChange(fn func(*Config)) LoaderOption {
	return func(l *Loader) { l.onChange = fn }
}

// NewLoader creates a Loader over src.
func NewLoader(src Source, opts ...LoaderOption) *Loader {
	l := &Loader{source: src}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads and parses the source and makes the result current.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	data, err := l.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	l.current.Store(cfg)
	return cfg, nil
}

// Current returns the last accepted config, nil before the first Load.
func (l *Loader) Current() *Config {
	return l.current.Load()
}

// Watch reloads on every change signalled by the source until ctx is done.
// A config that fails to parse or validate is logged and skipped.
func (l *Loader) Watch(ctx context.Context) error {
	changes, err := l.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watching: %w", err)
	}
	if changes == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	slog.Info("Watching configuration", "source", fmt.Sprint(l.source))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			cfg, err := l.Load(ctx)
			if err != nil {
				slog.Error("Rejected configuration change, keeping previous", "error", err)
				continue
			}
			slog.Info("Configuration reloaded")
			if l.onChange != nil {
				l.onChange(cfg)
			}
		}
	}
}

// Close releases the source.
func (l *Loader) Close() error {
	return l.source.Close()
}

// LoadConfigFile loads path once and returns the loader for later watching.
func LoadConfigFile(ctx context.Context, path string, opts ...LoaderOption) (*Config, *Loader, error) {
	src, err := NewFileSource(path)
	if err != nil {
		return nil, nil, err
	}
	loader := NewLoader(src, opts...)
	cfg, err := loader.Load(ctx)
	if err != nil {
		src.Close()
		return nil, nil, err
	}
	return cfg, loader, nil
}

// Parse decodes YAML or JSON, expands environment references in string
// values, applies defaults and validates. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		if jerr := json.Unmarshal(data, &raw); jerr != nil {
			return nil, fmt.Errorf("failed to parse config as YAML or JSON: %w", err)
		}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(expand(raw)); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// expand walks v and substitutes $VAR, ${VAR} and ${VAR:-default} in strings.
func expand(v any) any {
	switch val := v.(type) {
	case string:
		if !strings.Contains(val, "$") {
			return val
		}
		return os.Expand(val, lookupEnv)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = expand(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expand(item)
		}
		return out
	default:
		return v
	}
}

func lookupEnv(ref string) string {
	name, def, hasDefault := strings.Cut(ref, ":-")
	if v := os.Getenv(name); v != "" || !hasDefault {
		return v
	}
	return def
}
