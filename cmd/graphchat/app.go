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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kadirpekel/graphchat/pkg/checkpoint"
	"github.com/kadirpekel/graphchat/pkg/config"
	"github.com/kadirpekel/graphchat/pkg/graph"
	"github.com/kadirpekel/graphchat/pkg/model"
	"github.com/kadirpekel/graphchat/pkg/model/gemini"
	"github.com/kadirpekel/graphchat/pkg/observability"
	"github.com/kadirpekel/graphchat/pkg/tool"
	"github.com/kadirpekel/graphchat/pkg/tool/mathtool"
	"github.com/kadirpekel/graphchat/pkg/tool/mcptoolset"
)

// app holds the components shared by every command.
type app struct {
	cfg    *config.Config
	loader *config.Loader
	obs    *observability.Manager
	pool   *config.DBPool

	// graph receives policy updates from the config watcher.
	graph *graph.Graph

	// overrides are command-line settings re-applied on every reload.
	overrides []func(*config.Config)

	closers []func() error
}

// loadApp loads the configuration and starts observability. Without a config
// file the defaults are used; needModel decides whether a model API key is
// required in that case.
func loadApp(ctx context.Context, path string, needModel bool) (*app, error) {
	a := &app{}

	if path != "" {
		cfg, loader, err := config.LoadConfigFile(ctx, path, config.WithOnChange(a.reload))
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		a.cfg = cfg
		a.loader = loader
		a.closers = append(a.closers, loader.Close)
	} else {
		cfg := &config.Config{}
		cfg.SetDefaults()
		var err error
		if needModel {
			err = cfg.Validate()
		} else {
			err = cfg.Remote.Validate()
		}
		if err != nil {
			return nil, fmt.Errorf("invalid default configuration: %w", err)
		}
		a.cfg = cfg
	}

	cleanup, err := initLoggerFromConfig(&a.cfg.Logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() error { cleanup(); return nil })

	a.obs = observability.NewManager(a.cfg.Observability)
	if err := a.obs.Initialize(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.obs.Shutdown(shutdownCtx)
	})

	a.pool = config.NewDBPool()
	a.closers = append(a.closers, a.pool.Close)

	return a, nil
}

// Close releases everything in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// override applies fn to the loaded config and to every reloaded one, so
// flags are not lost when the watched file changes.
func (a *app) override(fn func(*config.Config)) {
	fn(a.cfg)
	a.overrides = append(a.overrides, fn)
}

func requireApproval(cfg *config.Config) {
	cfg.Graph.Approval.Enabled = true
}

func (a *app) reload(cfg *config.Config) {
	if a.graph == nil {
		return
	}
	for _, fn := range a.overrides {
		fn(cfg)
	}
	if err := a.graph.Reconfigure(context.Background(), cfg.Graph); err != nil {
		slog.Error("Failed to apply graph configuration", "error", err)
		return
	}
	slog.Info("Graph policies updated",
		"approval", cfg.Graph.Approval.Enabled,
		"unknown_tools", cfg.Graph.UnknownTools)
}

func (a *app) newModel() (model.Invoker, error) {
	switch a.cfg.Model.Provider {
	case config.ProviderGemini:
		return gemini.New(gemini.Config{
			APIKey:      a.cfg.Model.APIKey,
			Model:       a.cfg.Model.Model,
			MaxTokens:   a.cfg.Model.MaxTokens,
			Temperature: a.cfg.Model.Temperature,
		})
	default:
		return nil, fmt.Errorf("unsupported model provider %q", a.cfg.Model.Provider)
	}
}

// localTools resolves the configured built-in tools and every MCP server.
func (a *app) localTools(ctx context.Context) ([]tool.CallableTool, error) {
	builtins, err := builtinTools(a.cfg.Graph.Tools)
	if err != nil {
		return nil, err
	}

	sets := make([]tool.Toolset, 0, len(a.cfg.MCP.Servers))
	for _, srv := range a.cfg.MCP.Servers {
		set, err := mcptoolset.New(mcptoolset.Config{
			Name:      srv.Name,
			URL:       srv.URL,
			Transport: srv.Transport,
			Token:     srv.Token,
			Headers:   srv.Headers,
			Command:   srv.Command,
			Args:      srv.Args,
			Env:       srv.Env,
			Filter:    srv.Filter,
		})
		if err != nil {
			return nil, fmt.Errorf("mcp server %s: %w", srv.Name, err)
		}
		a.closers = append(a.closers, set.Close)
		sets = append(sets, set)
	}

	return tool.Collect(ctx, builtins, sets...)
}

// builtinTools picks the named built-in tools in the given order.
func builtinTools(names []string) ([]tool.CallableTool, error) {
	available := map[string]func() tool.CallableTool{
		mathtool.MultiplyName: mathtool.Multiply,
		mathtool.AddName:      mathtool.Add,
	}

	tools := make([]tool.CallableTool, 0, len(names))
	for _, name := range names {
		build, ok := available[name]
		if !ok {
			return nil, fmt.Errorf("unknown built-in tool %q", name)
		}
		tools = append(tools, build())
	}
	return tools, nil
}

// newGraph builds a graph over the configured checkpoint store and approval
// policy. An empty instruction keeps the configured one.
func (a *app) newGraph(ctx context.Context, m model.Invoker, tools []tool.CallableTool, instruction string) (*graph.Graph, error) {
	registry, err := tool.NewRegistry(tools...)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := checkpoint.NewStoreFromConfig(ctx, a.cfg, a.pool)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint store: %w", err)
	}
	a.closers = append(a.closers, closeStore)

	approval, err := graph.PolicyFromConfig(ctx, a.cfg.Graph.Approval)
	if err != nil {
		return nil, fmt.Errorf("failed to build approval policy: %w", err)
	}

	if instruction == "" {
		instruction = a.cfg.Graph.SystemInstruction
	}

	g, err := graph.New(graph.Config{
		Model:             m,
		Tools:             registry,
		Store:             store,
		Approval:          approval,
		UnknownTools:      a.cfg.Graph.UnknownTools,
		SystemInstruction: instruction,
		MaxSteps:          a.cfg.Graph.MaxSteps,
		Metrics:           a.obs.Metrics(),
		Tracer:            a.obs.Tracer(),
	})
	if err != nil {
		return nil, err
	}
	a.graph = g
	return g, nil
}
