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
	"fmt"
	"log/slog"

	"github.com/a2aproject/a2a-go/a2asrv"

	"github.com/kadirpekel/graphchat/pkg/config"
	"github.com/kadirpekel/graphchat/pkg/server"
	"github.com/kadirpekel/graphchat/pkg/task"
)

// ServeCmd starts the A2A server.
type ServeCmd struct {
	Port     int    `help:"Port to listen on (overrides server.port)."`
	Mode     string `help:"Execution mode: immediate, deferred or streaming (overrides server.mode)."`
	Approval bool   `help:"Require approval before tool execution."`
	Watch    bool   `help:"Watch config file for changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := loadApp(ctx, cli.Config, true)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	if c.Port != 0 {
		computed := fmt.Sprintf("http://localhost:%d%s", cfg.Server.Port, cfg.Server.Route)
		if cfg.Server.PublicURL == computed {
			cfg.Server.PublicURL = ""
		}
		cfg.Server.Port = c.Port
		cfg.Server.SetDefaults()
	}
	if c.Mode != "" {
		cfg.Server.Mode = c.Mode
	}
	if c.Approval {
		a.override(requireApproval)
	}
	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	m, err := a.newModel()
	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}
	tools, err := a.localTools(ctx)
	if err != nil {
		return err
	}
	g, err := a.newGraph(ctx, m, tools, "")
	if err != nil {
		return err
	}

	if c.Watch && a.loader != nil {
		go func() {
			if err := a.loader.Watch(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Config watch error", "error", err)
			}
		}()
	}

	var opts []server.HTTPServerOption
	taskStore, err := task.NewTaskStoreFromConfig(ctx, cfg, a.pool)
	if err != nil {
		return fmt.Errorf("failed to create task store: %w", err)
	}
	if taskStore != nil {
		opts = append(opts, server.WithTaskStore(taskStore))
		slog.Info("Task persistence enabled", "backend", cfg.Server.Tasks.Backend, "database", cfg.Server.Tasks.Database)
	}
	opts = append(opts, server.WithObservability(a.obs))

	executor := server.NewExecutor(server.NewAdapter(g), cfg.Server.Mode)
	srv := server.NewHTTPServer(&cfg.Server, executor, opts...)

	printStartup(cfg, executor.Mode(), g.Tools().Names())

	return srv.Start(ctx)
}

func printStartup(cfg *config.Config, mode string, tools []string) {
	fmt.Printf("\ngraphchat server ready\n")
	fmt.Printf("   Agent:       %s (%s mode)\n", server.AgentName, mode)
	if cfg.Server.HasTransport(config.TransportJSONRPC) {
		fmt.Printf("   JSON-RPC:    %s\n", cfg.Server.PublicURL)
	}
	if cfg.Server.HasTransport(config.TransportHTTPJSON) {
		fmt.Printf("   REST:        %s/v1\n", cfg.Server.RESTURL())
	}
	fmt.Printf("   Agent Card:  http://%s%s\n", cfg.Server.Address(), a2asrv.WellKnownAgentCardPath)
	fmt.Printf("   Health:      http://%s/health\n", cfg.Server.Address())
	if cfg.Server.GRPC.Enabled {
		fmt.Printf("   gRPC:        %s\n", cfg.Server.GRPCAddress())
	}
	fmt.Printf("   Tools:       %v\n", tools)

	if cfg.Server.Tasks.IsSQL() {
		if db, ok := cfg.Databases[cfg.Server.Tasks.Database]; ok {
			fmt.Printf("   Tasks:       %s (%s)\n", db.Driver, db.Database)
		}
	} else {
		fmt.Printf("   Tasks:       in-memory (not persisted)\n")
	}
	fmt.Printf("   Checkpoints: %s\n", cfg.Checkpoint.Backend)

	if cfg.Graph.Approval.Enabled {
		fmt.Printf("   Approval:    %s\n", cfg.Graph.Approval.Policy)
	}
	if cfg.Observability.Tracing.Enabled {
		fmt.Printf("   Tracing:     %s (%s)\n", cfg.Observability.Tracing.Exporter, cfg.Observability.Tracing.Endpoint)
	}
	if cfg.Observability.Metrics.Enabled {
		fmt.Printf("   Metrics:     http://%s%s\n", cfg.Server.Address(), cfg.Observability.Metrics.Endpoint)
	}
	fmt.Println()
}
