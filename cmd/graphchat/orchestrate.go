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
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/kadirpekel/graphchat/pkg/graph"
	"github.com/kadirpekel/graphchat/pkg/remote"
	"github.com/kadirpekel/graphchat/pkg/tool"
)

// OrchestrateCmd runs a local graph whose only tool is a remote agent.
type OrchestrateCmd struct {
	Query  string `arg:"" help:"User message for the orchestrator."`
	URL    string `help:"Base URL of the remote agent (overrides remote.url)."`
	Thread string `help:"Thread id to continue (default: new thread)."`
	Stream bool   `help:"Print every step instead of the final answer."`
}

func (c *OrchestrateCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := loadApp(ctx, cli.Config, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.URL != "" {
		a.cfg.Remote.URL = c.URL
	}

	conn, err := remote.Dial(ctx, a.cfg.Remote.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	g, err := orchestrator(ctx, a, conn)
	if err != nil {
		return err
	}

	mode := QueryModeSingle
	if c.Stream {
		mode = QueryModeSingleStream
	}
	in := graph.Input{Query: c.Query, ThreadID: c.Thread}
	if in.ThreadID == "" {
		in.ThreadID = uuid.NewString()
	}
	return runQuery(ctx, g, in, mode, os.Stdout)
}

// orchestrator builds a graph that delegates to the agent behind conn.
func orchestrator(ctx context.Context, a *app, conn *remote.Conn) (*graph.Graph, error) {
	bridge := remote.NewBridge(conn, a.cfg.Remote,
		remote.WithObservability(a.obs.Tracer(), a.obs.Metrics()))

	remoteTool, err := remote.NewTool(bridge, remote.ToolConfigFromCard(conn.Card))
	if err != nil {
		return nil, err
	}
	slog.Info("Remote agent attached", "name", remoteTool.Name(), "url", a.cfg.Remote.URL)

	m, err := a.newModel()
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	return a.newGraph(ctx, m, []tool.CallableTool{remoteTool}, a.cfg.Remote.OrchestratorPrompt)
}
