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
	"strings"

	"github.com/google/uuid"

	"github.com/kadirpekel/graphchat/pkg/graph"
	"github.com/kadirpekel/graphchat/pkg/message"
)

// Query modes.
const (
	QueryModeSingle       = "single"
	QueryModeSingleStream = "single-stream"
)

// QueryCmd runs one query against a local graph and prints the result and
// the thread checkpoint.
type QueryCmd struct {
	Query    string `arg:"" help:"User message, or the approval answer with --resume."`
	Mode     string `help:"Run mode: single or single-stream." enum:"single,single-stream" default:"single"`
	Thread   string `help:"Thread id to continue (default: new thread)."`
	Resume   bool   `help:"Answer the outstanding approval interrupt of --thread."`
	Approval bool   `help:"Require approval before tool execution."`
}

func (c *QueryCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	if c.Resume && c.Thread == "" {
		return fmt.Errorf("--resume requires --thread")
	}

	a, err := loadApp(ctx, cli.Config, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Approval {
		a.override(requireApproval)
	}
	g, err := localGraph(ctx, a)
	if err != nil {
		return err
	}

	in := graph.Input{Query: c.Query, ThreadID: c.Thread, Resume: c.Resume}
	if in.ThreadID == "" {
		in.ThreadID = uuid.NewString()
	}
	return runQuery(ctx, g, in, c.Mode, os.Stdout)
}

// localGraph builds the calculating graph from the app configuration.
func localGraph(ctx context.Context, a *app) (*graph.Graph, error) {
	m, err := a.newModel()
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	tools, err := a.localTools(ctx)
	if err != nil {
		return nil, err
	}
	return a.newGraph(ctx, m, tools, "")
}

func runQuery(ctx context.Context, g *graph.Graph, in graph.Input, mode string, out io.Writer) error {
	fmt.Fprintln(out, "=== Run ===")
	fmt.Fprintf(out, "Query:  %s\n", in.Query)
	fmt.Fprintf(out, "Mode:   %s\n", mode)
	fmt.Fprintf(out, "Thread: %s\n", in.ThreadID)
	if in.Resume {
		fmt.Fprintln(out, "Resume: true")
	}

	switch mode {
	case QueryModeSingleStream:
		for ev, err := range g.Stream(ctx, in) {
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "=== Event ===")
			fmt.Fprintln(out, describeEvent(ev))
		}
	default:
		final, err := g.Run(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "=== Result ===")
		if final.Interrupted() {
			fmt.Fprintln(out, final.Interrupt.Prompt)
			fmt.Fprintf(out, "(answer with: graphchat query yes --thread %s --resume)\n", in.ThreadID)
		} else {
			fmt.Fprintln(out, final.Content())
		}
	}

	state, err := g.Checkpoint(ctx, in.ThreadID)
	if err != nil {
		return fmt.Errorf("failed to read checkpoint: %w", err)
	}
	fmt.Fprintln(out, "=== Checkpoint ===")
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// describeEvent renders one step event as a single line.
func describeEvent(ev graph.StepEvent) string {
	switch e := ev.(type) {
	case *graph.SetupStep:
		return fmt.Sprintf("%s: %d message(s)", e.Node(), len(e.Messages))
	case *graph.ModelStep:
		if e.Message != nil && e.Message.HasToolCalls() {
			return fmt.Sprintf("%s[%d]: %s", e.Node(), e.Step, describeCalls(e.Message.ToolCalls))
		}
		return fmt.Sprintf("%s[%d]: %s", e.Node(), e.Step, e.Text())
	case *graph.ToolStep:
		results := make([]string, 0, len(e.Results))
		for _, r := range e.Results {
			results = append(results, fmt.Sprintf("%s=%s", r.Name, r.Content))
		}
		return fmt.Sprintf("%s: %s", e.Node(), strings.Join(results, ", "))
	case *graph.Interrupt:
		return fmt.Sprintf("%s: %s", e.Node(), e.Prompt)
	case *graph.Terminal:
		return fmt.Sprintf("%s: %s", e.Node(), e.State.Content())
	default:
		return ev.Node()
	}
}

func describeCalls(calls []message.ToolCall) string {
	parts := make([]string, 0, len(calls))
	for _, c := range calls {
		args, _ := json.Marshal(c.Args)
		parts = append(parts, fmt.Sprintf("%s(%s)", c.Name, args))
	}
	return strings.Join(parts, ", ")
}
