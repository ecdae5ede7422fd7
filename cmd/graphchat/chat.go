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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/kadirpekel/graphchat/pkg/graph"
)

// ChatCmd chats with a local graph on one thread. Approval prompts are
// answered on the next line. An empty line ends the session.
type ChatCmd struct {
	Thread   string `help:"Thread id to continue (default: new thread)."`
	Approval bool   `help:"Require approval before tool execution."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

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

	thread := c.Thread
	if thread == "" {
		thread = uuid.NewString()
	}
	fmt.Printf("Thread: %s (empty line to quit)\n", thread)
	return chatLoop(ctx, g, os.Stdin, os.Stdout, thread)
}

// runner runs one turn of a thread.
type runner interface {
	Run(ctx context.Context, in graph.Input) (*graph.FinalState, error)
}

// chatLoop reads one message per line and prints each answer. After an
// interrupt the next line answers it. A failed turn leaves the pending
// interrupt in place.
func chatLoop(ctx context.Context, rt runner, in io.Reader, out io.Writer, threadID string) error {
	scanner := bufio.NewScanner(in)
	resume := false

	for {
		fmt.Fprint(out, "Your input : ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return nil
		}

		final, err := rt.Run(ctx, graph.Input{Query: line, ThreadID: threadID, Resume: resume})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "Error      : %v\n", err)
			continue
		}

		if final.Interrupted() {
			resume = true
			fmt.Fprintf(out, "AI output  : %s\n", final.Interrupt.Prompt)
			continue
		}
		resume = false
		fmt.Fprintf(out, "AI output  : %s\n", final.Content())
	}
}
