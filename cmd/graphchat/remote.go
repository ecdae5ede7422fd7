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
	"io"
	"os"
	"time"

	"github.com/kadirpekel/graphchat/pkg/config"
	"github.com/kadirpekel/graphchat/pkg/remote"
)

// RemoteCmd sends one message to a remote agent through the bridge and
// prints its answer. No model is involved.
type RemoteCmd struct {
	Text          string        `arg:"" help:"Message text."`
	URL           string        `help:"Base URL of the remote agent (overrides remote.url)."`
	MessageID     string        `name:"message-id" help:"Message id (default: generated)."`
	ContextID     string        `name:"context-id" help:"Context id to continue (default: generated)."`
	PollInterval  time.Duration `name:"poll-interval" help:"Delay between task polls (overrides remote.poll_interval)."`
	MaxPolls      int           `name:"max-polls" help:"Maximum number of polls (overrides remote.max_polls)."`
	TimeoutPolicy string        `name:"timeout-policy" help:"partial or fail (overrides remote.timeout_policy)."`
}

func (c *RemoteCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := loadApp(ctx, cli.Config, false)
	if err != nil {
		return err
	}
	defer a.Close()

	rc := c.apply(a.cfg.Remote)
	if err := rc.Validate(); err != nil {
		return fmt.Errorf("remote: %w", err)
	}

	conn, err := remote.Dial(ctx, rc.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	bridge := remote.NewBridge(conn, rc, remote.WithObservability(a.obs.Tracer(), a.obs.Metrics()))
	res, err := bridge.Invoke(ctx, c.Text, c.MessageID, c.ContextID)
	if err != nil {
		return err
	}
	return printRemoteResult(os.Stdout, conn.Card.Name, res)
}

// apply overlays the flags on rc.
func (c *RemoteCmd) apply(rc config.RemoteConfig) config.RemoteConfig {
	if c.URL != "" {
		rc.URL = c.URL
	}
	if c.PollInterval != 0 {
		rc.PollInterval = c.PollInterval
	}
	if c.MaxPolls != 0 {
		rc.MaxPolls = c.MaxPolls
	}
	if c.TimeoutPolicy != "" {
		rc.TimeoutPolicy = c.TimeoutPolicy
	}
	return rc
}

func printRemoteResult(w io.Writer, agent string, res *remote.Result) error {
	fmt.Fprintln(w, "=== Remote ===")
	fmt.Fprintf(w, "Agent:   %s\n", agent)
	fmt.Fprintf(w, "Context: %s\n", res.ContextID)
	if res.State != "" {
		fmt.Fprintf(w, "State:   %s\n", res.State)
	}
	fmt.Fprintln(w, "=== Result ===")
	fmt.Fprintln(w, res.Content)
	if res.IsError {
		return fmt.Errorf("remote agent %s returned an error result", agent)
	}
	return nil
}
