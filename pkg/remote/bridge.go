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

// Package remote invokes a remote A2A agent as if it were a local tool.
//
// A Bridge sends one message and waits for the answer. A direct message
// reply is returned at once. A task reply is polled with GetTask at a fixed
// interval until it reaches a terminal state or the poll ceiling is hit:
//
//	submitted, working  keep polling
//	completed           artifact text is the result
//	anything else       error result with empty content
//
// Running out of polls is governed by the timeout policy: "partial" returns
// whatever artifact text has accumulated (an error result when there is
// none), "fail" returns a *RemoteTaskTimeoutError.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"

	"github.com/kadirpekel/graphchat/pkg/config"
	"github.com/kadirpekel/graphchat/pkg/observability"
)

// Client is the part of an A2A client the bridge uses.
// *a2aclient.Client satisfies it.
type Client interface {
	SendMessage(ctx context.Context, params *a2a.MessageSendParams) (a2a.SendMessageResult, error)
	GetTask(ctx context.Context, query *a2a.TaskQueryParams) (*a2a.Task, error)
}

// Result is the outcome of one invocation.
type Result struct {
	Content string
	IsError bool

	// State is the last observed task state, empty for a direct reply.
	State a2a.TaskState

	MessageID string
	ContextID string
}

// acceptedOutputModes are requested from the remote agent.
var acceptedOutputModes = []string{"text", "text/plain"}

// Bridge sends messages to one remote agent.
type Bridge struct {
	client  Client
	cfg     config.RemoteConfig
	tracer  *observability.Tracer
	metrics *observability.Metrics
}

type Option func(*Bridge)

// WithObservability records remote spans and poll counts.
func WithObservability(tracer *observability.Tracer, metrics *observability.Metrics) Option {
	return func(b *Bridge) {
		b.tracer = tracer
		b.metrics = metrics
	}
}

// NewBridge creates a bridge over client. Zero config fields take their
// defaults.
func NewBridge(client Client, cfg config.RemoteConfig, opts ...Option) *Bridge {
	cfg.SetDefaults()
	b := &Bridge{client: client, cfg: cfg}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Invoke sends text to the remote agent and waits for its answer. Empty
// messageID and contextID are generated.
func (b *Bridge) Invoke(ctx context.Context, text, messageID, contextID string) (*Result, error) {
	if messageID == "" {
		messageID = uuid.NewString()
	}
	if contextID == "" {
		contextID = uuid.NewString()
	}

	ctx, span := b.tracer.StartRemoteInvoke(ctx, contextID)
	defer span.End()

	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: text})
	msg.ID = messageID
	msg.ContextID = contextID

	resp, err := b.client.SendMessage(ctx, &a2a.MessageSendParams{
		Message: msg,
		Config:  &a2a.MessageSendConfig{AcceptedOutputModes: acceptedOutputModes},
	})
	if err != nil {
		b.tracer.RecordError(span, err)
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	var res *Result
	switch r := resp.(type) {
	case *a2a.Message:
		res = &Result{Content: partsText(r.Parts)}
		if r.ContextID != "" {
			contextID = r.ContextID
		}
	case *a2a.Task:
		res, err = b.await(ctx, r)
		if err != nil {
			b.tracer.RecordError(span, err)
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unexpected response type %T", resp)
	}

	res.MessageID = messageID
	res.ContextID = contextID
	return res, nil
}

// await polls task until it settles or the poll ceiling is reached.
func (b *Bridge) await(ctx context.Context, task *a2a.Task) (*Result, error) {
	if res, done := settle(task); done {
		return res, nil
	}

	for poll := 1; poll <= b.cfg.MaxPolls; poll++ {
		if err := sleep(ctx, b.cfg.PollInterval); err != nil {
			return nil, err
		}

		next, err := b.client.GetTask(ctx, &a2a.TaskQueryParams{ID: task.ID})
		if err != nil {
			return nil, fmt.Errorf("failed to get task %s: %w", task.ID, err)
		}
		task = next
		b.metrics.RecordRemotePoll(ctx, string(task.Status.State))
		slog.Debug("Polled remote task", "task_id", task.ID, "poll", poll, "state", task.Status.State)

		if res, done := settle(task); done {
			return res, nil
		}
	}

	if b.cfg.TimeoutPolicy == config.TimeoutFail {
		return nil, &RemoteTaskTimeoutError{TaskID: task.ID, Polls: b.cfg.MaxPolls, State: task.Status.State}
	}

	content := artifactsText(task.Artifacts)
	slog.Warn("Remote task did not settle", "task_id", task.ID, "polls", b.cfg.MaxPolls, "state", task.Status.State, "partial", content != "")
	return &Result{Content: content, IsError: content == "", State: task.Status.State}, nil
}

// settle maps a task onto a result once its state is final for the bridge.
func settle(task *a2a.Task) (*Result, bool) {
	switch task.Status.State {
	case a2a.TaskStateSubmitted, a2a.TaskStateWorking:
		return nil, false
	case a2a.TaskStateCompleted:
		return &Result{Content: artifactsText(task.Artifacts), State: task.Status.State}, true
	default:
		return &Result{IsError: true, State: task.Status.State}, true
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func artifactsText(artifacts []*a2a.Artifact) string {
	var sb strings.Builder
	for _, art := range artifacts {
		if art != nil {
			sb.WriteString(partsText(art.Parts))
		}
	}
	return sb.String()
}

// partsText concatenates text parts and skips everything else.
func partsText(parts a2a.ContentParts) string {
	var sb strings.Builder
	for _, part := range parts {
		switch p := part.(type) {
		case a2a.TextPart:
			sb.WriteString(p.Text)
		case *a2a.TextPart:
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
