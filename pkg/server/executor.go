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

package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"

	"github.com/kadirpekel/graphchat/pkg/config"
)

// eventWriter is the part of eventqueue.Queue the executor writes to.
type eventWriter interface {
	Write(ctx context.Context, event a2a.Event) error
}

// Executor implements a2asrv.AgentExecutor on top of an Adapter.
//
// Event translation:
//   - New task: TaskStateSubmitted
//   - immediate: the final task as artifact events plus one final status
//   - deferred: TaskStateWorking, then the final task
//   - streaming: the adapter's event stream as is
type Executor struct {
	adapter *Adapter
	mode    string
}

// NewExecutor creates an executor running in mode. An unknown mode falls
// back to streaming.
func NewExecutor(adapter *Adapter, mode string) *Executor {
	switch mode {
	case config.ModeImmediate, config.ModeDeferred, config.ModeStreaming:
	default:
		slog.Warn("Unknown execution mode, using streaming", "mode", mode)
		mode = config.ModeStreaming
	}
	return &Executor{adapter: adapter, mode: mode}
}

// Mode returns the execution mode.
func (e *Executor) Mode() string { return e.mode }

// Execute implements a2asrv.AgentExecutor.
func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	return e.execute(ctx, reqCtx, queue)
}

func (e *Executor) execute(ctx context.Context, reqCtx *a2asrv.RequestContext, w eventWriter) error {
	if reqCtx.Message == nil {
		return fmt.Errorf("message not provided")
	}

	req := toRequest(reqCtx)
	slog.Debug("Execute", "mode", e.mode, "task_id", req.TaskID, "context_id", req.ContextID, "resume", req.Resume)

	if reqCtx.StoredTask == nil {
		ev := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)
		if err := w.Write(ctx, ev); err != nil {
			return fmt.Errorf("failed to write submitted event: %w", err)
		}
	}

	switch e.mode {
	case config.ModeImmediate:
		return writeAll(ctx, w, taskEvents(e.adapter.Execute(ctx, req)))
	case config.ModeDeferred:
		for task := range e.adapter.ExecuteDeferred(ctx, req) {
			if err := writeAll(ctx, w, taskEvents(task)); err != nil {
				return err
			}
		}
		return nil
	default:
		for ev := range e.adapter.Stream(ctx, req) {
			if err := w.Write(ctx, ev); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
		}
		return nil
	}
}

// Cancel implements a2asrv.AgentExecutor. Runs are not preemptible, so the
// request is refused and the task keeps its state.
func (e *Executor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, _ eventqueue.Queue) error {
	if err := e.adapter.Cancel(ctx, reqCtx.ContextID); err != nil {
		return err
	}
	return a2a.ErrTaskNotCancelable
}

func writeAll(ctx context.Context, w eventWriter, events []a2a.Event) error {
	for _, ev := range events {
		if err := w.Write(ctx, ev); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	return nil
}

// taskEvents expresses a task snapshot as queue events: one event per
// artifact, then a status update that is final unless the task is working.
func taskEvents(task *a2a.Task) []a2a.Event {
	events := make([]a2a.Event, 0, len(task.Artifacts)+1)
	for _, art := range task.Artifacts {
		events = append(events, &a2a.TaskArtifactUpdateEvent{
			TaskID:    task.ID,
			ContextID: task.ContextID,
			Artifact:  art,
			LastChunk: true,
		})
	}

	return append(events, &a2a.TaskStatusUpdateEvent{
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Status:    task.Status,
		Final:     task.Status.State != a2a.TaskStateWorking,
		Metadata:  task.Metadata,
	})
}

var _ a2asrv.AgentExecutor = (*Executor)(nil)
