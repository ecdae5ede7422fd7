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
	"iter"
	"log/slog"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"

	"github.com/kadirpekel/graphchat/pkg/graph"
	"github.com/kadirpekel/graphchat/pkg/message"
)

// Runtime is the part of the graph the adapter drives.
type Runtime interface {
	Run(ctx context.Context, in graph.Input) (*graph.FinalState, error)
	Stream(ctx context.Context, in graph.Input) iter.Seq2[graph.StepEvent, error]
}

var _ Runtime = (*graph.Graph)(nil)

// Request is one inbound message addressed to a thread.
type Request struct {
	TaskID    a2a.TaskID
	ContextID string

	// Query is the user text, or the approval answer when Resume is set.
	Query  string
	Resume bool
}

// TaskInfo implements a2a.TaskInfoProvider.
func (r Request) TaskInfo() a2a.TaskInfo {
	return a2a.TaskInfo{TaskID: r.TaskID, ContextID: r.ContextID}
}

func (r Request) input() graph.Input {
	return graph.Input{Query: r.Query, ThreadID: r.ContextID, Resume: r.Resume}
}

// Adapter projects graph runs onto A2A tasks. Every task it returns is
// built fresh; none is mutated after it has been handed out.
type Adapter struct {
	runtime Runtime
}

// NewAdapter creates an adapter over rt.
func NewAdapter(rt Runtime) *Adapter {
	return &Adapter{runtime: rt}
}

// Execute runs the graph to completion or suspension and returns the
// resulting task: completed, failed or input-required.
func (a *Adapter) Execute(ctx context.Context, req Request) *a2a.Task {
	final, err := a.runtime.Run(ctx, req.input())
	if err != nil {
		slog.Warn("Run failed", "context_id", req.ContextID, "error", err)
		return failedTask(req, err)
	}
	if final.Interrupted() {
		return inputRequiredTask(req, final.Interrupt)
	}
	return completedTask(req, final)
}

// ExecuteDeferred acknowledges with a working task before running, then
// yields the final task.
func (a *Adapter) ExecuteDeferred(ctx context.Context, req Request) iter.Seq[*a2a.Task] {
	return func(yield func(*a2a.Task) bool) {
		if !yield(workingTask(req)) {
			return
		}
		yield(a.Execute(ctx, req))
	}
}

// Stream yields a working status, one artifact event per model step and
// exactly one final status event. Artifact events share one artifact id;
// every event after the first appends to it.
func (a *Adapter) Stream(ctx context.Context, req Request) iter.Seq[a2a.Event] {
	return func(yield func(a2a.Event) bool) {
		if !yield(a2a.NewStatusUpdateEvent(req, a2a.TaskStateWorking, nil)) {
			return
		}

		var artifactID a2a.ArtifactID
		for ev, err := range a.runtime.Stream(ctx, req.input()) {
			if err != nil {
				slog.Warn("Stream failed", "context_id", req.ContextID, "error", err)
				yield(failedStatus(req, err))
				return
			}

			switch ev := ev.(type) {
			case *graph.ModelStep:
				part := a2a.TextPart{Text: ev.Text()}
				var out *a2a.TaskArtifactUpdateEvent
				if artifactID == "" {
					out = a2a.NewArtifactEvent(req, part)
					artifactID = out.Artifact.ID
				} else {
					out = a2a.NewArtifactUpdateEvent(req, artifactID, part)
					out.Append = true
				}
				if !yield(out) {
					return
				}
			case *graph.Interrupt:
				yield(inputRequiredStatus(req, ev))
				return
			case *graph.SetupStep, *graph.ToolStep, *graph.Terminal:
			}
		}

		done := a2a.NewStatusUpdateEvent(req, a2a.TaskStateCompleted, nil)
		done.Final = true
		yield(done)
	}
}

// Cancel does nothing: a submitted run cannot be preempted.
func (a *Adapter) Cancel(ctx context.Context, contextID string) error {
	slog.Debug("Cancel ignored", "context_id", contextID)
	return nil
}

func newTask(req Request, state a2a.TaskState, msg *a2a.Message) *a2a.Task {
	return &a2a.Task{
		ID:        req.TaskID,
		ContextID: req.ContextID,
		Status:    a2a.TaskStatus{State: state, Message: msg},
		Artifacts: []*a2a.Artifact{},
	}
}

func workingTask(req Request) *a2a.Task {
	return newTask(req, a2a.TaskStateWorking, nil)
}

func completedTask(req Request, final *graph.FinalState) *a2a.Task {
	task := newTask(req, a2a.TaskStateCompleted, nil)
	task.Artifacts = []*a2a.Artifact{{
		ID:    a2a.ArtifactID(uuid.NewString()),
		Name:  "answer",
		Parts: a2a.ContentParts{a2a.TextPart{Text: final.Content()}},
	}}
	task.Metadata = map[string]any{metaSteps: final.Steps}
	return task
}

func failedTask(req Request, cause error) *a2a.Task {
	msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, req, a2a.TextPart{Text: cause.Error()})
	task := newTask(req, a2a.TaskStateFailed, msg)
	task.Metadata = map[string]any{metaError: cause.Error()}
	return task
}

func inputRequiredTask(req Request, intr *graph.Interrupt) *a2a.Task {
	msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, req, a2a.TextPart{Text: intr.Prompt})
	task := newTask(req, a2a.TaskStateInputRequired, msg)
	task.Metadata = interruptMeta(intr)
	return task
}

func failedStatus(req Request, cause error) *a2a.TaskStatusUpdateEvent {
	msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, req, a2a.TextPart{Text: cause.Error()})
	ev := a2a.NewStatusUpdateEvent(req, a2a.TaskStateFailed, msg)
	ev.Final = true
	ev.Metadata = map[string]any{metaError: cause.Error()}
	return ev
}

func inputRequiredStatus(req Request, intr *graph.Interrupt) *a2a.TaskStatusUpdateEvent {
	msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, req, a2a.TextPart{Text: intr.Prompt})
	ev := a2a.NewStatusUpdateEvent(req, a2a.TaskStateInputRequired, msg)
	ev.Final = true
	ev.Metadata = interruptMeta(intr)
	return ev
}

func interruptMeta(intr *graph.Interrupt) map[string]any {
	return map[string]any{
		metaInterruptID: intr.ID,
		metaToolCalls:   toolCallsMeta(intr.ToolCalls),
	}
}

// toolCallsMeta converts calls into plain JSON values for A2A metadata.
func toolCallsMeta(calls []message.ToolCall) []any {
	out := make([]any, len(calls))
	for i, c := range calls {
		out[i] = map[string]any{"id": c.ID, "name": c.Name, "args": c.Args}
	}
	return out
}
