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
	"errors"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/graphchat/pkg/config"
	"github.com/kadirpekel/graphchat/pkg/graph"
	"github.com/kadirpekel/graphchat/pkg/testutils"
)

type recordingWriter struct {
	events []a2a.Event
	err    error
}

func (w *recordingWriter) Write(_ context.Context, ev a2a.Event) error {
	if w.err != nil {
		return w.err
	}
	w.events = append(w.events, ev)
	return nil
}

func (w *recordingWriter) states() []a2a.TaskState {
	var states []a2a.TaskState
	for _, ev := range w.events {
		if status, ok := ev.(*a2a.TaskStatusUpdateEvent); ok {
			states = append(states, status.Status.State)
		}
	}
	return states
}

func userRequest(contextID string, parts ...a2a.Part) *a2asrv.RequestContext {
	return &a2asrv.RequestContext{
		Message:   a2a.NewMessage(a2a.MessageRoleUser, parts...),
		TaskID:    a2a.TaskID("task-" + contextID),
		ContextID: contextID,
	}
}

func TestNewExecutor_UnknownModeFallsBack(t *testing.T) {
	e := NewExecutor(NewAdapter(newRuntime(t, testutils.NewScriptedModel(), nil)), "bogus")
	assert.Equal(t, config.ModeStreaming, e.Mode())
}

func TestExecutor_Modes(t *testing.T) {
	tests := []struct {
		mode   string
		states []a2a.TaskState
	}{
		{config.ModeImmediate, []a2a.TaskState{a2a.TaskStateSubmitted, a2a.TaskStateCompleted}},
		{config.ModeDeferred, []a2a.TaskState{a2a.TaskStateSubmitted, a2a.TaskStateWorking, a2a.TaskStateCompleted}},
		{config.ModeStreaming, []a2a.TaskState{a2a.TaskStateSubmitted, a2a.TaskStateWorking, a2a.TaskStateCompleted}},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			e := NewExecutor(NewAdapter(newRuntime(t, testutils.CalculatorScript(), nil)), tt.mode)
			w := &recordingWriter{}

			require.NoError(t, e.execute(context.Background(), userRequest(tt.mode, a2a.TextPart{Text: "compute"}), w))
			assert.Equal(t, tt.states, w.states())

			last, ok := w.events[len(w.events)-1].(*a2a.TaskStatusUpdateEvent)
			require.True(t, ok)
			assert.True(t, last.Final)
			assert.Equal(t, tt.mode, last.ContextID)

			var artifacts int
			for _, ev := range w.events {
				if _, ok := ev.(*a2a.TaskArtifactUpdateEvent); ok {
					artifacts++
				}
			}
			assert.Positive(t, artifacts)
		})
	}
}

func TestExecutor_StoredTaskSkipsSubmitted(t *testing.T) {
	e := NewExecutor(NewAdapter(newRuntime(t, testutils.NewScriptedModel(testutils.Say("hi")), nil)), config.ModeImmediate)
	w := &recordingWriter{}

	reqCtx := userRequest("stored", a2a.TextPart{Text: "hello"})
	reqCtx.StoredTask = &a2a.Task{ID: reqCtx.TaskID, ContextID: "stored", Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}}

	require.NoError(t, e.execute(context.Background(), reqCtx, w))
	assert.Equal(t, []a2a.TaskState{a2a.TaskStateCompleted}, w.states())
}

func TestExecutor_ResumeFromInputRequired(t *testing.T) {
	m := testutils.CalculatorScript()
	e := NewExecutor(NewAdapter(newRuntime(t, m, graph.Always)), config.ModeImmediate)
	ctx := context.Background()

	w := &recordingWriter{}
	reqCtx := userRequest("hitl", a2a.TextPart{Text: "compute"})
	require.NoError(t, e.execute(ctx, reqCtx, w))
	assert.Equal(t, []a2a.TaskState{a2a.TaskStateSubmitted, a2a.TaskStateInputRequired}, w.states())

	w = &recordingWriter{}
	answer := userRequest("hitl", a2a.TextPart{Text: "yes"})
	answer.StoredTask = &a2a.Task{ID: reqCtx.TaskID, ContextID: "hitl", Status: a2a.TaskStatus{State: a2a.TaskStateInputRequired}}
	require.NoError(t, e.execute(ctx, answer, w))
	assert.Equal(t, []a2a.TaskState{a2a.TaskStateCompleted}, w.states())
	assert.Zero(t, m.Remaining())
}

func TestExecutor_ExecuteWithoutMessage(t *testing.T) {
	e := NewExecutor(NewAdapter(newRuntime(t, testutils.NewScriptedModel(), nil)), config.ModeImmediate)
	err := e.execute(context.Background(), &a2asrv.RequestContext{ContextID: "x"}, &recordingWriter{})
	assert.ErrorContains(t, err, "message not provided")
}

func TestExecutor_WriteFailure(t *testing.T) {
	boom := errors.New("queue closed")
	e := NewExecutor(NewAdapter(newRuntime(t, testutils.NewScriptedModel(testutils.Say("hi")), nil)), config.ModeStreaming)

	err := e.execute(context.Background(), userRequest("w", a2a.TextPart{Text: "hi"}), &recordingWriter{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestExecutor_CancelIsRefused(t *testing.T) {
	e := NewExecutor(NewAdapter(newRuntime(t, testutils.NewScriptedModel(), nil)), config.ModeImmediate)
	err := e.Cancel(context.Background(), userRequest("c"), nil)
	assert.ErrorIs(t, err, a2a.ErrTaskNotCancelable)
}

func TestToRequest(t *testing.T) {
	tests := []struct {
		name       string
		reqCtx     *a2asrv.RequestContext
		wantQuery  string
		wantResume bool
	}{
		{
			name:      "plain text",
			reqCtx:    userRequest("a", a2a.TextPart{Text: "hello"}, a2a.TextPart{Text: "world"}),
			wantQuery: "hello\nworld",
		},
		{
			name: "stored input required",
			reqCtx: func() *a2asrv.RequestContext {
				r := userRequest("b", a2a.TextPart{Text: "no"})
				r.StoredTask = &a2a.Task{Status: a2a.TaskStatus{State: a2a.TaskStateInputRequired}}
				return r
			}(),
			wantQuery:  "no",
			wantResume: true,
		},
		{
			name: "resume metadata",
			reqCtx: func() *a2asrv.RequestContext {
				r := userRequest("c", a2a.TextPart{Text: "yes"})
				r.Message.Metadata = map[string]any{"resume": true}
				return r
			}(),
			wantQuery:  "yes",
			wantResume: true,
		},
		{
			name:       "approval data part deny",
			reqCtx:     userRequest("d", a2a.DataPart{Data: map[string]any{"type": "tool_approval", "decision": "deny"}}),
			wantQuery:  "no",
			wantResume: true,
		},
		{
			name:       "approval data part approve",
			reqCtx:     userRequest("e", a2a.DataPart{Data: map[string]any{"type": "tool_approval", "decision": "approve"}}),
			wantQuery:  "yes",
			wantResume: true,
		},
		{
			name:      "unrelated data part",
			reqCtx:    userRequest("f", a2a.DataPart{Data: map[string]any{"type": "other"}}),
			wantQuery: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := toRequest(tt.reqCtx)
			assert.Equal(t, tt.wantQuery, req.Query)
			assert.Equal(t, tt.wantResume, req.Resume)
			assert.Equal(t, tt.reqCtx.ContextID, req.ContextID)
		})
	}
}
