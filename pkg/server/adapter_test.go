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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/graphchat/pkg/graph"
	"github.com/kadirpekel/graphchat/pkg/testutils"
	"github.com/kadirpekel/graphchat/pkg/tool"
	"github.com/kadirpekel/graphchat/pkg/tool/mathtool"
)

func newRuntime(t *testing.T, m *testutils.ScriptedModel, approval graph.ApprovalPolicy) *graph.Graph {
	t.Helper()
	g, err := graph.New(graph.Config{
		Model:    m,
		Tools:    tool.MustRegistry(mathtool.Tools()...),
		Approval: approval,
	})
	require.NoError(t, err)
	return g
}

func request(contextID, query string) Request {
	return Request{TaskID: a2a.TaskID("task-" + contextID), ContextID: contextID, Query: query}
}

func textOf(t *testing.T, parts a2a.ContentParts) string {
	t.Helper()
	require.Len(t, parts, 1)
	tp, ok := parts[0].(a2a.TextPart)
	require.True(t, ok, "expected text part, got %T", parts[0])
	return tp.Text
}

func TestAdapter_ExecuteCompleted(t *testing.T) {
	a := NewAdapter(newRuntime(t, testutils.CalculatorScript(), nil))

	task := a.Execute(context.Background(), request("calc", "compute 100 * 200 and 1 + 2"))

	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	assert.Equal(t, "calc", task.ContextID)
	assert.Equal(t, a2a.TaskID("task-calc"), task.ID)
	require.Len(t, task.Artifacts, 1)
	assert.NotEmpty(t, task.Artifacts[0].ID)
	assert.Equal(t, "100 * 200 = 20000 and 1 + 2 = 3.", textOf(t, task.Artifacts[0].Parts))
	assert.Equal(t, 2, task.Metadata[metaSteps])
}

func TestAdapter_ExecuteFailed(t *testing.T) {
	m := testutils.NewScriptedModel(testutils.Fail(errors.New("quota exceeded")))
	a := NewAdapter(newRuntime(t, m, nil))

	task := a.Execute(context.Background(), request("broken", "hi"))

	assert.Equal(t, a2a.TaskStateFailed, task.Status.State)
	assert.NotNil(t, task.Artifacts)
	assert.Empty(t, task.Artifacts)
	assert.Contains(t, task.Metadata[metaError], "quota exceeded")
}

func TestAdapter_ExecuteResumeWithoutInterrupt(t *testing.T) {
	m := testutils.NewScriptedModel()
	a := NewAdapter(newRuntime(t, m, nil))

	req := request("fresh", "yes")
	req.Resume = true
	task := a.Execute(context.Background(), req)

	assert.Equal(t, a2a.TaskStateFailed, task.Status.State)
	assert.Contains(t, task.Metadata[metaError], "resume without outstanding interrupt")
	assert.Zero(t, m.Calls())
}

func TestAdapter_ExecuteInputRequiredThenResume(t *testing.T) {
	a := NewAdapter(newRuntime(t, testutils.CalculatorScript(), graph.Always))
	ctx := context.Background()

	task := a.Execute(ctx, request("gated", "compute"))
	require.Equal(t, a2a.TaskStateInputRequired, task.Status.State)
	require.NotNil(t, task.Status.Message)
	assert.Contains(t, textOf(t, task.Status.Message.Parts), "Approve?")
	assert.NotEmpty(t, task.Metadata[metaInterruptID])
	assert.Len(t, task.Metadata[metaToolCalls], 2)
	assert.Empty(t, task.Artifacts)

	resume := request("gated", "yes")
	resume.Resume = true
	task = a.Execute(ctx, resume)
	require.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	assert.Contains(t, textOf(t, task.Artifacts[0].Parts), "20000")
}

func TestAdapter_ExecuteDeferred(t *testing.T) {
	a := NewAdapter(newRuntime(t, testutils.NewScriptedModel(testutils.Say("hello")), nil))

	var tasks []*a2a.Task
	for task := range a.ExecuteDeferred(context.Background(), request("deferred", "hi")) {
		tasks = append(tasks, task)
	}

	require.Len(t, tasks, 2)
	assert.Equal(t, a2a.TaskStateWorking, tasks[0].Status.State)
	assert.Empty(t, tasks[0].Artifacts)
	assert.Equal(t, a2a.TaskStateCompleted, tasks[1].Status.State)
	assert.NotSame(t, tasks[0], tasks[1])
	assert.Equal(t, tasks[0].ID, tasks[1].ID)
}

func TestAdapter_ExecuteDeferredStopsBeforeRunning(t *testing.T) {
	m := testutils.NewScriptedModel(testutils.Say("hello"))
	a := NewAdapter(newRuntime(t, m, nil))

	for range a.ExecuteDeferred(context.Background(), request("deferred", "hi")) {
		break
	}
	assert.Zero(t, m.Calls())
}

func collect(seq func(func(a2a.Event) bool)) []a2a.Event {
	var events []a2a.Event
	for ev := range seq {
		events = append(events, ev)
	}
	return events
}

func TestAdapter_StreamCompleted(t *testing.T) {
	a := NewAdapter(newRuntime(t, testutils.CalculatorScript(), nil))

	events := collect(a.Stream(context.Background(), request("stream", "compute")))
	require.Len(t, events, 4)

	working, ok := events[0].(*a2a.TaskStatusUpdateEvent)
	require.True(t, ok)
	assert.Equal(t, a2a.TaskStateWorking, working.Status.State)
	assert.False(t, working.Final)

	first, ok := events[1].(*a2a.TaskArtifactUpdateEvent)
	require.True(t, ok)
	assert.False(t, first.Append)
	assert.Equal(t, "", textOf(t, first.Artifact.Parts))

	second, ok := events[2].(*a2a.TaskArtifactUpdateEvent)
	require.True(t, ok)
	assert.True(t, second.Append)
	assert.Equal(t, first.Artifact.ID, second.Artifact.ID)
	assert.Equal(t, "100 * 200 = 20000 and 1 + 2 = 3.", textOf(t, second.Artifact.Parts))

	final, ok := events[3].(*a2a.TaskStatusUpdateEvent)
	require.True(t, ok)
	assert.Equal(t, a2a.TaskStateCompleted, final.Status.State)
	assert.True(t, final.Final)
	assert.Equal(t, "stream", final.ContextID)
}

func TestAdapter_StreamInputRequired(t *testing.T) {
	a := NewAdapter(newRuntime(t, testutils.CalculatorScript(), graph.Always))

	events := collect(a.Stream(context.Background(), request("stream-gated", "compute")))
	require.Len(t, events, 3)

	_, ok := events[1].(*a2a.TaskArtifactUpdateEvent)
	assert.True(t, ok)

	final, ok := events[2].(*a2a.TaskStatusUpdateEvent)
	require.True(t, ok)
	assert.Equal(t, a2a.TaskStateInputRequired, final.Status.State)
	assert.True(t, final.Final)
	assert.NotEmpty(t, final.Metadata[metaInterruptID])
}

func TestAdapter_StreamFailed(t *testing.T) {
	m := testutils.NewScriptedModel(testutils.Fail(errors.New("backend down")))
	a := NewAdapter(newRuntime(t, m, nil))

	events := collect(a.Stream(context.Background(), request("stream-fail", "hi")))
	require.Len(t, events, 2)

	final, ok := events[1].(*a2a.TaskStatusUpdateEvent)
	require.True(t, ok)
	assert.Equal(t, a2a.TaskStateFailed, final.Status.State)
	assert.True(t, final.Final)
	assert.Contains(t, final.Metadata[metaError], "backend down")
}

func TestAdapter_StreamTerminalIsLast(t *testing.T) {
	scripts := map[string]func() *testutils.ScriptedModel{
		"plain":      func() *testutils.ScriptedModel { return testutils.NewScriptedModel(testutils.Say("hi")) },
		"calculator": testutils.CalculatorScript,
		"failure": func() *testutils.ScriptedModel {
			return testutils.NewScriptedModel(testutils.Fail(errors.New("x")))
		},
	}

	for name, script := range scripts {
		t.Run(name, func(t *testing.T) {
			a := NewAdapter(newRuntime(t, script(), nil))
			events := collect(a.Stream(context.Background(), request(name, "q")))
			require.GreaterOrEqual(t, len(events), 2)

			for i, ev := range events {
				status, isStatus := ev.(*a2a.TaskStatusUpdateEvent)
				switch i {
				case 0:
					require.True(t, isStatus)
					assert.False(t, status.Final)
				case len(events) - 1:
					require.True(t, isStatus)
					assert.True(t, status.Final)
				default:
					_, isArtifact := ev.(*a2a.TaskArtifactUpdateEvent)
					assert.True(t, isArtifact, "event %d is %T", i, ev)
				}
			}
		})
	}
}

func TestAdapter_StreamEarlyBreak(t *testing.T) {
	m := testutils.CalculatorScript()
	a := NewAdapter(newRuntime(t, m, nil))

	for range a.Stream(context.Background(), request("early", "compute")) {
		break
	}
	assert.Zero(t, m.Calls())
}

func TestAdapter_Cancel(t *testing.T) {
	a := NewAdapter(newRuntime(t, testutils.NewScriptedModel(), nil))
	assert.NoError(t, a.Cancel(context.Background(), "anything"))
}
