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

package remote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/graphchat/pkg/config"
)

// fakeClient answers SendMessage with reply and GetTask with polls in order,
// repeating the last one.
type fakeClient struct {
	mu      sync.Mutex
	reply   a2a.SendMessageResult
	sendErr error
	polls   []*a2a.Task
	getErr  error

	sent    []*a2a.MessageSendParams
	queried int
}

func (f *fakeClient) SendMessage(_ context.Context, params *a2a.MessageSendParams) (a2a.SendMessageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, params)
	return f.reply, f.sendErr
}

func (f *fakeClient) GetTask(_ context.Context, _ *a2a.TaskQueryParams) (*a2a.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if len(f.polls) == 0 {
		return nil, errors.New("no task")
	}
	next := f.polls[0]
	if len(f.polls) > 1 {
		f.polls = f.polls[1:]
	}
	return next, nil
}

func task(state a2a.TaskState, texts ...string) *a2a.Task {
	t := &a2a.Task{ID: "remote-task", ContextID: "remote-ctx", Status: a2a.TaskStatus{State: state}}
	for _, text := range texts {
		t.Artifacts = append(t.Artifacts, &a2a.Artifact{
			ID:    a2a.ArtifactID("a-" + text),
			Parts: a2a.ContentParts{a2a.TextPart{Text: text}},
		})
	}
	return t
}

func fastConfig() config.RemoteConfig {
	return config.RemoteConfig{PollInterval: time.Millisecond, MaxPolls: 3}
}

func TestBridge_DirectMessage(t *testing.T) {
	reply := a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: "20000"}, a2a.DataPart{Data: map[string]any{"x": 1}}, a2a.TextPart{Text: " and 3"})
	client := &fakeClient{reply: reply}
	b := NewBridge(client, fastConfig())

	res, err := b.Invoke(context.Background(), "compute", "msg-1", "ctx-1")
	require.NoError(t, err)
	assert.Equal(t, "20000 and 3", res.Content)
	assert.False(t, res.IsError)
	assert.Equal(t, "msg-1", res.MessageID)
	assert.Equal(t, "ctx-1", res.ContextID)
	assert.Zero(t, client.queried)

	require.Len(t, client.sent, 1)
	sent := client.sent[0].Message
	assert.Equal(t, "msg-1", sent.ID)
	assert.Equal(t, "ctx-1", sent.ContextID)
	assert.Equal(t, a2a.MessageRoleUser, sent.Role)
	assert.Equal(t, []string{"text", "text/plain"}, client.sent[0].Config.AcceptedOutputModes)
}

func TestBridge_GeneratesIDs(t *testing.T) {
	client := &fakeClient{reply: a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: "ok"})}
	b := NewBridge(client, fastConfig())

	res, err := b.Invoke(context.Background(), "hi", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.MessageID)
	assert.NotEmpty(t, res.ContextID)
	assert.Equal(t, res.ContextID, client.sent[0].Message.ContextID)
}

func TestBridge_CompletedTaskWithoutPolling(t *testing.T) {
	client := &fakeClient{reply: task(a2a.TaskStateCompleted, "100 * 200 = ", "20000")}
	b := NewBridge(client, fastConfig())

	res, err := b.Invoke(context.Background(), "compute", "", "")
	require.NoError(t, err)
	assert.Equal(t, "100 * 200 = 20000", res.Content)
	assert.Equal(t, a2a.TaskStateCompleted, res.State)
	assert.Zero(t, client.queried)
}

func TestBridge_PollsUntilCompleted(t *testing.T) {
	client := &fakeClient{
		reply: task(a2a.TaskStateSubmitted),
		polls: []*a2a.Task{task(a2a.TaskStateWorking), task(a2a.TaskStateCompleted, "done")},
	}
	b := NewBridge(client, fastConfig())

	res, err := b.Invoke(context.Background(), "compute", "", "")
	require.NoError(t, err)
	assert.Equal(t, "done", res.Content)
	assert.False(t, res.IsError)
	assert.Equal(t, 2, client.queried)
}

func TestBridge_NonCompletedTerminalIsErrorResult(t *testing.T) {
	for _, state := range []a2a.TaskState{a2a.TaskStateFailed, a2a.TaskStateCanceled, a2a.TaskStateRejected, a2a.TaskStateInputRequired} {
		t.Run(string(state), func(t *testing.T) {
			client := &fakeClient{
				reply: task(a2a.TaskStateWorking),
				polls: []*a2a.Task{task(state, "ignored")},
			}
			res, err := NewBridge(client, fastConfig()).Invoke(context.Background(), "compute", "", "")
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Empty(t, res.Content)
			assert.Equal(t, state, res.State)
		})
	}
}

func TestBridge_TimeoutPartial(t *testing.T) {
	client := &fakeClient{
		reply: task(a2a.TaskStateWorking),
		polls: []*a2a.Task{task(a2a.TaskStateWorking, "half")},
	}
	res, err := NewBridge(client, fastConfig()).Invoke(context.Background(), "compute", "", "")
	require.NoError(t, err)
	assert.Equal(t, "half", res.Content)
	assert.False(t, res.IsError)
	assert.Equal(t, 3, client.queried)
}

func TestBridge_TimeoutPartialWithoutContent(t *testing.T) {
	client := &fakeClient{
		reply: task(a2a.TaskStateWorking),
		polls: []*a2a.Task{task(a2a.TaskStateWorking)},
	}
	res, err := NewBridge(client, fastConfig()).Invoke(context.Background(), "compute", "", "")
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Empty(t, res.Content)
	assert.Equal(t, a2a.TaskStateWorking, res.State)
}

func TestBridge_TimeoutFail(t *testing.T) {
	cfg := fastConfig()
	cfg.TimeoutPolicy = config.TimeoutFail
	client := &fakeClient{
		reply: task(a2a.TaskStateSubmitted),
		polls: []*a2a.Task{task(a2a.TaskStateWorking, "half")},
	}

	_, err := NewBridge(client, cfg).Invoke(context.Background(), "compute", "", "")
	var timeout *RemoteTaskTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 3, timeout.Polls)
	assert.Equal(t, a2a.TaskStateWorking, timeout.State)
	assert.Equal(t, a2a.TaskID("remote-task"), timeout.TaskID)
}

func TestBridge_TransportErrors(t *testing.T) {
	boom := errors.New("connection refused")

	_, err := NewBridge(&fakeClient{sendErr: boom}, fastConfig()).Invoke(context.Background(), "x", "", "")
	assert.ErrorIs(t, err, boom)

	_, err = NewBridge(&fakeClient{reply: task(a2a.TaskStateWorking), getErr: boom}, fastConfig()).Invoke(context.Background(), "x", "", "")
	assert.ErrorIs(t, err, boom)
}

func TestBridge_ContextCancelledWhilePolling(t *testing.T) {
	cfg := config.RemoteConfig{PollInterval: time.Hour, MaxPolls: 3}
	client := &fakeClient{reply: task(a2a.TaskStateWorking)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewBridge(client, cfg).Invoke(ctx, "x", "", "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, client.queried)
}

func TestNewBridge_Defaults(t *testing.T) {
	b := NewBridge(&fakeClient{}, config.RemoteConfig{})
	assert.Equal(t, time.Second, b.cfg.PollInterval)
	assert.Equal(t, 60, b.cfg.MaxPolls)
	assert.Equal(t, config.TimeoutPartial, b.cfg.TimeoutPolicy)
}
