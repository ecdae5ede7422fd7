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

package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kadirpekel/graphchat/pkg/message"
	"github.com/kadirpekel/graphchat/pkg/model"
)

// ErrScriptExhausted is returned once every scripted reply was consumed.
var ErrScriptExhausted = errors.New("scripted model: no replies left")

// Reply is one scripted model turn.
type Reply struct {
	Message *message.Message
	Err     error
	Func    func(req *model.Request) (*message.Message, error)
}

// Say replies with plain text.
func Say(text string) Reply {
	return Reply{Message: message.Assistant(text)}
}

// Call replies with tool calls and no text.
func Call(calls ...message.ToolCall) Reply {
	return Reply{Message: message.Assistant("", calls...)}
}

// Fail makes the turn return err.
func Fail(err error) Reply {
	return Reply{Err: err}
}

// Respond computes the turn from the request.
func Respond(fn func(req *model.Request) (*message.Message, error)) Reply {
	return Reply{Func: fn}
}

// ScriptedModel is a model.Invoker that replays scripted replies in order
// and records every request it receives.
type ScriptedModel struct {
	// Delay is applied before every reply. The wait honours ctx.
	Delay time.Duration

	mu       sync.Mutex
	replies  []Reply
	requests []*model.Request
}

// NewScriptedModel creates a model that replays replies in order.
func NewScriptedModel(replies ...Reply) *ScriptedModel {
	return &ScriptedModel{replies: replies}
}

// Name returns "scripted".
func (m *ScriptedModel) Name() string { return "scripted" }

// Invoke returns the next scripted reply.
func (m *ScriptedModel) Invoke(ctx context.Context, req *model.Request) (*message.Message, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	m.requests = append(m.requests, &model.Request{
		Messages: message.CloneAll(req.Messages),
		Tools:    req.Tools,
	})
	if len(m.replies) == 0 {
		m.mu.Unlock()
		return nil, ErrScriptExhausted
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	m.mu.Unlock()

	switch {
	case next.Func != nil:
		return next.Func(req)
	case next.Err != nil:
		return nil, next.Err
	default:
		return next.Message.Clone(), nil
	}
}

// Push appends replies to the script.
func (m *ScriptedModel) Push(replies ...Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

// Requests returns copies of the recorded requests.
func (m *ScriptedModel) Requests() []*model.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Request(nil), m.requests...)
}

// Calls returns the number of Invoke calls so far.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Remaining returns the number of unconsumed replies.
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies)
}

var _ model.Invoker = (*ScriptedModel)(nil)
