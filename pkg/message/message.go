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

// Package message defines the conversation history threaded through the graph.
//
// A thread's history is append-only. Ordering is the only record of what
// happened: a tool result always follows the assistant message that requested
// it, and nothing is ever edited in place.
package message

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured request from the model to invoke a tool.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Message is one entry of a thread's history.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls is only set on assistant messages.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID and Name are only set on tool messages.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`

	// IsError marks a tool result that reports a failure to the model.
	IsError bool `json:"is_error,omitempty"`
}

// System creates a system instruction message.
func System(content string) *Message {
	return &Message{ID: newID(), Role: RoleSystem, Content: content}
}

// User creates a user message.
func User(content string) *Message {
	return &Message{ID: newID(), Role: RoleUser, Content: content}
}

// Assistant creates an assistant message, optionally requesting tool calls.
// Calls without an id get one assigned and their arguments are normalized.
func Assistant(content string, calls ...ToolCall) *Message {
	m := &Message{ID: newID(), Role: RoleAssistant, Content: content}
	for _, c := range calls {
		if c.ID == "" {
			c.ID = "call_" + uuid.NewString()
		}
		c.Args = NormalizeArgs(c.Args)
		m.ToolCalls = append(m.ToolCalls, c)
	}
	return m
}

// ToolResult creates the result message for a tool call.
func ToolResult(call ToolCall, content string, isError bool) *Message {
	return &Message{
		ID:         newID(),
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		Name:       call.Name,
		IsError:    isError,
	}
}

func newID() string {
	return uuid.NewString()
}

// HasToolCalls reports whether the message requests any tool call.
func (m *Message) HasToolCalls() bool {
	return m != nil && len(m.ToolCalls) > 0
}

// Clone returns a deep copy of the message, tool arguments included.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.ToolCalls = CloneToolCalls(m.ToolCalls)
	return &c
}

// CloneToolCalls deep-copies tool calls, arguments included.
func CloneToolCalls(calls []ToolCall) []ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]ToolCall, len(calls))
	for i, tc := range calls {
		tc.Args = cloneMap(tc.Args)
		out[i] = tc
	}
	return out
}

// NormalizeArgs returns a copy of args holding only JSON value types, so
// numbers become float64 and structs become maps. A stored history then
// reads back exactly as it was written. Arguments that cannot be encoded
// are deep-copied unchanged.
func NormalizeArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return cloneMap(args)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return cloneMap(args)
	}
	return out
}

// NormalizeToolCalls copies calls with normalized arguments.
func NormalizeToolCalls(calls []ToolCall) []ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]ToolCall, len(calls))
	for i, tc := range calls {
		tc.Args = NormalizeArgs(tc.Args)
		out[i] = tc
	}
	return out
}

// String renders a short single-line form used in logs and the CLI.
func (m *Message) String() string {
	if m == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", m.Role, m.Content)
	for _, tc := range m.ToolCalls {
		args, _ := json.Marshal(tc.Args)
		fmt.Fprintf(&b, " -> %s(%s)", tc.Name, args)
	}
	return b.String()
}

// CloneAll deep-copies a history.
func CloneAll(msgs []*Message) []*Message {
	if msgs == nil {
		return nil
	}
	out := make([]*Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// LastAssistant returns the most recent assistant message, or nil.
func LastAssistant(msgs []*Message) *Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleAssistant {
			return msgs[i]
		}
	}
	return nil
}

// CheckPairing verifies that every tool result references a call id of the
// nearest preceding assistant message.
func CheckPairing(msgs []*Message) error {
	var calls map[string]bool
	for i, m := range msgs {
		switch m.Role {
		case RoleAssistant:
			calls = make(map[string]bool, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				calls[tc.ID] = true
			}
		case RoleTool:
			if !calls[m.ToolCallID] {
				return fmt.Errorf("message %d: tool result %q does not answer the preceding assistant message", i, m.ToolCallID)
			}
		}
	}
	return nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
