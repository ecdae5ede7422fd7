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

// Package checkpoint persists the run state of conversation threads.
//
// A checkpoint is the latest saved State of one thread, keyed by thread id.
// The graph runtime reads it at the start of every run and writes it at the
// two durability-significant points of a run:
//
//   - after suspending on an approval interrupt
//   - after reaching the terminal node
//
// Failed or cancelled runs write nothing, so a checkpoint never holds a
// half-applied node output.
//
// # Backends
//
//	memory  process-local map, the default
//	sql     sqlite, mysql or postgres; schema managed by goose migrations
//	redis   one key per thread with an optional TTL
//
// All backends are safe for concurrent use. Put is atomic per thread id and
// last writer wins.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kadirpekel/graphchat/pkg/message"
)

// Status is the outcome of the run that wrote a checkpoint.
type Status string

const (
	// StatusInterrupted means the run suspended and awaits a resume answer.
	StatusInterrupted Status = "interrupted"

	// StatusCompleted means the run reached the terminal node.
	StatusCompleted Status = "completed"
)

// Interrupt is an outstanding suspension raised by the approval node.
type Interrupt struct {
	// ID identifies this interrupt.
	ID string `json:"id"`

	// Node is the node that raised the interrupt.
	Node string `json:"node"`

	// Prompt is the question shown to the user.
	Prompt string `json:"prompt"`

	// ToolCalls are the calls awaiting approval, exactly as requested.
	ToolCalls []message.ToolCall `json:"tool_calls,omitempty"`

	// RaisedAt is when the run suspended.
	RaisedAt time.Time `json:"raised_at"`
}

// State is the persisted run state of one thread.
type State struct {
	ThreadID string             `json:"thread_id"`
	Query    string             `json:"query"`
	Messages []*message.Message `json:"messages"`

	// Pending is set while the thread waits on an interrupt.
	Pending *Interrupt `json:"pending,omitempty"`

	Status Status `json:"status"`

	// Version increases by one with every write.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPendingInterrupt reports whether the thread awaits a resume answer.
func (s *State) HasPendingInterrupt() bool {
	return s != nil && s.Pending != nil
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = message.CloneAll(s.Messages)
	if s.Pending != nil {
		p := *s.Pending
		p.ToolCalls = message.CloneToolCalls(s.Pending.ToolCalls)
		c.Pending = &p
	}
	return &c
}

// Serialize converts the state to JSON.
func (s *State) Serialize() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize checkpoint: %w", err)
	}
	return data, nil
}

// Deserialize parses a state from JSON.
func Deserialize(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint: %w", err)
	}
	return &s, nil
}

func validateForPut(s *State) error {
	if s == nil {
		return fmt.Errorf("state is required")
	}
	if s.ThreadID == "" {
		return fmt.Errorf("thread id is required")
	}
	return nil
}
