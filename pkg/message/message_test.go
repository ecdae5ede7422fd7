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

package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssistant_AssignsCallIDs(t *testing.T) {
	m := Assistant("", ToolCall{Name: "add_function"}, ToolCall{ID: "fixed", Name: "multiply_function"})

	require.Len(t, m.ToolCalls, 2)
	assert.NotEmpty(t, m.ToolCalls[0].ID)
	assert.Equal(t, "fixed", m.ToolCalls[1].ID)
	assert.True(t, m.HasToolCalls())
	assert.Equal(t, RoleAssistant, m.Role)
}

func TestAssistant_NormalizesArgs(t *testing.T) {
	type point struct {
		X int `json:"x"`
	}
	m := Assistant("", ToolCall{
		Name: "multiply_function",
		Args: map[string]any{"x": 100, "y": int64(200), "p": point{X: 3}, "list": []int{1, 2}},
	})

	assert.Equal(t, map[string]any{
		"x":    100.0,
		"y":    200.0,
		"p":    map[string]any{"x": 3.0},
		"list": []any{1.0, 2.0},
	}, m.ToolCalls[0].Args)
}

func TestNormalizeArgs(t *testing.T) {
	assert.Nil(t, NormalizeArgs(nil))

	in := map[string]any{"x": 1}
	out := NormalizeArgs(in)
	assert.Equal(t, 1.0, out["x"])
	assert.Equal(t, 1, in["x"], "input is left untouched")

	unencodable := map[string]any{"ch": make(chan int)}
	assert.Contains(t, NormalizeArgs(unencodable), "ch")

	calls := NormalizeToolCalls([]ToolCall{{ID: "c1", Args: map[string]any{"x": 2}}})
	assert.Equal(t, 2.0, calls[0].Args["x"])
	assert.Nil(t, NormalizeToolCalls(nil))
}

func TestClone_DeepCopiesArgs(t *testing.T) {
	orig := Assistant("", ToolCall{
		ID:   "c1",
		Name: "add_function",
		Args: map[string]any{"x": 1.0, "nested": map[string]any{"y": 2.0}},
	})

	cp := orig.Clone()
	cp.ToolCalls[0].Args["x"] = 10.0
	cp.ToolCalls[0].Args["nested"].(map[string]any)["y"] = 20.0

	assert.Equal(t, 1.0, orig.ToolCalls[0].Args["x"])
	assert.Equal(t, 2.0, orig.ToolCalls[0].Args["nested"].(map[string]any)["y"])
}

func TestCheckPairing(t *testing.T) {
	call := ToolCall{ID: "c1", Name: "add_function"}

	tests := []struct {
		name    string
		msgs    []*Message
		wantErr bool
	}{
		{
			name: "result follows its call",
			msgs: []*Message{User("hi"), Assistant("", call), ToolResult(call, "3", false), Assistant("done")},
		},
		{
			name:    "result without any call",
			msgs:    []*Message{User("hi"), ToolResult(call, "3", false)},
			wantErr: true,
		},
		{
			name: "result answering an older assistant message",
			msgs: []*Message{
				Assistant("", call),
				Assistant("again"),
				ToolResult(call, "3", false),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPairing(tt.msgs)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLastAssistant(t *testing.T) {
	a := Assistant("answer")
	msgs := []*Message{System("sys"), User("q"), a, User("follow up")}

	assert.Same(t, a, LastAssistant(msgs))
	assert.Nil(t, LastAssistant([]*Message{User("q")}))
}
