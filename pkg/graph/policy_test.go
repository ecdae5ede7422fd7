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

package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/graphchat/pkg/config"
	"github.com/kadirpekel/graphchat/pkg/message"
)

func TestIsDenial(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"no", true},
		{"No", true},
		{"NO!", true},
		{"No, thanks", true},
		{"  no.", true},
		{"いいえ no", false},
		{"nope", false},
		{"yes", false},
		{"not now", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDenial(tt.answer))
		})
	}
}

func TestPolicyFromConfig(t *testing.T) {
	ctx := context.Background()

	p, err := PolicyFromConfig(ctx, config.ApprovalConfig{})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = PolicyFromConfig(ctx, config.ApprovalConfig{Enabled: true, Policy: config.ApprovalNever})
	require.NoError(t, err)
	required, err := p.RequiresApproval(ctx, "t", nil)
	require.NoError(t, err)
	assert.False(t, required)

	path := filepath.Join(t.TempDir(), "approval.rego")
	require.NoError(t, os.WriteFile(path, []byte(`package graphchat.approval

import rego.v1

require if input.thread_id == "guarded"
`), 0o600))

	p, err = PolicyFromConfig(ctx, config.ApprovalConfig{Enabled: true, Policy: config.ApprovalRego, RegoFile: path})
	require.NoError(t, err)

	calls := []message.ToolCall{{ID: "1", Name: "add_function", Args: map[string]any{"x": 1.0}}}
	required, err = p.RequiresApproval(ctx, "guarded", calls)
	require.NoError(t, err)
	assert.True(t, required)

	required, err = p.RequiresApproval(ctx, "open", calls)
	require.NoError(t, err)
	assert.False(t, required)
}

func TestNewRegoPolicy_Invalid(t *testing.T) {
	_, err := NewRegoPolicy(context.Background(), "package graphchat.approval\nrequire {")
	assert.ErrorContains(t, err, "failed to prepare rego")
}

func TestRegoPolicy_NonBoolean(t *testing.T) {
	p, err := NewRegoPolicy(context.Background(), `package graphchat.approval

import rego.v1

require := "maybe"
`)
	require.NoError(t, err)
	_, err = p.RequiresApproval(context.Background(), "t", nil)
	assert.ErrorContains(t, err, "must be a boolean")
}
