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

package mathtool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/graphchat/pkg/tool"
)

func TestMathTools(t *testing.T) {
	reg := tool.MustRegistry(Tools()...)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"multiply", MultiplyName, map[string]any{"x": 100.0, "y": 200.0}, "20000"},
		{"add", AddName, map[string]any{"x": 1.0, "y": 2.0}, "3"},
		{"negative", AddName, map[string]any{"x": -5.0, "y": 2.0}, "-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := reg.Invoke(context.Background(), tt.tool, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Content)
			assert.False(t, res.IsError)
		})
	}
}

func TestMathTools_RejectMissingOperand(t *testing.T) {
	reg := tool.MustRegistry(Tools()...)
	_, err := reg.Invoke(context.Background(), MultiplyName, map[string]any{"x": 3.0})
	assert.Error(t, err)
}
