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

package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToolset struct {
	name  string
	tools []CallableTool
	err   error
}

func (s *staticToolset) Name() string { return s.name }
func (s *staticToolset) Close() error { return nil }
func (s *staticToolset) Tools(context.Context) ([]CallableTool, error) {
	return s.tools, s.err
}

func TestCollect(t *testing.T) {
	local := []CallableTool{&stubTool{name: "local"}}
	a := &staticToolset{name: "a", tools: []CallableTool{&stubTool{name: "a1"}, &stubTool{name: "a2"}}}
	b := &staticToolset{name: "b", tools: []CallableTool{&stubTool{name: "b1"}}}

	all, err := Collect(context.Background(), local, a, b)
	require.NoError(t, err)

	var names []string
	for _, tl := range all {
		names = append(names, tl.Name())
	}
	assert.Equal(t, []string{"local", "a1", "a2", "b1"}, names)
}

func TestCollect_Error(t *testing.T) {
	bad := &staticToolset{name: "bad", err: errors.New("unreachable")}
	_, err := Collect(context.Background(), nil, bad)
	assert.ErrorContains(t, err, "toolset bad: unreachable")
}
