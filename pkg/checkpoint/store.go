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

package checkpoint

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get for threads without a checkpoint.
var ErrNotFound = errors.New("checkpoint not found")

// Store is a keyed store of the latest State per thread.
type Store interface {
	// Get returns the latest checkpoint of threadID, or ErrNotFound.
	Get(ctx context.Context, threadID string) (*State, error)

	// Put replaces the checkpoint of state.ThreadID.
	Put(ctx context.Context, state *State) error
}

// MemoryStore keeps checkpoints in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*State)}
}

// Get returns a copy of the stored state.
func (s *MemoryStore) Get(_ context.Context, threadID string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	return st.Clone(), nil
}

// Put stores a copy of state.
func (s *MemoryStore) Put(_ context.Context, state *State) error {
	if err := validateForPut(state); err != nil {
		return err
	}
	c := state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ThreadID] = c
	return nil
}

// Len returns the number of stored threads.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

var _ Store = (*MemoryStore)(nil)
