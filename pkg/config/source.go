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

package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Source yields raw configuration bytes and reports changes to them.
type Source interface {
	Load(ctx context.Context) ([]byte, error)

	// Watch signals on the returned channel after every change until ctx is
	// done. A nil channel means the source cannot be watched.
	Watch(ctx context.Context) (<-chan struct{}, error)

	Close() error
}

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 100 * time.Millisecond

// FileSource reads a YAML or JSON file. Watching covers the parent
// directory, so editors that save through a rename are seen too.
type FileSource struct {
	path     string
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// FileSourceOption configures a FileSource.
type FileSourceOption func(*FileSource)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) FileSourceOption {
	return func(s *FileSource) { s.debounce = d }
}

// NewFileSource creates a source for path.
func NewFileSource(path string, opts ...FileSourceOption) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	s := &FileSource{path: abs, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *FileSource) String() string { return s.path }

func (s *FileSource) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", s.path, err)
	}
	return data, nil
}

func (s *FileSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return nil, fmt.Errorf("source %s is closed", s.path)
	case s.watcher != nil:
		return nil, fmt.Errorf("already watching %s", s.path)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}
	s.watcher = w

	changes := make(chan struct{}, 1)
	go s.forward(ctx, w, changes)
	return changes, nil
}

// forward turns file events into debounced change signals. A pending signal
// is never duplicated.
func (s *FileSource) forward(ctx context.Context, w *fsnotify.Watcher, changes chan<- struct{}) {
	defer close(changes)

	name := filepath.Base(s.path)
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			s.stopWatcher(w)
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) == name && ev.Has(fsnotify.Write|fsnotify.Create) {
				fire = time.After(s.debounce)
			}
		case <-fire:
			fire = nil
			select {
			case changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Warn("Config watcher error", "path", s.path, "error", err)
		}
	}
}

func (s *FileSource) stopWatcher(w *fsnotify.Watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == w {
		w.Close()
		s.watcher = nil
	}
}

func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

var _ Source = (*FileSource)(nil)
