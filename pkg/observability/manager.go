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

package observability

import (
	"context"
	"errors"
	"sync"
)

// Manager owns the tracer and metrics of a process.
type Manager struct {
	config  Config
	tracer  *Tracer
	metrics *Metrics
	mu      sync.RWMutex
}

func NewManager(cfg Config) *Manager {
	cfg.SetDefaults()
	return &Manager{
		config: cfg,
	}
}

func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.config.Validate(); err != nil {
		return err
	}

	tracer, err := NewTracer(ctx, m.config.Tracing)
	if err != nil {
		return err
	}
	m.tracer = tracer

	metrics, err := NewMetrics(m.config.Metrics)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return err
	}
	m.metrics = metrics

	return nil
}

// Config returns the defaulted configuration.
func (m *Manager) Config() Config {
	return m.config
}

// Tracer returns the tracer, nil when tracing is disabled.
func (m *Manager) Tracer() *Tracer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tracer
}

// Metrics returns the metrics, nil when metrics are disabled.
func (m *Manager) Metrics() *Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics
}

func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return errors.Join(m.tracer.Shutdown(ctx), m.metrics.Shutdown(ctx))
}
