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
	"fmt"
	"net/http"
	"strconv"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics records graph, tool, remote and HTTP measurements through an
// OpenTelemetry meter exported to a dedicated Prometheus registry.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	registry *promclient.Registry

	runDuration   metric.Float64Histogram
	runs          metric.Int64Counter
	modelDuration metric.Float64Histogram
	modelCalls    metric.Int64Counter
	modelErrors   metric.Int64Counter
	toolDuration  metric.Float64Histogram
	toolCalls     metric.Int64Counter
	toolErrors    metric.Int64Counter
	interrupts    metric.Int64Counter
	remotePolls   metric.Int64Counter
	httpDuration  metric.Float64Histogram
	httpRequests  metric.Int64Counter
}

// NewMetrics builds the instrument set. It returns nil when metrics are
// disabled.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	cfg.SetDefaults()

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
		prometheus.WithNamespace(cfg.Namespace),
		prometheus.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(DefaultServiceName)

	m := &Metrics{provider: provider, registry: registry}
	b := instrumentBuilder{meter: meter}

	m.runDuration = b.histogram("graph_run_duration_seconds", "Graph run duration in seconds")
	m.runs = b.counter("graph_runs_total", "Total graph runs by outcome")
	m.modelDuration = b.histogram("model_call_duration_seconds", "Model invocation duration in seconds")
	m.modelCalls = b.counter("model_calls_total", "Total model invocations")
	m.modelErrors = b.counter("model_errors_total", "Total failed model invocations")
	m.toolDuration = b.histogram("tool_execution_duration_seconds", "Tool execution duration in seconds")
	m.toolCalls = b.counter("tool_calls_total", "Total tool calls")
	m.toolErrors = b.counter("tool_errors_total", "Total failed tool calls")
	m.interrupts = b.counter("graph_interrupts_total", "Total approval interrupts raised")
	m.remotePolls = b.counter("remote_task_polls_total", "Total remote task polls by observed state")
	m.httpDuration = b.histogram("http_request_duration_seconds", "HTTP request duration in seconds")
	m.httpRequests = b.counter("http_requests_total", "Total HTTP requests")

	if b.err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, b.err
	}
	return m, nil
}

// instrumentBuilder keeps the first instrument creation error.
type instrumentBuilder struct {
	meter metric.Meter
	err   error
}

func (b *instrumentBuilder) histogram(name, desc string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to create %s: %w", name, err)
	}
	return h
}

func (b *instrumentBuilder) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to create %s: %w", name, err)
	}
	return c
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRun records one graph run ending in outcome.
func (m *Metrics) RecordRun(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.runDuration.Record(ctx, duration.Seconds(), attrs)
	m.runs.Add(ctx, 1, attrs)
}

// RecordModelCall records one model invocation.
func (m *Metrics) RecordModelCall(ctx context.Context, model string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.modelDuration.Record(ctx, duration.Seconds(), attrs)
	m.modelCalls.Add(ctx, 1, attrs)
	if err != nil {
		m.modelErrors.Add(ctx, 1, attrs)
	}
}

// RecordToolExecution records one tool call.
func (m *Metrics) RecordToolExecution(ctx context.Context, toolName string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tool", toolName))
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
	m.toolCalls.Add(ctx, 1, attrs)
	if err != nil {
		m.toolErrors.Add(ctx, 1, attrs)
	}
}

// RecordInterrupt records an approval interrupt raised by node.
func (m *Metrics) RecordInterrupt(ctx context.Context, node string) {
	if m == nil {
		return
	}
	m.interrupts.Add(ctx, 1, metric.WithAttributes(attribute.String("node", node)))
}

// RecordRemotePoll records one GetTask poll that observed state.
func (m *Metrics) RecordRemotePoll(ctx context.Context, state string) {
	if m == nil {
		return
	}
	m.remotePolls.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
	m.httpRequests.Add(ctx, 1, attrs)
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
