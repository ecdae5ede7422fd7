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

// Span names.
const (
	SpanGraphRun      = "graph.run"
	SpanModelCall     = "graph.model_call"
	SpanToolExecution = "graph.tool_execution"
	SpanRemoteInvoke  = "remote.invoke"
	SpanHTTPRequest   = "http.request"
)

// Attribute keys.
const (
	AttrThreadID   = "graphchat.thread_id"
	AttrResume     = "graphchat.resume"
	AttrRunOutcome = "graphchat.run.outcome"
	AttrNode       = "graphchat.node"
	AttrModelName  = "gen_ai.request.model"
	AttrToolName   = "gen_ai.tool.name"
	AttrToolCallID = "gen_ai.tool.call.id"
	AttrTaskState  = "a2a.task.state"

	AttrHTTPMethod       = "http.method"
	AttrHTTPPath         = "http.route"
	AttrHTTPStatusCode   = "http.status_code"
	AttrHTTPResponseSize = "http.response_content_length"

	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Run outcomes used as the graphchat.run.outcome attribute.
const (
	OutcomeCompleted   = "completed"
	OutcomeInterrupted = "interrupted"
	OutcomeFailed      = "failed"
)

// Exporters.
const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
)

const (
	DefaultServiceName  = "graphchat"
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultSamplingRate = 1.0
	DefaultMetricsPath  = "/metrics"
)
