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

// Package graph runs the calculating chatbot as a fixed graph of nodes.
//
//	setup -> chatbot -> router -+-> approval -> (suspend)
//	            ^               +-> tools ----+
//	            |               +-> end       |
//	            +-----------------------------+
//
// Setup seeds a fresh run with the system instruction and the user query.
// The chatbot node invokes the model. The router sends a reply carrying tool
// calls to the approval gate (when a policy is configured and requires it)
// or straight to the tools node, and anything else to the end.
//
// The approval node suspends the run: the checkpoint is written with the
// pending interrupt and the stream yields an Interrupt. Running the same
// thread again with Resume set supplies the answer. A "no" appends a
// corrective user message and goes back to the model; anything else runs
// exactly the calls that were pending.
//
// Checkpoints are written only on suspend and on completion. A failed run, a
// cancelled context or a consumer that stops ranging leaves the stored state
// as it was.
package graph

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kadirpekel/graphchat/pkg/checkpoint"
	"github.com/kadirpekel/graphchat/pkg/config"
	"github.com/kadirpekel/graphchat/pkg/message"
	"github.com/kadirpekel/graphchat/pkg/model"
	"github.com/kadirpekel/graphchat/pkg/observability"
	"github.com/kadirpekel/graphchat/pkg/tool"
)

// errStopped ends a run whose consumer stopped ranging.
var errStopped = errors.New("stream consumer stopped")

// Config configures a Graph.
type Config struct {
	// Model is required.
	Model model.Invoker

	// Tools offered to the model. Nil means none.
	Tools *tool.Registry

	// Store holds checkpoints. Default: in-memory.
	Store checkpoint.Store

	// Approval gates tool execution. Nil disables the gate.
	Approval ApprovalPolicy

	// UnknownTools is "drop" (default), "report" or "fail".
	UnknownTools string

	// SystemInstruction seeds every fresh run.
	// Default: config.DefaultSystemInstruction
	SystemInstruction string

	// MaxSteps bounds model invocations per run.
	// Default: config.DefaultMaxSteps
	MaxSteps int

	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// policies can be swapped while runs are in flight. A run reads them once.
type policies struct {
	approval     ApprovalPolicy
	unknownTools string
}

// Graph is safe for concurrent runs on distinct threads. Concurrent runs on
// the same thread race on the checkpoint and the last writer wins.
type Graph struct {
	model       model.Invoker
	tools       *tool.Registry
	store       checkpoint.Store
	instruction string
	maxSteps    int
	metrics     *observability.Metrics
	tracer      *observability.Tracer

	policies atomic.Pointer[policies]
}

// Input starts or resumes a run.
type Input struct {
	// Query is the user message, or the approval answer when Resume is set.
	Query string

	// ThreadID names the conversation. Empty starts a new thread.
	ThreadID string

	// Resume answers the outstanding interrupt of ThreadID.
	Resume bool
}

// New creates a graph.
func New(cfg Config) (*Graph, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.Store == nil {
		cfg.Store = checkpoint.NewMemoryStore()
	}
	if cfg.Tools == nil {
		cfg.Tools = tool.MustRegistry()
	}
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = config.DefaultSystemInstruction
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = config.DefaultMaxSteps
	}

	g := &Graph{
		model:       cfg.Model,
		tools:       cfg.Tools,
		store:       cfg.Store,
		instruction: cfg.SystemInstruction,
		maxSteps:    cfg.MaxSteps,
		metrics:     cfg.Metrics,
		tracer:      cfg.Tracer,
	}
	if err := g.setPolicies(cfg.Approval, cfg.UnknownTools); err != nil {
		return nil, err
	}
	return g, nil
}

// SetApproval replaces the approval policy for runs started afterwards.
func (g *Graph) SetApproval(p ApprovalPolicy) {
	cur := g.policies.Load()
	g.policies.Store(&policies{approval: p, unknownTools: cur.unknownTools})
}

// Reconfigure applies the policy settings of cfg to runs started afterwards.
// Tools, model and instruction are fixed at construction.
func (g *Graph) Reconfigure(ctx context.Context, cfg config.GraphConfig) error {
	p, err := PolicyFromConfig(ctx, cfg.Approval)
	if err != nil {
		return err
	}
	return g.setPolicies(p, cfg.UnknownTools)
}

func (g *Graph) setPolicies(approval ApprovalPolicy, unknown string) error {
	switch unknown {
	case "":
		unknown = config.UnknownToolsDrop
	case config.UnknownToolsDrop, config.UnknownToolsReport, config.UnknownToolsFail:
	default:
		return fmt.Errorf("invalid unknown tools policy %q", unknown)
	}
	g.policies.Store(&policies{approval: approval, unknownTools: unknown})
	return nil
}

// Tools returns the registry offered to the model.
func (g *Graph) Tools() *tool.Registry { return g.tools }

// Checkpoint returns the stored state of threadID.
func (g *Graph) Checkpoint(ctx context.Context, threadID string) (*checkpoint.State, error) {
	return g.store.Get(ctx, threadID)
}

// Run executes until the run completes or suspends.
func (g *Graph) Run(ctx context.Context, in Input) (*FinalState, error) {
	return g.execute(ctx, in, func(StepEvent) bool { return true })
}

// Stream executes lazily, yielding one event per node output. The sequence
// ends after a Terminal or an Interrupt, or with an error. It may be ranged
// over once; breaking out of the loop stops the run without writing a
// checkpoint.
func (g *Graph) Stream(ctx context.Context, in Input) iter.Seq2[StepEvent, error] {
	var consumed atomic.Bool
	return func(yield func(StepEvent, error) bool) {
		if consumed.Swap(true) {
			yield(nil, ErrStreamConsumed)
			return
		}
		stopped := false
		_, err := g.execute(ctx, in, func(ev StepEvent) bool {
			if !yield(ev, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(nil, err)
		}
	}
}

func (g *Graph) execute(ctx context.Context, in Input, yield func(StepEvent) bool) (*FinalState, error) {
	if in.ThreadID == "" {
		if in.Resume {
			return nil, fmt.Errorf("%w: thread id is required", ErrResumeWithoutInterrupt)
		}
		in.ThreadID = uuid.NewString()
	}

	start := time.Now()
	ctx, span := g.tracer.StartRun(ctx, in.ThreadID, in.Resume)
	defer span.End()

	slog.Debug("graph run started", "thread_id", in.ThreadID, "resume", in.Resume)

	r := &run{g: g, in: in, yield: yield, policies: g.policies.Load()}
	final, err := r.drive(ctx)
	if errors.Is(err, errStopped) {
		slog.Debug("graph run stopped by consumer", "thread_id", in.ThreadID, "steps", r.steps)
		return nil, err
	}

	outcome := observability.OutcomeCompleted
	switch {
	case err != nil:
		outcome = observability.OutcomeFailed
		g.tracer.RecordError(span, err)
		slog.Warn("graph run failed", "thread_id", in.ThreadID, "steps", r.steps, "error", err)
	case final.Interrupted():
		outcome = observability.OutcomeInterrupted
	}
	span.SetAttributes(attribute.String(observability.AttrRunOutcome, outcome))
	g.metrics.RecordRun(ctx, outcome, time.Since(start))

	if err != nil {
		return nil, err
	}
	slog.Info("graph run finished", "thread_id", in.ThreadID, "outcome", outcome, "steps", r.steps, "took", time.Since(start))
	return final, nil
}

// run holds the state of one execution.
type run struct {
	g        *Graph
	in       Input
	yield    func(StepEvent) bool
	policies *policies
	steps    int
}

func (r *run) drive(ctx context.Context) (*FinalState, error) {
	state, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	next := NodeSetup
	var calls []message.ToolCall

	if r.in.Resume {
		if !state.HasPendingInterrupt() {
			return nil, fmt.Errorf("%w: thread %s", ErrResumeWithoutInterrupt, state.ThreadID)
		}
		pending := state.Pending
		state.Pending = nil
		if IsDenial(r.in.Query) {
			slog.Info("tool calls denied", "thread_id", state.ThreadID, "interrupt_id", pending.ID)
			state.Messages = append(state.Messages, message.User(CorrectiveInstruction))
			next = NodeModel
		} else {
			slog.Info("tool calls approved", "thread_id", state.ThreadID, "interrupt_id", pending.ID)
			calls = message.CloneToolCalls(pending.ToolCalls)
			next = NodeTools
		}
	} else if state.HasPendingInterrupt() {
		slog.Warn("discarding outstanding interrupt", "thread_id", state.ThreadID, "interrupt_id", state.Pending.ID)
		state.Pending = nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slog.Debug("entering node", "thread_id", state.ThreadID, "node", next)

		switch next {
		case NodeSetup:
			next, err = r.setup(state)
		case NodeModel:
			next, calls, err = r.chatbot(ctx, state)
		case NodeTools:
			next, err = r.runTools(ctx, state, calls)
		case NodeApproval:
			return r.suspend(ctx, state, calls)
		case NodeEnd:
			return r.finish(ctx, state)
		default:
			return nil, fmt.Errorf("unknown node %q", next)
		}
		if err != nil {
			return nil, err
		}
	}
}

func (r *run) load(ctx context.Context) (*checkpoint.State, error) {
	st, err := r.g.store.Get(ctx, r.in.ThreadID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return &checkpoint.State{ThreadID: r.in.ThreadID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return st.Clone(), nil
}

func (r *run) emit(ev StepEvent) error {
	if !r.yield(ev) {
		return errStopped
	}
	return nil
}

func (r *run) setup(state *checkpoint.State) (string, error) {
	seeded := []*message.Message{
		message.System(r.g.instruction),
		message.User(r.in.Query),
	}
	state.Query = r.in.Query
	state.Messages = append(state.Messages, seeded...)
	return NodeModel, r.emit(&SetupStep{Messages: message.CloneAll(seeded)})
}

func (r *run) chatbot(ctx context.Context, state *checkpoint.State) (string, []message.ToolCall, error) {
	if r.steps >= r.g.maxSteps {
		return "", nil, fmt.Errorf("%w: %d model steps", ErrStepLimit, r.g.maxSteps)
	}
	r.steps++

	reply, err := r.invoke(ctx, state.Messages)
	if err != nil {
		return "", nil, err
	}
	state.Messages = append(state.Messages, reply)
	if err := r.emit(&ModelStep{Step: r.steps, Message: reply.Clone()}); err != nil {
		return "", nil, err
	}

	next, err := r.route(ctx, state.ThreadID, reply)
	if err != nil {
		return "", nil, err
	}
	return next, message.CloneToolCalls(reply.ToolCalls), nil
}

func (r *run) invoke(ctx context.Context, history []*message.Message) (*message.Message, error) {
	name := r.g.model.Name()
	ctx, span := r.g.tracer.StartModelCall(ctx, name)
	defer span.End()

	start := time.Now()
	reply, err := r.g.model.Invoke(ctx, &model.Request{
		Messages: message.CloneAll(history),
		Tools:    r.g.tools.Definitions(),
	})
	if err == nil && reply == nil {
		err = errors.New("model returned no message")
	}
	r.g.metrics.RecordModelCall(ctx, name, time.Since(start), err)
	if err != nil {
		r.g.tracer.RecordError(span, err)
		return nil, &ModelInvocationError{Model: name, Err: err}
	}

	reply.Role = message.RoleAssistant
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}
	reply.ToolCalls = message.NormalizeToolCalls(reply.ToolCalls)
	return reply, nil
}

// route is the conditional edge out of the chatbot node.
func (r *run) route(ctx context.Context, threadID string, reply *message.Message) (string, error) {
	if !reply.HasToolCalls() {
		return NodeEnd, nil
	}
	if r.policies.unknownTools == config.UnknownToolsDrop && !r.anyRegistered(reply.ToolCalls) {
		slog.Debug("dropping calls to unregistered tools", "thread_id", threadID, "calls", len(reply.ToolCalls))
		return NodeEnd, nil
	}
	if p := r.policies.approval; p != nil {
		required, err := p.RequiresApproval(ctx, threadID, message.CloneToolCalls(reply.ToolCalls))
		if err != nil {
			return "", fmt.Errorf("approval policy failed: %w", err)
		}
		if required {
			return NodeApproval, nil
		}
	}
	return NodeTools, nil
}

func (r *run) anyRegistered(calls []message.ToolCall) bool {
	for _, c := range calls {
		if r.g.tools.Has(c.Name) {
			return true
		}
	}
	return false
}

func (r *run) runTools(ctx context.Context, state *checkpoint.State, calls []message.ToolCall) (string, error) {
	results := make([]*message.Message, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !r.g.tools.Has(call.Name) {
			switch r.policies.unknownTools {
			case config.UnknownToolsReport:
				results = append(results, message.ToolResult(call, fmt.Sprintf("tool %s is not available", call.Name), true))
			case config.UnknownToolsFail:
				return "", &UnknownToolError{Tool: call.Name}
			default:
				slog.Debug("skipping unregistered tool", "thread_id", state.ThreadID, "tool", call.Name)
			}
			continue
		}

		res, err := r.execTool(ctx, call)
		if err != nil {
			return "", err
		}
		results = append(results, message.ToolResult(call, res.Content, res.IsError))
	}

	state.Messages = append(state.Messages, results...)
	return NodeModel, r.emit(&ToolStep{Results: message.CloneAll(results)})
}

func (r *run) execTool(ctx context.Context, call message.ToolCall) (*tool.Result, error) {
	ctx, span := r.g.tracer.StartToolExecution(ctx, call.Name, call.ID)
	defer span.End()

	start := time.Now()
	res, err := r.g.tools.Invoke(ctx, call.Name, call.Args)
	r.g.metrics.RecordToolExecution(ctx, call.Name, time.Since(start), err)
	if err != nil {
		r.g.tracer.RecordError(span, err)
		return nil, &ToolExecutionError{Tool: call.Name, CallID: call.ID, Err: err}
	}
	slog.Debug("tool executed", "tool", call.Name, "call_id", call.ID, "is_error", res.IsError)
	return res, nil
}

func (r *run) suspend(ctx context.Context, state *checkpoint.State, calls []message.ToolCall) (*FinalState, error) {
	pending := &checkpoint.Interrupt{
		ID:        uuid.NewString(),
		Node:      NodeApproval,
		Prompt:    approvalPrompt(calls),
		ToolCalls: calls,
		RaisedAt:  time.Now().UTC(),
	}
	state.Pending = pending
	state.Status = checkpoint.StatusInterrupted
	if err := r.commit(ctx, state); err != nil {
		return nil, err
	}
	r.g.metrics.RecordInterrupt(ctx, NodeApproval)

	final := r.final(state)
	final.Interrupt = &Interrupt{
		ID:        pending.ID,
		Prompt:    pending.Prompt,
		ToolCalls: message.CloneToolCalls(pending.ToolCalls),
		RaisedAt:  pending.RaisedAt,
	}
	r.yield(final.Interrupt)
	return final, nil
}

func (r *run) finish(ctx context.Context, state *checkpoint.State) (*FinalState, error) {
	state.Pending = nil
	state.Status = checkpoint.StatusCompleted
	if err := r.commit(ctx, state); err != nil {
		return nil, err
	}
	final := r.final(state)
	r.yield(&Terminal{State: final})
	return final, nil
}

func (r *run) commit(ctx context.Context, state *checkpoint.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	state.Version++
	state.UpdatedAt = time.Now().UTC()
	if err := r.g.store.Put(ctx, state); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

func (r *run) final(state *checkpoint.State) *FinalState {
	return &FinalState{
		ThreadID: state.ThreadID,
		Messages: message.CloneAll(state.Messages),
		Steps:    r.steps,
	}
}
