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
	"fmt"
	"strings"
	"unicode"

	"github.com/open-policy-agent/opa/rego"

	"github.com/kadirpekel/graphchat/pkg/config"
	"github.com/kadirpekel/graphchat/pkg/message"
)

// RegoQuery is the rule a rego approval module must define.
const RegoQuery = "data.graphchat.approval.require"

// CorrectiveInstruction is appended as a user message when approval is denied.
const CorrectiveInstruction = "Do not use external tools. Answer the previous request without them."

// ApprovalPolicy decides whether the tool calls of one model step must be
// approved before they run.
type ApprovalPolicy interface {
	RequiresApproval(ctx context.Context, threadID string, calls []message.ToolCall) (bool, error)
}

// PolicyFunc adapts a function to ApprovalPolicy.
type PolicyFunc func(ctx context.Context, threadID string, calls []message.ToolCall) (bool, error)

func (f PolicyFunc) RequiresApproval(ctx context.Context, threadID string, calls []message.ToolCall) (bool, error) {
	return f(ctx, threadID, calls)
}

// Always requires approval for every tool step.
var Always ApprovalPolicy = PolicyFunc(func(context.Context, string, []message.ToolCall) (bool, error) {
	return true, nil
})

// Never lets every tool step through.
var Never ApprovalPolicy = PolicyFunc(func(context.Context, string, []message.ToolCall) (bool, error) {
	return false, nil
})

// RegoPolicy evaluates a rego module against the pending calls.
//
// Input document:
//
//	{"thread_id": "...", "tool_calls": [{"id": "...", "name": "...", "args": {...}}]}
//
// Approval is required when data.graphchat.approval.require is true. An
// undefined rule means no approval.
type RegoPolicy struct {
	query rego.PreparedEvalQuery
}

// NewRegoPolicy compiles module.
func NewRegoPolicy(ctx context.Context, module string) (*RegoPolicy, error) {
	r := rego.New(
		rego.Query(RegoQuery),
		rego.Module("approval.rego", module),
	)
	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}
	return &RegoPolicy{query: query}, nil
}

// RequiresApproval evaluates the policy.
func (p *RegoPolicy) RequiresApproval(ctx context.Context, threadID string, calls []message.ToolCall) (bool, error) {
	input := map[string]any{
		"thread_id":  threadID,
		"tool_calls": regoCalls(calls),
	}
	results, err := p.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}
	switch v := results[0].Expressions[0].Value.(type) {
	case bool:
		return v, nil
	default:
		return false, fmt.Errorf("%s must be a boolean, got %T", RegoQuery, v)
	}
}

func regoCalls(calls []message.ToolCall) []any {
	out := make([]any, 0, len(calls))
	for _, c := range calls {
		args := map[string]any{}
		for k, v := range c.Args {
			args[k] = v
		}
		out = append(out, map[string]any{"id": c.ID, "name": c.Name, "args": args})
	}
	return out
}

// PolicyFromConfig builds the approval policy. A disabled gate yields nil.
func PolicyFromConfig(ctx context.Context, cfg config.ApprovalConfig) (ApprovalPolicy, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Policy {
	case config.ApprovalAlways, "":
		return Always, nil
	case config.ApprovalNever:
		return Never, nil
	case config.ApprovalRego:
		module, err := cfg.RegoModule()
		if err != nil {
			return nil, err
		}
		return NewRegoPolicy(ctx, module)
	default:
		return nil, fmt.Errorf("unknown approval policy %q", cfg.Policy)
	}
}

// IsDenial reports whether an approval answer declines the tool calls: its
// first word, ignoring punctuation and case, is "no".
func IsDenial(answer string) bool {
	words := strings.FieldsFunc(answer, func(r rune) bool { return !unicode.IsLetter(r) })
	return len(words) > 0 && strings.EqualFold(words[0], "no")
}

func approvalPrompt(calls []message.ToolCall) string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Name)
	}
	return fmt.Sprintf("The assistant wants to run %s. Approve? (yes/no)", strings.Join(names, ", "))
}
