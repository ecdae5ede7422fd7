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

package server

import (
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
)

// Approval decisions carried by a tool_approval DataPart.
const (
	DecisionApprove = "approve"
	DecisionDeny    = "deny"
)

// Metadata keys of incoming messages and emitted tasks.
const (
	metaResume      = "resume"
	metaError       = "error"
	metaInterruptID = "interrupt_id"
	metaToolCalls   = "tool_calls"
	metaSteps       = "steps"
)

// messageText joins the text parts of msg with newlines.
func messageText(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}
	var texts []string
	for _, part := range msg.Parts {
		if tp, ok := part.(a2a.TextPart); ok && tp.Text != "" {
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// approvalDecision extracts a structured decision:
//
//	{"type": "tool_approval", "decision": "approve" | "deny"}
func approvalDecision(msg *a2a.Message) (string, bool) {
	if msg == nil {
		return "", false
	}
	for _, part := range msg.Parts {
		dp, ok := part.(a2a.DataPart)
		if !ok {
			continue
		}
		if kind, _ := dp.Data["type"].(string); kind != "tool_approval" {
			continue
		}
		switch decision, _ := dp.Data["decision"].(string); decision {
		case DecisionApprove, DecisionDeny:
			return decision, true
		}
	}
	return "", false
}

// toRequest derives the adapter request from an A2A request context. The
// A2A context id is the thread id.
func toRequest(reqCtx *a2asrv.RequestContext) Request {
	req := Request{
		TaskID:    reqCtx.TaskID,
		ContextID: reqCtx.ContextID,
		Query:     messageText(reqCtx.Message),
	}

	if reqCtx.StoredTask != nil && reqCtx.StoredTask.Status.State == a2a.TaskStateInputRequired {
		req.Resume = true
	}
	if reqCtx.Message != nil {
		if resume, ok := reqCtx.Message.Metadata[metaResume].(bool); ok && resume {
			req.Resume = true
		}
	}
	if decision, ok := approvalDecision(reqCtx.Message); ok {
		req.Resume = true
		if req.Query == "" {
			req.Query = "yes"
			if decision == DecisionDeny {
				req.Query = "no"
			}
		}
	}
	return req
}
