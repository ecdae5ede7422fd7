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
	"time"

	"github.com/kadirpekel/graphchat/pkg/message"
)

// Node names.
const (
	NodeSetup    = "setup"
	NodeModel    = "chatbot"
	NodeApproval = "approval"
	NodeTools    = "tools"
	NodeEnd      = "end"
)

// StepEvent is one element of a run's trace. The set of implementations is
// closed: SetupStep, ModelStep, ToolStep, Interrupt and Terminal.
//
//	for ev, err := range g.Stream(ctx, in) {
//	    switch e := ev.(type) {
//	    case *graph.ModelStep:
//	    case *graph.Interrupt:
//	    ...
//	    }
//	}
type StepEvent interface {
	// Node returns the node that produced the event.
	Node() string

	stepEvent()
}

// SetupStep carries the messages seeded by a fresh run.
type SetupStep struct {
	Messages []*message.Message
}

// ModelStep carries one assistant message.
type ModelStep struct {
	// Step counts model invocations within the run, starting at 1.
	Step    int
	Message *message.Message
}

// Text returns the assistant text of the step.
func (s *ModelStep) Text() string {
	if s.Message == nil {
		return ""
	}
	return s.Message.Content
}

// ToolStep carries the results of one pass through the tools node.
type ToolStep struct {
	Results []*message.Message
}

// Interrupt suspends the run until the thread is resumed with an answer.
type Interrupt struct {
	ID        string
	Prompt    string
	ToolCalls []message.ToolCall
	RaisedAt  time.Time
}

// Terminal is the last event of a completed run.
type Terminal struct {
	State *FinalState
}

func (*SetupStep) Node() string { return NodeSetup }
func (*ModelStep) Node() string { return NodeModel }
func (*ToolStep) Node() string  { return NodeTools }
func (*Interrupt) Node() string { return NodeApproval }
func (*Terminal) Node() string  { return NodeEnd }

func (*SetupStep) stepEvent() {}
func (*ModelStep) stepEvent() {}
func (*ToolStep) stepEvent()  {}
func (*Interrupt) stepEvent() {}
func (*Terminal) stepEvent()  {}

// FinalState is the result of a run, either completed or suspended.
type FinalState struct {
	ThreadID string

	// Messages is the full thread history.
	Messages []*message.Message

	// Interrupt is set when the run suspended on approval.
	Interrupt *Interrupt

	// Steps is the number of model invocations in this run.
	Steps int
}

// Interrupted reports whether the run suspended.
func (s *FinalState) Interrupted() bool {
	return s != nil && s.Interrupt != nil
}

// Content returns the text of the last assistant message.
func (s *FinalState) Content() string {
	if s == nil {
		return ""
	}
	if last := message.LastAssistant(s.Messages); last != nil {
		return last.Content
	}
	return ""
}
