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

// Package model defines the language model capability used by the graph.
//
// An Invoker takes the ordered message history and returns one assistant
// message, which may carry tool calls. Implementations must be safe for
// concurrent use: independent runs share one Invoker.
package model

import (
	"context"

	"github.com/kadirpekel/graphchat/pkg/message"
	"github.com/kadirpekel/graphchat/pkg/tool"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Invoker is the interface for language models.
type Invoker interface {
	// Name returns the model identifier.
	Name() string

	// Invoke returns the next assistant message for the history in req.
	Invoke(ctx context.Context, req *Request) (*message.Message, error)
}

// Request contains the input for a model call.
type Request struct {
	// Messages is the conversation history, system messages included.
	Messages []*message.Message

	// Tools the model may call.
	Tools []tool.Definition
}

// SystemPrompt joins the content of all system messages in order.
func (r *Request) SystemPrompt() string {
	var out string
	for _, m := range r.Messages {
		if m.Role != message.RoleSystem || m.Content == "" {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += m.Content
	}
	return out
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, req *Request) (*message.Message, error)

// Name returns "func".
func (f InvokerFunc) Name() string { return "func" }

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, req *Request) (*message.Message, error) {
	return f(ctx, req)
}
