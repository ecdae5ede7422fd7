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

package remote

import (
	"context"
	"fmt"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/graphchat/pkg/tool"
)

// ToolConfig names the tool the model sees.
type ToolConfig struct {
	Name        string
	Description string
}

// ToolConfigFromCard uses the remote agent's own name and description.
func ToolConfigFromCard(card *a2a.AgentCard) ToolConfig {
	return ToolConfig{Name: card.Name, Description: card.Description}
}

type remoteTool struct {
	bridge *Bridge
	cfg    ToolConfig
}

// NewTool exposes bridge as a tool taking the text to send, plus optional
// message and context ids.
func NewTool(bridge *Bridge, cfg ToolConfig) (tool.CallableTool, error) {
	if bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	if cfg.Description == "" {
		cfg.Description = "Sends a request to the remote agent " + cfg.Name + " and returns its answer."
	}
	return &remoteTool{bridge: bridge, cfg: cfg}, nil
}

func (t *remoteTool) Name() string        { return t.cfg.Name }
func (t *remoteTool) Description() string { return t.cfg.Description }

func (t *remoteTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "The request to send to the remote agent",
			},
			"message_id": map[string]any{
				"type":        "string",
				"description": "Optional message id",
			},
			"context_id": map[string]any{
				"type":        "string",
				"description": "Optional conversation id on the remote agent",
			},
		},
		"required": []any{"text"},
	}
}

// Call invokes the bridge. Remote failures become error results the model
// can read; only transport errors abort the run.
func (t *remoteTool) Call(ctx context.Context, args map[string]any) (*tool.Result, error) {
	text, _ := args["text"].(string)
	messageID, _ := args["message_id"].(string)
	contextID, _ := args["context_id"].(string)

	res, err := t.bridge.Invoke(ctx, text, messageID, contextID)
	if err != nil {
		return nil, err
	}
	if !res.IsError {
		return tool.Text(res.Content), nil
	}

	content := res.Content
	if content == "" {
		content = fmt.Sprintf("remote agent %s returned no result (state %q)", t.cfg.Name, res.State)
	}
	return &tool.Result{Content: content, IsError: true}, nil
}
