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

// Package functiontool creates tools from typed Go functions.
//
// The parameter schema is generated from the Args struct tags, so the model
// sees the same contract the function is compiled against.
//
//	type AddArgs struct {
//	    X int `json:"x" jsonschema:"required,description=First operand"`
//	    Y int `json:"y" jsonschema:"required,description=Second operand"`
//	}
//
//	add, err := functiontool.New(
//	    functiontool.Config{Name: "add_function", Description: "Adds two integers"},
//	    func(ctx context.Context, args AddArgs) (int, error) {
//	        return args.X + args.Y, nil
//	    },
//	)
//
// Results are rendered as text: strings verbatim, numbers and booleans with
// fmt, anything else as JSON.
package functiontool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/kadirpekel/graphchat/pkg/tool"
)

// Config defines the configuration for a function tool.
type Config struct {
	// Name is the unique identifier for this tool (required).
	Name string

	// Description explains what the tool does (required).
	Description string
}

// New creates a CallableTool from a typed function.
func New[Args, Out any](cfg Config, fn func(context.Context, Args) (Out, error)) (tool.CallableTool, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	if cfg.Description == "" {
		return nil, fmt.Errorf("tool description is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("tool %s: function is required", cfg.Name)
	}

	schema, err := generateSchema[Args]()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for %s: %w", cfg.Name, err)
	}

	return &functionTool[Args, Out]{
		config: cfg,
		fn:     fn,
		schema: schema,
	}, nil
}

// Must is New for tools defined at package level.
func Must[Args, Out any](cfg Config, fn func(context.Context, Args) (Out, error)) tool.CallableTool {
	t, err := New(cfg, fn)
	if err != nil {
		panic(err)
	}
	return t
}

type functionTool[Args, Out any] struct {
	config Config
	fn     func(context.Context, Args) (Out, error)
	schema map[string]any
}

func (t *functionTool[Args, Out]) Name() string           { return t.config.Name }
func (t *functionTool[Args, Out]) Description() string    { return t.config.Description }
func (t *functionTool[Args, Out]) Schema() map[string]any { return t.schema }

// Call decodes args into the typed struct and runs the function.
func (t *functionTool[Args, Out]) Call(ctx context.Context, args map[string]any) (*tool.Result, error) {
	var typed Args
	if err := mapToStruct(args, &typed); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", t.config.Name, err)
	}

	out, err := t.fn(ctx, typed)
	if err != nil {
		return nil, err
	}

	text, err := render(out)
	if err != nil {
		return nil, fmt.Errorf("failed to render result of %s: %w", t.config.Name, err)
	}
	return tool.Text(text), nil
}

func render(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case *tool.Result:
		if val == nil {
			return "", nil
		}
		return val.Content, nil
	case fmt.Stringer:
		return val.String(), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, bool:
		return fmt.Sprint(val), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// mapToStruct converts call arguments into the typed struct through JSON,
// which also turns the float64 numbers models produce into ints.
func mapToStruct(m map[string]any, target any) error {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal args: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal args: %w", err)
	}
	return nil
}

// generateSchema reflects T into a flat object schema without $ref or $schema.
func generateSchema[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	data, err := json.Marshal(reflector.Reflect(new(T)))
	if err != nil {
		return nil, err
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, err
	}

	if schema["type"] != "object" {
		delete(schema, "$schema")
		delete(schema, "$id")
		return schema, nil
	}

	result := map[string]any{
		"type":       "object",
		"properties": schema["properties"],
	}
	if required, ok := schema["required"]; ok && required != nil {
		result["required"] = required
	}
	if addProps, ok := schema["additionalProperties"]; ok {
		result["additionalProperties"] = addProps
	}
	return result, nil
}
