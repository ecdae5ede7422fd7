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

package functiontool

import (
	"context"
	"errors"
	"testing"
)

type weatherArgs struct {
	City  string `json:"city" jsonschema:"required,description=City name"`
	Units string `json:"units,omitempty" jsonschema:"description=Temperature units,enum=celsius,enum=fahrenheit"`
}

type forecast struct {
	City string  `json:"city"`
	Temp float64 `json:"temp"`
}

func TestNew_Validation(t *testing.T) {
	fn := func(ctx context.Context, args weatherArgs) (string, error) { return "", nil }

	if _, err := New(Config{Description: "d"}, fn); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := New(Config{Name: "n"}, fn); err == nil {
		t.Error("expected error for missing description")
	}
	if _, err := New[weatherArgs, string](Config{Name: "n", Description: "d"}, nil); err == nil {
		t.Error("expected error for nil function")
	}
}

func TestNew_Schema(t *testing.T) {
	tl, err := New(Config{Name: "get_weather", Description: "Get weather"},
		func(ctx context.Context, args weatherArgs) (string, error) { return "", nil })
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	schema := tl.Schema()
	if schema["type"] != "object" {
		t.Errorf("schema type = %v, want object", schema["type"])
	}
	if _, ok := schema["$schema"]; ok {
		t.Error("schema should not carry $schema")
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing: %v", schema)
	}
	if _, ok := props["city"]; !ok {
		t.Error("expected city property")
	}
	if _, ok := props["units"]; !ok {
		t.Error("expected units property")
	}

	required, _ := schema["required"].([]any)
	if len(required) != 1 || required[0] != "city" {
		t.Errorf("required = %v, want [city]", required)
	}
}

func TestCall_DecodesArgsAndRendersOutput(t *testing.T) {
	var got weatherArgs
	tl := Must(Config{Name: "get_weather", Description: "Get weather"},
		func(ctx context.Context, args weatherArgs) (forecast, error) {
			got = args
			return forecast{City: args.City, Temp: 21.5}, nil
		})

	res, err := tl.Call(context.Background(), map[string]any{"city": "Tokyo", "units": "celsius"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got.City != "Tokyo" || got.Units != "celsius" {
		t.Errorf("decoded args = %+v", got)
	}
	if res.Content != `{"city":"Tokyo","temp":21.5}` {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestCall_IntegerFromFloat(t *testing.T) {
	type args struct {
		N int `json:"n"`
	}
	tl := Must(Config{Name: "double", Description: "Doubles n"},
		func(ctx context.Context, a args) (int, error) { return a.N * 2, nil })

	res, err := tl.Call(context.Background(), map[string]any{"n": float64(21)})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if res.Content != "42" {
		t.Errorf("Content = %q, want 42", res.Content)
	}
}

func TestCall_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	tl := Must(Config{Name: "fail", Description: "Always fails"},
		func(ctx context.Context, a weatherArgs) (string, error) { return "", boom })

	_, err := tl.Call(context.Background(), map[string]any{"city": "x"})
	if !errors.Is(err, boom) {
		t.Errorf("Call() error = %v, want %v", err, boom)
	}
}

func TestCall_BadArgumentType(t *testing.T) {
	tl := Must(Config{Name: "get_weather", Description: "Get weather"},
		func(ctx context.Context, a weatherArgs) (string, error) { return a.City, nil })

	if _, err := tl.Call(context.Background(), map[string]any{"city": 12}); err == nil {
		t.Error("expected decode error for numeric city")
	}
}
