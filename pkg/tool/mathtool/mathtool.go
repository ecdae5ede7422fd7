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

// Package mathtool provides the integer arithmetic tools served by the
// calculating chatbot.
package mathtool

import (
	"context"

	"github.com/kadirpekel/graphchat/pkg/tool"
	"github.com/kadirpekel/graphchat/pkg/tool/functiontool"
)

const (
	MultiplyName = "multiply_function"
	AddName      = "add_function"
)

// Operands are the arguments shared by both tools.
type Operands struct {
	X int `json:"x" jsonschema:"required,description=The first integer argument"`
	Y int `json:"y" jsonschema:"required,description=The second integer argument"`
}

// Multiply returns a tool computing x * y.
func Multiply() tool.CallableTool {
	return functiontool.Must(functiontool.Config{
		Name:        MultiplyName,
		Description: "Takes two int values and returns their product as an int.",
	}, func(_ context.Context, args Operands) (int, error) {
		return args.X * args.Y, nil
	})
}

// Add returns a tool computing x + y.
func Add() tool.CallableTool {
	return functiontool.Must(functiontool.Config{
		Name:        AddName,
		Description: "Takes two int values and returns their sum as an int.",
	}, func(_ context.Context, args Operands) (int, error) {
		return args.X + args.Y, nil
	})
}

// Tools returns both arithmetic tools.
func Tools() []tool.CallableTool {
	return []tool.CallableTool{Multiply(), Add()}
}
