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
	"errors"
	"fmt"
)

var (
	// ErrResumeWithoutInterrupt is returned when a resume targets a thread
	// that has no outstanding interrupt. The checkpoint is left untouched.
	ErrResumeWithoutInterrupt = errors.New("resume without outstanding interrupt")

	// ErrStepLimit is returned when a run exceeds the configured number of
	// model invocations.
	ErrStepLimit = errors.New("step limit reached")

	// ErrStreamConsumed is yielded when a stream is ranged over a second time.
	ErrStreamConsumed = errors.New("stream already consumed")
)

// ModelInvocationError wraps a failure of the model collaborator.
type ModelInvocationError struct {
	Model string
	Err   error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model %s invocation failed: %v", e.Model, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

// ToolExecutionError wraps a failure raised by a registered tool.
type ToolExecutionError struct {
	Tool   string
	CallID string
	Err    error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s (call %s) failed: %v", e.Tool, e.CallID, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// UnknownToolError is returned under the fail policy when the model calls a
// tool that is not registered.
type UnknownToolError struct {
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q is not registered", e.Tool)
}
