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
	"fmt"

	"github.com/a2aproject/a2a-go/a2a"
)

// RemoteTaskTimeoutError is returned under the "fail" timeout policy when a
// remote task is still running after the last poll.
type RemoteTaskTimeoutError struct {
	TaskID a2a.TaskID
	Polls  int
	State  a2a.TaskState
}

func (e *RemoteTaskTimeoutError) Error() string {
	return fmt.Sprintf("remote task %s still %s after %d polls", e.TaskID, e.State, e.Polls)
}
