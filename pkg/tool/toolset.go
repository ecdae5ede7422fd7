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

package tool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Collect resolves every toolset concurrently and returns the local tools
// followed by each toolset's tools in argument order.
func Collect(ctx context.Context, local []CallableTool, sets ...Toolset) ([]CallableTool, error) {
	results := make([][]CallableTool, len(sets))

	g, gctx := errgroup.WithContext(ctx)
	for i, set := range sets {
		g.Go(func() error {
			tools, err := set.Tools(gctx)
			if err != nil {
				return fmt.Errorf("toolset %s: %w", set.Name(), err)
			}
			results[i] = tools
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := append([]CallableTool(nil), local...)
	for _, tools := range results {
		all = append(all, tools...)
	}
	return all, nil
}
