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
	"sort"
)

// Registry is an immutable index from tool name to tool.
// It is safe for concurrent use once built.
type Registry struct {
	tools      map[string]CallableTool
	validators map[string]*argValidator
	order      []string
}

// NewRegistry indexes the given tools. Duplicate names are rejected.
func NewRegistry(tools ...CallableTool) (*Registry, error) {
	r := &Registry{
		tools:      make(map[string]CallableTool, len(tools)),
		validators: make(map[string]*argValidator, len(tools)),
	}
	for _, t := range tools {
		if t == nil {
			continue
		}
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("tool name is required")
		}
		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("duplicate tool %q", name)
		}
		v, err := newArgValidator(t.Schema())
		if err != nil {
			return nil, fmt.Errorf("invalid schema for tool %q: %w", name, err)
		}
		r.tools[name] = t
		r.validators[name] = v
		r.order = append(r.order, name)
	}
	return r, nil
}

// MustRegistry is NewRegistry for statically known tool sets.
func MustRegistry(tools ...CallableTool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (CallableTool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool named name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// Definitions describes every tool in registration order.
func (r *Registry) Definitions() []Definition {
	if r == nil {
		return nil
	}
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return defs
}

// Invoke validates args against the tool's schema and calls it.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (*Result, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("tool %q is not registered", name)
	}
	if err := r.validators[name].validate(args); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", name, err)
	}
	res, err := t.Call(ctx, args)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &Result{}
	}
	return res, nil
}
