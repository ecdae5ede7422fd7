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

// Package server exposes the chatbot graph over the A2A protocol.
//
// An Adapter maps graph runs onto the A2A task lifecycle in one of three
// modes:
//
//	immediate  one final Task per request
//	deferred   a working Task, then the final Task
//	streaming  a working status, one artifact update per model step, then
//	           exactly one final status
//
// A run that suspends on approval ends in input-required. The next message
// on the same context resumes the thread with that message as the answer.
//
// # Usage
//
//	adapter := server.NewAdapter(g)
//	executor := server.NewExecutor(adapter, cfg.Server.Mode)
//	srv := server.NewHTTPServer(&cfg.Server, executor, server.WithTaskStore(store))
//	err := srv.Start(ctx)
package server
