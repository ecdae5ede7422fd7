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

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/a2aproject/a2a-go/a2apb"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// restGateway serves the A2A service as HTTP+JSON under /v1. Requests are
// decoded by the grpc-gateway runtime and dispatched in-process to the
// gRPC service, so both transports share one request handler.
type restGateway struct {
	mux     *runtime.ServeMux
	service a2apb.A2AServiceServer
}

func newRESTGateway(service a2apb.A2AServiceServer) *restGateway {
	g := &restGateway{
		service: service,
		mux: runtime.NewServeMux(
			runtime.WithMarshalerOption(runtime.MIMEWildcard, &runtime.JSONPb{
				MarshalOptions:   protojson.MarshalOptions{EmitUnpopulated: true},
				UnmarshalOptions: protojson.UnmarshalOptions{DiscardUnknown: true},
			}),
		),
	}

	// Later registrations are matched first, so verb routes follow the
	// plain task route.
	g.mustHandle(http.MethodPost, "/v1/message:send", g.sendMessage)
	g.mustHandle(http.MethodPost, "/v1/message:stream", g.streamMessage)
	g.mustHandle(http.MethodGet, "/v1/{name=tasks/*}", g.getTask)
	g.mustHandle(http.MethodPost, "/v1/{name=tasks/*}:cancel", g.cancelTask)
	g.mustHandle(http.MethodGet, "/v1/{name=tasks/*}:subscribe", g.subscribe)
	return g
}

func (g *restGateway) mustHandle(method, pattern string, h runtime.HandlerFunc) {
	if err := g.mux.HandlePath(method, pattern, h); err != nil {
		panic(fmt.Sprintf("gateway route %s %s: %v", method, pattern, err))
	}
}

func (g *restGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

func (g *restGateway) sendMessage(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	req := &a2apb.SendMessageRequest{}
	g.unary(w, r, a2apb.A2AService_SendMessage_FullMethodName, req, func(ctx context.Context) (proto.Message, error) {
		return g.service.SendMessage(ctx, req)
	})
}

func (g *restGateway) getTask(w http.ResponseWriter, r *http.Request, params map[string]string) {
	req := &a2apb.GetTaskRequest{Name: params["name"]}
	g.unary(w, r, a2apb.A2AService_GetTask_FullMethodName, nil, func(ctx context.Context) (proto.Message, error) {
		return g.service.GetTask(ctx, req)
	})
}

func (g *restGateway) cancelTask(w http.ResponseWriter, r *http.Request, params map[string]string) {
	req := &a2apb.CancelTaskRequest{Name: params["name"]}
	g.unary(w, r, a2apb.A2AService_CancelTask_FullMethodName, nil, func(ctx context.Context) (proto.Message, error) {
		return g.service.CancelTask(ctx, req)
	})
}

func (g *restGateway) streamMessage(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	req := &a2apb.SendMessageRequest{}
	g.stream(w, r, a2apb.A2AService_SendStreamingMessage_FullMethodName, req, func(s *sseStream) error {
		return g.service.SendStreamingMessage(req, s)
	})
}

func (g *restGateway) subscribe(w http.ResponseWriter, r *http.Request, params map[string]string) {
	req := &a2apb.TaskSubscriptionRequest{Name: params["name"]}
	g.stream(w, r, a2apb.A2AService_TaskSubscription_FullMethodName, nil, func(s *sseStream) error {
		return g.service.TaskSubscription(req, s)
	})
}

// prepare decodes the body into req (when given) and annotates the context
// with the request headers as incoming gRPC metadata.
func (g *restGateway) prepare(r *http.Request, method string, req proto.Message) (context.Context, runtime.Marshaler, error) {
	inbound, outbound := runtime.MarshalerForRequest(g.mux, r)
	if req != nil {
		if err := inbound.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
			return r.Context(), outbound, status.Errorf(codes.InvalidArgument, "%v", err)
		}
	}
	ctx, err := runtime.AnnotateIncomingContext(r.Context(), g.mux, r, method)
	if err != nil {
		return r.Context(), outbound, err
	}
	return ctx, outbound, nil
}

func (g *restGateway) unary(w http.ResponseWriter, r *http.Request, method string, req proto.Message, call func(context.Context) (proto.Message, error)) {
	ctx, marshaler, err := g.prepare(r, method, req)
	if err != nil {
		runtime.HTTPError(ctx, g.mux, marshaler, w, r, err)
		return
	}

	var ts runtime.ServerTransportStream
	ctx = grpc.NewContextWithServerTransportStream(ctx, &ts)
	resp, err := call(ctx)
	ctx = runtime.NewServerMetadataContext(ctx, runtime.ServerMetadata{
		HeaderMD:  ts.Header(),
		TrailerMD: ts.Trailer(),
	})
	if err != nil {
		runtime.HTTPError(ctx, g.mux, marshaler, w, r, err)
		return
	}
	runtime.ForwardResponseMessage(ctx, g.mux, marshaler, w, r, resp)
}

func (g *restGateway) stream(w http.ResponseWriter, r *http.Request, method string, req proto.Message, call func(*sseStream) error) {
	ctx, marshaler, err := g.prepare(r, method, req)
	if err != nil {
		runtime.HTTPError(ctx, g.mux, marshaler, w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		runtime.HTTPError(ctx, g.mux, marshaler, w, r, status.Error(codes.Unimplemented, "streaming not supported"))
		return
	}

	s := &sseStream{ctx: ctx, w: w, flusher: flusher, marshaler: marshaler}
	if err := call(s); err != nil {
		if !s.started {
			runtime.HTTPError(ctx, g.mux, marshaler, w, r, err)
			return
		}
		s.sendError(err)
	}
}

// sseStream adapts an HTTP response to a server stream, writing each
// response as a server-sent event.
type sseStream struct {
	ctx       context.Context
	w         http.ResponseWriter
	flusher   http.Flusher
	marshaler runtime.Marshaler
	started   bool
}

func (s *sseStream) Send(resp *a2apb.StreamResponse) error {
	data, err := s.marshaler.Marshal(resp)
	if err != nil {
		return err
	}
	s.start()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseStream) start() {
	if s.started {
		return
	}
	s.started = true
	s.w.Header().Set("Content-Type", "text/event-stream")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
	s.w.WriteHeader(http.StatusOK)
}

func (s *sseStream) sendError(err error) {
	data, merr := s.marshaler.Marshal(status.Convert(err).Proto())
	if merr != nil {
		slog.Error("Failed to encode stream error", "error", merr)
		return
	}
	_, _ = fmt.Fprintf(s.w, "event: error\ndata: %s\n\n", data)
	s.flusher.Flush()
}

func (s *sseStream) Context() context.Context     { return s.ctx }
func (s *sseStream) SetHeader(metadata.MD) error  { return nil }
func (s *sseStream) SendHeader(metadata.MD) error { return nil }
func (s *sseStream) SetTrailer(metadata.MD)       {}
func (s *sseStream) SendMsg(any) error            { return nil }
func (s *sseStream) RecvMsg(any) error            { return nil }
