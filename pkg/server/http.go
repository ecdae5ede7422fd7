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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2agrpc"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/kadirpekel/graphchat/pkg/config"
	"github.com/kadirpekel/graphchat/pkg/observability"
)

// HTTPServer serves the agent card and the configured HTTP transports
// (JSON-RPC and HTTP+JSON), plus the gRPC transport when enabled.
type HTTPServer struct {
	cfg  *config.ServerConfig
	card *a2a.AgentCard

	// nil means in-memory task storage
	taskStore a2asrv.TaskStore

	observability *observability.Manager

	requestHandler a2asrv.RequestHandler
	grpcHandler    *a2agrpc.Handler
	handler        http.Handler

	server     *http.Server
	grpcServer *grpc.Server
}

type HTTPServerOption func(*HTTPServer)

func WithTaskStore(store a2asrv.TaskStore) HTTPServerOption {
	return func(s *HTTPServer) {
		s.taskStore = store
	}
}

func WithObservability(obs *observability.Manager) HTTPServerOption {
	return func(s *HTTPServer) {
		s.observability = obs
	}
}

// NewHTTPServer wires executor into a2a-go handlers and builds the router.
func NewHTTPServer(cfg *config.ServerConfig, executor *Executor, opts ...HTTPServerOption) *HTTPServer {
	if cfg.Port == 0 || cfg.Route == "" {
		cfg.SetDefaults()
	}

	s := &HTTPServer{
		cfg:  cfg,
		card: NewAgentCard(cfg),
	}
	for _, opt := range opts {
		opt(s)
	}

	var handlerOpts []a2asrv.RequestHandlerOption
	if s.taskStore != nil {
		handlerOpts = append(handlerOpts, a2asrv.WithTaskStore(s.taskStore))
	}
	s.requestHandler = a2asrv.NewHandler(executor, handlerOpts...)
	s.grpcHandler = a2agrpc.NewHandler(s.requestHandler)
	s.handler = s.routes()
	return s
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware)
	if s.observability != nil {
		r.Use(observability.HTTPMiddleware(s.observability.Tracer(), s.observability.Metrics()))
	}

	r.Get(a2asrv.WellKnownAgentCardPath, a2asrv.NewStaticAgentCardHandler(s.card).ServeHTTP)
	if s.cfg.HasTransport(config.TransportJSONRPC) {
		r.Post(s.cfg.Route, a2asrv.NewJSONRPCHandler(s.requestHandler).ServeHTTP)
	}
	if s.cfg.HasTransport(config.TransportHTTPJSON) {
		r.Handle("/v1/*", newRESTGateway(s.grpcHandler))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if s.observability != nil && s.observability.Metrics() != nil {
		endpoint := s.observability.Config().Metrics.Endpoint
		r.Get(endpoint, s.observability.Metrics().Handler().ServeHTTP)
		slog.Info("Metrics endpoint enabled", "path", endpoint)
	}

	return r
}

// Handler returns the routed HTTP handler.
func (s *HTTPServer) Handler() http.Handler { return s.handler }

// Card returns the advertised agent card.
func (s *HTTPServer) Card() *a2a.AgentCard { return s.card }

// Start serves until ctx is done or a listener fails.
func (s *HTTPServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Address(),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Bind gRPC first so a busy port fails before anything is serving.
	var grpcLis net.Listener
	if s.cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", s.cfg.GRPCAddress())
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.cfg.GRPCAddress(), err)
		}
		grpcLis = lis
		s.grpcServer = grpc.NewServer()
		s.grpcHandler.RegisterWith(s.grpcServer)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server starting", "address", s.cfg.Address(), "transports", s.cfg.Transports, "mode", s.cfg.Mode)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if grpcLis != nil {
		g.Go(func() error {
			slog.Info("gRPC server starting", "address", s.cfg.GRPCAddress())
			if err := s.grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("gRPC server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown stops both transports, forcing gRPC after a grace period.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error

	if s.server != nil {
		slog.Info("HTTP server shutting down")
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP shutdown error: %w", err))
		}
	}

	if s.grpcServer != nil {
		slog.Info("gRPC server shutting down")
		stopped := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			slog.Warn("gRPC graceful stop timeout, forcing shutdown")
			s.grpcServer.Stop()
		}
	}

	return errors.Join(errs...)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}
