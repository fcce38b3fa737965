// Package server exposes the admin surface: gRPC health and reflection, and
// an HTTP mux for health, status, metrics, block injection and cancellations.
package server

import (
	"FillIndexer/internal/core"
	"FillIndexer/internal/ingestion"
	"FillIndexer/internal/observability"
	"FillIndexer/internal/state"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// maxBlockBytes bounds an injected block body.
const maxBlockBytes = 16 << 20

// StatusSource reports processor progress.
type StatusSource interface {
	Status() core.Status
}

// BlockInjector feeds an encoded block into the processing loop and waits
// for its outcome.
type BlockInjector interface {
	InjectBlock(ctx context.Context, source string, data []byte) error
}

// CancellationRecorder writes an order's cancellation mark into the feed the
// fill handlers read.
type CancellationRecorder interface {
	Add(ctx context.Context, orderID uuid.UUID, mark state.CancelMark, at time.Time) error
}

// Deps are the server's collaborators. Injector may be nil, which leaves
// POST /v1/blocks unregistered, and Cancellations likewise for
// PUT /v1/canceled-orders/{order_id}. Gatherer defaults to the default
// registry.
type Deps struct {
	Health        *observability.HealthChecker
	Status        StatusSource
	Injector      BlockInjector
	Cancellations CancellationRecorder
	Gatherer      prometheus.Gatherer
	Logger        zerolog.Logger
}

type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	handler    http.Handler
	grpcAddr   string
	httpAddr   string
	logger     zerolog.Logger
}

func New(grpcAddr, httpAddr string, deps Deps) (*Server, error) {
	grpcServer := grpc.NewServer()

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	reflection.Register(grpcServer)

	handler, err := newHTTPHandler(deps)
	if err != nil {
		return nil, err
	}

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		handler:    handler,
		grpcAddr:   grpcAddr,
		httpAddr:   httpAddr,
		logger:     deps.Logger,
	}, nil
}

type route struct {
	method, path string
	fn           runtime.HandlerFunc
}

func newHTTPHandler(deps Deps) (http.Handler, error) {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	metrics := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})

	mux := runtime.NewServeMux()
	routes := []route{
		{http.MethodGet, "/healthz", plain(deps.Health.LivenessHandler)},
		{http.MethodGet, "/readyz", plain(deps.Health.ReadinessHandler)},
		{http.MethodGet, "/metrics", plain(metrics.ServeHTTP)},
		{http.MethodGet, "/v1/status", statusHandler(deps.Status)},
	}
	if deps.Injector != nil {
		routes = append(routes, route{http.MethodPost, "/v1/blocks", injectHandler(deps.Injector, deps.Logger)})
	}
	if deps.Cancellations != nil {
		routes = append(routes, route{http.MethodPut, "/v1/canceled-orders/{order_id}",
			cancelHandler(deps.Cancellations, deps.Logger)})
	}

	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.path, r.fn); err != nil {
			return nil, fmt.Errorf("register %s %s: %w", r.method, r.path, err)
		}
	}
	return mux, nil
}

func plain(fn http.HandlerFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		fn(w, r)
	}
}

func statusHandler(src StatusSource) runtime.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
		writeJSON(w, http.StatusOK, src.Status())
	}
}

func injectHandler(inj BlockInjector, logger zerolog.Logger) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBlockBytes))
		if err != nil {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
			return
		}
		if len(data) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty block"})
			return
		}

		err = inj.InjectBlock(r.Context(), "http:"+r.RemoteAddr, data)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
		case errors.Is(err, ingestion.ErrBlockRejected):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		default:
			logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("block injection aborted")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		}
	}
}

var cancelMarks = map[string]state.CancelMark{
	"NONE":                 state.CancelMarkNone,
	"BEST_EFFORT_CANCELED": state.CancelMarkBestEffort,
	"CANCELED":             state.CancelMarkCanceled,
}

// cancelHandler records a cancellation by hand, for environments without
// the order-book service that normally feeds the cache.
func cancelHandler(rec CancellationRecorder, logger zerolog.Logger) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		orderID, err := uuid.Parse(params["order_id"])
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
			return
		}
		var body struct {
			Mark string `json:"mark"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		mark, ok := cancelMarks[body.Mark]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown mark " + body.Mark})
			return
		}

		if err := rec.Add(r.Context(), orderID, mark, time.Now()); err != nil {
			logger.Error().Err(err).Str("order_id", orderID.String()).Msg("record cancellation failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Handler returns the HTTP admin handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetServing flips the gRPC health status of the whole server.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
}

// StartGRPC listens on the gRPC address and serves until ctx is done.
func (s *Server) StartGRPC(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.ServeGRPC(ctx, lis)
}

// ServeGRPC serves on lis until ctx is done.
func (s *Server) ServeGRPC(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	}()

	s.logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC server listening")
	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// StartHTTP serves the admin handler until ctx is done.
func (s *Server) StartHTTP(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.httpAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", s.httpAddr).Msg("HTTP admin listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve: %w", err)
	}
	return nil
}
