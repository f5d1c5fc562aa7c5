// File: internal/rpc/server.go
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkaelum/harrier/api/schemas"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Dispatcher is what the server routes decoded requests to. The engine
// implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, method string, params json.RawMessage) (any, error)
}

// Server carries the RPC envelope over a local HTTP listener.
type Server struct {
	logger     *zap.Logger
	dispatcher Dispatcher
	httpServer *http.Server
}

// NewServer builds the server for the given port.
func NewServer(port int, dispatcher Dispatcher, logger *zap.Logger) *Server {
	s := &Server{
		logger:     logger.Named("rpc_server"),
		dispatcher: dispatcher,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Post("/rpc", s.handleRPC)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router; tests mount it on httptest servers.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// ListenAndServe blocks until the listener fails or Shutdown runs.
func (s *Server) ListenAndServe() error {
	s.logger.Info("RPC server listening.", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("RPC server shutting down.")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleRPC decodes the envelope, dispatches, and writes the uniform reply.
// Malformed payloads get a 400 with the invalid_request code; operational
// failures are 200 responses with success=false so callers branch on the
// envelope, not on transport status.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req schemas.Request
	if err := jsonAPI.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, schemas.Response{
			Success: false,
			Error:   fmt.Sprintf("invalid request body: %v", err),
			Code:    schemas.ErrCodeInvalidRequest,
		})
		return
	}
	if req.Method == "" {
		s.writeResponse(w, http.StatusBadRequest, schemas.Response{
			Success: false,
			Error:   "missing method",
			Code:    schemas.ErrCodeInvalidRequest,
		})
		return
	}

	data, err := s.dispatcher.Dispatch(r.Context(), req.Method, req.Params)
	if err != nil {
		code := schemas.CodeOf(err)
		status := http.StatusOK
		if code == schemas.ErrCodeInvalidRequest {
			status = http.StatusBadRequest
		}
		s.writeResponse(w, status, schemas.Response{
			Success: false,
			Error:   err.Error(),
			Code:    code,
		})
		return
	}

	payload, err := jsonAPI.Marshal(data)
	if err != nil {
		s.logger.Error("Failed to marshal response payload.", zap.String("method", req.Method), zap.Error(err))
		s.writeResponse(w, http.StatusInternalServerError, schemas.Response{
			Success: false,
			Error:   "failed to encode response",
			Code:    schemas.ErrCodeInternal,
		})
		return
	}
	s.writeResponse(w, http.StatusOK, schemas.Response{Success: true, Data: payload})
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, resp schemas.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsonAPI.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode response.", zap.Error(err))
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }
