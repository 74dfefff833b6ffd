package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/ingestion"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/tenant"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/utils"
)

const maxWebhookBodyBytes = 1 << 20 // 1 MiB

// Server is the HTTP ingestion endpoint plus health probes.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	router     ingestion.RouterInterface
	logger     *zap.Logger
}

// HealthResponse is the response structure for health check endpoints
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// WebhookResponse acknowledges a webhook delivery to the provider.
type WebhookResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewServer creates the ingestion HTTP server.
func NewServer(port int, router ingestion.RouterInterface, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	server := &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		mux:    mux,
		router: router,
		logger: logger,
	}

	mux.HandleFunc("POST /v1/webhooks/{platform}", server.handleWebhook)
	mux.HandleFunc("/health", server.handleHealth)
	mux.HandleFunc("/ready", server.handleReady)

	return server
}

// RegisterMetricsHandler adds the /metrics endpoint handler.
// Should only be called if metrics are enabled.
func (s *Server) RegisterMetricsHandler(handler http.Handler) {
	s.logger.Info("Registering /metrics endpoint")
	s.mux.Handle("/metrics", handler)
}

// Start begins the HTTP server
func (s *Server) Start() {
	go func() {
		s.logger.Info("Starting webhook HTTP server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Webhook HTTP server error", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping webhook HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleWebhook accepts one provider delivery. Providers retry on 5xx,
// so only genuinely retryable processing failures return one; dropped
// deliveries (no account, nothing actionable) are acknowledged with 200.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	platformRaw := r.PathValue("platform")
	platform, ok := model.ParsePlatform(platformRaw)
	if !ok {
		utils.WriteJSONResponse(w, http.StatusNotFound, WebhookResponse{
			Status: "error",
			Error:  fmt.Sprintf("unsupported platform: %s", platformRaw),
		})
		return
	}

	companyID := r.Header.Get("X-Company-ID")
	if companyID == "" {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, WebhookResponse{
			Status: "error",
			Error:  "missing X-Company-ID header",
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, WebhookResponse{
			Status: "error",
			Error:  "failed to read request body",
		})
		return
	}

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}

	ctx := tenant.WithCompanyID(r.Context(), companyID)
	ctx = tenant.WithRequestID(ctx, requestID)

	if err := s.router.Dispatch(ctx, platform, body, "http"); err != nil {
		s.writeDispatchError(w, requestID, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, WebhookResponse{
		Status:    "accepted",
		RequestID: requestID,
	})
}

func (s *Server) writeDispatchError(w http.ResponseWriter, requestID string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrUnsupportedPlatform):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrUnparseablePayload), errors.Is(err, apperrors.ErrBadRequest), errors.Is(err, apperrors.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnauthorized):
		status = http.StatusUnauthorized
	}

	utils.WriteJSONResponse(w, status, WebhookResponse{
		Status:    "error",
		RequestID: requestID,
		Error:     err.Error(),
	})
}

// handleHealth handles the /health endpoint for liveness probes
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "UP",
		Version: "1.0.0",
	}

	utils.WriteJSONResponse(w, http.StatusOK, resp)
}

// handleReady handles the /ready endpoint for readiness probes
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "READY",
		Details: map[string]string{
			"timestamp": utils.FormatISO8601(utils.Now()),
		},
	}

	utils.WriteJSONResponse(w, http.StatusOK, resp)
}
