// Package api provides the HTTP control surface for stored networks.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/artpar/lnstack/internal/core/domain"
	"github.com/artpar/lnstack/internal/core/migration"
	"github.com/artpar/lnstack/internal/shell/api/middleware"
	"github.com/artpar/lnstack/internal/shell/lifecycle"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
)

// =============================================================================
// Collaborators
// =============================================================================

// Networks is the network service the handlers drive.
type Networks interface {
	List(ctx context.Context) ([]domain.Network, error)
	Get(ctx context.Context, id int) (domain.Network, error)
	Chart(ctx context.Context, id int) (domain.Chart, error)
	Manifest(ctx context.Context, id int) (string, error)
	Create(ctx context.Context, name string, spec domain.NetworkSpec) (domain.Network, error)
	Start(ctx context.Context, id int) (domain.Network, error)
	Stop(ctx context.Context, id int) (domain.Network, error)
	StartNode(ctx context.Context, id int, name string) (domain.Network, error)
	StopNode(ctx context.Context, id int, name string) (domain.Network, error)
	RemoveNode(ctx context.Context, id int, name string) (domain.Network, error)
}

// Probe answers engine version and image queries.
type Probe interface {
	GetVersions(ctx context.Context, strict bool) (lifecycle.Versions, error)
	GetImages(ctx context.Context) []string
}

// =============================================================================
// Handler
// =============================================================================

// Handler provides HTTP handlers for the API.
type Handler struct {
	networks Networks
	probe    Probe
	token    string
	logger   *slog.Logger
}

// NewHandler creates a new API handler. A non-empty token is required on
// every request except the health check.
func NewHandler(networks Networks, probe Probe, token string, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	return &Handler{
		networks: networks,
		probe:    probe,
		token:    token,
		logger:   l,
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)
	r.Use(middleware.RequireToken(middleware.TokenConfig{
		Token:  h.token,
		Exempt: []string{"/health"},
		Logger: h.logger,
	}))

	r.Get("/health", h.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/versions", h.handleVersions)
		r.Get("/images", h.handleImages)

		r.Route("/networks", func(r chi.Router) {
			r.Get("/", h.handleListNetworks)
			r.Post("/", h.handleCreateNetwork)
			r.Get("/{id}", h.handleGetNetwork)
			r.Get("/{id}/chart", h.handleGetChart)
			r.Get("/{id}/compose", h.handleGetManifest)
			r.Post("/{id}/start", h.handleStartNetwork)
			r.Post("/{id}/stop", h.handleStopNetwork)
			r.Post("/{id}/nodes/{name}/start", h.handleStartNode)
			r.Post("/{id}/nodes/{name}/stop", h.handleStopNode)
			r.Delete("/{id}/nodes/{name}", h.handleRemoveNode)
		})
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := chimw.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health and Engine Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleVersions(w http.ResponseWriter, r *http.Request) {
	strict, _ := strconv.ParseBool(r.URL.Query().Get("strict"))

	v, err := h.probe.GetVersions(r.Context(), strict)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error(), "engine_error")
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleImages(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, ImagesResponse{Images: h.probe.GetImages(r.Context())})
}

// =============================================================================
// Network Handlers
// =============================================================================

func (h *Handler) handleListNetworks(w http.ResponseWriter, r *http.Request) {
	networks, err := h.networks.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, networks)
}

func (h *Handler) handleCreateNetwork(w http.ResponseWriter, r *http.Request) {
	var req CreateNetworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name is required", "validation_error")
		return
	}

	n, err := h.networks.Create(r.Context(), req.Name, req.Spec())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, n)
}

func (h *Handler) handleGetNetwork(w http.ResponseWriter, r *http.Request) {
	id, ok := h.networkID(w, r)
	if !ok {
		return
	}
	n, err := h.networks.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, n)
}

func (h *Handler) handleGetChart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.networkID(w, r)
	if !ok {
		return
	}
	c, err := h.networks.Chart(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleGetManifest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.networkID(w, r)
	if !ok {
		return
	}
	text, err := h.networks.Manifest(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ManifestResponse{NetworkID: id, Manifest: text})
}

func (h *Handler) handleStartNetwork(w http.ResponseWriter, r *http.Request) {
	h.networkCommand(w, r, h.networks.Start)
}

func (h *Handler) handleStopNetwork(w http.ResponseWriter, r *http.Request) {
	h.networkCommand(w, r, h.networks.Stop)
}

func (h *Handler) handleStartNode(w http.ResponseWriter, r *http.Request) {
	h.nodeCommand(w, r, h.networks.StartNode)
}

func (h *Handler) handleStopNode(w http.ResponseWriter, r *http.Request) {
	h.nodeCommand(w, r, h.networks.StopNode)
}

func (h *Handler) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	h.nodeCommand(w, r, h.networks.RemoveNode)
}

func (h *Handler) networkCommand(w http.ResponseWriter, r *http.Request, run func(context.Context, int) (domain.Network, error)) {
	id, ok := h.networkID(w, r)
	if !ok {
		return
	}
	n, err := run(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, n)
}

func (h *Handler) nodeCommand(w http.ResponseWriter, r *http.Request, run func(context.Context, int, string) (domain.Network, error)) {
	id, ok := h.networkID(w, r)
	if !ok {
		return
	}
	n, err := run(r.Context(), id, chi.URLParam(r, "name"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, n)
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) networkID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "network id must be a positive integer", "validation_error")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// writeServiceError maps service failures to HTTP responses. Lifecycle
// failures carry their normalized message.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNetworkNotFound), errors.Is(err, domain.ErrNodeNotFound):
		h.writeError(w, http.StatusNotFound, err.Error(), "not_found")
	case errors.Is(err, domain.ErrInvalidNetworkSpec):
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
	case errors.Is(err, domain.ErrLastChainNode), errors.Is(err, domain.ErrBackendInUse):
		h.writeError(w, http.StatusConflict, err.Error(), "conflict")
	case errors.Is(err, lifecycle.ErrCommandFailed):
		h.writeError(w, http.StatusInternalServerError, err.Error(), "command_failed")
	case errors.Is(err, migration.ErrInvalidVersion):
		h.logger.Error("stored networks cannot be migrated", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error(), "storage_error")
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error(), "internal_error")
	}
}
