package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nexcar/rwe-km/internal/engine"
	"github.com/nexcar/rwe-km/internal/gradient"
	"github.com/nexcar/rwe-km/internal/models"
	"github.com/nexcar/rwe-km/internal/persona"
	"github.com/nexcar/rwe-km/internal/services"
	"github.com/nexcar/rwe-km/internal/utils"
)

// HTTPHandler exposes the dashboard over JSON/HTTP.
type HTTPHandler struct {
	logger    *slog.Logger
	dashboard *services.DashboardService
	hub       *Hub
}

// NewHTTPHandler wires the handler. hub may be nil when live updates are disabled.
func NewHTTPHandler(logger *slog.Logger, dashboard *services.DashboardService, hub *Hub) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{logger: logger, dashboard: dashboard, hub: hub}
}

// NewRouter returns a router with every dashboard route registered.
func (h *HTTPHandler) NewRouter() *mux.Router {
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes registers the dashboard routes on router.
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/dashboard", h.GetView).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/load", h.Load).Methods(http.MethodPost)
	api.HandleFunc("/dashboard/select", h.Select).Methods(http.MethodPost)
	api.HandleFunc("/dashboard/reset", h.Reset).Methods(http.MethodPost)
	api.HandleFunc("/dashboard/hit", h.HitTest).Methods(http.MethodGet)
	api.HandleFunc("/schemes", h.ListSchemes).Methods(http.MethodGet)
	api.HandleFunc("/schemes/{name}", h.GetScheme).Methods(http.MethodGet)
	if h.hub != nil {
		api.HandleFunc("/dashboard/ws", h.hub.HandleWebSocket).Methods(http.MethodGet)
	}
}

// Healthz reports liveness.
// GET /healthz
func (h *HTTPHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetView returns the current dashboard view.
// GET /api/v1/dashboard
func (h *HTTPHandler) GetView(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.dashboard.View())
}

// Load fetches a dataset. An empty body reloads the default query.
// POST /api/v1/dashboard/load
func (h *HTTPHandler) Load(w http.ResponseWriter, r *http.Request) {
	var q models.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.dashboard.Load(r.Context(), q)
	if err != nil {
		h.fail(w, "load", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Select opens the persona view for a subgroup.
// POST /api/v1/dashboard/select
func (h *HTTPHandler) Select(w http.ResponseWriter, r *http.Request) {
	var sub persona.Subgroup
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.dashboard.Select(sub)
	if err != nil {
		h.fail(w, "select", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Reset returns to the overall cohort view.
// POST /api/v1/dashboard/reset
func (h *HTTPHandler) Reset(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.dashboard.Reset())
}

// HitTest resolves a pointer x coordinate.
// GET /api/v1/dashboard/hit?x=123.5
func (h *HTTPHandler) HitTest(w http.ResponseWriter, r *http.Request) {
	x, err := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "x must be a number")
		return
	}
	hit, ok := h.dashboard.HitTest(x)
	resp := HitTestResponse{Hit: ok}
	if ok {
		resp.Point = &hit
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListSchemes returns the registered colour scheme names.
// GET /api/v1/schemes
func (h *HTTPHandler) ListSchemes(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"schemes": gradient.Names()})
}

// GetScheme returns the legend for a scheme, or a single swatch when percent is set.
// GET /api/v1/schemes/{name}?percent=55
func (h *HTTPHandler) GetScheme(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	raw := r.URL.Query().Get("percent")
	if raw == "" {
		legend, err := h.dashboard.Legend(name)
		if err != nil {
			h.fail(w, "legend", err)
			return
		}
		respondJSON(w, http.StatusOK, legend)
		return
	}

	percent, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "percent must be a number")
		return
	}
	swatch, err := h.dashboard.Swatch(name, percent)
	if err != nil {
		h.fail(w, "swatch", err)
		return
	}
	respondJSON(w, http.StatusOK, swatch)
}

func (h *HTTPHandler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("dashboard request failed", slog.String("op", op), slog.Any("error", err))
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNoDataset):
		return http.StatusConflict
	case utils.IsKind(err, utils.KindInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Error("encode JSON response failed", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"error":  message,
		"status": status,
	})
}
