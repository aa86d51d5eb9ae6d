package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Dzaakk/playtime-gateway/internal/middleware"
	"github.com/Dzaakk/playtime-gateway/internal/platform"
	"github.com/Dzaakk/playtime-gateway/internal/playtime"
)

const PlaytimePattern = "/{platform}/playtime/{subjectId...}"

type errorBody struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, errorBody{Success: false, Reason: reason})
}

// PlaytimeHandler serves every routed platform from one code path. Throttling
// happens in front of it; see middleware.RateLimitMiddleware.
type PlaytimeHandler struct {
	service *playtime.Service
	routed  map[string]bool
	logger  *slog.Logger
}

// NewPlaytimeHandler routes only the listed platforms that also have an
// adapter in service.
func NewPlaytimeHandler(service *playtime.Service, routed []string, logger *slog.Logger) *PlaytimeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &PlaytimeHandler{service: service, routed: make(map[string]bool), logger: logger}
	for _, p := range routed {
		if _, ok := service.Adapter(p); ok {
			h.routed[p] = true
		} else {
			logger.Warn("routed platform has no adapter", "platform", p)
		}
	}
	return h
}

func (h *PlaytimeHandler) Routed(platform string) bool {
	return h.routed[platform]
}

func (h *PlaytimeHandler) Platforms() []string {
	out := make([]string, 0, len(h.routed))
	for p := range h.routed {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (h *PlaytimeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := r.PathValue("platform")
	if !h.routed[p] {
		writeError(w, http.StatusNotFound, "Unsupported platform")
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	subjectID := r.PathValue("subjectId")
	if strings.TrimSpace(subjectID) == "" || strings.Contains(subjectID, "/") {
		writeError(w, http.StatusBadRequest, platform.InvalidIDReason(p))
		return
	}

	resp, err := h.service.Lookup(r.Context(), p, subjectID)
	if err != nil {
		if errors.Is(err, playtime.ErrUnknownPlatform) {
			writeError(w, http.StatusNotFound, "Unsupported platform")
			return
		}
		h.logger.Error("playtime lookup failed",
			"platform", p,
			"error", err,
			"request_id", middleware.RequestIDFromContext(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, middleware.InternalErrorReason)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// NotFound answers every path outside the playtime routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func StatusHandler(platforms []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"time":      time.Now().Format(time.RFC3339),
			"platforms": platforms,
		})
	}
}
