package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/unirec/unirec/internal/domain"
	"github.com/unirec/unirec/internal/service"
	"go.uber.org/zap"
)

type InteractionHandler struct {
	svc           *service.Interactions
	reinforcement *service.Reinforcement
	windowDays    int
	logger        *zap.Logger
}

func NewInteractionHandler(svc *service.Interactions, reinforcement *service.Reinforcement, windowDays int, logger *zap.Logger) *InteractionHandler {
	return &InteractionHandler{svc: svc, reinforcement: reinforcement, windowDays: windowDays, logger: logger}
}

type createInteractionRequest struct {
	UserID   int64          `json:"user_id"`
	ItemID   int64          `json:"item_id"`
	Domain   string         `json:"domain"`
	Action   string         `json:"action"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Create serves POST /v1/interactions.
func (h *InteractionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.svc.Log(r.Context(), service.LogRequest{
		UserID:   req.UserID,
		ItemID:   req.ItemID,
		Domain:   domain.Domain(req.Domain),
		Action:   domain.ActionKind(req.Action),
		Metadata: req.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownDomain), errors.Is(err, domain.ErrInvalidAction):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to record interaction")
		}
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// Stats serves GET /v1/interactions/{userID}/stats.
func (h *InteractionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	stats, err := h.svc.Stats(r.Context(), userID)
	if err != nil {
		h.logger.Error("interaction stats failed", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type preferenceUpdatesResponse struct {
	UserID     int64                      `json:"user_id"`
	WindowDays int                        `json:"window_days"`
	Updates    map[domain.Domain][]string `json:"updates"`
}

// PreferenceUpdates serves GET /v1/interactions/{userID}/preference-updates.
func (h *InteractionHandler) PreferenceUpdates(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	windowDays := queryInt(r, "window_days", h.windowDays)
	if windowDays <= 0 {
		windowDays = h.windowDays
	}

	updates, err := h.reinforcement.PreferenceUpdates(r.Context(), userID, windowDays)
	if err != nil {
		h.logger.Error("preference updates failed", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to derive preference updates")
		return
	}
	writeJSON(w, http.StatusOK, preferenceUpdatesResponse{
		UserID:     userID,
		WindowDays: windowDays,
		Updates:    updates,
	})
}

// Exploration serves GET /v1/interactions/{userID}/exploration/{domain}.
func (h *InteractionHandler) Exploration(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	d, err := domain.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown domain")
		return
	}

	recs, err := h.svc.ExplorationCandidates(r.Context(), userID, d, queryInt(r, "count", defaultCount))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrModelNotLoaded):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, domain.ErrInvalidCount):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "exploration failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, domainRecommendationsResponse{
		UserID:          userID,
		Domain:          d,
		Recommendations: recs,
	})
}
