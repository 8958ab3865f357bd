package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/unirec/unirec/internal/domain"
	"github.com/unirec/unirec/internal/service"
	"go.uber.org/zap"
)

const (
	defaultCount     = 10
	defaultPerDomain = 5
	maxBatchUsers    = 100
)

type RecommendationHandler struct {
	scorer        *service.Scorer
	ranker        *service.Ranker
	reinforcement *service.Reinforcement
	boostFactor   float64
	logger        *zap.Logger
}

func NewRecommendationHandler(scorer *service.Scorer, ranker *service.Ranker, reinforcement *service.Reinforcement, boostFactor float64, logger *zap.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		scorer:        scorer,
		ranker:        ranker,
		reinforcement: reinforcement,
		boostFactor:   boostFactor,
		logger:        logger,
	}
}

type domainRecommendationsResponse struct {
	UserID          int64                   `json:"user_id"`
	Domain          domain.Domain           `json:"domain"`
	Recommendations []domain.Recommendation `json:"recommendations"`
}

// GetDomain serves GET /v1/recommendations/{domain}/{userID}.
// Query params: count, preferred (comma-separated categories), boost=false to
// skip the behavioral adjustment.
func (h *RecommendationHandler) GetDomain(w http.ResponseWriter, r *http.Request) {
	d, err := domain.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown domain")
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	count := queryInt(r, "count", defaultCount)
	if count <= 0 {
		writeError(w, http.StatusBadRequest, "count must be positive")
		return
	}

	recs, err := h.scorer.Recommend(r.Context(), service.RecommendRequest{
		UserID:    userID,
		Domain:    d,
		N:         count,
		Preferred: queryList(r, "preferred"),
	})
	if err != nil {
		h.writeRecommendError(w, err)
		return
	}

	if r.URL.Query().Get("boost") != "false" {
		boosted, berr := h.reinforcement.ApplyBoost(r.Context(), userID, recs, h.boostFactor)
		if berr != nil {
			h.logger.Warn("behavior boost failed, serving unboosted",
				zap.Int64("user_id", userID), zap.Error(berr))
		} else {
			recs = boosted
		}
	}

	writeJSON(w, http.StatusOK, domainRecommendationsResponse{
		UserID:          userID,
		Domain:          d,
		Recommendations: recs,
	})
}

// GetUnified serves GET /v1/recommendations/unified/{userID}.
// Query params: total, per_domain, preferred_<domain> lists.
func (h *RecommendationHandler) GetUnified(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	req := service.UnifiedRequest{
		UserID:    userID,
		Total:     queryInt(r, "total", defaultCount),
		PerDomain: queryInt(r, "per_domain", defaultPerDomain),
	}
	for _, d := range domain.AllDomains {
		if cats := queryList(r, "preferred_"+string(d)); len(cats) > 0 {
			if req.Preferred == nil {
				req.Preferred = make(map[domain.Domain][]string)
			}
			req.Preferred[d] = cats
		}
	}

	result, err := h.ranker.UnifiedRecommend(r.Context(), req)
	if err != nil {
		h.writeRecommendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type batchRequest struct {
	UserIDs []int64 `json:"user_ids"`
	Domain  string  `json:"domain"`
	Count   int     `json:"count,omitempty"`
}

type batchResponse struct {
	Results map[string][]domain.Recommendation `json:"results"`
}

// Batch serves POST /v1/recommendations/batch: one domain, many users.
// Per-user failures produce an empty list rather than failing the batch.
func (h *RecommendationHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	d, err := domain.ParseDomain(req.Domain)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown domain")
		return
	}
	if len(req.UserIDs) == 0 || len(req.UserIDs) > maxBatchUsers {
		writeError(w, http.StatusBadRequest, "user_ids must contain 1 to 100 entries")
		return
	}
	count := req.Count
	if count <= 0 {
		count = defaultCount
	}

	results := make(map[string][]domain.Recommendation, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		recs, err := h.scorer.Recommend(r.Context(), service.RecommendRequest{
			UserID: userID,
			Domain: d,
			N:      count,
		})
		if err != nil {
			h.logger.Warn("batch recommendation failed",
				zap.Int64("user_id", userID),
				zap.String("domain", string(d)),
				zap.Error(err))
			recs = []domain.Recommendation{}
		}
		results[strconv.FormatInt(userID, 10)] = recs
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

func (h *RecommendationHandler) writeRecommendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrModelNotLoaded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrInvalidCount), errors.Is(err, domain.ErrUnknownDomain):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "recommendation failed")
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func queryList(r *http.Request, key string) []string {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
