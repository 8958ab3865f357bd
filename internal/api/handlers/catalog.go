package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/unirec/unirec/internal/domain"
	"github.com/unirec/unirec/internal/service"
	"github.com/unirec/unirec/internal/snapshot"
)

type CatalogHandler struct {
	svc       *service.Interactions
	snapshots *snapshot.Manager
}

func NewCatalogHandler(svc *service.Interactions, snapshots *snapshot.Manager) *CatalogHandler {
	return &CatalogHandler{svc: svc, snapshots: snapshots}
}

type searchResponse struct {
	Domain domain.Domain `json:"domain"`
	Query  string        `json:"query"`
	Items  []domain.Item `json:"items"`
}

// Search serves GET /v1/catalog/{domain}/search?q=...&limit=...
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	d, err := domain.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown domain")
		return
	}
	query := r.URL.Query().Get("q")

	items, err := h.svc.SearchCatalog(d, query, queryInt(r, "limit", 20))
	if err != nil {
		if errors.Is(err, domain.ErrModelNotLoaded) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Domain: d, Query: query, Items: items})
}

type domainStats struct {
	Items int `json:"items"`
	Users int `json:"users"`
}

type systemStatsResponse struct {
	Generation uint64                        `json:"generation"`
	Domains    map[domain.Domain]domainStats `json:"domains"`
}

// SystemStats serves GET /v1/stats: loaded snapshot sizes per domain.
func (h *CatalogHandler) SystemStats(w http.ResponseWriter, r *http.Request) {
	set := h.snapshots.Current()
	resp := systemStatsResponse{
		Generation: set.Generation,
		Domains:    make(map[domain.Domain]domainStats),
	}
	for _, d := range domain.AllDomains {
		m, err := set.Domain(d)
		if err != nil {
			continue
		}
		resp.Domains[d] = domainStats{Items: m.NumItems(), Users: len(m.UserIDs())}
	}
	writeJSON(w, http.StatusOK, resp)
}
