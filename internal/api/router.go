package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unirec/unirec/internal/api/handlers"
	mw "github.com/unirec/unirec/internal/api/middleware"
	"github.com/unirec/unirec/internal/config"
	"github.com/unirec/unirec/internal/domain"
	"github.com/unirec/unirec/internal/service"
	"github.com/unirec/unirec/internal/snapshot"
	"github.com/unirec/unirec/internal/store"
	"go.uber.org/zap"
)

// App holds the router and the snapshot manager for lifecycle management.
type App struct {
	Router    *chi.Mux
	Snapshots *snapshot.Manager
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	interactionStore := store.NewInteractionStore(db)
	modelStore := store.NewModelStore(db)

	// Snapshots
	snapshots := snapshot.NewManager(modelStore, logger)

	// Services
	scorer := service.NewScorer(snapshots, logger)
	fuser := service.NewFuser(snapshots, logger)
	ranker := service.NewRanker(snapshots, scorer, fuser, logger)
	reinforcement := service.NewReinforcement(interactionStore, snapshots, logger)
	interactions := service.NewInteractions(interactionStore, snapshots, logger)

	// Handlers
	recHandler := handlers.NewRecommendationHandler(scorer, ranker, reinforcement, config.BoostFactor(), logger)
	interactionHandler := handlers.NewInteractionHandler(interactions, reinforcement, config.PreferenceWindowDays(), logger)
	catalogHandler := handlers.NewCatalogHandler(interactions, snapshots)

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Metrics)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db, snapshots))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/recommendations", func(r chi.Router) {
			r.Post("/batch", recHandler.Batch)
			r.Get("/unified/{userID}", recHandler.GetUnified)
			r.Get("/{domain}/{userID}", recHandler.GetDomain)
		})

		r.Route("/interactions", func(r chi.Router) {
			r.Post("/", interactionHandler.Create)
			r.Route("/{userID}", func(r chi.Router) {
				r.Get("/stats", interactionHandler.Stats)
				r.Get("/preference-updates", interactionHandler.PreferenceUpdates)
				r.Get("/exploration/{domain}", interactionHandler.Exploration)
			})
		})

		r.Get("/catalog/{domain}/search", catalogHandler.Search)
		r.Get("/stats", catalogHandler.SystemStats)

		r.Post("/admin/reload", reloadHandler(snapshots, logger))
	})

	return &App{Router: r, Snapshots: snapshots}
}

// healthHandler reports overall status plus which domain models are loaded.
// The service is degraded, not down, while some domains are missing.
func healthHandler(db *pgxpool.Pool, snapshots *snapshot.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "error": err.Error()})
			return
		}

		loaded := snapshots.Current().Loaded()
		status := "ok"
		for _, d := range domain.AllDomains {
			if !loaded[d] {
				status = "degraded"
				break
			}
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     status,
			"generation": snapshots.Generation(),
			"domains":    loaded,
		})
	}
}

// reloadHandler swaps in a freshly loaded model snapshot. Requests in flight
// keep the set they started with.
func reloadHandler(snapshots *snapshot.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := snapshots.Reload(r.Context()); err != nil {
			logger.Error("snapshot reload failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "reload failed"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     "reloaded",
			"generation": snapshots.Generation(),
		})
	}
}
