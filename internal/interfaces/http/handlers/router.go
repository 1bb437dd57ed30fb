package handlers

import (
	"time"

	"github.com/cassiomorais/storekit/internal/application/continuation"
	"github.com/cassiomorais/storekit/internal/application/purchase"
	"github.com/cassiomorais/storekit/internal/domain/catalog"
	"github.com/cassiomorais/storekit/internal/infrastructure/config"
	"github.com/cassiomorais/storekit/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/storekit/internal/middleware"
	"github.com/cassiomorais/storekit/pkg/pause"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Pool         *pgxpool.Pool
	RedisClient  *redis.Client
	Purchases    *purchase.Controller
	Continuation *continuation.Controller
	Pauses       *pause.Registry
	Catalog      *catalog.Catalog
	Store        string
	Metrics      *observability.Metrics
	CORSConfig   config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthHandler(deps.Pool, deps.RedisClient)
	storeH := NewStoreHandler(deps.Purchases, deps.Catalog, deps.Store)
	continueH := NewContinueHandler(deps.Continuation, deps.Pauses)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Store
		r.Get("/store/state", storeH.State)
		r.Get("/store/products", storeH.Products)
		r.Post("/store/purchase", storeH.Purchase)
		r.Post("/store/restore", storeH.Restore)
		r.Post("/store/login", storeH.Login)
		r.Post("/store/validate", storeH.Validate)

		// Continuation
		r.Get("/continue/offer", continueH.Offer)
		r.Post("/continue", continueH.Continue)
		r.Post("/continue/ad", continueH.ShowAd)
		r.Post("/pause", continueH.Pause)
	})

	return r
}
