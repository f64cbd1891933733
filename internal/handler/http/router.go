package http

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/CarCatalog/pkg/health"
	"github.com/utafrali/CarCatalog/pkg/middleware"
)

// RouterConfig holds the pieces of the router that vary per deployment.
type RouterConfig struct {
	Assets         fs.FS
	MaxUploadBytes int64
	// Images serves uploaded images under /images/ when the storage backend
	// keeps them in process.
	Images http.Handler
	// Write routes are limited per client IP; RateLimitRPS <= 0 disables it.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(svc CatalogService, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) (http.Handler, error) {
	pages, err := NewRenderer(cfg.Assets)
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(cfg.Assets, "static")
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.MethodOverride)
	r.Use(middleware.Tracing("catalog"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Metrics)

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	if cfg.Images != nil {
		r.Handle("/images/*", cfg.Images)
	}

	cars := NewCarHandler(svc, pages, cfg.MaxUploadBytes, logger)
	r.Get("/", cars.Index)
	r.Get("/create", cars.CreateForm)
	r.Get("/details/{id}", cars.Details)

	tooMany := func(w http.ResponseWriter, r *http.Request) { pages.Error(w, r, errTooManyRequests) }
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, tooMany, logger))
		r.Post("/add", cars.AddCar)
		r.Post("/review/{id}", cars.AddReview)
		r.Delete("/delete_car/{id}", cars.DeleteCar)
		r.Delete("/delete_review/{review_id}", cars.DeleteReview)
		r.Put("/edit_car/{id}", cars.EditCar)
		r.Post("/upload_image/{id}", cars.UploadImage)
	})

	api := NewAPIHandler(svc, logger)
	r.Route("/api/v1/cars", func(r chi.Router) {
		r.Get("/", api.ListCars)
		r.Get("/{id}", api.GetCar)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pages.Error(w, r, errPageNotFound)
	})
	return r, nil
}
