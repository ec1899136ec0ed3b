package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"caseopener-rest-api/internal/handler"
	"caseopener-rest-api/internal/metrics"
	"caseopener-rest-api/internal/middleware"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler         *handler.Handler
	AuthHandler     *handler.AuthHandler
	CaseHandler     *handler.CaseHandler
	MeHandler       *handler.MeHandler
	AdminHandler    *handler.AdminHandler
	AuthMiddleware  func(http.Handler) http.Handler
	AdminMiddleware func(http.Handler) http.Handler
	CORSOrigins     []string
	StaticDir       string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Token", "X-Login-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	r.Handle("/metrics", promhttp.Handler())
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// Item and case images
	if cfg.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(cfg.StaticDir))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.AuthHandler != nil {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
		}

		// Session routes
		r.Group(func(r chi.Router) {
			if cfg.AuthMiddleware != nil {
				r.Use(cfg.AuthMiddleware)
			}

			if cfg.AuthHandler != nil {
				r.Post("/auth/logout", cfg.AuthHandler.Logout)
			}

			if cfg.CaseHandler != nil {
				r.Route("/cases", func(r chi.Router) {
					r.Get("/", cfg.CaseHandler.ListCases)
					r.Get("/{case_id}", cfg.CaseHandler.GetCase)
					r.Post("/{case_id}/spin", cfg.CaseHandler.Spin)
				})
			}

			if cfg.MeHandler != nil {
				r.Route("/me", func(r chi.Router) {
					r.Get("/", cfg.MeHandler.Summary)
					r.Get("/inventory", cfg.MeHandler.Inventory)
					r.Get("/history", cfg.MeHandler.History)
				})
			}
		})

		// Admin endpoints (X-Login-Key)
		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Post("/login", cfg.AdminHandler.VerifyLogin)

				r.Group(func(r chi.Router) {
					if cfg.AdminMiddleware != nil {
						r.Use(cfg.AdminMiddleware)
					}
					r.Get("/stats", cfg.AdminHandler.GetStats)
					r.Post("/users/{user_id}/grant", cfg.AdminHandler.GrantMoney)
					r.Post("/catalog/sync", cfg.AdminHandler.SyncCatalog)
				})
			})
		}
	})

	return r
}
