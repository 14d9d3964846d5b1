package app

import (
	"log/slog"
	"net/http"
	"time"

	"scentquiz/internal/app/observability"
	"scentquiz/internal/catalog"
	"scentquiz/internal/db"
	"scentquiz/internal/funnel"
	"scentquiz/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services are the domain services behind the router. Funnel must be
// closed on shutdown so pending result submissions finish.
type Services struct {
	Catalog *catalog.Service
	Funnel  *funnel.Service
	Report  *report.Service
}

func NewServices(cfg Config, store *db.DB, logger *slog.Logger) *Services {
	cat := catalog.NewService(store)
	return &Services{
		Catalog: cat,
		Funnel: funnel.NewService(store, cat, funnel.Config{
			SubmitTimeout: cfg.SubmitTimeout,
			Logger:        logger,
		}),
		Report: report.NewService(store),
	}
}

func NewRouter(cfg Config, store *db.DB, svc *Services, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	collector := observability.NewCollector(store.DB, logger)
	r.Use(collector.Middleware)

	catalogHandler := catalog.NewHandler(svc.Catalog)
	funnelHandler := funnel.NewHandler(svc.Funnel)
	reportHandler := report.NewHandler(svc.Report)
	limiter := NewIPRateLimiter(cfg.RateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := store.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"ok":false}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(RateLimitMiddleware(limiter))
		api.Use(CSRFMiddleware(cfg.CSRFEnforced))

		api.Get("/products", catalogHandler.ListProducts)
		api.Get("/questions", catalogHandler.ListQuestions)
		api.Get("/zodiac", funnelHandler.ResolveZodiac)

		api.Post("/sessions", funnelHandler.Start)
		api.Route("/sessions/{id}", func(s chi.Router) {
			s.Get("/", funnelHandler.Get)
			s.Put("/answers/{questionID}", funnelHandler.Answer)
			s.Post("/answers/{questionID}/toggle", funnelHandler.Toggle)
			s.Put("/zodiac", funnelHandler.Zodiac)
			s.Post("/advance", funnelHandler.Advance)
			s.Post("/retreat", funnelHandler.Retreat)
			s.Post("/submit", funnelHandler.Submit)
			s.Post("/retake", funnelHandler.Retake)
			s.Get("/result", funnelHandler.Result)
		})

		api.Group(func(admin chi.Router) {
			admin.Use(AdminGuard(cfg.AdminTokenHash))
			admin.Put("/admin/products", catalogHandler.UpsertProducts)
			admin.Put("/admin/questions", catalogHandler.ReplaceQuestions)
			admin.Post("/admin/questions/import", catalogHandler.ImportQuestions)
			admin.Get("/admin/questions/export", catalogHandler.ExportQuestions)
			admin.Get("/admin/results", reportHandler.Results)
			admin.Get("/admin/results/summary", reportHandler.Summary)
			admin.Get("/admin/results/export", reportHandler.ExportResults)
		})
	})

	return r
}
