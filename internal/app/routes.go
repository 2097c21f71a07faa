package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/testreport/internal/handler"
	"github.com/testreport/internal/middleware"
	"github.com/testreport/internal/web"
)

func (app *App) routes() http.Handler {
	cfg := app.config.Serve

	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RateLimit(rate.Limit(cfg.RatePerSecond), cfg.Burst))

	// Health check stays public for load balancers.
	r.Get("/api/health", handler.NewHealthHandler(app.logger, app.history, cfg.Dir).Check)

	r.Group(func(r chi.Router) {
		if creds := cfg.Credentials(); creds.Enabled() {
			r.Use(middleware.BasicAuth("testreport", creds))
		}

		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.StaticFS)))
		r.Handle("/reports/*", http.StripPrefix("/reports/", http.FileServer(http.Dir(cfg.Dir))))

		var runs handler.RunLister
		if app.history != nil {
			runs = app.history
		}
		h := handler.NewRunsHandler(app.logger, runs, cfg.Dir, web.Templates)
		r.Get("/", h.Index)
		r.Get("/api/runs", h.List)
		r.Get("/api/runs/{id}", h.Get)
	})
	return r
}
