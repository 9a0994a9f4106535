package httptransport

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/sudharsanSarathi/AI-voice-enhancer/docs"
)

type RouteOptions struct {
	Logger zerolog.Logger
	// StaticDir holds the browser front end; empty disables "/" and "/static/*".
	StaticDir string
}

func Routes(h *Handler, opts RouteOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// after RequestID
	r.Use(RequestLogger(opts.Logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/process", h.ProcessAudio)
		r.Get("/status/{id}", h.GetStatus)
		r.Get("/result/{id}", h.GetResult)
		r.Delete("/jobs/{id}", h.CancelJob)
		r.Get("/audio/{kind}/{filename}", h.GetAudio)
		r.Get("/download/{filename}", h.Download)
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	if opts.StaticDir != "" {
		index := filepath.Join(opts.StaticDir, "index.html")
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, index)
		})
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	return r
}
