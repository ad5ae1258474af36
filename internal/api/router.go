package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/ragguard/internal/api/handlers"
	"github.com/nikhilbhutani/ragguard/internal/api/middleware"
	"github.com/nikhilbhutani/ragguard/internal/app"
)

type Router struct {
	mux   *chi.Mux
	app   *app.App
	tasks handlers.TaskEnqueuer
	rl    *middleware.RateLimiter
}

// NewRouter builds the HTTP surface over a. tasks may be nil, in which case
// the async routes answer 503.
func NewRouter(a *app.App, tasks handlers.TaskEnqueuer) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		app:   a,
		tasks: tasks,
		rl:    middleware.NewRateLimiter(100, 200),
	}
}

// Cleanup evicts idle rate-limit entries until ctx is done.
func (rt *Router) Cleanup(ctx context.Context) {
	rt.rl.Cleanup(ctx)
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(rt.rl.Limit)

	checks := make(map[string]handlers.Check)
	for name, check := range rt.app.Ready() {
		checks[name] = check
	}
	health := handlers.NewHealthHandler(checks)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	a := rt.app
	nlp := handlers.NewNLPHandler(a.Store, a.Indexer, a.Retriever, a.Answerer, a.Vectors, a.Guards, rt.tasks, a.Audit)
	data := handlers.NewDataHandler(a.Documents, rt.tasks)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/data", func(r chi.Router) {
			r.Post("/upload/{project}", data.Upload)
			r.Post("/process/{project}", data.Process)
			r.Post("/process/{project}/async", data.ProcessAsync)
		})

		r.Route("/nlp/index", func(r chi.Router) {
			r.Post("/push/{project}", nlp.Push)
			r.Post("/push/{project}/async", nlp.PushAsync)
			r.Get("/info/{project}", nlp.Info)
			r.Post("/search/{project}", nlp.Search)
			r.Post("/answer/{project}", nlp.Answer)
			r.Delete("/{project}", nlp.Reset)
		})
		r.Get("/nlp/events/{project}", nlp.Events)
	})

	return r
}
