// Package handler serves the routed views and form submissions of the
// voting frontend.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/csie-vote/voting-web/internal/action"
	"github.com/csie-vote/voting-web/internal/middleware"
	"github.com/csie-vote/voting-web/internal/state"
	"github.com/csie-vote/voting-web/internal/view"
)

// Options configures the router.
type Options struct {
	Sessions *scs.SessionManager
	Registry *state.Registry
	Renderer *view.Renderer

	// RenderWait bounds how long a request waits for bindings and writes
	// before rendering what it has.
	RenderWait time.Duration

	// LoginLimiter throttles login and signup submissions. Its pruning loop
	// is run by the caller.
	LoginLimiter *middleware.Limiter
}

// Handler holds what every page handler needs.
type Handler struct {
	renderer   *view.Renderer
	renderWait time.Duration
}

// NewRouter builds the frontend routes.
func NewRouter(opts Options) http.Handler {
	h := &Handler{renderer: opts.Renderer, renderWait: opts.RenderWait}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(opts.Sessions.LoadAndSave)
		r.Use(middleware.LoadInstance(opts.Sessions, opts.Registry))

		r.Get("/", h.HandleHome)
		r.Get("/topic/create", h.HandleCreateTopicForm)
		r.Post("/topic/create", h.HandleCreateTopic)
		r.Get("/topic/{id}", h.HandleTopic)
		r.Post("/topic/{id}/vote", h.HandleVote)
		r.Post("/topic/{id}/comment", h.HandleComment)

		r.Group(func(r chi.Router) {
			r.Use(opts.LoginLimiter.Handler)
			r.Get("/login", h.HandleLoginForm)
			r.Post("/login", h.HandleLogin)
			r.Get("/signup", h.HandleSignupForm)
			r.Post("/signup", h.HandleSignup)
		})

		r.NotFound(h.HandleNotFound)
	})

	return r
}

// renderContext bounds how long a page waits for its bindings.
func (h *Handler) renderContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.renderWait)
}

// instance returns the request's client instance. It writes a 500 and
// returns false if the instance middleware did not run.
func (h *Handler) instance(w http.ResponseWriter, r *http.Request) (*state.Instance, bool) {
	inst, ok := middleware.InstanceFromContext(r.Context())
	if !ok {
		slog.Error("no client instance in request context", "path", r.URL.Path)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return inst, true
}

// awaitCall waits up to the render wait for call to settle. It returns false
// when the call is still in flight.
func awaitCall[Out any](h *Handler, r *http.Request, call *action.Call[Out]) (action.Result[Out], bool) {
	ctx, cancel := h.renderContext(r)
	defer cancel()
	res, err := call.Wait(ctx)
	return res, err == nil
}

// unseen returns the settled result of d's last call if no page has shown it
// yet and no newer call is in flight. A nil match accepts every call.
func unseen[In, Out any](d *action.Dispatcher[In, Out], match func(In) bool) (action.Result[Out], bool) {
	if d.Pending() {
		return action.Result[Out]{}, false
	}
	return d.TakeMatching(match)
}

func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// HandleNotFound handles unknown paths.
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.renderContext(r)
	defer cancel()

	h.renderer.Render(w, http.StatusNotFound, view.PageNotFound, view.NotFoundPage{
		Layout: view.NewLayout(inst.LoadNav(ctx)),
		Path:   r.URL.Path,
	})
}
