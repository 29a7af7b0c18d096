package handler

import (
	"log/slog"
	"net/http"

	"github.com/csie-vote/voting-web/internal/model"
	"github.com/csie-vote/voting-web/internal/state"
	"github.com/csie-vote/voting-web/internal/view"
)

// HandleLoginForm handles GET /login requests.
func (h *Handler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}
	page := view.LoginPage{Pending: inst.Login.Pending()}
	if res, ok := unseen(inst.Login, nil); ok {
		if res.Err == nil {
			slog.Info("user logged in", "instance", inst.ID)
			redirect(w, r, "/")
			return
		}
		slog.Warn("login failed", "instance", inst.ID, "error", res.Err)
		page.Errors = view.NewErrorList(view.TitleLogin, res.Err)
	}
	h.renderLogin(w, r, inst, page)
}

// HandleLogin handles POST /login requests. A successful login stores the
// token in the session and navigates home.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	page := view.LoginPage{Username: r.PostForm.Get("username")}

	call, started := inst.Login.Dispatch(r.Context(), model.OAuth2PasswordRequest{
		Username: page.Username,
		Password: r.PostForm.Get("password"),
	})
	if !started {
		page.Pending = true
		h.renderLogin(w, r, inst, page)
		return
	}

	res, settled := awaitCall(h, r, call)
	switch {
	case !settled:
		page.Pending = true
		h.renderLogin(w, r, inst, page)
	case res.Err != nil:
		slog.Warn("login failed", "instance", inst.ID, "username", page.Username, "error", res.Err)
		page.Errors = view.NewErrorList(view.TitleLogin, res.Err)
		h.renderLogin(w, r, inst, page)
	default:
		slog.Info("user logged in", "instance", inst.ID, "username", page.Username)
		redirect(w, r, "/")
	}
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, inst *state.Instance, page view.LoginPage) {
	ctx, cancel := h.renderContext(r)
	defer cancel()
	page.Layout = view.NewLayout(inst.LoadNav(ctx))
	page.Refresh = page.Refresh || page.Pending
	page.RefreshURL = "/login"
	h.renderer.Render(w, http.StatusOK, view.PageLogin, page)
}

// HandleSignupForm handles GET /signup requests.
func (h *Handler) HandleSignupForm(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}
	page := view.SignupPage{Pending: inst.Signup.Pending()}
	if res, ok := unseen(inst.Signup, nil); ok {
		if res.Err == nil {
			slog.Info("user signed up", "instance", inst.ID)
			redirect(w, r, "/login")
			return
		}
		slog.Warn("signup failed", "instance", inst.ID, "error", res.Err)
		page.Errors = view.NewErrorList(view.TitleSignup, res.Err)
	}
	h.renderSignup(w, r, inst, page)
}

// HandleSignup handles POST /signup requests. A successful signup navigates
// to the login form.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	page := view.SignupPage{
		Username: r.PostForm.Get("username"),
		Email:    r.PostForm.Get("email"),
	}

	call, started := inst.Signup.Dispatch(r.Context(), model.SignupInput{
		Username: page.Username,
		Email:    page.Email,
		Password: r.PostForm.Get("password"),
	})
	if !started {
		page.Pending = true
		h.renderSignup(w, r, inst, page)
		return
	}

	res, settled := awaitCall(h, r, call)
	switch {
	case !settled:
		page.Pending = true
		h.renderSignup(w, r, inst, page)
	case res.Err != nil:
		slog.Warn("signup failed", "instance", inst.ID, "username", page.Username, "error", res.Err)
		page.Errors = view.NewErrorList(view.TitleSignup, res.Err)
		h.renderSignup(w, r, inst, page)
	default:
		slog.Info("user signed up", "instance", inst.ID, "username", page.Username)
		redirect(w, r, "/login")
	}
}

func (h *Handler) renderSignup(w http.ResponseWriter, r *http.Request, inst *state.Instance, page view.SignupPage) {
	ctx, cancel := h.renderContext(r)
	defer cancel()
	page.Layout = view.NewLayout(inst.LoadNav(ctx))
	page.Refresh = page.Refresh || page.Pending
	page.RefreshURL = "/signup"
	h.renderer.Render(w, http.StatusOK, view.PageSignup, page)
}
