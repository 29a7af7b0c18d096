package fakeapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/csie-vote/voting-web/internal/crypto"
	"github.com/csie-vote/voting-web/internal/model"
)

// DefaultTokenTTL is how long issued access tokens stay valid.
const DefaultTokenTTL = 24 * time.Hour

type contextKey string

const usernameKey contextKey = "username"

// Server is the in-memory backend. Its request counters and holds let tests
// observe and pace backend traffic.
type Server struct {
	store    *store
	secret   string
	tokenTTL time.Duration

	mu    sync.Mutex
	calls map[string]int
	holds map[string]chan struct{}
}

// New creates an empty backend that signs tokens with secret.
func New(secret string) *Server {
	return &Server{
		store:    newStore(),
		secret:   secret,
		tokenTTL: DefaultTokenTTL,
		calls:    make(map[string]int),
		holds:    make(map[string]chan struct{}),
	}
}

// AddUser registers a user directly, bypassing HTTP.
func (s *Server) AddUser(username, email, password string) error {
	return s.store.signup(model.SignupInput{Username: username, Email: email, Password: password})
}

// AddTopic creates a topic directly, bypassing HTTP.
func (s *Server) AddTopic(in model.CreateTopicInput) (model.Topic, error) {
	return s.store.createTopic(in)
}

// Calls returns how many requests reached route, written as method and chi
// pattern, e.g. "POST /vote" or "GET /topic/{id}/my-vote".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Hold makes requests to route block until the returned release func is
// called. Calling release more than once is safe.
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[route] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.holds[route] == ch {
				delete(s.holds, route)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Handler returns the backend's HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	s.route(r, http.MethodGet, "/topic", s.handleListTopics)
	s.route(r, http.MethodPost, "/topic", s.handleCreateTopic)
	s.route(r, http.MethodGet, "/topic/{id}", s.handleGetTopic)
	s.route(r, http.MethodPost, "/auth/token", s.handleToken)
	s.route(r, http.MethodPost, "/user/signup", s.handleSignup)
	s.route(r, http.MethodGet, "/comment", s.handleListComments)

	s.route(r, http.MethodGet, "/me", s.requireUser(s.handleMe))
	s.route(r, http.MethodPost, "/vote", s.requireUser(s.handleCreateVote))
	s.route(r, http.MethodGet, "/topic/{id}/my-vote", s.requireUser(s.handleMyVote))
	s.route(r, http.MethodPost, "/comment", s.requireUser(s.handleCreateComment))

	return r
}

// route registers h and wraps it with the per-route counter and hold.
func (s *Server) route(r chi.Router, method, pattern string, h http.HandlerFunc) {
	name := method + " " + pattern
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		s.calls[name]++
		hold := s.holds[name]
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-req.Context().Done():
				return
			}
		}
		h(w, req)
	}))
}

// requireUser validates the bearer token and stores the username in the
// request context.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || token == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		username, err := crypto.ParseAccessToken(token, s.secret)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if _, ok := s.store.userID(username); !ok {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		ctx := context.WithValue(r.Context(), usernameKey, username)
		next(w, r.WithContext(ctx))
	}
}

func usernameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(usernameKey).(string)
	return name
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.listTopics())
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := s.store.getTopic(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var in model.CreateTopicInput
	if !decodeBody(w, r, &in) {
		return
	}
	topic, err := s.store.createTopic(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form body")
		return
	}
	username := r.PostForm.Get("username")
	if err := s.store.authenticate(username, r.PostForm.Get("password")); err != nil {
		s.writeError(w, err)
		return
	}

	token, err := crypto.IssueAccessToken(username, s.secret, s.tokenTTL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.Token{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in model.SignupInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := s.store.signup(in); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.User{Username: in.Username})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.User{Username: usernameFromContext(r.Context())})
}

func (s *Server) handleCreateVote(w http.ResponseWriter, r *http.Request) {
	var in model.CreateVoteInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := s.store.vote(usernameFromContext(r.Context()), in); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMyVote(w http.ResponseWriter, r *http.Request) {
	vote, err := s.store.myVote(usernameFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.listComments(r.URL.Query().Get("topic_id")))
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var in model.CreateCommentInput
	if !decodeBody(w, r, &in) {
		return
	}
	userID, _ := s.store.userID(usernameFromContext(r.Context()))
	if err := s.store.addComment(userID, in); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps store errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTopicNotFound), errors.Is(err, ErrOptionNotFound), errors.Is(err, ErrVoteNotFound):
		writeDetail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		writeDetail(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrUsernameTaken):
		writeDetail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrUsernameRequired), errors.Is(err, ErrPasswordRequired),
		errors.Is(err, ErrDescriptionEmpty), errors.Is(err, ErrNoOptions), errors.Is(err, ErrContentEmpty):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("fakeapi request failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
