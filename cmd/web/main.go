package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"

	"github.com/csie-vote/voting-web/internal/api"
	"github.com/csie-vote/voting-web/internal/config"
	"github.com/csie-vote/voting-web/internal/handler"
	"github.com/csie-vote/voting-web/internal/middleware"
	"github.com/csie-vote/voting-web/internal/state"
	"github.com/csie-vote/voting-web/internal/view"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	if cfg.RefreshCommentsAfterPost {
		slog.Info("comment list refresh after posting enabled", "setting", "REFRESH_COMMENTS_AFTER_POST")
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		slog.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	backend := api.New(cfg.APIBaseURL, cfg.APITimeout)
	registry := state.NewRegistry(func(id string) *state.Instance {
		return state.NewInstance(id, backend, state.Options{
			RefreshCommentsAfterPost: cfg.RefreshCommentsAfterPost,
		})
	}, cfg.SessionLifetime)

	sessions := scs.New()
	sessions.Lifetime = cfg.SessionLifetime
	sessions.Cookie.Name = "voting_session"
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode
	sessions.Cookie.Secure = cfg.Env == "production"

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go registry.Run(ctx, time.Minute)

	limiter := middleware.NewLimiter(cfg.LoginRate, cfg.LoginBurst)
	go limiter.Run(ctx, time.Minute)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handler.NewRouter(handler.Options{
			Sessions:     sessions,
			Registry:     registry,
			Renderer:     renderer,
			RenderWait:   cfg.RenderWait,
			LoginLimiter: limiter,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "api", backend.BaseURL())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}
	stop()
	registry.Close()

	slog.Info("server stopped")
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
