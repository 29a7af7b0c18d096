// Command devapi serves an in-memory voting backend for local development.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/csie-vote/voting-web/internal/fakeapi"
	"github.com/csie-vote/voting-web/internal/middleware"
	"github.com/csie-vote/voting-web/internal/model"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	port := getEnv("DEVAPI_PORT", "8000")
	secret := getEnv("JWT_SECRET", "")
	if secret == "" {
		secret = "dev-secret-change-me"
		slog.Warn("JWT_SECRET not set, using development default")
	}

	backend := fakeapi.New(secret)
	seed(backend)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           middleware.Logger(backend.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("dev backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down dev backend")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}
}

// seed adds a demo account and topic so the frontend has something to show.
func seed(backend *fakeapi.Server) {
	if err := backend.AddUser("demo", "demo@example.com", "demo"); err != nil {
		slog.Warn("failed to seed demo user", "error", err)
	}

	now := time.Now().UTC()
	_, err := backend.AddTopic(model.CreateTopicInput{
		Description: "Department lunch",
		StartsAt:    now.Format("2006-01-02T15:04"),
		EndsAt:      now.Add(7 * 24 * time.Hour).Format("2006-01-02T15:04"),
		Options: []model.CreateOptionInput{
			{Label: "Beef noodles", Description: "Near the main gate"},
			{Label: "Bento", Description: "Delivered to the lab"},
		},
	})
	if err != nil {
		slog.Warn("failed to seed demo topic", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
