// Platform server - screen capture, text location, and input injection over WebSocket
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deskpilot/platform/internal/capture"
	"github.com/deskpilot/platform/internal/config"
	"github.com/deskpilot/platform/internal/input"
	"github.com/deskpilot/platform/internal/ocr"
	"github.com/deskpilot/platform/internal/screen"
	"github.com/deskpilot/platform/internal/server"
	"github.com/deskpilot/platform/internal/session"
	"github.com/deskpilot/platform/internal/state"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg := config.Load()

	display := screen.NewDisplay()
	if _, err := display.Bounds(); err != nil {
		slog.Error("no capture device available", "error", err)
		os.Exit(1)
	}

	store, err := session.Begin(cfg.ArtifactDir)
	if err != nil {
		slog.Error("failed to start session", "dir", cfg.ArtifactDir, "error", err)
		os.Exit(1)
	}
	slog.Info("session started", "id", store.ID(), "dir", store.Dir())

	st := state.New()
	svc := capture.New(display, st)
	resolver := ocr.New(ocr.NewTesseract(cfg.OCRLanguages...), svc)
	injector := input.New(st)

	srv := server.New(svc, store, resolver, st, injector, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("platform server starting", "http", cfg.HTTPAddr, "session", store.ID())
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
