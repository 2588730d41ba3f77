package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/auth"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/canvas"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/collab"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/config"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/db"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/server"
)

// store is what both services need from the database layer.
type store interface {
	auth.UserStore
	canvas.Repository
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var queries store
	if cfg.DatabaseURL == db.MemoryURL {
		slog.Warn("using in-memory store, data is lost on exit")
		queries = db.NewMemory()
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if cfg.MigrateOnStart {
			if err := db.Migrate(ctx, pool); err != nil {
				slog.Error("migrate database", "error", err)
				os.Exit(1)
			}
		}
		queries = db.New(pool)
	}

	authService := auth.NewService(queries, cfg.JWTSecret)
	canvasService := canvas.NewService(queries)

	hub := collab.NewHub()
	canvasService.SetNotifier(hub)
	hubCtx, stopHub := context.WithCancel(ctx)
	go hub.Run(hubCtx)

	r := server.NewRouter(server.Deps{
		Auth:        authService,
		Canvases:    canvasService,
		Hub:         hub,
		Origins:     cfg.Origins(),
		OriginHosts: cfg.OriginHosts(),

		AutosaveInterval: cfg.AutosaveInterval,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		stopHub()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
