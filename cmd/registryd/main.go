// Command registryd runs the development registry server the admin tool
// talks to. It serves the record CRUD API backed by a local SQLite file,
// exchanges Google identity assertions for session credentials, and
// seeds a fresh database with a small sample dataset.
//
// Flags:
//
//	--seed    insert the sample dataset into an empty database (default: true)
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/harunwdi/hrds/internal/app"
	"github.com/harunwdi/hrds/internal/config"
	"github.com/harunwdi/hrds/internal/registryd"
	"github.com/harunwdi/hrds/internal/registryd/store"
	"github.com/harunwdi/hrds/internal/repository"
)

func main() {
	seedFlag := flag.Bool("seed", true, "insert the sample dataset into an empty database")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("invalid server config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)
	logger.Info("starting registryd",
		slog.String("version", app.BuildVersion()),
		slog.String("db_path", cfg.Server.DBPath),
		slog.Int("port", cfg.Server.Port),
	)

	if err := run(cfg, logger, *seedFlag); err != nil {
		logger.Error("registryd failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, seed bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if seed {
		if err := st.Seed(ctx, repository.SamplePersons()); err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
	}

	tokens := registryd.NewJWTManager(cfg.Server.JWTSecret, cfg.Server.JWTIssuer, cfg.Server.SessionTTL)
	srv := registryd.NewServer(st, tokens, logger, registryd.Options{
		GoogleAudience: cfg.Server.GoogleClientID,
		AllowedOrigins: "*",
	})
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("listening", slog.String("addr", httpSrv.Addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}
