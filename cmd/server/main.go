package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KatariSolutions/NumberGame/internal/config"
	"github.com/KatariSolutions/NumberGame/internal/dice"
	"github.com/KatariSolutions/NumberGame/internal/httpapi"
	"github.com/KatariSolutions/NumberGame/internal/hub"
	"github.com/KatariSolutions/NumberGame/internal/logging"
	"github.com/KatariSolutions/NumberGame/internal/session"
	"github.com/KatariSolutions/NumberGame/internal/store"
	"github.com/KatariSolutions/NumberGame/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Config{Driver: cfg.DBDriver, DSN: cfg.DatabaseURL, Logger: log})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	var gen session.OutcomeGenerator
	if cfg.Seed != 0 {
		gen = dice.NewRoller(cfg.Seed)
	} else if gen, err = dice.NewRandomRoller(); err != nil {
		return err
	}

	h := hub.NewHub(ctx, log)
	defer h.Shutdown()

	eng, err := session.NewEngine(ctx, session.Deps{
		Generator:   gen,
		Activation:  st,
		Store:       st,
		Broadcaster: h,
		Logger:      log,
	}, cfg.SessionOptions())
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	handler := httpapi.SetupRoutes(httpapi.Deps{
		Round: eng,
		Store: st,
		WS: ws.Handler(eng, h, ws.Options{
			OutboxSize:  cfg.OutboxSize,
			ReadTimeout: cfg.ReadTimeout,
			Logger:      log,
		}),
		Logger: log,
	})
	srv := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-eng.Done():
		}
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
