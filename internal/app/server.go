package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"powplant/config"
	"powplant/internal/metrics"
	"powplant/internal/server/ws"
	"powplant/internal/usecases"
	"powplant/internal/worker"
)

const (
	ErrPowInit   = "failed to initialize pow"
	ErrRunServer = "failed server run"
)

// RunServer started server application
func RunServer(ctx context.Context, configPath string) error {
	cfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger = logger.With("Service", cfg.Server.Name)

	powUsecase, err := usecases.NewPowUsecase()
	if err != nil {
		return fmt.Errorf("%s: %w", ErrPowInit, err)
	}

	pool := worker.NewPool(cfg.Pow.Workers)
	defer pool.Close()
	logger.Info("search workers started", "workers", pool.Size())

	m := metrics.New()

	server := ws.NewServer(
		&ws.Config{
			Address:           cfg.Server.Addr(),
			KeepAlive:         cfg.Server.KeepAlive,
			HandshakeTimeout:  cfg.Server.HandshakeTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			ShutdownTimeout:   cfg.Server.ShutdownTimeout,
			ReadLimit:         cfg.Server.ReadLimit,
			MaxConnections:    cfg.Server.MaxConnections,
			DefaultDifficulty: cfg.Pow.DefaultDifficulty,
			MaxDifficulty:     cfg.Pow.MaxDifficulty,
		},
		powUsecase,
		pool,
		m,
		logger,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Metrics.Addr, m, logger)
		})
	}

	if err = g.Wait(); err != nil {
		return fmt.Errorf("%s: %w", ErrRunServer, err)
	}

	return nil
}

// serveMetrics exposes /metrics on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server started", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
