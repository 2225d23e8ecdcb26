package app

import (
	"context"
	"fmt"

	"powplant/config"
	"powplant/internal/client/ws"
	"powplant/internal/usecases"
)

// RunClient started client application
func RunClient(ctx context.Context, envFile string) error {
	cfg, err := config.LoadClientConfig(envFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger = logger.With("Service", cfg.Name)

	client := ws.NewClient(
		&ws.Config{
			ServerAddr:     cfg.ServerAddr,
			ConnectTimeout: cfg.ConnectTimeout,
			RequestTimeout: cfg.RequestTimeout,
			RetryAttempts:  cfg.RetryAttempts,
			RetryDelay:     cfg.RetryDelay,
			Requests:       cfg.Requests,
			TargetPow:      cfg.TargetPow,
			MinPow:         cfg.MinPow,
			Kind:           cfg.Kind,
			Content:        cfg.Content,
			PubKey:         cfg.PubKey,
		},
		usecases.NewVerifierUsecase(),
		logger,
	)
	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	return nil
}
