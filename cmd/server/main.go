package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"powplant/config"
	"powplant/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	var configPath string
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Mine proof of work for events sent over WebSocket",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunServer(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultServerConfigPath, "path to the YAML configuration file")

	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
