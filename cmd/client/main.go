package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"powplant/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	var envFile string
	cmd := &cobra.Command{
		Use:           "client",
		Short:         "Ask a powplant server to mine events and verify the results",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunClient(cmd.Context(), envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file loaded into the environment before reading configuration")

	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("failed to run client: %v", err)
	}
}
