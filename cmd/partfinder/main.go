package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ggorockee/partfinder/internal/config"
	"github.com/ggorockee/partfinder/internal/logger"
	"github.com/spf13/cobra"
)

func main() {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "partfinder",
		Short:         "Automotive part lookup bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
			return logger.Init(cfg.LogLevel)
		},
	}

	cfgFn := func() *config.Config { return cfg }
	root.AddCommand(botCMD(cfgFn), migrateCMD(cfgFn), searchCMD(cfgFn), ocrCMD(cfgFn))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.GetLogger("main").Error(err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}
