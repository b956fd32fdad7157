package main

import (
	"context"

	"github.com/ggorockee/partfinder/internal/bot"
	"github.com/ggorockee/partfinder/internal/config"
	"github.com/ggorockee/partfinder/internal/db"
	"github.com/ggorockee/partfinder/internal/handlers"
	"github.com/ggorockee/partfinder/internal/logger"
	"github.com/ggorockee/partfinder/internal/region"
	"github.com/ggorockee/partfinder/internal/session"
	"github.com/spf13/cobra"
)

func botCMD(cfg func() *config.Config) *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the chat bot and the keep-alive HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), cfg(), migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", true, "apply pending migrations before start")

	return cmd
}

func runBot(ctx context.Context, cfg *config.Config, migrateFirst bool) error {
	log := logger.GetLogger("main")

	if migrateFirst {
		if err := db.Migrate(cfg.DB.URL(), "up", 0); err != nil {
			return err
		}
	}

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	sessions, err := session.New(ctx, &cfg.Session, cfg.Catalog.DefaultCity)
	if err != nil {
		return err
	}

	handler := bot.NewHandler(sessions, p.search, p.history, p.extractor, region.New(), cfg.Catalog.DefaultCity)
	discord, err := bot.NewDiscordService(&cfg.Bot, cfg.OCR.TempDir, handler)
	if err != nil {
		return err
	}
	if err := discord.Start(); err != nil {
		return err
	}
	defer func() {
		if err := discord.Stop(); err != nil {
			log.Warnf("Error closing discord session: %v", err)
		}
	}()

	app := handlers.NewApp(p.db)
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Keep-alive server starting on port %s", cfg.Server.Port)
		serverErr <- app.Listen(":" + cfg.Server.Port)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, cleaning up...")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	if err := app.Shutdown(); err != nil {
		log.Warnf("Error shutting down server: %v", err)
	}
	return nil
}
