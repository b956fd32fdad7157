package main

import (
	"github.com/ggorockee/partfinder/internal/config"
	"github.com/ggorockee/partfinder/internal/db"
	"github.com/ggorockee/partfinder/internal/logger"
	"github.com/spf13/cobra"
)

func migrateCMD(cfg func() *config.Config) *cobra.Command {
	var direction string
	var steps int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Migrate(cfg().DB.URL(), direction, steps); err != nil {
				return err
			}
			logger.GetLogger("main").Infof("Migrations applied (%s)", direction)
			return nil
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "up", "up or down")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	return cmd
}
