package main

import (
	"fmt"
	"strings"

	"github.com/ggorockee/partfinder/internal/config"
	"github.com/ggorockee/partfinder/pkg/models"
	"github.com/spf13/cobra"
)

func searchCMD(cfg func() *config.Config) *cobra.Command {
	var city, partType, price, userID string

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run one part lookup and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			defer p.Close()

			res := p.search.SearchQuery(cmd.Context(), userID, models.SearchQuery{
				RawText:  strings.Join(args, " "),
				PartType: models.ParsePartType(partType),
				Price:    models.ParsePriceFilter(price),
				City:     city,
			})

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, strings.Join(res.Blocks, "\n\n"))
			fmt.Fprintf(out, "\n%s\n", res.MarketplaceLink)
			return nil
		},
	}
	cmd.Flags().StringVar(&city, "city", "", "city (default DEFAULT_CITY)")
	cmd.Flags().StringVar(&partType, "type", "any", "part type: any, original, aftermarket, used_oem")
	cmd.Flags().StringVar(&price, "price", "any", "price filter: any, under_5000, 5000_10000, over_10000")
	cmd.Flags().StringVar(&userID, "user", "cli", "user id recorded in search history")

	return cmd
}
