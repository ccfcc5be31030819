package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"anibridge/internal/api"
	"anibridge/internal/mapping"
)

var providerOrder = []string{
	mapping.ProviderAniDB,
	mapping.ProviderTVDB,
	mapping.ProviderTMDBShow,
	mapping.ProviderTMDBMovie,
	mapping.ProviderMAL,
	mapping.ProviderIMDb,
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the mapping store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, serviceOptions{}, func(c context.Context, svc *api.Service) error {
				stats, err := svc.Stats(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", stats.Database)
				rows := [][]string{
					{"mappings", strconv.Itoa(stats.Mappings)},
					{"custom", strconv.Itoa(stats.Custom)},
					{"overrides", strconv.Itoa(stats.Overrides)},
				}
				for _, p := range providerOrder {
					rows = append(rows, []string{"with " + p, strconv.Itoa(stats.ByProvider[p])})
				}
				fmt.Fprintln(out, renderTable(out, []string{"Count", "Rows"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}
