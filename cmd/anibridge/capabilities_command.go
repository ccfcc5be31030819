package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"anibridge/internal/api"
)

func newCapabilitiesCommand(ctx *commandContext) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:     "capabilities",
		Aliases: []string{"fields"},
		Short:   "List queryable fields and their operators",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, serviceOptions{enums: remote}, func(c context.Context, svc *api.Service) error {
				fields, err := svc.ListFieldCapabilities(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, fields)
				}
				rows := make([][]string, 0, len(fields))
				for _, f := range fields {
					values := strings.Join(f.Values, ",")
					if len(values) > 40 {
						values = fmt.Sprintf("%d values", len(f.Values))
					}
					rows = append(rows, []string{
						f.Key,
						strings.Join(f.Aliases, ","),
						f.Domain,
						f.Type,
						strings.Join(f.Operators, ","),
						values,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out, []string{"Field", "Aliases", "Domain", "Type", "Operators", "Values"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&remote, "anilist", false, "Load genre and tag values from AniList")
	return cmd
}
