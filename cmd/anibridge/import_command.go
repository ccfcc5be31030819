package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"anibridge/internal/api"
	"anibridge/internal/dataset"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var prune bool
	var wait bool

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Load upstream mapping files into the store",
		Long: `Load upstream mapping files into the store.

Without arguments the files listed in mappings.upstream_paths are loaded.
Overrides are re-applied to every imported row.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, serviceOptions{}, func(c context.Context, svc *api.Service) error {
				result, err := svc.Import(c, dataset.Options{Paths: args, Prune: prune, Wait: wait})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %d mappings from %d files\n", result.Imported, len(result.Files))
				if result.Pruned > 0 {
					fmt.Fprintf(out, "Pruned %d stale mappings\n", result.Pruned)
				}
				if result.Skipped > 0 {
					fmt.Fprintf(out, "Skipped %d entries with non-numeric keys\n", result.Skipped)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&prune, "prune", false, "Remove upstream rows missing from the imported files")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for a running import instead of failing")
	return cmd
}
