package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"anibridge/internal/api"
	"anibridge/internal/mapping"
	"anibridge/internal/search"
)

func newQueryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		offset  int
		strict  bool
		explain bool
	)

	cmd := &cobra.Command{
		Use:   "query <query>",
		Short: "Search mappings with the query language",
		Long: `Search mappings with the query language.

Examples:
  anibridge query 'tvdb:328592 | tmdb_show:21298'
  anibridge query 'Dororo year:2019'
  anibridge query 'has:tvdb_mappings -format:movie'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withService(cmd, serviceOptions{}, func(c context.Context, svc *api.Service) error {
				plan, err := svc.ParseAndCompile(c, query)
				if err != nil {
					return err
				}
				if explain {
					fmt.Fprintln(cmd.ErrOrStderr(), plan.Explain())
				}
				result, err := svc.Execute(c, plan, search.Page{Limit: limit, Offset: offset}, search.ExecOptions{Strict: strict})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				printSearchResult(cmd, result)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Rows per page (default from search.default_page_size)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail instead of warning when AniList is unreachable")
	cmd.Flags().BoolVar(&explain, "explain", false, "Print the compiled plan to stderr")
	return cmd
}

func printSearchResult(cmd *cobra.Command, result *api.SearchResult) {
	out := cmd.OutOrStdout()
	for _, w := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	if len(result.Rows) == 0 {
		fmt.Fprintln(out, "No mappings matched")
		return
	}

	rows := make([][]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		var m mapping.Mapping
		if row.Effective != nil {
			m = row.Effective.Mapping
		}
		rows = append(rows, []string{
			strconv.Itoa(row.AniListID),
			row.Title,
			formatIntPtr(m.AniDBID),
			formatIntPtr(m.TVDBID),
			formatIntPtr(m.TMDBShowID),
			formatInts(m.TMDBMovieIDs),
			formatInts(m.MALIDs),
			strings.Join(m.IMDbIDs, ","),
			yesNo(m.Custom),
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"AniList", "Title", "AniDB", "TVDB", "TMDB Show", "TMDB Movie", "MAL", "IMDb", "Custom"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	end := result.Offset + len(result.Rows)
	fmt.Fprintf(out, "Showing %d-%d of %d (%s)\n", result.Offset+1, end, result.Total, result.Strategy)
}
