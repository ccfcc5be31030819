package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"anibridge/internal/api"
	"anibridge/internal/interval"
	"anibridge/internal/mapping"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <anilist-id>",
		Short: "Show the effective mapping and targets of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAniListID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, serviceOptions{}, func(c context.Context, svc *api.Service) error {
				eff, err := svc.ResolveEffective(c, id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, eff)
				}
				printEffective(cmd.OutOrStdout(), eff)
				return nil
			})
		},
	}
}

func printEffective(out io.Writer, eff *mapping.Effective) {
	fmt.Fprintf(out, "%s\n", mapping.SourceDescriptor(eff.Mapping))
	if len(eff.Mapping.Sources) > 0 {
		fmt.Fprintf(out, "Sources: %s\n", strings.Join(eff.Mapping.Sources, ", "))
	}

	values := fieldValues(eff.Mapping)
	rows := make([][]string, 0, len(values))
	for _, fv := range values {
		origin := eff.FieldOrigins[fv.key]
		if origin == "" {
			origin = mapping.OriginUpstream
		}
		rows = append(rows, []string{fv.key, fv.value, string(origin)})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Field", "Value", "Origin"}, rows, nil))

	if len(eff.Targets) == 0 {
		fmt.Fprintln(out, "No targets")
		return
	}
	fmt.Fprintln(out, renderTable(out, []string{"Target", "Origin", "Source", "Destination"}, targetRows(eff.Targets), nil))
}

func targetRows(targets []mapping.Target) [][]string {
	var rows [][]string
	for _, t := range targets {
		if len(t.Edges) == 0 {
			rows = append(rows, []string{t.Descriptor.String(), string(t.Origin), "", ""})
			continue
		}
		for _, e := range t.Edges {
			rows = append(rows, []string{
				t.Descriptor.String(),
				string(e.Origin),
				e.SourceRange.String(),
				formatDestination(e.DestinationRange),
			})
		}
	}
	return rows
}

func formatDestination(iv *interval.Interval) string {
	if iv == nil {
		return "all"
	}
	return iv.String()
}

type fieldValue struct {
	key   string
	value string
}

func fieldValues(m mapping.Mapping) []fieldValue {
	return []fieldValue{
		{mapping.FieldAniDBID, formatIntPtr(m.AniDBID)},
		{mapping.FieldTVDBID, formatIntPtr(m.TVDBID)},
		{mapping.FieldTMDBShowID, formatIntPtr(m.TMDBShowID)},
		{mapping.FieldTMDBMovieIDs, formatInts(m.TMDBMovieIDs)},
		{mapping.FieldMALIDs, formatInts(m.MALIDs)},
		{mapping.FieldIMDbIDs, strings.Join(m.IMDbIDs, ",")},
		{mapping.FieldTMDBMappings, formatSeasons(m.TMDBMappings)},
		{mapping.FieldTVDBMappings, formatSeasons(m.TVDBMappings)},
	}
}

func formatSeasons(seasons map[string]string) string {
	keys := make([]string, 0, len(seasons))
	for k := range seasons {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + seasons[k]
	}
	return strings.Join(parts, " ")
}
