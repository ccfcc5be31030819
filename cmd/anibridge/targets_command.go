package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"anibridge/internal/api"
	"anibridge/internal/interval"
	"anibridge/internal/mapping"
)

func newTargetsCommand(ctx *commandContext) *cobra.Command {
	targetsCmd := &cobra.Command{
		Use:   "targets",
		Short: "Edit episode-range target edges",
	}
	targetsCmd.AddCommand(newTargetsApplyCommand(ctx))
	return targetsCmd
}

func newTargetsApplyCommand(ctx *commandContext) *cobra.Command {
	var edges []string

	cmd := &cobra.Command{
		Use:   "apply <source> --edge <target>=<range>[:<range>]...",
		Short: "Set or delete target edges of an AniList entry",
		Long: `Set or delete target edges of an AniList entry.

Each --edge maps a source episode range onto a target range. Omitting the
target range deletes the edge for that source range.

Examples:
  anibridge targets apply anilist:101347:tv --edge tvdb:328592:s2=25-36:1-12
  anibridge targets apply anilist:101347:tv --edge tvdb:328592:s1=1-24`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := mapping.ParseDescriptor(args[0])
			if err != nil {
				return err
			}
			deltas, err := parseEdgeFlags(edges)
			if err != nil {
				return err
			}
			return ctx.withService(cmd, serviceOptions{}, func(c context.Context, svc *api.Service) error {
				targets, err := svc.ApplyTargetDeltas(c, source, deltas)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, targets)
				}
				out := cmd.OutOrStdout()
				if len(targets) == 0 {
					fmt.Fprintln(out, "No targets")
					return nil
				}
				fmt.Fprintln(out, renderTable(out, []string{"Target", "Origin", "Source", "Destination"}, targetRows(targets), nil))
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&edges, "edge", "e", nil, "Edge as target=source[:destination]; repeatable")
	_ = cmd.MarkFlagRequired("edge")
	return cmd
}

// parseEdgeFlags groups edge flags by target in first-seen order.
func parseEdgeFlags(values []string) ([]mapping.TargetDelta, error) {
	var deltas []mapping.TargetDelta
	for _, raw := range values {
		targetText, ranges, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("edge %q must look like target=source[:destination]", raw)
		}
		target, err := mapping.ParseDescriptor(targetText)
		if err != nil {
			return nil, fmt.Errorf("edge %q: %w", raw, err)
		}
		srcText, dstText, hasDst := strings.Cut(ranges, ":")
		src, err := interval.Parse(srcText)
		if err != nil {
			return nil, fmt.Errorf("edge %q: %w", raw, err)
		}
		edge := mapping.EdgeDelta{Source: src}
		if hasDst {
			dst, err := interval.Parse(dstText)
			if err != nil {
				return nil, fmt.Errorf("edge %q: %w", raw, err)
			}
			edge.Destination = &dst
		}
		i := slices.IndexFunc(deltas, func(d mapping.TargetDelta) bool { return d.Target == target })
		if i < 0 {
			deltas = append(deltas, mapping.TargetDelta{Target: target})
			i = len(deltas) - 1
		}
		deltas[i].Edges = append(deltas[i].Edges, edge)
	}
	return deltas, nil
}
