package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"anibridge/internal/api"
	"anibridge/internal/mapping"
)

func newOverrideCommand(ctx *commandContext) *cobra.Command {
	overrideCmd := &cobra.Command{
		Use:   "override",
		Short: "Inspect and edit per-entry overrides",
	}
	overrideCmd.AddCommand(newOverrideShowCommand(ctx))
	overrideCmd.AddCommand(newOverrideSetCommand(ctx))
	overrideCmd.AddCommand(newOverrideDeleteCommand(ctx))
	return overrideCmd
}

func newOverrideShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <anilist-id>",
		Short: "Print the stored override of an entry",
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
				if eff.Override == nil {
					if ctx.jsonOutput() {
						return writeJSON(cmd, nil)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "No override for anilist %d\n", id)
					return nil
				}
				return writeJSON(cmd, eff.Override)
			})
		},
	}
}

func newOverrideSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <anilist-id> <file|->",
		Short: "Replace the override of an entry from a JSON or YAML document",
		Long: `Replace the override of an entry from a JSON or YAML document.

Fields left out keep upstream values, null removes a value, and anything
else replaces it. Season dictionaries are replaced whole. Files ending in
.yaml or .yml are read as YAML; stdin is read as JSON.

Example:
  echo '{"tvdb_id": 328592, "anidb_id": null}' | anibridge override set 101347 -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAniListID(args[0])
			if err != nil {
				return err
			}
			override, err := readOverride(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, serviceOptions{}, func(c context.Context, svc *api.Service) error {
				eff, err := svc.PutOverride(c, id, override)
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

func newOverrideDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <anilist-id>",
		Aliases: []string{"rm"},
		Short:   "Remove the override of an entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAniListID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, serviceOptions{}, func(c context.Context, svc *api.Service) error {
				removed, err := svc.DeleteOverride(c, id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]bool{"removed": removed})
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "No override for anilist %d\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed override for anilist %d\n", id)
				return nil
			})
		},
	}
}

// readOverride decodes an override from path, or stdin when path is "-".
// YAML documents are converted to JSON so the field modes decode the same way.
func readOverride(stdin io.Reader, path string) (mapping.Override, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return mapping.Override{}, fmt.Errorf("read override: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return mapping.Override{}, fmt.Errorf("parse override yaml: %w", err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return mapping.Override{}, fmt.Errorf("convert override yaml: %w", err)
		}
	}

	var o mapping.Override
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&o); err != nil {
		return mapping.Override{}, fmt.Errorf("parse override: %w", err)
	}
	return o, nil
}
