// Package species implements the species find, search and import commands.
package species

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/wildlife-go/internal/app"
	"github.com/tphakala/wildlife-go/internal/buildinfo"
	"github.com/tphakala/wildlife-go/internal/conf"
	"github.com/tphakala/wildlife-go/internal/logger"
	"github.com/tphakala/wildlife-go/internal/species"
)

// Command creates the species command group.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "species",
		Short: "Query and import catalog species",
	}

	cmd.AddCommand(
		findCommand(settings, build),
		searchCommand(settings, build),
		importCommand(settings, build),
	)
	return cmd
}

func findCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "find <name>",
		Short: "Search the catalog and fall back to iNaturalist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(settings, build, func(a *app.App) error {
				entries, err := a.Species.Find(cmd.Context(), strings.Join(args, " "), settings.Species.Find.Clamp(limit))
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), species.Views(entries))
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results")
	return cmd
}

func searchCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <name>",
		Short: "Search the local catalog only",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(settings, build, func(a *app.App) error {
				entries, err := a.Species.Search(cmd.Context(), strings.Join(args, " "), settings.Species.Search.Clamp(limit))
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), species.Views(entries))
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results")
	return cmd
}

func importCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "import <taxon-id>",
		Short: "Import an iNaturalist taxon into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taxonID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid taxon id %q: %w", args[0], err)
			}

			return withApp(settings, build, func(a *app.App) error {
				entry, err := a.Species.ImportByTaxonID(cmd.Context(), taxonID)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), entry.View())
			})
		},
	}
}

// withApp runs fn against a freshly wired application and closes it afterwards.
func withApp(settings *conf.Settings, build *buildinfo.Context, fn func(*app.App) error) error {
	a, err := app.New(settings, build)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Global().Module("cli").Warn("error closing application", logger.Error(err))
		}
	}()
	return fn(a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
