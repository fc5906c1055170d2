// Package cmd assembles the wildlife command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/wildlife-go/cmd/identify"
	"github.com/tphakala/wildlife-go/cmd/serve"
	"github.com/tphakala/wildlife-go/cmd/species"
	"github.com/tphakala/wildlife-go/internal/buildinfo"
	"github.com/tphakala/wildlife-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wildlife",
		Short:         "Wildlife species resolution service",
		Version:       fmt.Sprintf("%s (built %s)", build.GetVersion(), build.GetBuildDate()),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		rootCmd.PrintErrf("error setting up flags: %v\n", err)
	}

	rootCmd.AddCommand(
		serve.Command(settings, build),
		species.Command(settings, build),
		identify.Command(settings, build),
	)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Database.Type, "dbtype", viper.GetString("database.type"), "Catalog database type (sqlite or mysql)")
	rootCmd.PersistentFlags().StringVar(&settings.Database.SQLite.Path, "dbpath", viper.GetString("database.sqlite.path"), "Path to the SQLite catalog")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
