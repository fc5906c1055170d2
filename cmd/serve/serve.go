// Package serve implements the serve command.
package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/wildlife-go/internal/api"
	"github.com/tphakala/wildlife-go/internal/app"
	"github.com/tphakala/wildlife-go/internal/buildinfo"
	"github.com/tphakala/wildlife-go/internal/conf"
	"github.com/tphakala/wildlife-go/internal/logger"
	"github.com/tphakala/wildlife-go/internal/telemetry"
)

// Command creates the serve command, which runs the HTTP API until SIGINT or SIGTERM.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Start the species resolution and photo identification HTTP API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, build)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		cmd.PrintErrf("error setting up flags: %v\n", err)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Listen, "listen", viper.GetString("webserver.listen"), "Listen address of the HTTP API")
	cmd.Flags().BoolVar(&settings.Metrics.Enabled, "metrics", viper.GetBool("metrics.enabled"), "Serve Prometheus metrics")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func run(cmd *cobra.Command, settings *conf.Settings, build *buildinfo.Context) error {
	log := logger.Global().Module("serve")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := telemetry.InitSentry(settings, build.GetVersion()); err != nil {
		log.Warn("sentry initialization failed, continuing without telemetry", logger.Error(err))
	}
	defer telemetry.Flush()

	a, err := app.New(settings, build)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("error closing application", logger.Error(err))
		}
	}()

	srv, err := api.New(settings, a.Species, a.Identify,
		api.WithMetrics(a.Metrics),
		api.WithVersion(build.GetVersion()))
	if err != nil {
		return err
	}

	log.Info("wildlife service starting",
		logger.String("version", build.GetVersion()),
		logger.String("listen", settings.WebServer.Listen))

	if err := srv.Run(ctx); err != nil {
		return err
	}

	log.Info("wildlife service stopped")
	return nil
}
