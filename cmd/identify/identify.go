// Package identify implements the identify command.
package identify

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/wildlife-go/internal/app"
	"github.com/tphakala/wildlife-go/internal/buildinfo"
	"github.com/tphakala/wildlife-go/internal/conf"
	"github.com/tphakala/wildlife-go/internal/identify"
	"github.com/tphakala/wildlife-go/internal/logger"
)

// Options holds the identify command flags.
type Options struct {
	Latitude   float64
	Longitude  float64
	AutoImport bool
}

// Command creates the identify command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "identify <image>",
		Short: "Identify the organism in a photograph",
		Long:  "Score a local JPG, PNG or WebP photograph with iNaturalist computer vision and optionally import the top candidate.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, closeFile, err := requestFromFile(args[0])
			if err != nil {
				return err
			}
			defer closeFile()

			// A location is only sent when both coordinates were given
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
				req.Latitude = &opts.Latitude
				req.Longitude = &opts.Longitude
			}

			a, err := app.New(settings, build)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Global().Module("cli").Warn("error closing application", logger.Error(err))
				}
			}()

			result := a.Identify.Identify(cmd.Context(), req)
			if opts.AutoImport {
				result = a.Species.ImportTop(cmd.Context(), result)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("identification failed: %s", result.ErrorMessage)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&opts.Latitude, "lat", 0, "Observation latitude")
	cmd.Flags().Float64Var(&opts.Longitude, "lng", 0, "Observation longitude")
	cmd.Flags().BoolVar(&opts.AutoImport, "autoimport", false, "Import the top candidate into the catalog")

	return cmd
}

// requestFromFile opens path as an upload. The caller must call the returned close func.
func requestFromFile(path string) (identify.Request, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return identify.Request{}, nil, fmt.Errorf("failed to open image: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return identify.Request{}, nil, fmt.Errorf("failed to stat image: %w", err)
	}

	closeFile := func() {
		if err := f.Close(); err != nil {
			logger.Global().Module("cli").Debug("failed to close image", logger.Error(err))
		}
	}
	return identify.Request{
		File: &identify.File{Name: info.Name(), Size: info.Size(), Content: f},
	}, closeFile, nil
}
