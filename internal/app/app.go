// Package app wires the catalog store, the iNaturalist clients and the
// resolution services into one runtime shared by the HTTP server and the CLI.
package app

import (
	"fmt"

	"github.com/tphakala/wildlife-go/internal/buildinfo"
	"github.com/tphakala/wildlife-go/internal/conf"
	"github.com/tphakala/wildlife-go/internal/datastore"
	"github.com/tphakala/wildlife-go/internal/datastore/repository"
	"github.com/tphakala/wildlife-go/internal/errors"
	"github.com/tphakala/wildlife-go/internal/identify"
	"github.com/tphakala/wildlife-go/internal/inaturalist"
	"github.com/tphakala/wildlife-go/internal/logger"
	"github.com/tphakala/wildlife-go/internal/observability"
	"github.com/tphakala/wildlife-go/internal/observability/metrics"
	"github.com/tphakala/wildlife-go/internal/species"
	"github.com/tphakala/wildlife-go/internal/vision"
)

// App holds long-lived dependencies. Close releases them in reverse order.
type App struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Metrics  *observability.Metrics

	Store    datastore.Manager
	Taxa     *inaturalist.Client
	Vision   *vision.Client
	Species  *species.Service
	Identify *identify.Service
}

// New opens the catalog store and creates the provider clients and services.
func New(settings *conf.Settings, build *buildinfo.Context) (*App, error) {
	log := GetLogger()

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to initialize metrics: %w", err)).
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}

	a := &App{Settings: settings, Build: build, Metrics: m}

	a.Store, err = datastore.Open(&settings.Database)
	if err != nil {
		return nil, err
	}

	a.Taxa, err = inaturalist.NewClient(inaturalist.Config{
		BaseURL:   settings.INaturalist.TaxaURL,
		UserAgent: settings.INaturalist.UserAgent,
		Timeout:   settings.INaturalist.Timeout,
		CacheTTL:  settings.INaturalist.CacheTTL,
		RateLimit: settings.INaturalist.RateLimit,
		Burst:     settings.INaturalist.Burst,
	}, m.Provider.ForProvider(metrics.ProviderINaturalist))
	if err != nil {
		a.closeQuietly()
		return nil, err
	}

	a.Vision, err = vision.NewClient(vision.Config{
		URL:       settings.INaturalist.VisionURL,
		APIToken:  settings.INaturalist.APIToken,
		UserAgent: settings.INaturalist.UserAgent,
		Timeout:   settings.INaturalist.Timeout,
		RateLimit: settings.INaturalist.RateLimit,
		Burst:     settings.INaturalist.Burst,
	}, m.Provider.ForProvider(metrics.ProviderVision))
	if err != nil {
		a.closeQuietly()
		return nil, err
	}

	repo := repository.NewSpeciesRepository(a.Store.DB())
	a.Species = species.NewService(repo, a.Taxa, species.Config{
		MinQueryLength: settings.Species.FindMinQueryLength,
	}, m.Resolution)
	a.Identify = identify.NewService(a.Vision, m.Resolution)

	log.Info("application initialized",
		logger.String("version", build.GetVersion()),
		logger.String("database", a.Store.Path()),
		logger.Bool("mysql", a.Store.IsMySQL()))

	return a, nil
}

// Close releases network clients and the database connection.
func (a *App) Close() error {
	if a.Vision != nil {
		a.Vision.Close()
	}
	if a.Taxa != nil {
		a.Taxa.Close()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) closeQuietly() {
	if err := a.Close(); err != nil {
		GetLogger().Warn("cleanup after failed initialization", logger.Error(err))
	}
}
