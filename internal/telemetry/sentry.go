// Package telemetry provides privacy-compliant, opt-in error tracking.
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/wildlife-go/internal/conf"
	"github.com/tphakala/wildlife-go/internal/errors"
	"github.com/tphakala/wildlife-go/internal/logger"
)

const flushTimeout = 2 * time.Second

var sentryInitialized atomic.Bool

// InitSentry initializes the Sentry SDK when explicitly enabled and routes
// enhanced errors to it. It is a no-op when Sentry is disabled.
func InitSentry(settings *conf.Settings, version string) error {
	return initSentry(settings, version, nil)
}

// initSentry accepts a transport so tests can capture events.
func initSentry(settings *conf.Settings, version string, transport sentry.Transport) error {
	if !settings.Sentry.Enabled {
		GetLogger().Info("sentry telemetry is disabled (opt-in required)")
		errors.SetTelemetryReporter(nil)
		return nil
	}

	if settings.Sentry.DSN == "" {
		return errors.Newf("sentry is enabled but no DSN is configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		Debug:            settings.Sentry.Debug,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "", // prevent hostname leakage
		Release:          fmt.Sprintf("wildlife-go@%s", version),
		BeforeSend:       beforeSend,
		Transport:        transport,
	})
	if err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	configureScope(version)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	sentryInitialized.Store(true)

	GetLogger().Info("sentry telemetry initialized",
		logger.String("release", version),
		logger.Bool("debug", settings.Sentry.Debug))
	return nil
}

// IsInitialized reports whether Sentry is active.
func IsInitialized() bool {
	return sentryInitialized.Load()
}

// Flush waits for buffered events to be sent.
func Flush() {
	if !sentryInitialized.Load() {
		return
	}
	if !sentry.Flush(flushTimeout) {
		GetLogger().Warn("sentry flush timed out", logger.Duration("timeout", flushTimeout))
	}
}

func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	return applyPrivacyFilters(event)
}

// applyPrivacyFilters strips user, host and device data from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		for _, key := range []string{"device", "os", "runtime"} {
			delete(event.Contexts, key)
		}
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}

func configureScope(version string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":       "wildlife-go",
			"version":    version,
			"go_version": runtime.Version(),
		})
	})
}
