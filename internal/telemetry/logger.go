package telemetry

import "github.com/tphakala/wildlife-go/internal/logger"

// GetLogger returns the telemetry logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
