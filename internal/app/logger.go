package app

import "github.com/tphakala/wildlife-go/internal/logger"

// GetLogger returns the application wiring logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}
