package observability

import "github.com/tphakala/wildlife-go/internal/logger"

// GetLogger returns the observability logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("observability")
}
