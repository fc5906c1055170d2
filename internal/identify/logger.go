package identify

import "github.com/tphakala/wildlife-go/internal/logger"

// GetLogger returns the identification service logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("identify")
}
