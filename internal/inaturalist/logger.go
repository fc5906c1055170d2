package inaturalist

import "github.com/tphakala/wildlife-go/internal/logger"

// GetLogger returns the taxa client logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("inaturalist")
}
