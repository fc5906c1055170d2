package species

import "github.com/tphakala/wildlife-go/internal/logger"

// GetLogger returns the species resolution logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("species")
}
