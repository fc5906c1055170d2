package vision

import "github.com/tphakala/wildlife-go/internal/logger"

// GetLogger returns the computer-vision client logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("vision")
}
