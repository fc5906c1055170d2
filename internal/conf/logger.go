package conf

import "github.com/tphakala/wildlife-go/internal/logger"

// GetLogger returns the configuration module logger. It is resolved on each
// call because the central logger is installed after configuration loads.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
