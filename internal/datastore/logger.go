package datastore

import "github.com/tphakala/wildlife-go/internal/logger"

// GetLogger returns the datastore logger. Set the datastore module to
// "trace" to see every SQL statement.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}
