package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "time/tzdata"

	"gopkg.in/natefinch/lumberjack.v2"
)

// traceLevelValue sits below slog.LevelDebug (-4).
const traceLevelValue = slog.Level(-8)

var (
	globalMu sync.Mutex
	global   *CentralLogger
)

// SetGlobal installs cl as the process-wide logger.
func SetGlobal(cl *CentralLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = cl
}

// Global returns the process-wide logger. Before SetGlobal it is an
// info-level console logger.
func Global() *CentralLogger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global == nil {
		global = &CentralLogger{
			config:       &LoggingConfig{DefaultLevel: DefaultLogLevel},
			console:      os.Stdout,
			timezone:     time.Local,
			base:         newTextHandler(os.Stdout, slog.LevelInfo, time.Local),
			moduleLevels: map[string]slog.Level{},
			routes:       map[string]*moduleRoute{},
		}
	}
	return global
}

// CentralLogger hands out module loggers. Each module writes either to the
// shared base handler or, when configured, to its own rotating file.
type CentralLogger struct {
	config   *LoggingConfig
	console  io.Writer
	timezone *time.Location

	mu           sync.RWMutex
	base         slog.Handler
	files        []*lumberjack.Logger
	moduleLevels map[string]slog.Level
	routes       map[string]*moduleRoute
}

// moduleRoute is a module with a dedicated output.
type moduleRoute struct {
	handler slog.Handler
	level   slog.Level
}

// NewCentralLogger builds a logger from cfg, filling unset sections with defaults.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	return newCentralLogger(cfg, os.Stdout)
}

func newCentralLogger(cfg *LoggingConfig, console io.Writer) (*CentralLogger, error) {
	if cfg == nil {
		return nil, errors.New("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	tz, err := loadTimezone(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	cl := &CentralLogger{
		config:       cfg,
		console:      console,
		timezone:     tz,
		moduleLevels: make(map[string]slog.Level, len(cfg.ModuleLevels)),
		routes:       make(map[string]*moduleRoute),
	}
	for module, level := range cfg.ModuleLevels {
		cl.moduleLevels[module] = parseLogLevel(level)
	}

	if cl.base, err = cl.buildBase(); err != nil {
		return nil, err
	}
	if err := cl.buildRoutes(); err != nil {
		_ = cl.Close()
		return nil, err
	}
	return cl, nil
}

func loadTimezone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", name, err)
	}
	return tz, nil
}

func (cl *CentralLogger) consoleEnabled() bool {
	return cl.config.Console != nil && cl.config.Console.Enabled
}

// buildBase combines console text output with the main JSON log file.
func (cl *CentralLogger) buildBase() (slog.Handler, error) {
	var handlers []slog.Handler

	if cl.consoleEnabled() {
		handlers = append(handlers, newTextHandler(cl.console, parseLogLevel(cl.config.Console.Level), cl.timezone))
	}

	if out := cl.config.FileOutput; out != nil && out.Enabled {
		w, err := cl.openFile(out.Path, *out)
		if err != nil {
			return nil, fmt.Errorf("failed to open main log: %w", err)
		}
		handlers = append(handlers, newJSONHandler(w, parseLogLevel(out.Level), cl.timezone))
	}

	if len(handlers) == 0 {
		return newTextHandler(cl.console, parseLogLevel(cl.config.DefaultLevel), cl.timezone), nil
	}
	return combine(handlers), nil
}

// buildRoutes opens the per-module log files.
func (cl *CentralLogger) buildRoutes() error {
	for module, out := range cl.config.ModuleOutputs {
		if !out.Enabled || out.FilePath == "" {
			continue
		}

		w, err := cl.openFile(out.FilePath, rotationFromModule(&out, cl.config.FileOutput))
		if err != nil {
			return fmt.Errorf("failed to open log for module %s: %w", module, err)
		}

		level := cl.levelFor(module)
		if out.Level != "" {
			level = parseLogLevel(out.Level)
		}

		handlers := []slog.Handler{newJSONHandler(w, level, cl.timezone)}
		if out.ConsoleAlso && cl.consoleEnabled() {
			handlers = append(handlers, newTextHandler(cl.console, level, cl.timezone))
		}
		cl.routes[module] = &moduleRoute{handler: combine(handlers), level: level}
	}
	return nil
}

// openFile creates the directory and a lumberjack writer. The file itself
// is created on first write.
func (cl *CentralLogger) openFile(path string, rotation FileOutput) (*lumberjack.Logger, error) {
	if dir := filepath.Dir(path); dir != "." && dir != path {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotation.MaxSize,
		MaxAge:     rotation.MaxAge,
		MaxBackups: rotation.MaxRotatedFiles,
		Compress:   rotation.Compress,
		LocalTime:  true,
	}
	cl.files = append(cl.files, w)
	return w, nil
}

func (cl *CentralLogger) levelFor(module string) slog.Level {
	if level, ok := cl.moduleLevels[module]; ok {
		return level
	}
	return parseLogLevel(cl.config.DefaultLevel)
}

// Module returns the logger for name.
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}

	cl.mu.RLock()
	defer cl.mu.RUnlock()

	if route, ok := cl.routes[name]; ok {
		return &moduleLogger{module: name, logger: slog.New(route.handler), level: route.level}
	}
	return &moduleLogger{module: name, logger: slog.New(cl.base), level: cl.levelFor(name)}
}

// Close closes every log file. Loggers obtained earlier must not be used afterwards.
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	var errs []error
	for _, w := range cl.files {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", w.Filename, err))
		}
	}
	cl.files = nil
	cl.routes = map[string]*moduleRoute{}
	return errors.Join(errs...)
}

func combine(handlers []slog.Handler) slog.Handler {
	if len(handlers) == 1 {
		return handlers[0]
	}
	return newMultiWriterHandler(handlers...)
}
