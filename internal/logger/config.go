package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel  string                  `yaml:"default_level" mapstructure:"default_level" json:"default_level"` // default log level for all modules
	Timezone      string                  `yaml:"timezone" mapstructure:"timezone" json:"timezone"`                // "Local", "UTC", or IANA name like "Europe/Helsinki"
	Console       *ConsoleOutput          `yaml:"console" mapstructure:"console" json:"console"`
	FileOutput    *FileOutput             `yaml:"file_output" mapstructure:"file_output" json:"file_output"`
	ModuleOutputs map[string]ModuleOutput `yaml:"modules" mapstructure:"modules" json:"modules"`                   // per-module output configuration
	ModuleLevels  map[string]string       `yaml:"module_levels" mapstructure:"module_levels" json:"module_levels"` // per-module log levels
}

// ConsoleOutput represents console logging configuration.
// Console output uses human-readable text format without timestamps.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Level   string `yaml:"level" mapstructure:"level" json:"level"`
}

// FileOutput represents file logging configuration.
// File output is JSON with RFC3339 timestamps, rotated by size and age.
type FileOutput struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Path            string `yaml:"path" mapstructure:"path" json:"path"`
	MaxSize         int    `yaml:"max_size" mapstructure:"max_size" json:"max_size"`                            // megabytes before rotation
	MaxAge          int    `yaml:"max_age" mapstructure:"max_age" json:"max_age"`                               // days to keep rotated logs (0 = no limit)
	MaxRotatedFiles int    `yaml:"max_rotated_files" mapstructure:"max_rotated_files" json:"max_rotated_files"` // 0 = no limit
	Compress        bool   `yaml:"compress" mapstructure:"compress" json:"compress"`
	Level           string `yaml:"level" mapstructure:"level" json:"level"`
}

// ModuleOutput represents per-module output configuration
type ModuleOutput struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	FilePath        string `yaml:"file_path" mapstructure:"file_path" json:"file_path"`
	Level           string `yaml:"level" mapstructure:"level" json:"level"`
	ConsoleAlso     bool   `yaml:"console_also" mapstructure:"console_also" json:"console_also"`
	MaxSize         int    `yaml:"max_size" mapstructure:"max_size" json:"max_size"` // 0 = use FileOutput value
	MaxAge          int    `yaml:"max_age" mapstructure:"max_age" json:"max_age"`
	MaxRotatedFiles int    `yaml:"max_rotated_files" mapstructure:"max_rotated_files" json:"max_rotated_files"`
	Compress        *bool  `yaml:"compress,omitempty" mapstructure:"compress" json:"compress,omitempty"`
}

// Default values for logging configuration. Keep in sync with conf/defaults.go.
const (
	DefaultLogLevel        = "info"
	DefaultLogPath         = "logs/wildlife.log"
	DefaultAccessLogPath   = "logs/access.log"
	DefaultProviderLogPath = "logs/providers.log"
	DefaultMaxSize         = 100 // MB before rotation
	DefaultMaxAge          = 30  // days to keep rotated files
	DefaultMaxRotatedFiles = 10
	DefaultCompressLogs    = false
	DefaultConsoleEnabled  = true
	DefaultFileEnabled     = true
)

func ensureModuleOutput(cfg *LoggingConfig, module, filePath string) {
	if _, exists := cfg.ModuleOutputs[module]; !exists {
		cfg.ModuleOutputs[module] = ModuleOutput{
			Enabled:  true,
			FilePath: filePath,
			Level:    DefaultLogLevel,
		}
	}
}

// applyConfigDefaults fills nil sections so that configs written by older
// versions keep console and file logging enabled.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}

	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}

	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{
			Enabled: DefaultConsoleEnabled,
			Level:   DefaultLogLevel,
		}
	}

	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{
			Enabled:         DefaultFileEnabled,
			Path:            DefaultLogPath,
			Level:           DefaultLogLevel,
			MaxSize:         DefaultMaxSize,
			MaxAge:          DefaultMaxAge,
			MaxRotatedFiles: DefaultMaxRotatedFiles,
			Compress:        DefaultCompressLogs,
		}
	}

	if cfg.ModuleOutputs == nil {
		cfg.ModuleOutputs = make(map[string]ModuleOutput)

		// Request logs and provider traffic get their own files
		ensureModuleOutput(cfg, "api", DefaultAccessLogPath)
		ensureModuleOutput(cfg, "inaturalist", DefaultProviderLogPath)
		ensureModuleOutput(cfg, "vision", DefaultProviderLogPath)
	}
}

// rotationFromModule merges module rotation overrides over the main file settings.
func rotationFromModule(module *ModuleOutput, base *FileOutput) FileOutput {
	out := FileOutput{
		MaxSize:         DefaultMaxSize,
		MaxAge:          DefaultMaxAge,
		MaxRotatedFiles: DefaultMaxRotatedFiles,
		Compress:        DefaultCompressLogs,
	}
	if base != nil {
		out.MaxSize = base.MaxSize
		out.MaxAge = base.MaxAge
		out.MaxRotatedFiles = base.MaxRotatedFiles
		out.Compress = base.Compress
	}
	if module.MaxSize > 0 {
		out.MaxSize = module.MaxSize
	}
	if module.MaxAge > 0 {
		out.MaxAge = module.MaxAge
	}
	if module.MaxRotatedFiles > 0 {
		out.MaxRotatedFiles = module.MaxRotatedFiles
	}
	if module.Compress != nil {
		out.Compress = *module.Compress
	}
	return out
}
