package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `mapstructure:"default_level" yaml:"default_level"` // level for modules without an override
	Timezone     string            `mapstructure:"timezone" yaml:"timezone"`           // "Local", "UTC" or an IANA name
	Console      *ConsoleOutput    `mapstructure:"console" yaml:"console"`
	FileOutput   *FileOutput       `mapstructure:"file_output" yaml:"file_output"`
	ModuleLevels map[string]string `mapstructure:"module_levels" yaml:"module_levels"` // per-module level overrides
}

// ConsoleOutput configures the human-readable console output.
type ConsoleOutput struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Level   string `mapstructure:"level" yaml:"level"`
}

// FileOutput configures JSON file output for log aggregation.
type FileOutput struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
	Level   string `mapstructure:"level" yaml:"level"`
}

const (
	DefaultLogLevel = "info"
	DefaultLogPath  = "logs/birdnet-ingest.log"
	DefaultTimezone = "Local"
)

// applyConfigDefaults fills nil sections so a sparse config still logs to
// the console.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{Enabled: true, Level: cfg.DefaultLevel}
	}
	if cfg.ModuleLevels == nil {
		cfg.ModuleLevels = make(map[string]string)
	}
}
