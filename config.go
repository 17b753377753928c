package probe

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/replprobe/replprobe/flags"
	"github.com/replprobe/replprobe/nspath"
)

// ProjectConfig holds the per-project conventions loaded from the project
// config file (eg. 'replprobe.yaml').
type ProjectConfig struct {
	Marker    string `yaml:"marker,omitempty"`    // test marker segment, default "test"
	Pivot     int    `yaml:"pivot,omitempty"`     // pivot index, negative counts from the end
	Extension string `yaml:"extension,omitempty"` // source file extension, default ".clj"
	Filter    string `yaml:"filter,omitempty"`    // default namespace filter
}

// PathConfig converts the project settings into a path-mapper config,
// applying defaults for unset fields.
func (p ProjectConfig) PathConfig() nspath.Config {
	cfg := nspath.DefaultConfig()
	if p.Marker != "" {
		cfg.Marker = p.Marker
	}
	if p.Pivot != 0 {
		cfg.Pivot = p.Pivot
	}
	if p.Extension != "" {
		cfg.Extension = p.Extension
	}
	return cfg
}

// LoadProjectConfig reads the project config file. An empty path yields the
// zero config, which resolves to the conventional defaults.
func LoadProjectConfig(path string) (ProjectConfig, error) {
	var cfg ProjectConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read project config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse project config %s: %w", path, err)
	}
	return cfg, nil
}

// Config holds the application configuration
type Config struct {
	ReplAddr    string        // Address of the remote evaluation channel
	DialTimeout time.Duration // Timeout for connecting to the channel
	RunInterval time.Duration // Interval between test runs
	RunOnce     bool          // Indicates if the service should exit after one test run
	LogDir      string        // Directory to store run reports and raw payloads; "" disables
	Filter      string        // Namespace filter, "" means no filter
	Project     ProjectConfig
	Log         log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	logDir := ctx.String(flags.LogDir.Name)
	if logDir != "" {
		var err error
		logDir, err = filepath.Abs(logDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
		}
	}

	project, err := LoadProjectConfig(ctx.String(flags.ProjectConfig.Name))
	if err != nil {
		return nil, err
	}

	// The flag wins over the project file; either way an empty string is
	// normalized to "no filter".
	filter := ctx.String(flags.Filter.Name)
	if filter == "" {
		filter = project.Filter
	}

	return &Config{
		ReplAddr:    ctx.String(flags.ReplAddr.Name),
		DialTimeout: ctx.Duration(flags.DialTimeout.Name),
		RunInterval: runInterval,
		RunOnce:     runOnce,
		LogDir:      logDir,
		Filter:      filter,
		Project:     project,
		Log:         logger,
	}, nil
}
