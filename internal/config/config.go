// Package config loads application configuration (paths, logging, timing)
// from defaults, an optional config file and APOMODORO_* environment
// variables. User-editable timer settings live in the settings package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appName   = "apomodoro"
	envPrefix = "APOMODORO"
)

type Stats struct {
	Backend string `mapstructure:"backend"`
	File    string `mapstructure:"file"`
	DBPath  string `mapstructure:"db_path"`
}

type Sounds struct {
	Dir string `mapstructure:"dir"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type Timer struct {
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	AutostartDelay time.Duration `mapstructure:"autostart_delay"`
}

type Pushover struct {
	Token string `mapstructure:"token"`
	User  string `mapstructure:"user"`
}

// Config is the resolved application configuration. File paths are absolute
// after Load.
type Config struct {
	DataDir      string   `mapstructure:"data_dir"`
	SettingsFile string   `mapstructure:"settings_file"`
	Stats        Stats    `mapstructure:"stats"`
	Sounds       Sounds   `mapstructure:"sounds"`
	Log          Log      `mapstructure:"log"`
	Timer        Timer    `mapstructure:"timer"`
	Pushover     Pushover `mapstructure:"pushover"`

	// ConfigFile is the file that was read, empty when none was found.
	ConfigFile string `mapstructure:"-"`
}

// Options select where configuration is read from.
type Options struct {
	// ConfigFile is an explicit config file. It must exist.
	ConfigFile string
	// DataDir overrides data_dir from every other source.
	DataDir string
	// SearchDir is where config.yaml is looked up when ConfigFile is empty.
	// Defaults to DefaultDir().
	SearchDir string
}

// DefaultDir returns the per-user application directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("settings_file", "settings.json")
	v.SetDefault("stats.backend", "json")
	v.SetDefault("stats.file", "statistics.json")
	v.SetDefault("stats.db_path", "statistics.db")
	v.SetDefault("sounds.dir", "sounds")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "apomodoro.log")
	v.SetDefault("timer.tick_interval", time.Second)
	v.SetDefault("timer.autostart_delay", time.Second)
	v.SetDefault("pushover.token", "")
	v.SetDefault("pushover.user", "")
}

// Load resolves the configuration and validates it.
func Load(opts Options) (*Config, error) {
	defaultDir := opts.SearchDir
	if defaultDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		defaultDir = dir
	}

	v := viper.New()
	setDefaults(v, defaultDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if opts.DataDir != "" {
		v.Set("data_dir", opts.DataDir)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolvePaths() {
	c.DataDir = expandHome(c.DataDir)
	c.SettingsFile = c.resolve(c.SettingsFile)
	c.Stats.File = c.resolve(c.Stats.File)
	c.Stats.DBPath = c.resolve(c.Stats.DBPath)
	c.Sounds.Dir = c.resolve(c.Sounds.Dir)
	c.Log.File = c.resolve(c.Log.File)
}

func (c *Config) resolve(name string) string {
	name = expandHome(name)
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate rejects unknown enum values and non-positive intervals.
func (c *Config) Validate() error {
	switch c.Stats.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("stats.backend: unknown backend %q (want json or sqlite)", c.Stats.Backend)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q (want text or json)", c.Log.Format)
	}
	if c.Timer.TickInterval <= 0 {
		return fmt.Errorf("timer.tick_interval must be positive, got %s", c.Timer.TickInterval)
	}
	if c.Timer.AutostartDelay <= 0 {
		return fmt.Errorf("timer.autostart_delay must be positive, got %s", c.Timer.AutostartDelay)
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	return nil
}

// StatsPath returns the file the configured statistics backend uses.
func (c *Config) StatsPath() string {
	if c.Stats.Backend == "sqlite" {
		return c.Stats.DBPath
	}
	return c.Stats.File
}
