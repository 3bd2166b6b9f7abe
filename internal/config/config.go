package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/assapir/alma/internal/platform"
)

type Config struct {
	RegistryRoot      string     `yaml:"registry_root"`
	MountsFile        string     `yaml:"mounts_file"`
	MountSource       string     `yaml:"mount_source"`
	DevDir            string     `yaml:"dev_dir"`
	AllowNonRemovable bool       `yaml:"allow_non_removable"`
	Logs              LogsConfig `yaml:"logs"`
}

type LogsConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

var (
	ConfigDir  = "/etc/alma"
	ConfigFile = filepath.Join(ConfigDir, "config.yaml")
	config     = Default()
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		RegistryRoot: platform.DefaultRegistryRoot,
		MountsFile:   platform.DefaultMountsFile,
		MountSource:  "proc",
		DevDir:       platform.DefaultDevDir,
		Logs: LogsConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// InitConfig loads path (ConfigFile when empty) over the defaults. A missing
// file is not an error and nothing is written.
func InitConfig(path string) error {
	if path == "" {
		path = ConfigFile
	}

	cfg, err := Load(path)
	if err != nil {
		return err
	}
	config = cfg
	return nil
}

// Load reads and validates a config file. Unset keys keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return nil, fmt.Errorf("unable to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config file %s is corrupted: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.MountSource {
	case "proc", "gopsutil":
	default:
		return fmt.Errorf("mount_source must be proc or gopsutil, got %q", c.MountSource)
	}
	switch c.Logs.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logs.Level)
	}
	switch c.Logs.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logs.Format)
	}
	if c.RegistryRoot == "" || c.DevDir == "" {
		return errors.New("registry_root and dev_dir must be set")
	}
	return nil
}

func GetConfig() *Config {
	return config
}

// SaveConfig writes cfg to path, creating the parent directory.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = ConfigFile
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
