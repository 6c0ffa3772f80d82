package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"micmd/model"
	"micmd/shortcut"

	"gopkg.in/yaml.v3"
)

const (
	// FilePermissions is the mode for files written under the config directory
	FilePermissions = 0644
	// DirPermissions is the mode for the config directory
	DirPermissions = 0755
)

// Config is the on-disk configuration, ~/.micmd/config.yaml by default.
type Config struct {
	Database          string         `yaml:"database"`
	LogFile           string         `yaml:"log_file"`
	LogLevel          string         `yaml:"log_level"`
	LogJSON           bool           `yaml:"log_json"`
	BannerTTL         time.Duration  `yaml:"banner_ttl"`
	InvokeTimeout     time.Duration  `yaml:"invoke_timeout"`
	Invoker           InvokerConfig  `yaml:"invoker"`
	ReservedShortcuts []string       `yaml:"reserved_shortcuts"`
	Devices           []model.Device `yaml:"devices"`
}

type InvokerConfig struct {
	// Command is a shell template using {{did}}, {{method}} and {{params}}.
	Command string `yaml:"command"`
}

// Dir returns ~/.micmd.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".micmd"), nil
}

// DefaultPath returns ~/.micmd/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func Default() Config {
	return Config{
		Database:          "~/.micmd/commands.db",
		LogFile:           "~/.micmd/micmd.log",
		LogLevel:          "info",
		BannerTTL:         5 * time.Second,
		InvokeTimeout:     30 * time.Second,
		ReservedShortcuts: append([]string(nil), shortcut.DefaultReserved...),
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg.expanded()
	}
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg.expanded()
}

// Save writes cfg to path, creating the parent directory.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, FilePermissions)
}

func (c Config) Validate() error {
	if c.BannerTTL <= 0 {
		return errors.New("banner_ttl must be positive")
	}
	if c.InvokeTimeout <= 0 {
		return errors.New("invoke_timeout must be positive")
	}
	seen := make(map[string]bool)
	for i, d := range c.Devices {
		if d.DID == "" {
			return fmt.Errorf("devices[%d]: did is required", i)
		}
		if seen[d.DID] {
			return fmt.Errorf("devices[%d]: duplicate did %q", i, d.DID)
		}
		seen[d.DID] = true
	}
	return nil
}

// Device returns the configured device with the given did.
func (c Config) Device(did string) (model.Device, bool) {
	for _, d := range c.Devices {
		if d.DID == did {
			return d, true
		}
	}
	return model.Device{}, false
}

func (c Config) expanded() (Config, error) {
	var err error
	if c.Database, err = ExpandHome(c.Database); err != nil {
		return c, err
	}
	if c.LogFile, err = ExpandHome(c.LogFile); err != nil {
		return c, err
	}
	return c, nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
