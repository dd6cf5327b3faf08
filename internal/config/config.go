package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Storage StorageConfig
	Catalog CatalogConfig
	Log     LogConfig
}

// StorageConfig selects where documents live.
type StorageConfig struct {
	Backend    string
	Root       string
	SQLitePath string `mapstructure:"sqlite_path"`
}

// CatalogConfig points at the item definition files.
type CatalogConfig struct {
	Dir string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

func dataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "satchel")
}

// Load reads configuration from the file named by Path(path) and env. Env var
// overrides use prefix SATCHEL_. A missing file leaves the defaults.
func Load(path string) (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.root", filepath.Join(dataDir(), "documents"))
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir(), "satchel.db"))
	v.SetDefault("catalog.dir", filepath.Join(dataDir(), "items"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", filepath.Join(os.Getenv("HOME"), ".local", "state", "satchel", "satchel.log"))

	v.SetConfigType("toml")
	v.SetConfigFile(Path(path))

	v.SetEnvPrefix("SATCHEL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing config file is fine; a broken one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects unknown backends and log settings.
func (c Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// Path returns the config file used for path: path itself when set, then
// SATCHEL_CONFIG, then ~/.config/satchel/config.toml.
func Path(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("SATCHEL_CONFIG"); env != "" {
		return env
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "satchel", "config.toml")
}

// WriteDefault saves cfg to Path(path) unless a file already exists there.
// It reports whether a file was written.
func WriteDefault(cfg Config, path string) (bool, error) {
	path = Path(path)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := Save(cfg, path); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config, path string) error {
	path = Path(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("storage.backend", cfg.Storage.Backend)
	v.Set("storage.root", cfg.Storage.Root)
	v.Set("storage.sqlite_path", cfg.Storage.SQLitePath)
	v.Set("catalog.dir", cfg.Catalog.Dir)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("log.file", cfg.Log.File)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
