package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/maloquacious/thoughtdb/internal/store"
	"golang.org/x/mod/semver"
)

// DefaultConfigFile is read from the working directory when present.
const DefaultConfigFile = "thoughtdb.toml"

// Config holds the initializer's configuration.
type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Visualizer VisualizerConfig `toml:"visualizer"`
	Output     OutputConfig     `toml:"output"`
	Logging    LoggingConfig    `toml:"logging"`
	AppInfo    AppInfoConfig    `toml:"app_info"`
}

// DatabaseConfig holds the database file location.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// VisualizerConfig describes the env file consumed by the companion viewer.
type VisualizerConfig struct {
	Dir     string `toml:"dir"`
	EnvFile string `toml:"env_file"`
	EnvVar  string `toml:"env_var"`
}

// OutputConfig holds the connection-info file location.
type OutputConfig struct {
	ConnectionFile string `toml:"connection_file"`
}

// LoggingConfig holds the logging configuration.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// AppInfoConfig holds the values written to the four app_info rows.
type AppInfoConfig struct {
	ProjectName string `toml:"project_name"`
	Version     string `toml:"version"`
	Author      string `toml:"author"`
	Description string `toml:"description"`
}

// Default returns the configuration used when no file or overrides are given.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: store.DefaultDBFile},
		Visualizer: VisualizerConfig{
			Dir:     store.DefaultVisualizerDir,
			EnvFile: store.DefaultVisualizerEnvFile,
			EnvVar:  store.DefaultVisualizerEnvVar,
		},
		Output:  OutputConfig{ConnectionFile: store.DefaultConnectionFile},
		Logging: LoggingConfig{Level: "info"},
		AppInfo: AppInfoConfig{
			ProjectName: "thought_database",
			Version:     "0.1.0",
			Author:      "John Doe",
			Description: "",
		},
	}
}

// LoadConfig loads the configuration from a TOML file on top of the defaults.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides configuration values from THOUGHTDB_* variables.
func (c *Config) ApplyEnv(getEnv func(string) string) {
	if v := getEnv("THOUGHTDB_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := getEnv("THOUGHTDB_VISUALIZER_DIR"); v != "" {
		c.Visualizer.Dir = v
	}
	if v := getEnv("THOUGHTDB_CONNECTION_FILE"); v != "" {
		c.Output.ConnectionFile = v
	}
	if v := getEnv("THOUGHTDB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getEnv("THOUGHTDB_AUTHOR"); v != "" {
		c.AppInfo.Author = v
	}
}

// Validate checks that every path is set and the seed version is semantic.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Database.Path) == "" {
		missing = append(missing, "database.path")
	}
	if strings.TrimSpace(c.Visualizer.Dir) == "" {
		missing = append(missing, "visualizer.dir")
	}
	if strings.TrimSpace(c.Visualizer.EnvFile) == "" {
		missing = append(missing, "visualizer.env_file")
	}
	if strings.TrimSpace(c.Visualizer.EnvVar) == "" {
		missing = append(missing, "visualizer.env_var")
	}
	if strings.TrimSpace(c.Output.ConnectionFile) == "" {
		missing = append(missing, "output.connection_file")
	}
	if len(missing) > 0 {
		return fmt.Errorf("configuration error: empty %s", strings.Join(missing, ", "))
	}
	if !semver.IsValid("v" + c.AppInfo.Version) {
		return fmt.Errorf("configuration error: app_info.version %q is not a semantic version", c.AppInfo.Version)
	}
	return nil
}

// Entries returns the app_info rows keyed by their fixed ids 1-4.
func (a AppInfoConfig) Entries() []store.AppInfoEntry {
	return []store.AppInfoEntry{
		{ID: 1, Key: store.KeyProjectName, Value: a.ProjectName},
		{ID: 2, Key: store.KeyVersion, Value: a.Version},
		{ID: 3, Key: store.KeyAuthor, Value: a.Author},
		{ID: 4, Key: store.KeyDescription, Value: a.Description},
	}
}
