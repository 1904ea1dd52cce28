package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentx-labs/cortex/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Config keys.
const (
	KeyRoot            = "root"
	KeyCommandsDir     = "commands_dir"
	KeyTimeout         = "timeout"
	KeyOnScriptFailure = "on_script_failure"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyEnvFile         = "env_file"
	KeyVars            = "vars"
	KeyCacheReferences = "cache_references"
)

// DefaultTimeout bounds a single script section when no timeout is configured.
const DefaultTimeout = 5 * time.Minute

// Settings is the typed view of the merged config file and environment.
type Settings struct {
	Root            string
	CommandsDir     string
	Timeout         time.Duration
	OnScriptFailure string
	LogLevel        string
	LogFormat       string
	EnvFile         string
	Vars            map[string]string
	CacheReferences bool
}

// Dir returns the path to the Cortex config directory (~/.cortex/).
// CORTEX_HOME overrides the location.
func Dir() string {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.cortex/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment and
// returns the resulting settings.
func Load() Settings {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyTimeout, DefaultTimeout)
	viper.SetDefault(KeyOnScriptFailure, "abort")
	viper.SetDefault(KeyLogLevel, "warn")
	viper.SetDefault(KeyLogFormat, "text")

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()

	return Settings{
		Root:            viper.GetString(KeyRoot),
		CommandsDir:     viper.GetString(KeyCommandsDir),
		Timeout:         viper.GetDuration(KeyTimeout),
		OnScriptFailure: viper.GetString(KeyOnScriptFailure),
		LogLevel:        viper.GetString(KeyLogLevel),
		LogFormat:       viper.GetString(KeyLogFormat),
		EnvFile:         viper.GetString(KeyEnvFile),
		Vars:            viper.GetStringMapString(KeyVars),
		CacheReferences: viper.GetBool(KeyCacheReferences),
	}
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
