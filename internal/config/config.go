package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read through viper.
const EnvPrefix = "MCS"

// FileName is the optional config file looked up in the binary directory,
// the data path and the working directory.
const FileName = "mcs-portfolio"

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath            string
	LogDir              string
	ReportDir           string
	Trials              int
	Workers             int
	Seed                int64
	Threshold           float64
	EnableMermaidCharts bool
	OtelEnabled         bool
	OtelStdout          bool
	ConfigFile          string // empty when no config file was found
}

// Load loads .env files, then layers defaults, the optional config file and
// MCS_* environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exeDir := ""
	if exePath, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	return load(exeDir)
}

func newViper(exeDir string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dataDefault := exeDir
	if dataDefault == "" {
		dataDefault = "."
	}
	v.SetDefault("data_path", dataDefault)
	v.SetDefault("trials", 10000)
	v.SetDefault("workers", 0)
	v.SetDefault("seed", 0)
	v.SetDefault("threshold", 85.0)
	v.SetDefault("enable_mermaid_charts", false)
	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_stdout", false)

	// Unprefixed names kept for existing .env files.
	_ = v.BindEnv("data_path", "MCS_DATA_PATH", "DATA_PATH")
	_ = v.BindEnv("enable_mermaid_charts", "MCS_ENABLE_MERMAID_CHARTS", "ENABLE_MERMAID_CHARTS")
	return v
}

func load(exeDir string) (*AppConfig, error) {
	v := newViper(exeDir)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		if exeDir != "" {
			v.AddConfigPath(exeDir)
		}
		v.AddConfigPath(v.GetString("data_path"))
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		log.Debug().Str("path", v.ConfigFileUsed()).Msg("Loaded config file")
	}

	dataPath := v.GetString("data_path")
	logDir := filepath.Join(dataPath, "logs")
	reportDir := filepath.Join(dataPath, "reports")
	for _, dir := range []string{logDir, reportDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("Failed to create directory")
		}
	}

	cfg := &AppConfig{
		DataPath:            dataPath,
		LogDir:              logDir,
		ReportDir:           reportDir,
		Trials:              v.GetInt("trials"),
		Workers:             v.GetInt("workers"),
		Seed:                v.GetInt64("seed"),
		Threshold:           v.GetFloat64("threshold"),
		EnableMermaidCharts: v.GetBool("enable_mermaid_charts"),
		OtelEnabled:         v.GetBool("otel_enabled"),
		OtelStdout:          v.GetBool("otel_stdout"),
		ConfigFile:          v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the simulation cannot run with.
func (c *AppConfig) Validate() error {
	if c.Trials < 1 {
		return fmt.Errorf("trials must be at least 1, got %d", c.Trials)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("threshold must be between 0 and 100, got %v", c.Threshold)
	}
	return nil
}
