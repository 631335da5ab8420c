package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/versync/internal/config"
	"github.com/agentstation/versync/pkg/errors"
)

// EnvPrefix prefixes every environment variable versync reads through viper.
const EnvPrefix = "VERSYNC"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Registry and document settings
	Endpoint       string
	Owner          string
	Origin         string
	RegionSelector string
	Token          string
	AuthScheme     string
	PacingInterval time.Duration
	MaxConcurrent  int
	CacheTTL       time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (VERSYNC_*, plus DOOR43_TOKEN)
// 3. .env files
// 4. Config file (~/.versync.yaml or ./.versync.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	viper.SetConfigName(".versync")

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()

	return fromViper()
}

// LoadConfigFile reads path on top of the current sources. Unlike the
// default search, a missing or malformed explicit file is an error.
func LoadConfigFile(path string) (*Config, error) {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.NewConfigError("config file", path, err)
	}
	return fromViper()
}

func fromViper() (*Config, error) {
	token, err := config.GetToken(false)
	if err != nil {
		return nil, err
	}

	return &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no_color"),
		Format:  viper.GetString("format"),

		ConfigFile: viper.ConfigFileUsed(),

		Endpoint:       viper.GetString(config.KeyEndpoint),
		Owner:          viper.GetString(config.KeyOwner),
		Origin:         viper.GetString(config.KeyOrigin),
		RegionSelector: viper.GetString(config.KeyRegionSelector),
		Token:          token,
		AuthScheme:     viper.GetString(config.KeyAuthScheme),
		PacingInterval: config.GetDuration(config.KeyPacingInterval, 0),
		MaxConcurrent:  config.GetInt(config.KeyMaxConcurrent, 0),
		CacheTTL:       config.GetDuration(config.KeyCacheTTL, 0),

		LogLevel:  firstNonEmpty(viper.GetString("log_level"), os.Getenv("LOG_LEVEL")),
		LogFormat: firstNonEmpty(viper.GetString("log_format"), os.Getenv("LOG_FORMAT"), "auto"),
		LogOutput: firstNonEmpty(viper.GetString("log_output"), os.Getenv("LOG_OUTPUT"), "stderr"),
	}, nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = c.NoColor || noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local does not override variables already set by .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
