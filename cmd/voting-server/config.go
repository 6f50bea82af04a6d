package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lfavole/voting/internal"
)

const (
	defaultAPIHost   = "0.0.0.0"
	defaultAPIPort   = 9090
	defaultDBType    = "pebble"
	defaultLogLevel  = "info"
	defaultLogOutput = "stdout"
	defaultDatadir   = ".voting" // Will be prefixed with user's home directory
)

// Version is the build version, set at build time with -ldflags
var Version = internal.Version

// Config holds the application configuration
type Config struct {
	API     APIConfig
	DB      DBConfig
	Auth    AuthConfig
	Log     LogConfig
	Datadir string
}

// APIConfig holds the API-specific configuration
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DBConfig holds the key-value store configuration
type DBConfig struct {
	Type string `mapstructure:"type"`
}

// AuthConfig holds the bearer-token secrets
type AuthConfig struct {
	Secret     string `mapstructure:"secret"`
	AdminToken string `mapstructure:"admintoken"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// loadConfig loads configuration from flags, environment variables, and defaults
func loadConfig() (*Config, error) {
	v := viper.New()

	// Get user's home directory for default datadir
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	defaultDatadirPath := filepath.Join(userHomeDir, defaultDatadir)

	v.SetDefault("api.host", defaultAPIHost)
	v.SetDefault("api.port", defaultAPIPort)
	v.SetDefault("db.type", defaultDBType)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)
	v.SetDefault("datadir", defaultDatadirPath)

	// Configure flags
	flag.StringP("api.host", "a", defaultAPIHost, "API host")
	flag.IntP("api.port", "p", defaultAPIPort, "API port")
	flag.String("db.type", defaultDBType, "key-value store backend (pebble, mongodb or inmemory)")
	flag.StringP("auth.secret", "s", "", "shared secret voter bearer tokens are minted from (required)")
	flag.String("auth.admintoken", "", "bearer token for election administration (empty disables it)")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error, fatal)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")
	flag.StringP("datadir", "d", defaultDatadirPath, "data directory for database files")

	// Configure usage information
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "voting-server v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: voting-server [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dashes (-) and dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, VOTING_AUTH_SECRET or VOTING_API_HOST\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Start with default settings\n")
		fmt.Fprintf(os.Stderr, "  voting-server --auth.secret=changeme\n\n")
		fmt.Fprintf(os.Stderr, "  # Start with the administrative surface enabled\n")
		fmt.Fprintf(os.Stderr, "  voting-server --auth.secret=changeme --auth.admintoken=supersecret\n")
	}

	// Parse flags
	flag.CommandLine.SortFlags = false
	flag.Parse()

	// Configure Viper to use environment variables
	v.SetEnvPrefix("VOTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind flags to Viper
	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	// Unmarshal configuration into struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

// validateConfig performs validation of the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("auth secret is required (--auth.secret or VOTING_AUTH_SECRET)")
	}
	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		return fmt.Errorf("invalid API port: %d", cfg.API.Port)
	}
	switch cfg.DB.Type {
	case "pebble", "mongodb", "inmemory":
	default:
		return fmt.Errorf("unknown db type %q", cfg.DB.Type)
	}
	return nil
}
