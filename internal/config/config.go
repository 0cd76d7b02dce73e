// Package config provides functionality for managing configuration options
// for the server using command-line flags, a JSON config file, a .env file
// and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Duration is a time.Duration that reads "24h"-style strings from JSON
// and from flags.
type Duration time.Duration

// String implements flag.Value.
func (d *Duration) String() string { return time.Duration(*d).String() }

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalJSON accepts a duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"24h\": %w", err)
	}
	return d.Set(s)
}

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`

	// DatabaseDriver selects the store backend: "postgres" or "sqlite".
	DatabaseDriver string `json:"database_driver"`

	// DatabaseDSN holds the database connection string (a file path for sqlite).
	DatabaseDSN string `json:"database_dsn"`

	// TokenSecret signs bearer tokens. Empty means a random per-process secret.
	TokenSecret string `json:"token_secret"`

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL Duration `json:"token_ttl"`

	// SweepInterval is how often expired revocation entries are removed.
	SweepInterval Duration `json:"sweep_interval"`

	// LogLevel is the zap level name.
	LogLevel string `json:"log_level"`

	// TLSCert and TLSKey enable HTTPS when both are set. Missing files are
	// generated as a self-signed pair.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// defaults returns the options used when nothing overrides them.
func defaults() *Options {
	return &Options{
		Port:           "localhost:8080",
		DatabaseDriver: DriverPostgres,
		TokenTTL:       Duration(24 * time.Hour),
		SweepInterval:  Duration(time.Hour),
		LogLevel:       "info",
	}
}

// Parse parses the process command line and environment to set
// configuration values. A .env file in the working directory, if present,
// is loaded into the environment first. Invalid configuration is fatal.
func Parse() *Options {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ignoring .env: %v", err)
	}

	options, err := ParseArgs(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return options
}

// ParseArgs builds Options from flags registered on fs, then the JSON
// config file, then environment variables looked up with getenv, each
// layer overriding the previous one.
func ParseArgs(fs *flag.FlagSet, args []string, getenv func(string) string) (*Options, error) {
	options := defaults()

	fs.StringVar(&options.Port, "a", options.Port, "run on ip:port server")
	fs.StringVar(&options.DatabaseDriver, "driver", options.DatabaseDriver, "database driver: postgres | sqlite")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address (postgres DSN or sqlite file path)")
	fs.StringVar(&options.TokenSecret, "secret", "", "token signing secret")
	fs.Var(&options.TokenTTL, "token-ttl", "lifetime of issued tokens")
	fs.Var(&options.SweepInterval, "sweep-interval", "interval between revoked token sweeps")
	fs.StringVar(&options.LogLevel, "log-level", options.LogLevel, "log level")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "TLS certificate path")
	fs.StringVar(&options.TLSKey, "tls-key", "", "TLS private key path")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if v := getenv("SERVER_ADDRESS"); v != "" {
		options.Port = v
	}
	if v := getenv("DATABASE_DRIVER"); v != "" {
		options.DatabaseDriver = v
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		options.DatabaseDSN = v
	}
	if v := getenv("TOKEN_SECRET"); v != "" {
		options.TokenSecret = v
	}
	if v := getenv("TOKEN_TTL"); v != "" {
		if err := options.TokenTTL.Set(v); err != nil {
			return nil, fmt.Errorf("TOKEN_TTL: %w", err)
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		options.LogLevel = v
	}
	if v := getenv("TLS_CERT"); v != "" {
		options.TLSCert = v
	}
	if v := getenv("TLS_KEY"); v != "" {
		options.TLSKey = v
	}

	return options, options.Validate()
}

// Validate checks option combinations.
func (o *Options) Validate() error {
	switch o.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown database driver %q", o.DatabaseDriver)
	}
	if o.DatabaseDSN == "" {
		return errors.New("database DSN is required")
	}
	if o.TokenSecret != "" && len(o.TokenSecret) < 16 {
		return errors.New("token secret must be at least 16 characters")
	}
	if o.TokenTTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if o.SweepInterval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("tls cert and key must be set together")
	}
	return nil
}

// TLSEnabled reports whether the server should serve HTTPS.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}
