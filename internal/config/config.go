// Package config provides functionality for managing configuration options
// for the client and the stub server using command-line flags, a JSON config
// file, a .env file and environment variables.
//
// Precedence, lowest first: defaults, config file, flags, environment.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Session store kinds accepted by -store.
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// ClientOptions holds the configuration values of the terminal client.
type ClientOptions struct {
	// BaseURL is the API root, e.g. https://api.jeepedia.in/.
	BaseURL string `json:"base_url"`
	// Store selects the session store backend.
	Store string `json:"store"`
	// StoreDSN is the database source for the sqlite and postgres stores.
	StoreDSN string `json:"store_dsn"`
	// SessionFile is the path of the file store document.
	SessionFile string `json:"session_file"`
	// SessionKey, when set, seals the token at rest.
	SessionKey string `json:"session_key"`
	// Profile names the session row in SQL stores, allowing several accounts.
	Profile string `json:"profile"`
	// CAFile is an optional PEM bundle trusted in addition to system roots.
	CAFile string `json:"ca_file"`
	// Timeout bounds every HTTP request.
	Timeout time.Duration `json:"-"`
	// TimeoutRaw mirrors Timeout in the JSON config file ("15s").
	TimeoutRaw string `json:"timeout"`
	// LogLevel is a zap level name.
	LogLevel string `json:"log_level"`
	// Config is the path to the JSON config file.
	Config string `json:"-"`
	// ShowVersion prints build metadata and exits.
	ShowVersion bool `json:"-"`
}

// ServerOptions holds the configuration values of the stub API server.
type ServerOptions struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"port"`
	// JWTSecret signs issued bearer tokens.
	JWTSecret string `json:"jwt_secret"`
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration `json:"-"`
	// PaymentSecret signs checkout confirmations.
	PaymentSecret string `json:"payment_secret"`
	// TLSDir, when set, serves HTTPS with the development certificates in
	// that directory, creating them if needed.
	TLSDir string `json:"tls_dir"`
	// LogLevel is a zap level name.
	LogLevel string `json:"log_level"`
	// Config is the path to the JSON config file.
	Config string `json:"-"`
}

// DefaultSessionFile returns $XDG_CONFIG_HOME/jeepedia/session.json or its
// platform equivalent.
func DefaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "session.json"
	}
	return filepath.Join(dir, "jeepedia", "session.json")
}

// ParseClient parses args (without the program name) into ClientOptions.
func ParseClient(args []string) (*ClientOptions, error) {
	loadDotEnv()

	opts := &ClientOptions{}
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.StringVar(&opts.BaseURL, "url", "http://localhost:8080/", "API base URL")
	fs.StringVar(&opts.Store, "store", StoreFile, "session store: file | sqlite | postgres | memory")
	fs.StringVar(&opts.StoreDSN, "store-dsn", "", "database source for sqlite/postgres stores")
	fs.StringVar(&opts.SessionFile, "session-file", DefaultSessionFile(), "path of the session file")
	fs.StringVar(&opts.SessionKey, "session-key", "", "key used to seal the token at rest")
	fs.StringVar(&opts.Profile, "profile", "default", "session profile name")
	fs.StringVar(&opts.CAFile, "ca", "", "path to an extra CA bundle")
	fs.DurationVar(&opts.Timeout, "timeout", 15*time.Second, "HTTP request timeout")
	fs.StringVar(&opts.LogLevel, "log-level", "warn", "log level")
	fs.StringVar(&opts.Config, "config", "", "path to config file")
	fs.StringVar(&opts.Config, "c", "", "path to config file (shorthand)")
	fs.BoolVar(&opts.ShowVersion, "version", false, "show build version and date")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		opts.Config = configPath
	}
	if opts.Config != "" {
		if err := loadFile(opts.Config, opts); err != nil {
			return nil, err
		}
		// flags given explicitly win over the file
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if opts.TimeoutRaw != "" && !isSet(fs, "timeout") {
			d, err := time.ParseDuration(opts.TimeoutRaw)
			if err != nil {
				return nil, fmt.Errorf("config timeout: %w", err)
			}
			opts.Timeout = d
		}
	}

	if v := os.Getenv("JEEPEDIA_API_URL"); v != "" {
		opts.BaseURL = v
	}
	if v := os.Getenv("JEEPEDIA_STORE"); v != "" {
		opts.Store = v
	}
	if v := os.Getenv("JEEPEDIA_STORE_DSN"); v != "" {
		opts.StoreDSN = v
	}
	if v := os.Getenv("JEEPEDIA_SESSION_KEY"); v != "" {
		opts.SessionKey = v
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks option combinations that flags alone cannot express.
func (o *ClientOptions) Validate() error {
	if o.BaseURL == "" {
		return errors.New("base URL is required")
	}
	switch o.Store {
	case StoreFile:
		if o.SessionFile == "" {
			return errors.New("session file is required for the file store")
		}
	case StoreSQLite:
		if o.StoreDSN == "" {
			o.StoreDSN = filepath.Join(filepath.Dir(o.SessionFile), "session.db")
		}
	case StorePostgres:
		if o.StoreDSN == "" {
			return errors.New("store DSN is required for the postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", o.Store)
	}
	if o.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

// ParseServer parses args (without the program name) into ServerOptions.
func ParseServer(args []string) (*ServerOptions, error) {
	loadDotEnv()

	opts := &ServerOptions{}
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&opts.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&opts.JWTSecret, "jwt-secret", "dev-secret-change-me", "secret used to sign bearer tokens")
	fs.DurationVar(&opts.TokenTTL, "token-ttl", 24*time.Hour, "issued token lifetime")
	fs.StringVar(&opts.PaymentSecret, "payment-secret", "dev-payment-secret", "secret used to sign payments")
	fs.StringVar(&opts.TLSDir, "tls-dir", "", "serve HTTPS with dev certificates from this directory")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&opts.Config, "config", "", "path to config file")
	fs.StringVar(&opts.Config, "c", "", "path to config file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		opts.Config = configPath
	}
	if opts.Config != "" {
		if err := loadFile(opts.Config, opts); err != nil {
			return nil, err
		}
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}
	if dir := os.Getenv("TLS_DIR"); dir != "" {
		opts.TLSDir = dir
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		opts.Port = serverAddress
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		opts.JWTSecret = secret
	}
	if opts.JWTSecret == "" {
		return nil, errors.New("JWT secret is required")
	}
	return opts, nil
}

// loadDotEnv reads .env from the working directory when present. Variables
// already set in the environment are not overridden.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

func loadFile(path string, dst any) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error while reading config file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
