package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (COFFEE_ prefix), flags, or YAML config files.
type Config struct {
	Addr           string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Timezone       string `default:"Local" usage:"IANA time zone for order timestamps and report days"`
	MaxUploadBytes int64  `default:"10485760" usage:"Maximum menu upload size" flag:"max-upload-bytes"`
	Storage        StorageConfig
	Login          LoginConfig
	Session        SessionConfig
	RateLimit      RateLimitConfig
	CORS           CORSConfig
	Graceful       GracefulConfig
}

// StorageConfig selects where orders and accounts are kept.
type StorageConfig struct {
	Driver      string `default:"file" usage:"Storage driver: file or postgres"`
	OrdersFile  string `default:"data/all_orders.xlsx" usage:"Orders table file (.xlsx, .csv or .csv.gz)"`
	UsersFile   string `default:"data/users.xlsx" usage:"Accounts table file (.xlsx, .csv or .csv.gz)"`
	DatabaseURL string `usage:"PostgreSQL connection URL (COFFEE_STORAGE_DATABASE_URL or DATABASE_URL)"`
}

// LoginConfig throttles failed logins per email.
type LoginConfig struct {
	MaxAttempts int           `default:"5" usage:"Login attempts per window and email"`
	Window      time.Duration `default:"1m" usage:"Login throttle window"`
}

// SessionConfig controls login session lifetime.
type SessionConfig struct {
	IdleTTL time.Duration `default:"24h" usage:"Close sessions unused for this long (0 disables)" flag:"session-idle-ttl"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from the command line, environment
// variables and YAML config files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "COFFEE",
		Args:      args,
		Files:     []string{"config.yaml", "/etc/coffee-desk/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided DATABASE_URL and PORT onto
// the COFFEE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.OrdersFile == "" || c.Storage.UsersFile == "" {
			return errors.New("file storage needs both orders and users files")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required: set COFFEE_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Login.MaxAttempts <= 0 || c.Login.Window <= 0 {
		return errors.New("login throttle needs positive attempts and window")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit needs positive max and window")
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", c.Timezone)
	}
	return loc, nil
}
