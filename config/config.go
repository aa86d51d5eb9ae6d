package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Dzaakk/playtime-gateway/internal/vendor"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageDynamo = "dynamodb"
	StorageSQLite = "sqlite"
)

// Platform holds one vendor's credentials and endpoint override.
type Platform struct {
	APIKey       string `env:"API_KEY"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	BaseURL      string `env:"API_BASE_URL"`
}

func (p Platform) Credentials() vendor.Credentials {
	return vendor.Credentials{APIKey: p.APIKey, ClientID: p.ClientID, ClientSecret: p.ClientSecret}
}

func (p Platform) BaseURLOr(def string) string {
	if p.BaseURL != "" {
		return p.BaseURL
	}
	return def
}

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL"   envDefault:"info"`

	StorageType    string `env:"STORAGE_TYPE"     envDefault:"memory"`
	CacheType      string `env:"CACHE_TYPE"       envDefault:"memory"`
	UseDynamoCache bool   `env:"USE_DYNAMO_CACHE"`
	// CacheTTLSeconds is whole seconds, matching the deployed CACHE_TTL.
	CacheTTLSeconds int `env:"CACHE_TTL" envDefault:"60"`

	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW"  envDefault:"1m"`
	RateLimitMax     int           `env:"RATE_LIMIT_MAX"     envDefault:"10"`
	RateLimitAtomic  bool          `env:"RATE_LIMIT_ATOMIC"`
	RateLimiterTable string        `env:"RATE_LIMITER_TABLE" envDefault:"gaming-playtime-tracker-rate-limits"`
	CacheTable       string        `env:"CACHE_TABLE"        envDefault:"gaming-playtime-tracker-cache"`

	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`

	AWSRegion      string `env:"AWS_REGION"        envDefault:"us-east-1"`
	DynamoEndpoint string `env:"DYNAMODB_ENDPOINT"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"playtime.db"`

	TrustForwardedFor bool     `env:"TRUST_FORWARDED_FOR"`
	RoutedPlatforms   []string `env:"ROUTED_PLATFORMS" envSeparator:"," envDefault:"steam,riot,xbox,playstation,epic,nintendo"`

	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
	VendorRPS       float64       `env:"VENDOR_RPS"       envDefault:"20"`
	VendorBurst     int           `env:"VENDOR_BURST"     envDefault:"5"`

	Steam       Platform `envPrefix:"STEAM_"`
	Riot        Platform `envPrefix:"RIOT_"`
	Xbox        Platform `envPrefix:"XBOX_"`
	PlayStation Platform `envPrefix:"PLAYSTATION_"`
	Epic        Platform `envPrefix:"EPIC_"`
	Nintendo    Platform `envPrefix:"NINTENDO_"`
	Roblox      Platform `envPrefix:"ROBLOX_"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.StorageType = strings.ToLower(strings.TrimSpace(c.StorageType))
	c.CacheType = strings.ToLower(strings.TrimSpace(c.CacheType))
	if c.UseDynamoCache {
		c.CacheType = StorageDynamo
	}

	routed := c.RoutedPlatforms[:0]
	for _, p := range c.RoutedPlatforms {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			routed = append(routed, p)
		}
	}
	c.RoutedPlatforms = routed
}

func (c Config) Validate() error {
	var errs []error

	switch c.StorageType {
	case StorageMemory, StorageRedis, StorageDynamo, StorageSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_TYPE %q", c.StorageType))
	}
	switch c.CacheType {
	case StorageMemory, StorageRedis, StorageDynamo:
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_TYPE %q", c.CacheType))
	}

	if c.CacheTTLSeconds <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.RateLimitMax <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must be positive"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}
	if c.VendorRPS <= 0 || c.VendorBurst <= 0 {
		errs = append(errs, errors.New("VENDOR_RPS and VENDOR_BURST must be positive"))
	}
	if len(c.RoutedPlatforms) == 0 {
		errs = append(errs, errors.New("ROUTED_PLATFORMS must name at least one platform"))
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel))
	}

	return errors.Join(errs...)
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
