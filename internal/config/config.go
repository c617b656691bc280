// Package config loads service configuration: built-in defaults, then an
// optional YAML file named by CONFIG_FILE, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vrpsolver/internal/opt"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Solver opt.Config   `yaml:"solver"`
	ORS    ORSConfig    `yaml:"ors"`
}

type ServerConfig struct {
	Port          string   `yaml:"port"`
	AppEnv        string   `yaml:"appEnv"`
	LogLevel      string   `yaml:"logLevel"`
	DatabaseURL   string   `yaml:"databaseUrl"`
	DBMigrate     bool     `yaml:"dbMigrate"`
	MigrationsDir string   `yaml:"migrationsDir"`
	RedisURL      string   `yaml:"redisUrl"`
	RateRPS       float64  `yaml:"rateRps"`
	RateBurst     int      `yaml:"rateBurst"`
	AllowOrigins  []string `yaml:"allowOrigins"`
	// TrafficFactor is applied when a request does not carry one.
	TrafficFactor float64 `yaml:"trafficFactor"`
}

// ORSConfig drives route geometry lookups. An empty APIKey disables them.
type ORSConfig struct {
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseUrl"`
	Profile     string        `yaml:"profile"`
	RateRPS     float64       `yaml:"rateRps"`
	Concurrency int           `yaml:"concurrency"`
	CacheTTL    time.Duration `yaml:"cacheTtl"`
	Timeout     time.Duration `yaml:"timeout"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:          "8080",
			AppEnv:        "development",
			LogLevel:      "info",
			DBMigrate:     true,
			MigrationsDir: "db/migrations",
			RateRPS:       10,
			RateBurst:     20,
			AllowOrigins:  []string{"*"},
			TrafficFactor: 1.25,
		},
		Solver: opt.DefaultConfig(),
		ORS: ORSConfig{
			BaseURL:     "https://api.openrouteservice.org",
			Profile:     "driving-car",
			RateRPS:     5,
			Concurrency: 4,
			CacheTTL:    24 * time.Hour,
			Timeout:     20 * time.Second,
		},
	}
}

// Load builds the effective configuration.
func Load() (*Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Solver.Validate(); err != nil {
		return nil, fmt.Errorf("solver config: %w", err)
	}
	if cfg.Server.TrafficFactor <= 0 {
		return nil, fmt.Errorf("server.trafficFactor must be > 0")
	}
	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("PORT", &c.Server.Port)
	str("APP_ENV", &c.Server.AppEnv)
	str("LOG_LEVEL", &c.Server.LogLevel)
	str("DATABASE_URL", &c.Server.DatabaseURL)
	str("REDIS_URL", &c.Server.RedisURL)
	str("ORS_API_KEY", &c.ORS.APIKey)
	str("ORS_BASE_URL", &c.ORS.BaseURL)

	if v := os.Getenv("DB_MIGRATE"); v != "" {
		c.Server.DBMigrate = v != "false"
	}
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowOrigins = origins
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"RATE_RPS", &c.Server.RateRPS},
		{"ORS_RATE_RPS", &c.ORS.RateRPS},
		{"AVG_SPEED_KMH", &c.Solver.AvgSpeedKmh},
		{"TRAFFIC_FACTOR", &c.Server.TrafficFactor},
	}
	for _, f := range floats {
		v := os.Getenv(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = n
	}

	if v := os.Getenv("RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_BURST: %w", err)
		}
		c.Server.RateBurst = n
	}
	if v := os.Getenv("TIME_LIMIT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("TIME_LIMIT_SECONDS must be a positive integer, got %q", v)
		}
		c.Solver.DefaultTimeLimit = time.Duration(n) * time.Second
	}
	return nil
}

// IsProduction reports whether AppEnv names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.AppEnv, "production") || strings.EqualFold(c.Server.AppEnv, "prod")
}
