package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrNoAuthSecret is returned when neither AUTH_SECRET nor auth.secret is set.
var ErrNoAuthSecret = errors.New("auth secret is not configured: set AUTH_SECRET or auth.secret")

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		// TTL bounds how long answer keys stay cached.
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Answers struct {
		// TTL bounds how long submitted answers stay mirrored in the cache.
		TTL string `yaml:"ttl"`
	} `yaml:"answers"`
	Auth struct {
		Secret   string `yaml:"secret"`
		TokenTTL string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Reminders struct {
		Schedule string `yaml:"schedule"`
	} `yaml:"reminders"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Quiz.TTL = "10m"
	cfg.Answers.TTL = "48h"
	cfg.Auth.TokenTTL = "72h"
	cfg.Reminders.Schedule = "@every 24h"
	return cfg
}

// Load reads YAML config from path over the defaults, then applies .env and
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		cfg.Server.Port = v
	}
	if v, ok := os.LookupEnv("POSTGRES_URL"); ok {
		cfg.Postgres.URL = v
	}
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.Redis.Addr = v
	}
	if v, ok := os.LookupEnv("REDIS_PASSWORD"); ok {
		cfg.Redis.Password = v
	}
	if v, ok := os.LookupEnv("REDIS_DB"); ok {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v, ok := os.LookupEnv("AUTH_SECRET"); ok && v != "" {
		cfg.Auth.Secret = v
	}
}

// AuthSecret returns the token signing secret. There is no built-in default.
func (c Config) AuthSecret() (string, error) {
	if c.Auth.Secret == "" {
		return "", ErrNoAuthSecret
	}
	return c.Auth.Secret, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
