package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	GeneratorMock   = "mock"
	GeneratorOpenAI = "openai"
)

type Config struct {
	Port           int
	Bind           string
	Store          string
	DatabaseURL    string
	SessionTTL     time.Duration
	SweepInterval  time.Duration
	Generator      string
	OpenAIKey      string
	OpenAIBaseURL  string
	OpenAIModel    string
	AllowedOrigins []string
	LogLevel       string
	Dev            bool
}

// key -> environment variable
var envKeys = map[string]string{
	"port":            "PORT",
	"bind":            "RAPBATTLE_BIND",
	"store":           "RAPBATTLE_STORE",
	"database_url":    "DATABASE_URL",
	"session_ttl":     "RAPBATTLE_SESSION_TTL",
	"sweep_interval":  "RAPBATTLE_SWEEP_INTERVAL",
	"verse_generator": "RAPBATTLE_VERSE_GENERATOR",
	"openai_api_key":  "OPENAI_API_KEY",
	"openai_base_url": "OPENAI_BASE_URL",
	"openai_model":    "OPENAI_MODEL",
	"allowed_origins": "RAPBATTLE_ALLOWED_ORIGINS",
	"log_level":       "RAPBATTLE_LOG_LEVEL",
	"dev":             "RAPBATTLE_DEV",
}

// Load reads an optional .env file (existing environment variables win) and
// then the process environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	v.SetDefault("port", 3000)
	v.SetDefault("bind", "")
	v.SetDefault("store", StoreMemory)
	v.SetDefault("session_ttl", time.Hour)
	v.SetDefault("sweep_interval", time.Minute)
	v.SetDefault("verse_generator", GeneratorMock)
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("log_level", "info")
	v.SetDefault("dev", false)

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		Port:           v.GetInt("port"),
		Bind:           v.GetString("bind"),
		Store:          strings.ToLower(v.GetString("store")),
		DatabaseURL:    v.GetString("database_url"),
		SessionTTL:     v.GetDuration("session_ttl"),
		SweepInterval:  v.GetDuration("sweep_interval"),
		Generator:      strings.ToLower(v.GetString("verse_generator")),
		OpenAIKey:      v.GetString("openai_api_key"),
		OpenAIBaseURL:  v.GetString("openai_base_url"),
		OpenAIModel:    v.GetString("openai_model"),
		AllowedOrigins: splitList(v.GetString("allowed_origins")),
		LogLevel:       v.GetString("log_level"),
		Dev:            v.GetBool("dev"),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when RAPBATTLE_STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreMemory, StorePostgres)
	}
	switch c.Generator {
	case GeneratorMock:
	case GeneratorOpenAI:
		if c.OpenAIKey == "" {
			return errors.New("OPENAI_API_KEY is required when RAPBATTLE_VERSE_GENERATOR=openai")
		}
	default:
		return fmt.Errorf("unknown verse generator %q (want %s or %s)", c.Generator, GeneratorMock, GeneratorOpenAI)
	}
	if c.SessionTTL <= 0 || c.SweepInterval <= 0 {
		return errors.New("session ttl and sweep interval must be positive")
	}
	if len(c.AllowedOrigins) == 0 {
		return errors.New("at least one allowed origin is required")
	}
	return nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
