package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            string        `env:"PORT"                 envDefault:"8080"`
	LogLevel        slog.Level    `env:"LOG_LEVEL"            envDefault:"INFO"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	BatchSize       int           `env:"SUMMARY_BATCH_SIZE"   envDefault:"5"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"     envDefault:"15s"`

	DB         DB         `envPrefix:"DB_"`
	News       News       `envPrefix:"NEWS_"`
	Summarizer Summarizer `envPrefix:"SUMMARIZER_"`
	JWT        JWT        `envPrefix:"JWT_"`
}

type DB struct {
	Driver          string        `env:"DRIVER"            envDefault:"sqlite3"`
	DSN             string        `env:"DSN"               envDefault:"newsrelay.db"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
}

type News struct {
	Provider        string        `env:"PROVIDER"         envDefault:"newsapi"`
	APIKey          string        `env:"API_KEY"`
	BaseURL         string        `env:"BASE_URL"`
	DefaultCountry  string        `env:"DEFAULT_COUNTRY"  envDefault:"us"`
	DefaultCategory string        `env:"DEFAULT_CATEGORY" envDefault:"general"`
	PageSize        int           `env:"PAGE_SIZE"        envDefault:"20"`
	Timeout         time.Duration `env:"TIMEOUT"          envDefault:"10s"`
}

type Summarizer struct {
	Provider        string        `env:"PROVIDER"          envDefault:"gemini"`
	APIKey          string        `env:"API_KEY"`
	Model           string        `env:"MODEL"`
	BaseURL         string        `env:"BASE_URL"`
	Language        string        `env:"LANGUAGE"          envDefault:"English"`
	Temperature     float64       `env:"TEMPERATURE"       envDefault:"0.3"`
	MaxOutputTokens int           `env:"MAX_OUTPUT_TOKENS" envDefault:"256"`
	TopP            float64       `env:"TOP_P"             envDefault:"0.95"`
	TopK            int           `env:"TOP_K"             envDefault:"40"`
	Timeout         time.Duration `env:"TIMEOUT"           envDefault:"25s"`
}

type JWT struct {
	Secret string `env:"SECRET,required,notEmpty"`
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	return parse()
}

func parse() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err = cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	c.News.Provider = strings.ToLower(strings.TrimSpace(c.News.Provider))
	switch c.News.Provider {
	case "newsapi":
		if strings.TrimSpace(c.News.APIKey) == "" {
			errs = append(errs, errors.New("NEWS_API_KEY is required for the newsapi provider"))
		}
	case "rss":
	default:
		errs = append(errs, fmt.Errorf("NEWS_PROVIDER must be newsapi or rss, got %q", c.News.Provider))
	}

	c.Summarizer.Provider = strings.ToLower(strings.TrimSpace(c.Summarizer.Provider))
	switch c.Summarizer.Provider {
	case "gemini", "openai", "anthropic":
		if strings.TrimSpace(c.Summarizer.APIKey) == "" {
			errs = append(errs, fmt.Errorf("SUMMARIZER_API_KEY is required for the %s provider", c.Summarizer.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("SUMMARIZER_PROVIDER must be gemini, openai or anthropic, got %q", c.Summarizer.Provider))
	}

	switch c.DB.Driver {
	case "sqlite3", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite3 or postgres, got %q", c.DB.Driver))
	}

	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("SUMMARY_BATCH_SIZE must be positive, got %d", c.BatchSize))
	}

	return errors.Join(errs...)
}
