package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	BackendPostgres = "postgres"
	BackendStatic   = "static"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	BaseURL       string `env:"BASE_URL"`
	ClientID      string `env:"CLIENT_ID"`
	ClientSecret  string `env:"CLIENT_SECRET"`
	RequestSecret string `env:"REQUEST_SECRET"`

	DirectoryBackend  string        `env:"DIRECTORY_BACKEND" default:"postgres"`
	DatabaseURL       string        `env:"DATABASE_URL"`
	BroadcastersFile  string        `env:"BROADCASTERS_FILE"`
	RedisURL          string        `env:"REDIS_URL"`
	DirectoryCacheTTL time.Duration `env:"DIRECTORY_CACHE_TTL" default:"5m"`
	DedupWindow       time.Duration `env:"EVENTSUB_DEDUP_WINDOW" default:"10m"`

	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" default:"10s"`
	DispatchTimeout   time.Duration `env:"DISPATCH_TIMEOUT" default:"15s"`

	TwitchTokenURL   string `env:"TWITCH_TOKEN_URL" default:"https://id.twitch.tv/oauth2/token"`
	TwitchAPIBaseURL string `env:"TWITCH_API_BASE_URL" default:"https://api.twitch.tv/helix"`

	DiscordInviteURL string `env:"DISCORD_INVITE_URL" default:"https://discord.gg/VvE5ucuJmW"`
	GitHubURL        string `env:"GITHUB_URL" default:"https://github.com/OtterDevelopment/twitch-hook"`

	AdminRateLimit float64 `env:"ADMIN_RATE_LIMIT" default:"1"`
	AdminRateBurst int     `env:"ADMIN_RATE_BURST" default:"5"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// CallbackURL is the EventSub webhook callback registered with Twitch.
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/callback"
}

func validate(cfg *Config) error {
	required := []struct{ name, value string }{
		{"BASE_URL", cfg.BaseURL},
		{"CLIENT_ID", cfg.ClientID},
		{"CLIENT_SECRET", cfg.ClientSecret},
		{"REQUEST_SECRET", cfg.RequestSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BASE_URL must be an absolute http(s) URL, got %q", cfg.BaseURL)
	}

	// Twitch rejects EventSub secrets outside this range.
	if len(cfg.RequestSecret) < 10 || len(cfg.RequestSecret) > 100 {
		return errors.New("REQUEST_SECRET must be between 10 and 100 characters")
	}

	switch cfg.DirectoryBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when DIRECTORY_BACKEND=postgres")
		}
		if err := validateSSLMode(cfg); err != nil {
			return err
		}
	case BackendStatic:
		if cfg.BroadcastersFile == "" {
			return errors.New("BROADCASTERS_FILE is required when DIRECTORY_BACKEND=static")
		}
	default:
		return fmt.Errorf("DIRECTORY_BACKEND must be %q or %q, got %q", BackendPostgres, BackendStatic, cfg.DirectoryBackend)
	}

	return nil
}

func validateSSLMode(cfg *Config) error {
	if cfg.AppEnv != "production" {
		return nil
	}
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}
