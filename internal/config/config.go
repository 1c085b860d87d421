package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds runtime settings read from the environment.
type Config struct {
	AppEnv    string `env:"APP_ENV" env-default:"development"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`

	APIBaseURL        string        `env:"API_BASE_URL" env-default:"http://localhost:5000/api"`
	APITimeout        time.Duration `env:"API_TIMEOUT" env-default:"30s"`
	DashboardCacheTTL time.Duration `env:"DASHBOARD_CACHE_TTL" env-default:"1m"`

	StateDriver     string `env:"STATE_DRIVER" env-default:"sqlite"`
	StateSQLitePath string `env:"STATE_SQLITE_PATH" env-default:"data/state.db"`
	DatabaseURL     string `env:"DATABASE_URL"`
	DatabaseSchema  string `env:"DATABASE_SCHEMA" env-default:"public"`
	StateProfile    string `env:"STATE_PROFILE" env-default:"default"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`
	RedisTLS      bool   `env:"REDIS_TLS" env-default:"false"`

	MetricsNamespace string `env:"METRICS_NAMESPACE" env-default:"renewdesk"`
	HTTPListenAddr   string `env:"HTTP_LISTEN_ADDR" env-default:":8080"`
	HTTPBasePath     string `env:"HTTP_BASE_PATH"`

	SyncSchedule         string        `env:"SYNC_SCHEDULE" env-default:"@every 5m"`
	NotificationLifetime time.Duration `env:"NOTIFICATION_LIFETIME" env-default:"5s"`
	Timezone             string        `env:"TZ_NAME" env-default:"America/Sao_Paulo"`

	NoticeEnabled     bool          `env:"NOTICE_ENABLED" env-default:"false"`
	NoticeSchedule    string        `env:"NOTICE_SCHEDULE" env-default:"@every 10m"`
	NoticeChannel     string        `env:"NOTICE_CHANNEL" env-default:"remote"`
	NoticeInterval    time.Duration `env:"NOTICE_INTERVAL" env-default:"60s"`
	NoticeSuppression time.Duration `env:"NOTICE_SUPPRESSION" env-default:"2h"`
	NoticeWindowStart string        `env:"NOTICE_WINDOW_START" env-default:"08:00"`
	NoticeWindowEnd   string        `env:"NOTICE_WINDOW_END" env-default:"22:00"`
	NoticeDays        []string      `env:"NOTICE_DAYS" env-separator:"," env-default:"segunda,terca,quarta,quinta,sexta,sabado"`

	WhatsAppStorePath string `env:"WHATSAPP_STORE_PATH" env-default:"data/whatsapp.db"`
	WhatsAppLogLevel  string `env:"WHATSAPP_LOG_LEVEL" env-default:"INFO"`
}

// Load reads the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves Timezone, falling back to the local zone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c Config) validate() error {
	var errs []error
	switch c.StateDriver {
	case "sqlite":
		if strings.TrimSpace(c.StateSQLitePath) == "" {
			errs = append(errs, errors.New("STATE_SQLITE_PATH is required for the sqlite driver"))
		}
	case "postgres":
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STATE_DRIVER %q is not supported", c.StateDriver))
	}
	if c.NoticeChannel != "remote" && c.NoticeChannel != "local" {
		errs = append(errs, fmt.Errorf("NOTICE_CHANNEL %q is not supported", c.NoticeChannel))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("API_TIMEOUT must be positive"))
	}
	if strings.TrimSpace(c.APIBaseURL) == "" {
		errs = append(errs, errors.New("API_BASE_URL is required"))
	}
	return errors.Join(errs...)
}
