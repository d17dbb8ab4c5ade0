package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SessionConfig struct {
	Secret         string
	TTL            time.Duration
	VerifyInterval time.Duration
	CookieName     string
	CookieSecure   bool
}

type CatalogConfig struct {
	CacheTTL time.Duration
}

type AgreementsConfig struct {
	LockCalculated bool
}

type PDFConfig struct {
	FontPath string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	Backend     BackendConfig
	DB          DBConfig
	Redis       RedisConfig
	Session     SessionConfig
	Catalog     CatalogConfig
	Agreements  AgreementsConfig
	PDF         PDFConfig
	CORSOrigins []string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	v.SetDefault("BACKEND_TIMEOUT", "15s")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SESSION_VERIFY_INTERVAL", "5m")
	v.SetDefault("SESSION_COOKIE_NAME", "agreements_session")
	v.SetDefault("CATALOG_CACHE_TTL", "10m")

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		Backend: BackendConfig{
			URL:     v.GetString("BACKEND_URL"),
			Timeout: v.GetDuration("BACKEND_TIMEOUT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Session: SessionConfig{
			Secret:         v.GetString("SESSION_SECRET"),
			TTL:            v.GetDuration("SESSION_TTL"),
			VerifyInterval: v.GetDuration("SESSION_VERIFY_INTERVAL"),
			CookieName:     v.GetString("SESSION_COOKIE_NAME"),
			CookieSecure:   v.GetBool("SESSION_COOKIE_SECURE"),
		},
		Catalog: CatalogConfig{
			CacheTTL: v.GetDuration("CATALOG_CACHE_TTL"),
		},
		Agreements: AgreementsConfig{
			LockCalculated: v.GetBool("AGREEMENTS_LOCK_CALCULATED"),
		},
		PDF: PDFConfig{
			FontPath: v.GetString("PDF_FONT_PATH"),
		},
		CORSOrigins: parseList(v.GetString("CORS_ORIGINS")),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7090
	}
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = "http://localhost:8000/api"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func validate(cfg *Config) error {
	if cfg.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if cfg.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if cfg.Backend.Timeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
