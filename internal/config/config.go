package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App          AppConfig          `yaml:"app"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	JWT          JWTConfig          `yaml:"jwt"`
	SMTP         SMTPConfig         `yaml:"smtp"`
	Confirmation ConfirmationConfig `yaml:"confirmation"`
	Catalog      CatalogConfig      `yaml:"catalog"`
}

type AppConfig struct {
	Port       string `yaml:"port"`
	Env        string `yaml:"env"`
	LogLevel   string `yaml:"log_level"`
	DomainName string `yaml:"domain_name"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	SSL      bool   `yaml:"ssl"`
}

type ConfirmationConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type CatalogConfig struct {
	PageSize int `yaml:"page_size"`
}

func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

func defaults() *Config {
	return &Config{
		App: AppConfig{
			Port:       "8080",
			Env:        "development",
			LogLevel:   "info",
			DomainName: "http://localhost:8080/",
		},
		Postgres: PostgresConfig{
			Port:            "5432",
			SSLMode:         "disable",
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
		},
		JWT: JWTConfig{
			Secret: "dev-secret",
			TTL:    24 * time.Hour,
		},
		SMTP: SMTPConfig{
			Port: "465",
			SSL:  true,
		},
		Confirmation: ConfirmationConfig{TTL: 10 * time.Minute},
		Catalog:      CatalogConfig{PageSize: 3},
	}
}

// Load собирает конфигурацию: дефолты, затем YAML файл (если есть), затем .env и переменные окружения.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.App.Port, "APP_PORT")
	setString(&cfg.App.Env, "APP_ENV")
	setString(&cfg.App.LogLevel, "LOG_LEVEL")
	setString(&cfg.App.DomainName, "DOMAIN_NAME")

	setString(&cfg.Postgres.Host, "DB_HOST")
	setString(&cfg.Postgres.Port, "DB_PORT")
	setString(&cfg.Postgres.User, "DB_USER")
	setString(&cfg.Postgres.Password, "DB_PASSWORD")
	setString(&cfg.Postgres.DBName, "DB_NAME")
	setString(&cfg.Postgres.SSLMode, "DB_SSLMODE")

	setString(&cfg.JWT.Secret, "JWT_SECRET")

	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setString(&cfg.SMTP.Port, "SMTP_PORT")
	setString(&cfg.SMTP.User, "SMTP_USER")
	setString(&cfg.SMTP.Password, "SMTP_PASSWORD")
	setString(&cfg.SMTP.From, "SMTP_FROM")

	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid DB_MAX_CONNS %q: %w", v, err)
		}
		cfg.Postgres.MaxConns = int32(n)
	}
	if v := os.Getenv("DB_MIN_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid DB_MIN_CONNS %q: %w", v, err)
		}
		cfg.Postgres.MinConns = int32(n)
	}
	if v := os.Getenv("SMTP_SSL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SMTP_SSL %q: %w", v, err)
		}
		cfg.SMTP.SSL = b
	}
	if v := os.Getenv("CATALOG_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CATALOG_PAGE_SIZE %q: %w", v, err)
		}
		cfg.Catalog.PageSize = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"DB_MAX_CONN_LIFETIME", &cfg.Postgres.MaxConnLifetime},
		{"JWT_TTL", &cfg.JWT.TTL},
		{"CONFIRMATION_TTL", &cfg.Confirmation.TTL},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, v, err)
		}
		*d.dst = parsed
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if c.Postgres.Host == "" {
		return errors.New("DB_HOST is required")
	}
	if c.Postgres.User == "" {
		return errors.New("DB_USER is required")
	}
	if c.Postgres.DBName == "" {
		return errors.New("DB_NAME is required")
	}
	if c.App.IsProduction() && (c.JWT.Secret == "" || c.JWT.Secret == "dev-secret") {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.Confirmation.TTL <= 0 {
		return errors.New("CONFIRMATION_TTL must be positive")
	}
	if c.Catalog.PageSize <= 0 {
		return errors.New("CATALOG_PAGE_SIZE must be positive")
	}
	return nil
}
