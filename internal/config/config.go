// Package config defines the desk's configuration and validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration. Fields are populated from a TOML file
// and then optionally overridden by BOOKDESK_* environment variables.
type Config struct {
	Exchange Exchange `toml:"exchange"`
	Session  Session  `toml:"session"`
	Poll     Poll     `toml:"poll"`
	PnL      PnL      `toml:"pnl"`
	Postgres Postgres `toml:"postgres"`
	Redis    Redis    `toml:"redis"`
	S3       S3       `toml:"s3"`
	Archive  Archive  `toml:"archive"`
	Server   Server   `toml:"server"`
	Notify   Notify   `toml:"notify"`
	Mode     string   `toml:"mode"`
	LogLevel string   `toml:"log_level"`
}

// Exchange holds the competition service endpoint and target market.
type Exchange struct {
	BaseURL       string `toml:"base_url"`
	CompetitionID string `toml:"competition_id"`
	Symbol        string `toml:"symbol"`
	Username      string `toml:"username"`
	Password      string `toml:"password"`
}

// Session holds session persistence parameters. An empty VaultPassword
// stores the vault as plaintext JSON.
type Session struct {
	VaultPath     string `toml:"vault_path"`
	VaultPassword string `toml:"vault_password"`
}

// Poll holds the refresh cadence shared by the four view pollers.
type Poll struct {
	Interval duration `toml:"interval"`
}

// PnL holds profit-and-loss projection parameters.
type PnL struct {
	InitialCash float64 `toml:"initial_cash"`
}

// Postgres holds trade journal connection parameters.
type Postgres struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Redis holds cache connection parameters.
type Redis struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3 holds object storage parameters for journal archives.
type S3 struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Archive holds journal archival parameters.
type Archive struct {
	Enabled       bool   `toml:"enabled"`
	Cron          string `toml:"cron"`
	RetentionDays int    `toml:"retention_days"`
}

// Server holds the desk API server parameters.
type Server struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// Notify holds notification channel credentials.
type Notify struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration so TOML strings like "1s" decode directly.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

var validModes = map[string]bool{
	"desk":   true, // poll and render views only
	"record": true, // desk plus trade journal persistence
	"full":   true, // record plus cache, archive, and API server
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Defaults returns the configuration used when the TOML file leaves fields
// unset.
func Defaults() Config {
	return Config{
		Exchange: Exchange{
			BaseURL: "http://localhost:8000",
		},
		Session: Session{
			VaultPath: "~/.bookdesk/session.json",
		},
		Poll: Poll{
			Interval: duration{time.Second},
		},
		PnL: PnL{
			InitialCash: 1_000_000,
		},
		Postgres: Postgres{
			Host:          "localhost",
			Port:          5432,
			Database:      "bookdesk",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: Redis{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "bookdesk-archive",
			ForcePathStyle: true,
		},
		Archive: Archive{
			Cron:          "0 3 * * *",
			RetentionDays: 7,
		},
		Server: Server{
			Port: 8090,
		},
		Mode:     "desk",
		LogLevel: "info",
	}
}

// PollInterval returns the configured cadence, falling back to one second.
func (c *Config) PollInterval() time.Duration {
	if c.Poll.Interval.Duration <= 0 {
		return time.Second
	}
	return c.Poll.Interval.Duration
}

// Validate checks the configuration for the selected mode and reports every
// problem at once.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: desk, record, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Exchange.BaseURL == "" {
		errs = append(errs, "exchange: base_url must not be empty")
	}
	if c.Exchange.CompetitionID == "" {
		errs = append(errs, "exchange: competition_id must not be empty")
	}
	if c.Exchange.Symbol == "" {
		errs = append(errs, "exchange: symbol must not be empty")
	}

	if c.Poll.Interval.Duration < 0 {
		errs = append(errs, "poll: interval must not be negative")
	}
	if c.PnL.InitialCash <= 0 {
		errs = append(errs, "pnl: initial_cash must be positive")
	}

	mode := strings.ToLower(c.Mode)
	journaling := c.Postgres.Enabled || mode == "record" || mode == "full"
	if journaling && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: invalid port %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when enabled")
	}

	if c.Archive.Enabled {
		if !c.S3.Enabled && mode != "full" {
			errs = append(errs, "archive: s3 must be enabled for archival")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty for archival")
		}
		if c.Archive.RetentionDays <= 0 {
			errs = append(errs, "archive: retention_days must be positive")
		}
		if strings.TrimSpace(c.Archive.Cron) == "" {
			errs = append(errs, "archive: cron must not be empty")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: invalid port %d", c.Server.Port))
		}
	}

	tgTok := c.Notify.TelegramToken != ""
	tgChat := c.Notify.TelegramChatID != ""
	if tgTok != tgChat {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
