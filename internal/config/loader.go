package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML file at path, merges it on top of the built-in defaults,
// and applies BOOKDESK_* environment overrides. The result has NOT been
// validated; call Config.Validate afterwards. A missing file is not an
// error when path is empty: defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env if present; ignore when missing.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites fields from well-known BOOKDESK_* variables so
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Exchange.BaseURL, "BOOKDESK_EXCHANGE_BASE_URL")
	setStr(&cfg.Exchange.CompetitionID, "BOOKDESK_EXCHANGE_COMPETITION_ID")
	setStr(&cfg.Exchange.Symbol, "BOOKDESK_EXCHANGE_SYMBOL")
	setStr(&cfg.Exchange.Username, "BOOKDESK_EXCHANGE_USERNAME")
	setStr(&cfg.Exchange.Password, "BOOKDESK_EXCHANGE_PASSWORD")

	setStr(&cfg.Session.VaultPath, "BOOKDESK_SESSION_VAULT_PATH")
	setStr(&cfg.Session.VaultPassword, "BOOKDESK_SESSION_VAULT_PASSWORD")

	setDuration(&cfg.Poll.Interval, "BOOKDESK_POLL_INTERVAL")
	setFloat64(&cfg.PnL.InitialCash, "BOOKDESK_PNL_INITIAL_CASH")

	setBool(&cfg.Postgres.Enabled, "BOOKDESK_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "BOOKDESK_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "BOOKDESK_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "BOOKDESK_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "BOOKDESK_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "BOOKDESK_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "BOOKDESK_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "BOOKDESK_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "BOOKDESK_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BOOKDESK_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BOOKDESK_POSTGRES_RUN_MIGRATIONS")

	setBool(&cfg.Redis.Enabled, "BOOKDESK_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "BOOKDESK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BOOKDESK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BOOKDESK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BOOKDESK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BOOKDESK_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BOOKDESK_REDIS_TLS_ENABLED")

	setBool(&cfg.S3.Enabled, "BOOKDESK_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "BOOKDESK_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BOOKDESK_S3_REGION")
	setStr(&cfg.S3.Bucket, "BOOKDESK_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BOOKDESK_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BOOKDESK_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BOOKDESK_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BOOKDESK_S3_FORCE_PATH_STYLE")

	setBool(&cfg.Archive.Enabled, "BOOKDESK_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Cron, "BOOKDESK_ARCHIVE_CRON")
	setInt(&cfg.Archive.RetentionDays, "BOOKDESK_ARCHIVE_RETENTION_DAYS")

	setBool(&cfg.Server.Enabled, "BOOKDESK_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "BOOKDESK_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BOOKDESK_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "BOOKDESK_SERVER_API_KEY")

	setStr(&cfg.Notify.TelegramToken, "BOOKDESK_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BOOKDESK_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BOOKDESK_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "BOOKDESK_NOTIFY_EVENTS")

	setStr(&cfg.Mode, "BOOKDESK_MODE")
	setStr(&cfg.LogLevel, "BOOKDESK_LOG_LEVEL")
}

// Typed env helpers. Each only mutates the target when the variable is
// present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
