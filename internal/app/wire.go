package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	s3blob "github.com/barbosa7/bookdesk/internal/blob/s3"
	"github.com/barbosa7/bookdesk/internal/cache"
	"github.com/barbosa7/bookdesk/internal/cache/redis"
	"github.com/barbosa7/bookdesk/internal/config"
	"github.com/barbosa7/bookdesk/internal/domain"
	"github.com/barbosa7/bookdesk/internal/notify"
	"github.com/barbosa7/bookdesk/internal/platform/exchange"
	"github.com/barbosa7/bookdesk/internal/service"
	"github.com/barbosa7/bookdesk/internal/session"
	"github.com/barbosa7/bookdesk/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is built by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Sessions *session.Store
	Exchange *exchange.Client

	Bus     domain.SignalBus
	Ladders domain.LadderCache
	Journal domain.TradeJournal
	Blobs   domain.BlobWriter

	Notifier *notify.Notifier

	Auth   *service.AuthService
	Orders *service.OrderService
}

// needsPostgres reports whether the mode journals trades.
func needsPostgres(cfg *config.Config) bool {
	mode := strings.ToLower(cfg.Mode)
	return cfg.Postgres.Enabled || mode == "record" || mode == "full"
}

// needsRedis reports whether the mode uses the external cache.
func needsRedis(cfg *config.Config) bool {
	return cfg.Redis.Enabled || strings.ToLower(cfg.Mode) == "full"
}

// needsS3 reports whether the mode archives to object storage.
func needsS3(cfg *config.Config) bool {
	if !cfg.Archive.Enabled {
		return false
	}
	return cfg.S3.Enabled || strings.ToLower(cfg.Mode) == "full"
}

// Wire constructs the concrete dependency implementations from the given
// configuration. The returned cleanup releases resources in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis, or the in-process fallback ---
	if needsRedis(cfg) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Bus = redis.NewSignalBus(redisClient)
		deps.Ladders = redis.NewLadderCache(redisClient)
	} else {
		deps.Bus = cache.NewMemBus()
	}

	// --- Session store ---
	vaultPath, err := expandPath(cfg.Session.VaultPath)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: session vault path: %w", err)
	}
	vault := session.NewFileVault(vaultPath, cfg.Session.VaultPassword)
	deps.Sessions = session.New(vault, deps.Bus, logger)

	// --- Exchange client ---
	deps.Exchange = exchange.NewClient(cfg.Exchange.BaseURL, deps.Sessions)

	// --- PostgreSQL trade journal ---
	if needsPostgres(cfg) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Journal = postgres.NewTradeJournal(pgClient.Pool())
	}

	// --- S3 archive target ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Blobs = s3blob.NewWriter(s3Client)
	}

	// --- Notifications ---
	senders := []notify.Sender{
		notify.NewLogSender(logger),
		notify.NewBusSender(deps.Bus),
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.New(senders, cfg.Notify.Events, logger)

	// --- Services ---
	deps.Auth = service.NewAuthService(deps.Exchange, deps.Sessions, cfg.Exchange.CompetitionID, logger)
	deps.Orders = service.NewOrderService(deps.Exchange, deps.Sessions, deps.Notifier, logger)

	return deps, cleanup, nil
}

// expandPath resolves a leading "~" to the user's home directory.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
