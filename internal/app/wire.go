package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/audit"
	s3blob "github.com/alanyoungcy/oddsarb/internal/blob/s3"
	"github.com/alanyoungcy/oddsarb/internal/book"
	rediscache "github.com/alanyoungcy/oddsarb/internal/cache/redis"
	"github.com/alanyoungcy/oddsarb/internal/config"
	"github.com/alanyoungcy/oddsarb/internal/correlate"
	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/evaluate"
	"github.com/alanyoungcy/oddsarb/internal/feed"
	"github.com/alanyoungcy/oddsarb/internal/msg/kafka"
	"github.com/alanyoungcy/oddsarb/internal/notify"
	"github.com/alanyoungcy/oddsarb/internal/platform/polymarket"
	"github.com/alanyoungcy/oddsarb/internal/registry"
	"github.com/alanyoungcy/oddsarb/internal/server"
	"github.com/alanyoungcy/oddsarb/internal/state"
	"github.com/alanyoungcy/oddsarb/internal/store/postgres"
	"github.com/alanyoungcy/oddsarb/internal/trading"
)

// Dependencies bundles every component the application run loops need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	State     *state.State
	Registry  *registry.Registry
	PendStore *registry.FileStore
	Snapshots *feed.SnapshotWriter

	SportsFeed  *feed.SportsServer
	GammaPoller *feed.GammaPoller

	Evaluator *evaluate.Evaluator
	Monitor   *trading.Monitor
	Gateway   *trading.Gateway

	APIHandler *server.Handler
}

// opportunityFanout appends each record to every sink. All sinks are
// attempted; failures are joined so the change log can report them.
type opportunityFanout []domain.OpportunityLog

func (f opportunityFanout) Append(rec domain.OpportunityRecord) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Append(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type paperTradeFanout []domain.PaperTradeLog

func (f paperTradeFanout) Append(trade domain.ClosedTrade) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Append(trade); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	st := state.New()

	snapshots, err := feed.NewSnapshotWriter(cfg.Paths.SnapshotsDir, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: snapshots: %w", err)
	}

	// --- Match registry ---
	fileStore, err := registry.NewFileStore(cfg.Paths.ApprovedFile, cfg.Paths.PendingFile)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: registry store: %w", err)
	}
	reg := registry.New(fileStore, logger)

	// --- Book source (Redis-backed cache when enabled, in-memory otherwise) ---
	var bookCache domain.BookSnapshotCache
	if cfg.Redis.Enabled {
		redisClient, err := rediscache.New(ctx, rediscache.ClientConfig{
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
		bookCache = rediscache.NewBookCache(redisClient, book.DefaultTTL)
	} else {
		bookCache = book.NewMemoryCache(book.DefaultTTL)
	}

	clobClient := polymarket.NewClobClient(cfg.Clob.Host, cfg.Clob.APIKey)
	books := book.NewService(bookCache, clobClient, logger)

	// --- Audit sinks: CSV always, Postgres and Kafka as optional mirrors ---
	oppCSV, err := audit.NewOpportunityCSV(cfg.Paths.OpportunitiesCSV)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: opportunity log: %w", err)
	}
	paperCSV, err := audit.NewPaperTradeCSV(cfg.Paths.PaperTradesCSV)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: paper trade log: %w", err)
	}
	oppSinks := opportunityFanout{oppCSV}
	paperSinks := paperTradeFanout{paperCSV}

	var triggerSource server.TriggerSource
	var pnlSource server.PnLSource
	if cfg.Postgres.Enabled {
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

		oppStore := postgres.NewOpportunityStore(pgClient.Pool())
		paperStore := postgres.NewPaperTradeStore(pgClient.Pool())
		oppSinks = append(oppSinks, oppStore)
		paperSinks = append(paperSinks, paperStore)
		triggerSource = oppStore
		pnlSource = paperStore
	}

	if cfg.Kafka.Enabled {
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		closers = append(closers, func() { _ = publisher.Close() })
		oppSinks = append(oppSinks, publisher)
	}

	// --- Trade record mirroring ---
	var uploader audit.Uploader
	if cfg.S3.Enabled {
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
		uploader = s3blob.NewWriter(s3Client)
	}
	tradeWriter, err := audit.NewTradeWriter(cfg.Paths.TradeLogDir, uploader, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: trade writer: %w", err)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	notifier := notify.NewNotifier(senders, logger)
	reg.SetPendingObserver(func(c domain.MatchCandidate) {
		st.EnqueueReview(c)
		notifier.NotifyPendingMatch(c)
	})

	// --- Execution path ---
	cooldown := trading.NewCooldown(time.Duration(cfg.Engine.CooldownSec)*time.Second, logger)
	gateway := trading.NewGateway(clobClient, cooldown, st, tradeWriter, notifier, trading.GatewayConfig{
		SellMode: cfg.Engine.SellMode,
	}, logger)

	matcher := correlate.NewMatcher(correlate.Thresholds{
		Event:   cfg.Matching.EventThreshold,
		Outcome: cfg.Matching.OutcomeThreshold,
		Market:  cfg.Matching.MarketThreshold,
	}, logger)
	changes := evaluate.NewChangeLog(oppSinks, cfg.Engine.ArbRatio, logger)
	evaluator := evaluate.New(st, matcher, reg, books, changes, cooldown, gateway, evaluate.Settings{
		BetUSD:   cfg.Engine.BetUSD,
		ArbRatio: cfg.Engine.ArbRatio,
		Interval: cfg.Engine.EvalInterval.Duration,
		TestMode: cfg.Engine.TestMode,
	}, logger)

	monitor := trading.NewMonitor(st, books, paperSinks, trading.MonitorConfig{
		TakeProfitAbs: cfg.Engine.TakeProfitAbs,
	}, logger)

	// --- Feeds ---
	sportsFeed := feed.NewSportsServer(cfg.Feeds.WSAddr, st, snapshots, logger)
	gammaClient := polymarket.NewGammaClient(cfg.Feeds.GammaHost)
	gammaPoller := feed.NewGammaPoller(gammaClient, st, snapshots, cfg.Feeds.SeriesIDs, cfg.Feeds.PollInterval.Duration, logger)

	return &Dependencies{
		State:       st,
		Registry:    reg,
		PendStore:   fileStore,
		Snapshots:   snapshots,
		SportsFeed:  sportsFeed,
		GammaPoller: gammaPoller,
		Evaluator:   evaluator,
		Monitor:     monitor,
		Gateway:     gateway,
		APIHandler:  server.NewHandler(reg, st, triggerSource, pnlSource, logger),
	}, cleanup, nil
}
