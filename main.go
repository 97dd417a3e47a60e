package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/example/lexera/internal/bot"
	"github.com/example/lexera/internal/cache"
	"github.com/example/lexera/internal/catalog"
	"github.com/example/lexera/internal/config"
	"github.com/example/lexera/internal/database"
	"github.com/example/lexera/internal/excel"
	"github.com/example/lexera/internal/logger"
	"github.com/example/lexera/internal/progression"
	"github.com/example/lexera/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	// run returns only after its deferred cleanup has finished
	if err := run(cfg, log); err != nil {
		log.Error("bot stopped with error", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Info("bot stopped successfully")
	log.Sync()
}

func run(cfg *config.Config, log *logger.Logger) error {
	if cfg.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DriverName(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("database connected", "driver", cfg.DriverName())

	words := database.NewWordRepository(db, log.With("component", "words"))
	if cfg.SeedLocal {
		if err := seedLocalCatalog(ctx, words, log); err != nil {
			return err
		}
	}

	store, closeStore, err := progressStore(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer closeStore()

	admins, bad := cfg.Admins()
	for _, id := range bad {
		log.Warn("invalid admin user ID", "value", id)
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("unable to create bot: %w", err)
	}
	log.Info("authorized on account", "username", api.Self.UserName)

	b, err := bot.New(api, bot.Options{
		Catalog: catalog.WithFallback(words, log),
		Store:   store,
		Words:   words,
		Admins:  admins,
		Settings: bot.Settings{
			RewardPoints:       cfg.RewardPoints,
			FeedbackDelay:      cfg.FeedbackDelay,
			TierAdvanceDelay:   cfg.TierAdvanceDelay,
			SessionIdleTimeout: cfg.SessionIdleTimeout,
			TTSURLTemplate:     cfg.TTSURLTemplate,
			CorrectSoundURL:    cfg.CorrectSoundURL,
			IncorrectSoundURL:  cfg.IncorrectSoundURL,
		},
		Log: log,
	})
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	sweeper := scheduler.New(b.Sessions(), cfg.SweepInterval, log.With("component", "scheduler"))
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := b.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sweeper.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return b.Stop(shutdownCtx)
	})

	log.Info("bot started, press Ctrl+C to stop")
	return g.Wait()
}

// progressStore picks the configured progress backend
func progressStore(ctx context.Context, cfg *config.Config, db *sqlx.DB, log *logger.Logger) (progression.ProgressStore, func(), error) {
	if cfg.ProgressBackend == "redis" {
		rs, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("progress stored in redis", "addr", cfg.RedisAddr)
		return rs, func() { rs.Close() }, nil
	}
	return database.NewProgressRepository(db), func() {}, nil
}

// seedLocalCatalog loads the built-in words into an empty word table
func seedLocalCatalog(ctx context.Context, words *database.WordRepository, log *logger.Logger) error {
	n, err := words.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	result, err := excel.SeedWords(ctx, words, catalog.Local())
	if err != nil {
		return fmt.Errorf("failed to seed words: %w", err)
	}
	log.Info("seeded local catalog", "words", result.Created)
	return nil
}
