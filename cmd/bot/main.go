package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/suspectuso/econ-bot/internal/config"
	"github.com/suspectuso/econ-bot/internal/cooldown"
	"github.com/suspectuso/econ-bot/internal/economy"
	"github.com/suspectuso/econ-bot/internal/leaderboard"
	"github.com/suspectuso/econ-bot/internal/limits"
	"github.com/suspectuso/econ-bot/internal/metrics"
	"github.com/suspectuso/econ-bot/internal/notifier"
	"github.com/suspectuso/econ-bot/internal/server"
	"github.com/suspectuso/econ-bot/internal/storage"
	"github.com/suspectuso/econ-bot/internal/telegram"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	// Load config
	cfg := config.Load()

	// Setup logger
	log := newLogger(cfg)
	slog.SetDefault(log)
	if envErr != nil {
		log.Debug("no .env file found")
	}

	if cfg.BotToken == "" {
		log.Error("BOT_TOKEN is required")
		os.Exit(1)
	}

	resetPolicy, err := limits.ParsePolicy(cfg.LimitReset)
	if err != nil {
		log.Error("parse LIMIT_RESET", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Error("init storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("storage initialized", "path", cfg.DBPath)

	// Initialize cooldown tracker
	tracker, closeTracker, err := newTracker(ctx, cfg, store, log)
	if err != nil {
		log.Error("init cooldown tracker", "error", err)
		os.Exit(1)
	}
	defer closeTracker()

	seedPremium(ctx, cfg, store, log)

	stats := metrics.Economy()

	engine := economy.New(store, tracker,
		economy.WithPolicy(policyFrom(cfg)),
		economy.WithRecorder(stats),
		economy.WithLogger(log),
	)
	board := leaderboard.New(store)

	// Initialize telegram bot
	bot, err := telegram.New(cfg, engine, board, store, log)
	if err != nil {
		log.Error("init telegram bot", "error", err)
		os.Exit(1)
	}
	log.Info("telegram bot initialized")

	// Initialize notifier
	bot.AttachNotifier(notifier.New(store, bot, stats, log))

	// Start metrics server
	if cfg.MetricsPort > 0 {
		metricsServer := server.NewServer(store.DB(), log)
		go func() {
			if err := metricsServer.Start(ctx, cfg.MetricsPort); err != nil {
				log.Error("metrics server", "error", err)
			}
		}()
	} else {
		log.Info("metrics server disabled")
	}

	// Start usage reset scheduler
	scheduler := limits.NewScheduler(store, resetPolicy, stats, log)
	go func() {
		if err := scheduler.Start(ctx); err != nil {
			log.Error("usage reset scheduler", "error", err)
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info("shutting down...")
		cancel()
	}()

	// Start bot polling
	log.Info("starting bot polling...")
	bot.Start(ctx)
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		})
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
}

// newTracker prefers Redis when REDIS_URL is set and falls back to the
// SQLite cooldown table
func newTracker(ctx context.Context, cfg *config.Config, store *storage.Storage, log *slog.Logger) (cooldown.Tracker, func(), error) {
	if cfg.RedisURL == "" {
		tracker, err := cooldown.NewSQLiteTracker(store.DB())
		if err != nil {
			return nil, nil, err
		}
		log.Info("cooldowns stored in sqlite")
		return tracker, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}

	log.Info("cooldowns stored in redis", "addr", opts.Addr)
	return cooldown.NewRedisTracker(client), func() { client.Close() }, nil
}

func policyFrom(cfg *config.Config) economy.Policy {
	p := economy.DefaultPolicy()
	p.DailyReward = cfg.DailyReward
	p.Cooldowns[storage.ActionGive] = cfg.CooldownGive
	p.Cooldowns[storage.ActionRob] = cfg.CooldownRob
	p.Cooldowns[storage.ActionKill] = cfg.CooldownKill
	p.Cooldowns[storage.ActionRevive] = cfg.CooldownRevive
	p.Cooldowns[storage.ActionProtect] = cfg.CooldownProtect
	return p
}

// seedPremium makes sure every configured premium user has the tier
func seedPremium(ctx context.Context, cfg *config.Config, store *storage.Storage, log *slog.Logger) {
	if len(cfg.PremiumUserIDs) == 0 {
		return
	}

	seeded := 0
	for id := range cfg.PremiumUserIDs {
		if _, err := store.CreateIfMissing(ctx, id, storage.Defaults{Tier: storage.TierPremium}); err != nil {
			log.Warn("seed premium account", "user_id", id, "error", err)
			continue
		}
		if err := store.SetTier(ctx, id, storage.TierPremium); err != nil {
			log.Warn("seed premium tier", "user_id", id, "error", err)
			continue
		}
		seeded++
	}

	log.Info("premium seeding complete", "accounts", seeded)
}
