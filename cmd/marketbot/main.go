package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/tankist/marketbot/internal/config"
	"github.com/tankist/marketbot/internal/database"
	"github.com/tankist/marketbot/internal/flow"
	"github.com/tankist/marketbot/internal/logger"
	"github.com/tankist/marketbot/internal/notify"
	"github.com/tankist/marketbot/internal/order"
	"github.com/tankist/marketbot/internal/session"
	"github.com/tankist/marketbot/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("marketbot: %v", err)
	}
}

func run() error {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	log.Printf("loading config: %s", cfgPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg); err != nil {
		return err
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database); err != nil {
		return err
	}

	store := order.NewPostgresStore(db, time.Duration(cfg.Database.OpTimeoutSeconds)*time.Second)
	sessions := session.NewManager()

	bot, err := telegram.NewBot(cfg)
	if err != nil {
		return err
	}

	notifier := notify.NewDispatcher(bot, notify.Options{AdminID: cfg.Telegram.AdminID})
	defer notifier.Close()

	engine := flow.New(sessions, store, notifier, flow.Config{
		USDTAddress:   cfg.Payment.USDTAddress,
		ManualContact: cfg.Payment.ManualContact,
		Prices: order.PriceTable{
			Website: cfg.Payment.WebsitePrice,
			Bot:     cfg.Payment.BotPrice,
		},
	})
	bot.Setup(engine)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(ctx)
	})

	logger.L.With("component", "app").Info("app ready",
		slog.String("event", "ready"),
		slog.Duration("startup_duration", logger.Took(startedAt)),
	)

	err = g.Wait()
	logger.L.With("component", "app").Info("shutting down...",
		slog.String("event", "shutdown"),
	)
	return err
}
