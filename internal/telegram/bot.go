// Package telegram wires the conversation engine to the Telegram transport:
// it owns the bot lifecycle, routes updates into flow events, renders
// replies and keyboards, and persists attachment bytes.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/tankist/marketbot/internal/config"
	"github.com/tankist/marketbot/internal/flow"
	"github.com/tankist/marketbot/internal/logger"
)

// Bot owns the telebot instance and its route wiring.
type Bot struct {
	tb      *tele.Bot
	engine  *flow.Engine
	saver   *AttachmentSaver
	adminID int64
}

// NewBot builds the underlying telebot with a long poller and the tuned
// HTTP client. Routes are registered later via Setup once the engine exists.
func NewBot(cfg *config.Config) (*Bot, error) {
	timeoutSec := cfg.Telegram.LongPollTimeoutSeconds
	if timeoutSec <= 0 {
		timeoutSec = 10
	}

	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: time.Duration(timeoutSec) * time.Second},
		Client: BuildHTTPClient(),
	}

	start := time.Now()
	tb, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	logger.TG.Info("polling mode",
		slog.String("event", "mode"),
		slog.String("mode", "polling"),
		slog.Int("timeout_seconds", timeoutSec),
		slog.Duration("duration", logger.Took(start)),
	)

	saver, err := NewAttachmentSaver(tb, cfg.Storage.UploadsDir)
	if err != nil {
		return nil, err
	}

	return &Bot{
		tb:      tb,
		saver:   saver,
		adminID: cfg.Telegram.AdminID,
	}, nil
}

// SendTo delivers a plain text message to a chat. It implements
// notify.Sender for the best-effort notification queue.
func (b *Bot) SendTo(_ context.Context, recipient int64, text string) error {
	_, err := b.tb.Send(&tele.User{ID: recipient}, text)
	return err
}

// Setup attaches the engine and registers middleware and routes.
func (b *Bot) Setup(engine *flow.Engine) {
	b.engine = engine

	b.tb.Use(RecoverMiddleware, LoggerMiddleware)

	b.tb.Handle("/start", b.onStart)
	b.tb.Handle("/help", b.onStart)
	b.tb.Handle("/orders", AdminOnly(b.adminID, b.onAdminOrders))
	b.tb.Handle("/setstatus", AdminOnly(b.adminID, b.onAdminSetStatus))
	b.tb.Handle("/export", AdminOnly(b.adminID, b.onAdminExport))
	b.tb.Handle(tele.OnText, b.onText)
	b.tb.Handle(tele.OnDocument, b.onDocument)
	b.tb.Handle(tele.OnPhoto, b.onPhoto)
}

// Run starts long polling until the context is done.
func (b *Bot) Run(ctx context.Context) error {
	if b.engine == nil {
		return errors.New("telegram: Setup was not called")
	}

	runDone := make(chan struct{})
	go func() {
		b.tb.Start()
		close(runDone)
	}()

	select {
	case <-ctx.Done():
		b.tb.Stop()
		<-runDone
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	case <-runDone:
	}
	return nil
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.adminID != 0 && userID == b.adminID
}
