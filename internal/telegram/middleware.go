package telegram

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/tankist/marketbot/internal/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "logger_ctx"

// RecoverMiddleware catches panics in handlers and prevents the bot from crashing.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				logger.TG.Error("panic recovered",
					slog.String("event", "tg.panic"),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		return next(c)
	}
}

// LoggerMiddleware logs receipt and completion lines per update and stores a
// request context with rid and update metadata for downstream handlers.
// The user and chat ids reach the log lines through the context metadata.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()

		chatID, userID := int64(0), int64(0)
		if chat != nil {
			chatID = chat.ID
		}
		if user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)

		ctx := logger.WithRID(context.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.TG)
		c.Set(contextKey, ctx)

		attrs := []slog.Attr{slog.Int("update_id", upd.ID)}
		if t := c.Text(); t != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
		}
		logger.Debug(ctx, "tg", "update.received", attrs...)

		start := time.Now()
		err := next(c)
		logger.Debug(ctx, "tg", "update.handled",
			slog.String("status", logger.Status(err)),
			slog.Duration("duration", logger.Took(start)),
		)
		return err
	}
}

// requestContext returns the context stored by LoggerMiddleware.
func requestContext(c tele.Context) context.Context {
	if v := c.Get(contextKey); v != nil {
		if ctx, ok := v.(context.Context); ok {
			return ctx
		}
	}
	return context.Background()
}

// AdminOnly silently drops updates from anyone but the privileged identity.
func AdminOnly(adminID int64, next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil || adminID == 0 || sender.ID != adminID {
			return nil
		}
		return next(c)
	}
}
