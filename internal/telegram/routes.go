package telegram

import (
	"bytes"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	tele "gopkg.in/telebot.v4"

	"github.com/tankist/marketbot/internal/flow"
	"github.com/tankist/marketbot/internal/logger"
	"github.com/tankist/marketbot/internal/order"
)

const storageFailureText = "Something went wrong on our side. Please try again in a moment."

func (b *Bot) onStart(c tele.Context) error {
	user := senderOf(c)
	return b.reply(c, b.engine.Reset(user.ID))
}

func (b *Bot) onText(c tele.Context) error {
	user := senderOf(c)
	text := c.Text()
	ctx := requestContext(c)

	// /order_<id> is a dynamic command, so it cannot be registered upfront.
	if b.isAdmin(user.ID) && strings.HasPrefix(text, "/order_") {
		return b.onAdminOrderDetail(c, text)
	}

	if !b.engine.InProgress(user.ID) {
		switch text {
		case flow.BtnMyOrders:
			return b.onMyOrders(c)
		case flow.BtnContactAdmin:
			return b.reply(c, b.engine.ContactAdmin(ctx, user))
		}
	}

	return b.dispatch(c, flow.TextEvent(text))
}

func (b *Bot) onDocument(c tele.Context) error {
	doc := c.Message().Document
	name, err := b.saver.SaveDocument(doc)
	if err != nil {
		// The descriptor still advances the flow; only the bytes are lost.
		logger.Warn(requestContext(c), "tg", "attachment.save_failed",
			slog.String("kind", "document"),
			slog.String("err", err.Error()),
		)
	}
	return b.dispatch(c, flow.Event{Kind: flow.KindDocument, Attachment: name})
}

func (b *Bot) onPhoto(c tele.Context) error {
	if err := b.saver.SavePhoto(c.Message().Photo); err != nil {
		logger.Warn(requestContext(c), "tg", "attachment.save_failed",
			slog.String("kind", "photo"),
			slog.String("err", err.Error()),
		)
	}
	return b.dispatch(c, flow.Event{Kind: flow.KindPhoto})
}

// dispatch feeds one event into the engine and renders the resulting reply.
// Storage failures surface here as a user-visible failure message; the
// engine has already kept the session step so the user can retry.
func (b *Bot) dispatch(c tele.Context, ev flow.Event) error {
	reply, err := b.engine.Handle(requestContext(c), senderOf(c), ev)
	if err != nil {
		return c.Send(storageFailureText)
	}
	return b.reply(c, reply)
}

func (b *Bot) reply(c tele.Context, r flow.Reply) error {
	markup := ReplyKeyboard(r.Keyboard)

	if r.QRPayload != "" {
		if png, err := qrcode.Encode(r.QRPayload, qrcode.Medium, 256); err == nil {
			photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(png)), Caption: r.Text}
			if markup != nil {
				return c.Send(photo, markup)
			}
			return c.Send(photo)
		}
		// QR rendering failed: the address is still in the text.
	}

	if markup != nil {
		return c.Send(r.Text, markup)
	}
	return c.Send(r.Text)
}

func (b *Bot) onMyOrders(c tele.Context) error {
	user := senderOf(c)
	rows, err := b.engine.UserOrders(requestContext(c), user.ID)
	if err != nil {
		logger.Error(requestContext(c), "tg", "orders.list_failed",
			slog.String("err", err.Error()),
		)
		return c.Send(storageFailureText)
	}
	if len(rows) == 0 {
		return b.reply(c, flow.Reply{Text: "You have no orders yet.", Keyboard: flow.MainMenu()})
	}
	return b.reply(c, flow.Reply{
		Text:     "Your orders:\n" + flow.FormatUserSummaries(rows),
		Keyboard: flow.MainMenu(),
	})
}

func (b *Bot) onAdminOrders(c tele.Context) error {
	rows, err := b.engine.ListOrders(requestContext(c))
	if err != nil {
		return c.Send(storageFailureText)
	}
	if len(rows) == 0 {
		return c.Send("No orders yet.")
	}
	return c.Send(flow.FormatSummaries(rows))
}

func (b *Bot) onAdminOrderDetail(c tele.Context, text string) error {
	id, err := strconv.ParseInt(strings.TrimPrefix(text, "/order_"), 10, 64)
	if err != nil {
		return c.Send("Invalid command. Use /order_<id>")
	}
	o, err := b.engine.OrderDetail(requestContext(c), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return c.Send("Order not found")
		}
		return c.Send(storageFailureText)
	}
	return c.Send(flow.FormatOrder(o))
}

func (b *Bot) onAdminSetStatus(c tele.Context) error {
	parts := strings.Fields(c.Message().Payload)
	if len(parts) < 2 {
		return c.Send("Usage: /setstatus <order_id> <status>")
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return c.Send("Invalid order id")
	}
	status := parts[1]

	if err := b.engine.SetStatus(requestContext(c), id, status); err != nil {
		return c.Send(storageFailureText)
	}
	return c.Send("Order #" + parts[0] + " status set to " + status)
}

func (b *Bot) onAdminExport(c tele.Context) error {
	rows, err := b.engine.ListOrders(requestContext(c))
	if err != nil {
		return c.Send(storageFailureText)
	}

	f, err := BuildOrdersWorkbook(rows)
	if err != nil {
		return c.Send("Export failed: " + err.Error())
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return c.Send("Export failed: " + err.Error())
	}

	doc := &tele.Document{File: tele.FromReader(buf), FileName: "orders.xlsx"}
	return c.Send(doc)
}

func senderOf(c tele.Context) flow.User {
	u := c.Sender()
	if u == nil {
		return flow.User{}
	}
	name := u.Username
	if name == "" {
		name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return flow.User{ID: u.ID, Name: name}
}
