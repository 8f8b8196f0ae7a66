package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tankist/marketbot/internal/logger"
	"github.com/tankist/marketbot/internal/order"
	"github.com/tankist/marketbot/internal/session"
)

// Notifier delivers best-effort messages to the admin or a specific user.
// Delivery failures are the notifier's problem (logged there) and never
// propagate back into the conversation.
type Notifier interface {
	NotifyAdmin(ctx context.Context, text string)
	NotifyUser(ctx context.Context, userID int64, text string)
}

// Config carries the payment instructions the engine embeds into replies.
type Config struct {
	USDTAddress   string
	ManualContact string
	Prices        order.PriceTable
}

// Engine is the conversation state machine. Given the current step and an
// inbound event it validates input, mutates the session, decides the next
// step and persists the order at the completion boundary.
//
// Every step accepts any input: unrecognized text either re-prompts or is
// classified by a catch-all, so the conversation has no dead ends. Input is
// checked in fixed priority order: cancel token first, then step-specific
// tokens, then the fallback.
type Engine struct {
	sessions *session.Manager
	store    order.Store
	notifier Notifier
	cfg      Config
}

// New wires the engine. The session manager is owned by the caller and may
// be shared with the transport layer.
func New(sessions *session.Manager, store order.Store, notifier Notifier, cfg Config) *Engine {
	return &Engine{sessions: sessions, store: store, notifier: notifier, cfg: cfg}
}

// InProgress reports whether the user has an active conversation.
func (e *Engine) InProgress(userID int64) bool {
	return e.sessions.InProgress(userID)
}

// Reset discards the user's session and returns the main menu greeting.
// Used by /start and /help.
func (e *Engine) Reset(userID int64) Reply {
	e.sessions.Clear(userID)
	return Reply{
		Text:     "Welcome to TANKIST256 marketplace!\nChoose an option:",
		Keyboard: MainMenu(),
	}
}

// Handle applies one inbound event to the user's session. The whole
// transition, including the order write at the completion boundary, runs
// under the per-user session lock so concurrent events from the same user
// cannot duplicate an order or lose a step.
//
// A non-nil error means a storage failure; the session step is left
// unchanged so the user can retry, and the caller is responsible for a
// user-visible failure message.
func (e *Engine) Handle(ctx context.Context, user User, ev Event) (Reply, error) {
	var reply Reply
	err := e.sessions.With(user.ID, func(s *session.Session) error {
		s.Username = user.Name
		r, err := e.transition(ctx, user, s, ev)
		if err != nil {
			return err
		}
		reply = r
		return nil
	})
	if err != nil {
		logger.FLOW.Error("transition failed",
			slog.String("event", "transition.failed"),
			slog.Int64("user_id", user.ID),
			slog.String("err", err.Error()),
		)
		return Reply{}, err
	}
	return reply, nil
}

func (e *Engine) transition(ctx context.Context, user User, s *session.Session, ev Event) (Reply, error) {
	switch s.Step {
	case StepChoosingTemplate:
		return e.stepTemplate(s, ev), nil
	case StepEnteringDetails:
		return e.stepDetails(s, ev), nil
	case StepUploadingFiles:
		return e.stepFiles(s, ev), nil
	case StepChoosingPayment:
		return e.stepPayment(ctx, user, s, ev)
	case StepWaitingPaymentRef:
		return e.stepPaymentRef(ctx, user, s, ev)
	default:
		return e.stepIdle(s, ev), nil
	}
}

// stepIdle waits for a category selection. Anything else redisplays the menu.
func (e *Engine) stepIdle(s *session.Session, ev Event) Reply {
	switch ev.Text {
	case BtnWebsite, order.CategoryWebsite:
		s.Draft.Category = order.CategoryWebsite
		s.Step = StepChoosingTemplate
		return Reply{
			Text:     `You chose: Website. Select a template or type "Custom" for a custom website.`,
			Keyboard: websiteTemplateMenu(),
		}
	case BtnBot, order.CategoryBot, "Bot":
		s.Draft.Category = order.CategoryBot
		s.Step = StepChoosingTemplate
		return Reply{
			Text:     `You chose: Telegram Bot. Select a template or type "Custom" for a custom bot.`,
			Keyboard: botTemplateMenu(),
		}
	}
	return Reply{
		Text:     "Choose an option:",
		Keyboard: MainMenu(),
	}
}

func (e *Engine) stepTemplate(s *session.Session, ev Event) Reply {
	if isCancel(ev) {
		return cancelled(s)
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return Reply{
			Text:     `Select a template or type "Custom".`,
			Keyboard: CancelMenu(),
		}
	}
	s.Draft.Template = text
	s.Step = StepEnteringDetails
	return Reply{
		Text:     "Please describe your requirements (features, deadline, domain, hosting, budget).",
		Keyboard: CancelMenu(),
	}
}

func (e *Engine) stepDetails(s *session.Session, ev Event) Reply {
	if isCancel(ev) {
		return cancelled(s)
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return Reply{
			Text:     "Please describe your requirements in a text message.",
			Keyboard: CancelMenu(),
		}
	}
	s.Draft.Details = text
	s.Step = StepUploadingFiles
	return Reply{
		Text:     `If you have files (designs, logos, docs), please send them now. Send "No files" if none.`,
		Keyboard: CancelMenu(),
	}
}

// stepFiles never rejects input: every payload maps to a descriptor tag.
func (e *Engine) stepFiles(s *session.Session, ev Event) Reply {
	if isCancel(ev) {
		return cancelled(s)
	}

	var descriptor string
	switch {
	case ev.Kind == KindDocument:
		descriptor = "document:" + ev.Attachment
	case ev.Kind == KindPhoto:
		descriptor = order.FilesPhoto
	case strings.EqualFold(strings.TrimSpace(ev.Text), noFilesToken):
		descriptor = order.FilesNone
	default:
		descriptor = order.FilesOther
	}

	s.Draft.Files = descriptor
	s.Step = StepChoosingPayment
	return Reply{
		Text:     "Choose a payment method:",
		Keyboard: PaymentMenu(),
	}
}

// stepPayment is the completion boundary: it assigns the price, persists the
// order and branches on the payment method family. A cancel here happens
// before the write, so no partial order is ever created.
func (e *Engine) stepPayment(ctx context.Context, user User, s *session.Session, ev Event) (Reply, error) {
	if isCancel(ev) {
		return cancelled(s), nil
	}

	method := strings.TrimSpace(ev.Text)
	price := e.cfg.Prices.For(s.Draft.Category)
	s.Draft.PaymentMethod = method

	id, err := e.store.Create(ctx, order.Order{
		UserID:        user.ID,
		Username:      user.Name,
		Category:      s.Draft.Category,
		Template:      s.Draft.Template,
		Details:       s.Draft.Details,
		Files:         s.Draft.Files,
		Price:         price,
		PaymentMethod: method,
		Status:        order.StatusNew,
	})
	if err != nil {
		return Reply{}, err
	}
	s.OrderID = id

	logger.Info(ctx, "flow", "checkout.complete",
		slog.Int64("order_id", id),
		slog.String("category", s.Draft.Category),
	)

	e.notifyAdmin(ctx, fmt.Sprintf(
		"New order #%d\nFrom: %s id:%d\nProduct: %s\nTemplate: %s\nPrice: %.2f\nStatus: %s",
		id, user.Name, user.ID, s.Draft.Category, s.Draft.Template, price, order.StatusNew,
	))

	switch {
	case strings.Contains(method, "USDT"):
		s.Step = StepWaitingPaymentRef
		return Reply{
			Text: fmt.Sprintf(
				"Order #%d created.\nAmount: %.2f USDT\nPay to TRC20 address: %s\n"+
					`After payment, send the transaction hash here or press "I paid" so admin can check.`,
				id, price, e.cfg.USDTAddress,
			),
			Keyboard:  usdtRefMenu(),
			QRPayload: e.cfg.USDTAddress,
		}, nil
	case strings.Contains(method, "Manual"):
		s.Step = StepWaitingPaymentRef
		text := fmt.Sprintf(
			"Order #%d created.\nEstimated price: %.2f (manual payment).\n"+
				"Please contact admin for bank/card details or reply here with confirmation.",
			id, price,
		)
		if e.cfg.ManualContact != "" {
			text += "\nContact: " + e.cfg.ManualContact
		}
		return Reply{Text: text, Keyboard: manualRefMenu()}, nil
	default:
		// Unrecognized method family: the order stays "new" forever and no
		// reference is ever collected.
		s.Reset()
		return Reply{
			Text:     fmt.Sprintf("Order #%d created. We will contact you soon.", id),
			Keyboard: MainMenu(),
		}, nil
	}
}

func (e *Engine) stepPaymentRef(ctx context.Context, user User, s *session.Session, ev Event) (Reply, error) {
	if isCancel(ev) {
		// The order keeps status "new"; only the session is discarded.
		s.Reset()
		return Reply{
			Text:     "Order cancelled. You can start again from main menu.",
			Keyboard: MainMenu(),
		}, nil
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" || text == BtnPaid || text == BtnContact {
		return Reply{
			Text:     "Please send payment reference (TX hash or payment note) or contact admin.",
			Keyboard: CancelMenu(),
		}, nil
	}

	orderID := s.OrderID
	if err := e.store.SetPaymentReference(ctx, orderID, text, order.StatusPendingConfirm); err != nil {
		return Reply{}, err
	}

	e.notifyAdmin(ctx, fmt.Sprintf(
		"Payment reference for order #%d: %s (from user %d)", orderID, text, user.ID,
	))

	s.Reset()
	return Reply{
		Text:     fmt.Sprintf("Thanks — payment reference saved for order #%d. Admin will confirm.", orderID),
		Keyboard: MainMenu(),
	}, nil
}

func (e *Engine) notifyAdmin(ctx context.Context, text string) {
	if e.notifier == nil {
		return
	}
	e.notifier.NotifyAdmin(ctx, text)
}

func isCancel(ev Event) bool {
	return ev.Kind == KindText && strings.EqualFold(strings.TrimSpace(ev.Text), BtnCancel)
}

func cancelled(s *session.Session) Reply {
	s.Reset()
	return Reply{
		Text:     "Order cancelled.",
		Keyboard: MainMenu(),
	}
}
