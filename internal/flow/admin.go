package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/tankist/marketbot/internal/order"
)

// The operations below run outside the state machine and never touch
// session state. The transport layer is responsible for checking the
// privileged identity before calling the admin ones.

// UserOrders returns the caller's orders, newest first.
func (e *Engine) UserOrders(ctx context.Context, userID int64) ([]order.Summary, error) {
	return e.store.ListForUser(ctx, userID)
}

// ContactAdmin notifies the admin that a user asked to get in touch.
func (e *Engine) ContactAdmin(ctx context.Context, user User) Reply {
	e.notifyAdmin(ctx, fmt.Sprintf("User %s (id:%d) wants to contact admin.", user.Name, user.ID))
	return Reply{
		Text:     "Admin will be notified and will reach out to you.",
		Keyboard: MainMenu(),
	}
}

// ListOrders returns every order for the admin overview.
func (e *Engine) ListOrders(ctx context.Context) ([]order.Summary, error) {
	return e.store.ListAll(ctx)
}

// OrderDetail returns the full order row; order.ErrNotFound when missing.
func (e *Engine) OrderDetail(ctx context.Context, id int64) (order.Order, error) {
	return e.store.Get(ctx, id)
}

// SetStatus force-sets an order's status and notifies the owning user on a
// best-effort basis. Unknown ids are a silent no-op, matching the store.
func (e *Engine) SetStatus(ctx context.Context, id int64, status string) error {
	if err := e.store.SetStatus(ctx, id, status); err != nil {
		return err
	}
	if o, err := e.store.Get(ctx, id); err == nil && e.notifier != nil {
		e.notifier.NotifyUser(ctx, o.UserID,
			fmt.Sprintf("Your order #%d status changed to: %s", id, status))
	}
	return nil
}

// FormatSummaries renders order summaries as one line per order.
func FormatSummaries(rows []order.Summary) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("#%d | user:%d | %s | %s | %s",
			r.ID, r.UserID, r.Category, r.Status, r.CreatedAt.Format("2006-01-02 15:04")))
	}
	return strings.Join(lines, "\n")
}

// FormatUserSummaries renders a user's own orders without the user column.
func FormatUserSummaries(rows []order.Summary) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("#%d — %s — %s — %s",
			r.ID, r.Category, r.Status, r.CreatedAt.Format("2006-01-02 15:04")))
	}
	return strings.Join(lines, "\n")
}

// FormatOrder renders the full order detail for the admin view.
func FormatOrder(o order.Order) string {
	return fmt.Sprintf(
		"Order #%d\nUser: %s (id:%d)\nProduct: %s\nTemplate: %s\nDetails: %s\n"+
			"Files: %s\nPrice: %.2f\nPayment: %s\nPayment ref: %s\nStatus: %s\nCreated: %s",
		o.ID, o.Username, o.UserID, o.Category, o.Template, o.Details,
		o.Files, o.Price, o.PaymentMethod, o.PaymentReference, o.Status,
		o.CreatedAt.Format("2006-01-02 15:04:05"),
	)
}
