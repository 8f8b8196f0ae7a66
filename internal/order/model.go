package order

import "time"

// Product categories offered in the main menu. Category is kept as a plain
// string in the persisted row so new categories can be added without a
// migration.
const (
	CategoryWebsite = "Website"
	CategoryBot     = "Telegram Bot"
)

// Machine-assigned statuses. Status is deliberately an open string: admins
// may overwrite it with arbitrary text (e.g. "shipped", "confirmed").
const (
	StatusNew            = "new"
	StatusPendingConfirm = "pending_confirm"
)

// Attachment descriptor tags recorded in the files column.
const (
	FilesNone  = "no files"
	FilesPhoto = "photo"
	FilesOther = "files:other"
)

// Order is a persisted record of a completed checkout.
type Order struct {
	ID               int64     `db:"id"`
	UserID           int64     `db:"user_id"`
	Username         string    `db:"username"`
	Category         string    `db:"product_type"`
	Template         string    `db:"template_choice"`
	Details          string    `db:"details"`
	Files            string    `db:"files"`
	Price            float64   `db:"price"`
	PaymentMethod    string    `db:"payment_method"`
	PaymentReference string    `db:"payment_reference"`
	Status           string    `db:"status"`
	CreatedAt        time.Time `db:"created_at"`
}

// Summary is the short row shape returned by list operations.
type Summary struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	Category  string    `db:"product_type"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

// Draft accumulates order fields across conversation steps before the row exists.
type Draft struct {
	Category      string
	Template      string
	Details       string
	Files         string
	PaymentMethod string
}

// PriceTable holds the fixed per-category prices.
type PriceTable struct {
	Website float64
	Bot     float64
}

// For returns the price for a category: Website has its own price, every
// other category uses the bot price.
func (p PriceTable) For(category string) float64 {
	if category == CategoryWebsite {
		return p.Website
	}
	return p.Bot
}
