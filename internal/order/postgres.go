package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tankist/marketbot/internal/logger"
)

const summaryColumns = "id, user_id, username, product_type, status, created_at"

// PostgresStore implements Store on top of a shared sqlx connection pool.
type PostgresStore struct {
	db        *sqlx.DB
	opTimeout time.Duration
}

// NewPostgresStore wraps the provided pool. opTimeout bounds every single
// operation so callers always receive a definite success or failure.
func NewPostgresStore(db *sqlx.DB, opTimeout time.Duration) *PostgresStore {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &PostgresStore{db: db, opTimeout: opTimeout}
}

func (s *PostgresStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// Create inserts a new order row with status "new" and returns the assigned id.
func (s *PostgresStore) Create(ctx context.Context, o Order) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if o.Status == "" {
		o.Status = StatusNew
	}

	start := time.Now()
	var id int64
	err := s.db.QueryRowxContext(ctx, `
        INSERT INTO orders (
            user_id, username, product_type, template_choice, details,
            files, price, payment_method, payment_reference, status, created_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
        RETURNING id`,
		o.UserID, o.Username, o.Category, o.Template, o.Details,
		o.Files, o.Price, o.PaymentMethod, o.PaymentReference, o.Status,
	).Scan(&id)
	if err != nil {
		return 0, unavailable("create order", err)
	}

	logger.DB.Info("order created",
		slog.String("event", "orders.create"),
		slog.Int64("order_id", id),
		slog.Int64("user_id", o.UserID),
		slog.String("category", o.Category),
		slog.Duration("duration", logger.Took(start)),
	)
	return id, nil
}

// Get returns one order by id or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id int64) (Order, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var o Order
	err := s.db.GetContext(ctx, &o, `
        SELECT id, user_id, username, product_type, template_choice, details,
               files, price, payment_method, payment_reference, status, created_at
        FROM orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, fmt.Errorf("get order %d: %w", id, ErrNotFound)
		}
		return Order{}, unavailable("get order", err)
	}
	return o, nil
}

// ListAll returns summaries of every order, newest first.
func (s *PostgresStore) ListAll(ctx context.Context) ([]Summary, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rows []Summary
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+summaryColumns+" FROM orders ORDER BY id DESC")
	if err != nil {
		return nil, unavailable("list orders", err)
	}
	return rows, nil
}

// ListForUser returns summaries of one user's orders, newest first.
func (s *PostgresStore) ListForUser(ctx context.Context, userID int64) ([]Summary, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rows []Summary
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+summaryColumns+" FROM orders WHERE user_id = $1 ORDER BY id DESC", userID)
	if err != nil {
		return nil, unavailable("list user orders", err)
	}
	return rows, nil
}

// SetStatus overwrites the status field. Unknown ids are a silent no-op.
func (s *PostgresStore) SetStatus(ctx context.Context, id int64, status string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return unavailable("set order status", err)
	}

	logger.DB.Info("order status set",
		slog.String("event", "orders.set_status"),
		slog.Int64("order_id", id),
		slog.String("status", status),
	)
	return nil
}

// SetPaymentReference overwrites payment reference and status in one write.
// Unknown ids are a silent no-op.
func (s *PostgresStore) SetPaymentReference(ctx context.Context, id int64, reference, status string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_reference = $1, status = $2 WHERE id = $3",
		reference, status, id)
	if err != nil {
		return unavailable("set payment reference", err)
	}

	logger.DB.Info("payment reference set",
		slog.String("event", "orders.set_payment_ref"),
		slog.Int64("order_id", id),
		slog.String("status", status),
	)
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
