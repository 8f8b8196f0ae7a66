package order

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when no order exists with the given id.
	ErrNotFound = errors.New("order not found")
	// ErrUnavailable marks storage I/O failures. Callers surface it to the
	// transport boundary; the store itself never retries.
	ErrUnavailable = errors.New("order storage unavailable")
)

// Store is the durable order record contract.
//
// All mutations are single parameterized writes, so callers never observe
// read-modify-write races. SetStatus and SetPaymentReference are silent
// no-ops for unknown ids.
type Store interface {
	// Create inserts a new order with status "new" and returns the assigned id.
	Create(ctx context.Context, o Order) (int64, error)
	// Get returns the full order row or ErrNotFound.
	Get(ctx context.Context, id int64) (Order, error)
	// ListAll returns summaries of every order, most recent first.
	ListAll(ctx context.Context) ([]Summary, error)
	// ListForUser returns summaries of one user's orders, most recent first.
	ListForUser(ctx context.Context, userID int64) ([]Summary, error)
	// SetStatus unconditionally overwrites the status field.
	SetStatus(ctx context.Context, id int64, status string) error
	// SetPaymentReference overwrites payment reference and status together.
	SetPaymentReference(ctx context.Context, id int64, reference, status string) error
}
