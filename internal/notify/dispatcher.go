// Package notify delivers best-effort messages to the admin or a user
// through a small asynchronous queue. Failures are logged and never
// propagate to the caller: a broken notification must not block the
// conversation that triggered it.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tankist/marketbot/internal/logger"
)

// ErrQueueClosed is returned by enqueue after the dispatcher stopped.
var ErrQueueClosed = errors.New("notify: queue closed")

// Sender performs the actual delivery of one message.
type Sender interface {
	SendTo(ctx context.Context, recipient int64, text string) error
}

// Options controls queue sizing.
type Options struct {
	AdminID   int64
	QueueSize int
	Workers   int
}

type note struct {
	recipient int64
	text      string
}

// Dispatcher executes outbound notifications asynchronously.
type Dispatcher struct {
	sender  Sender
	adminID int64
	jobs    chan note
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	errs    atomic.Uint64
	dropped atomic.Uint64
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(sender Sender, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}

	d := &Dispatcher{
		sender:  sender,
		adminID: opts.AdminID,
		jobs:    make(chan note, opts.QueueSize),
		stop:    make(chan struct{}),
	}

	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}

	return d
}

// NotifyAdmin queues a message for the privileged identity.
func (d *Dispatcher) NotifyAdmin(ctx context.Context, text string) {
	d.NotifyUser(ctx, d.adminID, text)
}

// NotifyUser queues a message for a specific user. When the queue is
// saturated or closed the message is dropped with a warning.
func (d *Dispatcher) NotifyUser(ctx context.Context, userID int64, text string) {
	if err := d.enqueue(note{recipient: userID, text: text}); err != nil {
		d.dropped.Add(1)
		logger.Warn(ctx, "notify", "queue.drop",
			slog.Int64("recipient", userID),
			slog.String("err", err.Error()),
		)
	}
}

func (d *Dispatcher) enqueue(n note) error {
	select {
	case <-d.stop:
		return ErrQueueClosed
	default:
	}

	select {
	case d.jobs <- n:
		return nil
	default:
		return errors.New("notify: queue full")
	}
}

// ErrorCount returns the number of failed deliveries.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// DroppedCount returns the number of notifications rejected at enqueue time.
func (d *Dispatcher) DroppedCount() uint64 {
	return d.dropped.Load()
}

// Close stops workers and waits for queued notifications to drain.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.stop)
		close(d.jobs)
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for n := range d.jobs {
		if d.sender == nil || n.recipient == 0 {
			continue
		}
		if err := d.sender.SendTo(context.Background(), n.recipient, n.text); err != nil {
			d.errs.Add(1)
			logger.NTF.Warn("delivery failed",
				slog.String("event", "notify.send"),
				slog.Int64("recipient", n.recipient),
				slog.String("err", err.Error()),
			)
		}
	}
}
