package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/tankist/marketbot/internal/order"
	"github.com/tankist/marketbot/internal/session"
)

type fakeStore struct {
	mu        sync.Mutex
	nextID    int64
	orders    map[int64]order.Order
	createErr error
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[int64]order.Order)}
}

func (f *fakeStore) Create(_ context.Context, o order.Order) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	o.ID = f.nextID
	f.orders[o.ID] = o
	return o.ID, nil
}

func (f *fakeStore) Get(_ context.Context, id int64) (order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]order.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []order.Summary
	for id := f.nextID; id >= 1; id-- {
		if o, ok := f.orders[id]; ok {
			out = append(out, summaryOf(o))
		}
	}
	return out, nil
}

func (f *fakeStore) ListForUser(_ context.Context, userID int64) ([]order.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []order.Summary
	for id := f.nextID; id >= 1; id-- {
		if o, ok := f.orders[id]; ok && o.UserID == userID {
			out = append(out, summaryOf(o))
		}
	}
	return out, nil
}

func (f *fakeStore) SetStatus(_ context.Context, id int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if o, ok := f.orders[id]; ok {
		o.Status = status
		f.orders[id] = o
	}
	return nil
}

func (f *fakeStore) SetPaymentReference(_ context.Context, id int64, reference, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if o, ok := f.orders[id]; ok {
		o.PaymentReference = reference
		o.Status = status
		f.orders[id] = o
	}
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func (f *fakeStore) get(t *testing.T, id int64) order.Order {
	t.Helper()
	o, err := f.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("order %d: %v", id, err)
	}
	return o
}

func summaryOf(o order.Order) order.Summary {
	return order.Summary{
		ID: o.ID, UserID: o.UserID, Username: o.Username,
		Category: o.Category, Status: o.Status, CreatedAt: o.CreatedAt,
	}
}

type fakeNotifier struct {
	mu    sync.Mutex
	admin []string
	users map[int64][]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{users: make(map[int64][]string)}
}

func (n *fakeNotifier) NotifyAdmin(_ context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admin = append(n.admin, text)
}

func (n *fakeNotifier) NotifyUser(_ context.Context, userID int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users[userID] = append(n.users[userID], text)
}

func newTestEngine(store order.Store, notifier Notifier) *Engine {
	return New(session.NewManager(), store, notifier, Config{
		USDTAddress: "TDtestaddress",
		Prices:      order.PriceTable{Website: 100, Bot: 80},
	})
}

func drive(t *testing.T, e *Engine, user User, events ...Event) Reply {
	t.Helper()
	var last Reply
	for _, ev := range events {
		reply, err := e.Handle(context.Background(), user, ev)
		if err != nil {
			t.Fatalf("handle %+v: %v", ev, err)
		}
		last = reply
	}
	return last
}

func checkoutEvents(category, template, details, files, payment string) []Event {
	return []Event{
		TextEvent(category),
		TextEvent(template),
		TextEvent(details),
		TextEvent(files),
		TextEvent(payment),
	}
}

func TestFullCheckoutUSDT(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	e := newTestEngine(store, notifier)
	user := User{ID: 42, Name: "alice"}

	reply := drive(t, e, user, checkoutEvents(BtnWebsite, "Custom", "need 5 pages", "no files", PayUSDT)...)

	if store.count() != 1 {
		t.Fatalf("orders = %d, want exactly 1", store.count())
	}
	o := store.get(t, 1)
	if o.UserID != 42 || o.Username != "alice" {
		t.Errorf("user fields = %d/%q", o.UserID, o.Username)
	}
	if o.Category != order.CategoryWebsite || o.Template != "Custom" || o.Details != "need 5 pages" {
		t.Errorf("accumulated fields mismatch: %+v", o)
	}
	if o.Files != order.FilesNone {
		t.Errorf("files = %q, want %q", o.Files, order.FilesNone)
	}
	if o.Price != 100 {
		t.Errorf("price = %v, want fixed Website price 100", o.Price)
	}
	if o.Status != order.StatusNew {
		t.Errorf("status = %q, want new", o.Status)
	}
	if reply.QRPayload != "TDtestaddress" {
		t.Errorf("QR payload = %q", reply.QRPayload)
	}
	if !e.InProgress(user.ID) {
		t.Error("expected waiting_payment_ref session after USDT branch")
	}
	if len(notifier.admin) != 1 || !strings.Contains(notifier.admin[0], "New order #1") {
		t.Errorf("admin notifications = %v", notifier.admin)
	}

	// Supplying the reference finishes the session and flips the status once.
	reply = drive(t, e, user, TextEvent("abc123"))
	o = store.get(t, 1)
	if o.PaymentReference != "abc123" {
		t.Errorf("reference = %q", o.PaymentReference)
	}
	if o.Status != order.StatusPendingConfirm {
		t.Errorf("status = %q, want pending_confirm", o.Status)
	}
	if e.InProgress(user.ID) {
		t.Error("session should be idle after reference")
	}
	if !strings.Contains(reply.Text, "#1") {
		t.Errorf("reply = %q", reply.Text)
	}
	if store.count() != 1 {
		t.Fatalf("orders = %d after reference, want still 1", store.count())
	}
}

func TestFallbackPaymentFamily(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, newFakeNotifier())
	user := User{ID: 7, Name: "bob"}

	reply := drive(t, e, user, checkoutEvents(BtnBot, "Bot Template 1", "echo bot", "no files", "cash on mars")...)

	if store.count() != 1 {
		t.Fatalf("orders = %d, want 1", store.count())
	}
	o := store.get(t, 1)
	if o.Price != 80 {
		t.Errorf("price = %v, want fixed Bot price 80", o.Price)
	}
	if o.Status != order.StatusNew {
		t.Errorf("status = %q, want new forever", o.Status)
	}
	if e.InProgress(user.ID) {
		t.Error("fallback family must return to idle immediately")
	}
	if !strings.Contains(reply.Text, "We will contact you soon") {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestCancelBeforeCompletionCreatesNothing(t *testing.T) {
	prefix := checkoutEvents(BtnWebsite, "Template A", "details", "no files", PayUSDT)

	// Cancelling after N accepted steps, for every step before the order write.
	for steps := 1; steps <= 4; steps++ {
		t.Run(fmt.Sprintf("after_%d_steps", steps), func(t *testing.T) {
			store := newFakeStore()
			e := newTestEngine(store, newFakeNotifier())
			user := User{ID: 1, Name: "u"}

			events := append(append([]Event{}, prefix[:steps]...), TextEvent("Cancel"))
			reply := drive(t, e, user, events...)

			if store.count() != 0 {
				t.Fatalf("orders = %d, want 0 after cancel", store.count())
			}
			if e.InProgress(user.ID) {
				t.Error("session must reset to idle")
			}
			if !strings.Contains(reply.Text, "cancelled") {
				t.Errorf("reply = %q", reply.Text)
			}
		})
	}
}

func TestCancelWhileWaitingRefKeepsOrderNew(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, newFakeNotifier())
	user := User{ID: 5, Name: "u"}

	drive(t, e, user, checkoutEvents(BtnWebsite, "Template B", "x", "no files", PayUSDT)...)
	drive(t, e, user, TextEvent("cancel"))

	o := store.get(t, 1)
	if o.Status != order.StatusNew {
		t.Errorf("status = %q, cancel must leave the order unconfirmed", o.Status)
	}
	if o.PaymentReference != "" {
		t.Errorf("reference = %q, want empty", o.PaymentReference)
	}
	if e.InProgress(user.ID) {
		t.Error("session must reset to idle")
	}
}

func TestIntentTokensDoNotMutateOrder(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, newFakeNotifier())
	user := User{ID: 5, Name: "u"}

	drive(t, e, user, checkoutEvents(BtnWebsite, "Template A", "x", "no files", PayManual)...)

	for _, intent := range []string{BtnPaid, BtnContact} {
		reply := drive(t, e, user, TextEvent(intent))
		if !strings.Contains(reply.Text, "payment reference") {
			t.Errorf("%q: reply = %q, want re-prompt", intent, reply.Text)
		}
		o := store.get(t, 1)
		if o.Status != order.StatusNew || o.PaymentReference != "" {
			t.Errorf("%q mutated the order: %+v", intent, o)
		}
		if !e.InProgress(user.ID) {
			t.Errorf("%q must keep the session in waiting_payment_ref", intent)
		}
	}
}

func TestIdleIsPermissive(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, newFakeNotifier())
	user := User{ID: 9, Name: "u"}

	for _, text := range []string{"hello", "", "/unknown", "42"} {
		reply := drive(t, e, user, TextEvent(text))
		if e.InProgress(user.ID) {
			t.Errorf("%q must not leave idle", text)
		}
		if len(reply.Keyboard) == 0 {
			t.Errorf("%q: expected the main menu back", text)
		}
	}
	if store.count() != 0 {
		t.Errorf("orders = %d, want 0", store.count())
	}
}

func TestUploadClassification(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"document", Event{Kind: KindDocument, Attachment: "logo.pdf"}, "document:logo.pdf"},
		{"photo", Event{Kind: KindPhoto}, order.FilesPhoto},
		{"no files literal", TextEvent("no files"), order.FilesNone},
		{"no files case-insensitive", TextEvent("No Files"), order.FilesNone},
		{"arbitrary text", TextEvent("I'll send later"), order.FilesOther},
		{"other kind", Event{Kind: KindOther}, order.FilesOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			e := newTestEngine(store, newFakeNotifier())
			user := User{ID: 3, Name: "u"}

			drive(t, e, user,
				TextEvent(BtnWebsite),
				TextEvent("Custom"),
				TextEvent("details"),
				tt.ev,
				TextEvent(PayUSDT),
			)
			o := store.get(t, 1)
			if o.Files != tt.want {
				t.Errorf("files = %q, want %q", o.Files, tt.want)
			}
		})
	}
}

func TestConcurrentUsersGetDistinctOrders(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, newFakeNotifier())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			user := User{ID: 100 + n, Name: fmt.Sprintf("user%d", n)}
			details := fmt.Sprintf("details for %d", n)
			drive(t, e, user, checkoutEvents(BtnWebsite, "Custom", details, "no files", PayUSDT)...)
		}(int64(i))
	}
	wg.Wait()

	if store.count() != 2 {
		t.Fatalf("orders = %d, want 2", store.count())
	}
	seen := make(map[int64]bool)
	for id := int64(1); id <= 2; id++ {
		o := store.get(t, id)
		if seen[o.UserID] {
			t.Errorf("user %d appears twice", o.UserID)
		}
		seen[o.UserID] = true
		want := fmt.Sprintf("details for %d", o.UserID-100)
		if o.Details != want {
			t.Errorf("order %d details = %q, want %q (no cross-contamination)", id, o.Details, want)
		}
	}
}

func TestStorageFailureKeepsStep(t *testing.T) {
	store := newFakeStore()
	store.createErr = fmt.Errorf("boom: %w", order.ErrUnavailable)
	e := newTestEngine(store, newFakeNotifier())
	user := User{ID: 8, Name: "u"}

	drive(t, e, user, checkoutEvents(BtnWebsite, "Custom", "x", "no files", "")[:4]...)

	_, err := e.Handle(context.Background(), user, TextEvent(PayUSDT))
	if !errors.Is(err, order.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable to surface", err)
	}
	if !e.InProgress(user.ID) {
		t.Fatal("step must survive a storage failure so the user can retry")
	}

	// Retry after the store recovers: exactly one order.
	store.createErr = nil
	drive(t, e, user, TextEvent(PayUSDT))
	if store.count() != 1 {
		t.Fatalf("orders = %d, want exactly 1 after retry", store.count())
	}
}

func TestAdminSetStatusNotifiesOwner(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	e := newTestEngine(store, notifier)
	user := User{ID: 11, Name: "u"}

	drive(t, e, user, checkoutEvents(BtnWebsite, "Custom", "x", "no files", PayUSDT)...)

	if err := e.SetStatus(context.Background(), 1, "shipped"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if got := store.get(t, 1).Status; got != "shipped" {
		t.Errorf("status = %q, want shipped", got)
	}
	msgs := notifier.users[11]
	if len(msgs) != 1 || !strings.Contains(msgs[0], "shipped") {
		t.Errorf("owner notifications = %v", msgs)
	}

	// Unknown id is a silent no-op.
	if err := e.SetStatus(context.Background(), 999, "lost"); err != nil {
		t.Errorf("set status on missing id: %v", err)
	}
}

func TestResetClearsInProgressSession(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, newFakeNotifier())
	user := User{ID: 2, Name: "u"}

	drive(t, e, user, TextEvent(BtnWebsite), TextEvent("Custom"))
	if !e.InProgress(user.ID) {
		t.Fatal("expected in-progress session")
	}

	reply := e.Reset(user.ID)
	if e.InProgress(user.ID) {
		t.Error("reset must discard the session")
	}
	if !strings.Contains(reply.Text, "Choose an option") {
		t.Errorf("reply = %q", reply.Text)
	}
	if store.count() != 0 {
		t.Errorf("orders = %d, want 0", store.count())
	}
}
