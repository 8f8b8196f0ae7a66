// Package session provides the ephemeral per-user conversation state.
// Sessions live in memory only: a process restart loses in-progress,
// not-yet-submitted orders.
package session

import (
	"sync"

	"github.com/tankist/marketbot/internal/order"
)

// Step identifies a finite-state-machine stage of the order conversation.
type Step string

// StepIdle indicates there is no active conversation with the user.
const StepIdle Step = "idle"

// Session stores conversation state and the order draft for one user.
type Session struct {
	UserID   int64
	Username string
	Step     Step
	Draft    order.Draft
	// OrderID holds the persisted order id once the checkout completed,
	// while the user is expected to supply a payment reference.
	OrderID int64
}

// Reset discards all accumulated fields and returns the session to idle.
func (s *Session) Reset() {
	s.Step = StepIdle
	s.Draft = order.Draft{}
	s.OrderID = 0
}

type entry struct {
	mu   sync.Mutex
	sess Session
}

// Manager owns sessions keyed by user id. Access to a session happens only
// inside With, which serializes transitions per user: two concurrent events
// from the same user can never both observe and leave the same step.
type Manager struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

// NewManager constructs an empty in-memory Manager.
func NewManager() *Manager {
	return &Manager{entries: make(map[int64]*entry)}
}

func (m *Manager) getOrCreate(userID int64) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[userID]
	if !ok {
		e = &entry{sess: Session{UserID: userID, Step: StepIdle}}
		m.entries[userID] = e
	}
	return e
}

// With runs fn with exclusive access to the user's session, creating an idle
// one on first interaction. The error is fn's error, returned unchanged.
func (m *Manager) With(userID int64, fn func(s *Session) error) error {
	e := m.getOrCreate(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&e.sess)
}

// Peek returns a copy of the user's session and whether one exists.
func (m *Manager) Peek(userID int64) (Session, bool) {
	m.mu.Lock()
	e, ok := m.entries[userID]
	m.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess, true
}

// InProgress reports whether the user currently has an active non-idle step.
func (m *Manager) InProgress(userID int64) bool {
	sess, ok := m.Peek(userID)
	return ok && sess.Step != StepIdle
}

// Clear resets the user's session to idle. It takes the same per-user lock
// as With, so a transition already in flight finishes before the reset and
// a later one observes the idle state.
func (m *Manager) Clear(userID int64) {
	m.mu.Lock()
	e, ok := m.entries[userID]
	m.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.sess.Reset()
	e.mu.Unlock()
}
