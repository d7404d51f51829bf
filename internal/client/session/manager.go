package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/awnumar/memguard"
)

// Ticket records the session epoch observed before a key derivation started.
type Ticket struct {
	epoch uint64
}

// Manager owns the single session slot of the process.
type Manager struct {
	cfg *Config

	mu        sync.RWMutex
	state     State
	identity  string
	key       *memguard.Enclave
	expiresAt time.Time

	// epoch changes on every establish, logout and expiry.
	epoch uint64

	timer    Timer
	timerSeq uint64
}

// NewManager creates a manager in the LoggedOut state.
func NewManager(opts ...Option) (*Manager, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, state: StateLoggedOut}, nil
}

// Duration returns the configured idle timeout.
func (m *Manager) Duration() time.Duration {
	return m.cfg.Duration
}

// Begin returns a ticket to pass to Establish once the key is derived.
func (m *Manager) Begin() Ticket {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Ticket{epoch: m.epoch}
}

// Establish installs key for identity and starts a new session, replacing any
// current one. key is wiped in every case; the manager keeps its own sealed
// copy. ErrSessionSuperseded means a logout, expiry or another Establish
// happened after t was taken.
func (m *Manager) Establish(t Ticket, identity string, key []byte) error {
	if identity == "" || len(key) == 0 {
		memguard.WipeBytes(key)
		return ErrEmptyKey
	}

	m.mu.Lock()
	if t.epoch != m.epoch {
		m.mu.Unlock()
		memguard.WipeBytes(key)
		m.cfg.Logger.Warn(context.Background(), "discarding key of superseded session", "identity", identity)
		return ErrSessionSuperseded
	}

	m.teardownLocked()
	m.epoch++
	m.key = memguard.NewEnclave(key)
	m.identity = identity
	m.state = StateActive
	m.expiresAt = m.cfg.Clock.Now().Add(m.cfg.Duration)
	m.scheduleLocked()
	expiresAt := m.expiresAt
	m.mu.Unlock()

	m.cfg.Logger.Info(context.Background(), "session established", "identity", identity, "expires_at", expiresAt)
	return nil
}

// Rekey replaces the key of the current session. fn runs with the slot
// write-locked, so no WithKey or WithSession caller is inside its callback
// while fn rewrites data under the new key. The key is swapped only when fn
// succeeds, and the expiry slides forward as for Touch. newKey is wiped in
// every case. fn must not call back into the manager.
func (m *Manager) Rekey(t Ticket, newKey []byte, fn func(identity string) error) error {
	defer memguard.WipeBytes(newKey)
	if len(newKey) == 0 {
		return ErrEmptyKey
	}

	m.mu.Lock()
	if !m.usableLocked() {
		m.mu.Unlock()
		return ErrNoActiveSession
	}
	if t.epoch != m.epoch {
		m.mu.Unlock()
		return ErrSessionSuperseded
	}

	identity := m.identity
	if err := fn(identity); err != nil {
		m.mu.Unlock()
		return err
	}

	m.key = memguard.NewEnclave(newKey)
	m.epoch++
	m.state = StateActive
	if next := m.cfg.Clock.Now().Add(m.cfg.Duration); next.After(m.expiresAt) {
		m.expiresAt = next
	}
	m.scheduleLocked()
	m.mu.Unlock()

	m.cfg.Logger.Info(context.Background(), "session key replaced", "identity", identity)
	return nil
}

// Touch records user activity and slides the expiry forward. A session in the
// warning period returns to Active.
func (m *Manager) Touch() error {
	m.mu.Lock()
	if !m.liveLocked() {
		m.mu.Unlock()
		return ErrNoActiveSession
	}

	now := m.cfg.Clock.Now()
	if !now.Before(m.expiresAt) {
		notify := m.expireLocked()
		m.mu.Unlock()
		notify()
		return ErrNoActiveSession
	}

	if next := now.Add(m.cfg.Duration); next.After(m.expiresAt) {
		m.expiresAt = next
	}
	wasWarning := m.state == StateWarning
	m.state = StateActive
	m.scheduleLocked()
	identity := m.identity
	m.mu.Unlock()

	if wasWarning {
		m.cfg.Logger.Debug(context.Background(), "session warning cancelled by activity", "identity", identity)
	}
	return nil
}

// Logout drops the key immediately. It is a no-op when logged out.
func (m *Manager) Logout() {
	m.mu.Lock()
	identity := m.identity
	wasLive := m.liveLocked()
	m.teardownLocked()
	m.epoch++
	m.mu.Unlock()

	if wasLive {
		m.cfg.Logger.Info(context.Background(), "session closed", "identity", identity)
	}
}

// WithKey calls fn with the session key. The key slice is only valid during
// fn and is wiped afterwards. fn must not call back into the manager.
func (m *Manager) WithKey(fn func(key []byte) error) error {
	return m.WithSession(func(_ string, key []byte) error { return fn(key) })
}

// WithSession is WithKey that also passes the identity the key belongs to.
// Both are read under the same lock, so they always match. Data sealed and
// stored inside fn cannot interleave with Rekey.
func (m *Manager) WithSession(fn func(identity string, key []byte) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.usableLocked() {
		return ErrNoActiveSession
	}

	buf, err := m.key.Open()
	if err != nil {
		return fmt.Errorf("open key enclave: %w", err)
	}
	defer buf.Destroy()

	return fn(m.identity, buf.Bytes())
}

// ActiveKey returns a copy of the session key. The caller owns the copy and
// should wipe it after use; prefer WithKey.
func (m *Manager) ActiveKey() ([]byte, error) {
	var out []byte
	err := m.WithKey(func(key []byte) error {
		out = append([]byte(nil), key...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveIdentity returns the identity of a usable session.
func (m *Manager) ActiveIdentity() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.usableLocked() {
		return "", ErrNoActiveSession
	}
	return m.identity, nil
}

// IsActive reports whether the key is available right now.
func (m *Manager) IsActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usableLocked()
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Status returns a snapshot of the slot.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{State: m.state, Identity: m.identity, ExpiresAt: m.expiresAt}
	if m.liveLocked() {
		if rem := m.expiresAt.Sub(m.cfg.Clock.Now()); rem > 0 {
			st.Remaining = rem
		}
	}
	return st
}

func (m *Manager) liveLocked() bool {
	return m.state == StateActive || m.state == StateWarning
}

// usableLocked also rejects a session whose expiry passed before its timer
// got the lock.
func (m *Manager) usableLocked() bool {
	return m.liveLocked() && m.key != nil && m.cfg.Clock.Now().Before(m.expiresAt)
}

func (m *Manager) teardownLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerSeq++
	m.key = nil
	m.identity = ""
	m.expiresAt = time.Time{}
	m.state = StateLoggedOut
}

// expireLocked moves a live session through Expired to LoggedOut and returns
// the notification to run after unlocking.
func (m *Manager) expireLocked() func() {
	identity := m.identity
	m.state = StateExpired
	m.teardownLocked()
	m.epoch++

	return func() {
		m.cfg.Logger.Info(context.Background(), "session expired", "identity", identity)
		if m.cfg.OnExpire != nil {
			m.cfg.OnExpire(identity)
		}
	}
}

// scheduleLocked arms the single timer for the next transition: the warning
// while Active, the expiry while in Warning.
func (m *Manager) scheduleLocked() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timerSeq++
	seq := m.timerSeq

	d := m.expiresAt.Sub(m.cfg.Clock.Now())
	if m.state == StateActive && m.cfg.WarningThreshold > 0 {
		d -= m.cfg.WarningThreshold
	}
	if d < 0 {
		d = 0
	}

	m.timer = m.cfg.Clock.AfterFunc(d, func() { m.fire(seq) })
}

func (m *Manager) fire(seq uint64) {
	m.mu.Lock()
	if seq != m.timerSeq || !m.liveLocked() {
		m.mu.Unlock()
		return
	}
	m.timer = nil

	remaining := m.expiresAt.Sub(m.cfg.Clock.Now())
	var notify func()

	switch {
	case remaining <= 0:
		notify = m.expireLocked()
	case m.state == StateActive && remaining <= m.cfg.WarningThreshold:
		m.state = StateWarning
		identity := m.identity
		notify = func() {
			m.cfg.Logger.Info(context.Background(), "session about to expire", "identity", identity, "remaining", remaining)
			if m.cfg.OnWarning != nil {
				m.cfg.OnWarning(identity, remaining)
			}
		}
		m.scheduleLocked()
	default:
		m.scheduleLocked()
	}
	m.mu.Unlock()

	if notify != nil {
		notify()
	}
}
