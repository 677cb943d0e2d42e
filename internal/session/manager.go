// Package session owns the authentication state machine:
// anonymous → authenticating → authenticated → (logged-out | expired).
//
// All remote-call failures are absorbed here and surfaced as the published
// session's status message; they never escape to callers. Ambiguous
// failures (network faults, malformed payloads) fail closed — the manager
// never assumes a session is valid.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/harunwdi/hrds/internal/domain"
	"github.com/harunwdi/hrds/internal/tokenstore"
)

// Status messages published alongside transitions.
const (
	msgGoogleSuccess   = "Login successful with Google"
	msgGoogleFailed    = "Google login failed. Please try again."
	msgInvalidPassword = "Invalid username or password"
	msgLoggedOut       = "You have been logged out"
	msgSessionExpired  = "Session expired. Please sign in again."
)

// AuthClient is the slice of the registry client the manager needs.
type AuthClient interface {
	Authenticate(ctx context.Context) (*domain.Identity, error)
	ExchangeGoogleToken(ctx context.Context, assertion string) (string, *domain.Identity, error)
}

// Observer receives every published session transition.
type Observer func(domain.Session)

// Manager drives the session lifecycle and publishes each transition to
// subscribed observers. It is safe for concurrent use.
type Manager struct {
	client   AuthClient
	tokens   tokenstore.Store
	accounts *AllowList
	log      *slog.Logger

	mu      sync.Mutex
	session domain.Session
	subs    map[int]Observer
	nextSub int
}

// NewManager creates a Manager in the Anonymous state.
// accounts may be nil, disabling password login entirely.
func NewManager(client AuthClient, tokens tokenstore.Store, accounts *AllowList, logger *slog.Logger) *Manager {
	return &Manager{
		client:   client,
		tokens:   tokens,
		accounts: accounts,
		log:      logger.With("component", "session"),
		session:  domain.Session{Status: domain.SessionAnonymous},
		subs:     make(map[int]Observer),
	}
}

// Current returns a snapshot of the published session.
func (m *Manager) Current() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Subscribe registers an observer for session transitions and returns an
// unsubscribe function. The observer is invoked synchronously, once per
// transition, outside the manager's lock.
func (m *Manager) Subscribe(fn Observer) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// publish replaces the session state and notifies observers.
func (m *Manager) publish(s domain.Session) {
	m.mu.Lock()
	m.session = s
	observers := make([]Observer, 0, len(m.subs))
	for _, fn := range m.subs {
		observers = append(observers, fn)
	}
	m.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}

// Revalidate checks the persisted credential against the registry. It is
// invoked once at application start. The returned bool tells the caller
// which surface to route to: true → main application, false → login.
//
// Absent credential: no network call is made, the session stays Anonymous.
// Invalid credential or any failure: the credential is cleared and the
// session transitions to Failed with a diagnostic message.
func (m *Manager) Revalidate(ctx context.Context) bool {
	// The client attaches the credential itself; only presence matters here.
	if _, ok := m.tokens.Get(); !ok {
		m.publish(domain.Session{Status: domain.SessionAnonymous})
		return false
	}

	m.publish(domain.Session{Status: domain.SessionAuthenticating})

	identity, err := m.client.Authenticate(ctx)
	if err != nil {
		m.log.InfoContext(ctx, "revalidation failed", slog.String("error", err.Error()))
		if clearErr := m.tokens.Clear(); clearErr != nil {
			m.log.WarnContext(ctx, "clearing credential failed", slog.String("error", clearErr.Error()))
		}
		m.publish(domain.Session{Status: domain.SessionFailed, StatusMessage: msgSessionExpired})
		return false
	}

	m.log.InfoContext(ctx, "session revalidated", slog.String("subject", identity.Subject))
	m.publish(domain.Session{Status: domain.SessionAuthenticated, Identity: identity})
	return true
}

// LoginWithPassword checks the username/password pair against the fixed
// demo allow-list. No credential is persisted: password sessions live only
// for the current process, by design.
func (m *Manager) LoginWithPassword(username, password string) bool {
	m.publish(domain.Session{Status: domain.SessionAuthenticating})

	if m.accounts == nil {
		m.publish(domain.Session{Status: domain.SessionFailed, StatusMessage: msgInvalidPassword})
		return false
	}

	identity, ok := m.accounts.Authenticate(username, password)
	if !ok {
		m.publish(domain.Session{Status: domain.SessionFailed, StatusMessage: msgInvalidPassword})
		return false
	}

	m.log.Info("password login succeeded", slog.String("username", username), slog.String("role", identity.Role.String()))
	m.publish(domain.Session{Status: domain.SessionAuthenticated, Identity: identity})
	return true
}

// LoginWithGoogle exchanges a federated identity assertion for a session
// credential. On success the credential is persisted so the session
// survives restarts. On failure any previously stored credential is left
// untouched.
func (m *Manager) LoginWithGoogle(ctx context.Context, assertion string) bool {
	m.publish(domain.Session{Status: domain.SessionAuthenticating})

	token, identity, err := m.client.ExchangeGoogleToken(ctx, assertion)
	if err != nil {
		m.log.InfoContext(ctx, "google login failed", slog.String("error", err.Error()))
		m.publish(domain.Session{Status: domain.SessionFailed, StatusMessage: msgGoogleFailed})
		return false
	}

	if err := m.tokens.Set(token); err != nil {
		// The session is valid even if persistence failed; surface it in the log only.
		m.log.WarnContext(ctx, "persisting credential failed", slog.String("error", err.Error()))
	}

	m.log.InfoContext(ctx, "google login succeeded", slog.String("subject", identity.Subject))
	m.publish(domain.Session{
		Status:        domain.SessionAuthenticated,
		Identity:      identity,
		StatusMessage: msgGoogleSuccess,
	})
	return true
}

// Logout unconditionally clears the persisted credential and resets the
// session to Anonymous. Safe to call in any state, any number of times.
func (m *Manager) Logout() {
	if err := m.tokens.Clear(); err != nil {
		m.log.Warn("clearing credential on logout failed", slog.String("error", err.Error()))
	}
	m.publish(domain.Session{Status: domain.SessionAnonymous, StatusMessage: msgLoggedOut})
}

// ForceLogout is invoked when any operation observes an unauthorized
// response from the registry: the credential is confirmed dead, so the
// session drops to Anonymous immediately.
func (m *Manager) ForceLogout(reason string) {
	if err := m.tokens.Clear(); err != nil {
		m.log.Warn("clearing credential on forced logout failed", slog.String("error", err.Error()))
	}
	if reason == "" {
		reason = msgSessionExpired
	}
	m.publish(domain.Session{Status: domain.SessionAnonymous, StatusMessage: reason})
}
