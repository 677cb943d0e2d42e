package domain

// SessionStatus is the authentication state of the running application.
type SessionStatus string

const (
	SessionAnonymous      SessionStatus = "ANONYMOUS"
	SessionAuthenticating SessionStatus = "AUTHENTICATING"
	SessionAuthenticated  SessionStatus = "AUTHENTICATED"
	SessionFailed         SessionStatus = "FAILED"
)

func (s SessionStatus) String() string { return string(s) }

// Identity describes the signed-in user.
type Identity struct {
	Name      string
	Subject   string // stable external id: email for federated logins, username for demo accounts
	AvatarURL *string
	Role      Role
}

// Session is the published authentication state.
//
// Invariant: Identity is non-nil if and only if Status is
// SessionAuthenticated.
type Session struct {
	Status        SessionStatus
	Identity      *Identity
	StatusMessage string // last human-readable note, success or error; empty if none
}

// Authenticated reports whether the session carries a verified identity.
func (s Session) Authenticated() bool {
	return s.Status == SessionAuthenticated
}
