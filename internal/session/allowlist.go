package session

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/harunwdi/hrds/internal/domain"
)

// Account is one entry of the fixed demonstration allow-list. These
// accounts stand in for a real credential backend; only their bcrypt
// hashes are kept once the list is built.
type Account struct {
	Username     string
	PasswordHash string
	FullName     string
	Role         domain.Role
}

// AllowList is an immutable set of demo accounts keyed by username.
type AllowList struct {
	accounts map[string]Account
}

// NewAllowList builds an AllowList from pre-hashed accounts.
func NewAllowList(accounts []Account) *AllowList {
	byName := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		byName[a.Username] = a
	}
	return &AllowList{accounts: byName}
}

// DemoAccounts returns the built-in demonstration allow-list:
// admin1/admin123 (admin) and user1/user123 (user). Hashes are computed
// at startup; the plaintext never leaves this constructor.
func DemoAccounts() *AllowList {
	return NewAllowList([]Account{
		{Username: "admin1", PasswordHash: mustHash("admin123"), FullName: "Administrator One", Role: domain.RoleAdmin},
		{Username: "user1", PasswordHash: mustHash("user123"), FullName: "Data Entry User 1", Role: domain.RoleUser},
	})
}

// Authenticate checks the pair against the list and, on a match, derives
// the identity for the session.
func (l *AllowList) Authenticate(username, password string) (*domain.Identity, bool) {
	account, ok := l.accounts[strings.TrimSpace(username)]
	if !ok {
		// Burn a comparison anyway so a missing username costs the same
		// as a wrong password.
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, false
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, false
	}
	return &domain.Identity{
		Name:    account.FullName,
		Subject: account.Username,
		Role:    account.Role,
	}, true
}

var dummyHash = mustHash("timing-equalizer")

// mustHash is used only for the built-in demo list, which is hashed at
// startup from known constants; bcrypt errors are impossible there.
func mustHash(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}
