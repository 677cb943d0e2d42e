package registryd

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/harunwdi/hrds/internal/domain"
)

// JWTManager issues and validates the HS256 session credentials the
// registry hands out on login.
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewJWTManager creates a new JWT manager.
// secret must be at least 32 characters for HS256 security.
func NewJWTManager(secret string, issuer string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// accessClaims extends standard JWT claims with the identity attributes the
// admin tool renders: display name, role, and optional avatar.
type accessClaims struct {
	jwt.RegisteredClaims
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// GenerateAccessToken creates a signed HS256 JWT with the subject's email
// as the JWT subject and identity attributes as custom claims.
func (m *JWTManager) GenerateAccessToken(id Identity) (string, error) {
	now := time.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Name:    id.Name,
		Role:    id.Role.String(),
		Picture: id.Picture,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ValidateAccessToken parses and validates a session credential.
// Returns the subject and role; used by the auth middleware.
func (m *JWTManager) ValidateAccessToken(tokenString string) (string, domain.Role, error) {
	id, err := m.ParseIdentity(tokenString)
	if err != nil {
		return "", "", err
	}
	return id.Email, id.Role, nil
}

// ParseIdentity validates a session credential and reconstructs the full
// identity embedded in its claims.
func (m *JWTManager) ParseIdentity(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, fmt.Errorf("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token claims")
	}

	if claims.Issuer != m.issuer {
		return Identity{}, fmt.Errorf("invalid issuer: expected %s, got %s", m.issuer, claims.Issuer)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("empty subject")
	}

	role := domain.Role(claims.Role)
	if !role.IsValid() {
		role = domain.RoleUser
	}

	return Identity{
		Email:   claims.Subject,
		Name:    claims.Name,
		Role:    role,
		Picture: claims.Picture,
	}, nil
}

// Identity is the signed-in user as the registry knows them.
type Identity struct {
	Email   string
	Name    string
	Role    domain.Role
	Picture string
}

// googleClaims is the subset of the Google ID token payload the registry
// reads.
type googleClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// ParseGoogleAssertion extracts the identity from a Google ID token. The
// signature is NOT verified against Google's JWKS — this server exists for
// local development only and trusts the assertion's payload. When audience
// is non-empty the token's aud claim must contain it.
func ParseGoogleAssertion(assertion, audience string) (Identity, error) {
	claims := &googleClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(assertion, claims); err != nil {
		return Identity{}, fmt.Errorf("parse assertion: %w", err)
	}

	if claims.Email == "" {
		return Identity{}, fmt.Errorf("assertion carries no email")
	}
	if audience != "" {
		found := false
		for _, aud := range claims.Audience {
			if aud == audience {
				found = true
				break
			}
		}
		if !found {
			return Identity{}, fmt.Errorf("assertion audience mismatch")
		}
	}

	name := claims.Name
	if name == "" {
		name = claims.Email
	}

	return Identity{
		Email:   claims.Email,
		Name:    name,
		Role:    domain.RoleAdmin,
		Picture: claims.Picture,
	}, nil
}
