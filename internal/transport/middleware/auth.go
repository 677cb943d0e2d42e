package middleware

import (
	"net/http"
	"strings"

	"github.com/harunwdi/hrds/internal/domain"
	"github.com/harunwdi/hrds/pkg/ctxutil"
)

type tokenValidator interface {
	ValidateAccessToken(token string) (subject string, role domain.Role, err error)
}

// Auth validates the bearer token, if present, and stores the subject and
// role in the request context. Requests without a token pass through
// anonymous; handlers decide whether anonymous access is acceptable. A
// token that fails validation is rejected outright.
func Auth(validator tokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r) // Anonymous
				return
			}
			subject, role, err := validator.ValidateAccessToken(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := ctxutil.WithSubject(r.Context(), subject)
			ctx = ctxutil.WithRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}
