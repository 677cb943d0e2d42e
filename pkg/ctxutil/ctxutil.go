// Package ctxutil carries request-scoped identity and tracing values.
package ctxutil

import (
	"context"

	"github.com/harunwdi/hrds/internal/domain"
)

type ctxKey string

const (
	subjectKey   ctxKey = "subject"
	roleKey      ctxKey = "role"
	requestIDKey ctxKey = "request_id"
)

// WithSubject stores the authenticated subject (email or username) in the
// context.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFromCtx extracts the authenticated subject from the context.
// Returns "" and false if the value is missing, empty, or the wrong type.
func SubjectFromCtx(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey).(string)
	if !ok || subject == "" {
		return "", false
	}
	return subject, true
}

// WithRole stores the authenticated subject's role in the context.
func WithRole(ctx context.Context, role domain.Role) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// RoleFromCtx extracts the role from the context.
// Returns "" and false if absent or invalid.
func RoleFromCtx(ctx context.Context) (domain.Role, bool) {
	role, ok := ctx.Value(roleKey).(domain.Role)
	if !ok || !role.IsValid() {
		return "", false
	}
	return role, true
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
