// Package registryd implements the development registry server the admin
// tool talks to. It serves the record CRUD endpoints, exchanges Google
// identity assertions for session credentials, and revalidates stored
// credentials.
package registryd

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/harunwdi/hrds/internal/domain"
	"github.com/harunwdi/hrds/internal/transport/middleware"
	"github.com/harunwdi/hrds/pkg/ctxutil"
)

// personStore is the slice of the store the server needs.
type personStore interface {
	List(ctx context.Context) ([]domain.PersonRecord, error)
	Insert(ctx context.Context, p domain.PersonRecord) (domain.PersonRecord, error)
	Update(ctx context.Context, id string, p domain.PersonRecord) (domain.PersonRecord, error)
	Delete(ctx context.Context, id string) error
	HasPopulationID(ctx context.Context, populationID, exceptID string) (bool, error)
	Ping(ctx context.Context) error
}

// Options configures a Server beyond its required collaborators.
type Options struct {
	// GoogleAudience, when set, must appear in the aud claim of incoming
	// Google assertions.
	GoogleAudience string
	// AllowedOrigins is the comma-separated CORS allow-list. Empty
	// disables cross-origin access.
	AllowedOrigins string
	// LoginRatePerMinute caps /auth/google attempts per client IP.
	// Zero means 30.
	LoginRatePerMinute int
}

// Server handles the registry HTTP API.
type Server struct {
	store   personStore
	tokens  *JWTManager
	metrics *Metrics
	limiter *middleware.RateLimiter
	log     *slog.Logger
	opts    Options
	now     func() time.Time
}

// NewServer creates a Server. Call Close on shutdown to stop the rate
// limiter's cleanup goroutine.
func NewServer(store personStore, tokens *JWTManager, logger *slog.Logger, opts Options) *Server {
	if opts.LoginRatePerMinute <= 0 {
		opts.LoginRatePerMinute = 30
	}
	return &Server{
		store:   store,
		tokens:  tokens,
		metrics: NewMetrics(),
		limiter: middleware.NewRateLimiter(time.Minute),
		log:     logger.With("component", "registryd"),
		opts:    opts,
		now:     time.Now,
	}
}

// Close releases background resources.
func (s *Server) Close() {
	s.limiter.Stop()
}

// Routes assembles the HTTP handler with the full middleware chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(http.MethodPost+" /authenticate", s.handleAuthenticate)
	mux.Handle(http.MethodPost+" /auth/google",
		s.limiter.Limit(s.opts.LoginRatePerMinute)(http.HandlerFunc(s.handleGoogleLogin)))
	mux.HandleFunc(http.MethodGet+" /data", s.handleList)
	mux.HandleFunc(http.MethodPost+" /data/entry", s.handleCreate)
	mux.HandleFunc(http.MethodPut+" /dataupdate/{id}", s.handleUpdate)
	mux.HandleFunc(http.MethodPut+" /datadelete/{id}", s.handleDelete)
	mux.HandleFunc(http.MethodGet+" /healthz", s.handleHealth)
	mux.Handle(http.MethodGet+" /metrics", s.metrics.Handler())

	chain := middleware.Chain(
		middleware.RequestID,
		middleware.Recovery(s.log),
		middleware.Logger(s.log),
		s.metrics.Instrument(),
		middleware.Auth(s.tokens),
	)
	handler := chain(mux)
	if s.opts.AllowedOrigins != "" {
		handler = middleware.CORS(s.opts.AllowedOrigins)(handler)
	}
	return handler
}

// ---------------------------------------------------------------------------
// Auth endpoints
// ---------------------------------------------------------------------------

type userResponse struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
	Role    string `json:"role"`
}

func toUserResponse(id Identity) userResponse {
	return userResponse{
		Name:    id.Name,
		Email:   id.Email,
		Picture: id.Picture,
		Role:    id.Role.String(),
	}
}

// handleAuthenticate revalidates the bearer credential and returns the
// identity embedded in it.
func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	token := extractBearer(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	id, err := s.tokens.ParseIdentity(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(id)})
}

type googleLoginRequest struct {
	Token string `json:"token"`
}

// handleGoogleLogin exchanges a Google identity assertion for a session
// credential.
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := ParseGoogleAssertion(req.Token, s.opts.GoogleAudience)
	if err != nil {
		s.log.WarnContext(r.Context(), "google assertion rejected", slog.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, "invalid google credential")
		return
	}

	signed, err := s.tokens.GenerateAccessToken(id)
	if err != nil {
		s.log.ErrorContext(r.Context(), "token generation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.log.InfoContext(r.Context(), "google login", slog.String("subject", id.Email))
	writeJSON(w, http.StatusOK, map[string]any{
		"token": signed,
		"user":  toUserResponse(id),
	})
}

// ---------------------------------------------------------------------------
// Record endpoints
// ---------------------------------------------------------------------------

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}

	records, err := s.store.List(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if records == nil {
		records = []domain.PersonRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}

	draft, ok := s.decodePerson(w, r)
	if !ok {
		return
	}

	taken, err := s.store.HasPopulationID(r.Context(), draft.PopulationID, "")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if taken {
		writeError(w, http.StatusUnprocessableEntity, "populationId already registered")
		return
	}

	created, err := s.store.Insert(r.Context(), draft)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}
	id := r.PathValue("id")

	patch, ok := s.decodePerson(w, r)
	if !ok {
		return
	}

	taken, err := s.store.HasPopulationID(r.Context(), patch.PopulationID, id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if taken {
		writeError(w, http.StatusUnprocessableEntity, "populationId already registered")
		return
	}

	updated, err := s.store.Update(r.Context(), id, patch)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}
	id := r.PathValue("id")

	if err := s.store.Delete(r.Context(), id); err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// requireAuth rejects requests that did not pass the auth middleware with a
// valid credential.
func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if _, ok := ctxutil.SubjectFromCtx(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	return true
}

// decodePerson reads, normalizes, and validates a record payload. The id
// field is ignored: ids are assigned on create and taken from the URL on
// update.
func (s *Server) decodePerson(w http.ResponseWriter, r *http.Request) (domain.PersonRecord, bool) {
	var p domain.PersonRecord
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return domain.PersonRecord{}, false
	}
	p.ID = ""

	p.Normalize()
	if err := p.Validate(s.now()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.PersonRecord{}, false
	}
	return p, true
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusUnprocessableEntity, "populationId already registered")
	default:
		s.log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
