// Package registry is the stateless HTTP facade over the remote population
// registry service. It attaches the current session credential as a bearer
// token, translates transport and status failures into the domain error
// taxonomy, and holds no mutable state. Retry policy belongs to callers —
// this client never retries.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/harunwdi/hrds/internal/domain"
)

// TokenSource supplies the current session credential, if any.
// *tokenstore.FileStore and *tokenstore.MemoryStore satisfy it.
type TokenSource interface {
	Get() (string, bool)
}

// Client issues authenticated requests against the registry service.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.With("component", "registry_client"),
	}
}

// ListAll fetches the full ordered snapshot of registry records.
func (c *Client) ListAll(ctx context.Context) ([]domain.PersonRecord, error) {
	body, err := c.do(ctx, http.MethodGet, "/data", nil)
	if err != nil {
		return nil, err
	}

	var rows []row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("registry: decode list: %w", domain.ErrUnavailable)
	}

	records := make([]domain.PersonRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toPerson())
	}

	c.log.DebugContext(ctx, "listed records", slog.Int("count", len(records)))
	return records, nil
}

// Create stores a new record and returns it with the server-assigned id.
func (c *Client) Create(ctx context.Context, p domain.PersonRecord) (domain.PersonRecord, error) {
	body, err := c.do(ctx, http.MethodPost, "/data/entry", toCreateRequest(p))
	if err != nil {
		return domain.PersonRecord{}, err
	}

	var r row
	if err := json.Unmarshal(body, &r); err != nil {
		return domain.PersonRecord{}, fmt.Errorf("registry: decode create response: %w", domain.ErrUnavailable)
	}
	return r.toPerson(), nil
}

// Update replaces the record with the given id and returns the stored result.
func (c *Client) Update(ctx context.Context, id string, p domain.PersonRecord) (domain.PersonRecord, error) {
	body, err := c.do(ctx, http.MethodPut, "/dataupdate/"+url.PathEscape(id), toCreateRequest(p))
	if err != nil {
		return domain.PersonRecord{}, err
	}

	var r row
	if err := json.Unmarshal(body, &r); err != nil {
		return domain.PersonRecord{}, fmt.Errorf("registry: decode update response: %w", domain.ErrUnavailable)
	}
	return r.toPerson(), nil
}

// Delete removes the record with the given id.
// The remote service models deletion as an update-style PUT.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPut, "/datadelete/"+url.PathEscape(id), nil)
	return err
}

// Authenticate verifies the stored credential and returns the identity it
// belongs to. Any response not carrying a valid user payload is treated as
// an authentication failure, never as success.
func (c *Client) Authenticate(ctx context.Context) (*domain.Identity, error) {
	body, err := c.do(ctx, http.MethodPost, "/authenticate", nil)
	if err != nil {
		return nil, err
	}

	var resp authenticateResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.User.Email == "" {
		return nil, fmt.Errorf("registry: malformed identity payload: %w", domain.ErrUnauthorized)
	}
	return resp.User.toIdentity(), nil
}

// ExchangeGoogleToken trades a federated identity assertion for a session
// credential and the identity the server derived from it.
func (c *Client) ExchangeGoogleToken(ctx context.Context, assertion string) (string, *domain.Identity, error) {
	body, err := c.do(ctx, http.MethodPost, "/auth/google", googleExchangeRequest{Token: assertion})
	if err != nil {
		return "", nil, err
	}

	var resp googleExchangeResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Token == "" || resp.User.Email == "" {
		return "", nil, fmt.Errorf("registry: malformed exchange payload: %w", domain.ErrUnauthorized)
	}
	return resp.Token, resp.User.toIdentity(), nil
}

// do executes one request and returns the response body on 2xx, or a
// taxonomy-mapped error otherwise.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("registry: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("registry: create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.tokens.Get(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "registry request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("registry: %s %s: %w", method, path, domain.ErrUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("registry: read response: %w", domain.ErrUnavailable)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.mapStatus(ctx, method, path, resp.StatusCode, body)
	}
	return body, nil
}

// mapStatus translates a non-2xx response into the domain error taxonomy.
func (c *Client) mapStatus(ctx context.Context, method, path string, status int, body []byte) error {
	c.log.DebugContext(ctx, "registry rejected request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
	)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("registry: %s %s: %w", method, path, domain.ErrUnauthorized)
	case status == http.StatusNotFound:
		return fmt.Errorf("registry: %s %s: %w", method, path, domain.ErrNotFound)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if msg := serverMessage(body); msg != "" {
			return fmt.Errorf("registry: %s: %w", msg, domain.ErrRejected)
		}
		return fmt.Errorf("registry: %s %s: %w", method, path, domain.ErrRejected)
	default:
		return fmt.Errorf("registry: %s %s: status %d: %w", method, path, status, domain.ErrUnavailable)
	}
}

// serverMessage extracts the {"error": "..."} message the registry uses in
// failure bodies, if present.
func serverMessage(body []byte) string {
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	return resp.Error
}
