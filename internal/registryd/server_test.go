package registryd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/harunwdi/hrds/internal/domain"
	"github.com/harunwdi/hrds/internal/registry"
	"github.com/harunwdi/hrds/internal/registryd"
	"github.com/harunwdi/hrds/internal/registryd/store"
	"github.com/harunwdi/hrds/internal/tokenstore"
)

const testSecret = "test-secret-key-minimum-32-chars-long!"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "registryd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tokens := registryd.NewJWTManager(testSecret, "hrds-registryd", time.Hour)
	srv := registryd.NewServer(st, tokens, slog.New(slog.DiscardHandler), registryd.Options{})
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

// login exchanges a fabricated Google assertion for a session credential.
func login(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"name":  "Test User",
	}).SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"token": assertion})
	resp, err := http.Post(ts.URL+"/auth/google", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
		User  struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	require.Equal(t, email, out.User.Email)
	return out.Token
}

func doJSON(t *testing.T, method, url, token string, payload any) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func entryPayload(populationID string) map[string]string {
	return map[string]string{
		"fullName":     "John Doe",
		"populationId": populationID,
		"familyId":     "1111111111111111",
		"gender":       "Male",
		"dateOfBirth":  "1990-05-15",
		"placeOfBirth": "Jakarta",
		"religion":     "Islam",
		"bloodType":    "A+",
	}
}

func TestServer_DataRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/data")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_Authenticate(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin@hrds.local")

	resp := doJSON(t, http.MethodPost, ts.URL+"/authenticate", token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		User struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "admin@hrds.local", out.User.Email)
	require.Equal(t, "Test User", out.User.Name)
}

func TestServer_Authenticate_NoToken(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/authenticate", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_GoogleLogin_BadAssertion(t *testing.T) {
	ts := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"token": "garbage"})
	resp, err := http.Post(ts.URL+"/auth/google", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_CreateListUpdateDelete(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin@hrds.local")

	// Create.
	resp := doJSON(t, http.MethodPost, ts.URL+"/data/entry", token, entryPayload("1234567890123456"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID       string `json:"id"`
		FullName string `json:"fullName"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.NotEmpty(t, created.ID)
	require.Equal(t, "John Doe", created.FullName)

	// List.
	resp = doJSON(t, http.MethodGet, ts.URL+"/data", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	require.Len(t, listed, 1)

	// Update.
	patch := entryPayload("1234567890123456")
	patch["placeOfBirth"] = "Medan"
	resp = doJSON(t, http.MethodPut, ts.URL+"/dataupdate/"+created.ID, token, patch)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated struct {
		PlaceOfBirth string `json:"placeOfBirth"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	resp.Body.Close()
	require.Equal(t, "Medan", updated.PlaceOfBirth)

	// Delete.
	resp = doJSON(t, http.MethodPut, ts.URL+"/datadelete/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/data", token, nil)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	require.Empty(t, listed)
}

func TestServer_Create_DuplicatePopulationID(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin@hrds.local")

	resp := doJSON(t, http.MethodPost, ts.URL+"/data/entry", token, entryPayload("1234567890123456"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/data/entry", token, entryPayload("1234567890123456"))
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var out struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Contains(t, out.Error, "populationId")
}

func TestServer_Create_InvalidPayload(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin@hrds.local")

	payload := entryPayload("12345") // not 16 digits
	resp := doJSON(t, http.MethodPost, ts.URL+"/data/entry", token, payload)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Update_NotFound(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin@hrds.local")

	resp := doJSON(t, http.MethodPut, ts.URL+"/dataupdate/no-such-id", token, entryPayload("1234567890123456"))
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Healthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestServer_ClientRoundTrip drives the server through the same client the
// admin tool uses, covering the whole login -> CRUD -> logout surface.
func TestServer_ClientRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	tokens := tokenstore.NewMemoryStore()
	client := registry.NewClient(ts.URL, tokens, 5*time.Second, slog.New(slog.DiscardHandler))

	// Unauthenticated list is rejected.
	_, err := client.ListAll(ctx)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	// Exchange a Google assertion and store the credential.
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "admin@hrds.local",
		"name":  "Administrator One",
	}).SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	credential, identity, err := client.ExchangeGoogleToken(ctx, assertion)
	require.NoError(t, err)
	require.Equal(t, "admin@hrds.local", identity.Subject)
	require.NoError(t, tokens.Set(credential))

	// Revalidation returns the same identity.
	revalidated, err := client.Authenticate(ctx)
	require.NoError(t, err)
	require.Equal(t, identity.Subject, revalidated.Subject)

	// Full CRUD round trip.
	created, err := client.Create(ctx, domain.PersonRecord{
		FullName:     "John Doe",
		PopulationID: "1234567890123456",
		FamilyID:     "1111111111111111",
		Gender:       domain.GenderMale,
		DateOfBirth:  "1990-05-15",
		PlaceOfBirth: "Jakarta",
		Religion:     "Islam",
		BloodType:    domain.BloodTypeAPos,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	created.PlaceOfBirth = "Medan"
	updated, err := client.Update(ctx, created.ID, created)
	require.NoError(t, err)
	require.Equal(t, "Medan", updated.PlaceOfBirth)

	records, err := client.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, client.Delete(ctx, created.ID))

	records, err = client.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, records)

	// A cleared credential drops the session back to unauthorized.
	tokens.Clear()
	if _, err := client.Authenticate(ctx); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}
