package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunwdi/hrds/internal/domain"
	"github.com/harunwdi/hrds/internal/tokenstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := tokenstore.NewMemoryStore()
	if token != "" {
		require.NoError(t, tokens.Set(token))
	}
	return NewClient(srv.URL, tokens, 5*time.Second, testLogger())
}

func TestClient_ListAll_AttachesBearerAndAppliesDefaults(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/data", r.URL.Path)

		_ = json.NewEncoder(w).Encode([]map[string]string{
			{
				"id": "1", "fullName": "John Doe", "populationId": "1234567890123456",
				"familyId": "1111111111111111", "gender": "Female", "dateOfBirth": "1990-05-15",
				"placeOfBirth": "Jakarta", "religion": "Islam", "bloodType": "O-",
			},
			// Legacy row with missing gender and blood type.
			{
				"id": "2", "fullName": "Jane Smith", "populationId": "6543210987654321",
				"familyId": "2222222222222222", "dateOfBirth": "1985-12-08",
				"placeOfBirth": "Surabaya", "religion": "Christian",
			},
		})
	}, "tok-123")

	records, err := client.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, domain.GenderFemale, records[0].Gender)
	assert.Equal(t, domain.BloodTypeONeg, records[0].BloodType)
	assert.Equal(t, domain.GenderMale, records[1].Gender, "missing gender defaults to Male")
	assert.Equal(t, domain.BloodTypeAPos, records[1].BloodType, "missing blood type defaults to A+")
}

func TestClient_Create_OmitsID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/data/entry", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasID := body["id"]
		assert.False(t, hasID, "create payload must not carry an id")

		body["id"] = "srv-7"
		_ = json.NewEncoder(w).Encode(body)
	}, "tok")

	p := domain.PersonRecord{
		ID:           "pending-01ARZ",
		FullName:     "Ahmad Rahman",
		PopulationID: "1122334455667788",
		FamilyID:     "3333333333333333",
		Gender:       domain.GenderMale,
		DateOfBirth:  "1992-03-22",
		PlaceOfBirth: "Bandung",
		Religion:     "Islam",
		BloodType:    domain.BloodTypeOPos,
	}

	created, err := client.Create(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "srv-7", created.ID)
	assert.Equal(t, p.FullName, created.FullName)
}

func TestClient_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid token"}`, domain.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ``, domain.ErrUnauthorized},
		{"not found", http.StatusNotFound, ``, domain.ErrNotFound},
		{"rejected", http.StatusUnprocessableEntity, `{"error":"duplicate populationId"}`, domain.ErrRejected},
		{"bad request", http.StatusBadRequest, ``, domain.ErrRejected},
		{"server fault", http.StatusInternalServerError, ``, domain.ErrUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}, "tok")

			_, err := client.ListAll(context.Background())
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestClient_NetworkErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, tokenstore.NewMemoryStore(), time.Second, testLogger())
	_, err := client.ListAll(context.Background())
	require.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestClient_Authenticate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/authenticate", r.URL.Path)
		require.Equal(t, "Bearer session-tok", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]string{"name": "Jane", "email": "jane@example.com", "picture": "https://img.example/j.png"},
		})
	}, "session-tok")

	identity, err := client.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jane", identity.Name)
	assert.Equal(t, "jane@example.com", identity.Subject)
	require.NotNil(t, identity.AvatarURL)
	assert.Equal(t, "https://img.example/j.png", *identity.AvatarURL)
}

func TestClient_Authenticate_MalformedPayloadFailsClosed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"something":"else"}`))
	}, "tok")

	_, err := client.Authenticate(context.Background())
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestClient_ExchangeGoogleToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/google", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "google-assertion", req["token"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "session-credential",
			"user":  map[string]string{"name": "Jane", "email": "jane@example.com"},
		})
	}, "")

	token, identity, err := client.ExchangeGoogleToken(context.Background(), "google-assertion")
	require.NoError(t, err)
	assert.Equal(t, "session-credential", token)
	assert.Equal(t, "jane@example.com", identity.Subject)
	assert.Nil(t, identity.AvatarURL)
}
