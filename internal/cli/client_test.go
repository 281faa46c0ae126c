package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientReportsRenewedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer old-token", r.Header.Get("Authorization"))
		w.Header().Set("Authorization", "new-token")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(HealthResult{Status: "ok"})
	}))
	defer srv.Close()

	var renewed string
	c := NewClient(srv.URL+"/", "old-token")
	c.OnTokenRenewed = func(token string) { renewed = token }

	var result HealthResult
	require.NoError(t, c.Get("/api/v1/health", &result))
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, "new-token", renewed)
	assert.Equal(t, "new-token", c.token)
}

func TestClientFormatsAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: APIError{
			Code:    "VALIDATION_ERROR",
			Message: "Validation failed",
			Fields:  []FieldError{{Field: "username", Message: "username must be between 4 and 20 characters"}},
		}})
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").Post("/api/v1/users", map[string]string{}, nil)
	require.Error(t, err)
	assert.Equal(t, "Validation failed (VALIDATION_ERROR): username must be between 4 and 20 characters", err.Error())
}

func TestClientReportsNonJSONErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").Get("/", nil)
	assert.ErrorContains(t, err, "HTTP 502")
}

func TestConfigTokenPersistence(t *testing.T) {
	c := &Config{TokenFile: filepath.Join(t.TempDir(), "nested", "token")}

	require.NoError(t, c.LoadToken())
	assert.Empty(t, c.Token)
	assert.False(t, c.Persisted())

	require.NoError(t, c.SaveToken("abc"))
	loaded := &Config{TokenFile: c.TokenFile}
	require.NoError(t, loaded.LoadToken())
	assert.Equal(t, "abc", loaded.Token)
	assert.True(t, loaded.Persisted())

	require.NoError(t, loaded.ClearToken())
	require.NoError(t, loaded.ClearToken())
	assert.False(t, loaded.Persisted())
}
