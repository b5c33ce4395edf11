package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["username"])
		assert.Equal(t, "s3cret", body["password"])

		json.NewEncoder(w).Encode(LoginResponse{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			ExpiresIn:    900,
			TokenType:    "Bearer",
		})
	}))
	defer server.Close()

	c := NewAuthClient(server.URL)
	resp, err := c.Login("alice", "s3cret")

	require.NoError(t, err)
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
	}))
	defer server.Close()

	c := NewAuthClient(server.URL)
	_, err := c.Login("alice", "wrong")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")
}

func TestRefresh_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/refresh", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "old-refresh", body["refresh_token"])

		json.NewEncoder(w).Encode(LoginResponse{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
		})
	}))
	defer server.Close()

	c := NewAuthClient(server.URL)
	resp, err := c.Refresh("old-refresh")

	require.NoError(t, err)
	assert.Equal(t, "new-access", resp.AccessToken)
	assert.Equal(t, "new-refresh", resp.RefreshToken)
}

func TestLogout(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/logout", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotToken = body["refresh_token"]

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewAuthClient(server.URL)
	require.NoError(t, c.Logout("refresh-token"))
	assert.Equal(t, "refresh-token", gotToken)
}
