package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayroom/relayroom/chat/internal/handlers"
	authmw "github.com/relayroom/relayroom/chat/internal/middleware"
	"github.com/relayroom/relayroom/chat/internal/models"
	"github.com/relayroom/relayroom/chat/internal/repository"
	"github.com/relayroom/relayroom/chat/internal/service"
	"github.com/relayroom/relayroom/chat/internal/sessions"
	"github.com/relayroom/relayroom/chat/pkg/tokens"
	"github.com/relayroom/relayroom/common/events"
	"github.com/relayroom/relayroom/common/logging"
)

type nullTransport struct {
	mu    sync.Mutex
	count int
}

func (t *nullTransport) Publish(context.Context, string, []byte) error {
	t.mu.Lock()
	t.count++
	t.mu.Unlock()
	return nil
}

func (t *nullTransport) IsConnected() bool { return true }

type testEnv struct {
	router http.Handler
	repo   *repository.MemoryRepository
	auth   *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := repository.NewMemoryRepository()
	logger := logging.Default()

	pub, err := events.NewAdaptivePublisher(events.DefaultConfig(), &nullTransport{}, logger)
	require.NoError(t, err)
	t.Cleanup(pub.Close)

	tokenGen := tokens.NewTokenGenerator("router-test-secret")
	store := sessions.NewStoreWithClient(client, time.Hour)

	authService := service.NewAuthService(repo, tokenGen, store, pub, logger)
	chatService := service.NewChatService(repo, pub, logger)

	router := NewRouter(
		handlers.NewAuthHandler(authService),
		handlers.NewRoomHandler(chatService),
		handlers.NewMessageHandler(chatService),
		handlers.NewAdminHandler(pub),
		authmw.NewAuthMiddleware(authService),
	)

	return &testEnv{router: router, repo: repo, auth: authService}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/v1/auth/register", "", models.RegisterRequest{
		Username: username,
		Password: "test-pass-123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{
		Username: username,
		Password: "test-pass-123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "alice")
	assert.NotEmpty(t, token)

	// Duplicate registration conflicts.
	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", models.RegisterRequest{
		Username: "alice",
		Password: "other-pass",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Bad credentials rejected.
	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{
		Username: "alice",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoomAndMessageFlow(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.registerAndLogin(t, "alice")
	bobToken := env.registerAndLogin(t, "bob")

	// Create a room.
	rec := env.do(t, http.MethodPost, "/api/v1/rooms", aliceToken, models.CreateRoomRequest{Name: "general"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var room models.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room))

	// Bob is not a member yet.
	rec = env.do(t, http.MethodGet, "/api/v1/rooms/"+room.ID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Find bob's user ID and add him.
	bob, err := env.repo.GetUserByUsername(context.Background(), "bob")
	require.NoError(t, err)
	rec = env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/members", aliceToken,
		models.AddMemberRequest{UserID: bob.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Bob posts a message.
	rec = env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/messages", bobToken,
		models.PostMessageRequest{Body: "hello from bob"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var msg models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))

	// Alice reads it back.
	rec = env.do(t, http.MethodGet, "/api/v1/rooms/"+room.ID+"/messages", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []*models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello from bob", msgs[0].Body)

	// Alice cannot edit bob's message.
	rec = env.do(t, http.MethodPatch, "/api/v1/rooms/"+room.ID+"/messages/"+msg.ID, aliceToken,
		models.UpdateMessageRequest{Body: "edited"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Bob deletes his own message.
	rec = env.do(t, http.MethodDelete, "/api/v1/rooms/"+room.ID+"/messages/"+msg.ID, bobToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/rooms", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminEndpointsRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	memberToken := env.registerAndLogin(t, "alice")

	rec := env.do(t, http.MethodGet, "/api/v1/admin/publisher", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Promote a user to admin directly in the repository.
	adminUser := &models.User{
		ID:           "admin-1",
		Username:     "root",
		PasswordHash: "unused",
		Roles:        []string{"admin"},
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, env.repo.CreateUser(context.Background(), adminUser))
	adminToken := issueToken(t, "router-test-secret", adminUser)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/publisher", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var status struct {
		Health struct {
			Backend string `json:"backend"`
			Status  string `json:"status"`
		} `json:"health"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "high_performance", status.Health.Backend)

	// Force the legacy backend and clear the override again.
	rec = env.do(t, http.MethodPost, "/api/v1/admin/publisher/switch", adminToken,
		map[string]string{"backend": "legacy"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/publisher", adminToken, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "legacy", status.Health.Backend)

	rec = env.do(t, http.MethodPost, "/api/v1/admin/publisher/clear", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Invalid backend names rejected.
	rec = env.do(t, http.MethodPost, "/api/v1/admin/publisher/switch", adminToken,
		map[string]string{"backend": "carrier-pigeon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func issueToken(t *testing.T, secret string, user *models.User) string {
	t.Helper()
	tg := tokens.NewTokenGenerator(secret)
	token, err := tg.GenerateAccessToken(user.ID, user.Username, user.Roles)
	require.NoError(t, err)
	return token
}
