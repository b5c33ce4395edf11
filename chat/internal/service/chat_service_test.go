package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayroom/relayroom/chat/internal/models"
	"github.com/relayroom/relayroom/chat/internal/repository"
	"github.com/relayroom/relayroom/common/events"
	"github.com/relayroom/relayroom/common/logging"
	"github.com/relayroom/relayroom/common/messaging"
)

// captureTransport records published subjects and payloads.
type captureTransport struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
}

func (t *captureTransport) Publish(_ context.Context, subject string, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subjects = append(t.subjects, subject)
	t.payloads = append(t.payloads, payload)
	return nil
}

func (t *captureTransport) IsConnected() bool { return true }

func (t *captureTransport) published() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.subjects...)
}

func newTestChatService(t *testing.T) (*ChatService, *repository.MemoryRepository, *captureTransport) {
	t.Helper()

	repo := repository.NewMemoryRepository()
	transport := &captureTransport{}

	pub, err := events.NewAdaptivePublisher(events.DefaultConfig(), transport, logging.Default())
	require.NoError(t, err)
	t.Cleanup(pub.Close)

	return NewChatService(repo, pub, logging.Default()), repo, transport
}

func seedUser(t *testing.T, repo *repository.MemoryRepository, id, username string) {
	t.Helper()
	require.NoError(t, repo.CreateUser(context.Background(), &models.User{
		ID:        id,
		Username:  username,
		Roles:     []string{"member"},
		CreatedAt: time.Now().UTC(),
	}))
}

func TestCreateRoom(t *testing.T) {
	svc, repo, transport := newTestChatService(t)
	ctx := context.Background()
	seedUser(t, repo, "user-1", "alice")

	room, err := svc.CreateRoom(ctx, "user-1", &models.CreateRoomRequest{Name: "general", Topic: "chitchat"})
	require.NoError(t, err)
	assert.NotEmpty(t, room.ID)
	assert.Equal(t, "general", room.Name)
	assert.Equal(t, 1, room.MemberCount)

	// Creator becomes owner.
	m, err := repo.GetMembership(ctx, room.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, m.Role)

	assert.Eventually(t, func() bool {
		for _, s := range transport.published() {
			if s == messaging.SubjectChatRoomCreated {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestGetRoomRequiresMembership(t *testing.T) {
	svc, repo, _ := newTestChatService(t)
	ctx := context.Background()
	seedUser(t, repo, "user-1", "alice")
	seedUser(t, repo, "user-2", "bob")

	room, err := svc.CreateRoom(ctx, "user-1", &models.CreateRoomRequest{Name: "private"})
	require.NoError(t, err)

	_, err = svc.GetRoom(ctx, "user-2", room.ID)
	assert.ErrorIs(t, err, ErrNotRoomMember)

	got, err := svc.GetRoom(ctx, "user-1", room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)
}

func TestUpdateRoomOwnerOnly(t *testing.T) {
	svc, repo, _ := newTestChatService(t)
	ctx := context.Background()
	seedUser(t, repo, "user-1", "alice")
	seedUser(t, repo, "user-2", "bob")

	room, err := svc.CreateRoom(ctx, "user-1", &models.CreateRoomRequest{Name: "general"})
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, "user-1", room.ID, &models.AddMemberRequest{UserID: "user-2"})
	require.NoError(t, err)

	newName := "renamed"
	_, err = svc.UpdateRoom(ctx, "user-2", room.ID, &models.UpdateRoomRequest{Name: &newName})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	updated, err := svc.UpdateRoom(ctx, "user-1", room.ID, &models.UpdateRoomRequest{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.NotNil(t, updated.UpdatedAt)
}

func TestAddMember(t *testing.T) {
	svc, repo, _ := newTestChatService(t)
	ctx := context.Background()
	seedUser(t, repo, "user-1", "alice")
	seedUser(t, repo, "user-2", "bob")

	room, err := svc.CreateRoom(ctx, "user-1", &models.CreateRoomRequest{Name: "general"})
	require.NoError(t, err)

	m, err := svc.AddMember(ctx, "user-1", room.ID, &models.AddMemberRequest{UserID: "user-2"})
	require.NoError(t, err)
	assert.Equal(t, RoleMember, m.Role)

	// Non-owner cannot add members.
	seedUser(t, repo, "user-3", "carol")
	_, err = svc.AddMember(ctx, "user-2", room.ID, &models.AddMemberRequest{UserID: "user-3"})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// Unknown users cannot be added.
	_, err = svc.AddMember(ctx, "user-1", room.ID, &models.AddMemberRequest{UserID: "ghost"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRemoveMember(t *testing.T) {
	svc, repo, _ := newTestChatService(t)
	ctx := context.Background()
	seedUser(t, repo, "user-1", "alice")
	seedUser(t, repo, "user-2", "bob")
	seedUser(t, repo, "user-3", "carol")

	room, err := svc.CreateRoom(ctx, "user-1", &models.CreateRoomRequest{Name: "general"})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, "user-1", room.ID, &models.AddMemberRequest{UserID: "user-2"})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, "user-1", room.ID, &models.AddMemberRequest{UserID: "user-3"})
	require.NoError(t, err)

	// Members may leave on their own.
	require.NoError(t, svc.RemoveMember(ctx, "user-3", room.ID, "user-3"))

	// Only owners remove others.
	err = svc.RemoveMember(ctx, "user-2", room.ID, "user-1")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	require.NoError(t, svc.RemoveMember(ctx, "user-1", room.ID, "user-2"))

	_, err = svc.GetRoom(ctx, "user-2", room.ID)
	assert.ErrorIs(t, err, ErrNotRoomMember)
}

func TestPostMessage(t *testing.T) {
	svc, repo, transport := newTestChatService(t)
	ctx := context.Background()
	seedUser(t, repo, "user-1", "alice")

	room, err := svc.CreateRoom(ctx, "user-1", &models.CreateRoomRequest{Name: "general"})
	require.NoError(t, err)

	msg, err := svc.PostMessage(ctx, "user-1", room.ID, &models.PostMessageRequest{Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Body)
	assert.Equal(t, "user-1", msg.AuthorID)

	assert.Eventually(t, func() bool {
		for i, s := range transport.published() {
			if s != messaging.RoomScopedSubject(messaging.SubjectChatMessageCreated, room.ID) {
				continue
			}
			var payload map[string]any
			transport.mu.Lock()
			data := transport.payloads[i]
			transport.mu.Unlock()
			require.NoError(t, json.Unmarshal(data, &payload))
			return payload["message_id"] == msg.ID && payload["body"] == "hello"
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestPostMessageNonMember(t *testing.T) {
	svc, repo, _ := newTestChatService(t)
	ctx := context.Background()
	seedUser(t, repo, "user-1", "alice")
	seedUser(t, repo, "user-2", "bob")

	room, err := svc.CreateRoom(ctx, "user-1", &models.CreateRoomRequest{Name: "general"})
	require.NoError(t, err)

	_, err = svc.PostMessage(ctx, "user-2", room.ID, &models.PostMessageRequest{Body: "hi"})
	assert.ErrorIs(t, err, ErrNotRoomMember)
}

func TestUpdateAndDeleteMessage(t *testing.T) {
	svc, repo, _ := newTestChatService(t)
	ctx := context.Background()
	seedUser(t, repo, "user-1", "alice")
	seedUser(t, repo, "user-2", "bob")

	room, err := svc.CreateRoom(ctx, "user-1", &models.CreateRoomRequest{Name: "general"})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, "user-1", room.ID, &models.AddMemberRequest{UserID: "user-2"})
	require.NoError(t, err)

	msg, err := svc.PostMessage(ctx, "user-1", room.ID, &models.PostMessageRequest{Body: "first"})
	require.NoError(t, err)

	// Only the author edits their message.
	_, err = svc.UpdateMessage(ctx, "user-2", room.ID, msg.ID, &models.UpdateMessageRequest{Body: "hijack"})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	updated, err := svc.UpdateMessage(ctx, "user-1", room.ID, msg.ID, &models.UpdateMessageRequest{Body: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Body)
	assert.NotNil(t, updated.EditedAt)

	require.NoError(t, svc.DeleteMessage(ctx, "user-1", room.ID, msg.ID))

	msgs, err := svc.ListMessages(ctx, "user-1", models.ListMessagesRequest{RoomID: room.ID})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestListMessagesPagination(t *testing.T) {
	svc, repo, _ := newTestChatService(t)
	ctx := context.Background()
	seedUser(t, repo, "user-1", "alice")

	room, err := svc.CreateRoom(ctx, "user-1", &models.CreateRoomRequest{Name: "general"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.PostMessage(ctx, "user-1", room.ID, &models.PostMessageRequest{Body: "msg"})
		require.NoError(t, err)
	}

	msgs, err := svc.ListMessages(ctx, "user-1", models.ListMessagesRequest{RoomID: room.ID, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

func TestListRooms(t *testing.T) {
	svc, repo, _ := newTestChatService(t)
	ctx := context.Background()
	seedUser(t, repo, "user-1", "alice")

	for i := 0; i < 3; i++ {
		_, err := svc.CreateRoom(ctx, "user-1", &models.CreateRoomRequest{Name: "room"})
		require.NoError(t, err)
	}

	resp, err := svc.ListRooms(ctx, "user-1", 1, 2)
	require.NoError(t, err)
	assert.Len(t, resp.Rooms, 2)
	assert.Equal(t, 3, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
}

func TestDeterministicEventID(t *testing.T) {
	a := deterministicEventID("key-1")
	b := deterministicEventID("key-1")
	c := deterministicEventID("key-2")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
