// Package repository provides persistence for users, rooms, memberships and
// messages. Postgres backs production; an in-memory implementation backs
// tests and local development.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/relayroom/relayroom/chat/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotMember     = errors.New("not a room member")
)

// Message page size bounds. The limit reaches the repository straight from
// the request, so both implementations clamp it.
const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

func clampMessageLimit(limit int) int {
	if limit <= 0 {
		return defaultMessageLimit
	}
	if limit > maxMessageLimit {
		return maxMessageLimit
	}
	return limit
}

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// RoomRepository stores rooms and memberships.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room *models.Room, owner *models.Membership) error
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	UpdateRoom(ctx context.Context, room *models.Room) error
	ListRoomsForUser(ctx context.Context, userID string, page, limit int) ([]*models.Room, int, error)

	AddMember(ctx context.Context, m *models.Membership) error
	RemoveMember(ctx context.Context, roomID, userID string) error
	GetMembership(ctx context.Context, roomID, userID string) (*models.Membership, error)
	ListMembers(ctx context.Context, roomID string) ([]*models.Membership, error)
}

// MessageRepository stores messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	UpdateMessage(ctx context.Context, id, body string, editedAt time.Time) (*models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	ListMessages(ctx context.Context, req models.ListMessagesRequest) ([]*models.Message, error)
}

// Repository bundles all stores behind one handle.
type Repository interface {
	UserRepository
	RoomRepository
	MessageRepository
	Close() error
}
