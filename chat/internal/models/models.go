// Package models defines the chat service's domain types and API payloads.
package models

import "time"

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return !u.Disabled
}

// Room is a chat room. DirectMessage rooms have exactly two members and no
// public listing.
type Room struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Topic     string     `json:"topic,omitempty"`
	Direct    bool       `json:"direct"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// MemberCount is populated on reads that join memberships.
	MemberCount int `json:"member_count,omitempty"`
}

// Membership links a user to a room.
type Membership struct {
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"` // "owner" or "member"
	JoinedAt time.Time `json:"joined_at"`
}

// Message is a single chat message.
type Message struct {
	ID        string     `json:"id"`
	RoomID    string     `json:"room_id"`
	AuthorID  string     `json:"author_id"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	Deleted   bool       `json:"deleted,omitempty"`
}

// Request/response payloads.

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type CreateRoomRequest struct {
	Name   string `json:"name"`
	Topic  string `json:"topic,omitempty"`
	Direct bool   `json:"direct,omitempty"`
}

type UpdateRoomRequest struct {
	Name  *string `json:"name,omitempty"`
	Topic *string `json:"topic,omitempty"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
}

type PostMessageRequest struct {
	Body string `json:"body"`

	// IdempotencyKey lets clients resubmit a message without duplicating it
	// downstream; it becomes the published event's ID when set.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type UpdateMessageRequest struct {
	Body string `json:"body"`
}

type ListMessagesRequest struct {
	RoomID string
	Before time.Time
	Limit  int
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type ListRoomsResponse struct {
	Rooms      []*Room    `json:"rooms"`
	Pagination Pagination `json:"pagination"`
}
