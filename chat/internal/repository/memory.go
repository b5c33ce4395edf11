package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/relayroom/relayroom/chat/internal/models"
)

// MemoryRepository is an in-memory Repository for tests and local runs.
type MemoryRepository struct {
	mu          sync.RWMutex
	users       map[string]*models.User
	usersByName map[string]string
	rooms       map[string]*models.Room
	memberships map[string]map[string]*models.Membership // roomID -> userID
	messages    map[string]*models.Message
	byRoom      map[string][]string // roomID -> message IDs in insert order
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:       make(map[string]*models.User),
		usersByName: make(map[string]string),
		rooms:       make(map[string]*models.Room),
		memberships: make(map[string]map[string]*models.Membership),
		messages:    make(map[string]*models.Message),
		byRoom:      make(map[string][]string),
	}
}

func (r *MemoryRepository) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.usersByName[user.Username]; ok {
		return ErrAlreadyExists
	}
	cp := *user
	r.users[user.ID] = &cp
	r.usersByName[user.Username] = user.ID
	return nil
}

func (r *MemoryRepository) GetUserByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.usersByName[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r.users[id]
	return &cp, nil
}

func (r *MemoryRepository) CreateRoom(_ context.Context, room *models.Room, owner *models.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.ID]; ok {
		return ErrAlreadyExists
	}
	cp := *room
	r.rooms[room.ID] = &cp
	mo := *owner
	r.memberships[room.ID] = map[string]*models.Membership{owner.UserID: &mo}
	return nil
}

func (r *MemoryRepository) GetRoom(_ context.Context, id string) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *room
	cp.MemberCount = len(r.memberships[id])
	return &cp, nil
}

func (r *MemoryRepository) UpdateRoom(_ context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.ID]; !ok {
		return ErrNotFound
	}
	cp := *room
	r.rooms[room.ID] = &cp
	return nil
}

func (r *MemoryRepository) ListRoomsForUser(_ context.Context, userID string, page, limit int) ([]*models.Room, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rooms []*models.Room
	for roomID, members := range r.memberships {
		if _, ok := members[userID]; !ok {
			continue
		}
		cp := *r.rooms[roomID]
		cp.MemberCount = len(members)
		rooms = append(rooms, &cp)
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})

	total := len(rooms)
	start := (page - 1) * limit
	if start >= total {
		return []*models.Room{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return rooms[start:end], total, nil
}

func (r *MemoryRepository) AddMember(_ context.Context, m *models.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.memberships[m.RoomID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := members[m.UserID]; ok {
		return ErrAlreadyExists
	}
	cp := *m
	members[m.UserID] = &cp
	return nil
}

func (r *MemoryRepository) RemoveMember(_ context.Context, roomID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.memberships[roomID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := members[userID]; !ok {
		return ErrNotMember
	}
	delete(members, userID)
	return nil
}

func (r *MemoryRepository) GetMembership(_ context.Context, roomID, userID string) (*models.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.memberships[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	m, ok := members[userID]
	if !ok {
		return nil, ErrNotMember
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepository) ListMembers(_ context.Context, roomID string) ([]*models.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.memberships[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]*models.Membership, 0, len(members))
	for _, m := range members {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (r *MemoryRepository) CreateMessage(_ context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[msg.RoomID]; !ok {
		return ErrNotFound
	}
	cp := *msg
	r.messages[msg.ID] = &cp
	r.byRoom[msg.RoomID] = append(r.byRoom[msg.RoomID], msg.ID)
	return nil
}

func (r *MemoryRepository) GetMessage(_ context.Context, id string) (*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, ok := r.messages[id]
	if !ok || msg.Deleted {
		return nil, ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (r *MemoryRepository) UpdateMessage(_ context.Context, id, body string, editedAt time.Time) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.messages[id]
	if !ok || msg.Deleted {
		return nil, ErrNotFound
	}
	msg.Body = body
	msg.EditedAt = &editedAt
	cp := *msg
	return &cp, nil
}

func (r *MemoryRepository) DeleteMessage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.messages[id]
	if !ok || msg.Deleted {
		return ErrNotFound
	}
	msg.Deleted = true
	return nil
}

func (r *MemoryRepository) ListMessages(_ context.Context, req models.ListMessagesRequest) ([]*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, ok := r.byRoom[req.RoomID]
	if !ok {
		if _, exists := r.rooms[req.RoomID]; !exists {
			return nil, ErrNotFound
		}
		return []*models.Message{}, nil
	}

	limit := clampMessageLimit(req.Limit)

	// Newest first, optionally bounded by req.Before.
	out := make([]*models.Message, 0, limit)
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		msg := r.messages[ids[i]]
		if msg.Deleted {
			continue
		}
		if !req.Before.IsZero() && !msg.CreatedAt.Before(req.Before) {
			continue
		}
		cp := *msg
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryRepository) Close() error { return nil }
