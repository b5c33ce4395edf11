package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/relayroom/relayroom/chat/internal/models"
	"github.com/relayroom/relayroom/chat/internal/repository"
	"github.com/relayroom/relayroom/common/events"
	"github.com/relayroom/relayroom/common/logging"
	"github.com/relayroom/relayroom/common/messaging"
)

var (
	ErrNotRoomMember = errors.New("not a room member")
	ErrNotAuthorized = errors.New("not authorized")

	// ErrEventBackpressure reports that the mutation was persisted but its
	// event could not be accepted by the publishing pipeline. Clients may
	// retry with the same idempotency key.
	ErrEventBackpressure = errors.New("event pipeline saturated")
)

const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// ChatService implements room, membership and message operations. Every
// mutation publishes a domain event after its write commits.
type ChatService struct {
	repo      repository.Repository
	publisher *events.AdaptivePublisher
	logger    *logging.Logger
}

func NewChatService(repo repository.Repository, publisher *events.AdaptivePublisher, logger *logging.Logger) *ChatService {
	return &ChatService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Rooms

func (s *ChatService) CreateRoom(ctx context.Context, userID string, req *models.CreateRoomRequest) (*models.Room, error) {
	roomID, _ := uuid.NewV7()
	now := time.Now().UTC()

	room := &models.Room{
		ID:        roomID.String(),
		Name:      req.Name,
		Topic:     req.Topic,
		Direct:    req.Direct,
		CreatedBy: userID,
		CreatedAt: now,
	}
	owner := &models.Membership{
		RoomID:   room.ID,
		UserID:   userID,
		Role:     RoleOwner,
		JoinedAt: now,
	}

	if err := s.repo.CreateRoom(ctx, room, owner); err != nil {
		return nil, err
	}
	room.MemberCount = 1

	s.publishEvent(ctx, messaging.SubjectChatRoomCreated, map[string]any{
		"room_id":    room.ID,
		"name":       room.Name,
		"direct":     room.Direct,
		"created_by": room.CreatedBy,
		"created_at": room.CreatedAt,
	}, events.PriorityNormal, nil)

	return room, nil
}

func (s *ChatService) GetRoom(ctx context.Context, userID, roomID string) (*models.Room, error) {
	if err := s.requireMembership(ctx, roomID, userID); err != nil {
		return nil, err
	}
	return s.repo.GetRoom(ctx, roomID)
}

func (s *ChatService) UpdateRoom(ctx context.Context, userID, roomID string, req *models.UpdateRoomRequest) (*models.Room, error) {
	m, err := s.repo.GetMembership(ctx, roomID, userID)
	if err != nil {
		return nil, mapMembershipErr(err)
	}
	if m.Role != RoleOwner {
		return nil, ErrNotAuthorized
	}

	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.Topic != nil {
		room.Topic = *req.Topic
	}
	now := time.Now().UTC()
	room.UpdatedAt = &now

	if err := s.repo.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, messaging.SubjectChatRoomUpdated, map[string]any{
		"room_id":    room.ID,
		"name":       room.Name,
		"topic":      room.Topic,
		"updated_by": userID,
		"updated_at": now,
	}, events.PriorityLow, nil)

	return room, nil
}

func (s *ChatService) ListRooms(ctx context.Context, userID string, page, limit int) (*models.ListRoomsResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	rooms, total, err := s.repo.ListRoomsForUser(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}

	totalPages := (total + limit - 1) / limit
	return &models.ListRoomsResponse{
		Rooms: rooms,
		Pagination: models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// Memberships

func (s *ChatService) AddMember(ctx context.Context, actorID, roomID string, req *models.AddMemberRequest) (*models.Membership, error) {
	actor, err := s.repo.GetMembership(ctx, roomID, actorID)
	if err != nil {
		return nil, mapMembershipErr(err)
	}
	if actor.Role != RoleOwner {
		return nil, ErrNotAuthorized
	}

	if _, err := s.repo.GetUserByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	m := &models.Membership{
		RoomID:   roomID,
		UserID:   req.UserID,
		Role:     RoleMember,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.repo.AddMember(ctx, m); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, messaging.SubjectChatMemberAdded, map[string]any{
		"room_id":  roomID,
		"user_id":  req.UserID,
		"added_by": actorID,
	}, events.PriorityNormal, nil)

	return m, nil
}

func (s *ChatService) RemoveMember(ctx context.Context, actorID, roomID, userID string) error {
	// Members can always remove themselves; removing others takes the
	// owner role.
	if actorID != userID {
		actor, err := s.repo.GetMembership(ctx, roomID, actorID)
		if err != nil {
			return mapMembershipErr(err)
		}
		if actor.Role != RoleOwner {
			return ErrNotAuthorized
		}
	}

	if err := s.repo.RemoveMember(ctx, roomID, userID); err != nil {
		return mapMembershipErr(err)
	}

	s.publishEvent(ctx, messaging.SubjectChatMemberRemoved, map[string]any{
		"room_id":    roomID,
		"user_id":    userID,
		"removed_by": actorID,
	}, events.PriorityNormal, nil)

	return nil
}

func (s *ChatService) ListMembers(ctx context.Context, userID, roomID string) ([]*models.Membership, error) {
	if err := s.requireMembership(ctx, roomID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, roomID)
}

// Messages

func (s *ChatService) PostMessage(ctx context.Context, userID, roomID string, req *models.PostMessageRequest) (*models.Message, error) {
	if err := s.requireMembership(ctx, roomID, userID); err != nil {
		return nil, err
	}

	msgID, _ := uuid.NewV7()
	msg := &models.Message{
		ID:        msgID.String(),
		RoomID:    roomID,
		AuthorID:  userID,
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	// The event ID doubles as the consumer dedup key. Deriving it from the
	// client idempotency key makes retried requests publish the same event.
	eventID, _ := uuid.NewV7()
	opts := []events.EnvelopeOption{events.WithEventID(eventID)}
	if req.IdempotencyKey != "" {
		opts = []events.EnvelopeOption{
			events.WithEventID(deterministicEventID(req.IdempotencyKey)),
			events.WithMetadata("idempotency_key", req.IdempotencyKey),
		}
	}

	res := s.publishMessageEvent(ctx, messaging.SubjectChatMessageCreated, msg, opts...)
	if res.Outcome == events.OutcomeBackpressure || res.Outcome == events.OutcomeDropped {
		return msg, ErrEventBackpressure
	}

	return msg, nil
}

func (s *ChatService) UpdateMessage(ctx context.Context, userID, roomID, messageID string, req *models.UpdateMessageRequest) (*models.Message, error) {
	msg, err := s.getOwnMessage(ctx, userID, roomID, messageID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateMessage(ctx, msg.ID, req.Body, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.publishMessageEvent(ctx, messaging.SubjectChatMessageUpdated, updated)
	return updated, nil
}

func (s *ChatService) DeleteMessage(ctx context.Context, userID, roomID, messageID string) error {
	msg, err := s.getOwnMessage(ctx, userID, roomID, messageID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteMessage(ctx, msg.ID); err != nil {
		return err
	}

	s.publishEvent(ctx, messaging.RoomScopedSubject(messaging.SubjectChatMessageDeleted, msg.RoomID), map[string]any{
		"message_id": msg.ID,
		"room_id":    msg.RoomID,
		"deleted_by": userID,
	}, events.PriorityNormal, nil)

	return nil
}

func (s *ChatService) ListMessages(ctx context.Context, userID string, req models.ListMessagesRequest) ([]*models.Message, error) {
	if err := s.requireMembership(ctx, req.RoomID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, req)
}

// helpers

func (s *ChatService) requireMembership(ctx context.Context, roomID, userID string) error {
	if _, err := s.repo.GetMembership(ctx, roomID, userID); err != nil {
		return mapMembershipErr(err)
	}
	return nil
}

func (s *ChatService) getOwnMessage(ctx context.Context, userID, roomID, messageID string) (*models.Message, error) {
	if err := s.requireMembership(ctx, roomID, userID); err != nil {
		return nil, err
	}
	msg, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.RoomID != roomID {
		return nil, repository.ErrNotFound
	}
	if msg.AuthorID != userID {
		return nil, ErrNotAuthorized
	}
	return msg, nil
}

func mapMembershipErr(err error) error {
	if errors.Is(err, repository.ErrNotMember) {
		return ErrNotRoomMember
	}
	return err
}

// deterministicEventID derives a stable UUID from a client idempotency key
// so retried requests publish the same event ID.
func deterministicEventID(key string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
}

// publishMessageEvent publishes on the room-scoped subject so consumers can
// follow a single room; the indexer's wildcard still matches.
func (s *ChatService) publishMessageEvent(ctx context.Context, base string, msg *models.Message, opts ...events.EnvelopeOption) events.PublishResult {
	subject := messaging.RoomScopedSubject(base, msg.RoomID)
	payload := map[string]any{
		"message_id": msg.ID,
		"room_id":    msg.RoomID,
		"author_id":  msg.AuthorID,
		"body":       msg.Body,
		"created_at": msg.CreatedAt,
	}
	if msg.EditedAt != nil {
		payload["edited_at"] = *msg.EditedAt
	}
	return s.publishEvent(ctx, subject, payload, events.PriorityHigh, opts)
}

func (s *ChatService) publishEvent(ctx context.Context, subject string, payload map[string]any, priority events.Priority, opts []events.EnvelopeOption) events.PublishResult {
	if s.publisher == nil {
		return events.PublishResult{}
	}

	opts = append([]events.EnvelopeOption{events.WithPriority(priority)}, opts...)
	env := events.NewEnvelope(subject, nil, opts...)

	// Consumers dedup on event_id, so it travels inside the payload.
	payload["event_id"] = env.ID.String()
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to marshal event payload", logging.Subject(subject), logging.Error(err))
		return events.PublishResult{}
	}
	env.Payload = data

	res := s.publisher.Publish(ctx, env)
	if res.Outcome != events.OutcomeSuccess {
		s.logger.WarnContext(ctx, "event publish did not succeed",
			logging.Subject(subject),
			logging.EventID(env.ID.String()),
			"outcome", res.Outcome.String(),
			"reason", res.Reason.String())
	}
	return res
}
