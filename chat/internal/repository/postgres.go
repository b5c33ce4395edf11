package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relayroom/relayroom/chat/internal/models"
	"github.com/relayroom/relayroom/common/database"
)

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to Postgres and verifies the connection.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, roles, disabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Roles, user.Disabled, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	return r.scanUser(r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, roles, disabled, created_at
		FROM users WHERE id = $1`, id))
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	return r.scanUser(r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, roles, disabled, created_at
		FROM users WHERE username = $1`, username))
}

func (r *PostgresRepository) scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Roles, &u.Disabled, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepository) CreateRoom(ctx context.Context, room *models.Room, owner *models.Membership) error {
	ctx, cancel := database.TxContext(ctx)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO rooms (id, name, topic, direct, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		room.ID, room.Name, room.Topic, room.Direct, room.CreatedBy, room.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create room: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO memberships (room_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)`,
		owner.RoomID, owner.UserID, owner.Role, owner.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to add owner membership: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	var room models.Room
	err := r.pool.QueryRow(ctx, `
		SELECT r.id, r.name, r.topic, r.direct, r.created_by, r.created_at, r.updated_at,
		       (SELECT COUNT(*) FROM memberships m WHERE m.room_id = r.id)
		FROM rooms r WHERE r.id = $1`, id).Scan(
		&room.ID, &room.Name, &room.Topic, &room.Direct, &room.CreatedBy,
		&room.CreatedAt, &room.UpdatedAt, &room.MemberCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &room, nil
}

func (r *PostgresRepository) UpdateRoom(ctx context.Context, room *models.Room) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE rooms SET name = $2, topic = $3, updated_at = $4 WHERE id = $1`,
		room.ID, room.Name, room.Topic, room.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListRoomsForUser(ctx context.Context, userID string, page, limit int) ([]*models.Room, int, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM memberships WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count rooms: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.topic, r.direct, r.created_by, r.created_at, r.updated_at,
		       (SELECT COUNT(*) FROM memberships mc WHERE mc.room_id = r.id)
		FROM rooms r
		JOIN memberships m ON m.room_id = r.id
		WHERE m.user_id = $1
		ORDER BY r.created_at
		LIMIT $2 OFFSET $3`, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []*models.Room{}
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Topic, &room.Direct,
			&room.CreatedBy, &room.CreatedAt, &room.UpdatedAt, &room.MemberCount); err != nil {
			return nil, 0, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}
	return rooms, total, rows.Err()
}

func (r *PostgresRepository) AddMember(ctx context.Context, m *models.Membership) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO memberships (room_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)`,
		m.RoomID, m.UserID, m.Role, m.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveMember(ctx context.Context, roomID, userID string) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM memberships WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotMember
	}
	return nil
}

func (r *PostgresRepository) GetMembership(ctx context.Context, roomID, userID string) (*models.Membership, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	var m models.Membership
	err := r.pool.QueryRow(ctx, `
		SELECT room_id, user_id, role, joined_at
		FROM memberships WHERE room_id = $1 AND user_id = $2`, roomID, userID).Scan(
		&m.RoomID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}

func (r *PostgresRepository) ListMembers(ctx context.Context, roomID string) ([]*models.Membership, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT room_id, user_id, role, joined_at
		FROM memberships WHERE room_id = $1
		ORDER BY joined_at`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*models.Membership{}
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.RoomID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

func (r *PostgresRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, room_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.RoomID, msg.AuthorID, msg.Body, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	var msg models.Message
	err := r.pool.QueryRow(ctx, `
		SELECT id, room_id, author_id, body, created_at, edited_at, deleted
		FROM messages WHERE id = $1 AND NOT deleted`, id).Scan(
		&msg.ID, &msg.RoomID, &msg.AuthorID, &msg.Body,
		&msg.CreatedAt, &msg.EditedAt, &msg.Deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

func (r *PostgresRepository) UpdateMessage(ctx context.Context, id, body string, editedAt time.Time) (*models.Message, error) {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	var msg models.Message
	err := r.pool.QueryRow(ctx, `
		UPDATE messages SET body = $2, edited_at = $3
		WHERE id = $1 AND NOT deleted
		RETURNING id, room_id, author_id, body, created_at, edited_at, deleted`,
		id, body, editedAt).Scan(
		&msg.ID, &msg.RoomID, &msg.AuthorID, &msg.Body,
		&msg.CreatedAt, &msg.EditedAt, &msg.Deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}
	return &msg, nil
}

func (r *PostgresRepository) DeleteMessage(ctx context.Context, id string) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET deleted = TRUE WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListMessages(ctx context.Context, req models.ListMessagesRequest) ([]*models.Message, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	limit := clampMessageLimit(req.Limit)
	before := req.Before
	if before.IsZero() {
		before = time.Now().Add(time.Hour)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, room_id, author_id, body, created_at, edited_at, deleted
		FROM messages
		WHERE room_id = $1 AND created_at < $2 AND NOT deleted
		ORDER BY created_at DESC
		LIMIT $3`, req.RoomID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.AuthorID, &msg.Body,
			&msg.CreatedAt, &msg.EditedAt, &msg.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}
