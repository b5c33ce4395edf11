package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/relayroom/relayroom/chat/internal/models"
	"github.com/relayroom/relayroom/chat/internal/repository"
	"github.com/relayroom/relayroom/chat/internal/sessions"
	"github.com/relayroom/relayroom/chat/pkg/tokens"
	"github.com/relayroom/relayroom/common/events"
	"github.com/relayroom/relayroom/common/logging"
	"github.com/relayroom/relayroom/common/messaging"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUsernameTaken      = errors.New("username already taken")
)

// AuthService handles registration, login and token lifecycle.
type AuthService struct {
	repo      repository.Repository
	tokenGen  *tokens.TokenGenerator
	sessions  *sessions.Store
	publisher *events.AdaptivePublisher
	logger    *logging.Logger
}

func NewAuthService(repo repository.Repository, tokenGen *tokens.TokenGenerator, store *sessions.Store, publisher *events.AdaptivePublisher, logger *logging.Logger) *AuthService {
	return &AuthService{
		repo:      repo,
		tokenGen:  tokenGen,
		sessions:  store,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	userID, _ := uuid.NewV7()
	user := &models.User{
		ID:           userID.String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Roles:        []string{"member"},
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.publishEvent(ctx, messaging.SubjectUserRegistered, map[string]any{
		"user_id":    user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
	}, events.PriorityLow)

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.LoginResponse, error) {
	session, err := s.sessions.Get(ctx, refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(ctx, session.UserID)
	if err != nil || !user.IsActive() {
		return nil, ErrInvalidToken
	}

	newRefresh, err := s.tokenGen.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.Rotate(ctx, refreshToken, newRefresh); err != nil {
		return nil, ErrInvalidToken
	}

	accessToken, err := s.tokenGen.GenerateAccessToken(user.ID, user.Username, user.Roles)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresIn:    int(s.tokenGen.AccessTTL().Seconds()),
		TokenType:    "Bearer",
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.sessions.Delete(ctx, refreshToken); err != nil {
		return ErrInvalidToken
	}
	return nil
}

func (s *AuthService) ValidateToken(tokenString string) (*tokens.Claims, error) {
	claims, err := s.tokenGen.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.LoginResponse, error) {
	accessToken, err := s.tokenGen.GenerateAccessToken(user.ID, user.Username, user.Roles)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenGen.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	err = s.sessions.Create(ctx, refreshToken, &sessions.Session{
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.tokenGen.AccessTTL().Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// publishEvent publishes a domain event without failing the caller. Account
// events are advisory; persistence has already succeeded.
func (s *AuthService) publishEvent(ctx context.Context, subject string, payload map[string]any, priority events.Priority) {
	if s.publisher == nil {
		return
	}

	env := events.NewEnvelope(subject, nil, events.WithPriority(priority))
	payload["event_id"] = env.ID.String()
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to marshal event payload", logging.Subject(subject), logging.Error(err))
		return
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
}
