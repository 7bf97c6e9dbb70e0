package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"domus-api/internal/event"
	"domus-api/internal/model"
	"domus-api/internal/security"
)

// UserStore is the slice of the user repository the auth service needs.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) error
}

// RefreshTokenStore manages live refresh tokens. Issue must guarantee at most
// one live token per user, superseding any existing one.
type RefreshTokenStore interface {
	Issue(ctx context.Context, userID uuid.UUID, ttl time.Duration) (model.RefreshToken, error)
	Get(ctx context.Context, id uuid.UUID) (model.RefreshToken, error)
	DeleteForUser(ctx context.Context, userID uuid.UUID) error
}

type AuthService struct {
	users      UserStore
	tokens     RefreshTokenStore
	hasher     *security.PasswordHasher
	signer     *security.TokenSigner
	events     event.Bus
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(
	users UserStore,
	tokens RefreshTokenStore,
	hasher *security.PasswordHasher,
	signer *security.TokenSigner,
	events event.Bus,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		hasher:     hasher,
		signer:     signer,
		events:     events,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// publish records an audit event. The bus is optional; a nil bus disables
// auditing without touching the auth path.
func (s *AuthService) publish(t event.Type, userID string, email string) {
	if s.events == nil {
		return
	}

	s.events.Publish(event.Event{
		Type:       t,
		UserID:     userID,
		Email:      email,
		OccurredAt: time.Now().UTC(),
	})
}

// Register creates a new user and issues an initial token pair. Uniqueness is
// enforced by the store: a duplicate email surfaces as ErrUserAlreadyExists.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.TokenPair, error) {
	slog.Info("registering new user", "email", req.Email)

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return model.TokenPair{}, err
	}

	s.publish(event.TypeUserRegistered, user.ID.String(), user.Email)

	return s.issueTokenPair(ctx, user)
}

// Login verifies the credentials and issues a fresh token pair, superseding
// any prior live refresh token for the user.
//
// When the email lookup misses, Login still runs a full verification against
// a dummy hash before failing. The branch is deliberate: returning early on an
// unknown email would leak account existence through response latency.
func (s *AuthService) Login(ctx context.Context, email string, password string) (model.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)

	var match bool
	switch {
	case err == nil:
		match = s.hasher.Verify(password, user.PasswordHash)
	case errors.Is(err, model.ErrUserNotFound):
		s.hasher.Verify(password, security.DummyHash)
		match = false
	default:
		return model.TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	if !match {
		slog.Info("failed login attempt", "email", email)
		s.publish(event.TypeLoginFailed, "", email)
		return model.TokenPair{}, model.ErrInvalidCredentials
	}

	s.publish(event.TypeLoginSucceeded, user.ID.String(), user.Email)

	return s.issueTokenPair(ctx, user)
}

// Refresh redeems a refresh token and rotates it: the redeemed token is
// superseded by the new one, so a refresh id can be used at most once. All
// failure causes collapse to ErrUnauthorized; the cause is only logged.
func (s *AuthService) Refresh(ctx context.Context, refreshTokenID string) (model.TokenPair, error) {
	id, err := uuid.Parse(refreshTokenID)
	if err != nil {
		slog.Info("refresh rejected", "reason", "malformed token id")
		return model.TokenPair{}, model.ErrUnauthorized
	}

	token, err := s.tokens.Get(ctx, id)
	if errors.Is(err, model.ErrTokenNotFound) {
		slog.Info("refresh rejected", "reason", "token not found")
		return model.TokenPair{}, model.ErrUnauthorized
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("redeem refresh token: %w", err)
	}

	if !time.Now().UTC().Before(token.ExpiresAt) {
		slog.Info("refresh rejected", "reason", "token expired", "user_id", token.UserID)
		return model.TokenPair{}, model.ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		slog.Warn("refresh token owner no longer exists", "user_id", token.UserID)
		return model.TokenPair{}, model.ErrUnauthorized
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("resolve token owner: %w", err)
	}

	s.publish(event.TypeTokenRefreshed, user.ID.String(), user.Email)

	return s.issueTokenPair(ctx, user)
}

// Logout invalidates the user's live refresh token. Idempotent: logging out
// twice succeeds. The access token stays valid until its TTL expires.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return model.ErrUnauthorized
	}

	if err := s.tokens.DeleteForUser(ctx, id); err != nil {
		return err
	}

	s.publish(event.TypeUserLoggedOut, userID, "")

	return nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userID string) (model.UserProfile, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return model.UserProfile{}, model.ErrUserNotFound
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.UserProfile{}, err
	}

	return user.Profile(), nil
}

// issueTokenPair signs an access token and persists a new refresh token.
// Nothing is returned to the caller unless both steps succeed.
func (s *AuthService) issueTokenPair(ctx context.Context, user model.User) (model.TokenPair, error) {
	accessToken, err := s.signer.Sign(user)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.tokens.Issue(ctx, user.ID, s.refreshTTL)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken.ID.String(),
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		User:         user.Profile(),
	}, nil
}
