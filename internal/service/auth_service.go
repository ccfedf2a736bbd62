package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/delivergaz-api/internal/auth"
	"github.com/spec-kit/delivergaz-api/internal/config"
	"github.com/spec-kit/delivergaz-api/internal/domain"
	"github.com/spec-kit/delivergaz-api/internal/events"
	"github.com/spec-kit/delivergaz-api/internal/repository"
	apperrors "github.com/spec-kit/delivergaz-api/pkg/util"
)

// Authentication outcome errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrAccountInactive    = errors.New("account is inactive")
)

// AuthService coordinates registration and login flows, including the
// failed-login lockout counters.
type AuthService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	cfg        config.AuthConfig

	now func() time.Time
}

// AuthDependencies encapsulates collaborator requirements for auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		tokenMgr: auth.NewTokenManager(
			cfg.AccessTokenSecret,
			cfg.RefreshTokenSecret,
			cfg.AccessTokenTTL(),
			cfg.RefreshTokenTTL(),
		),
		cfg: cfg,
		now: time.Now,
	}
}

// RegisterUser creates a new customer account and issues its first tokens.
func (s *AuthService) RegisterUser(ctx context.Context, firstName, lastName, email, password string) (*domain.User, domain.TokenPair, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.TokenPair{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.TokenPair{}, err
	}

	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}

	user := &domain.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, domain.TokenPair{}, err
	}

	pair, err := s.tokenMgr.IssueTokenPair(identityOf(user))
	if err != nil {
		return nil, domain.TokenPair{}, err
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventUserRegistered,
		Timestamp: s.now(),
		Payload:   events.UserRegisteredPayload{UserID: user.ID, Email: user.Email, Role: user.Role},
	})
	return user, pair, nil
}

// LoginUser authenticates an account, enforcing the lockout window on
// repeated failures.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, domain.TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.TokenPair{}, ErrInvalidCredentials
		}
		return nil, domain.TokenPair{}, err
	}

	now := s.now()
	if user.Security.Locked(now) {
		retryAfter := int64(user.Security.LockUntil.Sub(now).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return nil, domain.TokenPair{}, apperrors.NewAccountLocked(retryAfter)
	}

	if !user.Active() {
		return nil, domain.TokenPair{}, ErrAccountInactive
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, domain.TokenPair{}, s.recordFailedLogin(ctx, user, now)
	}

	if user.Security.LoginAttempts > 0 || user.Security.LockUntil != nil {
		user.Security.Reset()
		if err := s.users.UpdateSecurity(ctx, user.ID, user.Security); err != nil {
			return nil, domain.TokenPair{}, err
		}
	}

	pair, err := s.tokenMgr.IssueTokenPair(identityOf(user))
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	return user, pair, nil
}

func (s *AuthService) recordFailedLogin(ctx context.Context, user *domain.User, now time.Time) error {
	user.Security.RegisterFailure(now, s.cfg.MaxLoginAttempts, s.cfg.LockoutDuration())
	if err := s.users.UpdateSecurity(ctx, user.ID, user.Security); err != nil {
		return err
	}

	if user.Security.Locked(now) {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventUserLockedOut,
			Timestamp: now,
			Payload: events.UserLockedOutPayload{
				UserID:    user.ID,
				Email:     user.Email,
				LockUntil: *user.Security.LockUntil,
			},
		})
	}
	return ErrInvalidCredentials
}

// RefreshTokens exchanges a valid refresh token for a fresh pair.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*domain.User, domain.TokenPair, error) {
	claims, err := s.tokenMgr.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.TokenPair{}, ErrInvalidCredentials
		}
		return nil, domain.TokenPair{}, err
	}
	if !user.Active() {
		return nil, domain.TokenPair{}, ErrAccountInactive
	}

	pair, err := s.tokenMgr.IssueTokenPair(identityOf(user))
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	return user, pair, nil
}

// ChangePassword verifies the current password before updating to a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// Logout currently no-ops for the stateless JWT approach.
func (s *AuthService) Logout(_ context.Context, _ string) error {
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func identityOf(user *domain.User) domain.Identity {
	return domain.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}
}
