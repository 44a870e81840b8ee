package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/internal/users"
	pkgAuth "github.com/caroduarte/lumina-backend/pkg/auth"
	"github.com/caroduarte/lumina-backend/pkg/auth/session"
	"github.com/caroduarte/lumina-backend/pkg/config"
	"github.com/caroduarte/lumina-backend/pkg/db"
	"github.com/caroduarte/lumina-backend/pkg/db/models"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	ExchangeSession(ctx context.Context, sessionID string) (*SessionExchangeResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	Logout(ctx context.Context, token string) error
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Store(ctx context.Context, token string, data session.Data) error
	Revoke(ctx context.Context, token string) error
}

type oauthResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (*OAuthSessionData, error)
}

type service struct {
	users       userRepository
	session     sessionManager
	oauth       oauthResolver
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	OAuthClient    oauthResolver
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

// NewService constructs an auth service with the provided dependencies.
// The OAuth client is optional; without it session exchange is disabled.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		users:       params.UserRepo,
		session:     params.SessionManager,
		oauth:       params.OAuthClient,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(req.Name),
		Role:         enums.UserRoleClient,
	})
	if err != nil {
		// Two concurrent registrations can both pass the lookup above;
		// the email unique index decides the loser.
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	token, err := s.mintToken(user, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: users.FromModel(user)}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}

	token, err := s.mintToken(user, now)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: users.FromModel(user)}, nil
}

// ExchangeSession resolves a hosted-auth session ID, provisioning the user
// on first login, and persists the broker-issued session token.
func (s *service) ExchangeSession(ctx context.Context, sessionID string) (*SessionExchangeResponse, error) {
	if s.oauth == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "hosted auth is not configured")
	}

	data, err := s.oauth.ResolveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(data.Email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
		}
		// First login through the broker: provision a client account with
		// an unguessable local credential.
		placeholder, genErr := security.GenerateTempPassword(32)
		if genErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, genErr, "generate placeholder password")
		}
		passwordHash, hashErr := security.HashPassword(placeholder, s.passwordCfg)
		if hashErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, hashErr, "hash placeholder password")
		}
		user, err = s.users.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			Name:         data.Name,
			Role:         enums.UserRoleClient,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "provision user")
		}
	}

	if err := s.session.Store(ctx, data.SessionToken, session.Data{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store session")
	}

	if _, err := s.recordLogin(ctx, user); err != nil {
		return nil, err
	}

	return &SessionExchangeResponse{Token: data.SessionToken, User: users.FromModel(user)}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not authenticated")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not authenticated")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return users.FromModel(user), nil
}

// Logout revokes the stored session for the provided token. JWT bearers have
// no server-side state, so revoking an unknown token is a no-op.
func (s *service) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if err := s.session.Revoke(ctx, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) recordLogin(ctx context.Context, user *models.User) (time.Time, error) {
	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return now, nil
}

func (s *service) mintToken(user *models.User, now time.Time) (string, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}
