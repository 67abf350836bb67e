package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bissquit/storefront/internal/domain"
	"github.com/bissquit/storefront/internal/pkg/ctxlog"
)

// Token is a credential issued on successful login.
type Token struct {
	AccessToken string    `json:"token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Authenticator issues and validates login tokens.
type Authenticator interface {
	GenerateToken(ctx context.Context, user *domain.User) (*Token, error)
	ValidateToken(ctx context.Context, token string) (userID string, role domain.Role, err error)
	Type() string
}

// RegisterInput contains registration data. Password is plaintext.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
}

// LoginInput contains login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// Service provides identity business logic.
type Service struct {
	repo   Repository
	hasher PasswordHasher
	auth   Authenticator

	dummyOnce   sync.Once
	dummyDigest string
}

// NewService creates a new identity service.
func NewService(repo Repository, hasher PasswordHasher, auth Authenticator) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		auth:   auth,
	}
}

// Register hashes the password and persists a new account.
// Email uniqueness is decided by the repository; its errors are returned unchanged.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleOrdinary
	}
	if !role.IsValid() {
		recordRegistration(resultError)
		return nil, ErrInvalidRole
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		recordRegistration(resultError)
		return nil, err
	}

	user := &domain.User{
		Email:     domain.NormalizeEmail(input.Email),
		Password:  digest,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      role,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) {
			recordRegistration(resultConflict)
		} else {
			recordRegistration(resultError)
		}
		return nil, err
	}

	recordRegistration(resultSuccess)
	ctxlog.FromContext(ctx).Info("user registered", "user_id", user.ID, "role", user.Role)

	return user, nil
}

// Login verifies credentials and issues a token.
// Unknown email and wrong password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, input LoginInput) (*domain.User, *Token, error) {
	user, err := s.repo.GetUserByEmail(ctx, domain.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Burn one comparison so unknown emails cost the same as wrong passwords.
			s.hasher.Verify(input.Password, s.fallbackDigest())
			recordLogin(resultInvalid)
			return nil, nil, ErrInvalidCredentials
		}
		recordLogin(resultError)
		return nil, nil, fmt.Errorf("get user by email: %w", err)
	}

	if !s.hasher.Verify(input.Password, user.Password) {
		recordLogin(resultInvalid)
		return nil, nil, ErrInvalidCredentials
	}

	token, err := s.auth.GenerateToken(ctx, user)
	if err != nil {
		recordLogin(resultError)
		return nil, nil, fmt.Errorf("generate token: %w", err)
	}

	recordLogin(resultSuccess)
	return user, token, nil
}

// ValidateToken validates an access token and returns its subject and role.
func (s *Service) ValidateToken(ctx context.Context, token string) (string, domain.Role, error) {
	return s.auth.ValidateToken(ctx, token)
}

// GetUserByID returns the account with the given ID.
func (s *Service) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	userID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return s.repo.GetUserByID(ctx, userID)
}

// EmailTaken reports whether an account already uses the email.
func (s *Service) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.repo.ExistsByEmail(ctx, domain.NormalizeEmail(email))
}

func (s *Service) fallbackDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("storefront-unknown-account")
		if err != nil {
			slog.Error("failed to prepare fallback digest", "error", err)
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}
