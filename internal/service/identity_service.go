package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/security/auth"
)

const minPasswordLength = 6

var (
	// ErrInvalidCredentials hides whether the email or the password was wrong
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)
	// ErrTokenRevoked is returned for tokens that were logged out
	ErrTokenRevoked = fmt.Errorf("%w: token revoked", domain.ErrUnauthenticated)
	// ErrAccountGone is returned for tokens whose identity has been deleted
	ErrAccountGone = fmt.Errorf("%w: account no longer exists", domain.ErrUnauthenticated)
)

// IdentityService is the identity provider: it owns accounts, password
// hashes and bearer tokens
type IdentityService struct {
	identities  domain.IdentityRepository
	tokens      *auth.TokenManager
	revocations auth.RevocationStore
	hashCost    int
	logger      *slog.Logger
}

// NewIdentityService creates a new identity service
func NewIdentityService(
	identities domain.IdentityRepository,
	tokens *auth.TokenManager,
	revocations auth.RevocationStore,
	logger *slog.Logger,
) *IdentityService {
	if logger == nil {
		logger = slog.Default()
	}
	if revocations == nil {
		revocations = auth.NewCacheRevocationStore(nil)
	}

	return &IdentityService{
		identities:  identities,
		tokens:      tokens,
		revocations: revocations,
		hashCost:    bcrypt.DefaultCost,
		logger:      logger,
	}
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost
func (s *IdentityService) WithHashCost(cost int) *IdentityService {
	s.hashCost = cost
	return s
}

// CreateIdentity registers an account with the given role and returns it.
// An already registered email yields domain.ErrDuplicate.
func (s *IdentityService) CreateIdentity(ctx context.Context, email, password string, role domain.Role) (*domain.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	}
	if role == domain.RoleUnknown {
		return nil, fmt.Errorf("%w: role is required", domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := &domain.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, fmt.Errorf("email %s already registered: %w", email, err)
		}
		s.logger.Error("failed to create identity", slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.Info("identity created",
		slog.String("user_id", identity.ID),
		slog.String("role", role.String()),
	)
	return identity, nil
}

// Authenticate checks an email/password pair
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*domain.Identity, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}

	identity, err := s.identities.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("login attempt with non-existent email", slog.String("email", email))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		return nil, ErrInvalidCredentials
	}
	return identity, nil
}

// IssueToken signs a bearer token for identity
func (s *IdentityService) IssueToken(identity *domain.Identity) (string, time.Time, error) {
	token, expiresAt, err := s.tokens.GenerateToken(identity)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return token, expiresAt, nil
}

// VerifyToken validates a bearer token and returns the caller it names.
// Revoked tokens and tokens of deleted accounts are rejected.
func (s *IdentityService) VerifyToken(ctx context.Context, token string) (domain.Principal, error) {
	p, err := s.tokens.ValidateToken(token)
	if err != nil {
		return domain.Principal{}, err
	}
	if p.TokenID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, p.TokenID)
		if err != nil {
			return domain.Principal{}, err
		}
		if revoked {
			return domain.Principal{}, ErrTokenRevoked
		}
	}
	if _, err := s.identities.GetByID(ctx, p.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("token presented for deleted account", slog.String("user_id", p.UserID))
			return domain.Principal{}, ErrAccountGone
		}
		return domain.Principal{}, err
	}
	return p, nil
}

// RevokeToken logs a token out until its natural expiry
func (s *IdentityService) RevokeToken(ctx context.Context, p domain.Principal) error {
	if p.TokenID == "" {
		return fmt.Errorf("%w: token has no id", domain.ErrValidation)
	}
	if err := s.revocations.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
		return err
	}
	s.logger.Info("token revoked", slog.String("user_id", p.UserID))
	return nil
}

// GetIdentity returns the identity with id
func (s *IdentityService) GetIdentity(ctx context.Context, userID string) (*domain.Identity, error) {
	return s.identities.GetByID(ctx, userID)
}

// DeleteIdentity removes an account. Tenant and manager profiles go with it.
func (s *IdentityService) DeleteIdentity(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if err := s.identities.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("identity deleted", slog.String("user_id", userID))
	return nil
}
