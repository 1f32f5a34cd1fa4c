package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
)

// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens
var ErrInvalidToken = fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret string
	issuer string
	ttl    time.Duration
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = "aptlease"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: secret, issuer: issuer, ttl: ttl}
}

// GenerateToken signs an HS256 token carrying the identity's role claim and a
// random jti used for revocation
func (tm *TokenManager) GenerateToken(identity *domain.Identity) (string, time.Time, error) {
	if identity == nil || identity.ID == "" {
		return "", time.Time{}, fmt.Errorf("user_id required")
	}
	if identity.Role == domain.RoleUnknown {
		return "", time.Time{}, fmt.Errorf("identity %s has no role", identity.ID)
	}
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := Claims{
		UserID: identity.ID,
		Email:  identity.Email,
		Role:   identity.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken checks signature, expiry and issuer and returns the principal
func (tm *TokenManager) ValidateToken(tokenString string) (domain.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	}, jwt.WithIssuer(tm.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.Principal{}, ErrInvalidToken
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	p := domain.Principal{
		UserID:  claims.UserID,
		Email:   claims.Email,
		Role:    role,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

var errBadHeader = errors.New("invalid authorization header")

func ExtractToken(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errBadHeader
	}
	return parts[1], nil
}
