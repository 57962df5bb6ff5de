package services

import (
	"context"
	"fmt"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kendall-kelly/service-marketplace-api/config"
	"github.com/kendall-kelly/service-marketplace-api/models"
)

// CustomClaims carries the marketplace-specific claims of a session token.
type CustomClaims struct {
	Role string `json:"role"`
}

// Validate satisfies validator.CustomClaims. The role is checked against
// the stored user by the session gate, not here.
func (c *CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// SessionClaims is the verified content of a session token
type SessionClaims struct {
	Username  string
	TokenID   string
	Role      string
	ExpiresAt time.Time
}

type sessionTokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens
type TokenService struct {
	secret    []byte
	issuer    string
	audience  string
	expiry    time.Duration
	validator *validator.Validator
	now       func() time.Time
}

// NewTokenService builds a token service from configuration
func NewTokenService(cfg *config.Config) (*TokenService, error) {
	secret := []byte(cfg.JWTSecret)

	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}

	return &TokenService{
		secret:    secret,
		issuer:    cfg.JWTIssuer,
		audience:  cfg.JWTAudience,
		expiry:    cfg.JWTAccessExpiry,
		validator: jwtValidator,
		now:       time.Now,
	}, nil
}

// Expiry is the lifetime of issued session tokens
func (s *TokenService) Expiry() time.Duration {
	return s.expiry
}

// IssueSession signs a session token for user
func (s *TokenService) IssueSession(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)

	claims := sessionTokenClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken has the signature jwtmiddleware expects
func (s *TokenService) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	return s.validator.ValidateToken(ctx, token)
}

// VerifySession checks signature, issuer, audience and expiry. Any failure
// is reported as Unauthorized.
func (s *TokenService) VerifySession(ctx context.Context, token string) (*SessionClaims, error) {
	raw, err := s.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, Unauthorized("INVALID_TOKEN", "Could not validate credentials")
	}
	claims, ok := raw.(*validator.ValidatedClaims)
	if !ok {
		return nil, Unauthorized("INVALID_TOKEN", "Could not validate credentials")
	}
	return ClaimsFromValidated(claims)
}

// ClaimsFromValidated converts validator output into SessionClaims
func ClaimsFromValidated(claims *validator.ValidatedClaims) (*SessionClaims, error) {
	if claims.RegisteredClaims.Subject == "" || claims.RegisteredClaims.ID == "" {
		return nil, Unauthorized("INVALID_TOKEN", "Could not validate credentials")
	}

	out := &SessionClaims{
		Username: claims.RegisteredClaims.Subject,
		TokenID:  claims.RegisteredClaims.ID,
	}
	if claims.RegisteredClaims.Expiry > 0 {
		out.ExpiresAt = time.Unix(claims.RegisteredClaims.Expiry, 0)
	}
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok {
		out.Role = custom.Role
	}
	return out, nil
}
