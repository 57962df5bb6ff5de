package services

import (
	"context"
	"strings"
	"time"

	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AuthService implements sign-up, sign-in and the password/email flows
type AuthService struct {
	users   *UserStore
	tokens  *TokenService
	actions *ActionTokenService
	revoked RevocationStore
	mailer  Mailer
	baseURL string
}

func NewAuthService(users *UserStore, tokens *TokenService, actions *ActionTokenService, revoked RevocationStore, mailer Mailer, baseURL string) *AuthService {
	if revoked == nil {
		revoked = NoopRevocationStore{}
	}
	return &AuthService{
		users:   users,
		tokens:  tokens,
		actions: actions,
		revoked: revoked,
		mailer:  mailer,
		baseURL: baseURL,
	}
}

// Session is a freshly issued bearer credential
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SignUpInput is the data needed to register an account
type SignUpInput struct {
	Username string
	Email    string
	Name     string
	Password string
	Role     string
}

// SignUp creates the account, issues a session and emails a verification link
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*models.User, *Session, error) {
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = models.RoleCustomer
	}
	if role == models.RoleAdmin {
		return nil, nil, InvalidInput("INVALID_ROLE", "The admin role cannot be self-assigned")
	}
	if !models.IsValidRole(role) {
		return nil, nil, InvalidInput("INVALID_ROLE", "Role must be customer or provider")
	}

	name := in.Name
	if name == "" {
		name = in.Username
	}

	user, err := s.users.Create(ctx, NewUser{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
		Name:     name,
		Password: in.Password,
		Role:     role,
	})
	if err != nil {
		return nil, nil, err
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}

	verify, err := s.actions.Issue(ctx, user.ID, models.TokenVerifyEmail)
	if err != nil {
		log.Error().Err(err).Str("username", user.Username).Msg("Failed to issue verification token")
	} else {
		SendAsync(s.mailer, WelcomeEmail(user.Email, user.Name, s.baseURL, verify.ID))
	}

	log.Info().Str("username", user.Username).Str("role", user.Role).Msg("User signed up")
	return user, session, nil
}

// SignIn checks credentials. identifier matches the username or the email.
func (s *AuthService) SignIn(ctx context.Context, identifier, password string) (*models.User, *Session, error) {
	user, err := s.users.FindByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if IsKind(err, KindNotFound) {
			return nil, nil, Unauthorized("INVALID_CREDENTIALS", "Invalid credentials")
		}
		return nil, nil, err
	}
	if !user.IsActive || !CheckPassword(user, password) {
		return nil, nil, Unauthorized("INVALID_CREDENTIALS", "Invalid credentials")
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// SignOut deny-lists the session token until it would have expired anyway
func (s *AuthService) SignOut(ctx context.Context, claims *SessionClaims) error {
	ttl := time.Until(claims.ExpiresAt)
	return s.revoked.Revoke(ctx, claims.TokenID, ttl)
}

// Authenticate resolves verified claims to an active user. Every failure is
// the same opaque Unauthorized.
func (s *AuthService) Authenticate(ctx context.Context, claims *SessionClaims) (*models.User, error) {
	invalid := Unauthorized("INVALID_TOKEN", "Could not validate credentials")

	revoked, err := s.revoked.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, invalid
	}

	user, err := s.users.FindByUsername(ctx, claims.Username)
	if err != nil {
		if IsKind(err, KindNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, invalid
	}
	return user, nil
}

// VerifyEmail redeems a verify_email token
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	return s.actions.Redeem(ctx, token, models.TokenVerifyEmail, func(tx *gorm.DB, user *models.User) error {
		user.EmailVerified = true
		return tx.Model(user).Update("email_verified", true).Error
	})
}

// ResendVerification emails a new verification link to an unverified user
func (s *AuthService) ResendVerification(ctx context.Context, user *models.User) error {
	if user.EmailVerified {
		return Conflict("EMAIL_ALREADY_VERIFIED", "Email is already verified")
	}
	verify, err := s.actions.Issue(ctx, user.ID, models.TokenVerifyEmail)
	if err != nil {
		return err
	}
	SendAsync(s.mailer, WelcomeEmail(user.Email, user.Name, s.baseURL, verify.ID))
	return nil
}

// ChangePassword replaces the password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, current, next string) error {
	if !CheckPassword(user, current) {
		return Unauthorized("INVALID_PASSWORD", "Invalid current password")
	}
	return s.users.UpdatePassword(ctx, nil, user.ID, next)
}

// ForgotPassword issues a reset token and emails it
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}

	token, err := s.actions.Issue(ctx, user.ID, models.TokenResetPassword)
	if err != nil {
		return err
	}

	SendAsync(s.mailer, ResetPasswordEmail(user.Email, s.baseURL, token.ID))
	return nil
}

// ResetPassword redeems a reset_password token and stores the new password
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	_, err := s.actions.Redeem(ctx, token, models.TokenResetPassword, func(tx *gorm.DB, user *models.User) error {
		return s.users.UpdatePassword(ctx, tx, user.ID, password)
	})
	return err
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	token, expiresAt, err := s.tokens.IssueSession(user)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.Expiry().Seconds()),
		ExpiresAt:   expiresAt,
	}, nil
}
