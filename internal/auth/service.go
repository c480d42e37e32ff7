package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/user"
)

var (
	ErrMissingCredentials = apperror.Validation("Please provide email and password!")
	ErrInvalidCredentials = apperror.Authentication("Incorrect email or password")
	ErrWrongPassword      = apperror.Authentication("Your current password is wrong")
)

// SignupInput is the body accepted by Signup. Role is never taken from it.
type SignupInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// Session is an account together with a freshly issued token.
type Session struct {
	User  *user.User
	Token string
}

// Service handles authentication business logic
type Service struct {
	users  UserStore
	tokens TokenService
	mailer Mailer
	logger *logging.Logger
	now    func() time.Time
}

func NewService(users UserStore, tokens TokenService, mailer Mailer, logger *logging.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) issue(u *user.User) (*Session, error) {
	token, err := s.tokens.CreateToken(u.ID.Hex())
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &Session{User: u, Token: token}, nil
}

// Signup creates a regular user account and signs it in.
// The welcome email is best effort.
func (s *Service) Signup(ctx context.Context, in SignupInput, welcomeURL string) (*Session, error) {
	candidate := &user.User{Name: in.Name, Email: in.Email, Role: user.RoleUser}
	candidate.Normalize()
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateNewPassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	candidate.Password = hash

	created, err := s.users.Create(ctx, candidate)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendWelcome(ctx, created, welcomeURL); err != nil {
		s.logger.Error("failed to send welcome email", "user_id", created.ID.Hex(), "error", err.Error())
	}

	s.logger.Info("user signed up", "user_id", created.ID.Hex())
	return s.issue(created)
}

// Login checks the credentials of an active account.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	u, err := s.users.GetByEmailWithPassword(ctx, normalizeEmail(email))
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(password, u.Password) {
		return nil, ErrInvalidCredentials
	}

	u.Password = ""
	return s.issue(u)
}

// ForgotPassword stores a reset token for the account and mails its plaintext.
// When the email cannot be sent the token is cleared again.
func (s *Service) ForgotPassword(ctx context.Context, email string, resetURL func(token string) string) error {
	if email == "" {
		return apperror.Validation("Please provide your email address")
	}

	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return apperror.NotFound("There is no user with that email address.")
		}
		return err
	}

	token, err := GenerateResetToken(s.now())
	if err != nil {
		return apperror.Internal(err)
	}

	if err := s.users.SetResetToken(ctx, u.ID, token.Hash, &token.Expires); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, u, resetURL(token.Plain)); err != nil {
		if clearErr := s.users.SetResetToken(ctx, u.ID, "", nil); clearErr != nil {
			s.logger.Error("failed to clear reset token", "user_id", u.ID.Hex(), "error", clearErr.Error())
		}
		return apperror.Upstream("There was an error sending the email. Try again later!", err)
	}

	s.logger.Info("password reset token issued", "user_id", u.ID.Hex())
	return nil
}

// ResetPassword sets a new password using a reset token and signs the account in.
func (s *Service) ResetPassword(ctx context.Context, plain, password, confirm string) (*Session, error) {
	now := s.now()

	u, err := ConsumeResetToken(ctx, s.users, plain, now)
	if err != nil {
		return nil, err
	}

	if err := s.setPassword(ctx, u, password, confirm, now); err != nil {
		return nil, err
	}

	s.logger.Info("password reset", "user_id", u.ID.Hex())
	return s.issue(u)
}

// UpdatePassword changes the password of a signed-in account after
// re-checking the current one.
func (s *Service) UpdatePassword(ctx context.Context, current *user.User, currentPassword, password, confirm string) (*Session, error) {
	u, err := s.users.GetByIDWithPassword(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	if !VerifyPassword(currentPassword, u.Password) {
		return nil, ErrWrongPassword
	}

	if err := s.setPassword(ctx, u, password, confirm, s.now()); err != nil {
		return nil, err
	}

	s.logger.Info("password updated", "user_id", u.ID.Hex())
	return s.issue(u)
}

func (s *Service) setPassword(ctx context.Context, u *user.User, password, confirm string, now time.Time) error {
	if err := ValidateNewPassword(password, confirm); err != nil {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	MarkPasswordChanged(u, now)
	if err := s.users.UpdatePassword(ctx, u.ID, hash, u.PasswordChangedAt); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	u.Password = ""
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	return nil
}

func normalizeEmail(email string) string {
	u := user.User{Email: email}
	u.Normalize()
	return u.Email
}
