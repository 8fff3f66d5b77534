package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultVerificationTTL = 24 * time.Hour
	defaultResetTTL        = time.Hour
	minPasswordLength      = 8
)

// Mailer fans out the account emails. Sends are fire-and-forget from the
// service's perspective: errors are surfaced to the caller but never retried,
// and a failed send does not roll back the store write that preceded it.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string) error
	SendPasswordReset(ctx context.Context, to, link string) error
	SendPasswordChanged(ctx context.Context, to string) error
}

// Service owns the registration, login, verification, and password reset
// rules. It is the sole writer of user credential state.
type Service struct {
	store  UserStore
	mailer Mailer
	tokens *Issuer

	now             func() time.Time
	verificationTTL time.Duration
	resetTTL        time.Duration
	frontendURL     string
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithVerificationTTL overrides the verification token lifetime.
func WithVerificationTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.verificationTTL = ttl
		}
	}
}

// WithResetTTL overrides the reset token lifetime.
func WithResetTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// WithFrontendURL sets the base URL embedded in emailed links.
func WithFrontendURL(u string) Option {
	return func(s *Service) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			s.frontendURL = u
		}
	}
}

// NewService constructs the auth service.
func NewService(store UserStore, tokens *Issuer, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		store:           store,
		mailer:          mailer,
		tokens:          tokens,
		now:             time.Now,
		verificationTTL: defaultVerificationTTL,
		resetTTL:        defaultResetTTL,
		frontendURL:     "http://localhost:3000",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an unverified account and mails a verification link.
// The user row commits before the mail goes out; a failed send surfaces as
// an error on this request but leaves the row in place.
func (s *Service) Register(ctx context.Context, name, email, password string) (Projection, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return Projection{}, ErrInvalidInput
	}
	if len(password) < minPasswordLength {
		return Projection{}, ErrWeakPassword
	}

	switch _, err := s.store.UserByEmail(ctx, email); {
	case err == nil:
		return Projection{}, ErrEmailTaken
	case !errors.Is(err, ErrNotFound):
		return Projection{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Projection{}, err
	}
	token, err := newSecretToken()
	if err != nil {
		return Projection{}, err
	}
	expires := s.now().Add(s.verificationTTL)

	u := &User{
		Name:                     name,
		Email:                    email,
		PasswordHash:             hash,
		Role:                     RoleUser,
		VerificationToken:        &token,
		VerificationTokenExpires: &expires,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return Projection{}, err
	}

	if err := s.mailer.SendVerification(ctx, email, token); err != nil {
		return Projection{}, fmt.Errorf("send verification email: %w", err)
	}
	return u.Project(), nil
}

// Login authenticates credentials and issues a session token. Unknown email
// and wrong password are indistinguishable to the caller. An unverified
// account gets a fresh verification token and email instead of a session;
// the user is returned alongside ErrNotVerified so the client can prompt
// for re-verification.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, ErrInvalidInput
	}

	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if !u.IsVerified {
		token, err := newSecretToken()
		if err != nil {
			return "", nil, err
		}
		expires := s.now().Add(s.verificationTTL)
		if err := s.store.SetVerificationToken(ctx, u.ID, token, expires); err != nil {
			return "", nil, err
		}
		if err := s.mailer.SendVerification(ctx, u.Email, token); err != nil {
			return "", nil, fmt.Errorf("send verification email: %w", err)
		}
		return "", u, ErrNotVerified
	}

	if err := s.store.TouchLastActive(ctx, u.ID); err != nil {
		return "", nil, err
	}
	if err := s.store.RecordVisit(ctx); err != nil {
		return "", nil, err
	}

	session, _, err := s.tokens.Issue(u)
	if err != nil {
		return "", nil, err
	}
	return session, u, nil
}

// ForgotPassword sets a reset token and mails a reset link. A missing
// account is not an error: the caller gets the same acknowledgement either
// way so addresses cannot be enumerated.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrInvalidInput
	}

	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := newSecretToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(s.resetTTL)
	if err := s.store.SetResetToken(ctx, u.ID, token, expires); err != nil {
		return err
	}

	link := s.frontendURL + "/reset-password?token=" + token + "&isPopup=true"
	if err := s.mailer.SendPasswordReset(ctx, u.Email, link); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// VerifyResetToken reports whether a reset token is usable. A token that
// never existed and one already consumed both come back ErrInvalidToken;
// a matching token past its expiry comes back ErrTokenExpired.
func (s *Service) VerifyResetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidInput
	}
	_, err := s.lookupResetToken(ctx, token)
	return err
}

// ResetPassword consumes a reset token and stores a new password hash. The
// hash update and token clear commit in one transaction; the notification
// mail goes out only after that commit.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return ErrInvalidInput
	}
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	u, err := s.lookupResetToken(ctx, token)
	if err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.ResetPassword(ctx, u.ID, hash); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordChanged(ctx, u.Email); err != nil {
		return fmt.Errorf("send password changed email: %w", err)
	}
	return nil
}

// VerifyEmail consumes a verification token, flipping is_verified in the
// same statement that clears the token. Tokens are single-use.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidInput
	}
	return s.store.MarkVerified(ctx, token)
}

// ResolveToken verifies a session token and re-resolves the subject against
// the store, so role and verification changes apply without waiting for the
// token to expire. last_active is bumped as a side effect.
func (s *Service) ResolveToken(ctx context.Context, raw string) (*User, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.store.UserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchLastActive(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// Ping bumps last_active for the token's subject. It decodes the token only,
// skipping the store resolution ResolveToken pays for; a deleted user's ping
// is a harmless no-op update.
func (s *Service) Ping(ctx context.Context, raw string) error {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return err
	}
	return s.store.TouchLastActive(ctx, claims.UserID)
}

// UpdateProfile renames the account.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, name string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	return s.store.UpdateName(ctx, userID, name)
}

// ChangePassword re-verifies the current password before storing a new hash,
// then sends the change notification.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if current == "" || next == "" {
		return ErrInvalidInput
	}
	if len(next) < minPasswordLength {
		return ErrWeakPassword
	}

	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(u.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordChanged(ctx, u.Email); err != nil {
		return fmt.Errorf("send password changed email: %w", err)
	}
	return nil
}

func (s *Service) lookupResetToken(ctx context.Context, token string) (*User, error) {
	u, err := s.store.UserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if u.ResetTokenExpires == nil || !u.ResetTokenExpires.After(s.now()) {
		return nil, ErrTokenExpired
	}
	return u, nil
}

// NormalizeEmail lowercases and trims an address; every comparison and every
// stored email goes through this first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newSecretToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
