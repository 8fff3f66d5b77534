package auth

import (
	"context"
	"time"
)

// UserStore describes the persistence operations the auth service issues
// against the credential store.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id int64) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)

	// UserByResetToken matches on the token alone; expiry is checked by the
	// caller so an expired token can be reported distinctly.
	UserByResetToken(ctx context.Context, token string) (*User, error)

	SetVerificationToken(ctx context.Context, userID int64, token string, expires time.Time) error
	// MarkVerified flips is_verified and clears the verification token in one
	// statement, gated on the token being present and unexpired. Returns
	// ErrInvalidToken when no row matches.
	MarkVerified(ctx context.Context, token string) error

	SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error
	// ResetPassword stores the new hash and clears the reset token pair in a
	// single transaction.
	ResetPassword(ctx context.Context, userID int64, passwordHash string) error

	UpdateName(ctx context.Context, userID int64, name string) (*User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error

	TouchLastActive(ctx context.Context, userID int64) error
	RecordVisit(ctx context.Context) error
}

// ReportStore serves the read-only admin aggregation queries.
type ReportStore interface {
	Stats(ctx context.Context, activeWindow time.Duration) (Stats, error)
	RecentConversions(ctx context.Context, limit int) ([]ConversionLog, error)
	ActiveUsers(ctx context.Context, window time.Duration) ([]ActiveUser, error)
	MonthlySiteViews(ctx context.Context, months int) ([]MonthlyViews, error)
}
