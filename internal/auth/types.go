package auth

import "time"

// Roles form a small closed set; anything else is rejected at the gate.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the persisted account record. Token and expiry pairs are either
// both set or both nil; they are cleared together with the state change
// they gate.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
	IsVerified   bool

	VerificationToken        *string
	VerificationTokenExpires *time.Time
	ResetToken               *string
	ResetTokenExpires        *time.Time

	LastActive *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Projection is the non-sensitive user view returned to clients.
// The password hash never leaves this package.
type Projection struct {
	ID         int64  `json:"id"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email"`
	Role       string `json:"role,omitempty"`
	IsVerified bool   `json:"is_verified"`
}

// Project returns the client-safe view of u.
func (u *User) Project() Projection {
	return Projection{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		IsVerified: u.IsVerified,
	}
}

// Stats aggregates the admin dashboard counters.
type Stats struct {
	Users       int64 `json:"users"`
	Conversions int64 `json:"conversions"`
	Visits      int64 `json:"visits"`
	ActiveUsers int64 `json:"activeUsers"`
}

// ConversionLog is one row of the conversion activity feed. The conversion
// backend owns the table; this service only reads it for reporting.
type ConversionLog struct {
	ID                int64   `json:"id"`
	UserID            *int64  `json:"user_id"`
	UserEmail         *string `json:"user_email"`
	OriginalFileName  string  `json:"original_file_name"`
	ConvertedFileName string  `json:"converted_file_name"`
	ConversionType    string  `json:"conversion_type"`
	Status            string  `json:"status"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// ActiveUser is a user seen within the reporting activity window.
type ActiveUser struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	LastActive time.Time `json:"last_active"`
}

// MonthlyViews is one bucket of the trailing site-visit histogram.
type MonthlyViews struct {
	Month string `json:"month"`
	Views int64  `json:"views"`
}
