package types

import "time"

// User represents a staff account in the system.
// It carries identity, authorization, and email-verification state.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id" db:"id"`

	// Email is the unique login email. It is the lookup key for the
	// whole verification flow.
	Email string `json:"email" db:"email"`

	// FullName is the user's display name.
	FullName string `json:"fullName" db:"full_name"`

	// Role indicates the user's role within the hospital
	// (ADMIN, DOCTOR, RECEPTIONIST, or LAB).
	Role Role `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// IsActive marks whether the account may log in. Deactivation is an
	// administrative action; the auth flow only reads it.
	IsActive bool `json:"isActive" db:"is_active"`

	// IsVerified marks whether the account's email has been confirmed
	// via OTP. Unverified accounts cannot log in.
	IsVerified bool `json:"isVerified" db:"is_verified"`

	// OTP is the outstanding verification code, if any. It is always
	// set or cleared together with OTPExpiresAt, and both are null on
	// a verified account. Never exposed in API responses.
	OTP *string `json:"-" db:"otp"`

	// OTPExpiresAt is the absolute expiry instant of the outstanding
	// verification code, if any.
	OTPExpiresAt *time.Time `json:"-" db:"otp_expires_at"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent account update.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// PublicUser is the subset of account fields safe to return to clients.
type PublicUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"fullName"`
	Role       Role   `json:"role"`
	IsVerified bool   `json:"isVerified"`
}

// Public strips the credential and challenge fields from a user.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       u.Role,
		IsVerified: u.IsVerified,
	}
}

// Doctor is the profile record associated with a DOCTOR user.
// It is created best-effort at registration and backfilled lazily by
// the doctors listing.
type Doctor struct {
	// ID is the unique identifier of the doctor profile.
	ID string `json:"id" db:"id"`

	// UserID references the owning user account.
	UserID string `json:"userId" db:"user_id"`

	// Specialty is the doctor's medical specialty, free-form.
	Specialty string `json:"specialty" db:"specialty"`

	// Notes holds additional free-form profile text.
	Notes string `json:"notes" db:"notes"`

	// FullName and Email mirror the owning user's display fields when
	// the profile is loaded with its user joined in.
	FullName string `json:"fullName,omitempty" db:"full_name"`
	Email    string `json:"email,omitempty" db:"email"`

	// CreatedAt is the timestamp when the profile was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
