package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin represents a staff operator who reviews member registrations
type Admin struct {
	ID      uuid.UUID `json:"id" db:"id"`
	Name    string    `json:"name" db:"name"`
	Email   string    `json:"email" db:"email"`
	AdminID string    `json:"admin_id" db:"admin_id"`

	PasswordHash string     `json:"-" db:"password_hash"`
	OTPHash      NullString `json:"-" db:"otp_hash"`
	OTPExpiresAt NullTime   `json:"-" db:"otp_expires_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasOTP reports whether an OTP pair is currently stored
func (a *Admin) HasOTP() bool {
	return a.OTPHash.Valid && a.OTPExpiresAt.Valid
}

// ClearOTP removes the stored OTP pair
func (a *Admin) ClearOTP() {
	a.OTPHash = NullString{}
	a.OTPExpiresAt = NullTime{}
}

// AdminSessionResponse is returned after a successful admin OTP verification
type AdminSessionResponse struct {
	Admin     *Admin `json:"admin"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in_seconds"`
}
