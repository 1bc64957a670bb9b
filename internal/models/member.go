package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Member lifecycle statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Payment represents one entry of a member's payment history
type Payment struct {
	PaymentID string    `json:"payment_id"`
	Date      time.Time `json:"date"`
	Amount    float64   `json:"amount"`
}

// PaymentHistory is stored as a JSONB column
type PaymentHistory []Payment

// Value implements the driver.Valuer interface
func (p PaymentHistory) Value() (driver.Value, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface
func (p *PaymentHistory) Scan(src interface{}) error {
	if src == nil {
		*p = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type %T for PaymentHistory", src)
	}
	return json.Unmarshal(b, p)
}

// Member represents one registrant of the society, keyed by email while
// pending and by unique_id once approved.
type Member struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Email string    `json:"email" db:"email"`
	Phone string    `json:"phone" db:"phone"`

	Speciality     string         `json:"speciality" db:"speciality"`
	Qualifications pq.StringArray `json:"qualifications" db:"qualifications"`

	DocumentType     string `json:"document_type" db:"document_type"`
	DocumentNo       string `json:"document_no" db:"document_no"`
	DocumentImageURL string `json:"document_image_url" db:"document_image_url"`
	DocumentPublicID string `json:"-" db:"document_public_id"`

	AgreeWithTerms bool      `json:"agree_with_terms" db:"agree_with_terms"`
	TermsAgreedAt  time.Time `json:"terms_agreed_at" db:"terms_agreed_at"`

	Status      string `json:"status" db:"status"`
	OTPVerified bool   `json:"otp_verified" db:"otp_verified"`

	// Credential material. Hashes are never exposed in JSON.
	OTPHash          NullString `json:"-" db:"otp_hash"`
	OTPExpiresAt     NullTime   `json:"-" db:"otp_expires_at"`
	TempPasswordHash NullString `json:"-" db:"temp_password_hash"`
	PasswordHash     NullString `json:"-" db:"password_hash"`

	UniqueID NullString `json:"unique_id,omitempty" db:"unique_id"`

	IsPaymentDone  bool           `json:"is_payment_done" db:"is_payment_done"`
	PaymentHistory PaymentHistory `json:"payment_history" db:"payment_history"`

	AdminNotes NullString `json:"admin_notes,omitempty" db:"admin_notes"`
	ReviewedAt NullTime   `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewedBy NullString `json:"reviewed_by,omitempty" db:"reviewed_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasOTP reports whether an OTP pair is currently stored.
// otp_hash and otp_expires_at are set and cleared together.
func (m *Member) HasOTP() bool {
	return m.OTPHash.Valid && m.OTPExpiresAt.Valid
}

// ClearOTP removes the stored OTP pair
func (m *Member) ClearOTP() {
	m.OTPHash = NullString{}
	m.OTPExpiresAt = NullTime{}
}

// MemberSummary is the safe projection returned to admin listings and
// review responses
type MemberSummary struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Status        string     `json:"status"`
	OTPVerified   bool       `json:"otp_verified"`
	UniqueID      NullString `json:"unique_id,omitempty"`
	IsPaymentDone bool       `json:"is_payment_done"`
	ReviewedAt    NullTime   `json:"reviewed_at,omitempty"`
	ReviewedBy    NullString `json:"reviewed_by,omitempty"`
}

// Summary returns the safe projection of a member
func (m *Member) Summary() MemberSummary {
	return MemberSummary{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		Phone:         m.Phone,
		Status:        m.Status,
		OTPVerified:   m.OTPVerified,
		UniqueID:      m.UniqueID,
		IsPaymentDone: m.IsPaymentDone,
		ReviewedAt:    m.ReviewedAt,
		ReviewedBy:    m.ReviewedBy,
	}
}
