package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/osoo/membership-backend/internal/models"
)

const memberColumns = `
	id, name, email, phone, speciality, qualifications,
	document_type, document_no, document_image_url, document_public_id,
	agree_with_terms, terms_agreed_at,
	status, otp_verified, otp_hash, otp_expires_at,
	temp_password_hash, password_hash, unique_id,
	is_payment_done, payment_history,
	admin_notes, reviewed_at, reviewed_by,
	created_at, updated_at`

// MemberRepository handles member database operations
type MemberRepository struct {
	db DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Create inserts a new member record
func (r *MemberRepository) Create(member *models.Member) error {
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	now := time.Now()
	member.CreatedAt = now
	member.UpdatedAt = now
	member.Email = strings.ToLower(member.Email)

	query := `
		INSERT INTO members (
			id, name, email, phone, speciality, qualifications,
			document_type, document_no, document_image_url, document_public_id,
			agree_with_terms, terms_agreed_at,
			status, otp_verified, otp_hash, otp_expires_at,
			temp_password_hash, password_hash, unique_id,
			is_payment_done, payment_history,
			admin_notes, reviewed_at, reviewed_by,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12,
			$13, $14, $15, $16,
			$17, $18, $19,
			$20, $21,
			$22, $23, $24,
			$25, $26
		)
	`

	_, err := r.db.Exec(
		query,
		member.ID, member.Name, member.Email, member.Phone, member.Speciality, member.Qualifications,
		member.DocumentType, member.DocumentNo, member.DocumentImageURL, member.DocumentPublicID,
		member.AgreeWithTerms, member.TermsAgreedAt,
		member.Status, member.OTPVerified, member.OTPHash, member.OTPExpiresAt,
		member.TempPasswordHash, member.PasswordHash, member.UniqueID,
		member.IsPaymentDone, member.PaymentHistory,
		member.AdminNotes, member.ReviewedAt, member.ReviewedBy,
		member.CreatedAt, member.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}

// Update persists all mutable fields of a member record. Last write
// wins on concurrent updates of the same record.
func (r *MemberRepository) Update(member *models.Member) error {
	member.UpdatedAt = time.Now()

	query := `
		UPDATE members SET
			name = $2, phone = $3, speciality = $4, qualifications = $5,
			document_type = $6, document_no = $7,
			document_image_url = $8, document_public_id = $9,
			status = $10, otp_verified = $11, otp_hash = $12, otp_expires_at = $13,
			temp_password_hash = $14, password_hash = $15, unique_id = $16,
			is_payment_done = $17, payment_history = $18,
			admin_notes = $19, reviewed_at = $20, reviewed_by = $21,
			updated_at = $22
		WHERE id = $1
	`

	result, err := r.db.Exec(
		query,
		member.ID,
		member.Name, member.Phone, member.Speciality, member.Qualifications,
		member.DocumentType, member.DocumentNo,
		member.DocumentImageURL, member.DocumentPublicID,
		member.Status, member.OTPVerified, member.OTPHash, member.OTPExpiresAt,
		member.TempPasswordHash, member.PasswordHash, member.UniqueID,
		member.IsPaymentDone, member.PaymentHistory,
		member.AdminNotes, member.ReviewedAt, member.ReviewedBy,
		member.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("member %s not found", member.ID)
	}

	return nil
}

// Delete removes a member record
func (r *MemberRepository) Delete(id uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("member %s not found", id)
	}

	return nil
}

// GetByID retrieves a member by primary key. Returns (nil, nil) when no
// record exists.
func (r *MemberRepository) GetByID(id uuid.UUID) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`

	var member models.Member
	if err := r.db.Get(&member, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member by id: %w", err)
	}

	return &member, nil
}

// GetActiveByEmail retrieves the most recent non-rejected record for an
// email. Rejected records do not block re-registration. Returns
// (nil, nil) when no record exists.
func (r *MemberRepository) GetActiveByEmail(email string) (*models.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE email = $1 AND status != 'rejected'
		ORDER BY created_at DESC
		LIMIT 1
	`

	var member models.Member
	if err := r.db.Get(&member, query, strings.ToLower(email)); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member by email: %w", err)
	}

	return &member, nil
}

// GetByUniqueID retrieves a member by issued unique id regardless of
// status. Returns (nil, nil) when no record exists.
func (r *MemberRepository) GetByUniqueID(uniqueID string) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE unique_id = $1`

	var member models.Member
	if err := r.db.Get(&member, query, uniqueID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member by unique id: %w", err)
	}

	return &member, nil
}

// GetApprovedByUniqueID retrieves an approved member by unique id.
// Returns (nil, nil) when no approved record exists.
func (r *MemberRepository) GetApprovedByUniqueID(uniqueID string) (*models.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE unique_id = $1 AND status = 'approved'
	`

	var member models.Member
	if err := r.db.Get(&member, query, uniqueID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get approved member: %w", err)
	}

	return &member, nil
}

// List retrieves all members, newest first
func (r *MemberRepository) List() ([]*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY created_at DESC`

	var members []*models.Member
	if err := r.db.Select(&members, query); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	return members, nil
}

// ListPendingReview retrieves members awaiting an admin decision
// (pending status with a verified email)
func (r *MemberRepository) ListPendingReview() ([]*models.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE status = 'pending' AND otp_verified = true
		ORDER BY created_at ASC
	`

	var members []*models.Member
	if err := r.db.Select(&members, query); err != nil {
		return nil, fmt.Errorf("failed to list pending members: %w", err)
	}

	return members, nil
}
