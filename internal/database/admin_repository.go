package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/osoo/membership-backend/internal/models"
)

const adminColumns = `
	id, name, email, admin_id, password_hash,
	otp_hash, otp_expires_at, created_at, updated_at`

// AdminRepository handles admin database operations
type AdminRepository struct {
	db DB
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Create inserts a new admin record
func (r *AdminRepository) Create(admin *models.Admin) error {
	if admin.ID == uuid.Nil {
		admin.ID = uuid.New()
	}
	now := time.Now()
	admin.CreatedAt = now
	admin.UpdatedAt = now
	admin.Email = strings.ToLower(admin.Email)

	query := `
		INSERT INTO admins (
			id, name, email, admin_id, password_hash,
			otp_hash, otp_expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(
		query,
		admin.ID, admin.Name, admin.Email, admin.AdminID, admin.PasswordHash,
		admin.OTPHash, admin.OTPExpiresAt, admin.CreatedAt, admin.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	return nil
}

// Update persists all mutable fields of an admin record
func (r *AdminRepository) Update(admin *models.Admin) error {
	admin.UpdatedAt = time.Now()

	query := `
		UPDATE admins SET
			name = $2, email = $3, password_hash = $4,
			otp_hash = $5, otp_expires_at = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.Exec(
		query,
		admin.ID, admin.Name, admin.Email, admin.PasswordHash,
		admin.OTPHash, admin.OTPExpiresAt, admin.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update admin: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("admin %s not found", admin.ID)
	}

	return nil
}

// GetByID retrieves an admin by primary key. Returns (nil, nil) when no
// record exists.
func (r *AdminRepository) GetByID(id uuid.UUID) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`

	var admin models.Admin
	if err := r.db.Get(&admin, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get admin by id: %w", err)
	}

	return &admin, nil
}

// GetByAdminID retrieves an admin by login handle. Returns (nil, nil)
// when no record exists.
func (r *AdminRepository) GetByAdminID(adminID string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE admin_id = $1`

	var admin models.Admin
	if err := r.db.Get(&admin, query, adminID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get admin by admin id: %w", err)
	}

	return &admin, nil
}

// GetByEmail retrieves an admin by email. Returns (nil, nil) when no
// record exists.
func (r *AdminRepository) GetByEmail(email string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE email = $1`

	var admin models.Admin
	if err := r.db.Get(&admin, query, strings.ToLower(email)); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get admin by email: %w", err)
	}

	return &admin, nil
}
