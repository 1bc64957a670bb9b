package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/osoo/membership-backend/internal/models"
	"github.com/osoo/membership-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// AdminStore is the persistence capability the admin auth flow depends
// on. Lookup methods return (nil, nil) when no record matches.
type AdminStore interface {
	Create(admin *models.Admin) error
	Update(admin *models.Admin) error
	GetByID(id uuid.UUID) (*models.Admin, error)
	GetByAdminID(adminID string) (*models.Admin, error)
	GetByEmail(email string) (*models.Admin, error)
}

// AdminMailer delivers the admin OTP template
type AdminMailer interface {
	SendAdminOTP(to, otp string) error
}

// AdminAuthConfig holds tunables for admin authentication
type AdminAuthConfig struct {
	OTPExpiry  time.Duration
	BcryptCost int
}

// AdminAuthService handles admin login with an OTP second factor and
// session token issuance
type AdminAuthService struct {
	store      AdminStore
	mailer     AdminMailer
	jwtService *jwt.Service
	cfg        AdminAuthConfig
}

// NewAdminAuthService creates a new admin auth service
func NewAdminAuthService(store AdminStore, mailer AdminMailer, jwtService *jwt.Service, cfg AdminAuthConfig) *AdminAuthService {
	if cfg.OTPExpiry == 0 {
		cfg.OTPExpiry = 5 * time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AdminAuthService{
		store:      store,
		mailer:     mailer,
		jwtService: jwtService,
		cfg:        cfg,
	}
}

// CreateAdmin provisions a new admin account
func (s *AdminAuthService) CreateAdmin(name, email, adminID, password string) (*models.Admin, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" ||
		strings.TrimSpace(adminID) == "" || password == "" {
		return nil, fmt.Errorf("%w: all fields are required", ErrValidation)
	}

	existing, err := s.store.GetByAdminID(adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: admin id %q is already in use", ErrConflict, adminID)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Admin{
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		AdminID:      strings.TrimSpace(adminID),
		PasswordHash: string(hash),
	}

	if err := s.store.Create(admin); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	return admin, nil
}

// Login verifies the admin password and dispatches an OTP to the
// admin's registered email. A dispatch failure fails the call but the
// stored OTP pair is kept.
func (s *AdminAuthService) Login(adminID, password string) error {
	if adminID == "" || password == "" {
		return fmt.Errorf("%w: admin id and password are required", ErrValidation)
	}

	admin, err := s.store.GetByAdminID(adminID)
	if err != nil {
		return fmt.Errorf("failed to look up admin: %w", err)
	}
	if admin == nil {
		return fmt.Errorf("%w: admin not found", ErrNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return fmt.Errorf("%w: invalid password", ErrUnauthorized)
	}

	otp, err := GenerateOTP()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(otp), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash OTP: %w", err)
	}

	admin.OTPHash = models.NewNullString(string(hash))
	admin.OTPExpiresAt = models.NewNullTime(time.Now().Add(s.cfg.OTPExpiry))
	if err := s.store.Update(admin); err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	if err := s.mailer.SendAdminOTP(admin.Email, otp); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	return nil
}

// VerifyOTP checks the second factor and issues a session token
func (s *AdminAuthService) VerifyOTP(adminID, otp string) (*models.AdminSessionResponse, error) {
	if adminID == "" || otp == "" {
		return nil, fmt.Errorf("%w: admin id and OTP are required", ErrValidation)
	}

	admin, err := s.store.GetByAdminID(adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}
	if admin == nil {
		return nil, fmt.Errorf("%w: admin not found", ErrNotFound)
	}

	if !admin.HasOTP() {
		return nil, fmt.Errorf("%w: no OTP was requested, log in again", ErrInvalidState)
	}

	if time.Now().After(admin.OTPExpiresAt.Time) {
		admin.ClearOTP()
		if err := s.store.Update(admin); err != nil {
			return nil, fmt.Errorf("failed to clear expired OTP: %w", err)
		}
		return nil, ErrOTPExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.OTPHash.String), []byte(otp)); err != nil {
		return nil, fmt.Errorf("%w: invalid OTP", ErrUnauthorized)
	}

	token, expiresIn, err := s.jwtService.GenerateSessionToken(admin.ID, admin.AdminID, admin.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	admin.ClearOTP()
	if err := s.store.Update(admin); err != nil {
		return nil, fmt.Errorf("failed to clear OTP: %w", err)
	}

	return &models.AdminSessionResponse{
		Admin:     admin,
		Token:     token,
		ExpiresIn: expiresIn,
	}, nil
}

// GetProfile retrieves an admin by id
func (s *AdminAuthService) GetProfile(id uuid.UUID) (*models.Admin, error) {
	admin, err := s.store.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}
	if admin == nil {
		return nil, fmt.Errorf("%w: admin not found", ErrNotFound)
	}
	return admin, nil
}

// UpdateProfile updates the admin's name and/or email. A changed email
// must not collide with another admin's.
func (s *AdminAuthService) UpdateProfile(id uuid.UUID, name, email string) (*models.Admin, error) {
	admin, err := s.store.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}
	if admin == nil {
		return nil, fmt.Errorf("%w: admin not found", ErrNotFound)
	}

	if email != "" {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != admin.Email {
			other, err := s.store.GetByEmail(email)
			if err != nil {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			if other != nil && other.ID != admin.ID {
				return nil, fmt.Errorf("%w: email is already in use", ErrConflict)
			}
			admin.Email = email
		}
	}
	if strings.TrimSpace(name) != "" {
		admin.Name = strings.TrimSpace(name)
	}

	if err := s.store.Update(admin); err != nil {
		return nil, fmt.Errorf("failed to update admin: %w", err)
	}

	return admin, nil
}

// ChangePassword replaces the admin's password after verifying the
// current one
func (s *AdminAuthService) ChangePassword(id uuid.UUID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: all password fields are required", ErrValidation)
	}
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters long", ErrValidation)
	}

	admin, err := s.store.GetByID(id)
	if err != nil {
		return fmt.Errorf("failed to look up admin: %w", err)
	}
	if admin == nil {
		return fmt.Errorf("%w: admin not found", ErrNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(currentPassword)); err != nil {
		return fmt.Errorf("%w: current password is incorrect", ErrUnauthorized)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin.PasswordHash = string(hash)
	if err := s.store.Update(admin); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}
