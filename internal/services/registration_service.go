package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/osoo/membership-backend/internal/models"
	"github.com/osoo/membership-backend/pkg/storage"
	"github.com/osoo/membership-backend/pkg/validator"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var phoneValidator = validator.NewPhoneValidator()

// MemberStore is the persistence capability the registration flow
// depends on. Lookup methods return (nil, nil) when no record matches.
type MemberStore interface {
	Create(member *models.Member) error
	Update(member *models.Member) error
	Delete(id uuid.UUID) error
	GetByID(id uuid.UUID) (*models.Member, error)
	GetActiveByEmail(email string) (*models.Member, error)
	GetByUniqueID(uniqueID string) (*models.Member, error)
	GetApprovedByUniqueID(uniqueID string) (*models.Member, error)
	List() ([]*models.Member, error)
	ListPendingReview() ([]*models.Member, error)
}

// MemberMailer delivers the member-facing notification templates
type MemberMailer interface {
	SendMemberOTP(to, name, otp string) error
	SendReviewPending(to, name string) error
	SendApprovalCredentials(to, name, uniqueID, tempPassword string) error
	SendRejection(to, name, notes string) error
	SendPasswordChanged(to, name string) error
}

// Uploader stores a document binary and returns a stable URL plus a
// deletable reference
type Uploader interface {
	Upload(ctx context.Context, filename string, content io.Reader) (*storage.UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}

// RegistrationConfig holds tunables for the registration flow
type RegistrationConfig struct {
	OTPExpiry  time.Duration
	BcryptCost int
}

// RegistrationService orchestrates the member lifecycle:
// pending-unverified -> pending-review -> approved | rejected.
type RegistrationService struct {
	store    MemberStore
	mailer   MemberMailer
	uploader Uploader
	cfg      RegistrationConfig
	logger   *logrus.Logger
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(
	store MemberStore,
	mailer MemberMailer,
	uploader Uploader,
	cfg RegistrationConfig,
	logger *logrus.Logger,
) *RegistrationService {
	if cfg.OTPExpiry == 0 {
		cfg.OTPExpiry = 10 * time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RegistrationService{
		store:    store,
		mailer:   mailer,
		uploader: uploader,
		cfg:      cfg,
		logger:   logger,
	}
}

// RegisterInput carries a registration submission. All fields are
// required; Qualifications must contain at least one entry.
type RegisterInput struct {
	Name           string
	Email          string
	Phone          string
	Speciality     string
	Qualifications []string
	DocumentType   string
	DocumentNo     string
	AgreeWithTerms bool

	DocumentFileName string
	Document         io.Reader
}

func (in *RegisterInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "",
		strings.TrimSpace(in.Email) == "",
		strings.TrimSpace(in.Phone) == "",
		strings.TrimSpace(in.Speciality) == "",
		strings.TrimSpace(in.DocumentType) == "",
		strings.TrimSpace(in.DocumentNo) == "":
		return fmt.Errorf("%w: all fields are required", ErrValidation)
	case len(in.Qualifications) == 0:
		return fmt.Errorf("%w: at least one qualification is required", ErrValidation)
	case !in.AgreeWithTerms:
		return fmt.Errorf("%w: terms agreement is required", ErrValidation)
	case in.Document == nil:
		return fmt.Errorf("%w: document image is required", ErrValidation)
	}
	if _, err := phoneValidator.Validate(in.Phone); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// Register handles a registration submission. An unverified pending
// record for the same email is treated as a resend; a verified or
// approved one rejects the submission. A rejected record never blocks
// re-registration.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))

	existing, err := s.store.GetActiveByEmail(email)
	if err != nil {
		return "", fmt.Errorf("failed to look up member: %w", err)
	}

	if existing != nil {
		if existing.Status == models.StatusApproved {
			return "", fmt.Errorf("%w: member is already registered and approved", ErrConflict)
		}
		if existing.OTPVerified {
			return "", fmt.Errorf("%w: registration is awaiting admin approval", ErrConflict)
		}
		// Resend path: refresh the OTP pair only, everything else on the
		// record stays untouched.
		if err := s.issueOTP(existing); err != nil {
			return "", err
		}
		return existing.Email, nil
	}

	upload, err := s.uploader.Upload(ctx, in.DocumentFileName, in.Document)
	if err != nil {
		return "", fmt.Errorf("failed to upload document: %w", err)
	}

	member := &models.Member{
		Name:             strings.TrimSpace(in.Name),
		Email:            email,
		Phone:            phoneValidator.Sanitize(strings.TrimSpace(in.Phone)),
		Speciality:       in.Speciality,
		Qualifications:   in.Qualifications,
		DocumentType:     in.DocumentType,
		DocumentNo:       in.DocumentNo,
		DocumentImageURL: upload.URL,
		DocumentPublicID: upload.PublicID,
		AgreeWithTerms:   true,
		TermsAgreedAt:    time.Now(),
		Status:           models.StatusPending,
		OTPVerified:      false,
		PaymentHistory:   models.PaymentHistory{},
	}

	otp, err := s.stampOTP(member)
	if err != nil {
		return "", err
	}

	if err := s.store.Create(member); err != nil {
		// The uploaded document is orphaned here; cleanup is best-effort
		// elsewhere and must not mask the store failure.
		s.logger.WithError(err).WithField("public_id", upload.PublicID).
			Error("member create failed after document upload")
		return "", fmt.Errorf("failed to create member: %w", err)
	}

	if err := s.mailer.SendMemberOTP(member.Email, member.Name, otp); err != nil {
		// The record stays pending-unverified and is eligible for resend.
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	return member.Email, nil
}

// ResendOTP issues a fresh OTP for an unverified pending registration
func (s *RegistrationService) ResendOTP(email string) error {
	member, err := s.store.GetActiveByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("failed to look up member: %w", err)
	}
	if member == nil || member.Status != models.StatusPending || member.OTPVerified {
		return fmt.Errorf("%w: no unverified registration for this email", ErrNotFound)
	}

	return s.issueOTP(member)
}

// VerifyOTP proves control of the registration email and moves the
// record to pending-review
func (s *RegistrationService) VerifyOTP(email, otp string) (*models.Member, error) {
	if email == "" || otp == "" {
		return nil, fmt.Errorf("%w: email and OTP are required", ErrValidation)
	}

	member, err := s.store.GetActiveByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to look up member: %w", err)
	}
	if member == nil || member.Status != models.StatusPending || member.OTPVerified {
		return nil, fmt.Errorf("%w: no pending registration for this email", ErrNotFound)
	}

	if !member.HasOTP() {
		return nil, fmt.Errorf("%w: no OTP was issued, request a new one", ErrInvalidState)
	}

	if time.Now().After(member.OTPExpiresAt.Time) {
		member.ClearOTP()
		if err := s.store.Update(member); err != nil {
			return nil, fmt.Errorf("failed to clear expired OTP: %w", err)
		}
		return nil, ErrOTPExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.OTPHash.String), []byte(otp)); err != nil {
		return nil, fmt.Errorf("%w: invalid OTP", ErrUnauthorized)
	}

	member.ClearOTP()
	member.OTPVerified = true
	if err := s.store.Update(member); err != nil {
		return nil, fmt.Errorf("failed to mark OTP verified: %w", err)
	}

	// Best-effort: a failed "submitted for review" notification does
	// not undo the verification.
	if err := s.mailer.SendReviewPending(member.Email, member.Name); err != nil {
		s.logger.WithError(err).WithField("email", member.Email).
			Warn("failed to send review-pending notification")
	}

	return member, nil
}

// Approve issues the admin-supplied unique id and a temporary
// credential, moving the record to approved
func (s *RegistrationService) Approve(id uuid.UUID, uniqueID, notes, reviewedBy string) (*models.Member, error) {
	uniqueID = strings.TrimSpace(uniqueID)
	if uniqueID == "" {
		return nil, fmt.Errorf("%w: unique member id is required", ErrValidation)
	}

	member, err := s.store.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up member: %w", err)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: member not found", ErrNotFound)
	}
	if member.Status == models.StatusApproved {
		return nil, fmt.Errorf("%w: member is already approved", ErrInvalidState)
	}

	holder, err := s.store.GetByUniqueID(uniqueID)
	if err != nil {
		return nil, fmt.Errorf("failed to check unique id: %w", err)
	}
	if holder != nil && holder.ID != member.ID {
		return nil, fmt.Errorf("%w: unique id %q is already in use", ErrConflict, uniqueID)
	}

	tempPassword, err := GenerateTempPassword()
	if err != nil {
		return nil, err
	}
	tempHash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash temporary password: %w", err)
	}

	member.Status = models.StatusApproved
	member.OTPVerified = true
	member.UniqueID = models.NewNullString(uniqueID)
	member.TempPasswordHash = models.NewNullString(string(tempHash))
	member.PasswordHash = models.NullString{}
	member.ReviewedAt = models.NewNullTime(time.Now())
	member.ReviewedBy = models.NewNullString(reviewedBy)
	if notes != "" {
		member.AdminNotes = models.NewNullString(notes)
	}

	if err := s.store.Update(member); err != nil {
		return nil, fmt.Errorf("failed to approve member: %w", err)
	}

	// Best-effort: the approval stands even if the credentials email
	// cannot be delivered. This is the only transmission of the
	// temporary password.
	if err := s.mailer.SendApprovalCredentials(member.Email, member.Name, uniqueID, tempPassword); err != nil {
		s.logger.WithError(err).WithField("email", member.Email).
			Error("failed to send approval credentials email")
	}

	return member, nil
}

// Reject records an admin rejection with mandatory notes
func (s *RegistrationService) Reject(id uuid.UUID, notes, reviewedBy string) (*models.Member, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, fmt.Errorf("%w: rejection notes are required", ErrValidation)
	}

	member, err := s.store.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up member: %w", err)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: member not found", ErrNotFound)
	}
	if member.Status == models.StatusRejected {
		return nil, fmt.Errorf("%w: member is already rejected", ErrInvalidState)
	}

	member.Status = models.StatusRejected
	member.AdminNotes = models.NewNullString(notes)
	member.ReviewedAt = models.NewNullTime(time.Now())
	member.ReviewedBy = models.NewNullString(reviewedBy)

	if err := s.store.Update(member); err != nil {
		return nil, fmt.Errorf("failed to reject member: %w", err)
	}

	if err := s.mailer.SendRejection(member.Email, member.Name, notes); err != nil {
		s.logger.WithError(err).WithField("email", member.Email).
			Warn("failed to send rejection notification")
	}

	return member, nil
}

// Login authenticates an approved member. The temporary hash is checked
// before the permanent one; a temporary match flags that a password
// change is required.
func (s *RegistrationService) Login(uniqueID, password string) (*models.Member, bool, error) {
	if uniqueID == "" || password == "" {
		return nil, false, fmt.Errorf("%w: unique id and password are required", ErrValidation)
	}

	member, err := s.store.GetApprovedByUniqueID(uniqueID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up member: %w", err)
	}
	if member == nil {
		return nil, false, fmt.Errorf("%w: member not found or not approved", ErrNotFound)
	}

	if member.TempPasswordHash.Valid {
		if bcrypt.CompareHashAndPassword([]byte(member.TempPasswordHash.String), []byte(password)) == nil {
			return member, true, nil
		}
	}

	if member.PasswordHash.Valid {
		if bcrypt.CompareHashAndPassword([]byte(member.PasswordHash.String), []byte(password)) == nil {
			return member, false, nil
		}
	}

	return nil, false, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
}

// ChangePassword exchanges the current credential for a member-chosen
// permanent one, clearing any temporary hash
func (s *RegistrationService) ChangePassword(uniqueID, currentPassword, newPassword string) error {
	if uniqueID == "" || currentPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: all fields are required", ErrValidation)
	}

	member, err := s.store.GetApprovedByUniqueID(uniqueID)
	if err != nil {
		return fmt.Errorf("failed to look up member: %w", err)
	}
	if member == nil {
		return fmt.Errorf("%w: member not found or not approved", ErrNotFound)
	}

	valid := false
	if member.TempPasswordHash.Valid {
		valid = bcrypt.CompareHashAndPassword([]byte(member.TempPasswordHash.String), []byte(currentPassword)) == nil
	}
	if !valid && member.PasswordHash.Valid {
		valid = bcrypt.CompareHashAndPassword([]byte(member.PasswordHash.String), []byte(currentPassword)) == nil
	}
	if !valid {
		return fmt.Errorf("%w: current password is incorrect", ErrUnauthorized)
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	member.PasswordHash = models.NewNullString(string(newHash))
	member.TempPasswordHash = models.NullString{}

	if err := s.store.Update(member); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.mailer.SendPasswordChanged(member.Email, member.Name); err != nil {
		s.logger.WithError(err).WithField("email", member.Email).
			Warn("failed to send password-changed notification")
	}

	return nil
}

// GetProfile retrieves an approved member by unique id
func (s *RegistrationService) GetProfile(uniqueID string) (*models.Member, error) {
	member, err := s.store.GetApprovedByUniqueID(uniqueID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up member: %w", err)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: member not found", ErrNotFound)
	}
	return member, nil
}

// ProfileUpdate carries the member-editable profile fields. Nil fields
// are left unchanged; identity, credential and lifecycle fields are
// never updatable through this path.
type ProfileUpdate struct {
	Name           *string
	Phone          *string
	Speciality     *string
	Qualifications []string
}

// UpdateProfile applies a partial profile update to an approved member
func (s *RegistrationService) UpdateProfile(uniqueID string, update ProfileUpdate) (*models.Member, error) {
	member, err := s.store.GetApprovedByUniqueID(uniqueID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up member: %w", err)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: member not found", ErrNotFound)
	}

	if update.Name != nil && strings.TrimSpace(*update.Name) != "" {
		member.Name = strings.TrimSpace(*update.Name)
	}
	if update.Phone != nil && strings.TrimSpace(*update.Phone) != "" {
		sanitized, err := phoneValidator.Validate(*update.Phone)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		member.Phone = sanitized
	}
	if update.Speciality != nil && *update.Speciality != "" {
		member.Speciality = *update.Speciality
	}
	if len(update.Qualifications) > 0 {
		member.Qualifications = update.Qualifications
	}

	if err := s.store.Update(member); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return member, nil
}

// ListMembers retrieves all member records
func (s *RegistrationService) ListMembers() ([]*models.Member, error) {
	return s.store.List()
}

// ListPendingReview retrieves members awaiting an admin decision
func (s *RegistrationService) ListPendingReview() ([]*models.Member, error) {
	return s.store.ListPendingReview()
}

// TogglePayment flips or sets the payment flag on a member record
func (s *RegistrationService) TogglePayment(id uuid.UUID, isPaymentDone *bool) (*models.Member, error) {
	member, err := s.store.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up member: %w", err)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: member not found", ErrNotFound)
	}

	if isPaymentDone != nil {
		member.IsPaymentDone = *isPaymentDone
	} else {
		member.IsPaymentDone = !member.IsPaymentDone
	}

	if err := s.store.Update(member); err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	return member, nil
}

// RecordPayment appends a payment to the member's history and marks the
// member as paid
func (s *RegistrationService) RecordPayment(id uuid.UUID, paymentID string, amount float64) (*models.Member, error) {
	if strings.TrimSpace(paymentID) == "" || amount <= 0 {
		return nil, fmt.Errorf("%w: payment id and a positive amount are required", ErrValidation)
	}

	member, err := s.store.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up member: %w", err)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: member not found", ErrNotFound)
	}

	member.PaymentHistory = append(member.PaymentHistory, models.Payment{
		PaymentID: paymentID,
		Date:      time.Now(),
		Amount:    amount,
	})
	member.IsPaymentDone = true

	if err := s.store.Update(member); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	return member, nil
}

// DeleteMember removes a member record and best-effort releases the
// stored document. A document deletion failure is logged and swallowed;
// the record deletion proceeds regardless.
func (s *RegistrationService) DeleteMember(ctx context.Context, id uuid.UUID) error {
	member, err := s.store.GetByID(id)
	if err != nil {
		return fmt.Errorf("failed to look up member: %w", err)
	}
	if member == nil {
		return fmt.Errorf("%w: member not found", ErrNotFound)
	}

	if member.DocumentPublicID != "" {
		if err := s.uploader.Delete(ctx, member.DocumentPublicID); err != nil {
			s.logger.WithError(err).WithField("public_id", member.DocumentPublicID).
				Warn("failed to delete member document from storage")
		}
	}

	if err := s.store.Delete(member.ID); err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}

	return nil
}

// stampOTP sets a fresh hashed OTP pair on the record and returns the
// plaintext for dispatch
func (s *RegistrationService) stampOTP(member *models.Member) (string, error) {
	otp, err := GenerateOTP()
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(otp), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash OTP: %w", err)
	}

	member.OTPHash = models.NewNullString(string(hash))
	member.OTPExpiresAt = models.NewNullTime(time.Now().Add(s.cfg.OTPExpiry))
	return otp, nil
}

// issueOTP stamps, persists and dispatches a fresh OTP for an existing
// record. A dispatch failure fails the call but the stored OTP pair is
// kept, so the registrant can retry.
func (s *RegistrationService) issueOTP(member *models.Member) error {
	otp, err := s.stampOTP(member)
	if err != nil {
		return err
	}

	if err := s.store.Update(member); err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	if err := s.mailer.SendMemberOTP(member.Email, member.Name, otp); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	return nil
}
