package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/osoo/membership-backend/internal/database"
	"github.com/osoo/membership-backend/internal/utils"
)

// AuditService records security-relevant events: registration
// submissions, OTP verification attempts, admin reviews and logins.
// Failures to write the trail are reported to the caller, who logs and
// swallows them; auditing never fails a request.
type AuditService struct {
	db      database.DB
	enabled bool
}

// NewAuditService creates a new audit service
func NewAuditService(db database.DB, enabled bool) *AuditService {
	return &AuditService{db: db, enabled: enabled}
}

// AuditEvent represents one security event
type AuditEvent struct {
	Action     string                 // e.g. "member_register", "otp_verify", "admin_review"
	EntityType string                 // "member" or "admin"
	EntityID   *uuid.UUID             // affected record, nil for pre-auth events
	IPAddress  string                 // client IP
	UserAgent  string                 // raw user agent
	Details    map[string]interface{} // extra fields, stored as JSONB
}

// LogRegistration records a registration submission
func (s *AuditService) LogRegistration(email, ip, userAgent string, success bool, reason string) error {
	details := map[string]interface{}{
		"email":       email,
		"success":     success,
		"device_info": utils.ParseUserAgent(userAgent),
	}
	if reason != "" {
		details["reason"] = reason
	}

	return s.logEvent(AuditEvent{
		Action:     "member_register",
		EntityType: "member",
		IPAddress:  ip,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogOTPVerification records an OTP verification attempt
func (s *AuditService) LogOTPVerification(entityType, identifier, ip, userAgent string, success bool, failureReason string) error {
	details := map[string]interface{}{
		"identifier":  identifier,
		"success":     success,
		"device_info": utils.ParseUserAgent(userAgent),
	}
	if !success && failureReason != "" {
		details["failure_reason"] = failureReason
	}

	action := "otp_verify_failed"
	if success {
		action = "otp_verify_success"
	}

	return s.logEvent(AuditEvent{
		Action:     action,
		EntityType: entityType,
		IPAddress:  ip,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogAdminReview records an approve/reject decision
func (s *AuditService) LogAdminReview(memberID uuid.UUID, decision, reviewedBy, ip, userAgent string) error {
	return s.logEvent(AuditEvent{
		Action:     "admin_review",
		EntityType: "member",
		EntityID:   &memberID,
		IPAddress:  ip,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"decision":    decision,
			"reviewed_by": reviewedBy,
			"device_info": utils.ParseUserAgent(userAgent),
		},
	})
}

// LogLogin records a member or admin login attempt
func (s *AuditService) LogLogin(entityType, identifier, ip, userAgent string, success bool) error {
	return s.logEvent(AuditEvent{
		Action:     "login",
		EntityType: entityType,
		IPAddress:  ip,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"identifier":  identifier,
			"success":     success,
			"device_info": utils.ParseUserAgent(userAgent),
		},
	})
}

func (s *AuditService) logEvent(event AuditEvent) error {
	if !s.enabled {
		return nil
	}

	detailsJSON, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.db.Exec(
		query,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.IPAddress,
		event.UserAgent,
		detailsJSON,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	return nil
}
