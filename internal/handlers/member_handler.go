package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/osoo/membership-backend/internal/services"
	"github.com/osoo/membership-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// maxDocumentSize caps the uploaded identity document at 5 MB
const maxDocumentSize = 5 << 20

// MemberHandler handles member-facing HTTP requests
type MemberHandler struct {
	registrationService *services.RegistrationService
	auditService        *services.AuditService
	logger              *logrus.Logger
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(
	registrationService *services.RegistrationService,
	auditService *services.AuditService,
	logger *logrus.Logger,
) *MemberHandler {
	return &MemberHandler{
		registrationService: registrationService,
		auditService:        auditService,
		logger:              logger,
	}
}

// VerifyOTPRequest represents the request to verify a registration OTP
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// ResendOTPRequest represents the request to resend a registration OTP
type ResendOTPRequest struct {
	Email string `json:"email" binding:"required"`
}

// MemberLoginRequest represents the member login request
type MemberLoginRequest struct {
	UniqueID string `json:"unique_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest represents the member change-password request
type ChangePasswordRequest struct {
	UniqueID        string `json:"unique_id" binding:"required"`
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// UpdateProfileRequest represents a partial member profile update
type UpdateProfileRequest struct {
	Name           *string  `json:"name"`
	Phone          *string  `json:"phone"`
	Speciality     *string  `json:"speciality"`
	Qualifications []string `json:"qualifications"`
}

// Register handles POST /api/v1/member/register (multipart form)
func (h *MemberHandler) Register(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxDocumentSize); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid multipart form",
		})
		return
	}

	agree, _ := strconv.ParseBool(c.PostForm("agree_with_terms"))

	in := services.RegisterInput{
		Name:           c.PostForm("name"),
		Email:          c.PostForm("email"),
		Phone:          c.PostForm("phone"),
		Speciality:     c.PostForm("speciality"),
		Qualifications: parseQualifications(c.PostFormArray("qualifications")),
		DocumentType:   c.PostForm("document_type"),
		DocumentNo:     c.PostForm("document_no"),
		AgreeWithTerms: agree,
	}

	file, header, err := c.Request.FormFile("document")
	if err == nil {
		defer file.Close()
		in.Document = file
		in.DocumentFileName = header.Filename
	}

	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	email, err := h.registrationService.Register(c.Request.Context(), in)
	if err != nil {
		if auditErr := h.auditService.LogRegistration(in.Email, clientIP, userAgent, false, err.Error()); auditErr != nil {
			h.logger.WithError(auditErr).Warn("failed to write registration audit log")
		}
		respondError(c, err)
		return
	}

	if auditErr := h.auditService.LogRegistration(email, clientIP, userAgent, true, ""); auditErr != nil {
		h.logger.WithError(auditErr).Warn("failed to write registration audit log")
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "OTP sent to your email. Please verify to complete registration.",
		"email":   email,
	})
}

// VerifyOTP handles POST /api/v1/member/verify-otp
func (h *MemberHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Email and OTP are required",
		})
		return
	}

	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	member, err := h.registrationService.VerifyOTP(req.Email, req.OTP)
	if err != nil {
		if auditErr := h.auditService.LogOTPVerification("member", req.Email, clientIP, userAgent, false, err.Error()); auditErr != nil {
			h.logger.WithError(auditErr).Warn("failed to write OTP audit log")
		}
		respondError(c, err)
		return
	}

	if auditErr := h.auditService.LogOTPVerification("member", req.Email, clientIP, userAgent, true, ""); auditErr != nil {
		h.logger.WithError(auditErr).Warn("failed to write OTP audit log")
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email verified. Your application is now awaiting admin review.",
		"member":  member.Summary(),
	})
}

// ResendOTP handles POST /api/v1/member/resend-otp
func (h *MemberHandler) ResendOTP(c *gin.Context) {
	var req ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Email is required",
		})
		return
	}

	if err := h.registrationService.ResendOTP(req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "OTP resent to your email.",
	})
}

// Login handles POST /api/v1/member/login
func (h *MemberHandler) Login(c *gin.Context) {
	var req MemberLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Unique ID and password are required",
		})
		return
	}

	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	member, requiresPasswordChange, err := h.registrationService.Login(req.UniqueID, req.Password)
	if err != nil {
		if auditErr := h.auditService.LogLogin("member", req.UniqueID, clientIP, userAgent, false); auditErr != nil {
			h.logger.WithError(auditErr).Warn("failed to write login audit log")
		}
		respondError(c, err)
		return
	}

	if auditErr := h.auditService.LogLogin("member", req.UniqueID, clientIP, userAgent, true); auditErr != nil {
		h.logger.WithError(auditErr).Warn("failed to write login audit log")
	}

	message := "Login successful."
	if requiresPasswordChange {
		message = "Login successful with temporary password. Please change your password."
	}

	c.JSON(http.StatusOK, gin.H{
		"message":                  message,
		"requires_password_change": requiresPasswordChange,
		"member":                   member,
	})
}

// ChangePassword handles POST /api/v1/member/change-password
func (h *MemberHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Unique ID, current password and new password are required",
		})
		return
	}

	if err := h.registrationService.ChangePassword(req.UniqueID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password changed successfully.",
	})
}

// GetProfile handles GET /api/v1/member/profile/:uniqueId
func (h *MemberHandler) GetProfile(c *gin.Context) {
	member, err := h.registrationService.GetProfile(c.Param("uniqueId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"member": member,
	})
}

// UpdateProfile handles PUT /api/v1/member/profile/:uniqueId
func (h *MemberHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	member, err := h.registrationService.UpdateProfile(c.Param("uniqueId"), services.ProfileUpdate{
		Name:           req.Name,
		Phone:          req.Phone,
		Speciality:     req.Speciality,
		Qualifications: req.Qualifications,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated.",
		"member":  member,
	})
}

// parseQualifications accepts either repeated form fields or a single
// comma-separated value
func parseQualifications(values []string) []string {
	if len(values) == 1 && strings.Contains(values[0], ",") {
		values = strings.Split(values[0], ",")
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
