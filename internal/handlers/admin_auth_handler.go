package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/osoo/membership-backend/internal/middleware"
	"github.com/osoo/membership-backend/internal/services"
	"github.com/osoo/membership-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// AdminAuthHandler handles admin authentication and account HTTP requests
type AdminAuthHandler struct {
	adminAuthService *services.AdminAuthService
	auditService     *services.AuditService
	logger           *logrus.Logger
}

// NewAdminAuthHandler creates a new admin auth handler
func NewAdminAuthHandler(
	adminAuthService *services.AdminAuthService,
	auditService *services.AuditService,
	logger *logrus.Logger,
) *AdminAuthHandler {
	return &AdminAuthHandler{
		adminAuthService: adminAuthService,
		auditService:     auditService,
		logger:           logger,
	}
}

// AdminLoginRequest represents the admin first-factor login request
type AdminLoginRequest struct {
	AdminID  string `json:"admin_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminVerifyOTPRequest represents the admin second-factor request
type AdminVerifyOTPRequest struct {
	AdminID string `json:"admin_id" binding:"required"`
	OTP     string `json:"otp" binding:"required"`
}

// AdminRegisterRequest represents the admin provisioning request
type AdminRegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	AdminID  string `json:"admin_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminUpdateProfileRequest represents the admin profile update request
type AdminUpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AdminChangePasswordRequest represents the admin change-password request
type AdminChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// Login handles POST /api/v1/admin/login
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Admin ID and password are required",
		})
		return
	}

	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	if err := h.adminAuthService.Login(req.AdminID, req.Password); err != nil {
		if auditErr := h.auditService.LogLogin("admin", req.AdminID, clientIP, userAgent, false); auditErr != nil {
			h.logger.WithError(auditErr).Warn("failed to write login audit log")
		}
		respondError(c, err)
		return
	}

	if auditErr := h.auditService.LogLogin("admin", req.AdminID, clientIP, userAgent, true); auditErr != nil {
		h.logger.WithError(auditErr).Warn("failed to write login audit log")
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "OTP sent to admin's registered email. It expires in 5 minutes.",
	})
}

// VerifyOTP handles POST /api/v1/admin/verify-otp
func (h *AdminAuthHandler) VerifyOTP(c *gin.Context) {
	var req AdminVerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Admin ID and OTP are required",
		})
		return
	}

	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	session, err := h.adminAuthService.VerifyOTP(req.AdminID, req.OTP)
	if err != nil {
		if auditErr := h.auditService.LogOTPVerification("admin", req.AdminID, clientIP, userAgent, false, err.Error()); auditErr != nil {
			h.logger.WithError(auditErr).Warn("failed to write OTP audit log")
		}
		respondError(c, err)
		return
	}

	if auditErr := h.auditService.LogOTPVerification("admin", req.AdminID, clientIP, userAgent, true, ""); auditErr != nil {
		h.logger.WithError(auditErr).Warn("failed to write OTP audit log")
	}

	c.JSON(http.StatusOK, session)
}

// Register handles POST /api/v1/admin/register (session required)
func (h *AdminAuthHandler) Register(c *gin.Context) {
	var req AdminRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Name, email, admin ID and password are required",
		})
		return
	}

	admin, err := h.adminAuthService.CreateAdmin(req.Name, req.Email, req.AdminID, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Admin account created.",
		"admin":   admin,
	})
}

// GetProfile handles GET /api/v1/admin/profile
func (h *AdminAuthHandler) GetProfile(c *gin.Context) {
	adminCtx := middleware.MustGetAdminContext(c)

	admin, err := h.adminAuthService.GetProfile(adminCtx.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"admin": admin,
	})
}

// UpdateProfile handles PUT /api/v1/admin/profile
func (h *AdminAuthHandler) UpdateProfile(c *gin.Context) {
	adminCtx := middleware.MustGetAdminContext(c)

	var req AdminUpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	admin, err := h.adminAuthService.UpdateProfile(adminCtx.ID, req.Name, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated.",
		"admin":   admin,
	})
}

// ChangePassword handles PUT /api/v1/admin/change-password
func (h *AdminAuthHandler) ChangePassword(c *gin.Context) {
	adminCtx := middleware.MustGetAdminContext(c)

	var req AdminChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Current and new passwords are required",
		})
		return
	}

	if err := h.adminAuthService.ChangePassword(adminCtx.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password changed successfully.",
	})
}
