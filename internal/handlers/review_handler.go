package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/osoo/membership-backend/internal/middleware"
	"github.com/osoo/membership-backend/internal/models"
	"github.com/osoo/membership-backend/internal/services"
	"github.com/osoo/membership-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// ReviewHandler handles admin member-management HTTP requests
type ReviewHandler struct {
	registrationService *services.RegistrationService
	auditService        *services.AuditService
	logger              *logrus.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(
	registrationService *services.RegistrationService,
	auditService *services.AuditService,
	logger *logrus.Logger,
) *ReviewHandler {
	return &ReviewHandler{
		registrationService: registrationService,
		auditService:        auditService,
		logger:              logger,
	}
}

// ApproveRequest represents the admin approval decision
type ApproveRequest struct {
	UniqueID string `json:"unique_id" binding:"required"`
	Notes    string `json:"notes"`
}

// RejectRequest represents the admin rejection decision
type RejectRequest struct {
	Notes string `json:"notes" binding:"required"`
}

// TogglePaymentRequest optionally pins the payment flag instead of
// flipping it
type TogglePaymentRequest struct {
	IsPaymentDone *bool `json:"is_payment_done"`
}

// RecordPaymentRequest represents a payment entry to append
type RecordPaymentRequest struct {
	PaymentID string  `json:"payment_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required"`
}

// ListMembers handles GET /api/v1/admin/members
func (h *ReviewHandler) ListMembers(c *gin.Context) {
	members, err := h.registrationService.ListMembers()
	if err != nil {
		respondError(c, err)
		return
	}

	summaries := make([]models.MemberSummary, 0, len(members))
	for _, m := range members {
		summaries = append(summaries, m.Summary())
	}

	c.JSON(http.StatusOK, gin.H{
		"members": summaries,
		"count":   len(summaries),
	})
}

// ListPending handles GET /api/v1/admin/members/pending
func (h *ReviewHandler) ListPending(c *gin.Context) {
	members, err := h.registrationService.ListPendingReview()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"members": members,
		"count":   len(members),
	})
}

// Approve handles PUT /api/v1/admin/members/:id/approve
func (h *ReviewHandler) Approve(c *gin.Context) {
	id, ok := h.memberID(c)
	if !ok {
		return
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Unique member ID is required",
		})
		return
	}

	adminCtx := middleware.MustGetAdminContext(c)

	member, err := h.registrationService.Approve(id, req.UniqueID, req.Notes, adminCtx.AdminID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logReview(c, member.ID, "approved", adminCtx.AdminID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Member approved. Credentials have been emailed.",
		"member":  member.Summary(),
	})
}

// Reject handles PUT /api/v1/admin/members/:id/reject
func (h *ReviewHandler) Reject(c *gin.Context) {
	id, ok := h.memberID(c)
	if !ok {
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Rejection notes are required",
		})
		return
	}

	adminCtx := middleware.MustGetAdminContext(c)

	member, err := h.registrationService.Reject(id, req.Notes, adminCtx.AdminID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logReview(c, member.ID, "rejected", adminCtx.AdminID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Member rejected.",
		"member":  member.Summary(),
	})
}

// TogglePayment handles PUT /api/v1/admin/members/:id/toggle-payment
func (h *ReviewHandler) TogglePayment(c *gin.Context) {
	id, ok := h.memberID(c)
	if !ok {
		return
	}

	// Body is optional; absent means flip the current flag
	var req TogglePaymentRequest
	_ = c.ShouldBindJSON(&req)

	member, err := h.registrationService.TogglePayment(id, req.IsPaymentDone)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Payment status updated.",
		"is_payment_done": member.IsPaymentDone,
	})
}

// RecordPayment handles POST /api/v1/admin/members/:id/payments
func (h *ReviewHandler) RecordPayment(c *gin.Context) {
	id, ok := h.memberID(c)
	if !ok {
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Payment ID and amount are required",
		})
		return
	}

	member, err := h.registrationService.RecordPayment(id, req.PaymentID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Payment recorded.",
		"payment_history": member.PaymentHistory,
	})
}

// Delete handles DELETE /api/v1/admin/members/:id
func (h *ReviewHandler) Delete(c *gin.Context) {
	id, ok := h.memberID(c)
	if !ok {
		return
	}

	if err := h.registrationService.DeleteMember(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member deleted.",
	})
}

func (h *ReviewHandler) memberID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid member id",
		})
		return uuid.Nil, false
	}
	return id, true
}

func (h *ReviewHandler) logReview(c *gin.Context, memberID uuid.UUID, decision, reviewedBy string) {
	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)
	if err := h.auditService.LogAdminReview(memberID, decision, reviewedBy, clientIP, userAgent); err != nil {
		h.logger.WithError(err).Warn("failed to write review audit log")
	}
}
