package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/osoo/membership-backend/internal/models"
	"github.com/osoo/membership-backend/internal/services"
	"github.com/osoo/membership-backend/pkg/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memStore is an in-memory services.MemberStore
type memStore struct {
	members map[uuid.UUID]*models.Member
}

func newMemStore() *memStore {
	return &memStore{members: make(map[uuid.UUID]*models.Member)}
}

func (s *memStore) Create(member *models.Member) error {
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	copied := *member
	s.members[member.ID] = &copied
	return nil
}

func (s *memStore) Update(member *models.Member) error {
	if _, ok := s.members[member.ID]; !ok {
		return errors.New("member not found")
	}
	copied := *member
	s.members[member.ID] = &copied
	return nil
}

func (s *memStore) Delete(id uuid.UUID) error {
	delete(s.members, id)
	return nil
}

func (s *memStore) GetByID(id uuid.UUID) (*models.Member, error) {
	if m, ok := s.members[id]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, nil
}

func (s *memStore) GetActiveByEmail(email string) (*models.Member, error) {
	for _, m := range s.members {
		if m.Email == email && m.Status != models.StatusRejected {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetByUniqueID(uniqueID string) (*models.Member, error) {
	for _, m := range s.members {
		if m.UniqueID.Valid && m.UniqueID.String == uniqueID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetApprovedByUniqueID(uniqueID string) (*models.Member, error) {
	m, err := s.GetByUniqueID(uniqueID)
	if err != nil || m == nil || m.Status != models.StatusApproved {
		return nil, err
	}
	return m, nil
}

func (s *memStore) List() ([]*models.Member, error) {
	out := make([]*models.Member, 0, len(s.members))
	for _, m := range s.members {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

func (s *memStore) ListPendingReview() ([]*models.Member, error) {
	var out []*models.Member
	for _, m := range s.members {
		if m.Status == models.StatusPending && m.OTPVerified {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

// memMailer records deliveries and can be told to fail
type memMailer struct {
	lastOTP string
	fail    bool
}

func (m *memMailer) SendMemberOTP(to, name, otp string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.lastOTP = otp
	return nil
}

func (m *memMailer) SendReviewPending(to, name string) error { return nil }

func (m *memMailer) SendApprovalCredentials(to, name, uniqueID, tempPassword string) error {
	return nil
}

func (m *memMailer) SendRejection(to, name, notes string) error { return nil }

func (m *memMailer) SendPasswordChanged(to, name string) error { return nil }

type memUploader struct{}

func (u *memUploader) Upload(_ context.Context, filename string, _ io.Reader) (*storage.UploadResult, error) {
	return &storage.UploadResult{
		URL:      "https://res.cloudinary.com/test/" + filename,
		PublicID: "documents/" + filename,
	}, nil
}

func (u *memUploader) Delete(_ context.Context, _ string) error { return nil }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupMemberRouter(t *testing.T) (*gin.Engine, *memStore, *memMailer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	mailer := &memMailer{}
	logger := testLogger()

	registrationService := services.NewRegistrationService(
		store, mailer, &memUploader{},
		services.RegistrationConfig{
			OTPExpiry:  10 * time.Minute,
			BcryptCost: bcrypt.MinCost,
		},
		logger,
	)
	auditService := services.NewAuditService(nil, false)
	handler := NewMemberHandler(registrationService, auditService, logger)

	router := gin.New()
	router.POST("/member/register", handler.Register)
	router.POST("/member/verify-otp", handler.VerifyOTP)
	router.POST("/member/resend-otp", handler.ResendOTP)
	router.POST("/member/login", handler.Login)
	router.POST("/member/change-password", handler.ChangePassword)
	router.GET("/member/profile/:uniqueId", handler.GetProfile)

	return router, store, mailer
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// registrationForm builds a multipart registration request. A nil
// override map produces a fully valid submission.
func registrationForm(t *testing.T, fields map[string]string, withDocument bool) (*bytes.Buffer, string) {
	t.Helper()

	form := map[string]string{
		"name":             "Dr. Asha Mohanty",
		"email":            "asha@example.com",
		"phone":            "9876543210",
		"speciality":       "Medical Oncology",
		"qualifications":   "MBBS, MD",
		"document_type":    "medical_license",
		"document_no":      "ODL-12345",
		"agree_with_terms": "true",
	}
	for k, v := range fields {
		form[k] = v
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range form {
		require.NoError(t, writer.WriteField(k, v))
	}
	if withDocument {
		part, err := writer.CreateFormFile("document", "license.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("fake-png-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func postRegistration(t *testing.T, router *gin.Engine, fields map[string]string, withDocument bool) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := registrationForm(t, fields, withDocument)
	req := httptest.NewRequest(http.MethodPost, "/member/register", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func approveTestMember(t *testing.T, store *memStore, uniqueID, tempPassword string) *models.Member {
	t.Helper()
	tempHash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.MinCost)
	require.NoError(t, err)

	member := &models.Member{
		Name:             "Dr. Asha Mohanty",
		Email:            "asha@example.com",
		Phone:            "9876543210",
		Status:           models.StatusApproved,
		OTPVerified:      true,
		UniqueID:         models.NewNullString(uniqueID),
		TempPasswordHash: models.NewNullString(string(tempHash)),
		PaymentHistory:   models.PaymentHistory{},
	}
	require.NoError(t, store.Create(member))
	return member
}

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"Validation", fmt.Errorf("%w: missing field", services.ErrValidation), http.StatusBadRequest, "validation_error"},
		{"Not Found", fmt.Errorf("%w: no record", services.ErrNotFound), http.StatusNotFound, "not_found"},
		{"Conflict", fmt.Errorf("%w: already approved", services.ErrConflict), http.StatusConflict, "conflict"},
		{"Unauthorized", fmt.Errorf("%w: bad credentials", services.ErrUnauthorized), http.StatusUnauthorized, "unauthorized"},
		{"Invalid State", fmt.Errorf("%w: already rejected", services.ErrInvalidState), http.StatusBadRequest, "invalid_state"},
		{"OTP Expired", services.ErrOTPExpired, http.StatusGone, "otp_expired"},
		{"Delivery", fmt.Errorf("%w: smtp unavailable", services.ErrDelivery), http.StatusInternalServerError, "delivery_error"},
		{"Unknown", errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.expectedError, resp.Error)
		})
	}

	t.Run("Expired And Delivery Hide Internal Detail", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, services.ErrOTPExpired)
		assert.Equal(t, "OTP expired. Please request a new one.", decodeError(t, w).Message)

		w = httptest.NewRecorder()
		c, _ = gin.CreateTestContext(w)
		respondError(c, fmt.Errorf("%w: dial tcp: refused", services.ErrDelivery))
		assert.Equal(t, "Failed to send email. Please try again.", decodeError(t, w).Message)
	})
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, store, mailer := setupMemberRouter(t)

		w := postRegistration(t, router, nil, true)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "asha@example.com", resp["email"])
		assert.Len(t, mailer.lastOTP, services.OTPLength)

		members, _ := store.List()
		require.Len(t, members, 1)
		assert.Equal(t, []string{"MBBS", "MD"}, []string(members[0].Qualifications))
		assert.Equal(t, models.StatusPending, members[0].Status)
	})

	t.Run("Missing Document", func(t *testing.T) {
		router, store, _ := setupMemberRouter(t)

		w := postRegistration(t, router, nil, false)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_error", decodeError(t, w).Error)

		members, _ := store.List()
		assert.Empty(t, members)
	})

	t.Run("Already Approved", func(t *testing.T) {
		router, store, _ := setupMemberRouter(t)
		approveTestMember(t, store, "OSOO-2026-001", "temp-pass")

		w := postRegistration(t, router, nil, true)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "conflict", decodeError(t, w).Error)
	})

	t.Run("Delivery Failure", func(t *testing.T) {
		router, store, mailer := setupMemberRouter(t)
		mailer.fail = true

		w := postRegistration(t, router, nil, true)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "delivery_error", resp.Error)
		assert.Equal(t, "Failed to send email. Please try again.", resp.Message)

		// The record is kept and stays eligible for resend
		members, _ := store.List()
		require.Len(t, members, 1)
		assert.False(t, members[0].OTPVerified)
	})
}

func TestVerifyOTPEndpoint(t *testing.T) {
	router, store, mailer := setupMemberRouter(t)

	w := postRegistration(t, router, nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("Missing Body Fields", func(t *testing.T) {
		w := postJSON(t, router, "/member/verify-otp", gin.H{"email": "asha@example.com"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Unknown Email", func(t *testing.T) {
		w := postJSON(t, router, "/member/verify-otp", gin.H{"email": "nobody@example.com", "otp": "123456"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decodeError(t, w).Error)
	})

	t.Run("Wrong Code", func(t *testing.T) {
		wrong := "000000"
		if mailer.lastOTP == wrong {
			wrong = "000001"
		}
		w := postJSON(t, router, "/member/verify-otp", gin.H{"email": "asha@example.com", "otp": wrong})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Expired Code", func(t *testing.T) {
		members, _ := store.List()
		require.Len(t, members, 1)
		member := members[0]
		member.OTPExpiresAt = models.NewNullTime(time.Now().Add(-time.Minute))
		require.NoError(t, store.Update(member))

		w := postJSON(t, router, "/member/verify-otp", gin.H{"email": "asha@example.com", "otp": mailer.lastOTP})
		assert.Equal(t, http.StatusGone, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "otp_expired", resp.Error)
		assert.Equal(t, "OTP expired. Please request a new one.", resp.Message)
	})

	t.Run("Success After Resend", func(t *testing.T) {
		w := postJSON(t, router, "/member/resend-otp", gin.H{"email": "asha@example.com"})
		require.Equal(t, http.StatusOK, w.Code)

		w = postJSON(t, router, "/member/verify-otp", gin.H{"email": "asha@example.com", "otp": mailer.lastOTP})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "awaiting admin review")
	})
}

func TestMemberLoginEndpoint(t *testing.T) {
	router, store, _ := setupMemberRouter(t)
	approveTestMember(t, store, "OSOO-2026-001", "temp-pass")

	t.Run("Unknown Unique ID", func(t *testing.T) {
		w := postJSON(t, router, "/member/login", gin.H{"unique_id": "OSOO-2026-999", "password": "temp-pass"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decodeError(t, w).Error)
	})

	t.Run("Wrong Password", func(t *testing.T) {
		w := postJSON(t, router, "/member/login", gin.H{"unique_id": "OSOO-2026-001", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthorized", decodeError(t, w).Error)
	})

	t.Run("Temporary Password Flags Change", func(t *testing.T) {
		w := postJSON(t, router, "/member/login", gin.H{"unique_id": "OSOO-2026-001", "password": "temp-pass"})
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			RequiresPasswordChange bool `json:"requires_password_change"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.RequiresPasswordChange)
	})

	t.Run("Permanent Password After Change", func(t *testing.T) {
		w := postJSON(t, router, "/member/change-password", gin.H{
			"unique_id":        "OSOO-2026-001",
			"current_password": "temp-pass",
			"new_password":     "NewPass1!",
		})
		require.Equal(t, http.StatusOK, w.Code)

		w = postJSON(t, router, "/member/login", gin.H{"unique_id": "OSOO-2026-001", "password": "NewPass1!"})
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			RequiresPasswordChange bool `json:"requires_password_change"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.RequiresPasswordChange)

		// The temporary password is no longer accepted
		w = postJSON(t, router, "/member/login", gin.H{"unique_id": "OSOO-2026-001", "password": "temp-pass"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetProfileEndpoint(t *testing.T) {
	router, store, _ := setupMemberRouter(t)
	approveTestMember(t, store, "OSOO-2026-001", "temp-pass")

	t.Run("Success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/member/profile/OSOO-2026-001", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "asha@example.com")
	})

	t.Run("Not Found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/member/profile/OSOO-2026-999", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestParseQualifications(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"Repeated Fields", []string{"MBBS", "MD"}, []string{"MBBS", "MD"}},
		{"Single Comma-Separated", []string{"MBBS, MD, DM"}, []string{"MBBS", "MD", "DM"}},
		{"Trims Whitespace", []string{"  MBBS  "}, []string{"MBBS"}},
		{"Drops Empty Entries", []string{"MBBS,,MD, "}, []string{"MBBS", "MD"}},
		{"Empty Input", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseQualifications(tt.input))
		})
	}
}
