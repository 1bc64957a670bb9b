package database

import (
	"database/sql/driver"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/osoo/membership-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var adminTestColumns = []string{
	"id", "name", "email", "admin_id", "password_hash",
	"otp_hash", "otp_expires_at", "created_at", "updated_at",
}

func adminRow(id uuid.UUID, adminID string) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id, "Site Admin", "admin@example.com", adminID, "$2a$10$hash",
		nil, nil, now, now,
	}
}

func TestAdminCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAdminRepository(db)

	t.Run("Success", func(t *testing.T) {
		admin := &models.Admin{
			Name:         "Site Admin",
			Email:        "Admin@Example.com",
			AdminID:      "ADM001",
			PasswordHash: "$2a$10$hash",
		}

		mock.ExpectExec(`INSERT INTO admins`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(admin)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, admin.ID)
		assert.Equal(t, "admin@example.com", admin.Email, "Create must lowercase the email")

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO admins`).
			WillReturnError(fmt.Errorf("database error"))

		err := repo.Create(&models.Admin{AdminID: "ADM002"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create admin")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdminUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAdminRepository(db)

	t.Run("Success", func(t *testing.T) {
		admin := &models.Admin{ID: uuid.New(), Name: "Site Admin", Email: "admin@example.com"}

		mock.ExpectExec(`UPDATE admins SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(admin))
		assert.False(t, admin.UpdatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectExec(`UPDATE admins SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(&models.Admin{ID: uuid.New()})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdminGetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAdminRepository(db)

	t.Run("Success", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(`SELECT (.+) FROM admins WHERE id`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(adminTestColumns).
				AddRow(adminRow(id, "ADM001")...))

		admin, err := repo.GetByID(id)
		require.NoError(t, err)
		require.NotNil(t, admin)
		assert.Equal(t, "ADM001", admin.AdminID)
		assert.False(t, admin.HasOTP())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found Returns Nil", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(`SELECT (.+) FROM admins WHERE id`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(adminTestColumns))

		admin, err := repo.GetByID(id)
		require.NoError(t, err)
		assert.Nil(t, admin)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdminGetByAdminID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAdminRepository(db)

	id := uuid.New()
	mock.ExpectQuery(`SELECT (.+) FROM admins WHERE admin_id`).
		WithArgs("ADM001").
		WillReturnRows(sqlmock.NewRows(adminTestColumns).
			AddRow(adminRow(id, "ADM001")...))

	admin, err := repo.GetByAdminID("ADM001")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, id, admin.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminGetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAdminRepository(db)

	t.Run("Lowercases Lookup", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(`SELECT (.+) FROM admins WHERE email`).
			WithArgs("admin@example.com").
			WillReturnRows(sqlmock.NewRows(adminTestColumns).
				AddRow(adminRow(id, "ADM001")...))

		admin, err := repo.GetByEmail("Admin@Example.com")
		require.NoError(t, err)
		require.NotNil(t, admin)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found Returns Nil", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM admins WHERE email`).
			WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows(adminTestColumns))

		admin, err := repo.GetByEmail("nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, admin)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
