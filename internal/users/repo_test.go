package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'customer',
  status TEXT NOT NULL DEFAULT 'active',
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func TestRepositoryCreateAndFind(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.User{
		Email:        "jo@example.com",
		PasswordHash: "hash",
		FirstName:    "Jo",
		LastName:     "Smith",
		Role:         enums.UserRoleCustomer,
		Status:       enums.AccountStatusActive,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "jo@example.com", byID.Email)

	byEmail, err := repo.FindByEmail(ctx, "  Jo@Example.com ")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)
}

func TestRepositoryDuplicateEmail(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.User{Email: "dup@example.com", PasswordHash: "h", FirstName: "A", LastName: "B", Role: enums.UserRoleCustomer, Status: enums.AccountStatusActive})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.User{Email: "dup@example.com", PasswordHash: "h", FirstName: "C", LastName: "D", Role: enums.UserRoleCustomer, Status: enums.AccountStatusActive})
	require.Error(t, err)
}

func TestRepositoryUpdate(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.User{Email: "u@example.com", PasswordHash: "h", FirstName: "A", LastName: "B", Role: enums.UserRoleCustomer, Status: enums.AccountStatusActive})
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, created.ID, map[string]any{"status": enums.AccountStatusSuspended}))

	updated, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, enums.AccountStatusSuspended, updated.Status)
}

func TestRepositoryFindMissing(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
