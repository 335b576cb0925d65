package auth

import (
	"context"
	"testing"

	"ppm-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestVerifyUser_Nil(t *testing.T) {
	u, err := VerifyUser(nil)
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_NoUserID(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{
		"fullname": "Test",
		"email":    "a@b.com",
	})
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_Valid(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{
		"user_id":    "550e8400-e29b-41d4-a716-446655440000",
		"fullname":   "Test User",
		"email":      "test@example.com",
		"role":       "manager",
		"department": "Engineering",
	})
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", u.UserID)
	assert.Equal(t, "manager", u.Role)
	require.NotNil(t, u.Department)
	assert.Equal(t, "Engineering", *u.Department)
}

func TestVerifyUser_NilDepartment(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{"user_id": "x", "department": nil})
	require.NoError(t, err)
	assert.Nil(t, u.Department)
}

func setupDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	return db
}

func TestGormUserFinder(t *testing.T) {
	db := setupDB(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	u := domain.User{Email: "sam@example.com", Fullname: "Sam", Role: "manager", PasswordHash: string(hash)}
	require.NoError(t, db.Create(&u).Error)

	f := &GormUserFinder{DB: db}
	got, err := f.FindByEmailAndPassword("Sam@Example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)

	_, err = f.FindByEmailAndPassword("sam@example.com", "nope")
	assert.Equal(t, ErrIncorrectPassword, err)
	_, err = f.FindByEmailAndPassword("ghost@example.com", "secret")
	assert.Equal(t, ErrInvalidEmail, err)
	_, err = f.FindByEmailAndPassword("", "secret")
	assert.Equal(t, ErrEmailPasswordRequired, err)

	role, err := f.RoleOf(context.Background(), u.UserID.String())
	require.NoError(t, err)
	assert.Equal(t, "manager", role)
	_, err = f.RoleOf(context.Background(), "not-a-uuid")
	assert.Equal(t, ErrUnknownUser, err)
}

func TestMemoryUsers(t *testing.T) {
	m, err := NewMemoryUsers([]domain.User{{Email: "Ada@example.com", Role: "admin"}}, []string{"pw"})
	require.NoError(t, err)

	u, err := m.FindByEmailAndPassword("ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Role)

	role, err := m.RoleOf(context.Background(), u.UserID.String())
	require.NoError(t, err)
	assert.Equal(t, "admin", role)

	_, err = m.FindByEmailAndPassword("ada@example.com", "bad")
	assert.Equal(t, ErrIncorrectPassword, err)
	_, err = m.RoleOf(context.Background(), "nobody")
	assert.Equal(t, ErrUnknownUser, err)
}
