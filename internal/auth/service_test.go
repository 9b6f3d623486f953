package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard/internal/model"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}))
	return NewService(NewUserRepository(db), NewPasswordHasher(), NewJWTManager("test-secret", time.Hour))
}

func TestService_SignupLoginVerify(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	user, err := svc.Signup(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	token, err := svc.Login(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)

	claims, err := svc.Verify(ctx, token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestService_SignupValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Signup(ctx, "al", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidUsername)
	_, err = svc.Signup(ctx, "alice", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Signup(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	_, err = svc.Signup(ctx, "alice", "another-pass")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestService_LoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Signup(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_VerifyRejectsTamperedToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Signup(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	token, err := svc.Login(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, token.AccessToken+"tampered")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher()
	hash, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, h.Verify("correct horse battery staple", hash))
	assert.False(t, h.Verify("wrong password", hash))
}
