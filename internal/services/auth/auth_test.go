package authservice

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	jwtlib "github.com/zanzhit/snapshot_recorder/internal/lib/jwt"
)

func newService(t *testing.T) *AuthService {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), "admin", string(hash), time.Hour, "jwt-secret")
}

func TestLogin(t *testing.T) {
	s := newService(t)

	token, err := s.Login("admin", "s3cret")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, time.Minute)

	sub, err := jwtlib.Subject(token.Value, "jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", sub)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newService(t)

	_, err := s.Login("admin", "wrong")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)

	_, err = s.Login("root", "s3cret")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)
}
