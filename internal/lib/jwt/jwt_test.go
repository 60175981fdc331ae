package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_RoundTrip(t *testing.T) {
	token, err := NewToken("admin", time.Minute, "secret")
	require.NoError(t, err)

	sub, err := Subject(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", sub)
}

func TestSubject_Rejects(t *testing.T) {
	expired, err := NewToken("admin", -time.Minute, "secret")
	require.NoError(t, err)

	valid, err := NewToken("admin", time.Minute, "secret")
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{name: "expired", token: expired, secret: "secret"},
		{name: "wrong secret", token: valid, secret: "other"},
		{name: "garbage", token: "not-a-token", secret: "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Subject(tt.token, tt.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
