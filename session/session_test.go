package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewManager("secret", time.Hour)

	token, err := m.Issue("ABCDEF", "player-1")
	require.NoError(t, err)

	id, err := m.Verify(token, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "player-1", id)
}

func TestVerifyRejects(t *testing.T) {
	m := NewManager("secret", time.Hour)
	token, err := m.Issue("ABCDEF", "player-1")
	require.NoError(t, err)

	t.Run("other room", func(t *testing.T) {
		_, err := m.Verify(token, "ZZZZZZ")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		_, err := NewManager("different", time.Hour).Verify(token, "ABCDEF")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Verify("not.a.token", "ABCDEF")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewManager("secret", time.Minute)
		expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
		old, err := expired.Issue("ABCDEF", "player-1")
		require.NoError(t, err)

		_, err = m.Verify(old, "ABCDEF")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{Room: "ABCDEF", Player: "p"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = m.Verify(unsigned, "ABCDEF")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
