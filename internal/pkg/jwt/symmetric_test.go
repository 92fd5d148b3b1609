package jwt_test

import (
	"context"
	"strings"
	"testing"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/mailbite/internal/pkg/jwt"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

type fixedID string

func (f fixedID) Generate() string { return string(f) }

var secret = []byte(strings.Repeat("k", 64))

func newSigner(t *testing.T, clk *fakeClock) *jwt.Symmetric {
	t.Helper()

	s, err := jwt.NewHS512(jwt.Config{
		Secret:    secret,
		Issuer:    "mailbite",
		Audiences: []string{"mailbite-api"},
		TTL:       time.Hour,
		Clock:     clk,
		UUID:      fixedID("jti-1"),
	})
	require.NoError(t, err)
	return s
}

func TestNewHS512_ShortSecret(t *testing.T) {
	_, err := jwt.NewHS512(jwt.Config{Secret: []byte("short")})

	assert.ErrorIs(t, err, jwt.ErrSigningKeyTooShort)
}

func TestSymmetric_RoundTrip(t *testing.T) {
	// Arrange
	clk := &fakeClock{now: time.Now().Truncate(time.Second)}
	s := newSigner(t, clk)

	// Act
	token, err := s.Generate("billing-service", jwt.ScopeSend)
	require.NoError(t, err)
	claims, err := s.Verify(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "billing-service", claims.Subject)
	assert.Equal(t, "jti-1", claims.ID)
	assert.True(t, claims.HasScope(jwt.ScopeSend))
	assert.False(t, claims.HasScope("admin"))
}

func TestSymmetric_Generate_NoSubject(t *testing.T) {
	s := newSigner(t, &fakeClock{now: time.Now()})

	_, err := s.Generate("  ")

	assert.ErrorIs(t, err, jwt.ErrNoSubject)
}

func TestSymmetric_Verify(t *testing.T) {
	clk := &fakeClock{now: time.Now().Truncate(time.Second)}
	s := newSigner(t, clk)
	token, err := s.Generate("svc")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		clk.now = clk.now.Add(2 * time.Hour)
		defer func() { clk.now = clk.now.Add(-2 * time.Hour) }()

		_, err := s.Verify(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Verify("not.a.token")
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		other, err := libJWT.NewWithClaims(libJWT.SigningMethodHS256, libJWT.RegisteredClaims{
			Issuer:    "mailbite",
			Audience:  []string{"mailbite-api"},
			IssuedAt:  libJWT.NewNumericDate(clk.now),
			ExpiresAt: libJWT.NewNumericDate(clk.now.Add(time.Hour)),
		}).SignedString(secret)
		require.NoError(t, err)

		_, err = s.Verify(other)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})
}

func TestAuthContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, jwt.GetAuth(ctx))

	ctx = jwt.SetAuth(ctx, jwt.Claims{Scopes: []string{jwt.ScopeSend}})

	got := jwt.GetAuth(ctx)
	require.NotNil(t, got)
	assert.True(t, got.HasScope(jwt.ScopeSend))
}
