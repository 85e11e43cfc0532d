package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	current := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{
		Secret:         "shop-secret",
		Issuer:         "mysite",
		AccessTokenTTL: time.Hour,
		Clock:          func() time.Time { return current },
	})
	require.NoError(t, err)
	require.Equal(t, time.Hour, svc.TTL())

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "u-1", Username: "alice", SessionID: "s-1"})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "s-1", claims.SessionID)
	require.Equal(t, "mysite", claims.Issuer)
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(time.Hour)))
}

func TestValidateAccessTokenRejects(t *testing.T) {
	current := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	issuer, err := NewJWTService(JWTConfig{Secret: "a", Issuer: "mysite", AccessTokenTTL: time.Minute, Clock: clock})
	require.NoError(t, err)
	token, err := issuer.GenerateAccessToken(AccessTokenInput{UserID: "u-1"})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewJWTService(JWTConfig{Secret: "b", Clock: clock})
		require.NoError(t, err)
		_, err = other.ValidateAccessToken(token)
		require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewJWTService(JWTConfig{Secret: "a", Issuer: "elsewhere", Clock: clock})
		require.NoError(t, err)
		_, err = other.ValidateAccessToken(token)
		require.EqualError(t, err, "jwt: invalid issuer")
	})

	t.Run("expired", func(t *testing.T) {
		later := func() time.Time { return current.Add(2 * time.Minute) }
		verifier, err := NewJWTService(JWTConfig{Secret: "a", Clock: later})
		require.NoError(t, err)
		_, err = verifier.ValidateAccessToken(token)
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := issuer.ValidateAccessToken("")
		require.Error(t, err)
	})
}

func TestGenerateAccessTokenRequiresUser(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "a"})
	require.NoError(t, err)
	_, err = svc.GenerateAccessToken(AccessTokenInput{})
	require.Error(t, err)
}
