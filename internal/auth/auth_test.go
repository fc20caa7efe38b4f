package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DGouron/billed/internal/domain/users"
)

func TestCreateJWTString(t *testing.T) {
	secret := []byte("supersecretkey")
	jwtAuth := NewJWTAuth(secret)

	tokenString, err := jwtAuth.CreateJWTString("johndoe@email.com", users.RoleEmployee)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, "johndoe@email.com", claims.Subject)
	assert.Equal(t, "billed", claims.Issuer)
	assert.Equal(t, "Employee", claims.Role)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestCreateJWTStringOptions(t *testing.T) {
	secret := []byte("supersecretkey")
	jwtAuth := NewJWTAuth(secret, WithIssuer("custom"), WithTokenTTL(time.Hour))

	tokenString, err := jwtAuth.CreateJWTString("admin@test.tld", users.RoleAdmin)
	require.NoError(t, err)

	claims := &Claims{}

	_, err = jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "custom", claims.Issuer)
	assert.Equal(t, "Admin", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestCreateJWTStringWrongSecret(t *testing.T) {
	jwtAuth := NewJWTAuth([]byte("supersecretkey"))

	tokenString, err := jwtAuth.CreateJWTString("johndoe@email.com", users.RoleEmployee)
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte("othersecret"), nil
	})
	require.Error(t, err)
}
