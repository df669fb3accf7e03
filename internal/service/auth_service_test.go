package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/models"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{
		UserID: "t1",
		Email:  "teacher@example.com",
		Role:   models.RoleTeacher,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService("secret", nil)
	tokenString := signToken(t, "secret", jwt.SigningMethodHS256, teacherClaims())

	claims, err := svc.ValidateToken(tokenString)

	require.NoError(t, err)
	assert.Equal(t, "t1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := NewAuthService("secret", nil)
	tokenString := signToken(t, "other-secret", jwt.SigningMethodHS256, teacherClaims())

	_, err := svc.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewAuthService("secret", nil)
	claims := teacherClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	tokenString := signToken(t, "secret", jwt.SigningMethodHS256, claims)

	_, err := svc.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestValidateTokenRejectsMissingSubject(t *testing.T) {
	svc := NewAuthService("secret", nil)
	claims := teacherClaims()
	claims.UserID = ""
	tokenString := signToken(t, "secret", jwt.SigningMethodHS256, claims)

	_, err := svc.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService("secret", nil)

	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}
