package jwt

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-key"

// signed issues a token the way the platform auth service does: plain map claims.
func signed(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestGenerateToken_CarriesUserIDClaim(t *testing.T) {
	token, err := NewService(secret).GenerateToken("user-123", "lister")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &body))
	assert.Equal(t, "user-123", body["user_id"])
	assert.Equal(t, "lister", body["role"])
	assert.Contains(t, body, "exp")
}

func TestValidateToken_ExternalIssuer(t *testing.T) {
	token := signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"user_id": "user-9",
		"role":    "moderator",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	claims, err := NewService(secret).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-9", claims.UserID)
	assert.Equal(t, "moderator", claims.Role)
}

func TestValidateToken_MissingUserID(t *testing.T) {
	token := signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"sub": "user-9",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := NewService(secret).ValidateToken(token)
	assert.ErrorIs(t, err, ErrNoUserID)
}

func TestValidateToken_Rejected(t *testing.T) {
	expired := signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	otherSecret, err := NewService("another-secret").GenerateToken("user-1", "lister")
	require.NoError(t, err)
	unsigned := signed(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{
		"user_id": "user-1",
	})

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "invalid-token",
		"expired":      expired,
		"wrong secret": otherSecret,
		"alg none":     unsigned,
	} {
		t.Run(name, func(t *testing.T) {
			claims, err := NewService(secret).ValidateToken(token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}
