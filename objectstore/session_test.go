package objectstore

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/go-playground/assert/v2"
)

func TestParseSessionTokenUnverified(t *testing.T) {
	expiresAt := time.Now().Add(1 * time.Hour).Truncate(time.Second)
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"user_id":    "u1",
		"session_id": "s1",
		"exp":        expiresAt.Unix(),
	})
	sessionToken, err := token.SignedString([]byte("server-side-secret"))
	assert.Equal(t, nil, err)

	claims, err := ParseSessionTokenUnverified(sessionToken)
	assert.Equal(t, nil, err)
	assert.Equal(t, "u1", claims.UserId)
	assert.Equal(t, "s1", claims.SessionId)
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestParseSessionTokenUnverifiedErrors(t *testing.T) {
	_, err := ParseSessionTokenUnverified("")
	assert.NotEqual(t, nil, err)

	_, err = ParseSessionTokenUnverified("r:opaque-not-a-jwt")
	assert.NotEqual(t, nil, err)
}

func TestSessionHeaders(t *testing.T) {
	session := &Session{
		ApplicationId: "test-app",
		ClientKey:     "client-1",
	}

	headers := session.headers()
	assert.Equal(t, HeaderApplicationId, headers[0].Name)
	assert.Equal(t, "test-app", headers[0].Value)

	clientKey := ""
	masterKey := ""
	for _, header := range headers {
		switch header.Name {
		case HeaderClientKey:
			clientKey = header.Value
		case HeaderMasterKey:
			masterKey = header.Value
		}
	}
	assert.Equal(t, "client-1", clientKey)
	// the master key header is only attached when a key is configured
	assert.Equal(t, "", masterKey)
}
