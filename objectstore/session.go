package objectstore

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// supplies the application/master key headers and the current session
// token attached to every command
type Session struct {
	ServerUrl     string
	ApplicationId string
	ClientKey     string
	MasterKey     string
	SessionToken  string
}

// headers contributed by the session context, in fixed order
// the application identity header is always present
func (self *Session) headers() []Header {
	headers := []Header{
		{Name: HeaderApplicationId, Value: self.ApplicationId},
		{Name: HeaderClientVersion, Value: ClientVersion},
	}
	if self.ClientKey != "" {
		headers = append(headers, Header{Name: HeaderClientKey, Value: self.ClientKey})
	}
	if self.MasterKey != "" {
		headers = append(headers, Header{Name: HeaderMasterKey, Value: self.MasterKey})
	}
	return headers
}

type SessionClaims struct {
	UserId    string
	SessionId string
	ExpiresAt time.Time
}

// decodes the claims of a jwt-shaped session token without verifying
// the signature. useful for display and expiry checks only; the
// backend remains the authority on token validity.
func ParseSessionTokenUnverified(sessionToken string) (*SessionClaims, error) {
	if sessionToken == "" {
		return nil, errors.New("empty session token")
	}

	parser := gojwt.NewParser()
	token, _, err := parser.ParseUnverified(sessionToken, gojwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims := token.Claims.(gojwt.MapClaims)

	sessionClaims := &SessionClaims{}

	if userId, ok := claims["user_id"].(string); ok {
		sessionClaims.UserId = userId
	}
	if sessionId, ok := claims["session_id"].(string); ok {
		sessionClaims.SessionId = sessionId
	}
	if expiresAt, err := claims.GetExpirationTime(); err == nil && expiresAt != nil {
		sessionClaims.ExpiresAt = expiresAt.Time
	}

	return sessionClaims, nil
}
