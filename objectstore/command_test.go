package objectstore

import (
	"fmt"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
)

func testSession() *Session {
	return &Session{
		ServerUrl:     "https://api.example.com",
		ApplicationId: "test-app",
	}
}

func TestCommandPathPrefixAndSessionHeader(t *testing.T) {
	endpoints := []string{"classes/Player", "classes/Player/p1", "users/me"}
	methods := []string{"GET", "POST", "PUT", "DELETE"}
	sessionTokens := []string{"", "r:token-1"}

	for _, endpoint := range endpoints {
		for _, method := range methods {
			for _, sessionToken := range sessionTokens {
				session := testSession()
				session.SessionToken = sessionToken

				command, err := NewCommand(session, endpoint, method)
				assert.Equal(t, nil, err)

				assert.Equal(t, true, strings.HasPrefix(command.Path(), ApiVersionPathPrefix))
				assert.Equal(t, method, command.Method())
				assert.Equal(t, fmt.Sprintf("https://api.example.com%s", command.Path()), command.Target())

				appId, ok := command.Header(HeaderApplicationId)
				assert.Equal(t, true, ok)
				assert.Equal(t, "test-app", appId)

				headerToken, ok := command.Header(HeaderSessionToken)
				// present if and only if a token was supplied
				assert.Equal(t, sessionToken != "", ok)
				assert.Equal(t, sessionToken, headerToken)
			}
		}
	}
}

func TestCommandSessionTokenOverride(t *testing.T) {
	session := testSession()
	session.SessionToken = "r:default"

	command, err := NewCommand(session, "users/me", "GET", WithSessionToken("r:override"))
	assert.Equal(t, nil, err)
	headerToken, ok := command.Header(HeaderSessionToken)
	assert.Equal(t, true, ok)
	assert.Equal(t, "r:override", headerToken)

	// an empty override removes the session header for this command
	command, err = NewCommand(session, "users/me", "GET", WithSessionToken(""))
	assert.Equal(t, nil, err)
	_, ok = command.Header(HeaderSessionToken)
	assert.Equal(t, false, ok)
}

func TestCommandReservedHeaders(t *testing.T) {
	command, err := NewCommand(
		testSession(),
		"classes/Player",
		"GET",
		WithHeader(HeaderApplicationId, "spoofed"),
		WithHeader("X-Custom", "yes"),
	)
	assert.Equal(t, nil, err)

	appId, _ := command.Header(HeaderApplicationId)
	assert.Equal(t, "test-app", appId)

	custom, ok := command.Header("X-Custom")
	assert.Equal(t, true, ok)
	assert.Equal(t, "yes", custom)
}

func TestCommandMasterKeyHeader(t *testing.T) {
	session := testSession()
	session.MasterKey = "master-1"

	command, err := NewCommand(session, "classes/Player", "GET")
	assert.Equal(t, nil, err)

	masterKey, ok := command.Header(HeaderMasterKey)
	assert.Equal(t, true, ok)
	assert.Equal(t, "master-1", masterKey)
}

func TestCommandValidation(t *testing.T) {
	_, err := NewCommand(testSession(), "classes/Player", "PATCH")
	assert.NotEqual(t, nil, err)

	_, err = NewCommand(testSession(), "", "GET")
	assert.NotEqual(t, nil, err)

	_, err = NewCommand(nil, "classes/Player", "GET")
	assert.NotEqual(t, nil, err)
}

func TestCommandBody(t *testing.T) {
	body := map[string]any{"name": "ada"}
	command, err := NewCommand(testSession(), "classes/Player", "POST", WithBody(body))
	assert.Equal(t, nil, err)
	assert.Equal(t, body, command.Body())

	// endpoints with or without a leading slash resolve the same
	slashCommand, err := NewCommand(testSession(), "/classes/Player", "POST")
	assert.Equal(t, nil, err)
	assert.Equal(t, "/1/classes/Player", slashCommand.Path())
}
