package objectstore

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

var commandMethods = []string{"GET", "POST", "PUT", "DELETE"}

type Header struct {
	Name  string
	Value string
}

// an immutable description of one remote call
// construction is pure: no network or storage access
type Command struct {
	path    string
	method  string
	headers []Header
	body    map[string]any
	target  string
}

type CommandOption func(*commandOptions)

type commandOptions struct {
	sessionToken    string
	hasSessionToken bool
	headers         []Header
	body            map[string]any
}

// overrides the session context's token for this command only
func WithSessionToken(sessionToken string) CommandOption {
	return func(opts *commandOptions) {
		opts.sessionToken = sessionToken
		opts.hasSessionToken = true
	}
}

func WithHeader(name string, value string) CommandOption {
	return func(opts *commandOptions) {
		opts.headers = append(opts.headers, Header{Name: name, Value: value})
	}
}

func WithBody(body map[string]any) CommandOption {
	return func(opts *commandOptions) {
		opts.body = body
	}
}

// headers owned by the protocol. caller-supplied headers never
// override these.
func reservedHeader(name string) bool {
	switch name {
	case HeaderApplicationId, HeaderClientKey, HeaderMasterKey,
		HeaderSessionToken, HeaderInstallationId, HeaderClientVersion:
		return true
	}
	return false
}

func NewCommand(session *Session, endpoint string, method string, options ...CommandOption) (*Command, error) {
	if session == nil {
		return nil, fmt.Errorf("missing session context")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("missing endpoint")
	}
	if !slices.Contains(commandMethods, method) {
		return nil, fmt.Errorf("unsupported method %s", method)
	}

	opts := &commandOptions{}
	for _, option := range options {
		option(opts)
	}

	sessionToken := session.SessionToken
	if opts.hasSessionToken {
		sessionToken = opts.sessionToken
	}

	headers := session.headers()
	if sessionToken != "" {
		headers = append(headers, Header{Name: HeaderSessionToken, Value: sessionToken})
	}
	for _, header := range opts.headers {
		if reservedHeader(header.Name) {
			continue
		}
		headers = append(headers, header)
	}

	path := ApiVersionPathPrefix + strings.TrimPrefix(endpoint, "/")
	target := strings.TrimSuffix(session.ServerUrl, "/") + path

	return &Command{
		path:    path,
		method:  method,
		headers: headers,
		body:    opts.body,
		target:  target,
	}, nil
}

func (self *Command) Path() string {
	return self.path
}

func (self *Command) Method() string {
	return self.method
}

// a copy, preserving order
func (self *Command) Headers() []Header {
	return slices.Clone(self.headers)
}

func (self *Command) Header(name string) (string, bool) {
	for _, header := range self.headers {
		if header.Name == name {
			return header.Value, true
		}
	}
	return "", false
}

func (self *Command) Body() map[string]any {
	return self.body
}

// the endpoint resolved to an absolute uri
func (self *Command) Target() string {
	return self.target
}
