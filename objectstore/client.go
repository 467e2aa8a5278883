package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// high level facade over the command runner. one client per backend
// application; safe for concurrent use.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc

	session         *Session
	installationIds *InstallationIdProvider
	runner          *CommandRunner
}

func NewClient(session *Session) *Client {
	return NewClientWithContext(context.Background(), session)
}

func NewClientWithContext(ctx context.Context, session *Session) *Client {
	installationIds := NewInstallationIdProvider(NewMemoryStorage())
	runner := NewCommandRunner(NewHttpTransport(), installationIds, DefaultRunnerSettings())
	return NewClientWithRunner(ctx, session, installationIds, runner)
}

func NewClientWithRunner(
	ctx context.Context,
	session *Session,
	installationIds *InstallationIdProvider,
	runner *CommandRunner,
) *Client {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &Client{
		ctx:             cancelCtx,
		cancel:          cancel,
		session:         session,
		installationIds: installationIds,
		runner:          runner,
	}
}

// this gets attached to subsequent commands
func (self *Client) SetSessionToken(sessionToken string) {
	self.session.SessionToken = sessionToken
}

func (self *Client) InstallationIds() *InstallationIdProvider {
	return self.installationIds
}

// cancels all in-flight commands issued through this client
func (self *Client) Close() {
	self.cancel()
}

type CreateObjectResult struct {
	ObjectId  string `json:"objectId"`
	CreatedAt string `json:"createdAt"`
}

type CreateObjectCallback resultCallback[*CreateObjectResult]

func (self *Client) CreateObject(className string, fields map[string]any) (*CreateObjectResult, error) {
	command, err := NewCommand(
		self.session,
		fmt.Sprintf("classes/%s", className),
		"POST",
		WithBody(fields),
	)
	if err != nil {
		return nil, err
	}
	result, err := self.runner.Run(self.ctx, command)
	if err != nil {
		return nil, err
	}
	return decodeResult[CreateObjectResult](result)
}

func (self *Client) CreateObjectAsync(className string, fields map[string]any, callback CreateObjectCallback) {
	go func() {
		result, err := self.CreateObject(className, fields)
		callback.Result(result, err)
	}()
}

func (self *Client) GetObject(className string, objectId string) (map[string]any, error) {
	command, err := NewCommand(
		self.session,
		fmt.Sprintf("classes/%s/%s", className, objectId),
		"GET",
	)
	if err != nil {
		return nil, err
	}
	result, err := self.runner.Run(self.ctx, command)
	if err != nil {
		return nil, err
	}
	return result.Body, nil
}

type UpdateObjectResult struct {
	UpdatedAt string `json:"updatedAt"`
}

type UpdateObjectCallback resultCallback[*UpdateObjectResult]

// sends the pending operations for the object as one save round-trip.
// the pending set is cleared on success.
func (self *Client) UpdateObject(
	className string,
	objectId string,
	pending *PendingOperationSet,
) (*UpdateObjectResult, error) {
	command, err := NewCommand(
		self.session,
		fmt.Sprintf("classes/%s/%s", className, objectId),
		"PUT",
		WithBody(pending.Payload()),
	)
	if err != nil {
		return nil, err
	}
	result, err := self.runner.Run(self.ctx, command)
	if err != nil {
		return nil, err
	}
	updateResult, err := decodeResult[UpdateObjectResult](result)
	if err != nil {
		return nil, err
	}
	pending.Clear()
	return updateResult, nil
}

func (self *Client) UpdateObjectAsync(
	className string,
	objectId string,
	pending *PendingOperationSet,
	callback UpdateObjectCallback,
) {
	go func() {
		result, err := self.UpdateObject(className, objectId, pending)
		callback.Result(result, err)
	}()
}

func (self *Client) DeleteObject(className string, objectId string) error {
	command, err := NewCommand(
		self.session,
		fmt.Sprintf("classes/%s/%s", className, objectId),
		"DELETE",
	)
	if err != nil {
		return err
	}
	_, err = self.runner.Run(self.ctx, command)
	return err
}

// runs a simple constraint query. full query-language support is out
// of scope; the where mapping is passed through json-encoded.
func (self *Client) QueryObjects(className string, where map[string]any) ([]map[string]any, error) {
	endpoint := fmt.Sprintf("classes/%s", className)
	if where != nil {
		whereJson, err := json.Marshal(where)
		if err != nil {
			return nil, err
		}
		endpoint = fmt.Sprintf("%s?where=%s", endpoint, url.QueryEscape(string(whereJson)))
	}
	command, err := NewCommand(self.session, endpoint, "GET")
	if err != nil {
		return nil, err
	}
	result, err := self.runner.Run(self.ctx, command)
	if err != nil {
		return nil, err
	}

	results, _ := result.Body["results"].([]any)
	objects := []map[string]any{}
	for _, item := range results {
		if object, ok := item.(map[string]any); ok {
			objects = append(objects, object)
		}
	}
	return objects, nil
}

func decodeResult[R any](result *CommandResult) (*R, error) {
	resultBytes, err := json.Marshal(result.Body)
	if err != nil {
		return nil, err
	}
	decoded := new(R)
	if err := json.Unmarshal(resultBytes, decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}
