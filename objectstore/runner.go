package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang/glog"
)

// produced only after the response has been validated: a 2xx status
// and a json body decoded to a mapping. array bodies are normalized
// to {"results": [...]}.
type CommandResult struct {
	StatusCode int
	Body       map[string]any
}

type RunnerSettings struct {
	// transient failures are retried up to this many times after the
	// initial attempt
	MaxRetries           int
	InitialRetryDelay    time.Duration
	MaxRetryDelay        time.Duration
	RetryDelayMultiplier float64
}

func DefaultRunnerSettings() *RunnerSettings {
	return &RunnerSettings{
		MaxRetries:           3,
		InitialRetryDelay:    500 * time.Millisecond,
		MaxRetryDelay:        8 * time.Second,
		RetryDelayMultiplier: 2,
	}
}

type resultCallback[R any] interface {
	Result(result R, err error)
}

// for internal use
type simpleResultCallback[R any] struct {
	callback func(result R, err error)
}

func NewResultCallback[R any](callback func(result R, err error)) resultCallback[R] {
	return &simpleResultCallback[R]{
		callback: callback,
	}
}

func NewNoopResultCallback[R any]() resultCallback[R] {
	return &simpleResultCallback[R]{
		callback: func(result R, err error) {},
	}
}

func (self *simpleResultCallback[R]) Result(result R, err error) {
	self.callback(result, err)
}

type CallbackResult[R any] struct {
	Result R
	Error  error
}

func NewBlockingResultCallback[R any]() (resultCallback[R], chan CallbackResult[R]) {
	c := make(chan CallbackResult[R])
	callback := NewResultCallback[R](func(result R, err error) {
		c <- CallbackResult[R]{
			Result: result,
			Error:  err,
		}
	})
	return callback, c
}

type RunCallback resultCallback[*CommandResult]

// executes commands against the backend: attaches the installation
// identity and session headers, hands the request to the transport,
// classifies the result, and retries transient failures with a capped
// increasing delay. owns no persistent state.
type CommandRunner struct {
	transport       Transport
	installationIds *InstallationIdProvider
	settings        *RunnerSettings
}

func NewCommandRunner(
	transport Transport,
	installationIds *InstallationIdProvider,
	settings *RunnerSettings,
) *CommandRunner {
	if settings == nil {
		settings = DefaultRunnerSettings()
	}
	return &CommandRunner{
		transport:       transport,
		installationIds: installationIds,
		settings:        settings,
	}
}

// callers receive either a decoded success mapping or a typed
// *ApiError. a context error means the run was cancelled, which is
// distinct from success and failure.
func (self *CommandRunner) Run(ctx context.Context, command *Command) (*CommandResult, error) {
	return self.RunWithProgress(ctx, command, nil, nil)
}

func (self *CommandRunner) RunAsync(ctx context.Context, command *Command, callback RunCallback) {
	go func() {
		result, err := self.Run(ctx, command)
		callback.Result(result, err)
	}()
}

func (self *CommandRunner) RunWithProgress(
	ctx context.Context,
	command *Command,
	uploadProgress ProgressFunc,
	downloadProgress ProgressFunc,
) (*CommandResult, error) {
	var bodyBytes []byte
	if command.Body() != nil {
		var err error
		bodyBytes, err = json.Marshal(command.Body())
		if err != nil {
			return nil, err
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = self.settings.InitialRetryDelay
	b.RandomizationFactor = 0
	b.Multiplier = self.settings.RetryDelayMultiplier
	b.MaxInterval = self.settings.MaxRetryDelay

	for attempt := 0; ; attempt += 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := self.attempt(ctx, command, bodyBytes, uploadProgress, downloadProgress)
		if err == nil {
			return result, nil
		}
		// once cancelled, no further retries are scheduled
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		apiError, ok := err.(*ApiError)
		if !ok {
			return nil, err
		}
		if !apiError.Retryable() || self.settings.MaxRetries <= attempt {
			return nil, apiError
		}

		delay := b.NextBackOff()
		glog.V(1).Infof(
			"[runner]%s %s attempt %d failed (%s), retry in %s\n",
			command.Method(), command.Path(), attempt+1, apiError, delay,
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (self *CommandRunner) attempt(
	ctx context.Context,
	command *Command,
	bodyBytes []byte,
	uploadProgress ProgressFunc,
	downloadProgress ProgressFunc,
) (*CommandResult, error) {
	installationId, err := self.installationIds.Get(ctx)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if bodyBytes != nil {
		bodyReader = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(ctx, command.Method(), command.Target(), bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for _, header := range command.Headers() {
		req.Header.Set(header.Name, header.Value)
	}
	req.Header.Set(HeaderInstallationId, installationId.String())

	statusCode, body, err := self.transport.Execute(ctx, req, uploadProgress, downloadProgress)
	if err != nil {
		return nil, newConnectionError(err)
	}
	return interpretResponse(statusCode, body)
}

func interpretResponse(statusCode int, body string) (*CommandResult, error) {
	if 200 <= statusCode && statusCode < 300 {
		decoded, err := decodeResponseBody(body)
		if err != nil {
			// a success status with a garbage body indicates a server
			// bug, not a transient condition
			return nil, newApiError(ErrorMalformedResponse, statusCode, err.Error())
		}
		return &CommandResult{
			StatusCode: statusCode,
			Body:       decoded,
		}, nil
	}
	return nil, decodeErrorBody(statusCode, body)
}

func decodeResponseBody(body string) (map[string]any, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return map[string]any{}, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return nil, err
	}
	switch v := decoded.(type) {
	case map[string]any:
		return v, nil
	case []any:
		// callers always receive a mapping-shaped result
		return map[string]any{"results": v}, nil
	}
	return nil, fmt.Errorf("response body is not a mapping or array")
}

func decodeErrorBody(statusCode int, body string) *ApiError {
	var decoded struct {
		Code  int    `json:"code"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &decoded); err == nil && decoded.Code != 0 {
		return newApiError(errorCodeFromServer(decoded.Code), statusCode, decoded.Error)
	}

	message := strings.TrimSpace(body)
	if message == "" {
		message = http.StatusText(statusCode)
	}
	if 500 <= statusCode {
		return newApiError(ErrorInternalServer, statusCode, message)
	}
	return newApiError(ErrorOtherCause, statusCode, message)
}
