package objectstore

import (
	"fmt"
)

// numeric error codes carried by the backend in error bodies,
// plus the client-side kinds (connection failed, malformed response)
// that never come off the wire with a code
type ErrorCode int

const (
	// non-2xx response whose body could not be decoded, or an
	// unrecognized server code
	ErrorOtherCause ErrorCode = -1

	ErrorInternalServer       ErrorCode = 1
	ErrorConnectionFailed     ErrorCode = 100
	ErrorObjectNotFound       ErrorCode = 101
	ErrorInvalidQuery         ErrorCode = 102
	ErrorInvalidClassName     ErrorCode = 103
	ErrorMissingObjectId      ErrorCode = 104
	ErrorInvalidKeyName       ErrorCode = 105
	ErrorMalformedResponse    ErrorCode = 107
	ErrorCommandUnavailable   ErrorCode = 108
	ErrorIncorrectType        ErrorCode = 111
	ErrorObjectTooLarge       ErrorCode = 116
	ErrorOperationForbidden   ErrorCode = 119
	ErrorTimeout              ErrorCode = 124
	ErrorInvalidEmailAddress  ErrorCode = 125
	ErrorDuplicateValue       ErrorCode = 137
	ErrorRequestLimitExceeded ErrorCode = 155
	ErrorUsernameTaken        ErrorCode = 202
	ErrorEmailTaken           ErrorCode = 203
	ErrorSessionMissing       ErrorCode = 206
	ErrorInvalidSessionToken  ErrorCode = 209
)

var serverErrorCodes = map[int]ErrorCode{
	1:   ErrorInternalServer,
	101: ErrorObjectNotFound,
	102: ErrorInvalidQuery,
	103: ErrorInvalidClassName,
	104: ErrorMissingObjectId,
	105: ErrorInvalidKeyName,
	107: ErrorMalformedResponse,
	108: ErrorCommandUnavailable,
	111: ErrorIncorrectType,
	116: ErrorObjectTooLarge,
	119: ErrorOperationForbidden,
	124: ErrorTimeout,
	125: ErrorInvalidEmailAddress,
	137: ErrorDuplicateValue,
	155: ErrorRequestLimitExceeded,
	202: ErrorUsernameTaken,
	203: ErrorEmailTaken,
	206: ErrorSessionMissing,
	209: ErrorInvalidSessionToken,
}

// maps a server-declared numeric code to a taxonomy kind
func errorCodeFromServer(code int) ErrorCode {
	if errorCode, ok := serverErrorCodes[code]; ok {
		return errorCode
	}
	return ErrorOtherCause
}

// the single failure type surfaced by the command runner
// callers never observe a raw transport error or a raw non-2xx status
type ApiError struct {
	Code       ErrorCode
	StatusCode int
	Message    string
	cause      error
}

func newApiError(code ErrorCode, statusCode int, message string) *ApiError {
	return &ApiError{
		Code:       code,
		StatusCode: statusCode,
		Message:    message,
	}
}

func newConnectionError(cause error) *ApiError {
	return &ApiError{
		Code:    ErrorConnectionFailed,
		Message: cause.Error(),
		cause:   cause,
	}
}

func (self *ApiError) Error() string {
	if self.StatusCode != 0 {
		return fmt.Sprintf("api error %d (http %d): %s", self.Code, self.StatusCode, self.Message)
	}
	return fmt.Sprintf("api error %d: %s", self.Code, self.Message)
}

func (self *ApiError) Unwrap() error {
	return self.cause
}

// only connection failures and 5xx responses are retried
func (self *ApiError) Retryable() bool {
	return self.Code == ErrorConnectionFailed || 500 <= self.StatusCode
}
