package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes Microsoft Graph commonly returns in error bodies.
// See the documented error-code vocabulary of the Graph API.
const (
	CodeItemNotFound          = "itemNotFound"
	CodeNameAlreadyExists     = "nameAlreadyExists"
	CodeAccessDenied          = "accessDenied"
	CodeInvalidRequest        = "invalidRequest"
	CodeActivityLimitReached  = "activityLimitReached"
	CodeServiceNotAvailable   = "serviceNotAvailable"
	CodeQuotaLimitReached     = "quotaLimitReached"
	CodeResyncRequired        = "resyncRequired"
	CodeGeneralException      = "generalException"
	codeMissingMonitorURL     = "missingMonitorUrl"
	codeUnexpectedStatusValue = "unexpectedStatus"
)

// ErrCopyTimeout is returned when an asynchronous copy does not reach a
// terminal state within the configured polling budget. It is distinct from a
// remote failure so callers can decide to keep polling out-of-band.
var ErrCopyTimeout = errors.New("copy operation timed out")

// Error is a classified error returned by the Graph API.
type Error struct {
	// Code is the Graph error code (e.g. "itemNotFound"), or a synthesized
	// code when the response body carried no parseable error.
	Code string

	// HTTPStatus is the HTTP status of the failing response.
	HTTPStatus int

	// Message is the human-readable message from the error body.
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("graph: %s (http %d): %s", e.Code, e.HTTPStatus, e.Message)
}

// IsNotFound reports whether err is a Graph itemNotFound error.
func IsNotFound(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && (ge.Code == CodeItemNotFound || ge.HTTPStatus == http.StatusNotFound)
}

// IsRetryableStatus reports whether an HTTP status is one the client retries.
// Only throttling (429) and transient unavailability (503) are retried; all
// other non-2xx statuses are terminal.
func IsRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// errorBody is the wire shape of a Graph error response.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// parseError converts a non-2xx response into an *Error. Bodies that do not
// carry the documented {"error":{code,message}} shape yield a generic
// transport error with the HTTP status preserved.
func parseError(status int, body []byte) *Error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error.Code != "" {
		return &Error{
			Code:       eb.Error.Code,
			HTTPStatus: status,
			Message:    eb.Error.Message,
		}
	}

	msg := http.StatusText(status)
	if len(body) > 0 {
		const maxErrBody = 512
		if len(body) > maxErrBody {
			body = body[:maxErrBody]
		}
		msg = string(body)
	}

	return &Error{
		Code:       CodeGeneralException,
		HTTPStatus: status,
		Message:    msg,
	}
}
