package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bloggera/bloggera/internal/domain"
)

// Error codes
const (
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccessDenied       = "ACCESS_DENIED"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeGatewayTimeout     = "GATEWAY_TIMEOUT"
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeNetworkError       = "NETWORK_ERROR"
	CodeCircuitOpen        = "CIRCUIT_OPEN"
	CodeMalformedResponse  = "MALFORMED_RESPONSE"
	CodeUnknownError       = "UNKNOWN_ERROR"
)

// Error is the normalized form of every failed backend call.
// It unwraps to one of the domain sentinels and, for transport failures, to the cause.
type Error struct {
	Endpoint   string
	Status     int
	Code       string
	Message    string
	Retryable  bool
	RetryAfter time.Duration
	RequestID  string

	kind  error
	cause error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Endpoint, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

func (e *Error) Unwrap() []error {
	errs := []error{e.kind}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

type statusMapping struct {
	code       string
	message    string
	kind       error
	retryable  bool
	retryAfter time.Duration
}

var statusMappings = map[int]statusMapping{
	http.StatusBadRequest:          {CodeBadRequest, "The request was rejected as invalid", domain.ErrValidation, false, 0},
	http.StatusUnprocessableEntity: {CodeBadRequest, "The request was rejected as invalid", domain.ErrValidation, false, 0},
	http.StatusUnauthorized:        {CodeInvalidCredentials, "Invalid credentials or expired session", domain.ErrAuth, false, 0},
	http.StatusForbidden:           {CodeAccessDenied, "Access to this resource is denied", domain.ErrAuth, false, 0},
	http.StatusNotFound:            {CodeNotFound, "The requested resource was not found", domain.ErrNotFound, false, 0},
	http.StatusTooManyRequests:     {CodeRateLimitExceeded, "Rate limit exceeded, please slow down", domain.ErrNetwork, true, 60 * time.Second},
	http.StatusInternalServerError: {CodeInternalError, "The Bloggera API failed to handle the request", domain.ErrNetwork, true, 5 * time.Second},
	http.StatusBadGateway:          {CodeBackendUnavailable, "The Bloggera API is temporarily unavailable", domain.ErrNetwork, true, 5 * time.Second},
	http.StatusServiceUnavailable:  {CodeServiceUnavailable, "The Bloggera API is temporarily unavailable", domain.ErrNetwork, true, 10 * time.Second},
	http.StatusGatewayTimeout:      {CodeGatewayTimeout, "The Bloggera API timed out", domain.ErrNetwork, true, 10 * time.Second},
}

// serverMessage is the error body shape the backend answers with.
type serverMessage struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func normalizeResponse(endpoint, requestID string, resp *resty.Response) *Error {
	status := resp.StatusCode()
	mapping, ok := statusMappings[status]
	if !ok {
		mapping = statusMapping{code: CodeUnknownError, message: "An unexpected error occurred", kind: domain.ErrNetwork}
		if status >= 400 && status < 500 {
			mapping.kind = domain.ErrValidation
		} else {
			mapping.retryable = true
		}
	}

	e := &Error{
		Endpoint:   endpoint,
		Status:     status,
		Code:       mapping.code,
		Message:    mapping.message,
		Retryable:  mapping.retryable,
		RetryAfter: mapping.retryAfter,
		RequestID:  requestID,
		kind:       mapping.kind,
	}

	var body serverMessage
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		if msg := strings.TrimSpace(body.Message); msg != "" {
			e.Message = msg
		} else if msg := strings.TrimSpace(body.Error); msg != "" {
			e.Message = msg
		}
	}

	if header := resp.Header().Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			e.RetryAfter = time.Duration(seconds) * time.Second
		}
	}

	return e
}

func networkError(endpoint, requestID string, cause error) *Error {
	return &Error{
		Endpoint:   endpoint,
		Code:       CodeNetworkError,
		Message:    "Unable to reach the Bloggera API",
		Retryable:  true,
		RetryAfter: 5 * time.Second,
		RequestID:  requestID,
		kind:       domain.ErrNetwork,
		cause:      cause,
	}
}

func circuitOpenError(endpoint, requestID string, cause error) *Error {
	return &Error{
		Endpoint:   endpoint,
		Code:       CodeCircuitOpen,
		Message:    "The Bloggera API is failing; requests are paused",
		Retryable:  true,
		RetryAfter: 30 * time.Second,
		RequestID:  requestID,
		kind:       domain.ErrNetwork,
		cause:      cause,
	}
}

func malformedError(endpoint, requestID string, cause error) *Error {
	return &Error{
		Endpoint:  endpoint,
		Code:      CodeMalformedResponse,
		Message:   "The Bloggera API returned an unreadable response",
		Retryable: true,
		RequestID: requestID,
		kind:      domain.ErrNetwork,
		cause:     cause,
	}
}

// IsRetryable reports whether err is a normalized error worth retrying.
func IsRetryable(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}

// MessageOf returns the human-readable message of a normalized error, or err.Error().
func MessageOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
