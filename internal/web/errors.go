package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bloggera/bloggera/internal/apiclient"
	"github.com/bloggera/bloggera/internal/compose"
	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/guard"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable"`
	Reload    bool   `json:"reload,omitempty"`
	Redirect  string `json:"redirect,omitempty"`
}

const genericMessage = "Something went wrong. Reload the page to try again."

// mapError converts an error into a status and body.
func mapError(err error) (int, ErrorDetail) {
	var (
		ve      *domain.ValidationError
		authErr *domain.AuthError
		httpErr *echo.HTTPError
	)

	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ErrorDetail{Code: "VALIDATION_FAILED", Message: ve.Error(), Field: ve.Field}
	case errors.Is(err, domain.ErrNoSession):
		return http.StatusUnauthorized, ErrorDetail{Code: "NOT_LOGGED_IN", Message: "not logged in", Redirect: guard.Landing}
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, ErrorDetail{Code: "AUTH_FAILED", Message: authErr.Message}
	case errors.Is(err, domain.ErrAuth):
		return http.StatusUnauthorized, ErrorDetail{Code: "AUTH_FAILED", Message: apiclient.MessageOf(err)}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrorDetail{Code: "NOT_FOUND", Message: apiclient.MessageOf(err)}
	case errors.Is(err, domain.ErrLoadInFlight),
		errors.Is(err, domain.ErrTogglePending),
		errors.Is(err, compose.ErrSubmitting):
		return http.StatusConflict, ErrorDetail{Code: "IN_PROGRESS", Message: err.Error(), Retryable: true}
	case errors.Is(err, domain.ErrViewClosed):
		return http.StatusConflict, ErrorDetail{Code: "VIEW_CLOSED", Message: err.Error(), Reload: true}
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway, ErrorDetail{Code: "BACKEND_UNAVAILABLE", Message: apiclient.MessageOf(err), Retryable: true}
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, ErrorDetail{Code: "VALIDATION_FAILED", Message: apiclient.MessageOf(err)}
	case errors.As(err, &httpErr):
		msg, ok := httpErr.Message.(string)
		if !ok || httpErr.Code >= http.StatusInternalServerError {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, ErrorDetail{Code: "HTTP_ERROR", Message: msg}
	default:
		return http.StatusInternalServerError, ErrorDetail{Code: "INTERNAL_ERROR", Message: genericMessage, Reload: true}
	}
}

// errorHandler is the top-level error boundary: every handler error and recovered
// panic ends up here and leaves as a JSON body the page can recover from.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, detail := mapError(err)
		ctx := c.Request().Context()
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "request failed", "path", c.Path(), "status", status, "error", err)
		} else {
			logger.DebugContext(ctx, "request rejected", "path", c.Path(), "status", status, "error", err)
		}

		if err := c.JSON(status, ErrorBody{Error: detail}); err != nil {
			logger.ErrorContext(ctx, "writing error response failed", "error", err)
		}
	}
}
