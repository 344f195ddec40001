package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/pinpoint/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "unavailable", msg)
}

// errorStatus maps a domain error onto an HTTP status and error code.
func errorStatus(err error) (int, string) {
	var geoErr *domain.GeolocationError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return 404, "not_found"
	case errors.Is(err, domain.ErrSessionClosed):
		return 410, "session_closed"
	case errors.Is(err, domain.ErrInvalidInput):
		return 400, "bad_request"
	case errors.Is(err, domain.ErrNoMarker):
		return 409, "no_marker"
	case errors.Is(err, domain.ErrGeocodeMiss):
		return 422, "geocode_miss"
	case errors.Is(err, domain.ErrGeocodeFailed):
		return 502, "geocode_failed"
	case errors.Is(err, domain.ErrStreetViewFailed):
		return 502, "streetview_failed"
	case errors.Is(err, domain.ErrSessionLimit):
		return 503, "session_limit"
	case errors.Is(err, domain.ErrStreetViewDisabled):
		return 503, "unavailable"
	case errors.As(err, &geoErr):
		return 422, "geolocation_" + geoErr.Kind()
	case errors.Is(err, context.DeadlineExceeded):
		return 504, "timeout"
	default:
		return 500, "internal_error"
	}
}

// errFromDomain renders err with the status errorStatus picks. Geolocation
// failures carry the user-facing description.
func errFromDomain(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	msg := err.Error()
	var geoErr *domain.GeolocationError
	if errors.As(err, &geoErr) {
		msg = geoErr.Description()
	}
	if status == 500 {
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	}
	return newError(c, status, code, msg)
}
