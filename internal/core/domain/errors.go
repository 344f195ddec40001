package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks unparsable or out-of-range client input. It is
	// ignored locally and never changes state.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGeocodeMiss means the geocoder answered but found nothing.
	ErrGeocodeMiss = errors.New("geocode: no results")

	// ErrGeocodeFailed covers non-OK geocoder statuses and transport failures.
	ErrGeocodeFailed = errors.New("geocode: request failed")

	// ErrStreetViewFailed covers Street View metadata lookups that neither
	// found nor ruled out a panorama.
	ErrStreetViewFailed   = errors.New("streetview: request failed")
	ErrStreetViewDisabled = errors.New("streetview: not configured")

	// ErrEngineNotReady is returned by basemap engines that have not finished
	// loading. Overlays handle it through deferred registration.
	ErrEngineNotReady = errors.New("basemap engine not ready")

	ErrNoMarker        = errors.New("no marker selected")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
	ErrSessionLimit    = errors.New("too many open sessions")

	ErrConfirmationNotFound = errors.New("confirmation not found")
)

// GeolocationCode mirrors the device geolocation error codes.
type GeolocationCode int

const (
	GeoPermissionDenied    GeolocationCode = 1
	GeoPositionUnavailable GeolocationCode = 2
	GeoTimeout             GeolocationCode = 3
)

// GeolocationError is a failed one-shot device position request.
type GeolocationError struct {
	Code    GeolocationCode `json:"code"`
	Message string          `json:"message"`
}

func (e *GeolocationError) Error() string {
	return fmt.Sprintf("geolocation %s: %s", e.Kind(), e.Message)
}

// Kind names the failure class: permission, device or timeout.
func (e *GeolocationError) Kind() string {
	switch e.Code {
	case GeoPermissionDenied:
		return "permission"
	case GeoPositionUnavailable:
		return "device"
	case GeoTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Hint is the user-facing advice attached to the failure.
func (e *GeolocationError) Hint() string {
	switch e.Code {
	case GeoPermissionDenied:
		return "Please grant the location permission to search using your location"
	case GeoPositionUnavailable:
		return "Encountered an error with your GPS device"
	default:
		return "An error occurred while trying to get your current location"
	}
}

// Description joins the device message and the hint for display.
func (e *GeolocationError) Description() string {
	if e.Message == "" {
		return e.Hint()
	}
	return e.Message + ". " + e.Hint()
}
