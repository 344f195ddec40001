// Package devicegeo reaches the device behind a picker session to read its
// current position.
package devicegeo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/ports"
)

// DefaultTimeout bounds a single position request.
const DefaultTimeout = 15 * time.Second

// Locator implements ports.Geolocator with a bus request to the session's
// geolocate subject. The page relays it to the browser and replies with a
// domain.GeolocationReply.
type Locator struct {
	bus     ports.EventBus
	timeout time.Duration
}

func NewLocator(bus ports.EventBus, timeout time.Duration) *Locator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Locator{bus: bus, timeout: timeout}
}

// CurrentPosition performs one request with no retry. Every failure is a
// *domain.GeolocationError.
func (l *Locator) CurrentPosition(ctx context.Context, sessionID string) (domain.Coordinate, error) {
	req, err := json.Marshal(domain.GeolocationRequest{
		SessionID: sessionID,
		TimeoutMS: l.timeout.Milliseconds(),
	})
	if err != nil {
		return domain.Coordinate{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	data, err := l.bus.Request(ctx, domain.GeolocateSubject(sessionID), req)
	switch {
	case errors.Is(err, ports.ErrNoResponders):
		return domain.Coordinate{}, &domain.GeolocationError{
			Code:    domain.GeoPositionUnavailable,
			Message: "No device is connected to this session",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return domain.Coordinate{}, &domain.GeolocationError{
			Code:    domain.GeoTimeout,
			Message: "Timeout expired",
		}
	case err != nil:
		return domain.Coordinate{}, &domain.GeolocationError{Code: domain.GeoPositionUnavailable, Message: "Location request failed"}
	}

	var reply domain.GeolocationReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return domain.Coordinate{}, &domain.GeolocationError{
			Code:    domain.GeoPositionUnavailable,
			Message: fmt.Sprintf("malformed device reply: %v", err),
		}
	}
	if reply.Error != nil {
		return domain.Coordinate{}, reply.Error
	}
	if reply.Coords == nil {
		return domain.Coordinate{}, &domain.GeolocationError{Code: domain.GeoPositionUnavailable, Message: "empty device reply"}
	}
	return domain.Coordinate{Lat: reply.Coords.Latitude, Lng: reply.Coords.Longitude}, nil
}
