package ports

import (
	"context"
	"errors"

	"github.com/samirrijal/pinpoint/internal/core/domain"
)

// ErrNoResponders is returned by EventBus.Request when nobody listens on
// the subject.
var ErrNoResponders = errors.New("no responders")

// Message is a bus delivery. Respond is nil unless the sender expects a reply.
type Message struct {
	Subject string
	Data    []byte
	Respond func(data []byte) error
}

// EventBus carries session events and device request/reply traffic.
type EventBus interface {
	Publish(ctx context.Context, subject string, data []byte) error
	// Subscribe delivers messages in publish order. The returned func
	// cancels the subscription.
	Subscribe(subject string, handler func(msg Message)) (func(), error)
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// ConfirmationPublisher announces archived confirmations to downstream
// consumers.
type ConfirmationPublisher interface {
	PublishConfirmation(ctx context.Context, c *domain.Confirmation) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// PlaceService is the country-restricted places provider.
type PlaceService interface {
	Suggest(ctx context.Context, input, sessionToken string) ([]domain.Suggestion, error)
	// Resolve returns the place for a suggestion. Geometry may be nil.
	Resolve(ctx context.Context, placeID, sessionToken string) (*domain.Place, error)
	// FindPlace returns nil, nil when nothing matches.
	FindPlace(ctx context.Context, text string) (*domain.Place, error)
}

// ReverseGeocoder returns the provider's raw reverse-geocoding response.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, c domain.Coordinate) (*domain.GeocodeResponse, error)
}

// StreetViewService reports whether a panorama exists near a point. A missing
// panorama is data (Available=false), not an error.
type StreetViewService interface {
	StreetView(ctx context.Context, c domain.Coordinate) (*domain.StreetView, error)
}

// Geolocator performs a single device position request. Failures are
// *domain.GeolocationError.
type Geolocator interface {
	CurrentPosition(ctx context.Context, sessionID string) (domain.Coordinate, error)
}

// ConfirmationArchiver records a successful handoff out of band.
type ConfirmationArchiver interface {
	Archive(ctx context.Context, c domain.Confirmation) error
}

// Container is the overlay element the basemap engine renders into.
type Container interface {
	Size() domain.Size
}

// BasemapEngine builds secondary maps once its vendor resources are loaded.
type BasemapEngine interface {
	Ready() bool
	NewMap(variant domain.BasemapVariant, container Container, sink func(domain.BasemapFrame)) (BasemapMap, error)
	Variants() []domain.BasemapInfo
}

// BasemapMap is one secondary map instance. It caches the container size
// and only re-reads it on TriggerResize.
type BasemapMap interface {
	SetCenter(c domain.Coordinate)
	SetZoom(z int)
	TriggerResize()
	Remove()
}
