package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/pinpoint/internal/core/ports"
	"github.com/samirrijal/pinpoint/internal/core/usecases"
)

// Pinger is a backing service the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers. Everything except
// Picker and Bus is optional.
type Dependencies struct {
	Picker        *usecases.PickerService
	Bus           ports.EventBus
	Confirmations ports.ConfirmationRepository
	Forms         ports.FormStore
	NATS          *nats.Conn
	DB            Pinger
	Cache         Pinger
	// RateLimit is requests per minute per IP; 0 uses the default.
	RateLimit int
}
