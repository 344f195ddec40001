package usecases

import (
	"errors"
	"log/slog"
	"time"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/ports"
)

// An engine can report itself ready to the registry and still refuse a map
// for a moment (a vendor session renewal, for one). Such overlays retry.
const (
	overlayInitAttempts = 5
	overlayInitBackoff  = 250 * time.Millisecond
)

// OverlayState is the lifecycle of one basemap overlay.
type OverlayState int

const (
	OverlayUninitialized OverlayState = iota
	OverlayReady
	OverlayAttached
	OverlaySynced
	OverlayRemoved
)

func (s OverlayState) String() string {
	switch s {
	case OverlayUninitialized:
		return "uninitialized"
	case OverlayReady:
		return "ready"
	case OverlayAttached:
		return "attached"
	case OverlaySynced:
		return "synced"
	case OverlayRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// BasemapBridge keeps one secondary basemap overlay aligned with the primary
// map. It reads the primary viewport and never writes to it.
//
// All methods run on the owning session's loop.
type BasemapBridge struct {
	engine   ports.BasemapEngine
	registry *BasemapRegistry
	primary  *PrimaryMap
	post     func(func())
	sink     func(domain.BasemapFrame)
	logger   *slog.Logger

	active *basemapOverlay
}

// NewBasemapBridge wires a bridge. post schedules work on the session loop.
func NewBasemapBridge(engine ports.BasemapEngine, registry *BasemapRegistry, primary *PrimaryMap,
	post func(func()), sink func(domain.BasemapFrame), logger *slog.Logger) *BasemapBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &BasemapBridge{
		engine:   engine,
		registry: registry,
		primary:  primary,
		post:     post,
		sink:     sink,
		logger:   logger,
	}
}

// Attach switches the active variant. The previous overlay is removed with
// its container and listeners before the new one is constructed.
func (b *BasemapBridge) Attach(variant domain.BasemapVariant) {
	if b.active != nil && b.active.variant == variant && b.active.state != OverlayRemoved {
		return
	}
	b.Remove()

	o := &basemapOverlay{bridge: b, variant: variant}
	b.active = o
	if b.registry.Register(o) {
		o.initialize()
	} else {
		b.logger.Debug("basemap engine loading, overlay deferred", "variant", variant)
	}
}

// Resync pushes the primary center and zoom into the active overlay.
func (b *BasemapBridge) Resync() {
	if b.active != nil {
		b.active.resync()
	}
}

// Resize matches the overlay container to the primary map.
func (b *BasemapBridge) Resize() {
	if b.active != nil {
		b.active.resize()
	}
}

// Remove tears down the active overlay.
func (b *BasemapBridge) Remove() {
	if b.active != nil {
		b.active.remove()
	}
}

// State reports the active overlay's state.
func (b *BasemapBridge) State() OverlayState {
	if b.active == nil {
		return OverlayUninitialized
	}
	return b.active.state
}

// Variant returns the selected variant, or the default before any Attach.
func (b *BasemapBridge) Variant() domain.BasemapVariant {
	if b.active == nil {
		return domain.DefaultBasemap
	}
	return b.active.variant
}

type basemapOverlay struct {
	bridge  *BasemapBridge
	variant domain.BasemapVariant
	state   OverlayState
	m       ports.BasemapMap
	size    domain.Size
	center  domain.Coordinate
	zoom    int
	off     []func()

	attempts int
}

// Size implements ports.Container.
func (o *basemapOverlay) Size() domain.Size { return o.size }

// Promote implements Promotable.
func (o *basemapOverlay) Promote() {
	o.bridge.post(func() {
		if o.state == OverlayUninitialized {
			o.initialize()
		}
	})
}

func (o *basemapOverlay) initialize() {
	b := o.bridge
	o.size = b.primary.Size()
	o.attempts++
	m, err := b.engine.NewMap(o.variant, o, b.sink)
	if err != nil {
		if errors.Is(err, domain.ErrEngineNotReady) {
			if !b.registry.Register(o) {
				return
			}
			if o.attempts < overlayInitAttempts {
				o.retryLater()
				return
			}
		}
		b.logger.Warn("basemap overlay init failed", "variant", o.variant, "attempts", o.attempts, "error", err)
		return
	}
	o.m = m
	o.state = OverlayReady

	o.off = append(o.off, b.primary.OnMove(o.resync), b.primary.OnResize(o.resize))
	o.state = OverlayAttached
	o.resync()
}

func (o *basemapOverlay) retryLater() {
	b := o.bridge
	delay := time.Duration(o.attempts) * overlayInitBackoff
	b.logger.Debug("basemap engine refused overlay, retrying", "variant", o.variant, "delay", delay)
	time.AfterFunc(delay, func() {
		b.post(func() {
			if b.active == o && o.state == OverlayUninitialized {
				o.initialize()
			}
		})
	})
}

func (o *basemapOverlay) resync() {
	if o.state != OverlayAttached && o.state != OverlaySynced {
		return
	}
	o.resize()

	center, zoom := o.bridge.primary.Center(), o.bridge.primary.Zoom()
	if o.state == OverlaySynced && center == o.center && zoom == o.zoom {
		return
	}
	o.m.SetCenter(center)
	o.m.SetZoom(zoom)
	o.center, o.zoom = center, zoom
	o.state = OverlaySynced
}

func (o *basemapOverlay) resize() {
	if o.m == nil || o.state == OverlayRemoved {
		return
	}
	size := o.bridge.primary.Size()
	if size == o.size {
		return
	}
	o.size = size
	o.m.TriggerResize()
}

func (o *basemapOverlay) remove() {
	if o.state == OverlayRemoved {
		return
	}
	for _, off := range o.off {
		off()
	}
	o.off = nil
	if o.m != nil {
		o.m.Remove()
	}
	if o.state == OverlayUninitialized {
		o.bridge.registry.Unregister(o)
	}
	o.state = OverlayRemoved
}
