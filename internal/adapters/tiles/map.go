package tiles

import (
	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/ports"
	"github.com/samirrijal/pinpoint/internal/pkg/geospatial"
	"github.com/samirrijal/pinpoint/internal/pkg/metrics"
)

// Map is one rendered overlay. Like a browser map widget it caches its
// container size and only re-reads it on TriggerResize. Calls must come
// from a single goroutine.
type Map struct {
	engine    *Engine
	variant   domain.BasemapVariant
	container ports.Container
	sink      func(domain.BasemapFrame)

	size    domain.Size
	center  domain.Coordinate
	zoom    int // -1 until the first SetZoom
	removed bool
}

func (m *Map) SetCenter(c domain.Coordinate) {
	if m.removed || c == m.center {
		return
	}
	m.center = c
	m.render()
}

func (m *Map) SetZoom(z int) {
	if m.removed || z == m.zoom {
		return
	}
	m.zoom = z
	m.render()
}

func (m *Map) TriggerResize() {
	if m.removed {
		return
	}
	size := m.container.Size()
	if size == m.size {
		return
	}
	m.size = size
	m.render()
}

func (m *Map) Remove() {
	m.removed = true
	m.sink = nil
}

// Frame computes the tiles covering the cached size at the current view.
func (m *Map) Frame() domain.BasemapFrame {
	f := domain.BasemapFrame{
		Variant: m.variant,
		Center:  m.center,
		Zoom:    m.zoom,
		Size:    m.size,
	}
	src, ok := m.engine.source(m.variant)
	if !ok || m.zoom < 0 {
		return f
	}
	f.Attribution = src.attribution
	placed := geospatial.CoveringTiles(m.center.Lat, m.center.Lng, m.zoom, m.size.W, m.size.H)
	f.Tiles = make([]domain.Tile, 0, len(placed))
	for _, t := range placed {
		f.Tiles = append(f.Tiles, domain.Tile{
			X:    t.X,
			Y:    t.Y,
			Z:    t.Zoom,
			URL:  src.urlFor(t.Zoom, t.X, t.Y),
			Left: t.Left,
			Top:  t.Top,
		})
	}
	return f
}

func (m *Map) render() {
	if m.zoom < 0 || m.sink == nil {
		return
	}
	m.sink(m.Frame())
	metrics.BasemapFrames.WithLabelValues(string(m.variant)).Inc()
}
