package usecases

import "github.com/samirrijal/pinpoint/internal/core/domain"

// PrimaryMap mirrors the viewport of the page's primary renderer. Commands
// (SetView, FlyTo) are emitted to the page; reports (Report, Resize, Hover)
// come from it. Move and resize listeners fire for both.
//
// Synchronisation is one-directional: listeners may read the primary map
// but nothing downstream writes back into the coordinate model.
type PrimaryMap struct {
	settings domain.MapSettings
	view     domain.Viewport
	emit     func(domain.EventType, any)

	moveListeners   []viewListener
	resizeListeners []viewListener
	nextID          int
}

type viewListener struct {
	id int
	fn func()
}

// NewPrimaryMap starts the viewport at center/zoom. emit may be nil.
func NewPrimaryMap(settings domain.MapSettings, center domain.Coordinate, zoom int, emit func(domain.EventType, any)) *PrimaryMap {
	if emit == nil {
		emit = func(domain.EventType, any) {}
	}
	return &PrimaryMap{
		settings: settings,
		view: domain.Viewport{
			Center: center,
			Zoom:   settings.ClampZoom(zoom),
			Cursor: center,
		},
		emit: emit,
	}
}

func (m *PrimaryMap) Center() domain.Coordinate { return m.view.Center }
func (m *PrimaryMap) Zoom() int                 { return m.view.Zoom }
func (m *PrimaryMap) Size() domain.Size         { return m.view.Size }
func (m *PrimaryMap) Viewport() domain.Viewport { return m.view }

// SetView re-centres the map without animation.
func (m *PrimaryMap) SetView(c domain.Coordinate, zoom int) {
	m.reposition(domain.EventSetView, c, zoom)
}

// FlyTo animates the map to c at zoom.
func (m *PrimaryMap) FlyTo(c domain.Coordinate, zoom int) {
	m.reposition(domain.EventFlyTo, c, zoom)
}

func (m *PrimaryMap) reposition(kind domain.EventType, c domain.Coordinate, zoom int) {
	m.view.Center = c
	m.view.Zoom = m.settings.ClampZoom(zoom)
	m.emit(kind, domain.ViewCommand{Center: m.view.Center, Zoom: m.view.Zoom})
	m.fire(m.moveListeners)
}

// Report records a pan or zoom performed by the user on the page.
func (m *PrimaryMap) Report(center domain.Coordinate, zoom int) {
	m.view.Center = m.settings.MaxBounds.Clamp(center)
	m.view.Zoom = m.settings.ClampZoom(zoom)
	m.fire(m.moveListeners)
}

// Resize records a new container size.
func (m *PrimaryMap) Resize(size domain.Size) {
	m.view.Size = size
	m.fire(m.resizeListeners)
}

// Hover tracks the pointer position.
func (m *PrimaryMap) Hover(c domain.Coordinate) {
	m.view.Cursor = c
}

// OnMove registers fn for "view changed" and returns its removal func.
func (m *PrimaryMap) OnMove(fn func()) func() {
	return m.listen(&m.moveListeners, fn)
}

// OnResize registers fn for container resizes and returns its removal func.
func (m *PrimaryMap) OnResize(fn func()) func() {
	return m.listen(&m.resizeListeners, fn)
}

func (m *PrimaryMap) listen(list *[]viewListener, fn func()) func() {
	m.nextID++
	id := m.nextID
	*list = append(*list, viewListener{id: id, fn: fn})
	return func() {
		for i, l := range *list {
			if l.id == id {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return
			}
		}
	}
}

func (m *PrimaryMap) fire(list []viewListener) {
	for _, l := range append([]viewListener(nil), list...) {
		l.fn()
	}
}
