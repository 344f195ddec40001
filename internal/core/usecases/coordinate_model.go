package usecases

import "github.com/samirrijal/pinpoint/internal/core/domain"

// Update is one replacement of the current point.
type Update struct {
	Coordinate domain.Coordinate
	Source     domain.UpdateSource
	// FlyZoom > 0 flies the primary map to the point at that zoom; otherwise
	// the map is re-centred at its current zoom.
	FlyZoom int
	// ClearRoute drops the stale "d" query key tied to the previous point.
	ClearRoute bool
}

// CoordinateModel owns the single current point of a session. It is not
// safe for concurrent use; a Session confines it to its loop goroutine.
//
// There is no merging or sequencing: whichever adapter completes last wins.
type CoordinateModel struct {
	current   *domain.Coordinate
	source    domain.UpdateSource
	listeners []modelListener
	nextID    int
}

type modelListener struct {
	id int
	fn func(u *Update)
}

// NewCoordinateModel returns an empty model (marker absent).
func NewCoordinateModel() *CoordinateModel {
	return &CoordinateModel{}
}

// Set replaces the current point.
func (m *CoordinateModel) Set(c domain.Coordinate) {
	m.Apply(Update{Coordinate: c})
}

// Apply replaces the current point and notifies listeners with the update.
func (m *CoordinateModel) Apply(u Update) {
	c := u.Coordinate
	m.current = &c
	m.source = u.Source
	m.notify(&u)
}

// Clear removes the marker. Listeners receive a nil update.
func (m *CoordinateModel) Clear() {
	if m.current == nil {
		return
	}
	m.current = nil
	m.source = ""
	m.notify(nil)
}

// Get returns a copy of the current point, or nil when no marker is set.
func (m *CoordinateModel) Get() *domain.Coordinate {
	if m.current == nil {
		return nil
	}
	c := *m.current
	return &c
}

// Source reports which channel produced the current point.
func (m *CoordinateModel) Source() domain.UpdateSource {
	return m.source
}

// OnChange registers fn and returns a func that removes it.
func (m *CoordinateModel) OnChange(fn func(u *Update)) func() {
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, modelListener{id: id, fn: fn})
	return func() {
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *CoordinateModel) notify(u *Update) {
	for _, l := range append([]modelListener(nil), m.listeners...) {
		l.fn(u)
	}
}
