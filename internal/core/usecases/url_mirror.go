package usecases

import (
	"net/url"
	"strconv"

	"github.com/samirrijal/pinpoint/internal/core/domain"
)

// Query keys owned by the mirror.
const (
	queryPoint = "p"
	queryZoom  = "z"
	queryRoute = "d"
	queryStep  = "step"
)

// URLSnapshot is what Read recovers from the page URL. Either field may be nil.
type URLSnapshot struct {
	Coordinate *domain.Coordinate
	Zoom       *int
}

// URLWrite is a partial write. Nil fields leave their key untouched.
type URLWrite struct {
	Coordinate *domain.Coordinate
	Zoom       *int
	// ClearPoint removes "p" (marker cleared).
	ClearPoint bool
	Delete     []string
}

// URLMirror keeps the page query string in step with the session. It reads
// the query once at mount; later changes flow only from the session to the
// URL and are emitted as history replacements.
type URLMirror struct {
	settings domain.MapSettings
	values   url.Values
	encoded  string
	replace  func(query string)
}

// NewURLMirror parses the query the page was mounted with. An unparsable
// query is treated as empty.
func NewURLMirror(rawQuery string, settings domain.MapSettings, replace func(query string)) *URLMirror {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		values = url.Values{}
	}
	if replace == nil {
		replace = func(string) {}
	}
	return &URLMirror{
		settings: settings,
		values:   values,
		encoded:  values.Encode(),
		replace:  replace,
	}
}

// Read returns the coordinate and zoom currently encoded in the URL.
// Malformed or out-of-range values read as absent; zoom is clamped.
func (m *URLMirror) Read() URLSnapshot {
	var snap URLSnapshot
	if p := m.values.Get(queryPoint); p != "" {
		if c, ok, err := domain.ParseCoordinate(p); ok && err == nil {
			snap.Coordinate = &c
		}
	}
	if zs := m.values.Get(queryZoom); zs != "" {
		if z, err := strconv.Atoi(zs); err == nil {
			z = m.settings.ClampZoom(z)
			snap.Zoom = &z
		}
	}
	return snap
}

// Write applies w and emits a replace when the encoded query changed.
func (m *URLMirror) Write(w URLWrite) {
	if w.Coordinate != nil {
		m.values.Set(queryPoint, w.Coordinate.String())
	}
	if w.ClearPoint {
		m.values.Del(queryPoint)
	}
	if w.Zoom != nil {
		m.values.Set(queryZoom, strconv.Itoa(m.settings.ClampZoom(*w.Zoom)))
	}
	for _, k := range w.Delete {
		m.values.Del(k)
	}

	encoded := m.values.Encode()
	if encoded == m.encoded {
		return
	}
	m.encoded = encoded
	m.replace(encoded)
}

// Query returns the encoded query string.
func (m *URLMirror) Query() string {
	return m.encoded
}

// Get returns a pass-through value such as "step" or a form field.
func (m *URLMirror) Get(key string) string {
	return m.values.Get(key)
}

// PassThrough returns a copy of every key the mirror does not own.
func (m *URLMirror) PassThrough() url.Values {
	out := url.Values{}
	for k, v := range m.values {
		switch k {
		case queryPoint, queryZoom, queryRoute:
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}
