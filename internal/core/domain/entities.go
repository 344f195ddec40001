package domain

import (
	"net/url"
	"strconv"
	"time"
)

// Place is a resolved places-service result. Geometry is nil when the
// provider returned a place without a location.
type Place struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Address  string      `json:"address,omitempty"`
	Geometry *Coordinate `json:"geometry,omitempty"`
}

// Suggestion is one autocomplete prediction.
type Suggestion struct {
	PlaceID       string `json:"place_id"`
	Description   string `json:"description"`
	MainText      string `json:"main_text,omitempty"`
	SecondaryText string `json:"secondary_text,omitempty"`
}

// AddressComponents are the structured fields derived from reverse geocoding.
// Every field is always present; unresolved ones are empty strings.
type AddressComponents struct {
	HouseNumber string `json:"houseNumber"`
	StreetName  string `json:"streetName"`
	AreaName    string `json:"areaName"`
	LGA         string `json:"lga"`
	State       string `json:"state"`
}

// Handoff is the merged object passed to the enrollment form.
type Handoff struct {
	AddressComponents
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Step      int     `json:"step"`
}

// Fields flattens the handoff into the form's keyed storage shape.
func (h Handoff) Fields() map[string]string {
	return map[string]string{
		"houseNumber": h.HouseNumber,
		"streetName":  h.StreetName,
		"areaName":    h.AreaName,
		"lga":         h.LGA,
		"state":       h.State,
		"latitude":    strconv.FormatFloat(h.Latitude, 'f', -1, 64),
		"longitude":   strconv.FormatFloat(h.Longitude, 'f', -1, 64),
		"step":        strconv.Itoa(h.Step),
	}
}

// Apply overwrites the handoff fields in q.
func (h Handoff) Apply(q url.Values) {
	for k, v := range h.Fields() {
		q.Set(k, v)
	}
}

// Confirmation is the audit record of one successful handoff.
type Confirmation struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	FormKey     string    `json:"form_key"`
	Handoff     Handoff   `json:"handoff"`
	Source      string    `json:"source"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// UpdateSource identifies the input channel that produced a coordinate.
type UpdateSource string

const (
	SourceURL          UpdateSource = "url"
	SourceDrag         UpdateSource = "drag"
	SourceSearch       UpdateSource = "search"
	SourceAutocomplete UpdateSource = "autocomplete"
	SourceGeolocation  UpdateSource = "geolocation"
)

// SessionState is a point-in-time snapshot of a picker session.
type SessionState struct {
	ID         string         `json:"id"`
	Marker     *Coordinate    `json:"marker"`
	Source     UpdateSource   `json:"source,omitempty"`
	Viewport   Viewport       `json:"viewport"`
	Scale      string         `json:"scale"`
	Resolution float64        `json:"resolution"` // meters per pixel at the viewport center
	Basemap    BasemapVariant `json:"basemap"`
	Overlay    string         `json:"overlay"`
	Query      string         `json:"query"`
	FormKey    string         `json:"form_key"`
}
