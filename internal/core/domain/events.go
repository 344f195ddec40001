package domain

import "time"

// EventType tags messages on a session's event stream.
type EventType string

const (
	EventState        EventType = "state"
	EventURLReplace   EventType = "url_replace"
	EventSetView      EventType = "set_view"
	EventFlyTo        EventType = "fly_to"
	EventBasemapFrame EventType = "basemap_frame"
	EventNotification EventType = "notification"
	EventNavigate     EventType = "navigate"
	EventGeolocate    EventType = "geolocate"
)

// Event is one message delivered to the page driving a session.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Seq       uint64    `json:"seq"`
	At        time.Time `json:"at"`
	Payload   any       `json:"payload,omitempty"`
}

// ViewCommand repositions the primary map.
type ViewCommand struct {
	Center Coordinate `json:"center"`
	Zoom   int        `json:"zoom"`
}

// URLReplace asks the page to replace its history entry with Query.
type URLReplace struct {
	Query string `json:"query"`
}

// Notification is a dismissible message shown to the user.
type Notification struct {
	Level       string `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Navigate sends the page to another route.
type Navigate struct {
	URL string `json:"url"`
}

// GeolocationRequest is relayed to the device when a position is needed.
type GeolocationRequest struct {
	SessionID string `json:"session_id"`
	TimeoutMS int64  `json:"timeout_ms"`
}

// GeolocationCoords is the success payload of a device position request.
type GeolocationCoords struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GeolocationReply is the device answer: exactly one of Coords or Error.
type GeolocationReply struct {
	Coords *GeolocationCoords `json:"coords,omitempty"`
	Error  *GeolocationError  `json:"error,omitempty"`
}

// SessionSubject returns the bus subject carrying a session's events.
func SessionSubject(sessionID string) string {
	return "picker.session." + sessionID + ".events"
}

// GeolocateSubject returns the request/reply subject used to reach the
// device behind a session.
func GeolocateSubject(sessionID string) string {
	return "picker.session." + sessionID + ".geolocate"
}

// ConfirmationSubject carries archived confirmation announcements.
func ConfirmationSubject(confirmationID string) string {
	return "picker.confirmations." + confirmationID
}
