package domain

// StreetViewHeading and StreetViewPitch are the point of view the panorama
// opens with.
const (
	StreetViewHeading = 165
	StreetViewPitch   = 0
)

// StreetViewUnavailable is shown in place of the panorama.
const StreetViewUnavailable = "Street View Not Available"

// StreetView describes the panorama nearest to a point. Status is the
// provider's metadata status; only "OK" carries a panorama.
type StreetView struct {
	Available bool        `json:"available"`
	Status    string      `json:"status"`
	Requested Coordinate  `json:"requested"`
	PanoID    string      `json:"pano_id,omitempty"`
	Location  *Coordinate `json:"location,omitempty"`
	Date      string      `json:"date,omitempty"`
	Copyright string      `json:"copyright,omitempty"`
	Heading   int         `json:"heading"`
	Pitch     int         `json:"pitch"`
	// PanoURL opens the panorama in Google Maps.
	PanoURL string `json:"pano_url,omitempty"`
	// Message is set when no panorama is available.
	Message string `json:"message,omitempty"`
}
