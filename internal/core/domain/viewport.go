package domain

// MapSettings holds the fixed parameters of the picker map.
type MapSettings struct {
	DefaultCenter Coordinate
	DefaultZoom   int
	MinZoom       int
	MaxZoom       int
	CloseUpZoom   int
	MaxBounds     Bounds
	Country       string
}

// DefaultMapSettings returns the settings used when nothing is configured:
// a Nigeria-wide view restricted to the country's bounding box.
func DefaultMapSettings() MapSettings {
	return MapSettings{
		DefaultCenter: Coordinate{Lat: 9.1715156, Lng: 4.0128317},
		DefaultZoom:   6,
		MinZoom:       6,
		MaxZoom:       18,
		CloseUpZoom:   16,
		MaxBounds:     Bounds{MinLat: 4, MinLng: 2.5, MaxLat: 14, MaxLng: 15},
		Country:       "ng",
	}
}

// ClampZoom keeps z within [MinZoom, MaxZoom].
func (s MapSettings) ClampZoom(z int) int {
	if z < s.MinZoom {
		return s.MinZoom
	}
	if z > s.MaxZoom {
		return s.MaxZoom
	}
	return z
}

// Viewport is the visible region of the primary map plus the pointer position.
// Cursor follows hover and never feeds the marker.
type Viewport struct {
	Center Coordinate `json:"center"`
	Zoom   int        `json:"zoom"`
	Cursor Coordinate `json:"cursor"`
	Size   Size       `json:"size"`
}

var scalesByZoom = [...]string{
	"1 : 500,000,000",
	"1 : 250,000,000",
	"1 : 150,000,000",
	"1 : 70,000,000",
	"1 : 35,000,000",
	"1 : 15,000,000",
	"1 : 10,000,000",
	"1 : 4,000,000",
	"1 : 2,000,000",
	"1 : 1,000,000",
	"1 : 500,000",
	"1 : 250,000",
	"1 : 150,000",
	"1 : 70,000",
	"1 : 35,000",
	"1 : 15,000",
	"1 : 8,000",
	"1 : 4,000",
	"1 : 2,000",
	"1 : 1,000",
}

// ScaleForZoom returns the approximate map scale label shown in the status bar.
func ScaleForZoom(z int) string {
	if z < 0 {
		z = 0
	}
	if z >= len(scalesByZoom) {
		z = len(scalesByZoom) - 1
	}
	return scalesByZoom[z]
}
