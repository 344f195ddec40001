package domain

import "fmt"

// BasemapVariant selects the imagery of the secondary tile layer.
type BasemapVariant string

const (
	BasemapRoad      BasemapVariant = "road"
	BasemapSatellite BasemapVariant = "satellite"
	BasemapHybrid    BasemapVariant = "hybrid"
	BasemapTerrain   BasemapVariant = "terrain"
)

// DefaultBasemap is active when a session mounts.
const DefaultBasemap = BasemapRoad

// BasemapVariants lists every selectable variant in display order.
func BasemapVariants() []BasemapVariant {
	return []BasemapVariant{BasemapRoad, BasemapSatellite, BasemapHybrid, BasemapTerrain}
}

// ParseBasemapVariant validates a client-supplied variant name.
func ParseBasemapVariant(s string) (BasemapVariant, error) {
	switch v := BasemapVariant(s); v {
	case BasemapRoad, BasemapSatellite, BasemapHybrid, BasemapTerrain:
		return v, nil
	case "":
		return DefaultBasemap, nil
	default:
		return "", fmt.Errorf("%w: unknown basemap %q", ErrInvalidInput, s)
	}
}

// BasemapInfo describes a variant for clients building a layer switcher.
type BasemapInfo struct {
	Variant     BasemapVariant `json:"variant"`
	Label       string         `json:"label"`
	Attribution string         `json:"attribution"`
	Default     bool           `json:"default"`
}

// Tile is one 256px raster tile of a basemap frame.
type Tile struct {
	X   int    `json:"x"`
	Y   int    `json:"y"`
	Z   int    `json:"z"`
	URL string `json:"url"`
	// Pixel offset of the tile's top-left corner inside the container.
	Left int `json:"left"`
	Top  int `json:"top"`
}

// BasemapFrame is the set of tiles covering the overlay container for the
// current center and zoom.
type BasemapFrame struct {
	Variant     BasemapVariant `json:"variant"`
	Center      Coordinate     `json:"center"`
	Zoom        int            `json:"zoom"`
	Size        Size           `json:"size"`
	Tiles       []Tile         `json:"tiles"`
	Attribution string         `json:"attribution,omitempty"`
}
