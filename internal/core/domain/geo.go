package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinate is a WGS84 point. Values are immutable once built; every update
// produces a new Coordinate.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports ErrInvalidInput for non-finite or out-of-range values.
func (c Coordinate) Validate() error {
	if !finite(c.Lat) || !finite(c.Lng) {
		return fmt.Errorf("%w: coordinate must be finite", ErrInvalidInput)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidInput, c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidInput, c.Lng)
	}
	return nil
}

// String formats the coordinate as "lat,lng" using the shortest
// representation that parses back to the same floats.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// ParseCoordinate reads a literal "lat,lng" pair.
//
// ok is false when the text is not exactly two finite numeric tokens; callers
// fall back to a place lookup in that case. A numeric pair outside the valid
// range returns ok=true together with an ErrInvalidInput error.
func ParseCoordinate(text string) (c Coordinate, ok bool, err error) {
	parts := strings.Split(strings.TrimSpace(text), ",")
	if len(parts) != 2 {
		return Coordinate{}, false, nil
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || !finite(lat) {
		return Coordinate{}, false, nil
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || !finite(lng) {
		return Coordinate{}, false, nil
	}
	c = Coordinate{Lat: lat, Lng: lng}
	if err := c.Validate(); err != nil {
		return c, true, err
	}
	return c, true, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Contains reports whether c lies inside the box, edges included.
func (b Bounds) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}

// Clamp pulls c onto the nearest point inside the box.
func (b Bounds) Clamp(c Coordinate) Coordinate {
	return Coordinate{
		Lat: math.Min(math.Max(c.Lat, b.MinLat), b.MaxLat),
		Lng: math.Min(math.Max(c.Lng, b.MinLng), b.MaxLng),
	}
}

// Size is a container size in CSS pixels.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// MaxContainerSize bounds either edge of a reported container.
const MaxContainerSize = 8192

// Validate reports ErrInvalidInput for negative edges or edges larger than
// MaxContainerSize.
func (s Size) Validate() error {
	if s.W < 0 || s.H < 0 {
		return fmt.Errorf("%w: size must not be negative", ErrInvalidInput)
	}
	if s.W > MaxContainerSize || s.H > MaxContainerSize {
		return fmt.Errorf("%w: size must be at most %dpx per edge", ErrInvalidInput, MaxContainerSize)
	}
	return nil
}
