package geospatial

import "math"

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000
}

// MetersPerPixel is the ground resolution at lat for a Web Mercator zoom.
func MetersPerPixel(lat float64, zoom int) float64 {
	return 2 * math.Pi * earthRadiusKm * 1000 * math.Cos(toRad(lat)) / (TileSize * math.Exp2(float64(zoom)))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
