package geospatial

import "math"

// TileSize is the edge of a Web Mercator raster tile in pixels.
const TileSize = 256

// MaxLatitude is the Web Mercator latitude limit.
const MaxLatitude = 85.0511287798

// TileCoordinate addresses one tile in the XYZ scheme.
type TileCoordinate struct {
	Zoom int
	X    int // column, west to east
	Y    int // row, north to south
}

// Project converts a WGS84 point to global pixel coordinates at zoom.
func Project(lat, lng float64, zoom int) (x, y float64) {
	lat = math.Max(math.Min(lat, MaxLatitude), -MaxLatitude)
	world := float64(TileSize) * math.Exp2(float64(zoom))
	sin := math.Sin(toRad(lat))
	x = (lng + 180) / 360 * world
	y = (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * world
	return x, y
}

// Unproject converts global pixel coordinates back to WGS84.
func Unproject(x, y float64, zoom int) (lat, lng float64) {
	world := float64(TileSize) * math.Exp2(float64(zoom))
	lng = x/world*360 - 180
	lat = mercatorToLat(math.Pi * (1 - 2*y/world))
	return lat, lng
}

func mercatorToLat(mercatorY float64) float64 {
	return 180.0 / math.Pi * math.Atan(math.Sinh(mercatorY))
}

// PlacedTile is a tile and the pixel offset of its top-left corner
// relative to the viewport's top-left corner.
type PlacedTile struct {
	TileCoordinate
	Left int
	Top  int
}

// CoveringTiles returns the tiles needed to fill a w×h viewport centred on
// (lat, lng). Columns wrap around the antimeridian and each world column
// appears at most once; rows outside the world are skipped.
func CoveringTiles(lat, lng float64, zoom, w, h int) []PlacedTile {
	if w <= 0 || h <= 0 {
		return nil
	}
	cx, cy := Project(lat, lng, zoom)
	originX := cx - float64(w)/2
	originY := cy - float64(h)/2

	n := 1 << uint(zoom)
	minX := int(math.Floor(originX / TileSize))
	maxX := int(math.Floor((originX + float64(w) - 1) / TileSize))
	minY := int(math.Floor(originY / TileSize))
	maxY := int(math.Floor((originY + float64(h) - 1) / TileSize))

	// A viewport wider than the world repeats columns; keep one copy of each.
	if maxX-minX+1 > n {
		maxX = minX + n - 1
	}
	minY = max(minY, 0)
	maxY = min(maxY, n-1)
	if maxY < minY {
		return nil
	}

	tiles := make([]PlacedTile, 0, (maxX-minX+1)*(maxY-minY+1))
	for ty := minY; ty <= maxY; ty++ {
		for tx := minX; tx <= maxX; tx++ {
			wrapped := ((tx % n) + n) % n
			tiles = append(tiles, PlacedTile{
				TileCoordinate: TileCoordinate{Zoom: zoom, X: wrapped, Y: ty},
				Left:           int(math.Round(float64(tx*TileSize) - originX)),
				Top:            int(math.Round(float64(ty*TileSize) - originY)),
			})
		}
	}
	return tiles
}
