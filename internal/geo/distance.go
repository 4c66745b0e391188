package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// Distance returns the haversine great-circle distance in kilometres.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push a slightly above 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Box is a latitude/longitude rectangle. When HasLongitude is false the box
// only constrains latitude.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
	HasLongitude   bool
}

// Contains reports whether the point lies inside the box.
func (b Box) Contains(lat, lon float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	if !b.HasLongitude {
		return true
	}
	return lon >= b.MinLon && lon <= b.MaxLon
}

// BoundingBox returns a box that contains every point within radiusKm of the
// center. It is a cheap pre-filter, Distance stays authoritative.
func BoundingBox(lat, lon, radiusKm float64) Box {
	dLat := radiusKm / EarthRadiusKm * 180 / math.Pi
	box := Box{
		MinLat: math.Max(-90, lat-dLat),
		MaxLat: math.Min(90, lat+dLat),
	}

	// Near a pole every longitude can be within reach.
	if box.MinLat <= -90 || box.MaxLat >= 90 {
		return box
	}

	cosLat := math.Cos(toRadians(math.Max(math.Abs(box.MinLat), math.Abs(box.MaxLat))))
	dLon := dLat / cosLat
	box.MinLon = lon - dLon
	box.MaxLon = lon + dLon
	// Crossing the antimeridian: latitude bound only.
	if box.MinLon < -180 || box.MaxLon > 180 {
		box.MinLon, box.MaxLon = 0, 0
		return box
	}
	box.HasLongitude = true

	return box
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
