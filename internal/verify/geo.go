package verify

import (
	"math"

	"herbledger/pkg/domain"
)

const earthRadiusKM = 6371

// haversineKM returns the great-circle distance between two coordinates in
// kilometers.
func haversineKM(a, b domain.Location) float64 {
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// insideKnownRegion reports whether loc lies within any configured region.
// An empty region list accepts every coordinate.
func insideKnownRegion(regions []Region, loc domain.Location) bool {
	if len(regions) == 0 {
		return true
	}
	for _, r := range regions {
		if haversineKM(r.Center, loc) <= r.RadiusKM {
			return true
		}
	}
	return false
}
