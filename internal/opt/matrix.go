package opt

import "math"

const earthRadiusM = 6371000.0

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// HaversineMeters returns the great-circle distance between a and b.
func HaversineMeters(a, b LatLng) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// DistanceMatrix builds the whole-meter distance matrix for points. Each pair
// is computed once so the result is exactly symmetric.
func DistanceMatrix(points []LatLng) [][]int {
	n := len(points)
	m := make([][]int, n)
	for i := range m {
		m[i] = make([]int, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := int(HaversineMeters(points[i], points[j]))
			m[i][j] = d
			m[j][i] = d
		}
	}
	return m
}

// TravelSeconds converts a distance to whole seconds of driving, inflated by
// trafficFactor.
func TravelSeconds(distM int, speedMps, trafficFactor float64) int {
	return int((float64(distM) / speedMps) * trafficFactor)
}

// TravelMatrix applies TravelSeconds to every entry of dist.
func TravelMatrix(dist [][]int, speedMps, trafficFactor float64) [][]int {
	out := make([][]int, len(dist))
	for i, row := range dist {
		out[i] = make([]int, len(row))
		for j, d := range row {
			if i != j {
				out[i][j] = TravelSeconds(d, speedMps, trafficFactor)
			}
		}
	}
	return out
}
