package opt

import (
	"fmt"
	"math"
)

// RouteRecord describes one used vehicle's route. Every slice is aligned to
// Path, which starts and ends at the depot.
type RouteRecord struct {
	VehicleIndex    int
	VehicleID       string
	Path            []int
	Load            int
	CumulativeLoads []int
	DistanceMeters  int
	DistanceKm      float64
	DurationSeconds int
	ArrivalSeconds  []int
	ServiceSeconds  []int
}

// Summary aggregates the extracted routes.
type Summary struct {
	VehiclesUsed    int
	TotalDistanceKm float64
}

// RoundKm converts meters to kilometers rounded to two decimals.
func RoundKm(meters int) float64 {
	return round2(float64(meters) / 1000)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Extract walks every non-empty route of res and assembles its record.
// Vehicles that never leave the depot are left out.
func (m *Model) Extract(res Result) ([]RouteRecord, Summary, error) {
	var out []RouteRecord
	total := 0.0
	for v, route := range res.Routes {
		if len(route) == 0 {
			continue
		}
		cumul, ok := m.schedule(route)
		if !ok {
			return nil, Summary{}, fmt.Errorf("route of vehicle %s violates the time dimension", m.vehicles[v].ID)
		}
		path := make([]int, 0, len(route)+2)
		path = append(path, 0)
		path = append(path, route...)
		path = append(path, 0)

		loads := make([]int, len(path))
		service := make([]int, len(path))
		load := 0
		for k, node := range path {
			load += m.stops[node].Demand
			loads[k] = load
			service[k] = m.stops[node].ServiceSec
		}
		if load > m.vehicles[v].Capacity {
			return nil, Summary{}, fmt.Errorf("route of vehicle %s carries %d over capacity %d", m.vehicles[v].ID, load, m.vehicles[v].Capacity)
		}
		meters := m.routeDistance(route)
		rec := RouteRecord{
			VehicleIndex:    v,
			VehicleID:       m.vehicles[v].ID,
			Path:            path,
			Load:            load,
			CumulativeLoads: loads,
			DistanceMeters:  meters,
			DistanceKm:      RoundKm(meters),
			DurationSeconds: cumul[len(cumul)-1] - cumul[0],
			ArrivalSeconds:  cumul,
			ServiceSeconds:  service,
		}
		total += rec.DistanceKm
		out = append(out, rec)
	}
	return out, Summary{VehiclesUsed: len(out), TotalDistanceKm: round2(total)}, nil
}
