package api

import (
	"fmt"
	"strings"

	"vrpsolver/internal/model"
	"vrpsolver/internal/opt"
)

const minutesPerDay = 24 * 60

// validateOptimizeRequest checks req before it reaches the engine. It may
// normalize req in place; the returned warnings describe what was changed.
func validateOptimizeRequest(req *model.OptimizeRequest) ([]string, error) {
	var warnings []string
	if len(req.Locations) == 0 {
		return nil, fmt.Errorf("locations must contain at least the depot")
	}
	if len(req.Demands) != len(req.Locations) {
		return nil, fmt.Errorf("demands has %d entries but there are %d locations", len(req.Demands), len(req.Locations))
	}
	if len(req.Vehicles) == 0 {
		return nil, fmt.Errorf("at least one vehicle is required")
	}
	for i, loc := range req.Locations {
		if loc.Latitude < -90 || loc.Latitude > 90 {
			return nil, fmt.Errorf("locations[%d].latitude out of range: %v", i, loc.Latitude)
		}
		if loc.Longitude < -180 || loc.Longitude > 180 {
			return nil, fmt.Errorf("locations[%d].longitude out of range: %v", i, loc.Longitude)
		}
		if loc.ServiceTime < 0 {
			return nil, fmt.Errorf("locations[%d].serviceTime must be >= 0", i)
		}
		// windows are ignored entirely unless the request turns them on
		if !req.UseTimeWindows {
			continue
		}
		for _, b := range []*int{loc.TimeWindowStart, loc.TimeWindowEnd} {
			if b != nil && (*b < 0 || *b > minutesPerDay) {
				return nil, fmt.Errorf("locations[%d]: time window must lie within [0,%d] minutes", i, minutesPerDay)
			}
		}
		if loc.TimeWindowStart != nil && loc.TimeWindowEnd != nil && *loc.TimeWindowStart > *loc.TimeWindowEnd {
			return nil, fmt.Errorf("locations[%d]: timeWindowStart %d after timeWindowEnd %d", i, *loc.TimeWindowStart, *loc.TimeWindowEnd)
		}
	}
	for i, d := range req.Demands {
		if d < 0 {
			return nil, fmt.Errorf("demands[%d] must be >= 0", i)
		}
	}
	if req.Demands[0] != 0 {
		warnings = append(warnings, fmt.Sprintf("depot demand %d ignored", req.Demands[0]))
		req.Demands[0] = 0
	}
	seen := make(map[string]struct{}, len(req.Vehicles))
	for i, v := range req.Vehicles {
		id := strings.TrimSpace(string(v.ID))
		if id == "" {
			return nil, fmt.Errorf("vehicles[%d].id is required", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate vehicle id %q", id)
		}
		seen[id] = struct{}{}
		if v.Capacity <= 0 {
			return nil, fmt.Errorf("vehicles[%d].capacity must be > 0", i)
		}
	}
	if req.TimeLimitSeconds != nil && (*req.TimeLimitSeconds < 1 || *req.TimeLimitSeconds > 600) {
		return nil, fmt.Errorf("timeLimitSeconds must be in [1,600]")
	}
	if req.TrafficFactor != nil && *req.TrafficFactor <= 0 {
		return nil, fmt.Errorf("trafficFactor must be > 0")
	}
	if err := validateStrategy(req.Metaheuristic, req.FirstSolution); err != nil {
		return nil, err
	}
	if len(req.SolveID) > 128 {
		return nil, fmt.Errorf("solveId must be at most 128 characters")
	}
	return warnings, nil
}

func validateStrategy(meta, first string) error {
	switch opt.Metaheuristic(meta) {
	case "", opt.GreedyDescent, opt.GuidedLocalSearch, opt.ALNS:
	default:
		return fmt.Errorf("invalid metaheuristic: %s (allowed: greedy_descent, guided_local_search, alns)", meta)
	}
	switch opt.FirstSolution(first) {
	case "", opt.PathCheapestArc, opt.Savings:
	default:
		return fmt.Errorf("invalid firstSolution: %s (allowed: path_cheapest_arc, savings)", first)
	}
	return nil
}
