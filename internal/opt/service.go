package opt

import "math"

// ServiceSeconds returns the handling time at stop index i. A positive
// override (minutes) wins; otherwise the depot takes no time and every other
// stop takes the base minutes plus its demand at the unloading rate.
func ServiceSeconds(cfg Config, i, demand int, overrideMin float64) int {
	if overrideMin > 0 {
		return int(math.Round(overrideMin * 60))
	}
	if i == 0 {
		return 0
	}
	minutes := cfg.BaseServiceMinutes + float64(demand)/cfg.UnitsPerMinute
	return int(math.Round(minutes * 60))
}

// ServiceTimes computes ServiceSeconds for every stop. overridesMin may be
// shorter than demands or nil.
func ServiceTimes(cfg Config, demands []int, overridesMin []float64) []int {
	out := make([]int, len(demands))
	for i, d := range demands {
		var o float64
		if i < len(overridesMin) {
			o = overridesMin[i]
		}
		out[i] = ServiceSeconds(cfg, i, d, o)
	}
	return out
}
