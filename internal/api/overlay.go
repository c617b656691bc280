package api

import (
	"encoding/json"
	"fmt"
	"time"

	"vrpsolver/internal/opt"
)

// tenantOverlay is the per-tenant optimizer config stored by the admin
// endpoint. Unset fields keep the service defaults.
type tenantOverlay struct {
	AvgSpeedKmh        *float64 `json:"avgSpeedKmh"`
	BaseServiceMinutes *float64 `json:"baseServiceMinutes"`
	UnitsPerMinute     *float64 `json:"unitsPerMinute"`
	DepotStartSeconds  *int     `json:"depotStartSeconds"`
	TimeLimitSeconds   *int     `json:"timeLimitSeconds"`
	TrafficFactor      *float64 `json:"trafficFactor"`
	Metaheuristic      string   `json:"metaheuristic"`
	FirstSolution      string   `json:"firstSolution"`
}

func parseOverlay(raw map[string]any) (tenantOverlay, error) {
	var o tenantOverlay
	if len(raw) == 0 {
		return o, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(b, &o); err != nil {
		return o, fmt.Errorf("optimizer config: %w", err)
	}
	if o.TimeLimitSeconds != nil && (*o.TimeLimitSeconds < 1 || *o.TimeLimitSeconds > 600) {
		return o, fmt.Errorf("optimizer config: timeLimitSeconds must be in [1,600]")
	}
	if o.TrafficFactor != nil && *o.TrafficFactor <= 0 {
		return o, fmt.Errorf("optimizer config: trafficFactor must be > 0")
	}
	if err := validateStrategy(o.Metaheuristic, o.FirstSolution); err != nil {
		return o, fmt.Errorf("optimizer config: %w", err)
	}
	return o, nil
}

// apply returns base with the overlay fields set. base is not modified.
func (o tenantOverlay) apply(base opt.Config) (opt.Config, error) {
	cfg := base
	if o.AvgSpeedKmh != nil {
		cfg.AvgSpeedKmh = *o.AvgSpeedKmh
	}
	if o.BaseServiceMinutes != nil {
		cfg.BaseServiceMinutes = *o.BaseServiceMinutes
	}
	if o.UnitsPerMinute != nil {
		cfg.UnitsPerMinute = *o.UnitsPerMinute
	}
	if o.DepotStartSeconds != nil {
		cfg.DepotStartSec = *o.DepotStartSeconds
	}
	if o.TimeLimitSeconds != nil {
		cfg.DefaultTimeLimit = time.Duration(*o.TimeLimitSeconds) * time.Second
	}
	if err := cfg.Validate(); err != nil {
		return base, fmt.Errorf("optimizer config: %w", err)
	}
	return cfg, nil
}
