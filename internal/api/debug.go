package api

import (
	"net/http"
	"time"

	"vrpsolver/internal/buildinfo"
)

// DebugJSON reports build info and the non-secret parts of the config.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	c := s.Cfg
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":             c.Server.Port,
			"APP_ENV":          c.Server.AppEnv,
			"ALLOW_ORIGINS":    c.Server.AllowOrigins,
			"RATE_RPS":         c.Server.RateRPS,
			"RATE_BURST":       c.Server.RateBurst,
			"TRAFFIC_FACTOR":   c.Server.TrafficFactor,
			"AVG_SPEED_KMH":    c.Solver.AvgSpeedKmh,
			"TIME_LIMIT":       c.Solver.DefaultTimeLimit.String(),
			"ORS_PROFILE":      c.ORS.Profile,
			"HAS_ORS_API_KEY":  c.ORS.APIKey != "",
			"HAS_DATABASE_URL": c.Server.DatabaseURL != "",
			"HAS_REDIS_URL":    c.Server.RedisURL != "",
		},
	}
	writeJSON(w, http.StatusOK, info)
}
