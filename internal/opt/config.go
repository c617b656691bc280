package opt

import (
	"fmt"
	"time"
)

// Config holds the engine constants. It is passed by value into NewModel and
// never mutated by a solve.
type Config struct {
	AvgSpeedKmh        float64       `yaml:"avgSpeedKmh" json:"avgSpeedKmh"`
	BaseServiceMinutes float64       `yaml:"baseServiceMinutes" json:"baseServiceMinutes"`
	UnitsPerMinute     float64       `yaml:"unitsPerMinute" json:"unitsPerMinute"`
	DepotStartSec      int           `yaml:"depotStartSeconds" json:"depotStartSeconds"`
	MaxSlackSec        int           `yaml:"maxSlackSeconds" json:"maxSlackSeconds"`
	HorizonSec         int           `yaml:"horizonSeconds" json:"horizonSeconds"`
	DepotWindowMin     [2]int        `yaml:"depotWindowMinutes" json:"depotWindowMinutes"`
	DefaultTimeLimit   time.Duration `yaml:"defaultTimeLimit" json:"defaultTimeLimit"`
	GLSLambda          float64       `yaml:"glsLambda" json:"glsLambda"`
	StallIterations    int           `yaml:"stallIterations" json:"stallIterations"`
}

// DefaultConfig returns the fleet defaults: 25 km/h, 3 min + 1 min per 10
// units of service, departures from 6:00, a 30h slack ceiling and a 24h cap.
func DefaultConfig() Config {
	return Config{
		AvgSpeedKmh:        25,
		BaseServiceMinutes: 3,
		UnitsPerMinute:     10,
		DepotStartSec:      6 * 3600,
		MaxSlackSec:        30 * 3600,
		HorizonSec:         24 * 3600,
		DepotWindowMin:     [2]int{360, 1080},
		DefaultTimeLimit:   30 * time.Second,
		GLSLambda:          0.1,
		StallIterations:    200,
	}
}

// SpeedMetersPerSec converts the configured average speed.
func (c Config) SpeedMetersPerSec() float64 {
	return c.AvgSpeedKmh * 1000 / 3600
}

// Validate reports the first inconsistent field.
func (c Config) Validate() error {
	switch {
	case c.AvgSpeedKmh <= 0:
		return fmt.Errorf("avgSpeedKmh must be > 0")
	case c.BaseServiceMinutes < 0:
		return fmt.Errorf("baseServiceMinutes must be >= 0")
	case c.UnitsPerMinute <= 0:
		return fmt.Errorf("unitsPerMinute must be > 0")
	case c.HorizonSec <= 0:
		return fmt.Errorf("horizonSeconds must be > 0")
	case c.MaxSlackSec < 0:
		return fmt.Errorf("maxSlackSeconds must be >= 0")
	case c.DepotStartSec < 0 || c.DepotStartSec >= c.HorizonSec:
		return fmt.Errorf("depotStartSeconds must be in [0,%d)", c.HorizonSec)
	case c.DepotWindowMin[0] > c.DepotWindowMin[1]:
		return fmt.Errorf("depotWindowMinutes start after end")
	case c.GLSLambda < 0:
		return fmt.Errorf("glsLambda must be >= 0")
	}
	return nil
}
