package opt

import (
	"errors"
	"fmt"
)

// ErrInvalidProblem wraps every structural problem NewModel rejects.
var ErrInvalidProblem = errors.New("invalid problem")

// TimeWindow bounds an arrival, in seconds since midnight of the plan day.
type TimeWindow struct {
	Start int
	End   int
}

// Stop is one location of a problem. Index 0 is the depot.
type Stop struct {
	Name       string
	Point      LatLng
	Demand     int
	ServiceSec int
	Window     *TimeWindow
}

// Vehicle is one member of the fleet.
type Vehicle struct {
	ID       string
	Capacity int
}

// Problem is the caller-facing description of one solve.
type Problem struct {
	Stops          []Stop
	Vehicles       []Vehicle
	TrafficFactor  float64
	UseTimeWindows bool
	// DepotWindow overrides Config.DepotWindowMin when windows are in use.
	DepotWindow *TimeWindow
}

// Objective selects the arc cost the search minimizes.
type Objective int

const (
	ObjectiveDistance Objective = iota
	ObjectiveTime
)

func (o Objective) String() string {
	if o == ObjectiveTime {
		return "time"
	}
	return "distance"
}

// Model is the immutable constraint graph of one solve: two dimensions (load
// and time) over a distance matrix and a transit matrix.
type Model struct {
	cfg       Config
	n         int
	stops     []Stop
	vehicles  []Vehicle
	dist      [][]int
	travel    [][]int
	transit   [][]int
	windows   []TimeWindow
	depart    int
	objective Objective
	maxCap    int
}

// NewModel validates p and assembles its dimensions under cfg.
func NewModel(cfg Config, p Problem) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: config: %v", ErrInvalidProblem, err)
	}
	if len(p.Stops) == 0 {
		return nil, fmt.Errorf("%w: no stops", ErrInvalidProblem)
	}
	if len(p.Vehicles) == 0 {
		return nil, fmt.Errorf("%w: no vehicles", ErrInvalidProblem)
	}
	if p.TrafficFactor <= 0 {
		return nil, fmt.Errorf("%w: trafficFactor must be > 0", ErrInvalidProblem)
	}
	if p.Stops[0].Demand != 0 {
		return nil, fmt.Errorf("%w: depot demand must be 0", ErrInvalidProblem)
	}
	m := &Model{
		cfg:      cfg,
		n:        len(p.Stops),
		stops:    append([]Stop(nil), p.Stops...),
		vehicles: append([]Vehicle(nil), p.Vehicles...),
		depart:   cfg.DepotStartSec,
	}
	for i, s := range m.stops {
		if s.Demand < 0 {
			return nil, fmt.Errorf("%w: stop %d has negative demand", ErrInvalidProblem, i)
		}
		if s.ServiceSec < 0 {
			return nil, fmt.Errorf("%w: stop %d has negative service time", ErrInvalidProblem, i)
		}
	}
	for i, v := range m.vehicles {
		if v.Capacity <= 0 {
			return nil, fmt.Errorf("%w: vehicle %d (%s) capacity must be > 0", ErrInvalidProblem, i, v.ID)
		}
		if v.Capacity > m.maxCap {
			m.maxCap = v.Capacity
		}
	}

	points := make([]LatLng, m.n)
	for i, s := range m.stops {
		points[i] = s.Point
	}
	m.dist = DistanceMatrix(points)
	m.travel = TravelMatrix(m.dist, cfg.SpeedMetersPerSec(), p.TrafficFactor)
	m.transit = make([][]int, m.n)
	for i := range m.transit {
		m.transit[i] = make([]int, m.n)
		for j := range m.transit[i] {
			if i != j {
				m.transit[i][j] = m.travel[i][j] + m.stops[i].ServiceSec
			}
		}
	}

	open := TimeWindow{Start: 0, End: cfg.HorizonSec}
	m.windows = make([]TimeWindow, m.n)
	for i := range m.windows {
		m.windows[i] = open
	}
	if p.UseTimeWindows {
		m.objective = ObjectiveTime
		depot := TimeWindow{Start: cfg.DepotWindowMin[0] * 60, End: cfg.DepotWindowMin[1] * 60}
		if p.DepotWindow != nil {
			depot = *p.DepotWindow
		}
		if depot.Start > depot.End {
			return nil, fmt.Errorf("%w: depot window start after end", ErrInvalidProblem)
		}
		if depot.Start > m.depart {
			m.depart = depot.Start
		}
		for i := 1; i < m.n; i++ {
			w := depot
			if s := m.stops[i].Window; s != nil {
				w = *s
			}
			if w.Start > w.End {
				return nil, fmt.Errorf("%w: stop %d window start after end", ErrInvalidProblem, i)
			}
			m.windows[i] = clampWindow(w, cfg.HorizonSec)
		}
	}
	return m, nil
}

func clampWindow(w TimeWindow, horizon int) TimeWindow {
	if w.Start < 0 {
		w.Start = 0
	}
	if w.End > horizon {
		w.End = horizon
	}
	return w
}

// Size is the number of stops including the depot.
func (m *Model) Size() int { return m.n }

// Objective reports which arc cost the search minimizes.
func (m *Model) Objective() Objective { return m.objective }

// Config returns the configuration the model was built with.
func (m *Model) Config() Config { return m.cfg }

// Distance returns the arc distance in meters.
func (m *Model) Distance(i, j int) int { return m.dist[i][j] }

// Transit returns travel(i,j) plus the service time spent at i.
func (m *Model) Transit(i, j int) int { return m.transit[i][j] }

// ArcCost is the per-arc objective: meters without time windows, transit
// seconds with them.
func (m *Model) ArcCost(i, j int) int {
	if m.objective == ObjectiveTime {
		return m.transit[i][j]
	}
	return m.dist[i][j]
}

// Window returns the effective time-dimension bounds of stop i.
func (m *Model) Window(i int) TimeWindow { return m.windows[i] }

// Departure is the earliest cumul value at any vehicle start.
func (m *Model) Departure() int { return m.depart }

// Stop returns stop i.
func (m *Model) Stop(i int) Stop { return m.stops[i] }

// Vehicle returns vehicle v.
func (m *Model) Vehicle(v int) Vehicle { return m.vehicles[v] }

// Vehicles is the fleet size.
func (m *Model) Vehicles() int { return len(m.vehicles) }
