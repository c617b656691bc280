package opt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLineRoute(t *testing.T) {
	p := lineProblem()
	p.Vehicles = append([]Vehicle{{ID: "idle", Capacity: 5}}, p.Vehicles...)
	m, err := NewModel(DefaultConfig(), p)
	require.NoError(t, err)

	recs, sum, err := m.Extract(Result{State: Solved, Routes: [][]int{{}, {1, 2, 3}}})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, 1, r.VehicleIndex)
	assert.Equal(t, "v1", r.VehicleID)
	assert.Equal(t, []int{0, 1, 2, 3, 0}, r.Path)
	assert.Equal(t, 15, r.Load)
	assert.Equal(t, []int{0, 5, 10, 15, 15}, r.CumulativeLoads)
	assert.Equal(t, []int{0, 210, 210, 210, 0}, r.ServiceSeconds)

	meters := m.Distance(0, 1) + m.Distance(1, 2) + m.Distance(2, 3) + m.Distance(3, 0)
	assert.Equal(t, meters, r.DistanceMeters)
	assert.Equal(t, 6.67, r.DistanceKm)

	require.Len(t, r.ArrivalSeconds, 5)
	assert.Equal(t, 21600, r.ArrivalSeconds[0])
	for k := 1; k < len(r.Path); k++ {
		assert.Equal(t, r.ArrivalSeconds[k-1]+m.Transit(r.Path[k-1], r.Path[k]), r.ArrivalSeconds[k])
	}
	assert.Equal(t, r.ArrivalSeconds[4]-r.ArrivalSeconds[0], r.DurationSeconds)
	assert.Equal(t, Summary{VehiclesUsed: 1, TotalDistanceKm: 6.67}, sum)
}

func TestExtractDepartureWaitsForFirstWindow(t *testing.T) {
	p := lineProblem()
	p.UseTimeWindows = true
	p.Stops[1].Window = &TimeWindow{Start: 480 * 60, End: 600 * 60}
	m, err := NewModel(DefaultConfig(), p)
	require.NoError(t, err)

	recs, _, err := m.Extract(Result{State: Solved, Routes: [][]int{{1, 2, 3}}})
	require.NoError(t, err)
	arr := recs[0].ArrivalSeconds
	assert.Equal(t, 480*60, arr[1])
	assert.Equal(t, 480*60-m.Transit(0, 1), arr[0], "departure shifted to arrive on opening")
	// stops 2 and 3 fall back to the depot window
	assert.Equal(t, TimeWindow{Start: 360 * 60, End: 1080 * 60}, m.Window(2))
}

func TestExtractRejectsBrokenRoutes(t *testing.T) {
	p := lineProblem()
	p.Vehicles[0].Capacity = 12
	m, err := NewModel(DefaultConfig(), p)
	require.NoError(t, err)
	_, _, err = m.Extract(Result{State: Solved, Routes: [][]int{{1, 2, 3}}})
	assert.ErrorContains(t, err, "over capacity")

	p = lineProblem()
	p.UseTimeWindows = true
	p.Stops[1].Window = &TimeWindow{Start: 360 * 60, End: 361 * 60}
	p.Stops[3].Window = &TimeWindow{Start: 360 * 60, End: 362 * 60}
	m, err = NewModel(DefaultConfig(), p)
	require.NoError(t, err)
	_, _, err = m.Extract(Result{State: Solved, Routes: [][]int{{3, 2, 1}}})
	assert.ErrorContains(t, err, "time dimension")
}

func TestRoundKm(t *testing.T) {
	assert.Equal(t, 1.23, RoundKm(1234))
	assert.Equal(t, 1.5, RoundKm(1499))
	assert.Equal(t, 0.0, RoundKm(0))
}

func TestNewModelRejects(t *testing.T) {
	for name, mutate := range map[string]func(*Problem){
		"no vehicles":    func(p *Problem) { p.Vehicles = nil },
		"zero capacity":  func(p *Problem) { p.Vehicles[0].Capacity = 0 },
		"negative":       func(p *Problem) { p.Stops[1].Demand = -1 },
		"depot demand":   func(p *Problem) { p.Stops[0].Demand = 3 },
		"traffic factor": func(p *Problem) { p.TrafficFactor = 0 },
		"window order": func(p *Problem) {
			p.UseTimeWindows = true
			p.Stops[1].Window = &TimeWindow{Start: 100, End: 50}
		},
	} {
		t.Run(name, func(t *testing.T) {
			p := lineProblem()
			mutate(&p)
			_, err := NewModel(DefaultConfig(), p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidProblem))
		})
	}
}

func TestWindowsIgnoredWithoutFlag(t *testing.T) {
	p := lineProblem()
	p.Stops[1].Window = &TimeWindow{Start: 100, End: 50}
	m, err := NewModel(DefaultConfig(), p)
	require.NoError(t, err)
	assert.Equal(t, ObjectiveDistance, m.Objective())
	assert.Equal(t, TimeWindow{Start: 0, End: 24 * 3600}, m.Window(1))
	assert.Equal(t, 6*3600, m.Departure())
}
