package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineOneDegreeOfLatitude(t *testing.T) {
	d := HaversineMeters(LatLng{0, 0}, LatLng{1, 0})
	assert.InDelta(t, 111195, d, 1)
}

func TestDistanceMatrixSymmetricZeroDiagonal(t *testing.T) {
	pts := []LatLng{{52.52, 13.40}, {52.50, 13.45}, {48.85, 2.35}, {52.52, 13.40}}
	m := DistanceMatrix(pts)
	require.Len(t, m, 4)
	for i := range m {
		assert.Zero(t, m[i][i])
		for j := range m {
			assert.Equal(t, m[i][j], m[j][i])
			assert.GreaterOrEqual(t, m[i][j], 0)
		}
	}
	assert.Zero(t, m[0][3], "identical coordinates")
	assert.Equal(t, int(HaversineMeters(pts[0], pts[2])), m[0][2])
}

func TestTravelSecondsRoundsDown(t *testing.T) {
	// 1000 m at 10 m/s is 100 s, inflated by 1.25.
	assert.Equal(t, 125, TravelSeconds(1000, 10, 1.25))
	// 1001 m gives 125.125 s.
	assert.Equal(t, 125, TravelSeconds(1001, 10, 1.25))
	tm := TravelMatrix([][]int{{0, 1000}, {1000, 0}}, 10, 1)
	assert.Equal(t, [][]int{{0, 100}, {100, 0}}, tm)
}

func TestServiceTimes(t *testing.T) {
	cfg := DefaultConfig()
	got := ServiceTimes(cfg, []int{7, 0, 5, 25, 10}, []float64{0, 0, 0, 0, 12})
	assert.Equal(t, 0, got[0], "depot ignores demand")
	assert.Equal(t, 180, got[1])
	assert.Equal(t, 210, got[2])
	assert.Equal(t, 330, got[3])
	assert.Equal(t, 720, got[4], "override in minutes")
}

func TestServiceTimeFormula(t *testing.T) {
	cfg := DefaultConfig()
	for d := 1; d < 200; d += 7 {
		want := int((3 + float64(d)/10) * 60)
		if frac := (3+float64(d)/10)*60 - float64(want); frac >= 0.5 {
			want++
		}
		assert.Equal(t, want, ServiceSeconds(cfg, 1, d, 0), "demand %d", d)
	}
	assert.Equal(t, 0, ServiceSeconds(cfg, 0, 40, 0))
	assert.Equal(t, 90, ServiceSeconds(cfg, 0, 0, 1.5), "override applies to the depot too")
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.AvgSpeedKmh = 0
	assert.Error(t, cfg.Validate())
	cfg = DefaultConfig()
	cfg.DepotStartSec = cfg.HorizonSec
	assert.Error(t, cfg.Validate())
}
