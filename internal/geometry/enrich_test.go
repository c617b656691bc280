package geometry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"vrpsolver/internal/opt"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	fail  map[float64]bool // fail when the second coordinate's lon matches
}

func (f *fakeProvider) Directions(_ context.Context, lonLat [][2]float64) ([][]float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail[lonLat[1][0]] {
		return nil, errors.New("upstream down")
	}
	line := make([][]float64, 0, len(lonLat)+1)
	for _, p := range lonLat {
		line = append(line, []float64{p[1], p[0]})
	}
	// a road-ish midpoint so results differ from the fallback
	line = append(line, []float64{0, 0})
	return line, nil
}

func (f *fakeProvider) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var testPoints = []opt.LatLng{{Lat: 52.0, Lng: 13.0}, {Lat: 52.1, Lng: 13.1}, {Lat: 52.2, Lng: 13.2}}

func TestEnrichFallsBackPerRoute(t *testing.T) {
	p := &fakeProvider{fail: map[float64]bool{13.2: true}}
	e := NewEnricher(p, EnricherOptions{Concurrency: 2}, zaptest.NewLogger(t))

	out := e.Enrich(context.Background(), [][]int{{0, 1, 0}, {0, 2, 0}, {0}}, testPoints)
	require.Len(t, out, 3)
	assert.Len(t, out[0], 4, "provider geometry")
	assert.Equal(t, [][]float64{{52.0, 13.0}, {52.2, 13.2}, {52.0, 13.0}}, out[1], "straight-line fallback")
	assert.Empty(t, out[2])
	assert.NotNil(t, out[2])
	assert.Equal(t, 2, p.count())
}

func TestEnrichUsesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	require.NoError(t, cache.Ping(context.Background()))

	p := &fakeProvider{}
	e := NewEnricher(p, EnricherOptions{Cache: cache, TTL: time.Hour}, zaptest.NewLogger(t))
	paths := [][]int{{0, 1, 2, 0}}

	first := e.Enrich(context.Background(), paths, testPoints)
	second := e.Enrich(context.Background(), paths, testPoints)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.count())

	key := CacheKey("driving-car", [][2]float64{{13.0, 52.0}, {13.1, 52.1}, {13.2, 52.2}, {13.0, 52.0}})
	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), time.Duration(0))
}

func TestCacheKeyDependsOnOrderAndProfile(t *testing.T) {
	a := [][2]float64{{1, 2}, {3, 4}}
	b := [][2]float64{{3, 4}, {1, 2}}
	assert.NotEqual(t, CacheKey("driving-car", a), CacheKey("driving-car", b))
	assert.NotEqual(t, CacheKey("driving-car", a), CacheKey("driving-hgv", a))
	assert.Equal(t, CacheKey("driving-car", a), CacheKey("driving-car", a))
}

func TestRedisCacheMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	_, ok, err := cache.Get(context.Background(), "geom:none")
	require.NoError(t, err)
	assert.False(t, ok)
}
