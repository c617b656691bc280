package geometry

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vrpsolver/internal/metrics"
	"vrpsolver/internal/opt"
)

// DirectionsProvider returns a polyline ([lat, lon] pairs) through lonLat.
type DirectionsProvider interface {
	Directions(ctx context.Context, lonLat [][2]float64) ([][]float64, error)
}

// Enricher looks up road geometry for every route of a solution.
type Enricher struct {
	provider    DirectionsProvider
	cache       Cache
	profile     string
	ttl         time.Duration
	concurrency int
	log         *zap.Logger
}

type EnricherOptions struct {
	// Cache is optional.
	Cache       Cache
	Profile     string
	TTL         time.Duration
	Concurrency int
}

func NewEnricher(p DirectionsProvider, o EnricherOptions, log *zap.Logger) *Enricher {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.Profile == "" {
		o.Profile = "driving-car"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Enricher{provider: p, cache: o.Cache, profile: o.Profile, ttl: o.TTL, concurrency: o.Concurrency, log: log}
}

// Enrich returns one polyline per path, aligned with paths. Paths with fewer
// than two indices get an empty polyline. A failed lookup falls back to the
// straight line through that route's stops; it never fails the whole call.
func (e *Enricher) Enrich(ctx context.Context, paths [][]int, points []opt.LatLng) [][][]float64 {
	out := make([][][]float64, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, path := range paths {
		if len(path) < 2 {
			out[i] = [][]float64{}
			continue
		}
		g.Go(func() error {
			out[i] = e.route(gctx, path, points)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Enricher) route(ctx context.Context, path []int, points []opt.LatLng) [][]float64 {
	lonLat := make([][2]float64, len(path))
	for k, idx := range path {
		lonLat[k] = [2]float64{points[idx].Lng, points[idx].Lat}
	}
	key := CacheKey(e.profile, lonLat)
	if e.cache != nil {
		line, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			e.log.Warn("geometry cache read failed", zap.Error(err))
		} else if ok {
			metrics.GeometryLookups.WithLabelValues("hit").Inc()
			return line
		}
	}

	line, err := e.provider.Directions(ctx, lonLat)
	if err != nil {
		metrics.GeometryLookups.WithLabelValues("fallback").Inc()
		e.log.Warn("directions lookup failed; using straight-line geometry",
			zap.Ints("path", path),
			zap.Error(err),
		)
		return straightLine(path, points)
	}
	metrics.GeometryLookups.WithLabelValues("fetched").Inc()
	if e.cache != nil {
		if err := e.cache.Set(ctx, key, line, e.ttl); err != nil {
			e.log.Warn("geometry cache write failed", zap.Error(err))
		}
	}
	return line
}

func straightLine(path []int, points []opt.LatLng) [][]float64 {
	line := make([][]float64, len(path))
	for k, idx := range path {
		line[k] = []float64{points[idx].Lat, points[idx].Lng}
	}
	return line
}
