package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vrpsolver/internal/config"
	"vrpsolver/internal/geometry"
	"vrpsolver/internal/metrics"
	"vrpsolver/internal/store"
)

type Server struct {
	Store  store.Store
	Broker EventBroker
	Log    *zap.Logger
	Cfg    *config.Config
	// Enricher is nil when no ORS API key is configured.
	Enricher *geometry.Enricher

	limiter *clientLimiter
	closers []func() error
}

// NewServer wires the store, broker and geometry enricher from cfg. Without
// DATABASE_URL the in-memory store is used; without REDIS_URL events stay
// in-process and geometry is not cached.
func NewServer(cfg *config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{Cfg: cfg, Log: log}
	s.limiter = newClientLimiter(cfg.Server.RateRPS, cfg.Server.RateBurst)

	if dsn := strings.TrimSpace(cfg.Server.DatabaseURL); dsn == "" {
		s.Store = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if cfg.Server.DBMigrate {
			if err := sp.MigrateDir(cfg.Server.MigrationsDir); err != nil {
				log.Warn("migrations failed", zap.String("dir", cfg.Server.MigrationsDir), zap.Error(err))
			}
		}
		s.Store = sp
		s.closers = append(s.closers, sp.Close)
	}

	var cache geometry.Cache
	if url := cfg.Server.RedisURL; url != "" {
		rb, err := NewRedisBroker(url)
		if err != nil {
			log.Warn("redis broker unavailable, using in-memory broker", zap.Error(err))
			s.Broker = NewBroker()
		} else {
			s.Broker = rb
			s.closers = append(s.closers, rb.Close)
		}
		if rc, err := geometry.NewRedisCache(url); err == nil {
			cache = rc
			s.closers = append(s.closers, rc.Close)
		}
	} else {
		s.Broker = NewBroker()
	}

	if cfg.ORS.APIKey != "" {
		client, err := geometry.NewClient(geometry.ClientOptions{
			APIKey:  cfg.ORS.APIKey,
			BaseURL: cfg.ORS.BaseURL,
			Profile: cfg.ORS.Profile,
			RateRPS: cfg.ORS.RateRPS,
			Timeout: cfg.ORS.Timeout,
		})
		if err != nil {
			return nil, err
		}
		s.Enricher = geometry.NewEnricher(client, geometry.EnricherOptions{
			Cache:       cache,
			Profile:     client.Profile(),
			TTL:         cfg.ORS.CacheTTL,
			Concurrency: cfg.ORS.Concurrency,
		}, log.Named("geometry"))
	}
	return s, nil
}

// Routes returns the service mux wrapped in the request middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Optimization
	mux.HandleFunc("/v1/optimize", s.OptimizeHandler)
	mux.HandleFunc("/optimize", s.OptimizeHandler)
	mux.HandleFunc("/v1/optimizer/config", s.OptimizerConfigHandler)
	mux.HandleFunc("/v1/solves/", s.SolveEventsHandler)

	// Admin
	mux.HandleFunc("/v1/admin/optimizer/config", s.AdminOptimizerConfigHandler)
	mux.HandleFunc("/v1/admin/solve-metrics", s.SolveMetricsHandler)
	mux.HandleFunc("/v1/admin/solve-metrics/", s.SolveMetricsByIDHandler)

	// Health
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/health", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)

	// Ops
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/vars", s.DebugJSON)
	mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
	mux.HandleFunc("/openapi.json", s.OpenAPIHandler)
	mux.HandleFunc("/docs", s.DocsHandler)

	var h http.Handler = mux
	h = s.rateLimit(h)
	h = s.cors(h)
	h = s.logRequests(h)
	h = requestID(h)
	return h
}

// Close releases the store and Redis connections.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

type pinger interface{ Ping(ctx context.Context) error }
