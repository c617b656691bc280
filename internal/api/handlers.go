package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vrpsolver/internal/metrics"
	"vrpsolver/internal/model"
	"vrpsolver/internal/obs"
	"vrpsolver/internal/opt"
	"vrpsolver/internal/store"
)

const infeasibleDetail = "Solver could not find a feasible solution. Try adjusting time windows or vehicle capacities."

// improvedEvery throttles solve.improved events for a single solve.
const improvedEvery = 250 * time.Millisecond

// OptimizeHandler handles POST /v1/optimize (and the legacy /optimize).
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.CanSolve() {
		writeProblem(w, 403, "Forbidden", "dispatcher or admin required", r.URL.Path)
		return
	}
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	warnings, err := validateOptimizeRequest(&req)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	solveID := req.SolveID
	if solveID == "" {
		solveID = uuid.NewString()
	}
	log := s.Log.With(zap.String("req_id", obs.RequestID(r.Context())), zap.String("solve_id", solveID), zap.String("tenant", p.Tenant))
	for _, msg := range warnings {
		log.Warn("request normalized", zap.String("warning", msg))
	}

	raw, err := s.Store.GetOptimizerConfig(r.Context(), p.Tenant)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Load optimizer config failed", err.Error(), r.URL.Path)
		return
	}
	overlay, err := parseOverlay(raw)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Invalid tenant optimizer config", err.Error(), r.URL.Path)
		return
	}
	cfg, err := overlay.apply(s.Cfg.Solver)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Invalid tenant optimizer config", err.Error(), r.URL.Path)
		return
	}
	problem := s.buildProblem(&req, cfg, overlay)
	topic := eventTopic(p.Tenant, solveID)
	opts := s.solveOptions(&req, cfg, overlay, solveID, topic)

	s.Broker.Publish(topic, Event{Type: EventSolveStarted, Data: map[string]any{
		"solveId": solveID, "stops": len(problem.Stops), "vehicles": len(problem.Vehicles),
	}})

	m, res, err := s.runSolve(r.Context(), log, cfg, problem, opts)
	if err != nil {
		log.Error("solve failed", append(problemFields(problem), zap.Error(err))...)
		s.Broker.Publish(topic, Event{Type: EventSolveFailed, Data: map[string]any{"solveId": solveID, "error": err.Error()}})
		metrics.Solves.WithLabelValues(string(opts.Metaheuristic), "error").Inc()
		if errors.Is(err, opt.ErrInvalidProblem) {
			writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), r.URL.Path)
		return
	}
	observeSolve(res)

	if !res.Feasible() {
		log.Warn("no feasible solution", problemFields(problem)...)
		s.recordSolve(r.Context(), log, p.Tenant, solveID, problem, res, opt.Summary{})
		s.Broker.Publish(topic, Event{Type: EventSolveInfeasible, Data: map[string]any{"solveId": solveID}})
		writeProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", infeasibleDetail, r.URL.Path)
		return
	}

	records, summary, err := m.Extract(res)
	if err != nil {
		log.Error("extract failed", append(problemFields(problem), zap.Error(err))...)
		s.Broker.Publish(topic, Event{Type: EventSolveFailed, Data: map[string]any{"solveId": solveID, "error": err.Error()}})
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), r.URL.Path)
		return
	}
	out := make([]model.RouteOut, len(records))
	for i, rec := range records {
		out[i] = model.RouteOut{
			VehicleID:           rec.VehicleID,
			RouteIndices:        rec.Path,
			LoadCarried:         rec.Load,
			CumulativeLoads:     rec.CumulativeLoads,
			DistanceKm:          rec.DistanceKm,
			DurationSeconds:     rec.DurationSeconds,
			ArrivalTimesSeconds: rec.ArrivalSeconds,
			ServiceTimesSeconds: rec.ServiceSeconds,
		}
	}
	if s.Enricher != nil && (req.IncludeGeometry == nil || *req.IncludeGeometry) {
		paths := make([][]int, len(records))
		for i, rec := range records {
			paths[i] = rec.Path
		}
		points := make([]opt.LatLng, len(problem.Stops))
		for i, st := range problem.Stops {
			points[i] = st.Point
		}
		for i, line := range s.Enricher.Enrich(r.Context(), paths, points) {
			out[i].RouteGeometry = line
		}
	}

	s.recordSolve(r.Context(), log, p.Tenant, solveID, problem, res, summary)
	s.Broker.Publish(topic, Event{Type: EventSolveCompleted, Data: map[string]any{
		"solveId": solveID, "cost": res.Cost, "vehiclesUsed": summary.VehiclesUsed, "totalDistanceKm": summary.TotalDistanceKm,
	}})
	writeJSON(w, http.StatusOK, model.OptimizeResponse{
		SolveID: solveID,
		Status:  res.State.String(),
		Result:  out,
		Summary: model.Summary{VehiclesUsed: summary.VehiclesUsed, TotalDistanceKm: summary.TotalDistanceKm},
	})
}

// buildProblem converts the wire request into engine input. Windows arrive
// in minutes since midnight and only count when useTimeWindows is set; the
// depot window, from location 0 or the config default, bounds the fleet's day
// and fills a stop's missing bound.
func (s *Server) buildProblem(req *model.OptimizeRequest, cfg opt.Config, o tenantOverlay) opt.Problem {
	traffic := s.Cfg.Server.TrafficFactor
	if o.TrafficFactor != nil {
		traffic = *o.TrafficFactor
	}
	if req.TrafficFactor != nil {
		traffic = *req.TrafficFactor
	}
	p := opt.Problem{
		Stops:          make([]opt.Stop, len(req.Locations)),
		Vehicles:       make([]opt.Vehicle, len(req.Vehicles)),
		TrafficFactor:  traffic,
		UseTimeWindows: bool(req.UseTimeWindows),
	}
	for i, loc := range req.Locations {
		st := opt.Stop{
			Name:       loc.Name,
			Point:      opt.LatLng{Lat: loc.Latitude, Lng: loc.Longitude},
			Demand:     req.Demands[i],
			ServiceSec: opt.ServiceSeconds(cfg, i, req.Demands[i], loc.ServiceTime),
		}
		p.Stops[i] = st
	}
	if p.UseTimeWindows {
		depot := req.Locations[0]
		dw := opt.TimeWindow{
			Start: minutesOr(depot.TimeWindowStart, cfg.DepotWindowMin[0]) * 60,
			End:   minutesOr(depot.TimeWindowEnd, cfg.DepotWindowMin[1]) * 60,
		}
		p.DepotWindow = &dw
		// a missing bound falls back to the depot's
		for i, loc := range req.Locations {
			if loc.TimeWindowStart == nil && loc.TimeWindowEnd == nil {
				continue
			}
			p.Stops[i].Window = &opt.TimeWindow{
				Start: minutesOr(loc.TimeWindowStart, dw.Start/60) * 60,
				End:   minutesOr(loc.TimeWindowEnd, dw.End/60) * 60,
			}
		}
	}
	for i, v := range req.Vehicles {
		p.Vehicles[i] = opt.Vehicle{ID: strings.TrimSpace(string(v.ID)), Capacity: v.Capacity}
	}
	return p
}

func minutesOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func (s *Server) solveOptions(req *model.OptimizeRequest, cfg opt.Config, o tenantOverlay, solveID, topic string) opt.Options {
	opts := opt.Options{
		TimeLimit:     cfg.DefaultTimeLimit,
		Metaheuristic: opt.Metaheuristic(o.Metaheuristic),
		FirstSolution: opt.FirstSolution(o.FirstSolution),
		Seed:          req.Seed,
	}
	if req.TimeLimitSeconds != nil {
		opts.TimeLimit = time.Duration(*req.TimeLimitSeconds) * time.Second
	}
	if req.Metaheuristic != "" {
		opts.Metaheuristic = opt.Metaheuristic(req.Metaheuristic)
	}
	if req.FirstSolution != "" {
		opts.FirstSolution = opt.FirstSolution(req.FirstSolution)
	}
	var last time.Time
	opts.Progress = func(pr opt.Progress) {
		if pr.State != opt.Improving || time.Since(last) < improvedEvery {
			return
		}
		last = time.Now()
		s.Broker.Publish(topic, Event{Type: EventSolveImproved, Data: map[string]any{
			"solveId": solveID, "iteration": pr.Iteration, "bestCost": pr.BestCost, "elapsedMs": pr.Elapsed.Milliseconds(),
		}})
	}
	return opts
}

// runSolve runs the engine and turns a panic into an error.
func (s *Server) runSolve(ctx context.Context, log *zap.Logger, cfg opt.Config, p opt.Problem, opts opt.Options) (m *opt.Model, res opt.Result, err error) {
	defer obs.Time(ctx, log, "solve")(&err)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("solver panic", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
			m, res, err = nil, opt.Result{}, fmt.Errorf("solver panic: %v", rec)
		}
	}()
	return opt.Solve(cfg, p, opts)
}

func observeSolve(res opt.Result) {
	outcome := "solved"
	if !res.Feasible() {
		outcome = "infeasible"
	}
	meta := string(res.Metaheuristic)
	metrics.Solves.WithLabelValues(meta, outcome).Inc()
	metrics.SolveDuration.WithLabelValues(meta).Observe(res.Metrics.Elapsed.Seconds())
	metrics.SolveIterations.WithLabelValues(meta).Observe(float64(res.Metrics.Iterations))
}

func (s *Server) recordSolve(ctx context.Context, log *zap.Logger, tenant, solveID string, p opt.Problem, res opt.Result, sum opt.Summary) {
	mt := res.Metrics
	rec := store.SolveRecord{
		ID:              solveID,
		TenantID:        tenant,
		Status:          res.State.String(),
		Metaheuristic:   string(res.Metaheuristic),
		FirstSolution:   string(res.FirstSolution),
		Stops:           len(p.Stops),
		Vehicles:        len(p.Vehicles),
		VehiclesUsed:    sum.VehiclesUsed,
		InitialCost:     mt.InitialCost,
		BestCost:        mt.BestCost,
		Iterations:      mt.Iterations,
		Improvements:    mt.Improvements,
		AcceptedWorse:   mt.AcceptedWorse,
		TotalDistanceKm: sum.TotalDistanceKm,
		WallMs:          mt.Elapsed.Milliseconds(),
	}
	for _, sn := range mt.Snapshots {
		rec.Snapshots = append(rec.Snapshots, store.WeightSnapshot{Iteration: sn.Iteration, Removal: sn.Removal, Insertion: sn.Insertion})
	}
	if err := s.Store.SaveSolveRecord(ctx, rec); err != nil {
		log.Warn("save solve metrics failed", zap.Error(err))
	}
}

// problemFields is the context logged for failed or infeasible solves.
func problemFields(p opt.Problem) []zap.Field {
	names := make([]string, len(p.Stops))
	demands := make([]int, len(p.Stops))
	service := make([]int, len(p.Stops))
	windows := make([]string, len(p.Stops))
	for i, st := range p.Stops {
		names[i] = st.Name
		demands[i] = st.Demand
		service[i] = st.ServiceSec
		if st.Window != nil {
			windows[i] = fmt.Sprintf("%d-%d", st.Window.Start, st.Window.End)
		}
	}
	vehicles := make([]string, len(p.Vehicles))
	for i, v := range p.Vehicles {
		vehicles[i] = fmt.Sprintf("%s:%d", v.ID, v.Capacity)
	}
	return []zap.Field{
		zap.Strings("locations", names),
		zap.Ints("demands", demands),
		zap.Strings("vehicles", vehicles),
		zap.Bool("use_time_windows", p.UseTimeWindows),
		zap.Strings("windows_sec", windows),
		zap.Ints("service_sec", service),
	}
}

// OptimizerConfigHandler returns the engine defaults merged with the tenant overlay.
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/optimizer/config" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	c := s.Cfg.Solver
	defaults := map[string]any{
		"avgSpeedKmh":        c.AvgSpeedKmh,
		"baseServiceMinutes": c.BaseServiceMinutes,
		"unitsPerMinute":     c.UnitsPerMinute,
		"depotStartSeconds":  c.DepotStartSec,
		"timeLimitSeconds":   int(c.DefaultTimeLimit / time.Second),
		"trafficFactor":      s.Cfg.Server.TrafficFactor,
		"metaheuristic":      "",
		"firstSolution":      string(opt.PathCheapestArc),
		"metaheuristics":     []string{string(opt.GreedyDescent), string(opt.GuidedLocalSearch), string(opt.ALNS)},
		"firstSolutions":     []string{string(opt.PathCheapestArc), string(opt.Savings)},
	}
	p := s.getPrincipal(r)
	cfg, err := s.Store.GetOptimizerConfig(r.Context(), p.Tenant)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Load optimizer config failed", err.Error(), r.URL.Path)
		return
	}
	for k, v := range cfg {
		defaults[k] = v
	}
	writeJSON(w, 200, map[string]any{"defaults": defaults})
}

// AdminOptimizerConfigHandler gets or replaces the tenant overlay.
func (s *Server) AdminOptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/optimizer/config" {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.Store.GetOptimizerConfig(r.Context(), p.Tenant)
		if err != nil {
			writeProblem(w, 500, "Load failed", err.Error(), r.URL.Path)
			return
		}
		if cfg == nil {
			cfg = map[string]any{}
		}
		writeJSON(w, 200, map[string]any{"config": cfg})
	case http.MethodPut:
		var body struct {
			Config map[string]any `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if body.Config == nil {
			writeProblem(w, 400, "Missing config", "", r.URL.Path)
			return
		}
		o, err := parseOverlay(body.Config)
		if err == nil {
			_, err = o.apply(s.Cfg.Solver)
		}
		if err != nil {
			writeProblem(w, 400, "Invalid config", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.SaveOptimizerConfig(r.Context(), p.Tenant, body.Config); err != nil {
			writeProblem(w, 500, "Save failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, 200, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SolveMetricsHandler lists recorded solves, newest first.
func (s *Server) SolveMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/solve-metrics" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeProblem(w, 400, "Invalid limit", err.Error(), r.URL.Path)
			return
		}
		limit = n
	}
	items, next, err := s.Store.ListSolveRecords(r.Context(), p.Tenant, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeProblem(w, 500, "List solve metrics failed", err.Error(), r.URL.Path)
		return
	}
	if !strings.EqualFold(r.URL.Query().Get("includeWeights"), "true") {
		for i := range items {
			items[i].Snapshots = nil
		}
	}
	writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
}

// SolveMetricsByIDHandler returns one recorded solve including its weight snapshots.
func (s *Server) SolveMetricsByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/admin/solve-metrics/")
	if id == "" || strings.Contains(id, "/") || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	rec, err := s.Store.GetSolveRecord(r.Context(), p.Tenant, id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, 404, "Solve not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, 500, "Get solve metrics failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, rec)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if pg, ok := s.Store.(pinger); ok {
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, 503, "Not Ready", "store: "+err.Error(), r.URL.Path)
			return
		}
	}
	if err := s.Broker.Ping(ctx); err != nil {
		writeProblem(w, 503, "Not Ready", "broker: "+err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}
