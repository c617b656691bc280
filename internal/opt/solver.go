package opt

import (
	"math"
	"math/rand"
	"time"
)

// State is the lifecycle of one solve.
type State int

const (
	Unsolved State = iota
	Constructing
	Improving
	Solved
	Infeasible
)

func (s State) String() string {
	switch s {
	case Constructing:
		return "CONSTRUCTING"
	case Improving:
		return "IMPROVING"
	case Solved:
		return "SOLVED"
	case Infeasible:
		return "INFEASIBLE"
	}
	return "UNSOLVED"
}

// Metaheuristic names the improvement strategy.
type Metaheuristic string

const (
	GreedyDescent     Metaheuristic = "greedy_descent"
	GuidedLocalSearch Metaheuristic = "guided_local_search"
	ALNS              Metaheuristic = "alns"
)

// Options tune a single solve. Zero values pick the defaults.
type Options struct {
	TimeLimit     time.Duration
	MaxIterations int
	Metaheuristic Metaheuristic
	FirstSolution FirstSolution
	Seed          int64
	// Progress, when set, is called on every state change and new best.
	Progress func(Progress)
}

// Progress is a snapshot handed to Options.Progress.
type Progress struct {
	State     State
	Iteration int
	BestCost  int
	Elapsed   time.Duration
}

// Metrics summarize how the search went.
type Metrics struct {
	Iterations            int
	Improvements          int
	AcceptedWorse         int
	PenaltyRounds         int
	InitialCost           int
	BestCost              int
	FinalCost             int
	RemovalSelects        [2]int // random, shaw
	InsertSelects         [2]int // greedy, regret2
	FinalRemovalWeights   [2]float64
	FinalInsertionWeights [2]float64
	Snapshots             []WeightSnapshot
	Elapsed               time.Duration
}

type WeightSnapshot struct {
	Iteration int
	Removal   [2]float64
	Insertion [2]float64
}

// Result is the outcome of a solve. Routes holds one stop sequence per
// vehicle, depot excluded; unused vehicles have empty sequences.
type Result struct {
	State         State
	Routes        [][]int
	Cost          int
	Metaheuristic Metaheuristic
	FirstSolution FirstSolution
	Metrics       Metrics
}

// Feasible reports whether the result carries a complete solution.
func (r Result) Feasible() bool { return r.State == Solved }

// Solver runs the search for one Model. It is not safe for concurrent use;
// independent solves each get their own Solver.
type Solver struct {
	m     *Model
	opts  Options
	state State
}

// NewSolver prepares a solve with defaults filled in from the model config.
func NewSolver(m *Model, opts Options) *Solver {
	if opts.TimeLimit <= 0 {
		opts.TimeLimit = m.cfg.DefaultTimeLimit
	}
	if opts.Metaheuristic == "" {
		opts.Metaheuristic = GreedyDescent
		if m.objective == ObjectiveTime {
			opts.Metaheuristic = GuidedLocalSearch
		}
	}
	if opts.FirstSolution == "" {
		opts.FirstSolution = PathCheapestArc
	}
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	return &Solver{m: m, opts: opts}
}

// State reports where the solver is in its lifecycle.
func (s *Solver) State() State { return s.state }

// Solve builds a model from p and runs one search. Structural problems come
// back as errors; infeasibility is a Result with State Infeasible.
func Solve(cfg Config, p Problem, opts Options) (*Model, Result, error) {
	m, err := NewModel(cfg, p)
	if err != nil {
		return nil, Result{}, err
	}
	return m, NewSolver(m, opts).Solve(), nil
}

// searcher carries the per-solve search bookkeeping shared by the moves.
type searcher struct {
	m        *Model
	opts     Options
	rng      *rand.Rand
	start    time.Time
	deadline time.Time
	expired  bool
	calls    int
	metrics  Metrics
	best     solution
	bestCost int
	hasBest  bool
	state    *State
}

// Solve runs construction then improvement and returns the best complete
// solution found, or an Infeasible result.
func (s *Solver) Solve() Result {
	now := time.Now()
	sr := &searcher{
		m:        s.m,
		opts:     s.opts,
		rng:      rand.New(rand.NewSource(s.opts.Seed)),
		start:    now,
		deadline: now.Add(s.opts.TimeLimit),
		state:    &s.state,
	}
	res := Result{Metaheuristic: s.opts.Metaheuristic, FirstSolution: s.opts.FirstSolution, Routes: make([][]int, s.m.Vehicles())}

	sr.transition(Constructing)
	if s.m.n == 1 {
		sr.transition(Solved)
		res.State = Solved
		return res
	}
	if s.m.unservable() >= 0 {
		sr.transition(Infeasible)
		res.State = Infeasible
		res.Metrics = sr.finish()
		return res
	}
	sol := s.m.construct(s.opts.FirstSolution)
	sr.metrics.InitialCost = s.m.cost(sol)
	sr.consider(sol)

	sr.transition(Improving)
	switch s.opts.Metaheuristic {
	case GuidedLocalSearch:
		sr.guidedLocalSearch(sol)
	case ALNS:
		sr.adaptiveLargeNeighborhood(sol)
	default:
		sr.greedyDescent(sol)
	}

	res.Metrics = sr.finish()
	if !sr.hasBest {
		sr.transition(Infeasible)
		res.State = Infeasible
		return res
	}
	for v, r := range sr.best.routes {
		res.Routes[v] = append([]int(nil), r...)
	}
	res.Cost = sr.bestCost
	sr.transition(Solved)
	res.State = Solved
	return res
}

func (s *searcher) transition(st State) {
	*s.state = st
	s.report()
}

func (s *searcher) report() {
	if s.opts.Progress == nil {
		return
	}
	s.opts.Progress(Progress{State: *s.state, Iteration: s.metrics.Iterations, BestCost: s.bestCost, Elapsed: time.Since(s.start)})
}

func (s *searcher) finish() Metrics {
	s.metrics.BestCost = s.bestCost
	s.metrics.FinalCost = s.bestCost
	s.metrics.Elapsed = time.Since(s.start)
	return s.metrics
}

// done reports whether the time limit or the iteration cap has been reached.
func (s *searcher) done() bool {
	if s.opts.MaxIterations > 0 && s.metrics.Iterations >= s.opts.MaxIterations {
		return true
	}
	return s.outOfTime()
}

func (s *searcher) outOfTime() bool {
	if !s.expired && !time.Now().Before(s.deadline) {
		s.expired = true
	}
	return s.expired
}

// tick is the cheap deadline probe used inside move scans.
func (s *searcher) tick() bool {
	s.calls++
	if s.calls%64 != 0 {
		return s.expired
	}
	if !time.Now().Before(s.deadline) {
		s.expired = true
	}
	return s.expired
}

// consider records sol as the new best when it is complete and cheaper.
func (s *searcher) consider(sol solution) {
	if !sol.complete() {
		return
	}
	c := s.m.cost(sol)
	if s.hasBest && c >= s.bestCost {
		return
	}
	s.best = sol.clone()
	s.bestCost = c
	if s.hasBest {
		s.metrics.Improvements++
	}
	s.hasBest = true
	s.report()
}

// greedyDescent stops at the first local optimum.
func (s *searcher) greedyDescent(sol solution) {
	s.metrics.Iterations++
	s.descend(&sol, s.m.plainCost)
	s.consider(sol)
}

// guidedLocalSearch alternates descents on a penalized cost with penalizing
// the arcs of highest utility at each local optimum, so the search is pushed
// off arcs it keeps relying on.
func (s *searcher) guidedLocalSearch(sol solution) {
	m := s.m
	pen := make([][]int, m.n)
	for i := range pen {
		pen[i] = make([]int, m.n)
	}
	lambda := 0.0
	aug := func(i, j int) float64 {
		return float64(m.ArcCost(i, j)) + lambda*float64(pen[i][j])
	}
	stall := 0
	lastBest := math.MaxInt
	for !s.done() {
		s.metrics.Iterations++
		s.descend(&sol, aug)
		s.consider(sol)
		if s.hasBest && s.bestCost < lastBest {
			lastBest = s.bestCost
			stall = 0
		} else {
			stall++
		}
		if s.m.cfg.StallIterations > 0 && stall >= s.m.cfg.StallIterations {
			return
		}

		type arc struct{ i, j int }
		var arcs []arc
		for _, r := range sol.routes {
			if len(r) == 0 {
				continue
			}
			prev := 0
			for _, node := range r {
				arcs = append(arcs, arc{prev, node})
				prev = node
			}
			arcs = append(arcs, arc{prev, 0})
		}
		if len(arcs) == 0 {
			return
		}
		if lambda == 0 {
			lambda = m.cfg.GLSLambda * float64(m.cost(sol)) / float64(len(arcs))
			if lambda == 0 {
				return
			}
		}
		maxUtil := -1.0
		for _, a := range arcs {
			if u := float64(m.ArcCost(a.i, a.j)) / float64(1+pen[a.i][a.j]); u > maxUtil {
				maxUtil = u
			}
		}
		for _, a := range arcs {
			if float64(m.ArcCost(a.i, a.j))/float64(1+pen[a.i][a.j]) >= maxUtil-improveEps {
				pen[a.i][a.j]++
				pen[a.j][a.i]++
			}
		}
		s.metrics.PenaltyRounds++
	}
}
