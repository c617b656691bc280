package opt

// load sums the demand of the stops on route.
func (m *Model) load(route []int) int {
	total := 0
	for _, i := range route {
		total += m.stops[i].Demand
	}
	return total
}

// schedule propagates the time dimension along depot, route..., depot and
// returns the cumul value at every position. Arrivals before a window wait
// for it to open (bounded by the slack ceiling); arrivals after it, or a
// return past the horizon, make the route infeasible. The departure is pushed
// forward by any wait at the first stop.
func (m *Model) schedule(route []int) ([]int, bool) {
	cumul := make([]int, len(route)+2)
	t := m.depart
	cumul[0] = t
	prev := 0
	for k, node := range route {
		a := t + m.transit[prev][node]
		w := m.windows[node]
		if a > w.End {
			return cumul, false
		}
		if a < w.Start {
			if w.Start-a > m.cfg.MaxSlackSec {
				return cumul, false
			}
			a = w.Start
		}
		cumul[k+1] = a
		t = a
		prev = node
	}
	end := t + m.transit[prev][0]
	if end > m.cfg.HorizonSec {
		return cumul, false
	}
	cumul[len(cumul)-1] = end
	if len(route) > 0 {
		if wait := cumul[1] - (cumul[0] + m.transit[0][route[0]]); wait > 0 {
			cumul[0] += wait
		}
	}
	return cumul, true
}

// timeFeasible reports whether route respects the time dimension.
func (m *Model) timeFeasible(route []int) bool {
	_, ok := m.schedule(route)
	return ok
}

// feasible checks both dimensions of route on vehicle v.
func (m *Model) feasible(v int, route []int) bool {
	if m.load(route) > m.vehicles[v].Capacity {
		return false
	}
	return m.timeFeasible(route)
}

// routeCost is the objective along depot, route..., depot.
func (m *Model) routeCost(route []int) int {
	if len(route) == 0 {
		return 0
	}
	total := 0
	prev := 0
	for _, node := range route {
		total += m.ArcCost(prev, node)
		prev = node
	}
	return total + m.ArcCost(prev, 0)
}

// routeDistance is the driven meters along depot, route..., depot.
func (m *Model) routeDistance(route []int) int {
	if len(route) == 0 {
		return 0
	}
	total := 0
	prev := 0
	for _, node := range route {
		total += m.dist[prev][node]
		prev = node
	}
	return total + m.dist[prev][0]
}

// arcCostFunc prices one arc; the search swaps it for a penalized variant.
type arcCostFunc func(i, j int) float64

func (m *Model) plainCost(i, j int) float64 { return float64(m.ArcCost(i, j)) }

func routeCostWith(route []int, c arcCostFunc) float64 {
	if len(route) == 0 {
		return 0
	}
	total := 0.0
	prev := 0
	for _, node := range route {
		total += c(prev, node)
		prev = node
	}
	return total + c(prev, 0)
}

// solution is the mutable search state: one stop sequence per vehicle (depot
// excluded) plus the stops not yet placed.
type solution struct {
	routes     [][]int
	unassigned []int
}

func newSolution(vehicles int) solution {
	return solution{routes: make([][]int, vehicles)}
}

func (s solution) clone() solution {
	out := solution{routes: make([][]int, len(s.routes))}
	for i, r := range s.routes {
		out.routes[i] = append([]int(nil), r...)
	}
	out.unassigned = append([]int(nil), s.unassigned...)
	return out
}

func (s solution) complete() bool { return len(s.unassigned) == 0 }

func (m *Model) cost(s solution) int {
	total := 0
	for _, r := range s.routes {
		total += m.routeCost(r)
	}
	return total
}

// dropPenalty prices one unassigned stop above any detour it could cause.
func (m *Model) dropPenalty() int {
	maxArc := 0
	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			if c := m.ArcCost(i, j); c > maxArc {
				maxArc = c
			}
		}
	}
	return 2*maxArc + 1
}

// penalizedCost adds dropPenalty for every unassigned stop.
func (m *Model) penalizedCost(s solution, drop int) int {
	return m.cost(s) + drop*len(s.unassigned)
}

func insertAt(route []int, pos, node int) []int {
	out := make([]int, 0, len(route)+1)
	out = append(out, route[:pos]...)
	out = append(out, node)
	return append(out, route[pos:]...)
}

func removeAt(route []int, pos int) []int {
	out := make([]int, 0, len(route)-1)
	out = append(out, route[:pos]...)
	return append(out, route[pos+1:]...)
}
