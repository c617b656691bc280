package opt

import (
	"math"
	"sort"
)

// FirstSolution names a construction heuristic.
type FirstSolution string

const (
	PathCheapestArc FirstSolution = "path_cheapest_arc"
	Savings         FirstSolution = "savings"
)

// unservable returns the first stop that no vehicle could serve even on a
// route of its own, or -1.
func (m *Model) unservable() int {
	for i := 1; i < m.n; i++ {
		if m.stops[i].Demand > m.maxCap {
			return i
		}
		if !m.timeFeasible([]int{i}) {
			return i
		}
	}
	return -1
}

// cheapestArc grows one route per vehicle from the depot, always appending
// the unvisited stop with the least arc cost from the route's end that keeps
// both dimensions feasible. When nothing fits the route is closed and the
// next vehicle starts.
func (m *Model) cheapestArc() solution {
	sol := newSolution(len(m.vehicles))
	used := make([]bool, m.n)
	used[0] = true
	remaining := m.n - 1
	for v := range m.vehicles {
		if remaining == 0 {
			break
		}
		route := []int{}
		load := 0
		last := 0
		for {
			best, bestCost := -1, math.MaxInt
			for j := 1; j < m.n; j++ {
				if used[j] || load+m.stops[j].Demand > m.vehicles[v].Capacity {
					continue
				}
				c := m.ArcCost(last, j)
				if c >= bestCost {
					continue
				}
				if !m.timeFeasible(append(append([]int(nil), route...), j)) {
					continue
				}
				best, bestCost = j, c
			}
			if best < 0 {
				break
			}
			route = append(route, best)
			used[best] = true
			load += m.stops[best].Demand
			last = best
			remaining--
		}
		sol.routes[v] = route
	}
	for j := 1; j < m.n; j++ {
		if !used[j] {
			sol.unassigned = append(sol.unassigned, j)
		}
	}
	return sol
}

type saving struct {
	i, j  int
	value int
}

// savings runs Clarke-Wright: every stop starts on its own route and routes
// are merged end-to-start in order of decreasing savings while the merged
// route stays feasible for the largest vehicle. Routes are then bound to
// vehicles largest load first.
func (m *Model) savings() solution {
	routeOf := make([]int, m.n)
	routes := map[int][]int{}
	for i := 1; i < m.n; i++ {
		routeOf[i] = i
		routes[i] = []int{i}
	}
	var list []saving
	for i := 1; i < m.n; i++ {
		for j := 1; j < m.n; j++ {
			if i == j {
				continue
			}
			s := m.ArcCost(i, 0) + m.ArcCost(0, j) - m.ArcCost(i, j)
			if s > 0 {
				list = append(list, saving{i: i, j: j, value: s})
			}
		}
	}
	sort.SliceStable(list, func(a, b int) bool { return list[a].value > list[b].value })
	for _, s := range list {
		ri, rj := routeOf[s.i], routeOf[s.j]
		if ri == rj {
			continue
		}
		a, b := routes[ri], routes[rj]
		// i must end its route and j must start its own.
		if a[len(a)-1] != s.i || b[0] != s.j {
			continue
		}
		merged := append(append([]int(nil), a...), b...)
		if m.load(merged) > m.maxCap || !m.timeFeasible(merged) {
			continue
		}
		routes[ri] = merged
		delete(routes, rj)
		for _, node := range b {
			routeOf[node] = ri
		}
	}

	keys := make([]int, 0, len(routes))
	for k := range routes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	sort.SliceStable(keys, func(a, b int) bool { return m.load(routes[keys[a]]) > m.load(routes[keys[b]]) })

	fleet := make([]int, len(m.vehicles))
	for i := range fleet {
		fleet[i] = i
	}
	sort.SliceStable(fleet, func(a, b int) bool { return m.vehicles[fleet[a]].Capacity > m.vehicles[fleet[b]].Capacity })

	sol := newSolution(len(m.vehicles))
	taken := make([]bool, len(m.vehicles))
	for _, k := range keys {
		r := routes[k]
		// smallest vehicle that still fits, scanning from the largest down
		pick := -1
		for _, v := range fleet {
			if !taken[v] && m.vehicles[v].Capacity >= m.load(r) {
				pick = v
			}
		}
		if pick < 0 {
			sol.unassigned = append(sol.unassigned, r...)
			continue
		}
		sol.routes[pick] = r
		taken[pick] = true
	}
	sort.Ints(sol.unassigned)
	return sol
}

// bestInsertion finds the cheapest feasible position for node under cost c.
// It returns the vehicle, the position and the cost increase; v is -1 when no
// position is feasible.
func (m *Model) bestInsertion(sol solution, node int, c arcCostFunc) (int, int, float64, float64) {
	bv, bpos := -1, -1
	best, second := math.Inf(1), math.Inf(1)
	for v, r := range sol.routes {
		if m.load(r)+m.stops[node].Demand > m.vehicles[v].Capacity {
			continue
		}
		base := routeCostWith(r, c)
		vBest := math.Inf(1)
		vPos := -1
		for pos := 0; pos <= len(r); pos++ {
			prev, next := 0, 0
			if pos > 0 {
				prev = r[pos-1]
			}
			if pos < len(r) {
				next = r[pos]
			}
			delta := c(prev, node) + c(node, next) - c(prev, next)
			if len(r) == 0 {
				delta = routeCostWith([]int{node}, c) - base
			}
			if delta >= vBest {
				continue
			}
			if !m.timeFeasible(insertAt(r, pos, node)) {
				continue
			}
			vBest, vPos = delta, pos
		}
		if vPos < 0 {
			continue
		}
		// regret compares across vehicles, so only the best slot per route counts
		if vBest < best {
			second = best
			best, bv, bpos = vBest, v, vPos
		} else if vBest < second {
			second = vBest
		}
	}
	return bv, bpos, best, second
}

// greedyInsert places nodes one at a time, always choosing the globally
// cheapest feasible (node, vehicle, position). Nodes that fit nowhere are
// appended to sol.unassigned.
func (m *Model) greedyInsert(sol solution, nodes []int, c arcCostFunc) solution {
	pending := append([]int(nil), nodes...)
	for len(pending) > 0 {
		bestNode, bestV, bestPos := -1, -1, -1
		bestCost := math.Inf(1)
		for ni, node := range pending {
			v, pos, delta, _ := m.bestInsertion(sol, node, c)
			if v >= 0 && delta < bestCost {
				bestNode, bestV, bestPos, bestCost = ni, v, pos, delta
			}
		}
		if bestNode < 0 {
			sol.unassigned = append(sol.unassigned, pending...)
			return sol
		}
		sol.routes[bestV] = insertAt(sol.routes[bestV], bestPos, pending[bestNode])
		pending = removeAt(pending, bestNode)
	}
	return sol
}

// regretInsert places first the node whose best and second-best vehicle
// differ most, so hard-to-place stops are not crowded out.
func (m *Model) regretInsert(sol solution, nodes []int, c arcCostFunc) solution {
	pending := append([]int(nil), nodes...)
	for len(pending) > 0 {
		bestNode, bestV, bestPos := -1, -1, -1
		bestRegret := -1.0
		bestCost := math.Inf(1)
		for ni, node := range pending {
			v, pos, delta, second := m.bestInsertion(sol, node, c)
			if v < 0 {
				continue
			}
			regret := second - delta
			if math.IsInf(second, 1) {
				regret = math.MaxFloat64
			}
			if regret > bestRegret || (regret == bestRegret && delta < bestCost) {
				bestNode, bestV, bestPos, bestRegret, bestCost = ni, v, pos, regret, delta
			}
		}
		if bestNode < 0 {
			sol.unassigned = append(sol.unassigned, pending...)
			return sol
		}
		sol.routes[bestV] = insertAt(sol.routes[bestV], bestPos, pending[bestNode])
		pending = removeAt(pending, bestNode)
	}
	return sol
}

// construct builds the first assignment and repairs whatever the chosen
// heuristic left behind with cheapest insertion.
func (m *Model) construct(strategy FirstSolution) solution {
	var sol solution
	switch strategy {
	case Savings:
		sol = m.savings()
	default:
		sol = m.cheapestArc()
	}
	if len(sol.unassigned) > 0 {
		left := sol.unassigned
		sol.unassigned = nil
		sol = m.greedyInsert(sol, left, m.plainCost)
	}
	return sol
}
