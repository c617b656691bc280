package opt

import (
	"math"
	"math/rand"
	"sort"
)

const snapshotEvery = 50

// adaptiveLargeNeighborhood ruins and recreates the current solution with
// roulette-selected operators, descends after each repair and accepts worse
// candidates with a simulated-annealing test.
func (s *searcher) adaptiveLargeNeighborhood(sol solution) {
	m := s.m
	drop := m.dropPenalty()
	remW := []float64{1, 1} // random, shaw
	insW := []float64{1, 1} // greedy, regret2

	s.descend(&sol, m.plainCost)
	s.consider(sol)
	curr := sol
	currCost := m.penalizedCost(curr, drop)
	temp := 0.01 * float64(currCost)
	if temp <= 0 {
		temp = 1
	}
	const cool = 0.995

	for !s.done() {
		s.metrics.Iterations++
		assigned := m.n - 1 - len(curr.unassigned)
		k := 1 + s.rng.Intn(max(3, assigned/10))
		op := selectOp(remW, s.rng)
		s.metrics.RemovalSelects[op]++
		ip := selectOp(insW, s.rng)
		s.metrics.InsertSelects[ip]++

		cand := curr.clone()
		var removed []int
		switch op {
		case 0:
			removed = pickRandomNodes(cand, k, s.rng)
		case 1:
			removed = m.shawRemoval(cand, k, s.rng)
		}
		cand = removeNodes(cand, removed)
		pending := append(cand.unassigned, removed...)
		cand.unassigned = nil
		switch ip {
		case 0:
			cand = m.greedyInsert(cand, pending, m.plainCost)
		case 1:
			cand = m.regretInsert(cand, pending, m.plainCost)
		}
		s.descend(&cand, m.plainCost)
		s.consider(cand)

		candCost := m.penalizedCost(cand, drop)
		delta := float64(candCost - currCost)
		if delta < 0 || s.rng.Float64() < math.Exp(-delta/(temp+1e-9)) {
			if delta < 0 {
				remW[op] += 0.1
				insW[ip] += 0.1
			} else {
				remW[op] += 0.01
				insW[ip] += 0.01
				s.metrics.AcceptedWorse++
			}
			curr, currCost = cand, candCost
		} else {
			remW[op] = math.Max(0.01, remW[op]*0.999)
			insW[ip] = math.Max(0.01, insW[ip]*0.999)
		}
		temp *= cool
		if s.metrics.Iterations%snapshotEvery == 0 {
			s.metrics.Snapshots = append(s.metrics.Snapshots, WeightSnapshot{Iteration: s.metrics.Iterations, Removal: [2]float64{remW[0], remW[1]}, Insertion: [2]float64{insW[0], insW[1]}})
		}
	}
	s.metrics.FinalRemovalWeights = [2]float64{remW[0], remW[1]}
	s.metrics.FinalInsertionWeights = [2]float64{insW[0], insW[1]}
}

func pickRandomNodes(sol solution, k int, rng *rand.Rand) []int {
	var all []int
	for _, r := range sol.routes {
		all = append(all, r...)
	}
	var removed []int
	for i := 0; i < k && len(all) > 0; i++ {
		j := rng.Intn(len(all))
		removed = append(removed, all[j])
		all = append(all[:j], all[j+1:]...)
	}
	return removed
}

func removeNodes(sol solution, removed []int) solution {
	if len(removed) == 0 {
		return sol
	}
	rm := make(map[int]bool, len(removed))
	for _, i := range removed {
		rm[i] = true
	}
	out := solution{routes: make([][]int, len(sol.routes)), unassigned: sol.unassigned}
	for v, r := range sol.routes {
		for _, node := range r {
			if !rm[node] {
				out.routes[v] = append(out.routes[v], node)
			}
		}
	}
	return out
}

// shawRemoval picks a random seed stop and the k-1 stops most related to it:
// close by and with overlapping windows.
func (m *Model) shawRemoval(sol solution, k int, rng *rand.Rand) []int {
	var assigned []int
	for _, r := range sol.routes {
		assigned = append(assigned, r...)
	}
	if len(assigned) == 0 {
		return nil
	}
	seed := assigned[rng.Intn(len(assigned))]
	type pair struct {
		idx   int
		score float64
	}
	var rel []pair
	for _, idx := range assigned {
		if idx == seed {
			continue
		}
		score := float64(m.dist[seed][idx]) - 1000.0*float64(windowOverlap(m.windows[seed], m.windows[idx]))/3600
		rel = append(rel, pair{idx: idx, score: score})
	}
	sort.SliceStable(rel, func(a, b int) bool { return rel[a].score < rel[b].score })
	removed := []int{seed}
	for i := 0; i < len(rel) && len(removed) < k; i++ {
		removed = append(removed, rel[i].idx)
	}
	return removed
}

// windowOverlap is the number of seconds both windows are open.
func windowOverlap(a, b TimeWindow) int {
	start := max(a.Start, b.Start)
	end := min(a.End, b.End)
	if end < start {
		return 0
	}
	return end - start
}

func selectOp(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}
