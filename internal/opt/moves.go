package opt

const improveEps = 1e-9

// descend applies improving moves under cost c until none is left or the
// search runs out of time. It reports whether anything changed.
func (s *searcher) descend(sol *solution, c arcCostFunc) bool {
	changed := false
	for !s.outOfTime() {
		improved := s.insertUnassigned(sol, c) ||
			s.relocate(sol, c) ||
			s.exchange(sol, c) ||
			s.twoOpt(sol, c) ||
			s.tailExchange(sol, c) ||
			s.crossExchange(sol, c)
		if !improved {
			break
		}
		changed = true
		s.consider(*sol)
	}
	return changed
}

// insertUnassigned places any dropped stop that now fits somewhere.
func (s *searcher) insertUnassigned(sol *solution, c arcCostFunc) bool {
	if len(sol.unassigned) == 0 {
		return false
	}
	for k, node := range sol.unassigned {
		v, pos, _, _ := s.m.bestInsertion(*sol, node, c)
		if v < 0 {
			continue
		}
		sol.routes[v] = insertAt(sol.routes[v], pos, node)
		sol.unassigned = removeAt(sol.unassigned, k)
		return true
	}
	return false
}

// relocate moves one stop to another position, in its own route or another.
func (s *searcher) relocate(sol *solution, c arcCostFunc) bool {
	m := s.m
	for a, ra := range sol.routes {
		baseA := routeCostWith(ra, c)
		for i, x := range ra {
			without := removeAt(ra, i)
			costWithout := routeCostWith(without, c)
			for b, rb := range sol.routes {
				if s.tick() {
					return false
				}
				if b == a {
					for j := 0; j <= len(without); j++ {
						if j == i {
							continue
						}
						cand := insertAt(without, j, x)
						if routeCostWith(cand, c)-baseA >= -improveEps {
							continue
						}
						if !m.timeFeasible(cand) {
							continue
						}
						sol.routes[a] = cand
						return true
					}
					continue
				}
				if m.load(rb)+m.stops[x].Demand > m.vehicles[b].Capacity {
					continue
				}
				baseB := routeCostWith(rb, c)
				for j := 0; j <= len(rb); j++ {
					cand := insertAt(rb, j, x)
					if costWithout+routeCostWith(cand, c)-baseA-baseB >= -improveEps {
						continue
					}
					if !m.timeFeasible(cand) || !m.timeFeasible(without) {
						continue
					}
					sol.routes[a] = without
					sol.routes[b] = cand
					return true
				}
			}
		}
	}
	return false
}

// exchange swaps two stops, within one route or across two.
func (s *searcher) exchange(sol *solution, c arcCostFunc) bool {
	m := s.m
	for a, ra := range sol.routes {
		baseA := routeCostWith(ra, c)
		for i := range ra {
			if s.tick() {
				return false
			}
			for j := i + 1; j < len(ra); j++ {
				cand := append([]int(nil), ra...)
				cand[i], cand[j] = cand[j], cand[i]
				if routeCostWith(cand, c)-baseA >= -improveEps || !m.timeFeasible(cand) {
					continue
				}
				sol.routes[a] = cand
				return true
			}
			for b := a + 1; b < len(sol.routes); b++ {
				rb := sol.routes[b]
				baseB := routeCostWith(rb, c)
				for j := range rb {
					ca := append([]int(nil), ra...)
					cb := append([]int(nil), rb...)
					ca[i], cb[j] = rb[j], ra[i]
					if routeCostWith(ca, c)+routeCostWith(cb, c)-baseA-baseB >= -improveEps {
						continue
					}
					if !m.feasible(a, ca) || !m.feasible(b, cb) {
						continue
					}
					sol.routes[a], sol.routes[b] = ca, cb
					return true
				}
			}
		}
	}
	return false
}

// twoOpt reverses a segment of one route.
func (s *searcher) twoOpt(sol *solution, c arcCostFunc) bool {
	m := s.m
	for a, ra := range sol.routes {
		if len(ra) < 2 {
			continue
		}
		base := routeCostWith(ra, c)
		for i := 0; i < len(ra)-1; i++ {
			if s.tick() {
				return false
			}
			for k := i + 1; k < len(ra); k++ {
				cand := twoOptSwap(ra, i, k)
				if routeCostWith(cand, c)-base >= -improveEps || !m.timeFeasible(cand) {
					continue
				}
				sol.routes[a] = cand
				return true
			}
		}
	}
	return false
}

// twoOptSwap returns a copy of ord with ord[i..k] reversed.
func twoOptSwap(ord []int, i, k int) []int {
	out := append([]int(nil), ord...)
	for a, b := i, k; a < b; a, b = a+1, b-1 {
		out[a], out[b] = out[b], out[a]
	}
	return out
}

// tailExchange is 2-opt*: two routes swap everything after a cut point.
func (s *searcher) tailExchange(sol *solution, c arcCostFunc) bool {
	m := s.m
	for a := 0; a < len(sol.routes); a++ {
		for b := a + 1; b < len(sol.routes); b++ {
			ra, rb := sol.routes[a], sol.routes[b]
			if len(ra) == 0 && len(rb) == 0 {
				continue
			}
			base := routeCostWith(ra, c) + routeCostWith(rb, c)
			for i := 0; i <= len(ra); i++ {
				if s.tick() {
					return false
				}
				for j := 0; j <= len(rb); j++ {
					if i == len(ra) && j == len(rb) {
						continue
					}
					ca := append(append([]int(nil), ra[:i]...), rb[j:]...)
					cb := append(append([]int(nil), rb[:j]...), ra[i:]...)
					if routeCostWith(ca, c)+routeCostWith(cb, c)-base >= -improveEps {
						continue
					}
					if !m.feasible(a, ca) || !m.feasible(b, cb) {
						continue
					}
					sol.routes[a], sol.routes[b] = ca, cb
					return true
				}
			}
		}
	}
	return false
}

// crossExchange swaps segments of up to two stops between routes. Single
// stop pairs are left to exchange.
func (s *searcher) crossExchange(sol *solution, c arcCostFunc) bool {
	m := s.m
	for a := 0; a < len(sol.routes); a++ {
		for b := a + 1; b < len(sol.routes); b++ {
			ra, rb := sol.routes[a], sol.routes[b]
			base := routeCostWith(ra, c) + routeCostWith(rb, c)
			for i := range ra {
				if s.tick() {
					return false
				}
				for j := range rb {
					for la := 1; la <= 2 && i+la <= len(ra); la++ {
						for lb := 1; lb <= 2 && j+lb <= len(rb); lb++ {
							if la == 1 && lb == 1 {
								continue
							}
							ca := append(append(append([]int(nil), ra[:i]...), rb[j:j+lb]...), ra[i+la:]...)
							cb := append(append(append([]int(nil), rb[:j]...), ra[i:i+la]...), rb[j+lb:]...)
							if routeCostWith(ca, c)+routeCostWith(cb, c)-base >= -improveEps {
								continue
							}
							if !m.feasible(a, ca) || !m.feasible(b, cb) {
								continue
							}
							sol.routes[a], sol.routes[b] = ca, cb
							return true
						}
					}
				}
			}
		}
	}
	return false
}
