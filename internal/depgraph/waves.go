package depgraph

// Waves topologically sorts the graph into ordered batches. A field lands in
// the first round where every one of its dependencies is already placed;
// round 0 holds the fields with no dependencies at all. Ties within a round
// keep the flattened field order, never map iteration order. Fields that can
// never become eligible, because they sit on a cycle or depend on an
// unresolvable id, are never emitted; callers must give them a terminal
// status themselves. The loop is bounded by the node count, so a cycle can
// not make it spin forever.
func (g *Graph) Waves() [][]string {
	placed := make(map[string]struct{}, len(g.Order))
	var waves [][]string

	for round := 0; round < len(g.Order); round++ {
		var wave []string
		for _, id := range g.Order {
			if _, done := placed[id]; done {
				continue
			}
			if g.satisfied(id, placed) {
				wave = append(wave, id)
			}
		}
		if len(wave) == 0 {
			break
		}
		for _, id := range wave {
			placed[id] = struct{}{}
		}
		waves = append(waves, wave)
	}

	return waves
}

// satisfied reports whether every dependency of id is already placed. A
// dependency on a field outside the graph (an extraction field when those are
// not scheduled as nodes) counts as satisfied: its value exists before any
// wave runs. Unknown ids and self-references never satisfy.
func (g *Graph) satisfied(id string, placed map[string]struct{}) bool {
	for dep := range g.Edges[id] {
		if dep == id || !g.Contains(dep) {
			return false
		}
		if _, isNode := g.Edges[dep]; !isNode {
			continue
		}
		if _, done := placed[dep]; !done {
			return false
		}
	}
	return true
}
