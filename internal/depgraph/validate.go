package depgraph

import "sort"

// Report is the outcome of validating a graph. Unresolvable lists dependency
// ids that name no field in the schema, plus self-references; MissingByField
// maps each affected field to the offending ids. Cycles are deliberately not
// detected here: the scheduler simply never emits cyclic fields, which is
// observationally the same as a blocked field for the caller.
type Report struct {
	Unresolvable   []string
	MissingByField map[string][]string
}

// Validate checks every dependency edge and reports the unresolvable ones
// without failing.
func (g *Graph) Validate() Report {
	report := Report{MissingByField: make(map[string][]string)}
	seen := make(map[string]struct{})

	for _, id := range g.Order {
		for dep := range g.Edges[id] {
			if g.Contains(dep) && dep != id {
				continue
			}
			report.MissingByField[id] = append(report.MissingByField[id], dep)
			if _, ok := seen[dep]; !ok {
				seen[dep] = struct{}{}
				report.Unresolvable = append(report.Unresolvable, dep)
			}
		}
		sort.Strings(report.MissingByField[id])
	}

	sort.Strings(report.Unresolvable)
	return report
}
