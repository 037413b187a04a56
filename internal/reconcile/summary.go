package reconcile

import (
	"fmt"
	"sort"

	"formos/internal/depgraph"
	"formos/internal/schema"
)

// LeafSummaryKey groups primitive summary fields inside the summary object.
const LeafSummaryKey = "leaf_summary"

// BuildSummary aggregates fields flagged for summary display. Primitive
// fields roll into a synthetic leaf_summary object; composite fields get
// per-field entries keyed by name. It also surfaces a warning for every pair
// of summary fields where one depends on the other: a latent-cycle smell
// worth telling the user about, not a failure.
func BuildSummary(flat []schema.FlatField, valuesByID map[string]interface{}, g *depgraph.Graph) (map[string]interface{}, []string) {
	summary := make(map[string]interface{})
	leaves := make(map[string]interface{})
	summaryIDs := make(map[string]schema.FlatField)

	for _, f := range flat {
		if !f.DisplayInSummary {
			continue
		}
		summaryIDs[f.ID] = f
		switch f.Kind {
		case schema.KindLeaf:
			leaves[f.Name] = valuesByID[f.ID]
		case schema.KindObject, schema.KindList, schema.KindTable:
			summary[f.Name] = valuesByID[f.ID]
		case schema.KindInput:
			// input slots carry no extracted value
		}
	}

	if len(leaves) > 0 {
		summary[LeafSummaryKey] = leaves
	}

	var warnings []string
	if g != nil {
		for _, f := range flat {
			if _, ok := summaryIDs[f.ID]; !ok {
				continue
			}
			deps := make([]string, 0, len(g.Dependencies(f.ID)))
			for dep := range g.Dependencies(f.ID) {
				deps = append(deps, dep)
			}
			sort.Strings(deps)
			for _, dep := range deps {
				depField, ok := summaryIDs[dep]
				if !ok {
					continue
				}
				warnings = append(warnings, fmt.Sprintf(
					"summary field %q depends on summary field %q; consider displaying only one of them",
					f.Name, depField.Name))
			}
		}
	}

	return summary, warnings
}
