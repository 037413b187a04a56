// Package depgraph builds and schedules the dependency graph between a
// schema's transformation fields.
package depgraph

import (
	"formos/internal/schema"
)

// ReferenceResolver turns a transformation field's prompt text into the ids of
// the fields it references. Implemented by internal/mention in production.
type ReferenceResolver interface {
	ResolveReferences(text string, fields []schema.FlatField) []string
}

// Graph is the directed dependency graph over a flattened schema snapshot.
// Edges maps a field id to the set of field ids it depends on; only fields
// with an entry participate in scheduling. Order preserves the flattened
// field order so scheduling is deterministic.
type Graph struct {
	Edges map[string]map[string]struct{}
	Order []string

	fields map[string]schema.FlatField
}

// BuildOptions controls graph construction.
type BuildOptions struct {
	// IncludeExtractionFields adds non-transformation fields as zero-dependency
	// nodes so they appear in wave 0. They are always valid reference targets
	// either way; they never carry dependencies of their own.
	IncludeExtractionFields bool
}

// Build scans every transformation field's configuration for references to
// other fields and produces the dependency graph. Both the transformation
// prompt and the field's instructions are scanned; a mention in either text
// creates an edge. A field referencing itself keeps the self edge; validation
// reports it as unresolvable rather than failing here.
func Build(fields []schema.FlatField, resolver ReferenceResolver, opts BuildOptions) *Graph {
	g := &Graph{
		Edges:  make(map[string]map[string]struct{}),
		fields: make(map[string]schema.FlatField, len(fields)),
	}

	for _, f := range fields {
		g.fields[f.ID] = f
	}

	for _, f := range fields {
		if !f.IsTransformation {
			if opts.IncludeExtractionFields {
				g.Edges[f.ID] = make(map[string]struct{})
				g.Order = append(g.Order, f.ID)
			}
			continue
		}

		deps := make(map[string]struct{})
		if resolver != nil {
			for _, text := range referenceSources(f) {
				for _, id := range resolver.ResolveReferences(text, fields) {
					deps[id] = struct{}{}
				}
			}
		}
		g.Edges[f.ID] = deps
		g.Order = append(g.Order, f.ID)
	}

	return g
}

// referenceSources returns the texts that may carry field mentions: the
// transformation prompt and the instructions, each when non-empty.
func referenceSources(f schema.FlatField) []string {
	var texts []string
	if f.TransformationConfig != nil && f.TransformationConfig.Prompt != "" {
		texts = append(texts, f.TransformationConfig.Prompt)
	}
	if f.Instructions != "" {
		texts = append(texts, f.Instructions)
	}
	return texts
}

// Dependencies returns the dependency set for a field id, or nil when the
// field has no transformation entry.
func (g *Graph) Dependencies(id string) map[string]struct{} {
	return g.Edges[id]
}

// FieldByID returns the flattened field behind a node id.
func (g *Graph) FieldByID(id string) (schema.FlatField, bool) {
	f, ok := g.fields[id]
	return f, ok
}

// Contains reports whether an id names any field in the schema snapshot,
// transformation or not.
func (g *Graph) Contains(id string) bool {
	_, ok := g.fields[id]
	return ok
}
