// Package mention extracts field references from free-form transformation
// prompts. Reference parsing lives here, behind depgraph.ReferenceResolver,
// so the graph builder never touches prompt text itself.
package mention

import (
	"regexp"

	"formos/internal/schema"
)

// mentionPattern matches explicit mentions of the form @[Field Name](field_id).
var mentionPattern = regexp.MustCompile(`@\[([^\]]+)\]\(([^)\s]+)\)`)

// barePattern matches bare @FieldName mentions, resolved against field names.
var barePattern = regexp.MustCompile(`@([A-Za-z][A-Za-z0-9_]*)`)

// Resolver resolves field references embedded in prompt text.
type Resolver struct{}

// NewResolver creates a mention resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveReferences returns the ids of every field referenced in text, in
// first-mention order with duplicates removed. Explicit @[Name](id) mentions
// resolve to their id as written, even when the id is unknown: the graph
// validator is the place that flags dangling references. Bare @Name mentions
// resolve only when the name matches a flattened field.
func (r *Resolver) ResolveReferences(text string, fields []schema.FlatField) []string {
	if text == "" {
		return nil
	}

	byName := make(map[string]string, len(fields))
	for _, f := range fields {
		byName[f.Name] = f.ID
	}

	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	// Strip explicit mentions as they are consumed so their name part cannot
	// also match as a bare mention.
	stripped := mentionPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := mentionPattern.FindStringSubmatch(m)
		add(sub[2])
		return ""
	})

	for _, m := range barePattern.FindAllStringSubmatch(stripped, -1) {
		if id, ok := byName[m[1]]; ok {
			add(id)
		}
	}

	return ids
}
