package schema

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"formos/internal/domain"
)

// NewFieldID generates a stable field id from the field name plus a random
// suffix. Uniqueness within a tree is still checked by ValidateUniqueIDs at
// creation time rather than assumed from suffix entropy.
func NewFieldID(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, slug)
	slug = strings.Trim(slug, "_")
	if slug == "" {
		slug = "field"
	}
	return slug + "_" + uuid.New().String()[:8]
}

// AssignIDs returns a copy of the tree where every node missing an id gets one
// generated from its name. Existing ids are never touched.
func AssignIDs(fields []Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		assigned := f
		if assigned.ID == "" {
			assigned.ID = NewFieldID(assigned.Name)
		}
		switch f.Kind {
		case KindLeaf, KindInput:
		case KindObject:
			assigned.Children = AssignIDs(f.Children)
		case KindList:
			if f.Item != nil {
				item := AssignIDs([]Field{*f.Item})
				assigned.Item = &item[0]
			}
		case KindTable:
			assigned.Columns = AssignIDs(f.Columns)
		}
		out[i] = assigned
	}
	return out
}

// ValidateUniqueIDs checks that every field id is unique within the whole
// tree, nested children included, and that no id collides with a reserved
// result key.
func ValidateUniqueIDs(fields []Field) error {
	reserved := make(map[string]struct{}, len(domain.ReservedResultKeys))
	for _, k := range domain.ReservedResultKeys {
		reserved[k] = struct{}{}
	}

	seen := make(map[string]struct{})
	for _, ff := range Flatten(fields) {
		if ff.ID == "" {
			return fmt.Errorf("field %q: %w", ff.Name, domain.ErrInvalidSchema)
		}
		if _, ok := reserved[ff.ID]; ok {
			return fmt.Errorf("field %q (%s): %w", ff.Name, ff.ID, domain.ErrReservedFieldID)
		}
		if _, ok := seen[ff.ID]; ok {
			return fmt.Errorf("field %q (%s): %w", ff.Name, ff.ID, domain.ErrDuplicateFieldID)
		}
		seen[ff.ID] = struct{}{}
	}
	return nil
}
