// Package reconcile merges raw extraction output, derived-field output, and
// per-field review metadata into one consistent result record.
package reconcile

import (
	"formos/internal/schema"
)

// Sanitize filters raw nested extraction values against the schema tree.
// Keys with no matching field are dropped; composite nodes are coerced to
// their expected shape (object to a map or {}, list/table to a slice or []).
// A shape mismatch is silently coerced to the empty shape, never raised.
func Sanitize(fields []schema.Field, raw map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	if raw == nil {
		return out
	}

	for i := range fields {
		f := &fields[i]
		if f.Kind == schema.KindInput {
			continue
		}
		v, present := raw[f.Name]
		if !present {
			continue
		}
		switch f.Kind {
		case schema.KindLeaf:
			out[f.Name] = v
		case schema.KindObject:
			m, ok := v.(map[string]interface{})
			if !ok {
				out[f.Name] = map[string]interface{}{}
				continue
			}
			out[f.Name] = Sanitize(f.Children, m)
		case schema.KindList:
			out[f.Name] = sanitizeElements(itemFields(f), v)
		case schema.KindTable:
			out[f.Name] = sanitizeElements(f.Columns, v)
		case schema.KindInput:
			// unreachable, filtered above
		}
	}
	return out
}

// sanitizeElements coerces a list/table value to a slice and sanitizes each
// row that carries nested structure.
func sanitizeElements(rowFields []schema.Field, v interface{}) []interface{} {
	arr, ok := v.([]interface{})
	if !ok {
		return []interface{}{}
	}
	if len(rowFields) == 0 {
		return arr
	}
	out := make([]interface{}, 0, len(arr))
	for _, el := range arr {
		if m, isMap := el.(map[string]interface{}); isMap {
			out = append(out, Sanitize(rowFields, m))
			continue
		}
		out = append(out, el)
	}
	return out
}

// itemFields returns the row schema for a list: the item's children when the
// item is an object, otherwise nothing (scalar elements pass through).
func itemFields(f *schema.Field) []schema.Field {
	if f.Item == nil {
		return nil
	}
	if f.Item.Kind == schema.KindObject {
		return f.Item.Children
	}
	return nil
}
