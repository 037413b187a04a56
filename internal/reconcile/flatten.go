package reconcile

import (
	"formos/internal/schema"
)

// FlattenResultsByID converts sanitized nested values into an id-keyed
// record: one entry per schema node, nil for any node absent from the input.
// Object children recurse with their parent's map. Nodes nested under a list
// or table have no single location, so they receive the column of values
// collected across rows: a table column's entry is the slice of that column's
// cells, a list item's entry is the element slice itself, and deeper
// descendants collect their values across every row they appear in.
func FlattenResultsByID(fields []schema.Field, values map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	flattenScope(fields, values, out)
	return out
}

func flattenScope(fields []schema.Field, values map[string]interface{}, out map[string]interface{}) {
	for i := range fields {
		f := &fields[i]
		if f.Kind == schema.KindInput {
			continue
		}
		var v interface{}
		if values != nil {
			v = values[f.Name]
		}
		switch f.Kind {
		case schema.KindLeaf:
			out[f.ID] = v
		case schema.KindObject:
			child, _ := v.(map[string]interface{})
			if v == nil {
				out[f.ID] = nil
			} else {
				out[f.ID] = v
			}
			flattenScope(f.Children, child, out)
		case schema.KindList:
			arr, _ := v.([]interface{})
			if v == nil {
				out[f.ID] = nil
			} else {
				out[f.ID] = v
			}
			if f.Item != nil {
				out[f.Item.ID] = arr
				flattenRowField(f.Item, arr, out)
			}
		case schema.KindTable:
			arr, _ := v.([]interface{})
			if v == nil {
				out[f.ID] = nil
			} else {
				out[f.ID] = v
			}
			for j := range f.Columns {
				cells := columnValues(arr, f.Columns[j].Name)
				out[f.Columns[j].ID] = cells
				flattenRowField(&f.Columns[j], cells, out)
			}
		case schema.KindInput:
			// unreachable, filtered above
		}
	}
}

// flattenRowField emits entries for the descendants of a node that lives
// inside a row scope, given that node's value collected per row. Every schema
// node below it still gets an id entry even when the nesting runs deeper than
// one level.
func flattenRowField(f *schema.Field, cells []interface{}, out map[string]interface{}) {
	switch f.Kind {
	case schema.KindObject:
		for i := range f.Children {
			child := &f.Children[i]
			if child.Kind == schema.KindInput {
				continue
			}
			childCells := columnValues(cells, child.Name)
			out[child.ID] = childCells
			flattenRowField(child, childCells, out)
		}
	case schema.KindList:
		if f.Item != nil {
			elems := gatherElements(cells)
			out[f.Item.ID] = elems
			flattenRowField(f.Item, elems, out)
		}
	case schema.KindTable:
		rows := gatherElements(cells)
		for i := range f.Columns {
			colCells := columnValues(rows, f.Columns[i].Name)
			out[f.Columns[i].ID] = colCells
			flattenRowField(&f.Columns[i], colCells, out)
		}
	}
}

// gatherElements concatenates the slice-valued cells, so rows of rows collapse
// into one column of elements. Nil in means nil out.
func gatherElements(cells []interface{}) []interface{} {
	if cells == nil {
		return nil
	}
	elems := make([]interface{}, 0, len(cells))
	for _, cell := range cells {
		if s, ok := cell.([]interface{}); ok {
			elems = append(elems, s...)
		}
	}
	return elems
}

// columnValues collects one column's cell per row, nil for rows missing it.
func columnValues(rows []interface{}, name string) []interface{} {
	if rows == nil {
		return nil
	}
	cells := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		if m, ok := row.(map[string]interface{}); ok {
			cells = append(cells, m[name])
			continue
		}
		cells = append(cells, nil)
	}
	return cells
}
