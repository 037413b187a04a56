package schema

// FlatField is a schema node annotated with its path from the tree root.
// Addressing a flattened field by ID is equivalent to addressing it by Path.
type FlatField struct {
	Field
	Path []string
}

// Flatten walks the tree in pre-order and returns every node, composites
// included: an object, list, or table appears once with its own path, its
// descendants recursively follow.
func Flatten(fields []Field) []FlatField {
	var out []FlatField
	for i := range fields {
		flattenInto(&fields[i], nil, &out)
	}
	return out
}

func flattenInto(f *Field, prefix []string, out *[]FlatField) {
	path := make([]string, len(prefix)+1)
	copy(path, prefix)
	path[len(prefix)] = f.Name

	*out = append(*out, FlatField{Field: *f, Path: path})

	switch f.Kind {
	case KindLeaf, KindInput:
		// no descendants
	case KindObject:
		for i := range f.Children {
			flattenInto(&f.Children[i], path, out)
		}
	case KindList:
		if f.Item != nil {
			flattenInto(f.Item, path, out)
		}
	case KindTable:
		for i := range f.Columns {
			flattenInto(&f.Columns[i], path, out)
		}
	}
}

// FieldByID returns the flattened node with the given id.
func FieldByID(fields []Field, id string) (FlatField, bool) {
	for _, ff := range Flatten(fields) {
		if ff.ID == id {
			return ff, true
		}
	}
	return FlatField{}, false
}

// ExtractionTree returns a pruned copy of the tree containing only fields
// eligible for direct document extraction. Transformation and input nodes are
// dropped wherever they occur; a composite whose descendants are all dropped
// is kept with an empty body so its shape survives.
func ExtractionTree(fields []Field) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if !f.IsExtraction() {
			continue
		}
		pruned := f
		switch f.Kind {
		case KindLeaf, KindInput:
		case KindObject:
			pruned.Children = ExtractionTree(f.Children)
		case KindList:
			if f.Item != nil {
				if item := ExtractionTree([]Field{*f.Item}); len(item) == 1 {
					pruned.Item = &item[0]
				} else {
					pruned.Item = nil
				}
			}
		case KindTable:
			pruned.Columns = ExtractionTree(f.Columns)
		}
		out = append(out, pruned)
	}
	return out
}
