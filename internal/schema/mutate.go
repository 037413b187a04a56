package schema

// UpdateFieldByID returns a structurally new tree with exactly the node
// carrying the given id replaced by updater's result. If the id is absent the
// tree is returned unchanged; the operation never fails.
func UpdateFieldByID(fields []Field, id string, updater func(Field) Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		if f.ID == id {
			out[i] = updater(f)
			continue
		}
		updated := f
		switch f.Kind {
		case KindLeaf, KindInput:
		case KindObject:
			updated.Children = UpdateFieldByID(f.Children, id, updater)
		case KindList:
			if f.Item != nil {
				item := UpdateFieldByID([]Field{*f.Item}, id, updater)
				updated.Item = &item[0]
			}
		case KindTable:
			updated.Columns = UpdateFieldByID(f.Columns, id, updater)
		}
		out[i] = updated
	}
	return out
}

// RemoveFieldByID returns the tree with the named node pruned, wherever in the
// recursion it occurs: top level, inside an object's children, inside a list's
// item, or inside a table's columns. Removing a list's item yields a list with
// no item. An absent id is a no-op.
func RemoveFieldByID(fields []Field, id string) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if f.ID == id {
			continue
		}
		pruned := f
		switch f.Kind {
		case KindLeaf, KindInput:
		case KindObject:
			pruned.Children = RemoveFieldByID(f.Children, id)
		case KindList:
			if f.Item != nil {
				if f.Item.ID == id {
					pruned.Item = nil
				} else {
					item := RemoveFieldByID([]Field{*f.Item}, id)
					pruned.Item = &item[0]
				}
			}
		case KindTable:
			pruned.Columns = RemoveFieldByID(f.Columns, id)
		}
		out = append(out, pruned)
	}
	return out
}
