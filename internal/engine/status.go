package engine

import "formos/internal/domain"

// FieldStatus is the execution outcome for a single transformation field.
type FieldStatus struct {
	State domain.FieldState `json:"state"`
	Err   string            `json:"error,omitempty"`
}

// Result holds one run's computed values and per-field statuses. Both maps
// are built fresh for each run and never shared across jobs.
type Result struct {
	Values   map[string]interface{}
	Statuses map[string]FieldStatus
}

// StatusOf returns the status for a field id, defaulting to pending.
func (r *Result) StatusOf(id string) FieldStatus {
	if st, ok := r.Statuses[id]; ok {
		return st
	}
	return FieldStatus{State: domain.FieldStatePending}
}
