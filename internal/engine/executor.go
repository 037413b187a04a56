// Package engine runs a job's transformation fields wave by wave, isolating
// each field's failure from the rest of the run.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"formos/internal/depgraph"
	"formos/internal/domain"
	"formos/internal/port"
	"formos/internal/schema"
)

// NoDataValue is the value a field receives when all of its inputs carry no
// data and the remote call is skipped.
const NoDataValue = "-"

// DefaultEmptySentinels are the dependency values treated as "no data". The
// set is configurable because the convention is inherited, not principled.
var DefaultEmptySentinels = []string{"-", "hyphen", ""}

// Executor dispatches transformation calls for one job execution. The schema
// snapshot it receives is treated as immutable for the duration of the run.
type Executor struct {
	transformer port.Transformer
	sentinels   map[string]struct{}
}

// NewExecutor creates an Executor. Passing nil sentinels selects
// DefaultEmptySentinels.
func NewExecutor(transformer port.Transformer, emptySentinels []string) *Executor {
	if emptySentinels == nil {
		emptySentinels = DefaultEmptySentinels
	}
	set := make(map[string]struct{}, len(emptySentinels))
	for _, s := range emptySentinels {
		set[s] = struct{}{}
	}
	return &Executor{transformer: transformer, sentinels: set}
}

// RunInput is the immutable snapshot one run operates on. Values is the
// id-keyed record of already-resolved extraction values; InputDocuments maps
// input-field ids to their payloads.
type RunInput struct {
	Fields         []schema.FlatField
	Graph          *depgraph.Graph
	Waves          [][]string
	Values         map[string]interface{}
	InputDocuments map[string]port.InputDocument
}

// Run executes every wave in order and returns the computed values plus a
// terminal status for every transformation field. Waves never overlap: wave
// N+1 starts only after every call in wave N has settled, because a field may
// depend on a value only just computed. Within a wave all calls run
// concurrently and one failure never cancels its siblings.
func (e *Executor) Run(ctx context.Context, in RunInput) *Result {
	res := &Result{
		Values:   make(map[string]interface{}, len(in.Values)),
		Statuses: make(map[string]FieldStatus),
	}
	for id, v := range in.Values {
		res.Values[id] = v
	}
	for _, f := range in.Fields {
		if f.IsTransformation {
			res.Statuses[f.ID] = FieldStatus{State: domain.FieldStatePending}
		}
	}

	for waveIdx, wave := range in.Waves {
		e.runWave(ctx, in, res, waveIdx, wave)
	}

	// Anything still pending was never schedulable: a cycle, or a dependency
	// the validator flagged as unresolvable. Give it a terminal status so no
	// field is left hanging.
	for id, st := range res.Statuses {
		if st.State != domain.FieldStatePending {
			continue
		}
		reason := fmt.Sprintf("dependencies could not be scheduled: %s",
			strings.Join(e.describeDeps(in.Graph, id), ", "))
		res.Statuses[id] = FieldStatus{State: domain.FieldStateBlocked, Err: reason}
		res.Values[id] = reason
	}

	return res
}

type dispatch struct {
	id  string
	req port.TransformRequest
}

func (e *Executor) runWave(ctx context.Context, in RunInput, res *Result, waveIdx int, wave []string) {
	var dispatches []dispatch

	for _, id := range wave {
		f, ok := in.Graph.FieldByID(id)
		if !ok || !f.IsTransformation {
			// Extraction fields can appear in wave 0 as zero-dependency
			// nodes; their values are already resolved.
			continue
		}

		deps := sortedDeps(in.Graph.Dependencies(id))

		if blockers := e.blockedBy(in.Graph, res, deps); len(blockers) > 0 {
			reason := fmt.Sprintf("blocked by failed dependency: %s", strings.Join(blockers, ", "))
			res.Statuses[id] = FieldStatus{State: domain.FieldStateBlocked, Err: reason}
			res.Values[id] = reason
			continue
		}

		if e.allInputsEmpty(in.Graph, res, deps) {
			res.Statuses[id] = FieldStatus{State: domain.FieldStateSuccess}
			res.Values[id] = NoDataValue
			continue
		}

		dispatches = append(dispatches, dispatch{id: id, req: e.buildRequest(in, res, f, deps)})
	}

	if len(dispatches) == 0 {
		return
	}

	log.Printf("engine.Run: wave %d dispatching %d transformation(s)", waveIdx, len(dispatches))

	// Join-all: every call settles, each outcome captured independently.
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(len(dispatches))
	for _, d := range dispatches {
		go func(d dispatch) {
			defer wg.Done()
			value, err := e.transformer.Transform(ctx, d.req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Statuses[d.id] = FieldStatus{State: domain.FieldStateError, Err: err.Error()}
				res.Values[d.id] = fmt.Sprintf("Error: %s", err.Error())
				return
			}
			res.Statuses[d.id] = FieldStatus{State: domain.FieldStateSuccess}
			res.Values[d.id] = value
		}(d)
	}
	wg.Wait()
}

// blockedBy returns the names of dependencies that ended in error or blocked.
func (e *Executor) blockedBy(g *depgraph.Graph, res *Result, deps []string) []string {
	var blockers []string
	for _, dep := range deps {
		st, ok := res.Statuses[dep]
		if !ok {
			continue
		}
		if st.State == domain.FieldStateError || st.State == domain.FieldStateBlocked {
			blockers = append(blockers, fieldLabel(g, dep))
		}
	}
	return blockers
}

// allInputsEmpty reports whether the field has at least one value-carrying
// dependency and every one of them holds a "no data" sentinel. Input-slot
// dependencies carry documents, not values, and are excluded.
func (e *Executor) allInputsEmpty(g *depgraph.Graph, res *Result, deps []string) bool {
	checked := 0
	for _, dep := range deps {
		if f, ok := g.FieldByID(dep); ok && f.Kind == schema.KindInput {
			continue
		}
		checked++
		s := ""
		if v, ok := res.Values[dep]; ok && v != nil {
			str, isString := v.(string)
			if !isString {
				return false
			}
			s = str
		}
		if _, isSentinel := e.sentinels[s]; !isSentinel {
			return false
		}
	}
	return checked > 0
}

func (e *Executor) buildRequest(in RunInput, res *Result, f schema.FlatField, deps []string) port.TransformRequest {
	columnValues := make(map[string]interface{})
	var inputDocs []port.InputDocument

	for _, dep := range deps {
		depField, ok := in.Graph.FieldByID(dep)
		if ok && depField.Kind == schema.KindInput {
			if doc, found := in.InputDocuments[dep]; found {
				inputDocs = append(inputDocs, doc)
			}
			continue
		}
		value := res.Values[dep]
		if ok {
			columnValues[depField.Name] = value
		}
		columnValues[dep] = value
	}

	fieldSchema, _ := json.Marshal(f.Field)

	source := f.TransformationSource
	if source == "" {
		source = domain.SourceColumn
	}

	return port.TransformRequest{
		Prompt:         f.Prompt(),
		InputSource:    source,
		ColumnValues:   columnValues,
		FieldType:      fieldType(f.Field),
		FieldSchema:    fieldSchema,
		SelectedTools:  f.SelectedTools(),
		InputDocuments: inputDocs,
	}
}

// describeDeps labels a field's dependencies for a blocked reason message.
func (e *Executor) describeDeps(g *depgraph.Graph, id string) []string {
	deps := sortedDeps(g.Dependencies(id))
	if len(deps) == 0 {
		return []string{"none"}
	}
	labels := make([]string, 0, len(deps))
	for _, dep := range deps {
		switch {
		case dep == id:
			labels = append(labels, fmt.Sprintf("%s (self-reference)", fieldLabel(g, dep)))
		case !g.Contains(dep):
			labels = append(labels, fmt.Sprintf("%s (unresolvable)", dep))
		default:
			labels = append(labels, fieldLabel(g, dep))
		}
	}
	return labels
}

func fieldType(f schema.Field) string {
	if f.Kind == schema.KindLeaf {
		return string(f.Type)
	}
	return string(f.Kind)
}

func fieldLabel(g *depgraph.Graph, id string) string {
	if f, ok := g.FieldByID(id); ok {
		return f.Name
	}
	return id
}

func sortedDeps(deps map[string]struct{}) []string {
	out := make([]string, 0, len(deps))
	for dep := range deps {
		out = append(out, dep)
	}
	sort.Strings(out)
	return out
}
