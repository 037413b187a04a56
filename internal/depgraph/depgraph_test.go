package depgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formos/internal/depgraph"
	"formos/internal/schema"
)

// stubResolver maps a field's prompt text straight to dependency ids.
type stubResolver struct {
	deps map[string][]string
}

func (s stubResolver) ResolveReferences(text string, fields []schema.FlatField) []string {
	return s.deps[text]
}

func derived(id, name, promptKey string) schema.FlatField {
	return schema.FlatField{Field: schema.Field{
		ID: id, Name: name, Kind: schema.KindLeaf, Type: schema.TypeString,
		IsTransformation: true,
		TransformationConfig: &schema.TransformationConfig{Prompt: promptKey},
	}}
}

func extracted(id, name string) schema.FlatField {
	return schema.FlatField{Field: schema.Field{
		ID: id, Name: name, Kind: schema.KindLeaf, Type: schema.TypeString,
	}}
}

func TestBuild_OnlyTransformationFieldsAreNodesByDefault(t *testing.T) {
	fields := []schema.FlatField{
		extracted("a", "A"),
		derived("t1", "T1", "p1"),
	}
	g := depgraph.Build(fields, stubResolver{deps: map[string][]string{"p1": {"a"}}}, depgraph.BuildOptions{})

	assert.Equal(t, []string{"t1"}, g.Order)
	assert.Nil(t, g.Dependencies("a"))
	assert.True(t, g.Contains("a"))
	assert.Contains(t, g.Dependencies("t1"), "a")
}

func TestBuild_UnionsPromptAndInstructionMentions(t *testing.T) {
	f := derived("t1", "T1", "p1")
	f.Instructions = "i1"
	fields := []schema.FlatField{
		extracted("a", "A"),
		extracted("b", "B"),
		f,
	}
	g := depgraph.Build(fields, stubResolver{deps: map[string][]string{
		"p1": {"a"},
		"i1": {"b", "a"},
	}}, depgraph.BuildOptions{})

	deps := g.Dependencies("t1")
	assert.Len(t, deps, 2)
	assert.Contains(t, deps, "a")
	assert.Contains(t, deps, "b")
}

func TestBuild_InstructionsOnlyMentionsStillResolve(t *testing.T) {
	f := schema.FlatField{Field: schema.Field{
		ID: "t1", Name: "T1", Kind: schema.KindLeaf, Type: schema.TypeString,
		IsTransformation: true,
		Instructions:     "i1",
	}}
	fields := []schema.FlatField{extracted("a", "A"), f}
	g := depgraph.Build(fields, stubResolver{deps: map[string][]string{"i1": {"a"}}}, depgraph.BuildOptions{})

	assert.Contains(t, g.Dependencies("t1"), "a")
}

func TestBuild_IncludeExtractionFieldsAddsZeroDepNodes(t *testing.T) {
	fields := []schema.FlatField{
		extracted("a", "A"),
		derived("t1", "T1", "p1"),
	}
	g := depgraph.Build(fields, stubResolver{deps: map[string][]string{"p1": {"a"}}},
		depgraph.BuildOptions{IncludeExtractionFields: true})

	assert.Equal(t, []string{"a", "t1"}, g.Order)
	assert.Empty(t, g.Dependencies("a"))

	waves := g.Waves()
	require.Len(t, waves, 2)
	assert.Equal(t, []string{"a"}, waves[0])
	assert.Equal(t, []string{"t1"}, waves[1])
}

func TestWaves_OrderingAndTies(t *testing.T) {
	fields := []schema.FlatField{
		extracted("a", "A"),
		derived("t1", "T1", "p1"), // depends on a (not a node, satisfied upfront)
		derived("t2", "T2", "p2"), // depends on t1
		derived("t3", "T3", "p3"), // independent
	}
	g := depgraph.Build(fields, stubResolver{deps: map[string][]string{
		"p1": {"a"},
		"p2": {"t1"},
	}}, depgraph.BuildOptions{})

	waves := g.Waves()
	require.Len(t, waves, 2)
	// Ties keep flattened order: t1 before t3
	assert.Equal(t, []string{"t1", "t3"}, waves[0])
	assert.Equal(t, []string{"t2"}, waves[1])
}

func TestWaves_CyclicFieldsNeverEmitted(t *testing.T) {
	fields := []schema.FlatField{
		derived("t1", "T1", "p1"),
		derived("t2", "T2", "p2"),
		derived("t3", "T3", "p3"),
	}
	g := depgraph.Build(fields, stubResolver{deps: map[string][]string{
		"p1": {"t2"},
		"p2": {"t1"},
	}}, depgraph.BuildOptions{})

	waves := g.Waves()
	require.Len(t, waves, 1)
	assert.Equal(t, []string{"t3"}, waves[0])
}

func TestWaves_SelfReferenceNeverEmitted(t *testing.T) {
	fields := []schema.FlatField{
		derived("t1", "T1", "p1"),
	}
	g := depgraph.Build(fields, stubResolver{deps: map[string][]string{"p1": {"t1"}}}, depgraph.BuildOptions{})
	assert.Empty(t, g.Waves())
}

func TestWaves_Deterministic(t *testing.T) {
	fields := []schema.FlatField{
		derived("t1", "T1", "p1"),
		derived("t2", "T2", "p2"),
		derived("t3", "T3", "p3"),
		derived("t4", "T4", "p4"),
	}
	resolver := stubResolver{deps: map[string][]string{
		"p3": {"t1", "t2"},
		"p4": {"t3"},
	}}

	first := depgraph.Build(fields, resolver, depgraph.BuildOptions{}).Waves()
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, depgraph.Build(fields, resolver, depgraph.BuildOptions{}).Waves())
	}
	require.Len(t, first, 3)
	assert.Equal(t, []string{"t1", "t2"}, first[0])
}

func TestValidate_ReportsUnresolvableAndSelfReference(t *testing.T) {
	fields := []schema.FlatField{
		extracted("a", "A"),
		derived("t1", "T1", "p1"),
		derived("t2", "T2", "p2"),
		derived("t3", "T3", "p3"),
	}
	g := depgraph.Build(fields, stubResolver{deps: map[string][]string{
		"p1": {"ghost", "a"},
		"p2": {"t2"},
		"p3": {"t1"},
	}}, depgraph.BuildOptions{})

	report := g.Validate()
	assert.Equal(t, []string{"ghost", "t2"}, report.Unresolvable)
	assert.Equal(t, []string{"ghost"}, report.MissingByField["t1"])
	assert.Equal(t, []string{"t2"}, report.MissingByField["t2"])
	assert.Empty(t, report.MissingByField["t3"])
}

func TestValidate_CleanGraph(t *testing.T) {
	fields := []schema.FlatField{
		derived("t1", "T1", "p1"),
		derived("t2", "T2", "p2"),
	}
	g := depgraph.Build(fields, stubResolver{deps: map[string][]string{"p2": {"t1"}}}, depgraph.BuildOptions{})

	report := g.Validate()
	assert.Empty(t, report.Unresolvable)
	assert.Empty(t, report.MissingByField)
}
