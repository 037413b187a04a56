package mention_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"formos/internal/mention"
	"formos/internal/schema"
)

func testFlat() []schema.FlatField {
	return []schema.FlatField{
		{Field: schema.Field{ID: "amount_1", Name: "Amount", Kind: schema.KindLeaf}},
		{Field: schema.Field{ID: "tax_1", Name: "Tax", Kind: schema.KindLeaf}},
		{Field: schema.Field{ID: "total_1", Name: "Total", Kind: schema.KindLeaf}},
	}
}

func TestResolveReferences_ExplicitMentions(t *testing.T) {
	r := mention.NewResolver()

	ids := r.ResolveReferences("Add @[Amount](amount_1) and @[Tax](tax_1)", testFlat())
	assert.Equal(t, []string{"amount_1", "tax_1"}, ids)
}

func TestResolveReferences_ExplicitKeepsUnknownID(t *testing.T) {
	r := mention.NewResolver()

	// Dangling ids stay: the graph validator reports them later.
	ids := r.ResolveReferences("Use @[Ghost](ghost_9)", testFlat())
	assert.Equal(t, []string{"ghost_9"}, ids)
}

func TestResolveReferences_BareMentionsResolveByName(t *testing.T) {
	r := mention.NewResolver()

	ids := r.ResolveReferences("Sum of @Amount plus @Tax", testFlat())
	assert.Equal(t, []string{"amount_1", "tax_1"}, ids)

	// Unknown bare names resolve to nothing
	assert.Empty(t, r.ResolveReferences("Use @Nothing here", testFlat()))
}

func TestResolveReferences_MixedOrderAndDedup(t *testing.T) {
	r := mention.NewResolver()

	ids := r.ResolveReferences(
		"@Total then @[Amount](amount_1), @Amount again and @[Total](total_1)", testFlat())
	assert.Equal(t, []string{"amount_1", "total_1"}, ids[:2])
	assert.Len(t, ids, 2)
}

func TestResolveReferences_EmptyText(t *testing.T) {
	r := mention.NewResolver()
	assert.Nil(t, r.ResolveReferences("", testFlat()))
}
