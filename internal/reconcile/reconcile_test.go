package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formos/internal/depgraph"
	"formos/internal/domain"
	"formos/internal/engine"
	"formos/internal/reconcile"
	"formos/internal/schema"
)

func sampleFields() []schema.Field {
	return []schema.Field{
		{ID: "invoice_number", Name: "Invoice Number", Kind: schema.KindLeaf, Type: schema.TypeString},
		{ID: "seller", Name: "Seller", Kind: schema.KindObject, Children: []schema.Field{
			{ID: "seller_name", Name: "Name", Kind: schema.KindLeaf, Type: schema.TypeString},
		}},
		{ID: "line_items", Name: "Line Items", Kind: schema.KindTable, Columns: []schema.Field{
			{ID: "description", Name: "Description", Kind: schema.KindLeaf, Type: schema.TypeString},
			{ID: "amount", Name: "Amount", Kind: schema.KindLeaf, Type: schema.TypeDecimal},
		}},
		{ID: "notes", Name: "Notes", Kind: schema.KindList, Item: &schema.Field{
			ID: "note", Name: "Note", Kind: schema.KindLeaf, Type: schema.TypeString,
		}},
		{ID: "source_doc", Name: "Source Document", Kind: schema.KindInput, InputType: "document"},
	}
}

func TestSanitize_DropsUnknownKeysAndCoercesShapes(t *testing.T) {
	raw := map[string]interface{}{
		"Invoice Number":  "INV-001",
		"Seller":          "not an object",
		"Line Items":      "not a slice",
		"Notes":           []interface{}{"a", "b"},
		"Phantom":         "dropped",
		"Source Document": "dropped too",
	}

	got := reconcile.Sanitize(sampleFields(), raw)

	assert.Equal(t, "INV-001", got["Invoice Number"])
	assert.Equal(t, map[string]interface{}{}, got["Seller"])
	assert.Equal(t, []interface{}{}, got["Line Items"])
	assert.Equal(t, []interface{}{"a", "b"}, got["Notes"])
	assert.NotContains(t, got, "Phantom")
	assert.NotContains(t, got, "Source Document")
}

func TestSanitize_RecursesIntoRows(t *testing.T) {
	raw := map[string]interface{}{
		"Line Items": []interface{}{
			map[string]interface{}{"Description": "widget", "Amount": 10.5, "Extra": "gone"},
		},
	}

	got := reconcile.Sanitize(sampleFields(), raw)

	rows := got["Line Items"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "widget", row["Description"])
	assert.NotContains(t, row, "Extra")
}

func TestSanitize_NilInput(t *testing.T) {
	assert.Empty(t, reconcile.Sanitize(sampleFields(), nil))
}

func TestFlattenResultsByID_NilForAbsentNodes(t *testing.T) {
	values := map[string]interface{}{
		"Invoice Number": "INV-001",
		"Seller":         map[string]interface{}{"Name": "Acme"},
	}

	got := reconcile.FlattenResultsByID(sampleFields(), values)

	assert.Equal(t, "INV-001", got["invoice_number"])
	assert.Equal(t, "Acme", got["seller_name"])
	assert.Nil(t, got["line_items"])
	assert.Nil(t, got["description"])
	assert.Nil(t, got["notes"])
	assert.Nil(t, got["note"])
	assert.NotContains(t, got, "source_doc")
}

func TestFlattenResultsByID_TableColumnsBecomeCellSlices(t *testing.T) {
	values := map[string]interface{}{
		"Line Items": []interface{}{
			map[string]interface{}{"Description": "widget", "Amount": 10.5},
			map[string]interface{}{"Description": "gadget"},
		},
	}

	got := reconcile.FlattenResultsByID(sampleFields(), values)

	assert.Equal(t, []interface{}{"widget", "gadget"}, got["description"])
	assert.Equal(t, []interface{}{10.5, nil}, got["amount"])
}

func TestFlattenResultsByID_ListItemGetsElementSlice(t *testing.T) {
	values := map[string]interface{}{
		"Notes": []interface{}{"first", "second"},
	}

	got := reconcile.FlattenResultsByID(sampleFields(), values)

	assert.Equal(t, []interface{}{"first", "second"}, got["notes"])
	assert.Equal(t, []interface{}{"first", "second"}, got["note"])
}

func TestFlattenResultsByID_DeepNestedDescendantsGetEntries(t *testing.T) {
	fields := []schema.Field{
		{ID: "parcels", Name: "Parcels", Kind: schema.KindList, Item: &schema.Field{
			ID: "parcel", Name: "Parcel", Kind: schema.KindObject, Children: []schema.Field{
				{ID: "parcel_weight", Name: "Weight", Kind: schema.KindLeaf, Type: schema.TypeDecimal},
				{ID: "parcel_tags", Name: "Tags", Kind: schema.KindList, Item: &schema.Field{
					ID: "parcel_tag", Name: "Tag", Kind: schema.KindLeaf, Type: schema.TypeString,
				}},
			},
		}},
		{ID: "shipments", Name: "Shipments", Kind: schema.KindTable, Columns: []schema.Field{
			{ID: "shipment_origin", Name: "Origin", Kind: schema.KindObject, Children: []schema.Field{
				{ID: "origin_city", Name: "City", Kind: schema.KindLeaf, Type: schema.TypeString},
			}},
		}},
	}
	values := map[string]interface{}{
		"Parcels": []interface{}{
			map[string]interface{}{"Weight": 2.5, "Tags": []interface{}{"fragile", "priority"}},
			map[string]interface{}{"Weight": 1.0},
		},
		"Shipments": []interface{}{
			map[string]interface{}{"Origin": map[string]interface{}{"City": "Pune"}},
			map[string]interface{}{"Origin": map[string]interface{}{"City": "Delhi"}},
		},
	}

	got := reconcile.FlattenResultsByID(fields, values)

	// Children of an object-typed list item collect one value per element.
	assert.Equal(t, []interface{}{2.5, 1.0}, got["parcel_weight"])
	// A list nested two levels down still lands its item's values.
	assert.Equal(t, []interface{}{[]interface{}{"fragile", "priority"}, nil}, got["parcel_tags"])
	assert.Equal(t, []interface{}{"fragile", "priority"}, got["parcel_tag"])
	// Children of an object-typed table column collect one value per row.
	assert.Equal(t, []interface{}{"Pune", "Delhi"}, got["origin_city"])

	for _, id := range []string{"parcels", "parcel", "parcel_weight", "parcel_tags",
		"parcel_tag", "shipments", "shipment_origin", "origin_city"} {
		assert.Contains(t, got, id, "missing entry for %s", id)
	}
}

func TestFlattenResultsByID_DeepNestedDescendantsNilWhenAbsent(t *testing.T) {
	fields := []schema.Field{
		{ID: "parcels", Name: "Parcels", Kind: schema.KindList, Item: &schema.Field{
			ID: "parcel", Name: "Parcel", Kind: schema.KindObject, Children: []schema.Field{
				{ID: "parcel_weight", Name: "Weight", Kind: schema.KindLeaf, Type: schema.TypeDecimal},
			},
		}},
	}

	got := reconcile.FlattenResultsByID(fields, map[string]interface{}{})

	assert.Contains(t, got, "parcel_weight")
	assert.Nil(t, got["parcel_weight"])
}

type stubResolver struct {
	deps map[string][]string
}

func (s stubResolver) ResolveReferences(text string, fields []schema.FlatField) []string {
	return s.deps[text]
}

func TestBuildSummary_LeafAndCompositeGrouping(t *testing.T) {
	flat := schema.Flatten([]schema.Field{
		{ID: "total", Name: "Total", Kind: schema.KindLeaf, Type: schema.TypeDecimal, DisplayInSummary: true},
		{ID: "currency", Name: "Currency", Kind: schema.KindLeaf, Type: schema.TypeString, DisplayInSummary: true},
		{ID: "items", Name: "Items", Kind: schema.KindTable, DisplayInSummary: true},
		{ID: "hidden", Name: "Hidden", Kind: schema.KindLeaf, Type: schema.TypeString},
	})
	values := map[string]interface{}{
		"total":    99.0,
		"currency": "INR",
		"items":    []interface{}{map[string]interface{}{"a": 1}},
		"hidden":   "x",
	}

	summary, warnings := reconcile.BuildSummary(flat, values, nil)

	assert.Equal(t, map[string]interface{}{"Total": 99.0, "Currency": "INR"}, summary[reconcile.LeafSummaryKey])
	assert.Equal(t, values["items"], summary["Items"])
	assert.NotContains(t, summary, "Hidden")
	assert.Empty(t, warnings)
}

func TestBuildSummary_WarnsOnDependentSummaryPair(t *testing.T) {
	flat := schema.Flatten([]schema.Field{
		{ID: "subtotal", Name: "Subtotal", Kind: schema.KindLeaf, Type: schema.TypeDecimal,
			DisplayInSummary: true, IsTransformation: true,
			TransformationConfig: &schema.TransformationConfig{Prompt: "p1"}},
		{ID: "grand_total", Name: "Grand Total", Kind: schema.KindLeaf, Type: schema.TypeDecimal,
			DisplayInSummary: true, IsTransformation: true,
			TransformationConfig: &schema.TransformationConfig{Prompt: "p2"}},
	})
	g := depgraph.Build(flat, stubResolver{deps: map[string][]string{"p2": {"subtotal"}}}, depgraph.BuildOptions{})

	_, warnings := reconcile.BuildSummary(flat, map[string]interface{}{}, g)

	require.Len(t, warnings, 1)
	assert.Equal(t,
		`summary field "Grand Total" depends on summary field "Subtotal"; consider displaying only one of them`,
		warnings[0])
}

func reviewFlat() []schema.FlatField {
	return schema.Flatten([]schema.Field{
		{ID: "f1", Name: "F1", Kind: schema.KindLeaf, Type: schema.TypeString},
		{ID: "f2", Name: "F2", Kind: schema.KindLeaf, Type: schema.TypeString},
		{ID: "t1", Name: "T1", Kind: schema.KindLeaf, Type: schema.TypeString,
			IsTransformation:     true,
			TransformationConfig: &schema.TransformationConfig{Prompt: "p"}},
	})
}

func floatPtr(v float64) *float64 { return &v }

func TestBuildReviewMeta_ConfidenceThreshold(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	confidence := map[string]*float64{
		"f1": floatPtr(0.9),
		"f2": floatPtr(0.2),
	}

	meta := reconcile.BuildReviewMeta(reviewFlat(), map[string]interface{}{"f1": "a"}, confidence, nil, false, 0.5, now)

	assert.Equal(t, domain.ReviewVerified, meta.Review["f1"].Status)
	assert.Equal(t, "a", meta.Review["f1"].OriginalValue)

	assert.Equal(t, domain.ReviewNeedsReview, meta.Review["f2"].Status)
	assert.Equal(t, "low extraction confidence", meta.Review["f2"].Reason)
	assert.Equal(t, "2025-03-01T12:00:00Z", meta.Review["f2"].UpdatedAt)
}

func TestBuildReviewMeta_NilConfidenceScoreNeedsReview(t *testing.T) {
	confidence := map[string]*float64{"f1": nil}

	meta := reconcile.BuildReviewMeta(reviewFlat(), nil, confidence, nil, false, 0.5, time.Now())

	assert.Equal(t, domain.ReviewNeedsReview, meta.Review["f1"].Status)
	assert.Equal(t, "low extraction confidence", meta.Review["f1"].Reason)
}

func TestBuildReviewMeta_FallbackFlagsExtractionFieldsOnly(t *testing.T) {
	meta := reconcile.BuildReviewMeta(reviewFlat(), nil, nil, nil, true, 0.5, time.Now())

	assert.Equal(t, domain.ReviewNeedsReview, meta.Review["f1"].Status)
	assert.Equal(t, "extracted via fallback handling", meta.Review["f1"].Reason)
	assert.Equal(t, domain.ReviewVerified, meta.Review["t1"].Status)
}

func TestBuildReviewMeta_FailedTransformationForcesReview(t *testing.T) {
	exec := &engine.Result{Statuses: map[string]engine.FieldStatus{
		"t1": {State: domain.FieldStateError, Err: "boom"},
	}}

	meta := reconcile.BuildReviewMeta(reviewFlat(), nil, map[string]*float64{"t1": floatPtr(0.99)}, exec, false, 0.5, time.Now())

	assert.Equal(t, domain.ReviewNeedsReview, meta.Review["t1"].Status)
	assert.Equal(t, "boom", meta.Review["t1"].Reason)
}

func TestVerifyField(t *testing.T) {
	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	meta := &domain.ResultsMeta{Review: map[string]domain.FieldReviewMeta{
		"f1": {Status: domain.ReviewNeedsReview, Reason: "low extraction confidence"},
	}}

	reconcile.VerifyField(meta, "f1", "analyst@example.com", now)

	entry := meta.Review["f1"]
	assert.Equal(t, domain.ReviewVerified, entry.Status)
	assert.Empty(t, entry.Reason)
	require.NotNil(t, entry.Confidence)
	assert.Equal(t, 1.0, *entry.Confidence)
	require.NotNil(t, entry.VerifiedAt)
	assert.Equal(t, "2025-03-02T09:00:00Z", *entry.VerifiedAt)
	require.NotNil(t, entry.VerifiedBy)
	assert.Equal(t, "analyst@example.com", *entry.VerifiedBy)
}

func TestVerifyField_UnknownFieldCreatesEntry(t *testing.T) {
	meta := &domain.ResultsMeta{}
	reconcile.VerifyField(meta, "new_field", "", time.Now())

	entry, ok := meta.Review["new_field"]
	require.True(t, ok)
	assert.Equal(t, domain.ReviewVerified, entry.Status)
	assert.Nil(t, entry.VerifiedBy)
}

func TestMergeExtractResultsMeta_RoundTrip(t *testing.T) {
	values := map[string]interface{}{"f1": "a"}
	meta := &domain.ResultsMeta{Review: map[string]domain.FieldReviewMeta{
		"f1": {Status: domain.ReviewVerified},
	}}

	merged := reconcile.MergeResultsMeta(values, meta)
	assert.Contains(t, merged, domain.ReservedResultsMetaKey)

	gotValues, gotMeta := reconcile.ExtractResultsMeta(merged)
	assert.Equal(t, values, gotValues)
	assert.Equal(t, meta, gotMeta)
}

func TestMergeResultsMeta_EmptyMetaIsPassThrough(t *testing.T) {
	values := map[string]interface{}{"f1": "a"}

	merged := reconcile.MergeResultsMeta(values, &domain.ResultsMeta{})
	assert.Equal(t, values, merged)

	gotValues, gotMeta := reconcile.ExtractResultsMeta(merged)
	assert.Equal(t, values, gotValues)
	assert.Nil(t, gotMeta)
}

func TestEncodeDecodeResults_RoundTrip(t *testing.T) {
	values := map[string]interface{}{"f1": "a", "f2": 2.0}
	meta := &domain.ResultsMeta{
		Review: map[string]domain.FieldReviewMeta{
			"f2": {Status: domain.ReviewNeedsReview, Reason: "low extraction confidence"},
		},
		Confidence: map[string]*float64{"f2": floatPtr(0.3)},
	}

	blob, err := reconcile.EncodeResults(values, meta)
	require.NoError(t, err)

	gotValues, gotMeta, err := reconcile.DecodeResults(blob)
	require.NoError(t, err)
	assert.Equal(t, values, gotValues)
	require.NotNil(t, gotMeta)
	assert.Equal(t, domain.ReviewNeedsReview, gotMeta.Review["f2"].Status)
	require.NotNil(t, gotMeta.Confidence["f2"])
	assert.Equal(t, 0.3, *gotMeta.Confidence["f2"])
}

func TestDecodeResults_EmptyAndInvalid(t *testing.T) {
	values, meta, err := reconcile.DecodeResults(nil)
	require.NoError(t, err)
	assert.Empty(t, values)
	assert.Nil(t, meta)

	_, _, err = reconcile.DecodeResults([]byte("{broken"))
	assert.Error(t, err)
}
