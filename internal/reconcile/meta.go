package reconcile

import (
	"encoding/json"
	"fmt"
	"time"

	"formos/internal/domain"
	"formos/internal/engine"
	"formos/internal/schema"
)

// DefaultConfidenceThreshold marks values below it as needing review even
// absent an explicit error.
const DefaultConfidenceThreshold = 0.5

// BuildReviewMeta folds extraction confidence, fallback annotations, and
// transformation outcomes into one review map keyed by field id. Any field
// whose transformation ended error or blocked is forced into needs_review
// with the failure message as its reason, regardless of confidence.
func BuildReviewMeta(
	flat []schema.FlatField,
	valuesByID map[string]interface{},
	confidence map[string]*float64,
	execResult *engine.Result,
	handledWithFallback bool,
	threshold float64,
	now time.Time,
) *domain.ResultsMeta {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	ts := now.UTC().Format(time.RFC3339)

	meta := &domain.ResultsMeta{
		Review:     make(map[string]domain.FieldReviewMeta),
		Confidence: confidence,
	}

	for _, f := range flat {
		if f.Kind == schema.KindInput {
			continue
		}

		entry := domain.FieldReviewMeta{
			Status:        domain.ReviewVerified,
			UpdatedAt:     ts,
			OriginalValue: valuesByID[f.ID],
		}
		if conf, ok := confidence[f.ID]; ok {
			entry.Confidence = conf
			if conf == nil || *conf < threshold {
				entry.Status = domain.ReviewNeedsReview
				entry.Reason = "low extraction confidence"
			}
		}
		if handledWithFallback && f.IsExtraction() {
			entry.Status = domain.ReviewNeedsReview
			entry.Reason = "extracted via fallback handling"
		}

		if execResult != nil && f.IsTransformation {
			switch st := execResult.StatusOf(f.ID); st.State {
			case domain.FieldStateError, domain.FieldStateBlocked:
				entry.Status = domain.ReviewNeedsReview
				entry.Reason = st.Err
			case domain.FieldStateSuccess, domain.FieldStatePending:
				// success keeps the confidence-derived status
			}
		}

		meta.Review[f.ID] = entry
	}

	return meta
}

// VerifyField re-marks a field verified after a manual correction: confidence
// becomes 1 and the verification trail is stamped.
func VerifyField(meta *domain.ResultsMeta, fieldID, verifiedBy string, now time.Time) {
	if meta.Review == nil {
		meta.Review = make(map[string]domain.FieldReviewMeta)
	}
	ts := now.UTC().Format(time.RFC3339)
	one := 1.0

	entry := meta.Review[fieldID]
	entry.Status = domain.ReviewVerified
	entry.UpdatedAt = ts
	entry.Reason = ""
	entry.Confidence = &one
	entry.VerifiedAt = &ts
	if verifiedBy != "" {
		entry.VerifiedBy = &verifiedBy
	}
	meta.Review[fieldID] = entry
}

// MergeResultsMeta nests meta inside the values record under a reserved key
// so the pair persists as one blob. Empty meta is a pure pass-through of
// values: ExtractResultsMeta(MergeResultsMeta(v, m)) always returns (v, m).
func MergeResultsMeta(values map[string]interface{}, meta *domain.ResultsMeta) map[string]interface{} {
	if meta.IsEmpty() {
		return values
	}
	merged := make(map[string]interface{}, len(values)+1)
	for k, v := range values {
		merged[k] = v
	}
	merged[domain.ReservedResultsMetaKey] = meta
	return merged
}

// ExtractResultsMeta splits the reserved meta key back out of a persisted
// record. A record without the key yields nil meta.
func ExtractResultsMeta(record map[string]interface{}) (map[string]interface{}, *domain.ResultsMeta) {
	raw, ok := record[domain.ReservedResultsMetaKey]
	if !ok {
		return record, nil
	}

	values := make(map[string]interface{}, len(record)-1)
	for k, v := range record {
		if k == domain.ReservedResultsMetaKey {
			continue
		}
		values[k] = v
	}

	switch m := raw.(type) {
	case *domain.ResultsMeta:
		return values, m
	default:
		// Round-tripped through JSON: re-decode the generic value.
		meta := &domain.ResultsMeta{}
		if encoded, err := json.Marshal(raw); err == nil {
			_ = json.Unmarshal(encoded, meta)
		}
		return values, meta
	}
}

// EncodeResults serializes the merged values+meta record for persistence.
func EncodeResults(values map[string]interface{}, meta *domain.ResultsMeta) (json.RawMessage, error) {
	blob, err := json.Marshal(MergeResultsMeta(values, meta))
	if err != nil {
		return nil, fmt.Errorf("encoding results: %w", err)
	}
	return blob, nil
}

// DecodeResults parses a persisted results blob and splits out the meta.
func DecodeResults(raw json.RawMessage) (map[string]interface{}, *domain.ResultsMeta, error) {
	if len(raw) == 0 {
		return map[string]interface{}{}, nil, nil
	}
	var record map[string]interface{}
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, nil, fmt.Errorf("decoding results: %w", err)
	}
	values, meta := ExtractResultsMeta(record)
	return values, meta, nil
}
