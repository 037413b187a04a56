package domain

// Reserved result-record keys. Field ids must never collide with these.
const (
	ReservedSummaryValuesKey   = "__summary_values__"
	ReservedSummaryWarningsKey = "__summary_warnings__"
	ReservedResultsMetaKey     = "__results_meta__"
)

// ReservedResultKeys lists every reserved key for collision checks.
var ReservedResultKeys = []string{
	ReservedSummaryValuesKey,
	ReservedSummaryWarningsKey,
	ReservedResultsMetaKey,
}
