package models

import (
	"encoding/json"
)

// SearchParams holds the argument set of a restaurant search requested by the
// assistant. The keys mirror the function tool schema (query, cuisine,
// price_range, min_rating, location, k).
type SearchParams map[string]interface{}

// EncodeSearchParams serializes params for storage on a message row.
// Nil input yields nil, so rows without a search keep a NULL column.
func EncodeSearchParams(params SearchParams) (*string, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}

// DecodeSearchParams parses a stored payload back into params. Malformed or
// NULL stored text yields nil rather than an error, so old or corrupted rows
// never break a conversation load.
func DecodeSearchParams(stored *string) SearchParams {
	if stored == nil || *stored == "" {
		return nil
	}
	var params SearchParams
	if err := json.Unmarshal([]byte(*stored), &params); err != nil {
		return nil
	}
	return params
}
