package contact

import "encoding/json"

// ValidationResult is the normalized verdict for a single contact field.
// IsValid mirrors the provider's own boolean; Detail and Raw carry every
// provider-specific field through untouched so schema drift on their side
// cannot corrupt the normalized part.
type ValidationResult struct {
	IsValid bool
	Detail  map[string]any
	Raw     json.RawMessage
}
