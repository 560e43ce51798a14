package compliance

import "strings"

// phiKeys are metadata keys whose values must never reach logs or metrics.
var phiKeys = map[string]bool{
	"ssn":            true,
	"dob":            true,
	"medical_record": true,
	"diagnosis":      true,
	"treatment":      true,
}

// SanitizeMetadata returns a copy of the metadata with PHI-bearing values
// redacted. Safe to call with nil.
func SanitizeMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if phiKeys[strings.ToLower(k)] {
			out[k] = "[REDACTED]"
		} else {
			out[k] = v
		}
	}
	return out
}
