package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeMetadata(t *testing.T) {
	out := SanitizeMetadata(map[string]string{
		"lead_id":   "lead-1",
		"ssn":       "123-45-6789",
		"DOB":       "1980-04-02",
		"diagnosis": "ICD-10 C50.911",
		"stage":     "clinical_review",
	})

	assert.Equal(t, "lead-1", out["lead_id"])
	assert.Equal(t, "[REDACTED]", out["ssn"])
	assert.Equal(t, "[REDACTED]", out["DOB"])
	assert.Equal(t, "[REDACTED]", out["diagnosis"])
	assert.Equal(t, "clinical_review", out["stage"])
}

func TestSanitizeMetadataNil(t *testing.T) {
	assert.Nil(t, SanitizeMetadata(nil))
}

func TestSanitizeMetadataDoesNotMutateInput(t *testing.T) {
	in := map[string]string{"ssn": "123-45-6789"}
	_ = SanitizeMetadata(in)
	assert.Equal(t, "123-45-6789", in["ssn"])
}
