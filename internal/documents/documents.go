// Package documents defines the document-storage collaborator boundary: the
// fixed category vocabulary, the tracker contract, and caching decorators that
// keep slow provider calls off the hot path.
package documents

import (
	"context"
	"time"
)

// Category vocabulary for required intake documents.
const (
	CategoryImaging    = "imaging"
	CategoryPathology  = "pathology"
	CategoryLabs       = "labs"
	CategoryMedList    = "med_list"
	CategoryPriorNotes = "prior_notes"
)

// Categories lists every document category a lead can be required to provide.
func Categories() []string {
	return []string{CategoryImaging, CategoryPathology, CategoryLabs, CategoryMedList, CategoryPriorNotes}
}

// CheckResult reports which document categories the provider holds for a lead.
type CheckResult struct {
	Received []string `json:"received"`
	Missing  []string `json:"missing"`
}

// UploadChannel is a provider-issued secure upload destination for a lead.
type UploadChannel struct {
	Link      string    `json:"upload_link"`
	ExpiresAt time.Time `json:"expires_utc"`
}

// Tracker is the document-storage collaborator contract. Implementations call
// the real provider (SharePoint or similar); tests substitute doubles.
type Tracker interface {
	CheckDocuments(ctx context.Context, leadID string) (*CheckResult, error)
	CreateUploadChannel(ctx context.Context, leadID string) (*UploadChannel, error)
}

// Invalidator is implemented by caching decorators so upload events can force
// the next document check through to the provider.
type Invalidator interface {
	Invalidate(ctx context.Context, leadID string) error
}
