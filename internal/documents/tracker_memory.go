package documents

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryTracker is a self-contained document store for development and
// tests. Uploads arrive through RecordUpload, typically from the simulated
// upload endpoint.
type InMemoryTracker struct {
	linkExpiry time.Duration

	mu       sync.RWMutex
	received map[string]map[string]bool
	channels map[string]UploadChannel
}

func NewInMemoryTracker(linkExpiry time.Duration) *InMemoryTracker {
	return &InMemoryTracker{
		linkExpiry: linkExpiry,
		received:   make(map[string]map[string]bool),
		channels:   make(map[string]UploadChannel),
	}
}

func (t *InMemoryTracker) CheckDocuments(_ context.Context, leadID string) (*CheckResult, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := &CheckResult{Received: []string{}, Missing: []string{}}
	got := t.received[leadID]
	for _, category := range Categories() {
		if got[category] {
			result.Received = append(result.Received, category)
		} else {
			result.Missing = append(result.Missing, category)
		}
	}
	return result, nil
}

func (t *InMemoryTracker) CreateUploadChannel(_ context.Context, leadID string) (*UploadChannel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Re-issuing for the same lead returns the existing channel while it is
	// still live, so repeated workflow runs do not rotate the link.
	if ch, ok := t.channels[leadID]; ok && time.Now().Before(ch.ExpiresAt) {
		return &ch, nil
	}

	ch := UploadChannel{
		Link:      "https://uploads.admissions.local/" + leadID + "/" + uuid.NewString(),
		ExpiresAt: time.Now().Add(t.linkExpiry).UTC(),
	}
	t.channels[leadID] = ch
	return &ch, nil
}

// RecordUpload marks a document category as received for a lead. Unknown
// categories are stored as-is; CheckDocuments only reports known ones.
func (t *InMemoryTracker) RecordUpload(leadID, category string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.received[leadID] == nil {
		t.received[leadID] = make(map[string]bool)
	}
	t.received[leadID][category] = true
}
