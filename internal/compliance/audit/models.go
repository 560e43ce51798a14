// Package audit records PHI-relevant access as immutable entries. Entries are
// append-only; retention and purge policy live with the compliance gate, never
// here.
package audit

import (
	"context"
	"time"
)

// Entry is an immutable record of a PHI-relevant access.
type Entry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	LeadID    string            `json:"lead_id"`
	UserID    string            `json:"user_id"`
	Operation string            `json:"operation"`
	Outcome   string            `json:"outcome"`
	Details   map[string]string `json:"details,omitempty"`
	IPAddress string            `json:"ip_address"`
	UserAgent string            `json:"user_agent"`
}

// Store is the audit persistence boundary. Append must never mutate or delete
// existing entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByLead(ctx context.Context, leadID string) ([]Entry, error)
	Count(ctx context.Context) (int, error)
}

// Publisher fans audit entries out to an external compliance sink (e.g. a
// Kafka topic consumed by the SIEM). Publishing is best-effort from the
// caller's perspective; persistence via Store is the source of truth.
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
}
