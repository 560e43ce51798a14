// Package esign defines the e-signature collaborator boundary: consent
// envelope creation, webhook status vocabulary, and delivery verification.
package esign

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Webhook statuses delivered by the provider. Deliveries are at-least-once, so
// consumers must tolerate replays.
const (
	StatusSent      = "sent"
	StatusCompleted = "completed"
	StatusDeclined  = "declined"
)

// SignerInfo identifies who signs the consent envelope.
type SignerInfo struct {
	Name         string
	Email        string
	Relationship string
}

// Envelope is a created e-signature transaction.
type Envelope struct {
	EnvelopeID      string    `json:"envelope_id"`
	SigningURL      string    `json:"signing_url"`
	TemplateVersion string    `json:"consent_version"`
	CreatedAt       time.Time `json:"created_at"`
}

// Provider is the e-signature collaborator contract.
type Provider interface {
	CreateConsentEnvelope(ctx context.Context, signer SignerInfo, templateVersion string) (*Envelope, error)
}

// WebhookPayload is the inbound webhook body from the provider.
type WebhookPayload struct {
	EnvelopeID string `json:"envelope_id"`
	Status     string `json:"status"`
}

// VerifySignature checks an HMAC-SHA256 webhook signature in constant time.
func VerifySignature(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
