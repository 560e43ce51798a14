package esign

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryProvider issues envelopes without an external e-sign vendor, for
// development and tests. Status changes arrive through the webhook endpoint
// exactly as they would from a real provider.
type InMemoryProvider struct {
	mu        sync.RWMutex
	envelopes map[string]Envelope
	signers   map[string]SignerInfo
}

func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{
		envelopes: make(map[string]Envelope),
		signers:   make(map[string]SignerInfo),
	}
}

func (p *InMemoryProvider) CreateConsentEnvelope(_ context.Context, signer SignerInfo, templateVersion string) (*Envelope, error) {
	envelopeID := uuid.NewString()
	env := Envelope{
		EnvelopeID:      envelopeID,
		SigningURL:      "https://esign.admissions.local/sign/" + envelopeID,
		TemplateVersion: templateVersion,
		CreatedAt:       time.Now().UTC(),
	}

	p.mu.Lock()
	p.envelopes[envelopeID] = env
	p.signers[envelopeID] = signer
	p.mu.Unlock()

	return &env, nil
}

// Envelope returns a previously created envelope and its signer.
func (p *InMemoryProvider) Envelope(envelopeID string) (Envelope, SignerInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	env, ok := p.envelopes[envelopeID]
	return env, p.signers[envelopeID], ok
}
