package notify

import (
	"context"
	"log/slog"
	"sync"

	dErrors "github.com/josephcall20-lang/Admissions-co-pilot/pkg/domain-errors"
)

// LogNotifier renders templates and writes them to the structured log instead
// of a delivery vendor, for development and tests. Recipient addresses are
// logged; message bodies are not, since template vars may embed names.
type LogNotifier struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []SentMessage
}

// SentMessage records one delivery for inspection in tests.
type SentMessage struct {
	Recipient string
	Template  string
	Body      string
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, recipient, template string, vars map[string]string) error {
	body := Render(template, vars)
	if body == "" {
		return dErrors.Newf(dErrors.CodeInternal, "unknown notification template: %q", template)
	}

	n.mu.Lock()
	n.sent = append(n.sent, SentMessage{Recipient: recipient, Template: template, Body: body})
	n.mu.Unlock()

	n.logger.InfoContext(ctx, "notification sent",
		"recipient", recipient,
		"template", template,
	)
	return nil
}

// Sent returns a copy of every delivery so far.
func (n *LogNotifier) Sent() []SentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentMessage(nil), n.sent...)
}
