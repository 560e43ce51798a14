// Package notify defines the notification collaborator boundary and the
// template registry used for patient-facing messages. Templates never carry
// PHI; they reference secure links instead.
package notify

import (
	"context"
	"strings"
)

// Template names used by the workflow engine.
const (
	TemplateSecureUploadAndConsent = "secure_upload_and_consent"
	TemplateDocsReminder           = "docs_reminder"
	TemplateConsentDeclined        = "consent_declined_followup"
)

// Notifier is the notification collaborator contract for email/SMS transport.
// No delivery-confirmation callback is assumed.
type Notifier interface {
	Send(ctx context.Context, recipient, template string, vars map[string]string) error
}

var templates = map[string]string{
	TemplateSecureUploadAndConsent: "Hi {first_name}, thank you for reaching out. " +
		"Please upload your records securely at {upload_link} and sign the consent form at {consent_link}. " +
		"The upload link expires {expires}.",
	TemplateDocsReminder: "Hi {first_name}, we are still waiting on some of your records: {missing_docs}. " +
		"Your secure upload link is {upload_link}.",
	TemplateConsentDeclined: "Hi {first_name}, we noticed the consent form was declined. " +
		"A member of our admissions team will reach out to answer any questions.",
}

// Render substitutes {key} placeholders in the named template. Unknown
// template names render to the empty string so a misconfigured notifier fails
// visibly in tests rather than sending a half-templated message.
func Render(template string, vars map[string]string) string {
	body, ok := templates[template]
	if !ok {
		return ""
	}
	for key, value := range vars {
		body = strings.ReplaceAll(body, "{"+key+"}", value)
	}
	return body
}
