// Package config defines process configuration and its layered loading.
//
// Precedence (low -> high):
//  1. defaults (New)
//  2. YAML file named by ADMISSIONS_CONFIG
//  3. environment variables with the ADMISSIONS_ prefix
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains all process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel controls slog verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// JWTSigningKey signs staff access tokens. Override outside development.
	JWTSigningKey string `koanf:"jwt_signing_key"`

	// WebhookSecret verifies e-sign webhook signatures. Empty disables the check.
	WebhookSecret string `koanf:"webhook_secret"`

	// DatabaseURL selects the Postgres lead/audit stores when set; the in-memory
	// stores are used otherwise.
	DatabaseURL string `koanf:"database_url"`

	// RedisURL enables the Redis document-check cache when set.
	RedisURL string `koanf:"redis_url"`

	// KafkaBrokers and KafkaAuditTopic enable the Kafka audit publisher when set.
	KafkaBrokers    []string `koanf:"kafka_brokers"`
	KafkaAuditTopic string   `koanf:"kafka_audit_topic"`

	// ConsentTemplateVersion is stamped onto consent envelopes and lead metadata.
	ConsentTemplateVersion string `koanf:"consent_template_version"`

	// UploadLinkExpiryHours bounds document upload channel validity.
	UploadLinkExpiryHours int `koanf:"upload_link_expiry_hours"`

	// ReminderAfterHours is the age at docs_requested after which daily
	// maintenance sends a reminder.
	ReminderAfterHours int `koanf:"reminder_after_hours"`

	// DocCacheTTLSeconds bounds staleness of cached document-tracker results.
	DocCacheTTLSeconds int `koanf:"doc_cache_ttl_seconds"`

	Compliance ComplianceConfig `koanf:"compliance"`
}

// ComplianceConfig enumerates the HIPAA policy settings enforced by the
// compliance gate. These are reported verbatim in the compliance report.
type ComplianceConfig struct {
	RequireConsentBeforePHI bool `koanf:"require_consent_before_phi"`
	PHIInEmailForbidden     bool `koanf:"phi_in_email_forbidden"`
	PHIInCalendarForbidden  bool `koanf:"phi_in_calendar_forbidden"`
	AuditAllPHIAccess       bool `koanf:"audit_all_phi_access"`
	DataRetentionDays       int  `koanf:"data_retention_days"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Addr:                   ":8080",
		LogLevel:               "info",
		JWTSigningKey:          "dev-secret-key-change-in-production",
		ConsentTemplateVersion: "v1.2",
		UploadLinkExpiryHours:  168,
		ReminderAfterHours:     72,
		DocCacheTTLSeconds:     300,
		Compliance: ComplianceConfig{
			RequireConsentBeforePHI: true,
			PHIInEmailForbidden:     true,
			PHIInCalendarForbidden:  true,
			AuditAllPHIAccess:       true,
			DataRetentionDays:       365,
		},
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("ADMISSIONS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// ADMISSIONS_LOG_LEVEL -> log_level, ADMISSIONS_COMPLIANCE__DATA_RETENTION_DAYS
	// is not supported; nested keys come from file config only.
	envProvider := env.Provider("ADMISSIONS_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "admissions_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.Compliance.DataRetentionDays <= 0 {
		return nil, errors.New("data_retention_days must be positive")
	}
	return &cfg, nil
}

// ReminderAfter converts the configured reminder age to a duration.
func (c *Config) ReminderAfter() time.Duration {
	return time.Duration(c.ReminderAfterHours) * time.Hour
}

// UploadLinkExpiry converts the configured upload link validity to a duration.
func (c *Config) UploadLinkExpiry() time.Duration {
	return time.Duration(c.UploadLinkExpiryHours) * time.Hour
}

// DocCacheTTL converts the configured document cache staleness to a duration.
func (c *Config) DocCacheTTL() time.Duration {
	return time.Duration(c.DocCacheTTLSeconds) * time.Second
}

// RetentionHorizon converts the retention policy to a duration.
func (c *ComplianceConfig) RetentionHorizon() time.Duration {
	return time.Duration(c.DataRetentionDays) * 24 * time.Hour
}
