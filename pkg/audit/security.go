// Package audit provides security audit logging for SIEM consumption.
// The answer pipeline executes SQL produced by a language model, so every
// statement or parameter the guards reject is logged here in structured
// JSON for security monitoring.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/auth"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection detects SQL
	// injection patterns in a generated query parameter.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventStatementRejected is logged when a generated statement fails the
	// SELECT-only screen.
	EventStatementRejected SecurityEventType = "statement_rejected"
)

// SecurityEvent is one auditable security event with the context a SIEM
// needs to correlate it: the question that produced the rejected SQL and
// the authenticated subject, when there is one.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	Subject   string            `json:"subject,omitempty"`
	Question  string            `json:"question"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // warning, critical
}

// InjectionDetails describes one parameter that failed injection screening.
type InjectionDetails struct {
	ParamName   string `json:"param_name"`
	ParamValue  any    `json:"param_value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// StatementDetails describes a statement the SELECT-only screen refused.
type StatementDetails struct {
	SQL    string `json:"sql"`
	Reason string `json:"reason"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a security auditor on a dedicated logger
// namespace so SIEM pipelines can filter on the "security_audit" name.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogInjectionAttempt records parameters that failed injection screening.
// Logged at ERROR level with "critical" severity for immediate alerting.
// The subject comes from the bearer token claims on the request context.
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, question string, details []InjectionDetails) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventSQLInjectionAttempt,
		Subject:   auth.GetSubject(ctx),
		Question:  question,
		Details:   details,
		Severity:  "critical",
	}

	// Marshaling known types does not fail; the raw JSON rides along so
	// SIEM ingestion does not depend on the zap encoder configuration.
	eventJSON, _ := json.Marshal(event)

	names := make([]string, 0, len(details))
	for _, d := range details {
		names = append(names, d.ParamName)
	}

	a.logger.Error("SQL injection attempt detected",
		zap.String("event_json", string(eventJSON)),
		zap.String("question", question),
		zap.Strings("param_names", names),
		zap.String("subject", event.Subject),
		zap.String("severity", event.Severity),
	)
}

// LogStatementRejected records a generated statement that failed the
// SELECT-only screen. Logged at WARN level: rejected statements are
// usually model mistakes rather than attacks, but the pattern matters.
func (a *SecurityAuditor) LogStatementRejected(ctx context.Context, question, sqlText, reason string) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventStatementRejected,
		Subject:   auth.GetSubject(ctx),
		Question:  question,
		Details:   StatementDetails{SQL: sqlText, Reason: reason},
		Severity:  "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Generated statement rejected",
		zap.String("event_json", string(eventJSON)),
		zap.String("question", question),
		zap.String("sql", sqlText),
		zap.String("reason", reason),
		zap.String("subject", event.Subject),
		zap.String("severity", event.Severity),
	)
}
