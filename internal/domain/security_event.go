package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type SecurityEventKind string

const (
	EventPriceManipulation  SecurityEventKind = "price_manipulation"
	EventDuplicatePayment   SecurityEventKind = "duplicate_payment"
	EventRateLimitExceeded  SecurityEventKind = "rate_limit_exceeded"
	EventInvalidWebhook     SecurityEventKind = "invalid_webhook"
	EventOrderNotFound      SecurityEventKind = "order_not_found"
	EventInvalidInput       SecurityEventKind = "invalid_input"
	EventUnauthorizedAccess SecurityEventKind = "unauthorized_access"
)

var validSecurityEventKinds = map[SecurityEventKind]struct{}{
	EventPriceManipulation:  {},
	EventDuplicatePayment:   {},
	EventRateLimitExceeded:  {},
	EventInvalidWebhook:     {},
	EventOrderNotFound:      {},
	EventInvalidInput:       {},
	EventUnauthorizedAccess: {},
}

func ToSecurityEventKind(s string) (SecurityEventKind, error) {
	kind := SecurityEventKind(s)
	if _, ok := validSecurityEventKinds[kind]; ok {
		return kind, nil
	}
	return "", errors.New("invalid security event kind")
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func ToSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(s), nil
	}
	return "", errors.New("invalid severity")
}

type RequestMeta struct {
	IP        string
	UserAgent string
	Method    string
	URL       string
}

// SecurityEvent is append-only.
type SecurityEvent struct {
	ID        uuid.UUID
	Kind      SecurityEventKind
	Severity  Severity
	Details   map[string]any
	Request   RequestMeta
	CreatedAt time.Time
}
