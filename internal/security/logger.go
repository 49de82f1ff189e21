// Package security records anomalies (tampering, duplicate intents, bad webhooks)
// to the structured log and to the append-only security log store.
package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
)

type Logger struct {
	repo port.SecurityEventRepository
	log  *slog.Logger
	now  func() time.Time
}

func NewLogger(repo port.SecurityEventRepository, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}

	return &Logger{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Record logs and persists a security event. Persistence failures are logged, never returned.
func (l *Logger) Record(ctx context.Context, kind domain.SecurityEventKind, severity domain.Severity, details map[string]any) domain.SecurityEvent {
	event := domain.SecurityEvent{
		ID:        uuid.New(),
		Kind:      kind,
		Severity:  severity,
		Details:   details,
		Request:   RequestMetaFrom(ctx),
		CreatedAt: l.now(),
	}

	attrs := []any{
		"kind", event.Kind,
		"severity", event.Severity,
		"ip", event.Request.IP,
		"user_agent", event.Request.UserAgent,
		"method", event.Request.Method,
		"url", event.Request.URL,
	}
	for k, v := range details {
		attrs = append(attrs, slog.Any("details."+k, v))
	}

	l.log.Log(ctx, levelFor(severity), "security event", attrs...)

	if l.repo == nil {
		return event
	}

	if err := l.repo.InsertSecurityEvent(context.WithoutCancel(ctx), event); err != nil {
		l.log.Error("failed to persist security event", "method", "Logger.Record", "kind", kind, "err", err)
	}

	return event
}

// ErrNoStore is returned by Recent on a log-only Logger.
var ErrNoStore = errors.New("security event store is not configured")

func (l *Logger) Recent(ctx context.Context, filter domain.SecurityEventFilter) ([]domain.SecurityEvent, error) {
	if l.repo == nil {
		return nil, ErrNoStore
	}

	events, err := l.repo.SearchSecurityEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("repo.SearchSecurityEvents: %w", err)
	}

	return events, nil
}

func levelFor(severity domain.Severity) slog.Level {
	switch severity {
	case domain.SeverityLow:
		return slog.LevelInfo
	case domain.SeverityMedium:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
