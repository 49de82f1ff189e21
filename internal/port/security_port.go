package port

import (
	"context"

	"github.com/nikolayk812/artesano/internal/domain"
)

type SecurityEventRepository interface {
	InsertSecurityEvent(ctx context.Context, event domain.SecurityEvent) error
	SearchSecurityEvents(ctx context.Context, filter domain.SecurityEventFilter) ([]domain.SecurityEvent, error)
}

// SecurityRecorder never fails; persistence problems are logged by the implementation.
type SecurityRecorder interface {
	Record(ctx context.Context, kind domain.SecurityEventKind, severity domain.Severity, details map[string]any) domain.SecurityEvent
}

type EventPublisher interface {
	Publish(ctx context.Context, events ...domain.Event)
}
