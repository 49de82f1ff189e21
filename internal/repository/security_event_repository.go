package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/artesano/internal/db"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
	"github.com/samber/lo"
)

const defaultSecurityEventLimit = 100

type securityEventRepository struct {
	q *db.Queries
}

func NewSecurityEvent(pool *pgxpool.Pool) (port.SecurityEventRepository, error) {
	dbtx, err := dbtxFromPool(pool)
	if err != nil {
		return nil, err
	}

	return &securityEventRepository{q: db.New(dbtx)}, nil
}

func (r *securityEventRepository) InsertSecurityEvent(ctx context.Context, event domain.SecurityEvent) error {
	details, err := json.Marshal(lo.Ternary(event.Details == nil, map[string]any{}, event.Details))
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	id := event.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	if err := r.q.InsertSecurityLog(ctx, db.InsertSecurityLogParams{
		ID:        id,
		Kind:      string(event.Kind),
		Severity:  string(event.Severity),
		Details:   details,
		Ip:        event.Request.IP,
		UserAgent: event.Request.UserAgent,
		Method:    event.Request.Method,
		Url:       event.Request.URL,
		CreatedAt: createdAt,
	}); err != nil {
		return fmt.Errorf("q.InsertSecurityLog: %w", err)
	}

	return nil
}

func (r *securityEventRepository) SearchSecurityEvents(ctx context.Context, filter domain.SecurityEventFilter) ([]domain.SecurityEvent, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter.Validate: %w", err)
	}

	rows, err := r.q.SearchSecurityLogs(ctx, mapDomainSecurityEventFilterToDB(filter))
	if err != nil {
		return nil, fmt.Errorf("q.SearchSecurityLogs: %w", err)
	}

	events := make([]domain.SecurityEvent, 0, len(rows))
	for _, row := range rows {
		event, err := mapDBSecurityLogToDomain(row)
		if err != nil {
			return nil, fmt.Errorf("mapDBSecurityLogToDomain: %w", err)
		}
		events = append(events, event)
	}

	return events, nil
}

func mapDomainSecurityEventFilterToDB(filter domain.SecurityEventFilter) db.SearchSecurityLogsParams {
	var createdAfter, createdBefore *time.Time
	if filter.CreatedAt != nil {
		createdAfter = filter.CreatedAt.After
		createdBefore = filter.CreatedAt.Before
	}

	kinds := lo.Map(filter.Kinds, func(k domain.SecurityEventKind, _ int) string { return string(k) })
	severities := lo.Map(filter.Severities, func(s domain.Severity, _ int) string { return string(s) })

	return db.SearchSecurityLogsParams{
		Kinds:         nilSliceIfEmpty(kinds),
		Severities:    nilSliceIfEmpty(severities),
		CreatedAfter:  createdAfter,
		CreatedBefore: createdBefore,
		Limit:         int32(lo.Ternary(filter.Limit == 0, defaultSecurityEventLimit, filter.Limit)),
	}
}

func mapDBSecurityLogToDomain(row db.SecurityLog) (domain.SecurityEvent, error) {
	var e domain.SecurityEvent

	kind, err := domain.ToSecurityEventKind(row.Kind)
	if err != nil {
		return e, fmt.Errorf("domain.ToSecurityEventKind[%s]: %w", row.Kind, err)
	}

	severity, err := domain.ToSeverity(row.Severity)
	if err != nil {
		return e, fmt.Errorf("domain.ToSeverity[%s]: %w", row.Severity, err)
	}

	var details map[string]any
	if err := json.Unmarshal(row.Details, &details); err != nil {
		return e, fmt.Errorf("json.Unmarshal: %w", err)
	}

	return domain.SecurityEvent{
		ID:       row.ID,
		Kind:     kind,
		Severity: severity,
		Details:  details,
		Request: domain.RequestMeta{
			IP:        row.Ip,
			UserAgent: row.UserAgent,
			Method:    row.Method,
			URL:       row.Url,
		},
		CreatedAt: row.CreatedAt,
	}, nil
}
