package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/artesano/internal/db"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
	"github.com/samber/lo"
)

type paymentRepository struct {
	q *db.Queries
}

func NewPayment(pool *pgxpool.Pool) (port.PaymentRepository, error) {
	dbtx, err := dbtxFromPool(pool)
	if err != nil {
		return nil, err
	}

	return &paymentRepository{q: db.New(dbtx)}, nil
}

func NewPaymentWithTx(tx pgx.Tx) port.PaymentRepository {
	return &paymentRepository{q: db.New(tx)}
}

func (r *paymentRepository) GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (domain.PaymentRecord, error) {
	if gatewayPaymentID == "" {
		return domain.PaymentRecord{}, fmt.Errorf("gatewayPaymentID is empty")
	}

	payment, err := r.q.GetPaymentByGatewayID(ctx, gatewayPaymentID)
	if err != nil {
		return domain.PaymentRecord{}, fmt.Errorf("q.GetPaymentByGatewayID: %w", mapNoRows(err))
	}

	return mapDBPaymentToDomain(payment), nil
}

func (r *paymentRepository) GetPaymentByPreferenceID(ctx context.Context, preferenceID string) (domain.PaymentRecord, error) {
	if preferenceID == "" {
		return domain.PaymentRecord{}, fmt.Errorf("preferenceID is empty")
	}

	payment, err := r.q.GetPaymentByPreferenceID(ctx, preferenceID)
	if err != nil {
		return domain.PaymentRecord{}, fmt.Errorf("q.GetPaymentByPreferenceID: %w", mapNoRows(err))
	}

	return mapDBPaymentToDomain(payment), nil
}

func (r *paymentRepository) GetLatestPaymentByOrderID(ctx context.Context, orderID uuid.UUID) (domain.PaymentRecord, error) {
	if orderID == uuid.Nil {
		return domain.PaymentRecord{}, fmt.Errorf("orderID is empty")
	}

	payment, err := r.q.GetLatestPaymentByOrderID(ctx, orderID)
	if err != nil {
		return domain.PaymentRecord{}, fmt.Errorf("q.GetLatestPaymentByOrderID: %w", mapNoRows(err))
	}

	return mapDBPaymentToDomain(payment), nil
}

func (r *paymentRepository) InsertPayment(ctx context.Context, record domain.PaymentRecord) (uuid.UUID, error) {
	if record.PreferenceID == "" && record.GatewayPaymentID == "" {
		return uuid.Nil, errors.New("record has neither preference nor gateway payment id")
	}

	id, err := r.q.InsertPayment(ctx, mapDomainPaymentToInsertParams(record))
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, fmt.Errorf("q.InsertPayment: %w", domain.ErrConflict)
		}
		return uuid.Nil, fmt.Errorf("q.InsertPayment: %w", err)
	}

	return id, nil
}

func (r *paymentRepository) UpdatePayment(ctx context.Context, record domain.PaymentRecord) error {
	if record.ID == uuid.Nil {
		return fmt.Errorf("record.ID is empty")
	}

	cmdTag, err := r.q.UpdatePayment(ctx, db.UpdatePaymentParams{
		ID:               record.ID,
		OrderID:          record.OrderID,
		PreferenceID:     lo.EmptyableToPtr(record.PreferenceID),
		GatewayPaymentID: lo.EmptyableToPtr(record.GatewayPaymentID),
		Status:           string(record.Status),
		Amount:           record.Amount,
		Payload:          emptyJSONIfNil(record.Payload),
		ApprovedAt:       record.ApprovedAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("q.UpdatePayment: %w", domain.ErrConflict)
		}
		return fmt.Errorf("q.UpdatePayment: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("q.UpdatePayment: %w", domain.ErrNotFound)
	}

	return nil
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func mapDomainPaymentToInsertParams(record domain.PaymentRecord) db.InsertPaymentParams {
	return db.InsertPaymentParams{
		OrderID:          record.OrderID,
		PreferenceID:     lo.EmptyableToPtr(record.PreferenceID),
		GatewayPaymentID: lo.EmptyableToPtr(record.GatewayPaymentID),
		Status:           string(lo.CoalesceOrEmpty(record.Status, domain.PaymentStatusPending)),
		Amount:           record.Amount,
		Payload:          emptyJSONIfNil(record.Payload),
		ApprovedAt:       record.ApprovedAt,
	}
}

func mapDBPaymentToDomain(p db.Payment) domain.PaymentRecord {
	return domain.PaymentRecord{
		ID:               p.ID,
		OrderID:          p.OrderID,
		PreferenceID:     lo.FromPtr(p.PreferenceID),
		GatewayPaymentID: lo.FromPtr(p.GatewayPaymentID),
		Status:           domain.ToPaymentStatus(p.Status),
		Amount:           p.Amount,
		Payload:          p.Payload,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		ApprovedAt:       p.ApprovedAt,
	}
}
