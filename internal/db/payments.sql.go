package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, order_id, preference_id, gateway_payment_id, status, amount, payload, created_at, updated_at, approved_at`

func scanPayment(row interface{ Scan(dest ...any) error }) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.PreferenceID,
		&i.GatewayPaymentID,
		&i.Status,
		&i.Amount,
		&i.Payload,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.ApprovedAt,
	)
	return i, err
}

const getPaymentByGatewayID = `-- name: GetPaymentByGatewayID :one
SELECT ` + paymentColumns + `
FROM payments
WHERE gateway_payment_id = $1
`

func (q *Queries) GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentByGatewayID, gatewayPaymentID))
}

const getPaymentByPreferenceID = `-- name: GetPaymentByPreferenceID :one
SELECT ` + paymentColumns + `
FROM payments
WHERE preference_id = $1
`

func (q *Queries) GetPaymentByPreferenceID(ctx context.Context, preferenceID string) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentByPreferenceID, preferenceID))
}

const getLatestPaymentByOrderID = `-- name: GetLatestPaymentByOrderID :one
SELECT ` + paymentColumns + `
FROM payments
WHERE order_id = $1
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestPaymentByOrderID(ctx context.Context, orderID uuid.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getLatestPaymentByOrderID, orderID))
}

const insertPayment = `-- name: InsertPayment :one
INSERT INTO payments (order_id, preference_id, gateway_payment_id, status, amount, payload, approved_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`

type InsertPaymentParams struct {
	OrderID          *uuid.UUID
	PreferenceID     *string
	GatewayPaymentID *string
	Status           string
	Amount           decimal.Decimal
	Payload          []byte
	ApprovedAt       *time.Time
}

func (q *Queries) InsertPayment(ctx context.Context, arg InsertPaymentParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, insertPayment,
		arg.OrderID,
		arg.PreferenceID,
		arg.GatewayPaymentID,
		arg.Status,
		arg.Amount,
		arg.Payload,
		arg.ApprovedAt,
	)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

const updatePayment = `-- name: UpdatePayment :execresult
UPDATE payments
SET order_id           = COALESCE($2, order_id),
    preference_id      = COALESCE($3, preference_id),
    gateway_payment_id = COALESCE($4, gateway_payment_id),
    status             = $5,
    amount             = $6,
    payload            = $7,
    approved_at        = COALESCE($8, approved_at),
    updated_at         = now()
WHERE id = $1
`

type UpdatePaymentParams struct {
	ID               uuid.UUID
	OrderID          *uuid.UUID
	PreferenceID     *string
	GatewayPaymentID *string
	Status           string
	Amount           decimal.Decimal
	Payload          []byte
	ApprovedAt       *time.Time
}

func (q *Queries) UpdatePayment(ctx context.Context, arg UpdatePaymentParams) (pgconn.CommandTag, error) {
	return q.db.Exec(ctx, updatePayment,
		arg.ID,
		arg.OrderID,
		arg.PreferenceID,
		arg.GatewayPaymentID,
		arg.Status,
		arg.Amount,
		arg.Payload,
		arg.ApprovedAt,
	)
}
