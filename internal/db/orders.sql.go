package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, number, customer_name, customer_email, customer_phone, subtotal, shipping_cost, total,
       currency, status, payment_method, payment_intent_id, delivery_address, city, postal_code, notes,
       created_at, updated_at, paid_at`

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.Number,
		&i.CustomerName,
		&i.CustomerEmail,
		&i.CustomerPhone,
		&i.Subtotal,
		&i.ShippingCost,
		&i.Total,
		&i.Currency,
		&i.Status,
		&i.PaymentMethod,
		&i.PaymentIntentID,
		&i.DeliveryAddress,
		&i.City,
		&i.PostalCode,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.PaidAt,
	)
	return i, err
}

const getOrderItems = `-- name: GetOrderItems :many
SELECT order_id, position, item_id, item_type, name, quantity, unit_price, subtotal
FROM order_items
WHERE order_id = $1
ORDER BY position
`

func (q *Queries) GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, getOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.OrderID,
			&i.Position,
			&i.ItemID,
			&i.ItemType,
			&i.Name,
			&i.Quantity,
			&i.UnitPrice,
			&i.Subtotal,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertOrder = `-- name: InsertOrder :one
INSERT INTO orders (number, customer_name, customer_email, customer_phone, subtotal, shipping_cost, total,
                    currency, payment_method, delivery_address, city, postal_code, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id
`

type InsertOrderParams struct {
	Number          string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Subtotal        decimal.Decimal
	ShippingCost    decimal.Decimal
	Total           decimal.Decimal
	Currency        string
	PaymentMethod   string
	DeliveryAddress string
	City            string
	PostalCode      string
	Notes           string
}

func (q *Queries) InsertOrder(ctx context.Context, arg InsertOrderParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, insertOrder,
		arg.Number,
		arg.CustomerName,
		arg.CustomerEmail,
		arg.CustomerPhone,
		arg.Subtotal,
		arg.ShippingCost,
		arg.Total,
		arg.Currency,
		arg.PaymentMethod,
		arg.DeliveryAddress,
		arg.City,
		arg.PostalCode,
		arg.Notes,
	)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

const insertOrderItem = `-- name: InsertOrderItem :exec
INSERT INTO order_items (order_id, position, item_id, item_type, name, quantity, unit_price, subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type InsertOrderItemParams struct {
	OrderID   uuid.UUID
	Position  int32
	ItemID    uuid.UUID
	ItemType  string
	Name      string
	Quantity  int32
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

func (q *Queries) InsertOrderItem(ctx context.Context, arg InsertOrderItemParams) error {
	_, err := q.db.Exec(ctx, insertOrderItem,
		arg.OrderID,
		arg.Position,
		arg.ItemID,
		arg.ItemType,
		arg.Name,
		arg.Quantity,
		arg.UnitPrice,
		arg.Subtotal,
	)
	return err
}

const setOrderIntent = `-- name: SetOrderIntent :execresult
UPDATE orders
SET status            = 'pending_payment',
    payment_intent_id = $3,
    updated_at        = now()
WHERE id = $1
  AND payment_intent_id = $2
  AND status IN ('pending', 'pending_payment')
`

type SetOrderIntentParams struct {
	ID           uuid.UUID
	PrevIntentID string
	IntentID     string
}

func (q *Queries) SetOrderIntent(ctx context.Context, arg SetOrderIntentParams) (pgconn.CommandTag, error) {
	return q.db.Exec(ctx, setOrderIntent, arg.ID, arg.PrevIntentID, arg.IntentID)
}

const markOrderPaid = `-- name: MarkOrderPaid :execresult
UPDATE orders
SET status     = 'paid',
    paid_at    = $2,
    updated_at = now()
WHERE id = $1
  AND status IN ('pending', 'pending_payment')
`

func (q *Queries) MarkOrderPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (pgconn.CommandTag, error) {
	return q.db.Exec(ctx, markOrderPaid, id, paidAt)
}

const reopenOrder = `-- name: ReopenOrder :execresult
UPDATE orders
SET status     = 'pending',
    updated_at = now()
WHERE id = $1
  AND status = 'pending_payment'
`

func (q *Queries) ReopenOrder(ctx context.Context, id uuid.UUID) (pgconn.CommandTag, error) {
	return q.db.Exec(ctx, reopenOrder, id)
}
