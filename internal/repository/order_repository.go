package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/artesano/internal/db"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
	"golang.org/x/text/currency"
)

type orderRepository struct {
	dbtx db.DBTX
	q    *db.Queries
}

func NewOrder(pool *pgxpool.Pool) (port.OrderRepository, error) {
	dbtx, err := dbtxFromPool(pool)
	if err != nil {
		return nil, err
	}

	return &orderRepository{
		dbtx: dbtx,
		q:    db.New(dbtx),
	}, nil
}

func NewOrderWithTx(tx pgx.Tx) port.OrderRepository {
	return &orderRepository{
		dbtx: tx,
		q:    db.New(tx),
	}
}

func (r *orderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	var o domain.Order

	if orderID == uuid.Nil {
		return o, fmt.Errorf("orderID is empty")
	}

	order, err := withTx(ctx, r.dbtx, func(q *db.Queries) (domain.Order, error) {
		dbOrder, err := q.GetOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return o, fmt.Errorf("q.GetOrder: %w", domain.ErrOrderNotFound)
			}
			return o, fmt.Errorf("q.GetOrder: %w", err)
		}

		dbOrderItems, err := q.GetOrderItems(ctx, orderID)
		if err != nil {
			return o, fmt.Errorf("q.GetOrderItems: %w", err)
		}

		return mapDBOrderToDomain(dbOrder, dbOrderItems)
	})
	if err != nil {
		return o, fmt.Errorf("withTx: %w", err)
	}

	if err := order.CheckTotals(); err != nil {
		return o, fmt.Errorf("order[%s].CheckTotals: %w: %w", orderID, domain.ErrPersistence, err)
	}

	return order, nil
}

func (r *orderRepository) InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error) {
	if len(order.Lines) == 0 {
		return uuid.Nil, errors.New("no lines in order")
	}

	if err := order.CheckTotals(); err != nil {
		return uuid.Nil, fmt.Errorf("order.CheckTotals: %w", err)
	}

	orderID, err := withTx(ctx, r.dbtx, func(q *db.Queries) (uuid.UUID, error) {
		orderID, err := q.InsertOrder(ctx, db.InsertOrderParams{
			Number:          order.Number,
			CustomerName:    order.CustomerName,
			CustomerEmail:   order.CustomerEmail,
			CustomerPhone:   order.CustomerPhone,
			Subtotal:        order.Subtotal,
			ShippingCost:    order.ShippingCost,
			Total:           order.Total,
			Currency:        order.Currency.String(),
			PaymentMethod:   order.PaymentMethod,
			DeliveryAddress: order.DeliveryAddress,
			City:            order.City,
			PostalCode:      order.PostalCode,
			Notes:           order.Notes,
		})
		if err != nil {
			if isUniqueViolation(err) {
				return uuid.Nil, fmt.Errorf("q.InsertOrder: %w: number %s taken", domain.ErrConflict, order.Number)
			}
			return uuid.Nil, fmt.Errorf("q.InsertOrder: %w", err)
		}

		for i, line := range order.Lines {
			arg := db.InsertOrderItemParams{
				OrderID:   orderID,
				Position:  int32(i),
				ItemID:    line.ItemID,
				ItemType:  string(line.ItemType),
				Name:      line.Name,
				Quantity:  int32(line.Quantity),
				UnitPrice: line.UnitPrice,
				Subtotal:  line.Subtotal,
			}
			if err := q.InsertOrderItem(ctx, arg); err != nil {
				return uuid.Nil, fmt.Errorf("q.InsertOrderItem: %w", err)
			}
		}

		return orderID, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("withTx: %w", err)
	}

	return orderID, nil
}

func (r *orderRepository) AttachIntent(ctx context.Context, orderID uuid.UUID, prevIntentID string, record domain.PaymentRecord) (uuid.UUID, error) {
	if orderID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("orderID is empty")
	}

	if record.PreferenceID == "" {
		return uuid.Nil, fmt.Errorf("record.PreferenceID is empty")
	}

	paymentID, err := withTx(ctx, r.dbtx, func(q *db.Queries) (uuid.UUID, error) {
		cmdTag, err := q.SetOrderIntent(ctx, db.SetOrderIntentParams{
			ID:           orderID,
			PrevIntentID: prevIntentID,
			IntentID:     record.PreferenceID,
		})
		if err != nil {
			return uuid.Nil, fmt.Errorf("q.SetOrderIntent: %w", err)
		}

		if cmdTag.RowsAffected() == 0 {
			return uuid.Nil, fmt.Errorf("q.SetOrderIntent: %w: order changed concurrently", domain.ErrConflict)
		}

		record.OrderID = &orderID

		paymentID, err := q.InsertPayment(ctx, mapDomainPaymentToInsertParams(record))
		if err != nil {
			if isUniqueViolation(err) {
				return uuid.Nil, fmt.Errorf("q.InsertPayment: %w", domain.ErrConflict)
			}
			return uuid.Nil, fmt.Errorf("q.InsertPayment: %w", err)
		}

		return paymentID, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("withTx: %w", err)
	}

	return paymentID, nil
}

func (r *orderRepository) MarkOrderPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error) {
	if orderID == uuid.Nil {
		return false, fmt.Errorf("orderID is empty")
	}

	cmdTag, err := r.q.MarkOrderPaid(ctx, orderID, paidAt)
	if err != nil {
		return false, fmt.Errorf("q.MarkOrderPaid: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

func (r *orderRepository) ReopenOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if orderID == uuid.Nil {
		return false, fmt.Errorf("orderID is empty")
	}

	cmdTag, err := r.q.ReopenOrder(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("q.ReopenOrder: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

func mapDBOrderToDomain(dbOrder db.Order, dbOrderItems []db.OrderItem) (domain.Order, error) {
	var o domain.Order

	parsedCurrency, err := currency.ParseISO(dbOrder.Currency)
	if err != nil {
		return o, fmt.Errorf("currency[%s] is not valid: %w", dbOrder.Currency, err)
	}

	status, err := domain.ToOrderStatus(dbOrder.Status)
	if err != nil {
		return o, fmt.Errorf("domain.ToOrderStatus[%s]: %w", dbOrder.Status, err)
	}

	lines := make([]domain.OrderLine, 0, len(dbOrderItems))
	for _, item := range dbOrderItems {
		itemType, err := domain.ToItemType(item.ItemType)
		if err != nil {
			return o, fmt.Errorf("domain.ToItemType[%s]: %w", item.ItemType, err)
		}

		lines = append(lines, domain.OrderLine{
			ItemID:    item.ItemID,
			ItemType:  itemType,
			Name:      item.Name,
			Quantity:  int(item.Quantity),
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}

	return domain.Order{
		ID:              dbOrder.ID,
		Number:          dbOrder.Number,
		CustomerName:    dbOrder.CustomerName,
		CustomerEmail:   dbOrder.CustomerEmail,
		CustomerPhone:   dbOrder.CustomerPhone,
		Lines:           lines,
		Subtotal:        dbOrder.Subtotal,
		ShippingCost:    dbOrder.ShippingCost,
		Total:           dbOrder.Total,
		Currency:        parsedCurrency,
		Status:          status,
		PaymentMethod:   dbOrder.PaymentMethod,
		PaymentIntentID: dbOrder.PaymentIntentID,
		DeliveryAddress: dbOrder.DeliveryAddress,
		City:            dbOrder.City,
		PostalCode:      dbOrder.PostalCode,
		Notes:           dbOrder.Notes,
		CreatedAt:       dbOrder.CreatedAt,
		UpdatedAt:       dbOrder.UpdatedAt,
		PaidAt:          dbOrder.PaidAt,
	}, nil
}
