package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
)

type resolver struct {
	key    string
	lookup func(ctx context.Context, gp domain.GatewayPayment) (domain.PaymentRecord, error)
}

// resolvers are tried in order, the first hit wins.
func (r *Reconciler) resolvers() []resolver {
	return []resolver{
		{
			key: "gateway_payment_id",
			lookup: func(ctx context.Context, gp domain.GatewayPayment) (domain.PaymentRecord, error) {
				return r.payments.GetPaymentByGatewayID(ctx, gp.ID)
			},
		},
		{
			key: "preference_id",
			lookup: func(ctx context.Context, gp domain.GatewayPayment) (domain.PaymentRecord, error) {
				if gp.PreferenceID == "" {
					return domain.PaymentRecord{}, domain.ErrNotFound
				}
				return r.payments.GetPaymentByPreferenceID(ctx, gp.PreferenceID)
			},
		},
		{
			key: "external_reference",
			lookup: func(ctx context.Context, gp domain.GatewayPayment) (domain.PaymentRecord, error) {
				orderID, err := uuid.Parse(gp.ExternalReference)
				if err != nil {
					return domain.PaymentRecord{}, domain.ErrNotFound
				}
				return r.payments.GetLatestPaymentByOrderID(ctx, orderID)
			},
		},
	}
}

func (r *Reconciler) resolve(ctx context.Context, gp domain.GatewayPayment) (domain.PaymentRecord, string, error) {
	for _, res := range r.resolvers() {
		record, err := res.lookup(ctx, gp)
		if err == nil {
			return record, res.key, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.PaymentRecord{}, "", fmt.Errorf("resolve[%s]: %w: %w", res.key, domain.ErrPersistence, err)
		}
	}

	return domain.PaymentRecord{}, "", nil
}

// upsert writes the gateway state to the matching record, or inserts one.
// A record already bound to a different gateway payment is a previous attempt on the
// same intent, so the new payment gets its own record linked to the same order.
func (r *Reconciler) upsert(ctx context.Context, gp domain.GatewayPayment) (domain.PaymentRecord, string, error) {
	record, key, err := r.resolve(ctx, gp)
	if err != nil {
		return domain.PaymentRecord{}, "", err
	}

	if key != "" && (record.GatewayPaymentID == "" || record.GatewayPaymentID == gp.ID) {
		updated, err := r.update(ctx, record, gp)
		return updated, key, err
	}

	fresh := domain.PaymentRecord{
		GatewayPaymentID: gp.ID,
		Status:           gp.Status,
		Amount:           gp.Amount,
		Payload:          gp.Raw,
		ApprovedAt:       gp.ApprovedAt,
	}

	if key == "" {
		fresh.PreferenceID = gp.PreferenceID
		fresh.OrderID = r.orderFromReference(ctx, gp)
	} else {
		fresh.OrderID = record.OrderID
	}

	id, err := r.payments.InsertPayment(ctx, fresh)
	if err == nil {
		fresh.ID = id
		return fresh, "inserted", nil
	}

	if !errors.Is(err, domain.ErrConflict) {
		return domain.PaymentRecord{}, "", fmt.Errorf("payments.InsertPayment: %w: %w", domain.ErrPersistence, err)
	}

	// a concurrent delivery inserted first
	existing, err := r.payments.GetPaymentByGatewayID(ctx, gp.ID)
	if err != nil {
		return domain.PaymentRecord{}, "", fmt.Errorf("payments.GetPaymentByGatewayID: %w: %w", domain.ErrPersistence, err)
	}

	updated, err := r.update(ctx, existing, gp)
	return updated, "gateway_payment_id", err
}

func (r *Reconciler) update(ctx context.Context, record domain.PaymentRecord, gp domain.GatewayPayment) (domain.PaymentRecord, error) {
	record.GatewayPaymentID = gp.ID
	record.Status = gp.Status
	record.Payload = gp.Raw
	if !gp.Amount.IsZero() {
		record.Amount = gp.Amount
	}
	if gp.ApprovedAt != nil {
		record.ApprovedAt = gp.ApprovedAt
	}
	if record.OrderID == nil {
		record.OrderID = r.orderFromReference(ctx, gp)
	}

	if err := r.payments.UpdatePayment(ctx, record); err != nil {
		return domain.PaymentRecord{}, fmt.Errorf("payments.UpdatePayment: %w: %w", domain.ErrPersistence, err)
	}

	return record, nil
}

// orderFromReference links only to orders that exist.
func (r *Reconciler) orderFromReference(ctx context.Context, gp domain.GatewayPayment) *uuid.UUID {
	orderID, err := uuid.Parse(gp.ExternalReference)
	if err != nil {
		return nil
	}

	if _, err := r.orders.GetOrder(ctx, orderID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.security.Record(ctx, domain.EventOrderNotFound, domain.SeverityLow, map[string]any{
				"order_id":   orderID.String(),
				"payment_id": gp.ID,
				"source":     "external_reference",
			})
		} else {
			r.log.Error("failed to load order referenced by payment",
				"method", "Reconciler.orderFromReference", "order_id", orderID, "err", err)
		}
		return nil
	}

	return &orderID
}
