// Package reconcile applies authoritative gateway payment state to local payment records and orders.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/entitlement"
	"github.com/nikolayk812/artesano/internal/port"
	"github.com/shopspring/decimal"
)

type Issuer interface {
	Issue(ctx context.Context, email string, courseID, orderID uuid.UUID) (entitlement.Issued, error)
}

type Config struct {
	GatewayTimeout time.Duration
	// AmountTolerance bounds the accepted difference between paid amount and order total.
	AmountTolerance decimal.Decimal
}

type Reconciler struct {
	gateway   port.PaymentGateway
	orders    port.OrderRepository
	payments  port.PaymentRepository
	issuer    Issuer
	publisher port.EventPublisher
	security  port.SecurityRecorder
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
}

func NewReconciler(
	gateway port.PaymentGateway,
	orders port.OrderRepository,
	payments port.PaymentRepository,
	issuer Issuer,
	publisher port.EventPublisher,
	security port.SecurityRecorder,
	cfg Config,
	log *slog.Logger,
) (*Reconciler, error) {
	if gateway == nil || orders == nil || payments == nil || issuer == nil || publisher == nil || security == nil {
		return nil, errors.New("nil dependency")
	}
	if cfg.GatewayTimeout <= 0 {
		return nil, errors.New("GatewayTimeout must be positive")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Reconciler{
		gateway:   gateway,
		orders:    orders,
		payments:  payments,
		issuer:    issuer,
		publisher: publisher,
		security:  security,
		cfg:       cfg,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

type Outcome struct {
	RecordID uuid.UUID
	// OrderID is uuid.Nil when the payment could not be linked to an order.
	OrderID      uuid.UUID
	Status       domain.PaymentStatus
	ResolvedBy   string
	Transitioned bool
	GrantsIssued int
}

// Reconcile is safe under repeated and concurrent delivery of the same payment id.
// Errors are returned only for failures that should make the gateway retry.
func (r *Reconciler) Reconcile(ctx context.Context, paymentID string) (Outcome, error) {
	if paymentID == "" {
		return Outcome{}, domain.ErrMissingPaymentID
	}

	gp, err := r.fetch(ctx, paymentID)
	if err != nil {
		return Outcome{}, err
	}

	record, resolvedBy, err := r.upsert(ctx, gp)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{
		RecordID:   record.ID,
		Status:     gp.Status,
		ResolvedBy: resolvedBy,
	}

	if record.OrderID == nil {
		r.log.Warn("payment is not linked to any order",
			"payment_id", gp.ID, "status", gp.Status, "merchant_order_id", gp.MerchantOrderID)
		return outcome, nil
	}
	outcome.OrderID = *record.OrderID

	switch gp.Status {
	case domain.PaymentStatusApproved:
		transitioned, issued, err := r.settle(ctx, outcome.OrderID, gp)
		if err != nil {
			return outcome, err
		}
		outcome.Transitioned = transitioned
		outcome.GrantsIssued = issued

	case domain.PaymentStatusRejected, domain.PaymentStatusCancelled:
		reopened, err := r.orders.ReopenOrder(ctx, outcome.OrderID)
		if err != nil {
			return outcome, fmt.Errorf("orders.ReopenOrder: %w: %w", domain.ErrPersistence, err)
		}
		outcome.Transitioned = reopened
	}

	r.log.Info("payment reconciled",
		"payment_id", gp.ID, "order_id", outcome.OrderID, "status", gp.Status,
		"resolved_by", resolvedBy, "transitioned", outcome.Transitioned, "grants_issued", outcome.GrantsIssued)

	return outcome, nil
}

func (r *Reconciler) fetch(ctx context.Context, paymentID string) (domain.GatewayPayment, error) {
	gwCtx, cancel := context.WithTimeout(ctx, r.cfg.GatewayTimeout)
	defer cancel()

	gp, err := r.gateway.GetPayment(gwCtx, paymentID)
	if err != nil {
		return domain.GatewayPayment{}, fmt.Errorf("gateway.GetPayment: %w: %w", domain.ErrUpstream, err)
	}

	if gp.ID == "" {
		gp.ID = paymentID
	}

	return gp, nil
}

// settle marks the order paid, ensures course grants and publishes post-commit events.
// Grant failures are logged; the paid transition is never reverted.
func (r *Reconciler) settle(ctx context.Context, orderID uuid.UUID, gp domain.GatewayPayment) (bool, int, error) {
	paidAt := r.now()
	if gp.ApprovedAt != nil {
		paidAt = gp.ApprovedAt.UTC()
	}

	transitioned, err := r.orders.MarkOrderPaid(ctx, orderID, paidAt)
	if err != nil {
		return false, 0, fmt.Errorf("orders.MarkOrderPaid: %w: %w", domain.ErrPersistence, err)
	}

	order, err := r.orders.GetOrder(ctx, orderID)
	if err != nil {
		return transitioned, 0, fmt.Errorf("orders.GetOrder: %w", err)
	}

	if order.Status != domain.OrderStatusPaid {
		r.log.Warn("approved payment for an order that cannot be paid",
			"order_id", orderID, "status", order.Status, "payment_id", gp.ID)
		return false, 0, nil
	}

	var events []domain.Event

	if transitioned {
		r.checkAmount(ctx, order, gp)
		events = append(events, domain.OrderPaid{Order: order})
	}

	issued := 0
	for _, line := range order.CourseLines() {
		grant, err := r.issuer.Issue(ctx, order.CustomerEmail, line.ItemID, order.ID)
		if err != nil {
			r.log.Error("failed to issue course access",
				"method", "Reconciler.settle", "order_id", order.ID, "course_id", line.ItemID, "err", err)
			continue
		}
		if !grant.Created {
			continue
		}

		issued++
		events = append(events, domain.CourseAccessIssued{
			Order:       order,
			CourseID:    line.ItemID,
			CourseTitle: line.Name,
			Email:       grant.Grant.Email,
			Link:        grant.Link,
		})
	}

	if len(events) > 0 {
		r.publisher.Publish(ctx, events...)
	}

	return transitioned, issued, nil
}

func (r *Reconciler) checkAmount(ctx context.Context, order domain.Order, gp domain.GatewayPayment) {
	if gp.Amount.IsZero() || domain.WithinTolerance(gp.Amount, order.Total, r.cfg.AmountTolerance) {
		return
	}

	r.security.Record(ctx, domain.EventPriceManipulation, domain.SeverityCritical, map[string]any{
		"reason":      "paid_amount_mismatch",
		"order_id":    order.ID.String(),
		"payment_id":  gp.ID,
		"order_total": order.Total.String(),
		"paid_amount": gp.Amount.String(),
	})
}
