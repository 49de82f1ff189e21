package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
)

type OrderRepository interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)

	InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error)

	// AttachIntent persists a pending payment record and moves the order to pending_payment,
	// provided the order is still payable and its intent id still equals prevIntentID.
	// A lost race returns domain.ErrConflict and persists nothing.
	AttachIntent(ctx context.Context, orderID uuid.UUID, prevIntentID string, record domain.PaymentRecord) (uuid.UUID, error)

	// MarkOrderPaid reports whether this call transitioned the order to paid.
	MarkOrderPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error)

	// ReopenOrder moves a pending_payment order back to pending.
	ReopenOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}
