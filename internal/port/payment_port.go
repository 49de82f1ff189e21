package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
)

type PaymentRepository interface {
	GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (domain.PaymentRecord, error)
	GetPaymentByPreferenceID(ctx context.Context, preferenceID string) (domain.PaymentRecord, error)
	GetLatestPaymentByOrderID(ctx context.Context, orderID uuid.UUID) (domain.PaymentRecord, error)

	// InsertPayment returns domain.ErrConflict when a unique key is already taken.
	InsertPayment(ctx context.Context, record domain.PaymentRecord) (uuid.UUID, error)
	UpdatePayment(ctx context.Context, record domain.PaymentRecord) error
}

type PaymentGateway interface {
	CreatePreference(ctx context.Context, req domain.PreferenceRequest) (domain.Preference, error)
	GetPayment(ctx context.Context, paymentID string) (domain.GatewayPayment, error)
}
