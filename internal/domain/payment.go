package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusInProcess PaymentStatus = "in_process"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

var validPaymentStatuses = map[PaymentStatus]struct{}{
	PaymentStatusPending:   {},
	PaymentStatusApproved:  {},
	PaymentStatusRejected:  {},
	PaymentStatusInProcess: {},
	PaymentStatusCancelled: {},
}

// ToPaymentStatus maps a gateway status string; unknown values are treated as pending.
func ToPaymentStatus(s string) PaymentStatus {
	status := PaymentStatus(s)
	if _, ok := validPaymentStatuses[status]; ok {
		return status
	}
	return PaymentStatusPending
}

// PaymentRecord is the local ledger entry for a payment intent (preference) and,
// once the gateway reports on it, the payment itself.
type PaymentRecord struct {
	ID               uuid.UUID
	OrderID          *uuid.UUID
	PreferenceID     string
	GatewayPaymentID string
	Status           PaymentStatus
	Amount           decimal.Decimal
	Payload          []byte

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ApprovedAt *time.Time
}

// IsActiveIntent reports whether the record is a pending intent younger than ttl.
func (p PaymentRecord) IsActiveIntent(now time.Time, ttl time.Duration) bool {
	return p.Status == PaymentStatusPending && now.Sub(p.CreatedAt) < ttl
}

type Payer struct {
	Name  string
	Email string
	Phone string
}

type PreferenceItem struct {
	ID        string
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
}

type BackURLs struct {
	Success string
	Failure string
	Pending string
}

// PreferenceRequest is the gateway-facing payment intent request.
type PreferenceRequest struct {
	Items             []PreferenceItem
	Payer             Payer
	BackURLs          BackURLs
	NotificationURL   string
	ExternalReference string
	ExpiresFrom       time.Time
	ExpiresTo         time.Time
	MaxInstallments   int
	Currency          string
}

type Preference struct {
	ID          string
	RedirectURL string
	Raw         []byte
}

// GatewayPayment is the authoritative payment detail fetched from the gateway.
type GatewayPayment struct {
	ID                string
	Status            PaymentStatus
	Amount            decimal.Decimal
	ExternalReference string
	PreferenceID      string
	// MerchantOrderID groups payments of one checkout; it is not a preference id.
	MerchantOrderID   string
	ApprovedAt        *time.Time
	Raw               []byte
}
