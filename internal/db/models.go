package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID            uuid.UUID
	Name          string
	Category      string
	PriceAmount   decimal.Decimal
	PriceCurrency string
	Active        bool
	CreatedAt     time.Time
}

type Course struct {
	ID            uuid.UUID
	Title         string
	Description   string
	Level         string
	DurationHours int32
	PriceAmount   decimal.Decimal
	PriceCurrency string
	Active        bool
	CreatedAt     time.Time
}

type CourseLesson struct {
	ID              uuid.UUID
	CourseID        uuid.UUID
	Title           string
	Position        int32
	DurationMinutes int32
	Content         string
}

type Order struct {
	ID              uuid.UUID
	Number          string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Subtotal        decimal.Decimal
	ShippingCost    decimal.Decimal
	Total           decimal.Decimal
	Currency        string
	Status          string
	PaymentMethod   string
	PaymentIntentID string
	DeliveryAddress string
	City            string
	PostalCode      string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PaidAt          *time.Time
}

type OrderItem struct {
	OrderID   uuid.UUID
	Position  int32
	ItemID    uuid.UUID
	ItemType  string
	Name      string
	Quantity  int32
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

type Payment struct {
	ID               uuid.UUID
	OrderID          *uuid.UUID
	PreferenceID     *string
	GatewayPaymentID *string
	Status           string
	Amount           decimal.Decimal
	Payload          []byte
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ApprovedAt       *time.Time
}

type AccessGrant struct {
	ID           uuid.UUID
	Email        string
	CourseID     uuid.UUID
	OrderID      uuid.UUID
	Token        string
	ExpiresAt    time.Time
	Progress     int32
	Completed    bool
	LastAccessAt *time.Time
	Active       bool
	CreatedAt    time.Time
}

type SecurityLog struct {
	ID        uuid.UUID
	Kind      string
	Severity  string
	Details   []byte
	Ip        string
	UserAgent string
	Method    string
	Url       string
	CreatedAt time.Time
}
