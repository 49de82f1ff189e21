// Package ordering places orders. Line prices are snapshots taken from the
// request; they are re-verified against the catalog when a payment is opened.
package ordering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	numberPrefix         = "EA-"
	defaultPaymentMethod = "mercadopago"
	maxQuantity          = 100
)

type NewLine struct {
	ItemID    uuid.UUID
	ItemType  domain.ItemType
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

type NewOrder struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	DeliveryAddress string
	City            string
	PostalCode      string
	Notes           string
	PaymentMethod   string

	Lines        []NewLine
	ShippingCost decimal.Decimal
}

type Service struct {
	orders   port.OrderRepository
	node     *snowflake.Node
	currency currency.Unit
	log      *slog.Logger
}

// NewService numbers orders with a snowflake node; nodeID must be unique per running instance.
func NewService(orders port.OrderRepository, nodeID int64, unit currency.Unit, log *slog.Logger) (*Service, error) {
	if orders == nil {
		return nil, errors.New("orders is nil")
	}

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake.NewNode: %w", err)
	}

	if unit == (currency.Unit{}) {
		unit = domain.ARS
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		orders:   orders,
		node:     node,
		currency: unit,
		log:      log,
	}, nil
}

func (s *Service) PlaceOrder(ctx context.Context, req NewOrder) (domain.Order, error) {
	if err := req.validate(); err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		Number:          numberPrefix + s.node.Generate().String(),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerEmail:   strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		ShippingCost:    req.ShippingCost,
		Currency:        s.currency,
		Status:          domain.OrderStatusPending,
		PaymentMethod:   lo.CoalesceOrEmpty(strings.TrimSpace(req.PaymentMethod), defaultPaymentMethod),
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		City:            strings.TrimSpace(req.City),
		PostalCode:      strings.TrimSpace(req.PostalCode),
		Notes:           strings.TrimSpace(req.Notes),
	}

	for _, line := range req.Lines {
		subtotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))

		order.Lines = append(order.Lines, domain.OrderLine{
			ItemID:    line.ItemID,
			ItemType:  lo.CoalesceOrEmpty(line.ItemType, domain.ItemTypeProduct),
			Name:      strings.TrimSpace(line.Name),
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  subtotal,
		})
		order.Subtotal = order.Subtotal.Add(subtotal)
	}
	order.Total = order.Subtotal.Add(order.ShippingCost)

	orderID, err := s.orders.InsertOrder(ctx, order)
	if err != nil {
		return domain.Order{}, fmt.Errorf("orders.InsertOrder: %w: %w", domain.ErrPersistence, err)
	}

	s.log.Info("order placed", "order_id", orderID, "number", order.Number, "total", order.Total.StringFixed(2))

	return s.GetOrder(ctx, orderID)
}

func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	if orderID == uuid.Nil {
		return domain.Order{}, domain.Validationf("order id is empty")
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Order{}, fmt.Errorf("orders.GetOrder[%s]: %w", orderID, err)
		}
		return domain.Order{}, fmt.Errorf("orders.GetOrder[%s]: %w: %w", orderID, domain.ErrPersistence, err)
	}

	return order, nil
}

func (r NewOrder) validate() error {
	if len(r.Lines) == 0 {
		return domain.Validationf("cart is empty")
	}
	if strings.TrimSpace(r.CustomerName) == "" {
		return domain.Validationf("customer name is empty")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(r.CustomerEmail)); err != nil {
		return domain.Validationf("customer email %q is invalid", r.CustomerEmail)
	}
	if r.ShippingCost.IsNegative() {
		return domain.Validationf("shipping cost is negative")
	}
	if !hasCents(r.ShippingCost) {
		return domain.Validationf("shipping cost %s has more than 2 decimal places", r.ShippingCost)
	}

	for i, line := range r.Lines {
		if line.ItemID == uuid.Nil {
			return domain.Validationf("line[%d]: item id is empty", i)
		}
		if _, err := domain.ToItemType(string(line.ItemType)); err != nil {
			return domain.Validationf("line[%d]: %s", i, err)
		}
		if line.Quantity <= 0 || line.Quantity > maxQuantity {
			return domain.Validationf("line[%d]: quantity must be between 1 and %d", i, maxQuantity)
		}
		if !line.UnitPrice.IsPositive() {
			return domain.Validationf("line[%d]: unit price must be positive", i)
		}
		if !hasCents(line.UnitPrice) {
			return domain.Validationf("line[%d]: unit price %s has more than 2 decimal places", i, line.UnitPrice)
		}
	}

	return nil
}

// hasCents reports whether d fits the NUMERIC(12,2) amount columns without rounding.
func hasCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
