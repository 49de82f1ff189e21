// Package pricing re-prices orders against the authoritative catalog.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// DefaultTolerance absorbs rounding of snapshotted prices.
var DefaultTolerance = decimal.RequireFromString("0.01")

// QuotedLine is an order line re-priced at the current catalog price.
type QuotedLine struct {
	ItemID    uuid.UUID
	ItemType  domain.ItemType
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

type Quote struct {
	Lines    []QuotedLine
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

type Verifier struct {
	catalog   port.CatalogSource
	security  port.SecurityRecorder
	tolerance decimal.Decimal
	log       *slog.Logger
}

func NewVerifier(catalog port.CatalogSource, security port.SecurityRecorder, tolerance decimal.Decimal, log *slog.Logger) (*Verifier, error) {
	if catalog == nil {
		return nil, errors.New("catalog is nil")
	}
	if security == nil {
		return nil, errors.New("security is nil")
	}
	if tolerance.IsNegative() {
		return nil, fmt.Errorf("tolerance %s is negative", tolerance)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Verifier{
		catalog:   catalog,
		security:  security,
		tolerance: tolerance,
		log:       log,
	}, nil
}

type priceMismatch struct {
	line    domain.OrderLine
	current decimal.Decimal
}

// Verify never trusts the prices snapshotted on the order lines.
func (v *Verifier) Verify(ctx context.Context, order domain.Order) (Quote, error) {
	if len(order.Lines) == 0 {
		return Quote{}, domain.Validationf("order has no lines")
	}
	if order.ShippingCost.IsNegative() {
		return Quote{}, domain.Validationf("shipping cost is negative")
	}

	quote := Quote{Shipping: order.ShippingCost}

	var mismatches []priceMismatch

	for _, line := range order.Lines {
		if line.Quantity <= 0 {
			return Quote{}, domain.Validationf("item %s: quantity must be positive", line.ItemID)
		}

		title, current, err := v.currentPrice(ctx, line)
		if err != nil {
			return Quote{}, err
		}

		if !domain.WithinTolerance(current, line.UnitPrice, v.tolerance) {
			mismatches = append(mismatches, priceMismatch{line: line, current: current})
		}

		subtotal := current.Mul(decimal.NewFromInt(int64(line.Quantity)))
		quote.Lines = append(quote.Lines, QuotedLine{
			ItemID:    line.ItemID,
			ItemType:  line.ItemType,
			Title:     title,
			Quantity:  line.Quantity,
			UnitPrice: current,
			Subtotal:  subtotal,
		})
		quote.Subtotal = quote.Subtotal.Add(subtotal)
	}

	if len(mismatches) > 0 {
		v.security.Record(ctx, domain.EventPriceManipulation, domain.SeverityCritical, map[string]any{
			"reason":   "price_mismatch",
			"order_id": order.ID.String(),
			"lines":    lo.Map(mismatches, mismatchDetails),
		})
		return Quote{}, fmt.Errorf("order %s: %d line(s) repriced: %w", order.ID, len(mismatches), domain.ErrPriceChanged)
	}

	quote.Total = quote.Subtotal.Add(quote.Shipping)

	if !domain.WithinTolerance(quote.Total, order.Total, v.tolerance) {
		v.security.Record(ctx, domain.EventPriceManipulation, domain.SeverityCritical, map[string]any{
			"reason":         "total_mismatch",
			"order_id":       order.ID.String(),
			"stored_total":   order.Total.String(),
			"computed_total": quote.Total.String(),
			"delta":          quote.Total.Sub(order.Total).Abs().String(),
		})
		return Quote{}, fmt.Errorf("order %s: total %s != %s: %w", order.ID, order.Total, quote.Total, domain.ErrTotalMismatch)
	}

	return quote, nil
}

func (v *Verifier) currentPrice(ctx context.Context, line domain.OrderLine) (string, decimal.Decimal, error) {
	var (
		title  string
		price  domain.Money
		active bool
		err    error
	)

	switch line.ItemType {
	case domain.ItemTypeCourse:
		var c domain.Course
		c, err = v.catalog.Course(ctx, line.ItemID)
		title, price, active = c.Title, c.Price, c.Active
	default:
		var p domain.Product
		p, err = v.catalog.Product(ctx, line.ItemID)
		title, price, active = p.Name, p.Price, p.Active
	}

	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", decimal.Zero, fmt.Errorf("%s %s: %w", line.ItemType, line.ItemID, domain.ErrItemUnavailable)
		}
		return "", decimal.Zero, fmt.Errorf("catalog %s %s: %w", line.ItemType, line.ItemID, err)
	}

	if !active {
		v.log.Warn("inactive catalog item in order", "method", "Verifier.Verify", "item_id", line.ItemID, "item_type", line.ItemType)
		return "", decimal.Zero, fmt.Errorf("%s %s inactive: %w", line.ItemType, line.ItemID, domain.ErrItemUnavailable)
	}

	return title, price.Amount, nil
}

func mismatchDetails(m priceMismatch, _ int) map[string]any {
	return map[string]any{
		"item_id":        m.line.ItemID.String(),
		"item_type":      string(m.line.ItemType),
		"snapshot_price": m.line.UnitPrice.String(),
		"current_price":  m.current.String(),
		"delta":          m.current.Sub(m.line.UnitPrice).Abs().String(),
	}
}
