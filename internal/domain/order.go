package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type ItemType string

const (
	ItemTypeProduct ItemType = "product"
	ItemTypeCourse  ItemType = "course"
)

func ToItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case ItemTypeProduct, ItemTypeCourse:
		return ItemType(s), nil
	case "":
		return ItemTypeProduct, nil
	}
	return "", errors.New("invalid item type")
}

type Order struct {
	ID     uuid.UUID
	Number string

	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	Lines        []OrderLine
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
	Currency     currency.Unit

	Status        OrderStatus
	PaymentMethod string

	// PaymentIntentID is the gateway preference id of the latest intent.
	PaymentIntentID string

	DeliveryAddress string
	City            string
	PostalCode      string
	Notes           string

	CreatedAt time.Time
	UpdatedAt time.Time
	PaidAt    *time.Time
}

// OrderLine is a snapshot taken at order creation; UnitPrice is not trusted at payment time.
type OrderLine struct {
	ItemID    uuid.UUID
	ItemType  ItemType
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// CheckTotals verifies subtotal == Σ line subtotals, each line subtotal == price × qty
// and total == subtotal + shipping.
func (o Order) CheckTotals() error {
	sum := decimal.Zero
	for i, line := range o.Lines {
		if !line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Equal(line.Subtotal) {
			return fmt.Errorf("line[%d] subtotal %s != %s x %d", i, line.Subtotal, line.UnitPrice, line.Quantity)
		}
		sum = sum.Add(line.Subtotal)
	}

	if !sum.Equal(o.Subtotal) {
		return fmt.Errorf("subtotal %s != sum of lines %s", o.Subtotal, sum)
	}

	if !o.Subtotal.Add(o.ShippingCost).Equal(o.Total) {
		return fmt.Errorf("total %s != subtotal %s + shipping %s", o.Total, o.Subtotal, o.ShippingCost)
	}

	return nil
}

func (o Order) CourseLines() []OrderLine {
	var result []OrderLine
	for _, line := range o.Lines {
		if line.ItemType == ItemTypeCourse {
			result = append(result, line)
		}
	}
	return result
}
