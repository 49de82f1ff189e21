package repository_test

import (
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/currency"
)

func randomOrder() domain.Order {
	subtotal := decimal.Zero

	var lines []domain.OrderLine
	for i := 0; i < gofakeit.Number(1, 5); i++ {
		line := randomOrderLine()
		subtotal = subtotal.Add(line.Subtotal)
		lines = append(lines, line)
	}

	shipping := decimal.NewFromFloat(gofakeit.Price(0, 20)).Round(2)

	return domain.Order{
		Number:          fmt.Sprintf("EA-%d", gofakeit.Int64()),
		CustomerName:    gofakeit.Name(),
		CustomerEmail:   gofakeit.Email(),
		CustomerPhone:   gofakeit.Phone(),
		Lines:           lines,
		Subtotal:        subtotal,
		ShippingCost:    shipping,
		Total:           subtotal.Add(shipping),
		Currency:        domain.ARS,
		Status:          domain.OrderStatusPending,
		PaymentMethod:   "mercadopago",
		DeliveryAddress: gofakeit.Street(),
		City:            gofakeit.City(),
		PostalCode:      gofakeit.Zip(),
		Notes:           gofakeit.Sentence(5),
	}
}

func randomOrderLine() domain.OrderLine {
	unitPrice := decimal.NewFromFloat(gofakeit.Price(1, 100)).Round(2)
	quantity := gofakeit.Number(1, 3)

	return domain.OrderLine{
		ItemID:    uuid.MustParse(gofakeit.UUID()),
		ItemType:  domain.ItemType(gofakeit.RandomString([]string{"product", "course"})),
		Name:      gofakeit.ProductName(),
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Subtotal:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

func randomPreferenceID() string {
	return fmt.Sprintf("%d-%s", gofakeit.Number(100000, 999999), gofakeit.UUID())
}

func randomGatewayPaymentID() string {
	return fmt.Sprintf("%d", gofakeit.Number(10000000, 99999999))
}

var currencyComparer = cmp.Comparer(func(x, y currency.Unit) bool {
	return x.String() == y.String()
})

func assertOrder(t *testing.T, expected, actual domain.Order) {
	t.Helper()

	opts := cmp.Options{
		cmpopts.IgnoreFields(domain.Order{}, "ID", "CreatedAt", "UpdatedAt"),
		cmpopts.EquateEmpty(),
		currencyComparer,
	}

	diff := cmp.Diff(expected, actual, opts)
	assert.Empty(t, diff)

	assert.NotEqual(t, uuid.Nil, actual.ID)
	assert.False(t, actual.CreatedAt.IsZero())
	assert.False(t, actual.UpdatedAt.IsZero())
}
