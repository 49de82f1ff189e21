package pricing_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/catalog"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/pricing"
	"github.com/nikolayk812/artesano/internal/repository/memory"
	"github.com/nikolayk812/artesano/internal/security"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	breadID    = uuid.MustParse("00000000-0000-0000-0000-00000000b001")
	cakeID     = uuid.MustParse("00000000-0000-0000-0000-00000000b002")
	retiredID  = uuid.MustParse("00000000-0000-0000-0000-00000000b003")
	courseID   = uuid.MustParse("00000000-0000-0000-0000-00000000c001")
	discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func testCatalog() *catalog.Static {
	ars := func(v int64) domain.Money { return domain.NewMoney(decimal.NewFromInt(v), domain.ARS) }

	return catalog.NewStatic(
		[]domain.Product{
			{ID: breadID, Name: "Pan Artesanal", Price: ars(100), Active: true},
			{ID: cakeID, Name: "Torta Artesanal", Price: ars(450), Active: true},
			{ID: retiredID, Name: "Budín", Price: ars(80), Active: false},
		},
		[]domain.Course{
			{ID: courseID, Title: "Panadería Básica", Price: ars(2500), Active: true},
		},
	)
}

func line(id uuid.UUID, itemType domain.ItemType, price string, qty int) domain.OrderLine {
	unit := decimal.RequireFromString(price)
	return domain.OrderLine{
		ItemID:    id,
		ItemType:  itemType,
		Quantity:  qty,
		UnitPrice: unit,
		Subtotal:  unit.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func orderOf(shipping string, lines ...domain.OrderLine) domain.Order {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal)
	}
	ship := decimal.RequireFromString(shipping)

	return domain.Order{
		ID:           uuid.New(),
		Lines:        lines,
		Subtotal:     subtotal,
		ShippingCost: ship,
		Total:        subtotal.Add(ship),
		Currency:     domain.ARS,
		Status:       domain.OrderStatusPending,
	}
}

func TestVerifierVerify(t *testing.T) {
	tests := []struct {
		name        string
		order       func() domain.Order
		wantTotal   string
		wantErrorIs error
		wantEvents  int
		wantReason  string
	}{
		{
			name:      "catalog prices unchanged: ok",
			order:     func() domain.Order { return orderOf("10", line(breadID, domain.ItemTypeProduct, "100", 2)) },
			wantTotal: "210",
		},
		{
			name: "products and courses mixed: ok",
			order: func() domain.Order {
				return orderOf("0",
					line(breadID, domain.ItemTypeProduct, "100", 1),
					line(courseID, domain.ItemTypeCourse, "2500", 1),
				)
			},
			wantTotal: "2600",
		},
		{
			name:      "rounding within tolerance: ok",
			order:     func() domain.Order { return orderOf("10", line(breadID, domain.ItemTypeProduct, "99.995", 2)) },
			wantTotal: "210",
		},
		{
			name:        "snapshot price lowered by client: tamper",
			order:       func() domain.Order { return orderOf("10", line(breadID, domain.ItemTypeProduct, "1", 2)) },
			wantErrorIs: domain.ErrPriceChanged,
			wantEvents:  1,
			wantReason:  "price_mismatch",
		},
		{
			name: "several lines tampered: still one event",
			order: func() domain.Order {
				return orderOf("10",
					line(breadID, domain.ItemTypeProduct, "1", 2),
					line(cakeID, domain.ItemTypeProduct, "2", 1),
				)
			},
			wantErrorIs: domain.ErrPriceChanged,
			wantEvents:  1,
			wantReason:  "price_mismatch",
		},
		{
			name: "stored total tampered: total mismatch",
			order: func() domain.Order {
				o := orderOf("10", line(breadID, domain.ItemTypeProduct, "100", 2))
				o.Total = decimal.NewFromInt(5)
				return o
			},
			wantErrorIs: domain.ErrTotalMismatch,
			wantEvents:  1,
			wantReason:  "total_mismatch",
		},
		{
			name:        "item deleted from catalog: unavailable",
			order:       func() domain.Order { return orderOf("10", line(uuid.New(), domain.ItemTypeProduct, "100", 1)) },
			wantErrorIs: domain.ErrItemUnavailable,
		},
		{
			name:        "item deactivated: unavailable",
			order:       func() domain.Order { return orderOf("10", line(retiredID, domain.ItemTypeProduct, "80", 1)) },
			wantErrorIs: domain.ErrItemUnavailable,
		},
		{
			name:        "zero quantity: validation",
			order:       func() domain.Order { return orderOf("10", line(breadID, domain.ItemTypeProduct, "100", 0)) },
			wantErrorIs: domain.ErrValidation,
		},
		{
			name:        "no lines: validation",
			order:       func() domain.Order { return orderOf("10") },
			wantErrorIs: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := t.Context()
			store := memory.NewStore()

			verifier, err := pricing.NewVerifier(testCatalog(), security.NewLogger(store, discardLog), pricing.DefaultTolerance, discardLog)
			require.NoError(t, err)

			quote, err := verifier.Verify(ctx, tt.order())

			events, searchErr := store.SearchSecurityEvents(ctx, domain.SecurityEventFilter{})
			require.NoError(t, searchErr)
			require.Len(t, events, tt.wantEvents)

			if tt.wantErrorIs != nil {
				require.ErrorIs(t, err, tt.wantErrorIs)
				if tt.wantEvents > 0 {
					assert.Equal(t, domain.EventPriceManipulation, events[0].Kind)
					assert.Equal(t, domain.SeverityCritical, events[0].Severity)
					assert.Equal(t, tt.wantReason, events[0].Details["reason"])
				}
				return
			}
			require.NoError(t, err)

			assert.True(t, decimal.RequireFromString(tt.wantTotal).Equal(quote.Total), "total %s", quote.Total)
			assert.True(t, quote.Subtotal.Add(quote.Shipping).Equal(quote.Total))
		})
	}
}

func TestVerifierUsesCatalogPrices(t *testing.T) {
	verifier, err := pricing.NewVerifier(testCatalog(), security.NewLogger(nil, discardLog), pricing.DefaultTolerance, discardLog)
	require.NoError(t, err)

	quote, err := verifier.Verify(t.Context(), orderOf("10", line(breadID, domain.ItemTypeProduct, "99.995", 2)))
	require.NoError(t, err)

	require.Len(t, quote.Lines, 1)
	assert.Equal(t, "Pan Artesanal", quote.Lines[0].Title)
	assert.True(t, decimal.NewFromInt(100).Equal(quote.Lines[0].UnitPrice))
	assert.True(t, decimal.NewFromInt(200).Equal(quote.Lines[0].Subtotal))
}

func TestNewVerifier(t *testing.T) {
	recorder := security.NewLogger(nil, discardLog)

	_, err := pricing.NewVerifier(nil, recorder, pricing.DefaultTolerance, nil)
	require.EqualError(t, err, "catalog is nil")

	_, err = pricing.NewVerifier(testCatalog(), recorder, decimal.NewFromInt(-1), nil)
	require.EqualError(t, err, "tolerance -1 is negative")
}
