package catalog_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/catalog"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSeed(t *testing.T) {
	products, courses, err := catalog.DefaultSeed()
	require.NoError(t, err)

	assert.Len(t, products, 6)
	require.Len(t, courses, 3)

	basic := courses[0]
	assert.Equal(t, "Panadería Básica - Primeros Pasos", basic.Title)
	assert.True(t, decimal.NewFromInt(2500).Equal(basic.Price.Amount))
	assert.Equal(t, "ARS", basic.Price.Currency.String())
	require.Len(t, basic.Lessons, 5)
	for i, l := range basic.Lessons {
		assert.Equal(t, i+1, l.Position)
	}
}

func TestParseSeed(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantError string
	}{
		{
			name: "inactive product: ok",
			yaml: `
currency: ARS
products:
  - {id: 11111111-1111-1111-1111-111111111111, name: Pan, price: "10.50", inactive: true}
`,
		},
		{
			name:      "unknown currency: error",
			yaml:      "currency: XXZ\n",
			wantError: "currency[XXZ] is not valid: currency: tag is not a recognized currency",
		},
		{
			name: "product without id: error",
			yaml: `
currency: ARS
products:
  - {name: Pan, price: "10"}
`,
			wantError: `product "Pan": id is empty`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, _, err := catalog.ParseSeed([]byte(tt.yaml))
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			require.Len(t, products, 1)
			assert.False(t, products[0].Active)
		})
	}
}

func TestSelect(t *testing.T) {
	ctx := t.Context()

	seed, err := catalog.Select(catalog.KindSeed, nil)
	require.NoError(t, err)

	product, err := seed.Product(ctx, uuid.MustParse("6f1c2a10-0001-4c3e-9a51-7b2d1e000002"))
	require.NoError(t, err)
	assert.Equal(t, "Pan Artesanal", product.Name)

	_, err = seed.Course(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = catalog.Select(catalog.KindStore, nil)
	require.EqualError(t, err, "durable catalog is nil")

	static := catalog.NewStatic(nil, nil)
	selected, err := catalog.Select(catalog.KindStore, static)
	require.NoError(t, err)
	assert.Same(t, static, selected)

	_, err = catalog.ToKind("cache")
	require.EqualError(t, err, `invalid catalog source "cache"`)
}
