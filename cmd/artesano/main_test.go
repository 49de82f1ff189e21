package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nikolayk812/artesano/internal/config"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestBuildFilter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	filter, err := buildFilter(
		[]string{"price_manipulation", "invalid_webhook", "price_manipulation"},
		[]string{"critical"},
		24*time.Hour, 10, now)
	require.NoError(t, err)

	assert.Equal(t, []domain.SecurityEventKind{domain.EventPriceManipulation, domain.EventInvalidWebhook}, filter.Kinds)
	assert.Equal(t, []domain.Severity{domain.SeverityCritical}, filter.Severities)
	assert.Equal(t, 10, filter.Limit)
	require.NotNil(t, filter.CreatedAt)
	assert.Equal(t, now.Add(-24*time.Hour), *filter.CreatedAt.After)
	assert.Nil(t, filter.CreatedAt.Before)

	_, err = buildFilter([]string{"spam"}, nil, 0, 10, now)
	require.EqualError(t, err, `--kind "spam": invalid security event kind`)

	_, err = buildFilter(nil, []string{"urgent"}, 0, 10, now)
	require.EqualError(t, err, `--severity "urgent": invalid severity`)

	_, err = buildFilter(nil, nil, 0, 5000, now)
	require.EqualError(t, err, "filter.Validate: limit exceeds 1000")
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:           "development",
		NodeID:           1,
		StoreDriver:      config.StoreMemory,
		CatalogSource:    "seed",
		ClientURL:        "https://elartesano.test",
		WebhookBaseURL:   "https://api.elartesano.test",
		PaymentIntentTTL: 24 * time.Hour,
		AccessGrantTTL:   365 * 24 * time.Hour,
		MaxInstallments:  12,
		PriceTolerance:   "0.01",
		GatewayTimeout:   time.Second,
		NotifyTimeout:    time.Second,
		MP: config.MercadoPago{
			BaseURL:     "https://api.mercadopago.test",
			AccessToken: "TEST-token",
		},
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig()

	s, err := openStores(t.Context(), cfg)
	require.NoError(t, err)
	defer s.Close()

	app, err := wire(cfg, s, discardLog)
	require.NoError(t, err)
	defer app.close()

	assert.NotNil(t, app.services.Orders)
	assert.NotNil(t, app.services.Checkout)
	assert.NotNil(t, app.services.Webhooks)
	assert.NotNil(t, app.services.Reconciler)
	assert.NotNil(t, app.services.Courses)
	assert.NotNil(t, app.services.Security)
}

func TestWireRequiresGatewayToken(t *testing.T) {
	cfg := testConfig()
	cfg.MP.AccessToken = ""

	s, err := openStores(t.Context(), cfg)
	require.NoError(t, err)
	defer s.Close()

	_, err = wire(cfg, s, discardLog)
	require.ErrorContains(t, err, "mercadopago.NewClient")
}
