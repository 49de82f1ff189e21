package memory_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/repository/memory"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStoreOrderLifecycle(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()

	orderID, err := store.InsertOrder(ctx, fakeOrder())
	require.NoError(t, err)

	order, err := store.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)

	first := gofakeit.UUID()
	_, err = store.AttachIntent(ctx, orderID, "", domain.PaymentRecord{PreferenceID: first})
	require.NoError(t, err)

	_, err = store.AttachIntent(ctx, orderID, "", domain.PaymentRecord{PreferenceID: gofakeit.UUID()})
	require.ErrorIs(t, err, domain.ErrConflict)

	second := gofakeit.UUID()
	_, err = store.AttachIntent(ctx, orderID, first, domain.PaymentRecord{PreferenceID: second})
	require.NoError(t, err)

	order, err = store.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, second, order.PaymentIntentID)

	reopened, err := store.ReopenOrder(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, reopened)

	paid, err := store.MarkOrderPaid(ctx, orderID, time.Now())
	require.NoError(t, err)
	assert.True(t, paid)

	paid, err = store.MarkOrderPaid(ctx, orderID, time.Now())
	require.NoError(t, err)
	assert.False(t, paid)

	_, err = store.GetOrder(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()

	orderID, err := store.InsertOrder(ctx, fakeOrder())
	require.NoError(t, err)

	order, err := store.GetOrder(ctx, orderID)
	require.NoError(t, err)
	order.Lines[0].Quantity = 999

	again, err := store.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.NotEqual(t, 999, again.Lines[0].Quantity)
}

func TestStoreMarkOrderPaidConcurrently(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()

	orderID, err := store.InsertOrder(ctx, fakeOrder())
	require.NoError(t, err)

	var (
		wg          sync.WaitGroup
		transitions atomic.Int32
	)

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.MarkOrderPaid(ctx, orderID, time.Now()); ok {
				transitions.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), transitions.Load())
}

func TestStorePaymentUniqueKeys(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()

	gatewayID := gofakeit.UUID()

	id, err := store.InsertPayment(ctx, domain.PaymentRecord{GatewayPaymentID: gatewayID})
	require.NoError(t, err)

	_, err = store.InsertPayment(ctx, domain.PaymentRecord{GatewayPaymentID: gatewayID})
	require.ErrorIs(t, err, domain.ErrConflict)

	preferenceID := gofakeit.UUID()
	err = store.UpdatePayment(ctx, domain.PaymentRecord{
		ID:           id,
		PreferenceID: preferenceID,
		Status:       domain.PaymentStatusApproved,
		Amount:       decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	record, err := store.GetPaymentByPreferenceID(ctx, preferenceID)
	require.NoError(t, err)
	assert.Equal(t, gatewayID, record.GatewayPaymentID)
	assert.Equal(t, domain.PaymentStatusApproved, record.Status)

	_, err = store.GetPaymentByGatewayID(ctx, "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreInsertGrantIdempotent(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()

	orderID, courseID := uuid.New(), uuid.New()

	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := store.InsertGrant(ctx, domain.AccessGrant{
				Email:    "cliente@example.com",
				OrderID:  orderID,
				CourseID: courseID,
				Token:    gofakeit.UUID(),
			})
			assert.NoError(t, err)
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())

	grants, err := store.ListGrantsByEmail(ctx, "cliente@example.com")
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestStoreSearchSecurityEvents(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()

	now := time.Now().UTC()
	require.NoError(t, store.InsertSecurityEvent(ctx, domain.SecurityEvent{
		Kind: domain.EventInvalidWebhook, Severity: domain.SeverityCritical, CreatedAt: now.Add(-time.Hour),
	}))
	require.NoError(t, store.InsertSecurityEvent(ctx, domain.SecurityEvent{
		Kind: domain.EventDuplicatePayment, Severity: domain.SeverityHigh, CreatedAt: now,
	}))

	events, err := store.SearchSecurityEvents(ctx, domain.SecurityEventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventDuplicatePayment, events[0].Kind, "newest first")

	events, err = store.SearchSecurityEvents(ctx, domain.SecurityEventFilter{
		CreatedAt: &domain.TimeRange{Before: lo.ToPtr(now.Add(-time.Minute))},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventInvalidWebhook, events[0].Kind)
}

func fakeOrder() domain.Order {
	return domain.Order{
		Number:        "EA-" + gofakeit.UUID(),
		CustomerName:  gofakeit.Name(),
		CustomerEmail: gofakeit.Email(),
		Lines: []domain.OrderLine{{
			ItemID:    uuid.New(),
			ItemType:  domain.ItemTypeProduct,
			Name:      "Pan de Campo",
			Quantity:  2,
			UnitPrice: decimal.NewFromInt(100),
			Subtotal:  decimal.NewFromInt(200),
		}},
		Subtotal:     decimal.NewFromInt(200),
		ShippingCost: decimal.NewFromInt(10),
		Total:        decimal.NewFromInt(210),
		Currency:     domain.ARS,
	}
}
