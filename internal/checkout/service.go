// Package checkout opens payment intents (gateway preferences) for verified orders.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
	"github.com/nikolayk812/artesano/internal/pricing"
	"github.com/shopspring/decimal"
)

const shippingItemID = "envio"

type Verifier interface {
	Verify(ctx context.Context, order domain.Order) (pricing.Quote, error)
}

type Config struct {
	// IntentTTL is both the gateway expiration window and the freshness window of a pending intent.
	IntentTTL       time.Duration
	MaxInstallments int
	GatewayTimeout  time.Duration

	SuccessURL      string
	FailureURL      string
	PendingURL      string
	NotificationURL string
}

func (c Config) Validate() error {
	if c.IntentTTL <= 0 {
		return errors.New("IntentTTL must be positive")
	}
	if c.MaxInstallments <= 0 {
		return errors.New("MaxInstallments must be positive")
	}
	if c.GatewayTimeout <= 0 {
		return errors.New("GatewayTimeout must be positive")
	}
	for name, raw := range map[string]string{
		"SuccessURL":      c.SuccessURL,
		"FailureURL":      c.FailureURL,
		"PendingURL":      c.PendingURL,
		"NotificationURL": c.NotificationURL,
	} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

type Service struct {
	orders   port.OrderRepository
	payments port.PaymentRepository
	verifier Verifier
	gateway  port.PaymentGateway
	security port.SecurityRecorder
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	orders port.OrderRepository,
	payments port.PaymentRepository,
	verifier Verifier,
	gateway port.PaymentGateway,
	security port.SecurityRecorder,
	cfg Config,
	log *slog.Logger,
	opts ...Option,
) (*Service, error) {
	if orders == nil || payments == nil || verifier == nil || gateway == nil || security == nil {
		return nil, errors.New("nil dependency")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cfg.Validate: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		orders:   orders,
		payments: payments,
		verifier: verifier,
		gateway:  gateway,
		security: security,
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

type CreateIntentRequest struct {
	OrderID uuid.UUID
	// Payer overrides the order contact when set.
	Payer *domain.Payer
}

type Intent struct {
	OrderID      uuid.UUID
	PaymentID    uuid.UUID
	PreferenceID string
	RedirectURL  string
	Total        decimal.Decimal
	ExpiresAt    time.Time
}

func (s *Service) CreateIntent(ctx context.Context, req CreateIntentRequest) (Intent, error) {
	if req.OrderID == uuid.Nil {
		return Intent{}, domain.Validationf("order id is required")
	}

	order, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.security.Record(ctx, domain.EventOrderNotFound, domain.SeverityLow, map[string]any{
				"order_id": req.OrderID.String(),
			})
		}
		return Intent{}, fmt.Errorf("orders.GetOrder: %w", err)
	}

	if !order.Status.Payable() {
		s.security.Record(ctx, domain.EventDuplicatePayment, domain.SeverityMedium, map[string]any{
			"reason":   "order_not_payable",
			"order_id": order.ID.String(),
			"status":   string(order.Status),
		})
		return Intent{}, fmt.Errorf("order %s is %s: %w", order.ID, order.Status, domain.ErrOrderNotPayable)
	}

	quote, err := s.verifier.Verify(ctx, order)
	if err != nil {
		return Intent{}, fmt.Errorf("verifier.Verify: %w", err)
	}

	now := s.now()

	if err := s.ensureNoActiveIntent(ctx, order, now); err != nil {
		return Intent{}, err
	}

	prefReq, err := s.buildRequest(order, quote, req.Payer, now)
	if err != nil {
		return Intent{}, fmt.Errorf("buildRequest: %w", err)
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	pref, err := s.gateway.CreatePreference(gwCtx, prefReq)
	if err != nil {
		return Intent{}, fmt.Errorf("gateway.CreatePreference: %w: %w", domain.ErrUpstream, err)
	}

	paymentID, err := s.orders.AttachIntent(ctx, order.ID, order.PaymentIntentID, domain.PaymentRecord{
		PreferenceID: pref.ID,
		Status:       domain.PaymentStatusPending,
		Amount:       quote.Total,
		Payload:      pref.Raw,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.recordDuplicate(ctx, order, "concurrent_intent", pref.ID)
			return Intent{}, fmt.Errorf("orders.AttachIntent: %w", domain.ErrDuplicateIntent)
		}
		return Intent{}, fmt.Errorf("orders.AttachIntent: %w: %w", domain.ErrPersistence, err)
	}

	s.log.Info("payment intent created",
		"order_id", order.ID, "preference_id", pref.ID, "total", quote.Total.StringFixed(2))

	return Intent{
		OrderID:      order.ID,
		PaymentID:    paymentID,
		PreferenceID: pref.ID,
		RedirectURL:  pref.RedirectURL,
		Total:        quote.Total,
		ExpiresAt:    prefReq.ExpiresTo,
	}, nil
}

func (s *Service) ensureNoActiveIntent(ctx context.Context, order domain.Order, now time.Time) error {
	if order.PaymentIntentID == "" {
		return nil
	}

	current, err := s.payments.GetPaymentByPreferenceID(ctx, order.PaymentIntentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("payments.GetPaymentByPreferenceID: %w", err)
	}

	if current.IsActiveIntent(now, s.cfg.IntentTTL) {
		s.recordDuplicate(ctx, order, "active_intent", current.PreferenceID)
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrDuplicateIntent)
	}

	return nil
}

func (s *Service) recordDuplicate(ctx context.Context, order domain.Order, reason, preferenceID string) {
	s.security.Record(ctx, domain.EventDuplicatePayment, domain.SeverityHigh, map[string]any{
		"reason":        reason,
		"order_id":      order.ID.String(),
		"preference_id": preferenceID,
	})
}

func (s *Service) buildRequest(order domain.Order, quote pricing.Quote, payer *domain.Payer, now time.Time) (domain.PreferenceRequest, error) {
	items := make([]domain.PreferenceItem, 0, len(quote.Lines)+1)
	for _, l := range quote.Lines {
		items = append(items, domain.PreferenceItem{
			ID:        l.ItemID.String(),
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}

	if quote.Shipping.IsPositive() {
		items = append(items, domain.PreferenceItem{
			ID:        shippingItemID,
			Title:     "Envío",
			Quantity:  1,
			UnitPrice: quote.Shipping,
		})
	}

	p := domain.Payer{Name: order.CustomerName, Email: order.CustomerEmail, Phone: order.CustomerPhone}
	if payer != nil {
		p = *payer
	}

	var backURLs domain.BackURLs
	for _, u := range []struct {
		dst  *string
		base string
	}{
		{&backURLs.Success, s.cfg.SuccessURL},
		{&backURLs.Failure, s.cfg.FailureURL},
		{&backURLs.Pending, s.cfg.PendingURL},
	} {
		withOrder, err := withOrderID(u.base, order.ID)
		if err != nil {
			return domain.PreferenceRequest{}, err
		}
		*u.dst = withOrder
	}

	return domain.PreferenceRequest{
		Items:             items,
		Payer:             p,
		BackURLs:          backURLs,
		NotificationURL:   s.cfg.NotificationURL,
		ExternalReference: order.ID.String(),
		ExpiresFrom:       now,
		ExpiresTo:         now.Add(s.cfg.IntentTTL),
		MaxInstallments:   s.cfg.MaxInstallments,
		Currency:          order.Currency.String(),
	}, nil
}

func withOrderID(base string, orderID uuid.UUID) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("url.Parse[%s]: %w", base, err)
	}

	q := u.Query()
	q.Set("order_id", orderID.String())
	u.RawQuery = q.Encode()

	return u.String(), nil
}
