// Package memory keeps every store in process memory. Conditional writes are
// atomic under a single mutex, mirroring the guarantees of the postgres repositories.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
	"github.com/samber/lo"
)

var (
	_ port.OrderRepository         = (*Store)(nil)
	_ port.PaymentRepository       = (*Store)(nil)
	_ port.AccessGrantRepository   = (*Store)(nil)
	_ port.SecurityEventRepository = (*Store)(nil)
)

type Store struct {
	mu sync.Mutex

	now func() time.Time

	orders   map[uuid.UUID]domain.Order
	numbers  map[string]uuid.UUID
	payments map[uuid.UUID]domain.PaymentRecord
	grants   map[uuid.UUID]domain.AccessGrant
	events   []domain.SecurityEvent
}

func NewStore() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		orders:   make(map[uuid.UUID]domain.Order),
		numbers:  make(map[string]uuid.UUID),
		payments: make(map[uuid.UUID]domain.PaymentRecord),
		grants:   make(map[uuid.UUID]domain.AccessGrant),
	}
}

func (s *Store) GetOrder(_ context.Context, orderID uuid.UUID) (domain.Order, error) {
	if orderID == uuid.Nil {
		return domain.Order{}, fmt.Errorf("orderID is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("GetOrder: %w", domain.ErrOrderNotFound)
	}

	if err := order.CheckTotals(); err != nil {
		return domain.Order{}, fmt.Errorf("order[%s].CheckTotals: %w: %w", orderID, domain.ErrPersistence, err)
	}

	return cloneOrder(order), nil
}

func (s *Store) InsertOrder(_ context.Context, order domain.Order) (uuid.UUID, error) {
	if len(order.Lines) == 0 {
		return uuid.Nil, errors.New("no lines in order")
	}

	if err := order.CheckTotals(); err != nil {
		return uuid.Nil, fmt.Errorf("order.CheckTotals: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.numbers[order.Number]; taken {
		return uuid.Nil, fmt.Errorf("InsertOrder: %w: number %s taken", domain.ErrConflict, order.Number)
	}

	now := s.now()

	order = cloneOrder(order)
	order.ID = uuid.New()
	order.Status = domain.OrderStatusPending
	order.PaymentIntentID = ""
	order.CreatedAt = now
	order.UpdatedAt = now
	order.PaidAt = nil

	s.orders[order.ID] = order
	s.numbers[order.Number] = order.ID

	return order.ID, nil
}

func (s *Store) AttachIntent(_ context.Context, orderID uuid.UUID, prevIntentID string, record domain.PaymentRecord) (uuid.UUID, error) {
	if orderID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("orderID is empty")
	}

	if record.PreferenceID == "" {
		return uuid.Nil, fmt.Errorf("record.PreferenceID is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok || !order.Status.Payable() || order.PaymentIntentID != prevIntentID {
		return uuid.Nil, fmt.Errorf("AttachIntent: %w: order changed concurrently", domain.ErrConflict)
	}

	record.OrderID = &orderID
	paymentID, err := s.insertPaymentLocked(record)
	if err != nil {
		return uuid.Nil, err
	}

	order.Status = domain.OrderStatusPendingPayment
	order.PaymentIntentID = record.PreferenceID
	order.UpdatedAt = s.now()
	s.orders[orderID] = order

	return paymentID, nil
}

func (s *Store) MarkOrderPaid(_ context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok || !order.Status.Payable() {
		return false, nil
	}

	order.Status = domain.OrderStatusPaid
	order.PaidAt = lo.ToPtr(paidAt)
	order.UpdatedAt = s.now()
	s.orders[orderID] = order

	return true, nil
}

func (s *Store) ReopenOrder(_ context.Context, orderID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok || order.Status != domain.OrderStatusPendingPayment {
		return false, nil
	}

	order.Status = domain.OrderStatusPending
	order.UpdatedAt = s.now()
	s.orders[orderID] = order

	return true, nil
}

// SetOrderStatus is an administrative override used by tests and local tooling.
func (s *Store) SetOrderStatus(orderID uuid.UUID, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}

	order.Status = status
	s.orders[orderID] = order

	return nil
}

func (s *Store) GetPaymentByGatewayID(_ context.Context, gatewayPaymentID string) (domain.PaymentRecord, error) {
	return s.findPayment(func(p domain.PaymentRecord) bool {
		return gatewayPaymentID != "" && p.GatewayPaymentID == gatewayPaymentID
	})
}

func (s *Store) GetPaymentByPreferenceID(_ context.Context, preferenceID string) (domain.PaymentRecord, error) {
	return s.findPayment(func(p domain.PaymentRecord) bool {
		return preferenceID != "" && p.PreferenceID == preferenceID
	})
}

func (s *Store) GetLatestPaymentByOrderID(_ context.Context, orderID uuid.UUID) (domain.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		latest domain.PaymentRecord
		found  bool
	)

	for _, p := range s.payments {
		if p.OrderID == nil || *p.OrderID != orderID {
			continue
		}
		if !found || p.CreatedAt.After(latest.CreatedAt) {
			latest, found = p, true
		}
	}

	if !found {
		return domain.PaymentRecord{}, fmt.Errorf("GetLatestPaymentByOrderID: %w", domain.ErrNotFound)
	}

	return latest, nil
}

func (s *Store) InsertPayment(_ context.Context, record domain.PaymentRecord) (uuid.UUID, error) {
	if record.PreferenceID == "" && record.GatewayPaymentID == "" {
		return uuid.Nil, errors.New("record has neither preference nor gateway payment id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertPaymentLocked(record)
}

func (s *Store) UpdatePayment(_ context.Context, record domain.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.payments[record.ID]
	if !ok {
		return fmt.Errorf("UpdatePayment: %w", domain.ErrNotFound)
	}

	if s.keyTakenLocked(record.ID, record.PreferenceID, record.GatewayPaymentID) {
		return fmt.Errorf("UpdatePayment: %w", domain.ErrConflict)
	}

	if record.OrderID != nil {
		stored.OrderID = record.OrderID
	}
	stored.PreferenceID = lo.CoalesceOrEmpty(record.PreferenceID, stored.PreferenceID)
	stored.GatewayPaymentID = lo.CoalesceOrEmpty(record.GatewayPaymentID, stored.GatewayPaymentID)
	stored.Status = record.Status
	stored.Amount = record.Amount
	stored.Payload = slices.Clone(record.Payload)
	if record.ApprovedAt != nil {
		stored.ApprovedAt = record.ApprovedAt
	}
	stored.UpdatedAt = s.now()

	s.payments[record.ID] = stored

	return nil
}

func (s *Store) insertPaymentLocked(record domain.PaymentRecord) (uuid.UUID, error) {
	if s.keyTakenLocked(uuid.Nil, record.PreferenceID, record.GatewayPaymentID) {
		return uuid.Nil, fmt.Errorf("InsertPayment: %w", domain.ErrConflict)
	}

	now := s.now()

	record.ID = uuid.New()
	record.Status = lo.CoalesceOrEmpty(record.Status, domain.PaymentStatusPending)
	record.Payload = slices.Clone(record.Payload)
	record.CreatedAt = now
	record.UpdatedAt = now

	s.payments[record.ID] = record

	return record.ID, nil
}

// keyTakenLocked emulates the unique constraints on preference and gateway payment ids.
func (s *Store) keyTakenLocked(self uuid.UUID, preferenceID, gatewayPaymentID string) bool {
	for id, p := range s.payments {
		if id == self {
			continue
		}
		if preferenceID != "" && p.PreferenceID == preferenceID {
			return true
		}
		if gatewayPaymentID != "" && p.GatewayPaymentID == gatewayPaymentID {
			return true
		}
	}
	return false
}

func (s *Store) findPayment(match func(domain.PaymentRecord) bool) (domain.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if match(p) {
			return p, nil
		}
	}

	return domain.PaymentRecord{}, domain.ErrNotFound
}

// Payments returns all payment records, oldest first.
func (s *Store) Payments() []domain.PaymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := lo.Values(s.payments)
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result
}

func (s *Store) InsertGrant(_ context.Context, grant domain.AccessGrant) (domain.AccessGrant, bool, error) {
	if grant.Token == "" {
		return domain.AccessGrant{}, false, fmt.Errorf("token is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.grants {
		if g.OrderID == grant.OrderID && g.CourseID == grant.CourseID {
			return g, false, nil
		}
		if g.Token == grant.Token {
			return domain.AccessGrant{}, false, fmt.Errorf("InsertGrant: %w: token", domain.ErrConflict)
		}
	}

	grant.ID = uuid.New()
	grant.Active = true
	grant.CreatedAt = s.now()
	grant.Progress = 0
	grant.Completed = false
	grant.LastAccessAt = nil

	s.grants[grant.ID] = grant

	return grant, true, nil
}

func (s *Store) GetGrantByToken(_ context.Context, token string) (domain.AccessGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.grants {
		if token != "" && g.Token == token {
			return g, nil
		}
	}

	return domain.AccessGrant{}, fmt.Errorf("GetGrantByToken: %w", domain.ErrNotFound)
}

func (s *Store) ListGrantsByEmail(_ context.Context, email string) ([]domain.AccessGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := lo.Filter(lo.Values(s.grants), func(g domain.AccessGrant, _ int) bool {
		return g.Email == email
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (s *Store) TouchGrant(_ context.Context, grantID uuid.UUID, at time.Time) error {
	return s.updateGrant(grantID, func(g *domain.AccessGrant) {
		g.LastAccessAt = lo.ToPtr(at)
	})
}

func (s *Store) UpdateProgress(_ context.Context, grantID uuid.UUID, progress int, completed bool) error {
	return s.updateGrant(grantID, func(g *domain.AccessGrant) {
		g.Progress = domain.ClampProgress(progress)
		g.Completed = completed
	})
}

// DeactivateGrant is an administrative override used by tests and local tooling.
func (s *Store) DeactivateGrant(grantID uuid.UUID) error {
	return s.updateGrant(grantID, func(g *domain.AccessGrant) {
		g.Active = false
	})
}

func (s *Store) updateGrant(grantID uuid.UUID, fn func(g *domain.AccessGrant)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.grants[grantID]
	if !ok {
		return domain.ErrNotFound
	}

	fn(&g)
	s.grants[grantID] = g

	return nil
}

func (s *Store) InsertSecurityEvent(_ context.Context, event domain.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}

	s.events = append(s.events, event)

	return nil
}

func (s *Store) SearchSecurityEvents(_ context.Context, filter domain.SecurityEventFilter) ([]domain.SecurityEvent, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter.Validate: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.SecurityEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if len(filter.Kinds) > 0 && !lo.Contains(filter.Kinds, e.Kind) {
			continue
		}
		if len(filter.Severities) > 0 && !lo.Contains(filter.Severities, e.Severity) {
			continue
		}
		if filter.CreatedAt != nil && !filter.CreatedAt.Contains(e.CreatedAt) {
			continue
		}
		result = append(result, e)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}

	return result, nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Lines = slices.Clone(o.Lines)
	return o
}
