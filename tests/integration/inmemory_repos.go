package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"payment-reconciler/internal/core/domain"

	"github.com/google/uuid"
)

// --- In-Memory Payment Repo ---

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: make(map[string]*domain.Payment)}
}

func (r *inMemoryPaymentRepo) GetByPaymentID(_ context.Context, paymentID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[paymentID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPaymentRepo) Upsert(_ context.Context, p *domain.Payment) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.payments[p.PaymentID]
	cp := *p
	r.payments[p.PaymentID] = &cp
	return !exists, nil
}

func (r *inMemoryPaymentRepo) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.payments)), nil
}

func (r *inMemoryPaymentRepo) CountByGatewayStatus(_ context.Context) (map[domain.GatewayStatus]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.GatewayStatus]int64)
	for _, p := range r.payments {
		counts[p.GatewayStatus]++
	}
	return counts, nil
}

// --- In-Memory Failed Event Repo ---

type inMemoryFailedEventRepo struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*domain.FailedEvent
}

func newInMemoryFailedEventRepo() *inMemoryFailedEventRepo {
	return &inMemoryFailedEventRepo{events: make(map[uuid.UUID]*domain.FailedEvent)}
}

func (r *inMemoryFailedEventRepo) GetActiveByPaymentID(_ context.Context, paymentID string) (*domain.FailedEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.events {
		if e.PaymentID == paymentID && !e.Status.IsTerminal() {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryFailedEventRepo) GetLatestByPaymentID(_ context.Context, paymentID string) (*domain.FailedEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.FailedEvent
	for _, e := range r.events {
		if e.PaymentID != paymentID {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *inMemoryFailedEventRepo) Create(_ context.Context, e *domain.FailedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[e.ID]; exists {
		return fmt.Errorf("failed event %s already exists", e.ID)
	}
	cp := *e
	r.events[e.ID] = &cp
	return nil
}

func (r *inMemoryFailedEventRepo) Update(_ context.Context, e *domain.FailedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[e.ID]; !exists {
		return fmt.Errorf("failed event %s not found", e.ID)
	}
	cp := *e
	cp.UpdatedAt = time.Now().UTC()
	r.events[e.ID] = &cp
	return nil
}

func (r *inMemoryFailedEventRepo) ListDue(_ context.Context, now time.Time, limit int) ([]domain.FailedEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var due []domain.FailedEvent
	for _, e := range r.events {
		if e.Status == domain.FailedEventStatusPending && e.NextRetryAt != nil && !e.NextRetryAt.After(now) {
			due = append(due, *e)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRetryAt.Before(*due[j].NextRetryAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *inMemoryFailedEventRepo) ListByStatus(_ context.Context, statuses ...domain.FailedEventStatus) ([]domain.FailedEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	want := make(map[domain.FailedEventStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var out []domain.FailedEvent
	for _, e := range r.events {
		if want[e.Status] {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryFailedEventRepo) CountByStatus(_ context.Context, status domain.FailedEventStatus) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, e := range r.events {
		if e.Status == status {
			n++
		}
	}
	return n, nil
}

// --- In-Memory Order Store ---

type inMemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[int64]*domain.Order
}

func newInMemoryOrderStore() *inMemoryOrderStore {
	return &inMemoryOrderStore{orders: make(map[int64]*domain.Order)}
}

func (r *inMemoryOrderStore) seed(id int64, status domain.OrderStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	r.orders[id] = &domain.Order{ID: id, Status: status, CreatedAt: now, UpdatedAt: now}
}

func (r *inMemoryOrderStore) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *inMemoryOrderStore) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %d not found", id)
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryOrderStore) status(id int64) domain.OrderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if o, ok := r.orders[id]; ok {
		return o.Status
	}
	return ""
}
