package memory

import (
	"context"
	"sync"

	"github.com/felixzhu97/orderflow/internal/inventory/domain"
	"github.com/felixzhu97/orderflow/pkg/apperr"
)

type StockRepository struct {
	*Store[domain.Stock]
}

func NewStockRepository() *StockRepository {
	return &StockRepository{Store: NewStore("stock", Config[domain.Stock]{
		ID:      func(s domain.Stock) string { return s.ProductID },
		Version: func(s domain.Stock) int { return s.Version },
		SetVersion: func(s domain.Stock, v int) domain.Stock {
			s.Version = v
			return s
		},
		Clone: func(s domain.Stock) domain.Stock { return s },
	})}
}

func (r *StockRepository) FindByProductID(ctx context.Context, productID string) (domain.Stock, error) {
	return r.Get(productID)
}

func (r *StockRepository) FindAll(ctx context.Context) ([]domain.Stock, error) {
	return r.All(), nil
}

func (r *StockRepository) Save(ctx context.Context, s domain.Stock) (domain.Stock, error) {
	return r.Store.Save(s)
}

func (r *StockRepository) Exists(ctx context.Context, productID string) (bool, error) {
	return r.Store.Exists(productID)
}

// ReservationRepository tracks stock holds. Reservations have no version
// counter: they are created once and deleted once.
type ReservationRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Reservation
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{items: make(map[string]domain.Reservation)}
}

func (r *ReservationRepository) FindByID(ctx context.Context, id string) (domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.items[id]
	if !ok {
		return domain.Reservation{}, apperr.Newf(apperr.CodeNotFound, "reservation %s not found", id)
	}
	return res, nil
}

func (r *ReservationRepository) Save(ctx context.Context, res domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[res.ID] = res
	return nil
}

func (r *ReservationRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperr.Newf(apperr.CodeNotFound, "reservation %s not found", id)
	}
	delete(r.items, id)
	return nil
}

// Snapshot implements uow.Snapshotter.
func (r *ReservationRepository) Snapshot() func() {
	r.mu.RLock()
	saved := make(map[string]domain.Reservation, len(r.items))
	for k, v := range r.items {
		saved[k] = v
	}
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		r.items = saved
		r.mu.Unlock()
	}
}

// AuditRepository appends audit rows; Snapshot discards rows written inside
// a rolled-back unit of work.
type AuditRepository struct {
	mu            sync.RWMutex
	adjustments   []domain.Adjustment
	discrepancies []domain.Discrepancy
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) RecordAdjustment(ctx context.Context, a domain.Adjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adjustments = append(r.adjustments, a)
	return nil
}

func (r *AuditRepository) RecordDiscrepancy(ctx context.Context, d domain.Discrepancy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discrepancies = append(r.discrepancies, d)
	return nil
}

func (r *AuditRepository) Adjustments() []domain.Adjustment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Adjustment(nil), r.adjustments...)
}

func (r *AuditRepository) Discrepancies() []domain.Discrepancy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Discrepancy(nil), r.discrepancies...)
}

// Snapshot implements uow.Snapshotter.
func (r *AuditRepository) Snapshot() func() {
	r.mu.RLock()
	adjLen, disLen := len(r.adjustments), len(r.discrepancies)
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		r.adjustments = r.adjustments[:adjLen]
		r.discrepancies = r.discrepancies[:disLen]
		r.mu.Unlock()
	}
}
