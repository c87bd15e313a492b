package application

import (
	"context"

	"github.com/felixzhu97/orderflow/internal/inventory/domain"
)

// StockRepository persists stock rows with optimistic concurrency: Save
// inserts at Version 0, otherwise updates only when the stored version still
// matches, failing with CONCURRENT_MODIFICATION when it does not.
type StockRepository interface {
	FindByProductID(ctx context.Context, productID string) (domain.Stock, error)
	FindAll(ctx context.Context) ([]domain.Stock, error)
	Save(ctx context.Context, s domain.Stock) (domain.Stock, error)
	Exists(ctx context.Context, productID string) (bool, error)
}

// AuditRepository appends immutable audit rows; they are never updated.
type AuditRepository interface {
	RecordAdjustment(ctx context.Context, a domain.Adjustment) error
	RecordDiscrepancy(ctx context.Context, d domain.Discrepancy) error
}

type ReservationRepository interface {
	FindByID(ctx context.Context, id string) (domain.Reservation, error)
	Save(ctx context.Context, r domain.Reservation) error
	Delete(ctx context.Context, id string) error
}
