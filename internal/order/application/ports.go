package application

import (
	"context"
	"time"

	"github.com/felixzhu97/orderflow/internal/money"
	"github.com/felixzhu97/orderflow/internal/order/domain"
	paymentdomain "github.com/felixzhu97/orderflow/internal/payment/domain"
)

// OrderRepository persists the order aggregate. Save inserts when Version
// is 0 and otherwise performs a version-checked update, returning the entity
// with its new version or a CONCURRENT_MODIFICATION error.
type OrderRepository interface {
	FindByID(ctx context.Context, id string) (domain.Order, error)
	FindByUserID(ctx context.Context, userID string) ([]domain.Order, error)
	FindByStatus(ctx context.Context, status domain.Status) ([]domain.Order, error)
	FindByDateRange(ctx context.Context, from, to time.Time) ([]domain.Order, error)
	Save(ctx context.Context, o domain.Order) (domain.Order, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

type PaymentRepository interface {
	FindByOrderID(ctx context.Context, orderID string) (paymentdomain.Payment, error)
	Save(ctx context.Context, p paymentdomain.Payment) (paymentdomain.Payment, error)
}

// ChargeRequest carries everything the processor needs. IdempotencyKey is
// generated once per saga step; a retried charge with the same key is not
// double-applied.
type ChargeRequest struct {
	IdempotencyKey string
	OrderID        string
	Amount         money.Money
	Method         string
}

type ChargeResult struct {
	Success       bool
	TransactionID string
	ErrorMessage  string
}

type RefundResult struct {
	Success  bool
	RefundID string
}

type PaymentGateway interface {
	ProcessPayment(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	RefundPayment(ctx context.Context, transactionID string, amount money.Money) (RefundResult, error)
	TransactionStatus(ctx context.Context, transactionID string) (string, error)
}

type StockLevel struct {
	Available int
	Reserved  int
}

type StockReservation struct {
	ReservationID string
	ExpiresAt     time.Time
}

// InventoryGateway is the external stock tracker. Reservations are
// idempotent by key: re-reserving with the same key returns the original
// reservation instead of double-holding stock.
type InventoryGateway interface {
	CheckStock(ctx context.Context, productID string) (StockLevel, error)
	ReserveStock(ctx context.Context, productID string, quantity int, idempotencyKey string) (StockReservation, error)
	ReleaseReservation(ctx context.Context, reservationID string) error
	ConfirmUsage(ctx context.Context, reservationID string) error
}
