package domain

import (
	"time"

	"github.com/felixzhu97/orderflow/internal/money"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusCaptured Status = "captured"
	StatusRefunded Status = "refunded"
	StatusFailed   Status = "failed"
)

// Payment is the local record of a charge attempted against the external
// payment processor. TransactionID is empty until the processor accepts the
// charge.
type Payment struct {
	ID            string
	OrderID       string
	Amount        money.Money
	Method        string
	Status        Status
	TransactionID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int
}

func New(id, orderID string, amount money.Money, method string) Payment {
	now := time.Now().UTC()
	return Payment{
		ID:        id,
		OrderID:   orderID,
		Amount:    amount,
		Method:    method,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reconstruct rebuilds a payment record from its persisted fields.
func Reconstruct(id, orderID string, amount money.Money, method string, status Status,
	transactionID string, createdAt, updatedAt time.Time, version int) Payment {
	return Payment{
		ID:            id,
		OrderID:       orderID,
		Amount:        amount,
		Method:        method,
		Status:        status,
		TransactionID: transactionID,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
		Version:       version,
	}
}

func (p *Payment) Capture(transactionID string) {
	p.TransactionID = transactionID
	p.Status = StatusCaptured
	p.UpdatedAt = time.Now().UTC()
}

func (p *Payment) MarkRefunded() {
	p.Status = StatusRefunded
	p.UpdatedAt = time.Now().UTC()
}

func (p *Payment) MarkFailed() {
	p.Status = StatusFailed
	p.UpdatedAt = time.Now().UTC()
}
