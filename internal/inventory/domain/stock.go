package domain

import (
	"time"

	"github.com/felixzhu97/orderflow/pkg/apperr"
)

var (
	ErrInsufficientStock = apperr.New(apperr.CodeInsufficientStock, "insufficient stock")
	ErrInvalidRelease    = apperr.New(apperr.CodeBusiness, "cannot release more than is reserved")
)

// Stock is the inventory aggregate for one product. Invariant:
// 0 <= Reserved <= Quantity after every operation.
type Stock struct {
	ProductID string
	Quantity  int
	Reserved  int
	UpdatedAt time.Time
	Version   int
}

func NewStock(productID string, quantity int) (Stock, error) {
	if productID == "" {
		return Stock{}, apperr.New(apperr.CodeValidation, "product id is required")
	}
	if quantity < 0 {
		return Stock{}, apperr.New(apperr.CodeValidation, "quantity must not be negative")
	}
	return Stock{ProductID: productID, Quantity: quantity, UpdatedAt: time.Now().UTC()}, nil
}

// Reconstruct rebuilds a stock row from its persisted fields.
func Reconstruct(productID string, quantity, reserved int, updatedAt time.Time, version int) Stock {
	return Stock{
		ProductID: productID,
		Quantity:  quantity,
		Reserved:  reserved,
		UpdatedAt: updatedAt,
		Version:   version,
	}
}

func (s Stock) Available() int { return s.Quantity - s.Reserved }

func (s *Stock) Reserve(n int) error {
	if n <= 0 {
		return apperr.New(apperr.CodeValidation, "reserve quantity must be positive")
	}
	if n > s.Available() {
		return apperr.Newf(apperr.CodeInsufficientStock,
			"insufficient stock for %s: want %d, available %d", s.ProductID, n, s.Available())
	}
	s.Reserved += n
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Stock) Release(n int) error {
	if n <= 0 {
		return apperr.New(apperr.CodeValidation, "release quantity must be positive")
	}
	if n > s.Reserved {
		return ErrInvalidRelease
	}
	s.Reserved -= n
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Consume turns a reservation into an actual stock decrease, e.g. when an
// order's reservation is confirmed for fulfilment.
func (s *Stock) Consume(n int) error {
	if n <= 0 {
		return apperr.New(apperr.CodeValidation, "consume quantity must be positive")
	}
	if n > s.Reserved {
		return ErrInvalidRelease
	}
	s.Reserved -= n
	s.Quantity -= n
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Adjust applies a signed quantity delta. A decrease may not take the total
// below what is currently reserved, or below zero.
func (s *Stock) Adjust(delta int) error {
	next := s.Quantity + delta
	if next < 0 || next < s.Reserved {
		return apperr.Newf(apperr.CodeInsufficientStock,
			"adjustment of %+d would leave %s at %d with %d reserved", delta, s.ProductID, next, s.Reserved)
	}
	s.Quantity = next
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// SetQuantity overwrites the recorded quantity after a physical count.
func (s *Stock) SetQuantity(actual int) error {
	if actual < 0 || actual < s.Reserved {
		return apperr.Newf(apperr.CodeBusiness,
			"counted quantity %d for %s conflicts with %d reserved", actual, s.ProductID, s.Reserved)
	}
	s.Quantity = actual
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Reservation is a hold on stock taken while an order is being placed.
type Reservation struct {
	ID        string
	ProductID string
	Quantity  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

type AdjustmentDirection string

const (
	DirectionIncrease AdjustmentDirection = "increase"
	DirectionDecrease AdjustmentDirection = "decrease"
)

// Adjustment is the audit record appended for every manual stock change.
type Adjustment struct {
	ID         string
	ProductID  string
	Delta      int
	Reason     string
	RecordedAt time.Time
}

// Discrepancy records a stock-taking mismatch between the recorded and the
// physically counted quantity.
type Discrepancy struct {
	ID         string
	ProductID  string
	Recorded   int
	Actual     int
	RecordedAt time.Time
}
