package domain

import (
	"time"

	"github.com/felixzhu97/orderflow/internal/money"
	"github.com/felixzhu97/orderflow/pkg/apperr"
)

var (
	ErrInvalidStatusTransition = apperr.New(apperr.CodeInvalidStatusTransition, "illegal order status transition")
	ErrOrderCannotCancel       = apperr.New(apperr.CodeOrderCannotCancel, "order can no longer be cancelled")
	ErrEmptyItems              = apperr.New(apperr.CodeValidation, "order must contain at least one item")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// transitions is the authoritative table of legal status moves. Delivered
// and Cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

type Item struct {
	ProductID string
	Quantity  int
	UnitPrice money.Money
}

func (i Item) Subtotal() (money.Money, error) {
	return i.UnitPrice.Mul(i.Quantity)
}

// Order is the aggregate for a customer purchase. Version is the optimistic
// concurrency counter; a write whose expected version does not match the
// stored row fails with CONCURRENT_MODIFICATION.
type Order struct {
	ID              string
	UserID          string
	Items           []Item
	Status          Status
	Total           money.Money
	ShippingAddress string
	PaymentMethod   string
	// ReservationIDs tracks the inventory reservations taken while placing
	// the order, so cancellation can release them.
	ReservationIDs []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int
}

// New validates the input and computes the order total. The returned order
// has Version 0; the first Save assigns version 1.
func New(id, userID string, items []Item, shippingAddress, paymentMethod string) (Order, error) {
	if userID == "" {
		return Order{}, apperr.New(apperr.CodeValidation, "user id is required")
	}
	if len(items) == 0 {
		return Order{}, ErrEmptyItems
	}
	if shippingAddress == "" {
		return Order{}, apperr.New(apperr.CodeValidation, "shipping address is required")
	}
	if paymentMethod == "" {
		return Order{}, apperr.New(apperr.CodeValidation, "payment method is required")
	}

	total := money.Zero(items[0].UnitPrice.Currency())
	for _, item := range items {
		if item.Quantity <= 0 {
			return Order{}, apperr.Newf(apperr.CodeValidation, "quantity for product %s must be positive", item.ProductID)
		}
		sub, err := item.Subtotal()
		if err != nil {
			return Order{}, err
		}
		total, err = total.Add(sub)
		if err != nil {
			return Order{}, err
		}
	}

	now := time.Now().UTC()
	return Order{
		ID:              id,
		UserID:          userID,
		Items:           items,
		Status:          StatusPending,
		Total:           total,
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Reconstruct rebuilds an order from its persisted fields. Every field is a
// parameter so nothing is ever set outside the type's control.
func Reconstruct(
	id, userID string,
	items []Item,
	status Status,
	total money.Money,
	shippingAddress, paymentMethod string,
	reservationIDs []string,
	createdAt, updatedAt time.Time,
	version int,
) Order {
	return Order{
		ID:              id,
		UserID:          userID,
		Items:           items,
		Status:          status,
		Total:           total,
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
		ReservationIDs:  reservationIDs,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
		Version:         version,
	}
}

// TransitionTo moves the order to the target status after checking the
// transition table. The check happens before any write.
func (o *Order) TransitionTo(to Status) error {
	if !CanTransition(o.Status, to) {
		return apperr.Newf(apperr.CodeInvalidStatusTransition,
			"cannot move order from %s to %s", o.Status, to)
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// CanCancel reports whether cancellation is still legal: a unit en route to
// fulfilment can be stopped, one already shipped or delivered cannot.
func (o Order) CanCancel() bool {
	return CanTransition(o.Status, StatusCancelled)
}

func (o *Order) Cancel() error {
	if !o.CanCancel() {
		return ErrOrderCannotCancel
	}
	return o.TransitionTo(StatusCancelled)
}
