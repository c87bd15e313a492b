package postgres

import (
	"time"

	"github.com/felixzhu97/orderflow/internal/money"
	"github.com/felixzhu97/orderflow/internal/order/domain"
	"github.com/felixzhu97/orderflow/pkg/apperr"
)

// orderRow mirrors the orders table. Amounts travel as decimal strings so
// nothing is lost between numeric columns and the money type.
type orderRow struct {
	ID              string
	UserID          string
	Status          string
	TotalAmount     string
	Currency        string
	ShippingAddress string
	PaymentMethod   string
	ReservationIDs  []string
	Items           []itemRow
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int
}

type itemRow struct {
	ProductID string
	Quantity  int
	UnitPrice string
}

func orderRowFrom(o domain.Order) orderRow {
	items := make([]itemRow, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, itemRow{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.Amount().String(),
		})
	}
	return orderRow{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		TotalAmount:     o.Total.Amount().String(),
		Currency:        o.Total.Currency(),
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		ReservationIDs:  o.ReservationIDs,
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Version:         o.Version,
	}
}

// toDomain fails fast on malformed rows rather than handing the caller a
// half-built aggregate.
func (r orderRow) toDomain() (domain.Order, error) {
	total, err := money.FromString(r.TotalAmount, r.Currency)
	if err != nil {
		return domain.Order{}, apperr.Wrap(apperr.CodeInternal, "malformed order total in store", err)
	}

	items := make([]domain.Item, 0, len(r.Items))
	for _, it := range r.Items {
		price, err := money.FromString(it.UnitPrice, r.Currency)
		if err != nil {
			return domain.Order{}, apperr.Wrap(apperr.CodeInternal, "malformed item price in store", err)
		}
		items = append(items, domain.Item{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: price})
	}

	status := domain.Status(r.Status)
	if !domain.ValidStatus(status) {
		return domain.Order{}, apperr.Newf(apperr.CodeInternal, "unknown order status %q in store", r.Status)
	}

	return domain.Reconstruct(
		r.ID, r.UserID, items, status, total,
		r.ShippingAddress, r.PaymentMethod, r.ReservationIDs,
		r.CreatedAt, r.UpdatedAt, r.Version,
	), nil
}
