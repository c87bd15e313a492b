package application

import (
	"time"

	"github.com/felixzhu97/orderflow/internal/money"
	"github.com/felixzhu97/orderflow/internal/order/domain"
)

// MoneyDTO is the wire shape of a monetary amount. The amount travels as a
// decimal string so no precision is lost in JSON.
type MoneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type OrderItemDTO struct {
	ProductID string   `json:"product_id"`
	Quantity  int      `json:"quantity"`
	UnitPrice MoneyDTO `json:"unit_price"`
}

type OrderDTO struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	Items           []OrderItemDTO `json:"items"`
	Status          string         `json:"status"`
	Total           MoneyDTO       `json:"total"`
	ShippingAddress string         `json:"shipping_address"`
	PaymentMethod   string         `json:"payment_method"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Version         int            `json:"version"`
}

func moneyToDTO(m money.Money) MoneyDTO {
	return MoneyDTO{Amount: m.Amount().String(), Currency: m.Currency()}
}

func moneyFromDTO(d MoneyDTO) (money.Money, error) {
	return money.FromString(d.Amount, d.Currency)
}

// ToOrderDTO projects an order into its public shape. Reservation IDs are an
// internal bookkeeping detail and deliberately do not appear.
func ToOrderDTO(o domain.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: moneyToDTO(item.UnitPrice),
		})
	}
	return OrderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           items,
		Status:          string(o.Status),
		Total:           moneyToDTO(o.Total),
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Version:         o.Version,
	}
}

// OrderFromDTO rebuilds the domain order from its public shape. Malformed
// amounts fail fast instead of defaulting.
func OrderFromDTO(d OrderDTO) (domain.Order, error) {
	items := make([]domain.Item, 0, len(d.Items))
	for _, item := range d.Items {
		price, err := moneyFromDTO(item.UnitPrice)
		if err != nil {
			return domain.Order{}, err
		}
		items = append(items, domain.Item{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
	}
	total, err := moneyFromDTO(d.Total)
	if err != nil {
		return domain.Order{}, err
	}
	return domain.Reconstruct(
		d.ID, d.UserID, items, domain.Status(d.Status), total,
		d.ShippingAddress, d.PaymentMethod, nil,
		d.CreatedAt, d.UpdatedAt, d.Version,
	), nil
}
