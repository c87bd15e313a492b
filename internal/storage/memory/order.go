package memory

import (
	"context"
	"time"

	"github.com/felixzhu97/orderflow/internal/order/domain"
)

type OrderRepository struct {
	*Store[domain.Order]
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{Store: NewStore("order", Config[domain.Order]{
		ID:      func(o domain.Order) string { return o.ID },
		Version: func(o domain.Order) int { return o.Version },
		SetVersion: func(o domain.Order, v int) domain.Order {
			o.Version = v
			return o
		},
		Clone: cloneOrder,
	})}
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.Item(nil), o.Items...)
	o.ReservationIDs = append([]string(nil), o.ReservationIDs...)
	return o
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (domain.Order, error) {
	return r.Get(id)
}

func (r *OrderRepository) FindByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.Filter(func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (r *OrderRepository) FindByStatus(ctx context.Context, status domain.Status) ([]domain.Order, error) {
	return r.Filter(func(o domain.Order) bool { return o.Status == status }), nil
}

func (r *OrderRepository) FindByDateRange(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	return r.Filter(func(o domain.Order) bool {
		return !o.CreatedAt.Before(from) && !o.CreatedAt.After(to)
	}), nil
}

func (r *OrderRepository) Save(ctx context.Context, o domain.Order) (domain.Order, error) {
	return r.Store.Save(o)
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return r.Store.Delete(id)
}

func (r *OrderRepository) Exists(ctx context.Context, id string) (bool, error) {
	return r.Store.Exists(id)
}
