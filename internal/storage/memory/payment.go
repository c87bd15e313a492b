package memory

import (
	"context"

	"github.com/felixzhu97/orderflow/internal/payment/domain"
	"github.com/felixzhu97/orderflow/pkg/apperr"
)

type PaymentRepository struct {
	*Store[domain.Payment]
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{Store: NewStore("payment", Config[domain.Payment]{
		ID:      func(p domain.Payment) string { return p.ID },
		Version: func(p domain.Payment) int { return p.Version },
		SetVersion: func(p domain.Payment, v int) domain.Payment {
			p.Version = v
			return p
		},
		Clone: func(p domain.Payment) domain.Payment { return p },
	})}
}

func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (domain.Payment, error) {
	matches := r.Filter(func(p domain.Payment) bool { return p.OrderID == orderID })
	if len(matches) == 0 {
		return domain.Payment{}, apperr.Newf(apperr.CodeNotFound, "payment for order %s not found", orderID)
	}
	return matches[0], nil
}

func (r *PaymentRepository) Save(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	return r.Store.Save(p)
}
