package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixzhu97/orderflow/internal/money"
	"github.com/felixzhu97/orderflow/internal/notification"
	"github.com/felixzhu97/orderflow/internal/orchestrator"
	"github.com/felixzhu97/orderflow/internal/order/domain"
	paymentdomain "github.com/felixzhu97/orderflow/internal/payment/domain"
	"github.com/felixzhu97/orderflow/pkg/apperr"
	"github.com/felixzhu97/orderflow/pkg/result"
	"github.com/felixzhu97/orderflow/pkg/uow"
)

// Service implements the order workflows: the create-order saga, cancellation
// and status transitions. Expected business failures surface as failed
// results, never as errors past this API.
type Service struct {
	log            *slog.Logger
	tx             uow.Manager
	orders         OrderRepository
	payments       PaymentRepository
	paymentGW      PaymentGateway
	inventoryGW    InventoryGateway
	notifier       notification.Gateway
	gatewayTimeout time.Duration
}

func NewService(
	log *slog.Logger,
	tx uow.Manager,
	orders OrderRepository,
	payments PaymentRepository,
	paymentGW PaymentGateway,
	inventoryGW InventoryGateway,
	notifier notification.Gateway,
	gatewayTimeout time.Duration,
) *Service {
	return &Service{
		log:            log,
		tx:             tx,
		orders:         orders,
		payments:       payments,
		paymentGW:      paymentGW,
		inventoryGW:    inventoryGW,
		notifier:       notifier,
		gatewayTimeout: gatewayTimeout,
	}
}

type ItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Currency  string `json:"currency"`
}

type CreateOrderInput struct {
	UserID          string      `json:"user_id"`
	Items           []ItemInput `json:"items"`
	ShippingAddress string      `json:"shipping_address"`
	PaymentMethod   string      `json:"payment_method"`
}

type CreateOrderData struct {
	OrderID string   `json:"order_id"`
	Total   MoneyDTO `json:"total"`
}

// CreateOrder runs the placement saga: validate, reserve stock per item,
// persist the pending order and payment record in one unit of work, charge
// the processor, then send a best-effort confirmation. On failure at any
// step, completed steps are compensated in reverse order before the error
// is surfaced.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) result.Of[CreateOrderData] {
	items, err := parseItems(in.Items)
	if err != nil {
		return result.FromError[CreateOrderData](err)
	}

	order, err := domain.New(uuid.NewString(), in.UserID, items, in.ShippingAddress, in.PaymentMethod)
	if err != nil {
		// Validation failures return before any external system is touched.
		return result.FromError[CreateOrderData](err)
	}

	steps := make([]orchestrator.Step, 0, len(order.Items)+1)
	reservations := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		step := &reserveStep{svc: s, item: item, idempotencyKey: uuid.NewString()}
		step.onReserved = func(id string) { reservations = append(reservations, id) }
		steps = append(steps, step)
	}

	charge := &persistAndChargeStep{svc: s, order: &order, reservations: &reservations}
	steps = append(steps, charge)

	if err := orchestrator.New(s.log, steps...).Run(ctx); err != nil {
		s.reportSagaFailure(err, order.ID)
		return result.FromError[CreateOrderData](unwrapSaga(err))
	}

	// Confirmation is not safety-critical; a delivery failure is logged and
	// never compensated.
	s.bestEffort(ctx, "order confirmation", func(ctx context.Context) error {
		return s.notifier.SendEmail(ctx, notification.Email{
			To:      order.UserID,
			Subject: "Order confirmed",
			Body:    fmt.Sprintf("Order %s confirmed, total %s.", order.ID, order.Total),
		})
	})

	return result.OK(CreateOrderData{OrderID: order.ID, Total: moneyToDTO(order.Total)})
}

// reserveStep holds stock for one line item. Compensation releases the
// reservation it made, and only that one.
type reserveStep struct {
	svc            *Service
	item           domain.Item
	idempotencyKey string
	reservationID  string
	onReserved     func(id string)
}

func (st *reserveStep) Name() string {
	return "reserve-stock/" + st.item.ProductID
}

func (st *reserveStep) Execute(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, st.svc.gatewayTimeout)
	defer cancel()

	res, err := st.svc.inventoryGW.ReserveStock(ctx, st.item.ProductID, st.item.Quantity, st.idempotencyKey)
	if err != nil {
		return err
	}
	st.reservationID = res.ReservationID
	st.onReserved(res.ReservationID)
	return nil
}

func (st *reserveStep) Compensate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, st.svc.gatewayTimeout)
	defer cancel()
	return st.svc.inventoryGW.ReleaseReservation(ctx, st.reservationID)
}

// persistAndChargeStep writes the pending order and its payment record
// inside one unit of work and charges the processor before committing, so a
// declined charge rolls the local writes back automatically. When the charge
// went through but a later write or the commit fails, Execute refunds it
// before surfacing the error: compensation of earlier steps never covers the
// step that failed. Compensate refunds a committed charge when a step after
// this one fails.
type persistAndChargeStep struct {
	svc           *Service
	order         *domain.Order
	reservations  *[]string
	transactionID string
}

func (st *persistAndChargeStep) Name() string { return "persist-and-charge" }

func (st *persistAndChargeStep) Execute(ctx context.Context) error {
	s := st.svc
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		st.order.ReservationIDs = append([]string(nil), (*st.reservations)...)

		saved, err := s.orders.Save(ctx, *st.order)
		if err != nil {
			return err
		}
		*st.order = saved

		payment := paymentdomain.New(uuid.NewString(), saved.ID, saved.Total, saved.PaymentMethod)
		payment, err = s.payments.Save(ctx, payment)
		if err != nil {
			return err
		}

		gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
		defer cancel()
		res, err := s.paymentGW.ProcessPayment(gwCtx, ChargeRequest{
			IdempotencyKey: payment.ID,
			OrderID:        saved.ID,
			Amount:         saved.Total,
			Method:         saved.PaymentMethod,
		})
		if err != nil {
			return err
		}
		if !res.Success {
			return apperr.Newf(apperr.CodePaymentFailed, "payment declined: %s", res.ErrorMessage)
		}
		st.transactionID = res.TransactionID

		payment.Capture(res.TransactionID)
		if _, err := s.payments.Save(ctx, payment); err != nil {
			return err
		}
		return nil
	})
	if err != nil && st.transactionID != "" {
		st.refundUncommittedCharge(ctx, err)
	}
	return err
}

// refundUncommittedCharge undoes a capture whose local record rolled back.
// The customer was charged but no order exists; leaving the charge in place
// would silently keep their money.
func (st *persistAndChargeStep) refundUncommittedCharge(ctx context.Context, cause error) {
	s := st.svc
	ctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	if _, err := s.paymentGW.RefundPayment(ctx, st.transactionID, st.order.Total); err != nil {
		s.log.Error("refund of uncommitted charge failed, needs manual reconciliation",
			"code", apperr.CodeCompensationFailure, "order_id", st.order.ID,
			"transaction_id", st.transactionID, "cause", cause, "err", err)
		return
	}
	st.transactionID = ""
}

func (st *persistAndChargeStep) Compensate(ctx context.Context) error {
	if st.transactionID == "" {
		// Charge never went through; the unit of work already rolled the
		// local writes back.
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, st.svc.gatewayTimeout)
	defer cancel()
	_, err := st.svc.paymentGW.RefundPayment(ctx, st.transactionID, st.order.Total)
	return err
}

// CancelOrder stops an order that has not yet shipped. The authoritative
// status change commits locally; releasing reservations, refunding and
// notifying are best-effort external calls whose failure is logged for
// manual reconciliation rather than blocking the cancellation.
func (s *Service) CancelOrder(ctx context.Context, orderID string) result.Of[OrderDTO] {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return result.FromError[OrderDTO](err)
	}
	if !order.CanCancel() {
		return result.Fail[OrderDTO](apperr.CodeOrderCannotCancel,
			fmt.Sprintf("order in status %s can no longer be cancelled", order.Status))
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := order.Cancel(); err != nil {
			return err
		}
		order, err = s.orders.Save(ctx, order)
		return err
	})
	if err != nil {
		return result.FromError[OrderDTO](err)
	}

	for _, reservationID := range order.ReservationIDs {
		id := reservationID
		s.bestEffort(ctx, "release reservation", func(ctx context.Context) error {
			return s.inventoryGW.ReleaseReservation(ctx, id)
		})
	}

	s.bestEffort(ctx, "refund", func(ctx context.Context) error {
		payment, err := s.payments.FindByOrderID(ctx, order.ID)
		if err != nil {
			return err
		}
		if payment.Status != paymentdomain.StatusCaptured {
			return nil
		}
		if _, err := s.paymentGW.RefundPayment(ctx, payment.TransactionID, payment.Amount); err != nil {
			return err
		}
		payment.MarkRefunded()
		_, err = s.payments.Save(ctx, payment)
		return err
	})

	s.bestEffort(ctx, "cancellation notice", func(ctx context.Context) error {
		return s.notifier.SendEmail(ctx, notification.Email{
			To:      order.UserID,
			Subject: "Order cancelled",
			Body:    fmt.Sprintf("Order %s has been cancelled.", order.ID),
		})
	})

	return result.OK(ToOrderDTO(order))
}

// UpdateOrderStatus moves an order along the fulfilment pipeline. The
// transition table is checked before any write. Reaching Shipped confirms
// the stock reservations (best-effort).
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status domain.Status) result.Of[OrderDTO] {
	if !domain.ValidStatus(status) {
		return result.Fail[OrderDTO](apperr.CodeValidation, fmt.Sprintf("unknown status %q", status))
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return result.FromError[OrderDTO](err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := order.TransitionTo(status); err != nil {
			return err
		}
		order, err = s.orders.Save(ctx, order)
		return err
	})
	if err != nil {
		return result.FromError[OrderDTO](err)
	}

	if status == domain.StatusShipped {
		for _, reservationID := range order.ReservationIDs {
			id := reservationID
			s.bestEffort(ctx, "confirm reservation", func(ctx context.Context) error {
				return s.inventoryGW.ConfirmUsage(ctx, id)
			})
		}
	}

	return result.OK(ToOrderDTO(order))
}

func (s *Service) GetOrder(ctx context.Context, orderID string) result.Of[OrderDTO] {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return result.FromError[OrderDTO](err)
	}
	return result.OK(ToOrderDTO(order))
}

func (s *Service) ListUserOrders(ctx context.Context, userID string) result.Of[[]OrderDTO] {
	orders, err := s.orders.FindByUserID(ctx, userID)
	if err != nil {
		return result.FromError[[]OrderDTO](err)
	}
	dtos := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, ToOrderDTO(o))
	}
	return result.OK(dtos)
}

func parseItems(in []ItemInput) ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(in))
	for _, i := range in {
		price, err := money.FromString(i.UnitPrice, i.Currency)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.Item{ProductID: i.ProductID, Quantity: i.Quantity, UnitPrice: price})
	}
	return items, nil
}

func (s *Service) bestEffort(ctx context.Context, op string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.log.Error("best-effort operation failed, needs manual reconciliation", "op", op, "err", err)
	}
}

func (s *Service) reportSagaFailure(err error, orderID string) {
	if sagaErr, ok := err.(*orchestrator.SagaError); ok && len(sagaErr.CompensationFailures) > 0 {
		for _, compErr := range sagaErr.CompensationFailures {
			s.log.Error("compensation failure recorded", "order_id", orderID, "err", compErr)
		}
	}
	s.log.Warn("create order saga aborted", "order_id", orderID, "err", err)
}

func unwrapSaga(err error) error {
	if sagaErr, ok := err.(*orchestrator.SagaError); ok {
		return sagaErr.Cause
	}
	return err
}
