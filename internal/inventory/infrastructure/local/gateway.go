// Package local implements the inventory gateway against the application's
// own stock store. Each operation runs in its own unit of work so a reserve
// updates the stock row and writes the reservation atomically.
package local

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixzhu97/orderflow/internal/inventory/application"
	"github.com/felixzhu97/orderflow/internal/inventory/domain"
	orderapp "github.com/felixzhu97/orderflow/internal/order/application"
	"github.com/felixzhu97/orderflow/pkg/apperr"
	"github.com/felixzhu97/orderflow/pkg/uow"
)

type Gateway struct {
	log          *slog.Logger
	tx           uow.Manager
	stocks       application.StockRepository
	reservations application.ReservationRepository
	ttl          time.Duration
}

func NewGateway(
	log *slog.Logger,
	tx uow.Manager,
	stocks application.StockRepository,
	reservations application.ReservationRepository,
	ttl time.Duration,
) *Gateway {
	return &Gateway{log: log, tx: tx, stocks: stocks, reservations: reservations, ttl: ttl}
}

func (g *Gateway) CheckStock(ctx context.Context, productID string) (orderapp.StockLevel, error) {
	stock, err := g.stocks.FindByProductID(ctx, productID)
	if err != nil {
		return orderapp.StockLevel{}, err
	}
	return orderapp.StockLevel{Available: stock.Available(), Reserved: stock.Reserved}, nil
}

// ReserveStock is idempotent by key: the idempotency key doubles as the
// reservation ID, so a retried reserve returns the original hold instead of
// taking stock twice.
func (g *Gateway) ReserveStock(ctx context.Context, productID string, quantity int, idempotencyKey string) (orderapp.StockReservation, error) {
	if existing, err := g.reservations.FindByID(ctx, idempotencyKey); err == nil {
		return orderapp.StockReservation{ReservationID: existing.ID, ExpiresAt: existing.ExpiresAt}, nil
	} else if apperr.CodeOf(err) != apperr.CodeNotFound {
		return orderapp.StockReservation{}, err
	}

	reservation := domain.Reservation{
		ID:        idempotencyKey,
		ProductID: productID,
		Quantity:  quantity,
		ExpiresAt: time.Now().UTC().Add(g.ttl),
		CreatedAt: time.Now().UTC(),
	}

	err := g.tx.WithinTx(ctx, func(ctx context.Context) error {
		stock, err := g.stocks.FindByProductID(ctx, productID)
		if err != nil {
			return err
		}
		if err := stock.Reserve(quantity); err != nil {
			return err
		}
		if _, err := g.stocks.Save(ctx, stock); err != nil {
			return err
		}
		return g.reservations.Save(ctx, reservation)
	})
	if err != nil {
		return orderapp.StockReservation{}, err
	}
	return orderapp.StockReservation{ReservationID: reservation.ID, ExpiresAt: reservation.ExpiresAt}, nil
}

// ReleaseReservation returns held stock to the available pool. Releasing an
// unknown reservation is a no-op so that release retries stay idempotent.
func (g *Gateway) ReleaseReservation(ctx context.Context, reservationID string) error {
	return g.tx.WithinTx(ctx, func(ctx context.Context) error {
		reservation, err := g.reservations.FindByID(ctx, reservationID)
		if err != nil {
			if apperr.CodeOf(err) == apperr.CodeNotFound {
				g.log.Info("release of unknown reservation skipped", "reservation_id", reservationID)
				return nil
			}
			return err
		}
		stock, err := g.stocks.FindByProductID(ctx, reservation.ProductID)
		if err != nil {
			return err
		}
		if err := stock.Release(reservation.Quantity); err != nil {
			return err
		}
		if _, err := g.stocks.Save(ctx, stock); err != nil {
			return err
		}
		return g.reservations.Delete(ctx, reservationID)
	})
}

// ConfirmUsage consumes the hold: reserved units leave stock for good.
func (g *Gateway) ConfirmUsage(ctx context.Context, reservationID string) error {
	return g.tx.WithinTx(ctx, func(ctx context.Context) error {
		reservation, err := g.reservations.FindByID(ctx, reservationID)
		if err != nil {
			if apperr.CodeOf(err) == apperr.CodeNotFound {
				g.log.Info("confirm of unknown reservation skipped", "reservation_id", reservationID)
				return nil
			}
			return err
		}
		stock, err := g.stocks.FindByProductID(ctx, reservation.ProductID)
		if err != nil {
			return err
		}
		if err := stock.Consume(reservation.Quantity); err != nil {
			return err
		}
		if _, err := g.stocks.Save(ctx, stock); err != nil {
			return err
		}
		return g.reservations.Delete(ctx, reservationID)
	})
}
