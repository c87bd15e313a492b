package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixzhu97/orderflow/internal/inventory/domain"
	"github.com/felixzhu97/orderflow/internal/notification"
	"github.com/felixzhu97/orderflow/pkg/apperr"
	"github.com/felixzhu97/orderflow/pkg/result"
	"github.com/felixzhu97/orderflow/pkg/uow"
)

type Service struct {
	log               *slog.Logger
	tx                uow.Manager
	stocks            StockRepository
	audits            AuditRepository
	notifier          notification.Gateway
	lowStockThreshold int
	notifyTimeout     time.Duration
}

func NewService(
	log *slog.Logger,
	tx uow.Manager,
	stocks StockRepository,
	audits AuditRepository,
	notifier notification.Gateway,
	lowStockThreshold int,
	notifyTimeout time.Duration,
) *Service {
	return &Service{
		log:               log,
		tx:                tx,
		stocks:            stocks,
		audits:            audits,
		notifier:          notifier,
		lowStockThreshold: lowStockThreshold,
		notifyTimeout:     notifyTimeout,
	}
}

type StockDTO struct {
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Reserved  int       `json:"reserved"`
	Available int       `json:"available"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

func toStockDTO(s domain.Stock) StockDTO {
	return StockDTO{
		ProductID: s.ProductID,
		Quantity:  s.Quantity,
		Reserved:  s.Reserved,
		Available: s.Available(),
		UpdatedAt: s.UpdatedAt,
		Version:   s.Version,
	}
}

type AdjustInput struct {
	ProductID string                     `json:"product_id"`
	Quantity  int                        `json:"quantity"`
	Reason    string                     `json:"reason"`
	Direction domain.AdjustmentDirection `json:"direction"`
}

// AdjustInventory applies a manual stock change and appends an audit record,
// all in one unit of work. Crossing the low-stock threshold emits a
// non-blocking alert.
func (s *Service) AdjustInventory(ctx context.Context, in AdjustInput) result.Of[StockDTO] {
	if in.ProductID == "" {
		return result.Fail[StockDTO](apperr.CodeValidation, "product id is required")
	}
	if in.Quantity <= 0 {
		return result.Fail[StockDTO](apperr.CodeValidation, "quantity must be positive")
	}
	if in.Reason == "" {
		return result.Fail[StockDTO](apperr.CodeValidation, "reason is required")
	}
	delta := in.Quantity
	switch in.Direction {
	case domain.DirectionIncrease:
	case domain.DirectionDecrease:
		delta = -delta
	default:
		return result.Fail[StockDTO](apperr.CodeValidation, fmt.Sprintf("unknown direction %q", in.Direction))
	}

	var stock domain.Stock
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		stock, err = s.stocks.FindByProductID(ctx, in.ProductID)
		if err != nil {
			if apperr.CodeOf(err) == apperr.CodeNotFound && delta > 0 {
				// First delivery for a product creates its stock row.
				stock, err = domain.NewStock(in.ProductID, 0)
			}
			if err != nil {
				return err
			}
		}
		if err := stock.Adjust(delta); err != nil {
			return err
		}
		stock, err = s.stocks.Save(ctx, stock)
		if err != nil {
			return err
		}
		return s.audits.RecordAdjustment(ctx, domain.Adjustment{
			ID:         uuid.NewString(),
			ProductID:  in.ProductID,
			Delta:      delta,
			Reason:     in.Reason,
			RecordedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return result.FromError[StockDTO](err)
	}

	if stock.Available() <= s.lowStockThreshold {
		s.alertLowStock(ctx, stock)
	}

	return result.OK(toStockDTO(stock))
}

type CountEntry struct {
	ProductID string `json:"product_id"`
	Actual    int    `json:"actual"`
}

type StockTakingData struct {
	Checked       int `json:"checked"`
	Discrepancies int `json:"discrepancies"`
}

// StockTaking reconciles recorded quantities against a physical count. The
// whole batch runs in one unit of work: a failing line rolls back every
// previously corrected line as well.
func (s *Service) StockTaking(ctx context.Context, entries []CountEntry) result.Of[StockTakingData] {
	if len(entries) == 0 {
		return result.Fail[StockTakingData](apperr.CodeValidation, "at least one count entry is required")
	}

	var data StockTakingData
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, entry := range entries {
			if entry.Actual < 0 {
				return apperr.Newf(apperr.CodeValidation, "counted quantity for %s must not be negative", entry.ProductID)
			}
			stock, err := s.stocks.FindByProductID(ctx, entry.ProductID)
			if err != nil {
				return err
			}
			data.Checked++
			if stock.Quantity == entry.Actual {
				continue
			}

			recorded := stock.Quantity
			if err := stock.SetQuantity(entry.Actual); err != nil {
				return err
			}
			if _, err := s.stocks.Save(ctx, stock); err != nil {
				return err
			}
			if err := s.audits.RecordDiscrepancy(ctx, domain.Discrepancy{
				ID:         uuid.NewString(),
				ProductID:  entry.ProductID,
				Recorded:   recorded,
				Actual:     entry.Actual,
				RecordedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
			data.Discrepancies++
		}
		return nil
	})
	if err != nil {
		return result.FromError[StockTakingData](err)
	}
	return result.OK(data)
}

func (s *Service) GetStock(ctx context.Context, productID string) result.Of[StockDTO] {
	stock, err := s.stocks.FindByProductID(ctx, productID)
	if err != nil {
		return result.FromError[StockDTO](err)
	}
	return result.OK(toStockDTO(stock))
}

func (s *Service) alertLowStock(ctx context.Context, stock domain.Stock) {
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	err := s.notifier.SendPush(ctx, notification.Push{
		UserID: "inventory-ops",
		Title:  "Low stock",
		Body:   fmt.Sprintf("Product %s is down to %d available.", stock.ProductID, stock.Available()),
	})
	if err != nil {
		s.log.Error("low stock alert failed", "product_id", stock.ProductID, "err", err)
	}
}
