package application_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixzhu97/orderflow/internal/inventory/application"
	"github.com/felixzhu97/orderflow/internal/inventory/domain"
	"github.com/felixzhu97/orderflow/internal/notification"
	"github.com/felixzhu97/orderflow/internal/storage/memory"
	"github.com/felixzhu97/orderflow/pkg/apperr"
	"github.com/felixzhu97/orderflow/pkg/uow"
)

type pushRecorder struct {
	mu     sync.Mutex
	pushes []notification.Push
}

func (r *pushRecorder) SendEmail(context.Context, notification.Email) error { return nil }
func (r *pushRecorder) SendSMS(context.Context, notification.SMS) error     { return nil }
func (r *pushRecorder) SendPush(_ context.Context, msg notification.Push) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, msg)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, lowStock int) (*application.Service, *memory.StockRepository, *memory.AuditRepository, *pushRecorder) {
	t.Helper()
	stocks := memory.NewStockRepository()
	audits := memory.NewAuditRepository()
	tx := uow.NewMemoryManager(stocks, audits)
	notifier := &pushRecorder{}
	svc := application.NewService(discard(), tx, stocks, audits, notifier, lowStock, time.Second)
	return svc, stocks, audits, notifier
}

func seed(t *testing.T, stocks *memory.StockRepository, productID string, qty, reserved int) {
	t.Helper()
	stock, err := domain.NewStock(productID, qty)
	require.NoError(t, err)
	stock.Reserved = reserved
	_, err = stocks.Save(context.Background(), stock)
	require.NoError(t, err)
}

func TestAdjustInventoryIncrease(t *testing.T) {
	svc, stocks, audits, _ := newService(t, 0)
	seed(t, stocks, "sku-1", 10, 0)

	res := svc.AdjustInventory(context.Background(), application.AdjustInput{
		ProductID: "sku-1",
		Quantity:  5,
		Reason:    "delivery",
		Direction: domain.DirectionIncrease,
	})
	require.True(t, res.Success)
	assert.Equal(t, 15, res.Data.Quantity)

	adjustments := audits.Adjustments()
	require.Len(t, adjustments, 1)
	assert.Equal(t, 5, adjustments[0].Delta)
	assert.Equal(t, "delivery", adjustments[0].Reason)
}

func TestAdjustInventoryCreatesMissingProductOnIncrease(t *testing.T) {
	svc, stocks, _, _ := newService(t, 0)

	res := svc.AdjustInventory(context.Background(), application.AdjustInput{
		ProductID: "fresh",
		Quantity:  7,
		Reason:    "initial delivery",
		Direction: domain.DirectionIncrease,
	})
	require.True(t, res.Success)
	assert.Equal(t, 7, res.Data.Quantity)

	stock, err := stocks.FindByProductID(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, 1, stock.Version)
}

func TestAdjustInventoryDecreaseBelowReserved(t *testing.T) {
	svc, stocks, audits, _ := newService(t, 0)
	seed(t, stocks, "sku-1", 10, 8)

	res := svc.AdjustInventory(context.Background(), application.AdjustInput{
		ProductID: "sku-1",
		Quantity:  5,
		Reason:    "damage",
		Direction: domain.DirectionDecrease,
	})
	require.False(t, res.Success)
	assert.Equal(t, string(apperr.CodeInsufficientStock), res.ErrorCode)

	stock, err := stocks.FindByProductID(context.Background(), "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 10, stock.Quantity)
	assert.Empty(t, audits.Adjustments(), "failed adjustment must not leave an audit row")
}

func TestAdjustInventoryValidation(t *testing.T) {
	svc, _, _, _ := newService(t, 0)
	ctx := context.Background()

	for name, in := range map[string]application.AdjustInput{
		"missing product":   {Quantity: 1, Reason: "x", Direction: domain.DirectionIncrease},
		"zero quantity":     {ProductID: "p", Reason: "x", Direction: domain.DirectionIncrease},
		"missing reason":    {ProductID: "p", Quantity: 1, Direction: domain.DirectionIncrease},
		"unknown direction": {ProductID: "p", Quantity: 1, Reason: "x", Direction: "sideways"},
	} {
		res := svc.AdjustInventory(ctx, in)
		require.False(t, res.Success, name)
		assert.Equal(t, string(apperr.CodeValidation), res.ErrorCode, name)
	}
}

func TestAdjustInventoryLowStockAlert(t *testing.T) {
	svc, stocks, _, notifier := newService(t, 5)
	seed(t, stocks, "sku-1", 8, 0)

	res := svc.AdjustInventory(context.Background(), application.AdjustInput{
		ProductID: "sku-1",
		Quantity:  4,
		Reason:    "shrinkage",
		Direction: domain.DirectionDecrease,
	})
	require.True(t, res.Success)
	require.Len(t, notifier.pushes, 1)
	assert.Equal(t, "Low stock", notifier.pushes[0].Title)
}

// passthroughTx runs the function without snapshot bookkeeping so two
// goroutines can genuinely race on the store's version check.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// barrierStocks holds every reader at a barrier after the read, so both
// writers proceed from the same stock version.
type barrierStocks struct {
	*memory.StockRepository
	barrier *sync.WaitGroup
}

func (b *barrierStocks) FindByProductID(ctx context.Context, productID string) (domain.Stock, error) {
	stock, err := b.StockRepository.FindByProductID(ctx, productID)
	b.barrier.Done()
	b.barrier.Wait()
	return stock, err
}

func TestAdjustInventoryConcurrentModification(t *testing.T) {
	stocks := memory.NewStockRepository()
	audits := memory.NewAuditRepository()
	seed(t, stocks, "sku-1", 10, 0)

	barrier := &sync.WaitGroup{}
	barrier.Add(2)
	svc := application.NewService(discard(), passthroughTx{},
		&barrierStocks{StockRepository: stocks, barrier: barrier},
		audits, &pushRecorder{}, 0, time.Second)

	results := make(chan string, 2)
	for i := 0; i < 2; i++ {
		go func() {
			res := svc.AdjustInventory(context.Background(), application.AdjustInput{
				ProductID: "sku-1",
				Quantity:  5,
				Reason:    "recount",
				Direction: domain.DirectionIncrease,
			})
			if res.Success {
				results <- "ok"
			} else {
				results <- res.ErrorCode
			}
		}()
	}

	got := map[string]int{}
	for i := 0; i < 2; i++ {
		got[<-results]++
	}
	assert.Equal(t, 1, got["ok"], "exactly one writer must win")
	assert.Equal(t, 1, got[string(apperr.CodeConcurrentModification)], "the other must lose the version check")

	stock, err := stocks.FindByProductID(context.Background(), "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 15, stock.Quantity, "only the winning adjustment may apply")
	assert.Len(t, audits.Adjustments(), 1)
}

func TestStockTakingRecordsDiscrepancies(t *testing.T) {
	svc, stocks, audits, _ := newService(t, 0)
	seed(t, stocks, "sku-1", 10, 0)
	seed(t, stocks, "sku-2", 4, 0)

	res := svc.StockTaking(context.Background(), []application.CountEntry{
		{ProductID: "sku-1", Actual: 10},
		{ProductID: "sku-2", Actual: 2},
	})
	require.True(t, res.Success)
	assert.Equal(t, 2, res.Data.Checked)
	assert.Equal(t, 1, res.Data.Discrepancies)

	stock, err := stocks.FindByProductID(context.Background(), "sku-2")
	require.NoError(t, err)
	assert.Equal(t, 2, stock.Quantity)

	discrepancies := audits.Discrepancies()
	require.Len(t, discrepancies, 1)
	assert.Equal(t, 4, discrepancies[0].Recorded)
	assert.Equal(t, 2, discrepancies[0].Actual)
}

func TestStockTakingBatchRollsBack(t *testing.T) {
	svc, stocks, audits, _ := newService(t, 0)
	seed(t, stocks, "sku-1", 10, 0)

	res := svc.StockTaking(context.Background(), []application.CountEntry{
		{ProductID: "sku-1", Actual: 6},
		{ProductID: "missing", Actual: 3},
	})
	require.False(t, res.Success)
	assert.Equal(t, string(apperr.CodeNotFound), res.ErrorCode)

	stock, err := stocks.FindByProductID(context.Background(), "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 10, stock.Quantity, "corrections before the failing line must roll back")
	assert.Empty(t, audits.Discrepancies())
}

func TestStockTakingValidation(t *testing.T) {
	svc, _, _, _ := newService(t, 0)

	res := svc.StockTaking(context.Background(), nil)
	require.False(t, res.Success)
	assert.Equal(t, string(apperr.CodeValidation), res.ErrorCode)

	res = svc.StockTaking(context.Background(), []application.CountEntry{{ProductID: "p", Actual: -1}})
	require.False(t, res.Success)
	assert.Equal(t, string(apperr.CodeValidation), res.ErrorCode)
}

func TestGetStockNotFound(t *testing.T) {
	svc, _, _, _ := newService(t, 0)
	res := svc.GetStock(context.Background(), "nope")
	require.False(t, res.Success)
	assert.Equal(t, string(apperr.CodeNotFound), res.ErrorCode)
}
