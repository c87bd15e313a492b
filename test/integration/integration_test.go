//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventorypg "github.com/felixzhu97/orderflow/internal/inventory/infrastructure/postgres"
	"github.com/felixzhu97/orderflow/internal/money"
	"github.com/felixzhu97/orderflow/internal/notification"
	notificationkafka "github.com/felixzhu97/orderflow/internal/notification/kafka"
	orderdomain "github.com/felixzhu97/orderflow/internal/order/domain"
	orderpg "github.com/felixzhu97/orderflow/internal/order/infrastructure/postgres"
	inventorydomain "github.com/felixzhu97/orderflow/internal/inventory/domain"
	paymentdomain "github.com/felixzhu97/orderflow/internal/payment/domain"
	paymentpg "github.com/felixzhu97/orderflow/internal/payment/infrastructure/postgres"
	userdomain "github.com/felixzhu97/orderflow/internal/user/domain"
	userpg "github.com/felixzhu97/orderflow/internal/user/infrastructure/postgres"
	"github.com/felixzhu97/orderflow/pkg/apperr"
	"github.com/felixzhu97/orderflow/pkg/session"
	"github.com/felixzhu97/orderflow/pkg/uow"
)

func setup(t *testing.T) (*Env, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	env, err := Setup(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { env.Teardown(context.Background()) })

	pool, err := pgxpool.New(ctx, env.PGURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	// The same DDL the deployment applies.
	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)
	return env, pool
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOrderRepositoryAgainstPostgres(t *testing.T) {
	_, pool := setup(t)
	ctx := context.Background()

	repo := orderpg.NewRepository(discard(), pool)
	tx := uow.NewPgxManager(pool)

	price, err := money.FromString("19.99", "USD")
	require.NoError(t, err)
	order, err := orderdomain.New("o-1", "user-1",
		[]orderdomain.Item{{ProductID: "sku-1", Quantity: 2, UnitPrice: price}},
		"1 Main St", "card")
	require.NoError(t, err)

	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err = repo.Save(ctx, order)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, order.Version)

	loaded, err := repo.FindByID(ctx, "o-1")
	require.NoError(t, err)
	assert.True(t, loaded.Total.Equal(order.Total))
	require.Len(t, loaded.Items, 1)

	// Stale version loses the write race.
	stale := loaded
	_, err = repo.Save(ctx, loaded)
	require.NoError(t, err)
	stale.Status = orderdomain.StatusConfirmed
	_, err = repo.Save(ctx, stale)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConcurrentModification, apperr.CodeOf(err))
}

func TestUnitOfWorkRollsBackAcrossRepositories(t *testing.T) {
	_, pool := setup(t)
	ctx := context.Background()

	stocks := inventorypg.NewStockRepository(discard(), pool)
	tx := uow.NewPgxManager(pool)

	stock, err := inventorydomain.NewStock("sku-9", 5)
	require.NoError(t, err)

	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := stocks.Save(ctx, stock); err != nil {
			return err
		}
		return apperr.New(apperr.CodeBusiness, "forced failure")
	})
	require.Error(t, err)

	_, err = stocks.FindByProductID(ctx, "sku-9")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err), "rolled back insert must not be visible")
}

func TestUserAndPaymentRepositoriesAgainstPostgres(t *testing.T) {
	_, pool := setup(t)
	ctx := context.Background()

	users := userpg.NewRepository(discard(), pool)
	user, err := userdomain.New("u-1", "ada", "ada@example.com", "hash", userdomain.Profile{})
	require.NoError(t, err)
	user, err = users.Save(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, user.Version)

	loaded, err := users.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada", loaded.Username)

	// The unique index backs the duplicate check against registration races.
	dup, err := userdomain.New("u-2", "grace", "ada@example.com", "hash", userdomain.Profile{})
	require.NoError(t, err)
	_, err = users.Save(ctx, dup)
	assert.ErrorIs(t, err, userdomain.ErrDuplicateEmail)

	payments := paymentpg.NewRepository(discard(), pool)
	amount, err := money.FromString("42.00", "USD")
	require.NoError(t, err)
	payment := paymentdomain.New("p-1", "o-404", amount, "card")
	payment, err = payments.Save(ctx, payment)
	require.NoError(t, err)

	payment.Capture("txn-1")
	_, err = payments.Save(ctx, payment)
	require.NoError(t, err)

	reloaded, err := payments.FindByOrderID(ctx, "o-404")
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusCaptured, reloaded.Status)
	assert.Equal(t, "txn-1", reloaded.TransactionID)
}

func TestSessionStoreAgainstRedis(t *testing.T) {
	env, _ := setup(t)
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: env.RedisAddr})
	t.Cleanup(func() { _ = rdb.Close() })

	store := session.NewStore(rdb, time.Minute)
	type cart struct {
		Items []string `json:"items"`
	}

	require.NoError(t, session.Set(ctx, store, "sess-1", "cart", cart{Items: []string{"sku-1"}}))
	got, err := session.Get[cart](ctx, store, "sess-1", "cart")
	require.NoError(t, err)
	assert.Equal(t, []string{"sku-1"}, got.Items)

	require.NoError(t, store.ClearAll(ctx, "sess-1"))
	_, err = session.Get[cart](ctx, store, "sess-1", "cart")
	assert.ErrorIs(t, err, session.ErrNoValue)
}

func TestNotificationPublishAgainstKafka(t *testing.T) {
	env, _ := setup(t)
	ctx := context.Background()

	pub := notificationkafka.NewPublisher(discard(), env.Brokers, "notification.events")
	t.Cleanup(func() { _ = pub.Close() })

	err := pub.SendEmail(ctx, notification.Email{To: "ada@example.com", Subject: "hi", Body: "hello"})
	assert.NoError(t, err)
}
