package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	inventoryapp "github.com/felixzhu97/orderflow/internal/inventory/application"
	inventorylocal "github.com/felixzhu97/orderflow/internal/inventory/infrastructure/local"
	inventorypg "github.com/felixzhu97/orderflow/internal/inventory/infrastructure/postgres"
	notificationkafka "github.com/felixzhu97/orderflow/internal/notification/kafka"
	orderapp "github.com/felixzhu97/orderflow/internal/order/application"
	orderpg "github.com/felixzhu97/orderflow/internal/order/infrastructure/postgres"
	"github.com/felixzhu97/orderflow/internal/payment/infrastructure/httpgw"
	paymentpg "github.com/felixzhu97/orderflow/internal/payment/infrastructure/postgres"
	"github.com/felixzhu97/orderflow/internal/storage/memory"
	transporthttp "github.com/felixzhu97/orderflow/internal/transport/http"
	userapp "github.com/felixzhu97/orderflow/internal/user/application"
	"github.com/felixzhu97/orderflow/internal/user/infrastructure/bcrypthash"
	userpg "github.com/felixzhu97/orderflow/internal/user/infrastructure/postgres"
	"github.com/felixzhu97/orderflow/pkg/config"
	"github.com/felixzhu97/orderflow/pkg/idempotency"
	"github.com/felixzhu97/orderflow/pkg/logging"
	"github.com/felixzhu97/orderflow/pkg/session"
	"github.com/felixzhu97/orderflow/pkg/shutdown"
	"github.com/felixzhu97/orderflow/pkg/tracing"
	"github.com/felixzhu97/orderflow/pkg/uow"
)

type repositories struct {
	tx           uow.Manager
	orders       orderapp.OrderRepository
	payments     orderapp.PaymentRepository
	users        userapp.UserRepository
	stocks       inventoryapp.StockRepository
	audits       inventoryapp.AuditRepository
	reservations inventoryapp.ReservationRepository
}

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	stopTracing, err := tracing.Init(ctx, "orderflow", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		gctx, gcancel := shutdown.Grace(5 * time.Second)
		defer gcancel()
		_ = stopTracing(gctx)
	}()

	repos, cleanup, err := buildRepositories(ctx, log, cfg)
	if err != nil {
		log.Error("storage init failed", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	notifier := notificationkafka.NewPublisher(log, cfg.KafkaBrokers, cfg.NotificationTopic)
	defer notifier.Close()

	inventoryGW := inventorylocal.NewGateway(log, repos.tx, repos.stocks, repos.reservations, cfg.ReservationTTL)
	paymentGW := httpgw.NewGateway(cfg.PaymentGatewayURL, cfg.GatewayTimeout)

	orderSvc := orderapp.NewService(log, repos.tx, repos.orders, repos.payments,
		paymentGW, inventoryGW, notifier, cfg.GatewayTimeout)
	userSvc := userapp.NewService(log, repos.tx, repos.users, bcrypthash.NewHasher(),
		notifier, cfg.LockThreshold, cfg.LockDuration, cfg.GatewayTimeout)
	inventorySvc := inventoryapp.NewService(log, repos.tx, repos.stocks, repos.audits,
		notifier, cfg.LowStockThreshold, cfg.GatewayTimeout)

	sessions := session.NewStore(rdb, cfg.SessionTTL)
	idemStore := idempotency.NewStore(rdb, cfg.IdempotencyTTL)

	handler := transporthttp.NewHandler(log, orderSvc, userSvc, inventorySvc, sessions, cfg.Currency)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.Routes(idempotency.Middleware(log, idemStore)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := shutdown.Grace(10 * time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("shutdown complete")
}

// buildRepositories selects the storage backend: Postgres when PG_URL is
// set, the snapshot-based in-memory stores otherwise.
func buildRepositories(ctx context.Context, log *slog.Logger, cfg config.Config) (repositories, func(), error) {
	if cfg.PostgresURL == "" {
		log.Info("using in-memory storage")
		orders := memory.NewOrderRepository()
		payments := memory.NewPaymentRepository()
		users := memory.NewUserRepository()
		stocks := memory.NewStockRepository()
		audits := memory.NewAuditRepository()
		reservations := memory.NewReservationRepository()

		return repositories{
			tx:           uow.NewMemoryManager(orders, payments, users, stocks, audits, reservations),
			orders:       orders,
			payments:     payments,
			users:        users,
			stocks:       stocks,
			audits:       audits,
			reservations: reservations,
		}, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return repositories{}, nil, err
	}
	return repositories{
		tx:           uow.NewPgxManager(pool),
		orders:       orderpg.NewRepository(log, pool),
		payments:     paymentpg.NewRepository(log, pool),
		users:        userpg.NewRepository(log, pool),
		stocks:       inventorypg.NewStockRepository(log, pool),
		audits:       inventorypg.NewAuditRepository(pool),
		reservations: inventorypg.NewReservationRepository(pool),
	}, pool.Close, nil
}
