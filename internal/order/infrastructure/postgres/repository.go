package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixzhu97/orderflow/internal/order/domain"
	"github.com/felixzhu97/orderflow/pkg/apperr"
	"github.com/felixzhu97/orderflow/pkg/uow"
)

// Repository stores orders in Postgres. Reads and writes go through the
// querier bound to the context, so calls inside a unit of work share its
// transaction.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) FindByID(ctx context.Context, id string) (domain.Order, error) {
	q := uow.QuerierFrom(ctx, r.pool)

	var row orderRow
	err := q.QueryRow(ctx, `
		SELECT id, user_id, status, total_amount::text, currency, shipping_address,
		       payment_method, reservation_ids, created_at, updated_at, version
		FROM orders WHERE id=$1`, id).
		Scan(&row.ID, &row.UserID, &row.Status, &row.TotalAmount, &row.Currency,
			&row.ShippingAddress, &row.PaymentMethod, &row.ReservationIDs,
			&row.CreatedAt, &row.UpdatedAt, &row.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, apperr.Newf(apperr.CodeNotFound, "order %s not found", id)
	}
	if err != nil {
		return domain.Order{}, apperr.Wrap(apperr.CodeInternal, "query order", err)
	}

	items, err := r.loadItems(ctx, q, id)
	if err != nil {
		return domain.Order{}, err
	}
	row.Items = items
	return row.toDomain()
}

func (r *Repository) FindByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.findAll(ctx, `
		SELECT id, user_id, status, total_amount::text, currency, shipping_address,
		       payment_method, reservation_ids, created_at, updated_at, version
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *Repository) FindByStatus(ctx context.Context, status domain.Status) ([]domain.Order, error) {
	return r.findAll(ctx, `
		SELECT id, user_id, status, total_amount::text, currency, shipping_address,
		       payment_method, reservation_ids, created_at, updated_at, version
		FROM orders WHERE status=$1 ORDER BY created_at DESC`, string(status))
}

func (r *Repository) FindByDateRange(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	return r.findAll(ctx, `
		SELECT id, user_id, status, total_amount::text, currency, shipping_address,
		       payment_method, reservation_ids, created_at, updated_at, version
		FROM orders WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at DESC`, from, to)
}

func (r *Repository) findAll(ctx context.Context, sql string, args ...any) ([]domain.Order, error) {
	q := uow.QuerierFrom(ctx, r.pool)

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "query orders", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var row orderRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.Status, &row.TotalAmount, &row.Currency,
			&row.ShippingAddress, &row.PaymentMethod, &row.ReservationIDs,
			&row.CreatedAt, &row.UpdatedAt, &row.Version); err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "scan order", err)
		}
		items, err := r.loadItems(ctx, q, row.ID)
		if err != nil {
			return nil, err
		}
		row.Items = items
		o, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Save inserts when Version is 0, otherwise performs a version-checked
// update. A stale version loses the race and fails with
// CONCURRENT_MODIFICATION; nothing is partially written.
func (r *Repository) Save(ctx context.Context, o domain.Order) (domain.Order, error) {
	q := uow.QuerierFrom(ctx, r.pool)
	row := orderRowFrom(o)

	if o.Version == 0 {
		row.Version = 1
		_, err := q.Exec(ctx, `
			INSERT INTO orders (id, user_id, status, total_amount, currency, shipping_address,
			                    payment_method, reservation_ids, created_at, updated_at, version)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			row.ID, row.UserID, row.Status, row.TotalAmount, row.Currency,
			row.ShippingAddress, row.PaymentMethod, row.ReservationIDs,
			row.CreatedAt, row.UpdatedAt, row.Version)
		if err != nil {
			return domain.Order{}, apperr.Wrap(apperr.CodeInternal, "insert order", err)
		}
	} else {
		row.Version = o.Version + 1
		ct, err := q.Exec(ctx, `
			UPDATE orders SET status=$2, total_amount=$3, currency=$4, shipping_address=$5,
			       payment_method=$6, reservation_ids=$7, updated_at=$8, version=$9
			WHERE id=$1 AND version=$10`,
			row.ID, row.Status, row.TotalAmount, row.Currency, row.ShippingAddress,
			row.PaymentMethod, row.ReservationIDs, row.UpdatedAt, row.Version, o.Version)
		if err != nil {
			return domain.Order{}, apperr.Wrap(apperr.CodeInternal, "update order", err)
		}
		if ct.RowsAffected() == 0 {
			return domain.Order{}, apperr.Newf(apperr.CodeConcurrentModification,
				"order %s was modified concurrently", o.ID)
		}
	}

	if err := r.saveItems(ctx, q, o); err != nil {
		return domain.Order{}, err
	}

	o.Version = row.Version
	return o, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	q := uow.QuerierFrom(ctx, r.pool)
	ct, err := q.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "delete order", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.Newf(apperr.CodeNotFound, "order %s not found", id)
	}
	return nil
}

func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	q := uow.QuerierFrom(ctx, r.pool)
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
		return false, apperr.Wrap(apperr.CodeInternal, "check order exists", err)
	}
	return exists, nil
}

func (r *Repository) loadItems(ctx context.Context, q uow.Querier, orderID string) ([]itemRow, error) {
	rows, err := q.Query(ctx, `
		SELECT product_id, quantity, unit_price::text
		FROM order_items WHERE order_id=$1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "query order items", err)
	}
	defer rows.Close()

	var items []itemRow
	for rows.Next() {
		var it itemRow
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "scan order item", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repository) saveItems(ctx context.Context, q uow.Querier, o domain.Order) error {
	if _, err := q.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, o.ID); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "clear order items", err)
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES ($1,$2,$3,$4)`,
			o.ID, item.ProductID, item.Quantity, item.UnitPrice.Amount().String())
	}
	if err := q.SendBatch(ctx, batch).Close(); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "insert order items", err)
	}
	return nil
}
