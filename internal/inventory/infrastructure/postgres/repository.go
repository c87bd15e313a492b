package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixzhu97/orderflow/internal/inventory/domain"
	"github.com/felixzhu97/orderflow/pkg/apperr"
	"github.com/felixzhu97/orderflow/pkg/uow"
)

// StockRepository persists stock levels with a version column for optimistic
// concurrency. Two writers racing on the same product leave exactly one
// winner; the loser gets CONCURRENT_MODIFICATION and retries from a fresh
// read.
type StockRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewStockRepository(log *slog.Logger, pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{log: log, pool: pool}
}

func (r *StockRepository) FindByProductID(ctx context.Context, productID string) (domain.Stock, error) {
	q := uow.QuerierFrom(ctx, r.pool)

	var s domain.Stock
	err := q.QueryRow(ctx, `
		SELECT product_id, quantity, reserved, updated_at, version
		FROM stock WHERE product_id=$1`, productID).
		Scan(&s.ProductID, &s.Quantity, &s.Reserved, &s.UpdatedAt, &s.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Stock{}, apperr.Newf(apperr.CodeNotFound, "stock for product %s not found", productID)
	}
	if err != nil {
		return domain.Stock{}, apperr.Wrap(apperr.CodeInternal, "query stock", err)
	}
	return s, nil
}

func (r *StockRepository) FindAll(ctx context.Context) ([]domain.Stock, error) {
	q := uow.QuerierFrom(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT product_id, quantity, reserved, updated_at, version
		FROM stock ORDER BY product_id`)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "query stock levels", err)
	}
	defer rows.Close()

	var out []domain.Stock
	for rows.Next() {
		var s domain.Stock
		if err := rows.Scan(&s.ProductID, &s.Quantity, &s.Reserved, &s.UpdatedAt, &s.Version); err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "scan stock", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *StockRepository) Save(ctx context.Context, s domain.Stock) (domain.Stock, error) {
	q := uow.QuerierFrom(ctx, r.pool)

	if s.Version == 0 {
		s.Version = 1
		_, err := q.Exec(ctx, `
			INSERT INTO stock (product_id, quantity, reserved, updated_at, version)
			VALUES ($1,$2,$3,$4,$5)`,
			s.ProductID, s.Quantity, s.Reserved, s.UpdatedAt, s.Version)
		if err != nil {
			return domain.Stock{}, apperr.Wrap(apperr.CodeInternal, "insert stock", err)
		}
		return s, nil
	}

	expected := s.Version
	s.Version = expected + 1
	ct, err := q.Exec(ctx, `
		UPDATE stock SET quantity=$2, reserved=$3, updated_at=$4, version=$5
		WHERE product_id=$1 AND version=$6`,
		s.ProductID, s.Quantity, s.Reserved, s.UpdatedAt, s.Version, expected)
	if err != nil {
		return domain.Stock{}, apperr.Wrap(apperr.CodeInternal, "update stock", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.Stock{}, apperr.Newf(apperr.CodeConcurrentModification,
			"stock for product %s was modified concurrently", s.ProductID)
	}
	return s, nil
}

func (r *StockRepository) Exists(ctx context.Context, productID string) (bool, error) {
	q := uow.QuerierFrom(ctx, r.pool)
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM stock WHERE product_id=$1)`, productID).Scan(&exists); err != nil {
		return false, apperr.Wrap(apperr.CodeInternal, "check stock exists", err)
	}
	return exists, nil
}

// ReservationRepository stores stock holds keyed by reservation ID.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) FindByID(ctx context.Context, id string) (domain.Reservation, error) {
	q := uow.QuerierFrom(ctx, r.pool)

	var res domain.Reservation
	err := q.QueryRow(ctx, `
		SELECT id, product_id, quantity, expires_at, created_at
		FROM stock_reservations WHERE id=$1`, id).
		Scan(&res.ID, &res.ProductID, &res.Quantity, &res.ExpiresAt, &res.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, apperr.Newf(apperr.CodeNotFound, "reservation %s not found", id)
	}
	if err != nil {
		return domain.Reservation{}, apperr.Wrap(apperr.CodeInternal, "query reservation", err)
	}
	return res, nil
}

func (r *ReservationRepository) Save(ctx context.Context, res domain.Reservation) error {
	q := uow.QuerierFrom(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO stock_reservations (id, product_id, quantity, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO NOTHING`,
		res.ID, res.ProductID, res.Quantity, res.ExpiresAt, res.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "insert reservation", err)
	}
	return nil
}

func (r *ReservationRepository) Delete(ctx context.Context, id string) error {
	q := uow.QuerierFrom(ctx, r.pool)
	ct, err := q.Exec(ctx, `DELETE FROM stock_reservations WHERE id=$1`, id)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "delete reservation", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.Newf(apperr.CodeNotFound, "reservation %s not found", id)
	}
	return nil
}

// AuditRepository appends immutable audit rows for adjustments and
// stock-taking discrepancies.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) RecordAdjustment(ctx context.Context, a domain.Adjustment) error {
	q := uow.QuerierFrom(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO stock_adjustments (id, product_id, delta, reason, recorded_at)
		VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.ProductID, a.Delta, a.Reason, a.RecordedAt)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "insert stock adjustment", err)
	}
	return nil
}

func (r *AuditRepository) RecordDiscrepancy(ctx context.Context, d domain.Discrepancy) error {
	q := uow.QuerierFrom(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO stock_discrepancies (id, product_id, recorded, actual, recorded_at)
		VALUES ($1,$2,$3,$4,$5)`,
		d.ID, d.ProductID, d.Recorded, d.Actual, d.RecordedAt)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "insert stock discrepancy", err)
	}
	return nil
}
