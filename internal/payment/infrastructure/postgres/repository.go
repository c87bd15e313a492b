package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixzhu97/orderflow/internal/money"
	"github.com/felixzhu97/orderflow/internal/payment/domain"
	"github.com/felixzhu97/orderflow/pkg/apperr"
	"github.com/felixzhu97/orderflow/pkg/uow"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) FindByOrderID(ctx context.Context, orderID string) (domain.Payment, error) {
	q := uow.QuerierFrom(ctx, r.pool)

	var row paymentRow
	err := q.QueryRow(ctx, `
		SELECT id, order_id, amount::text, currency, method, status, transaction_id,
		       created_at, updated_at, version
		FROM payments WHERE order_id=$1
		ORDER BY created_at DESC LIMIT 1`, orderID).
		Scan(&row.ID, &row.OrderID, &row.Amount, &row.Currency, &row.Method,
			&row.Status, &row.TransactionID, &row.CreatedAt, &row.UpdatedAt, &row.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, apperr.Newf(apperr.CodeNotFound, "payment for order %s not found", orderID)
	}
	if err != nil {
		return domain.Payment{}, apperr.Wrap(apperr.CodeInternal, "query payment", err)
	}
	return row.toDomain()
}

func (r *Repository) Save(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	q := uow.QuerierFrom(ctx, r.pool)
	row := paymentRowFrom(p)

	if p.Version == 0 {
		row.Version = 1
		_, err := q.Exec(ctx, `
			INSERT INTO payments (id, order_id, amount, currency, method, status,
			                      transaction_id, created_at, updated_at, version)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			row.ID, row.OrderID, row.Amount, row.Currency, row.Method, row.Status,
			row.TransactionID, row.CreatedAt, row.UpdatedAt, row.Version)
		if err != nil {
			return domain.Payment{}, apperr.Wrap(apperr.CodeInternal, "insert payment", err)
		}
	} else {
		row.Version = p.Version + 1
		ct, err := q.Exec(ctx, `
			UPDATE payments SET status=$2, transaction_id=$3, updated_at=$4, version=$5
			WHERE id=$1 AND version=$6`,
			row.ID, row.Status, row.TransactionID, row.UpdatedAt, row.Version, p.Version)
		if err != nil {
			return domain.Payment{}, apperr.Wrap(apperr.CodeInternal, "update payment", err)
		}
		if ct.RowsAffected() == 0 {
			return domain.Payment{}, apperr.Newf(apperr.CodeConcurrentModification,
				"payment %s was modified concurrently", p.ID)
		}
	}

	p.Version = row.Version
	return p, nil
}

type paymentRow struct {
	ID            string
	OrderID       string
	Amount        string
	Currency      string
	Method        string
	Status        string
	TransactionID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int
}

func paymentRowFrom(p domain.Payment) paymentRow {
	return paymentRow{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Amount:        p.Amount.Amount().String(),
		Currency:      p.Amount.Currency(),
		Method:        p.Method,
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		Version:       p.Version,
	}
}

func (r paymentRow) toDomain() (domain.Payment, error) {
	amount, err := money.FromString(r.Amount, r.Currency)
	if err != nil {
		return domain.Payment{}, apperr.Wrap(apperr.CodeInternal, "malformed payment amount in store", err)
	}
	return domain.Reconstruct(
		r.ID, r.OrderID, amount, r.Method, domain.Status(r.Status),
		r.TransactionID, r.CreatedAt, r.UpdatedAt, r.Version,
	), nil
}
