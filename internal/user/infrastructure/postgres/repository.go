package postgres

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixzhu97/orderflow/internal/user/domain"
	"github.com/felixzhu97/orderflow/pkg/apperr"
	"github.com/felixzhu97/orderflow/pkg/uow"
)

// Repository stores user accounts in Postgres. Unique indexes on email and
// username back the service-level duplicate checks; a race that slips past
// the pre-check surfaces here as a unique violation.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const userColumns = `id, username, email, password_hash, first_name, last_name, phone,
	status, role, email_verified, failed_login_attempts, locked_until,
	created_at, updated_at, version`

func (r *Repository) FindByID(ctx context.Context, id string) (domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, strings.ToLower(email))
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
}

func (r *Repository) findOne(ctx context.Context, sql string, arg any) (domain.User, error) {
	q := uow.QuerierFrom(ctx, r.pool)

	var row userRow
	err := q.QueryRow(ctx, sql, arg).Scan(
		&row.ID, &row.Username, &row.Email, &row.PasswordHash,
		&row.FirstName, &row.LastName, &row.Phone,
		&row.Status, &row.Role, &row.EmailVerified,
		&row.FailedLoginAttempts, &row.LockedUntil,
		&row.CreatedAt, &row.UpdatedAt, &row.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, apperr.New(apperr.CodeNotFound, "user not found")
	}
	if err != nil {
		return domain.User{}, apperr.Wrap(apperr.CodeInternal, "query user", err)
	}
	return row.toDomain(), nil
}

func (r *Repository) Save(ctx context.Context, u domain.User) (domain.User, error) {
	q := uow.QuerierFrom(ctx, r.pool)
	row := userRowFrom(u)

	if u.Version == 0 {
		row.Version = 1
		_, err := q.Exec(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			row.ID, row.Username, row.Email, row.PasswordHash,
			row.FirstName, row.LastName, row.Phone,
			row.Status, row.Role, row.EmailVerified,
			row.FailedLoginAttempts, row.LockedUntil,
			row.CreatedAt, row.UpdatedAt, row.Version)
		if err != nil {
			return domain.User{}, mapUniqueViolation(err)
		}
	} else {
		row.Version = u.Version + 1
		ct, err := q.Exec(ctx, `
			UPDATE users SET username=$2, email=$3, password_hash=$4, first_name=$5,
			       last_name=$6, phone=$7, status=$8, role=$9, email_verified=$10,
			       failed_login_attempts=$11, locked_until=$12, updated_at=$13, version=$14
			WHERE id=$1 AND version=$15`,
			row.ID, row.Username, row.Email, row.PasswordHash,
			row.FirstName, row.LastName, row.Phone,
			row.Status, row.Role, row.EmailVerified,
			row.FailedLoginAttempts, row.LockedUntil,
			row.UpdatedAt, row.Version, u.Version)
		if err != nil {
			return domain.User{}, mapUniqueViolation(err)
		}
		if ct.RowsAffected() == 0 {
			return domain.User{}, apperr.Newf(apperr.CodeConcurrentModification,
				"user %s was modified concurrently", u.ID)
		}
	}

	u.Version = row.Version
	return u, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	q := uow.QuerierFrom(ctx, r.pool)
	ct, err := q.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "delete user", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.Newf(apperr.CodeNotFound, "user %s not found", id)
	}
	return nil
}

func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)`, strings.ToLower(email))
}

func (r *Repository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username=$1)`, username)
}

func (r *Repository) exists(ctx context.Context, sql string, arg any) (bool, error) {
	q := uow.QuerierFrom(ctx, r.pool)
	var exists bool
	if err := q.QueryRow(ctx, sql, arg).Scan(&exists); err != nil {
		return false, apperr.Wrap(apperr.CodeInternal, "check user exists", err)
	}
	return exists, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			return domain.ErrDuplicateEmail
		case strings.Contains(pgErr.ConstraintName, "username"):
			return domain.ErrDuplicateUsername
		}
	}
	return apperr.Wrap(apperr.CodeInternal, "save user", err)
}

type userRow struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	FirstName           string
	LastName            string
	Phone               string
	Status              string
	Role                string
	EmailVerified       bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Version             int
}

func userRowFrom(u domain.User) userRow {
	return userRow{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		PasswordHash:        u.PasswordHash,
		FirstName:           u.Profile.FirstName,
		LastName:            u.Profile.LastName,
		Phone:               u.Profile.Phone,
		Status:              string(u.Status),
		Role:                string(u.Role),
		EmailVerified:       u.EmailVerified,
		FailedLoginAttempts: u.FailedLoginAttempts,
		LockedUntil:         u.LockedUntil,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
		Version:             u.Version,
	}
}

func (r userRow) toDomain() domain.User {
	return domain.Reconstruct(
		r.ID, r.Username, r.Email, r.PasswordHash,
		domain.Profile{FirstName: r.FirstName, LastName: r.LastName, Phone: r.Phone},
		domain.Status(r.Status), domain.Role(r.Role),
		r.EmailVerified, r.FailedLoginAttempts, r.LockedUntil,
		r.CreatedAt, r.UpdatedAt, r.Version,
	)
}
