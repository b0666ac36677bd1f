package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"glyph-dict-activation/internal/domain"
	"glyph-dict-activation/internal/domain/model"
	"glyph-dict-activation/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.BindingRepository = (*bindingRepo)(nil)

// uniqueViolation is the Postgres error code for a primary/unique key hit.
const uniqueViolation = "23505"

type bindingRepo struct {
	pool *pgxpool.Pool
}

func NewBindingRepo(pool *pgxpool.Pool) repository.BindingRepository {
	return &bindingRepo{pool: pool}
}

func (r *bindingRepo) Insert(ctx context.Context, tx repository.Tx, b *model.DeviceBinding) error {
	const q = `
INSERT INTO device_bindings (device_id, activation_code, plan_type, activated_at, expires_at)
VALUES ($1, $2, $3, $4, $5);
`
	_, err := execSQL(ctx, r.pool, tx, q, b.DeviceID, b.ActivationCode, b.PlanType, b.ActivatedAt, b.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyBound
		}
		return err
	}
	return nil
}

func (r *bindingRepo) FindByDevice(ctx context.Context, tx repository.Tx, deviceID string) (*model.DeviceBinding, error) {
	const q = `
SELECT device_id, activation_code, plan_type, activated_at, expires_at
  FROM device_bindings
 WHERE device_id = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, deviceID)
	if err != nil {
		return nil, err
	}

	var b model.DeviceBinding
	err = row.Scan(&b.DeviceID, &b.ActivationCode, &b.PlanType, &b.ActivatedAt, &b.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &b, nil
}

func (r *bindingRepo) Delete(ctx context.Context, tx repository.Tx, deviceID string) error {
	const q = `DELETE FROM device_bindings WHERE device_id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *bindingRepo) List(ctx context.Context, tx repository.Tx, filter repository.BindingFilter, page repository.Page) ([]*model.DeviceBinding, int, error) {
	where := ""
	var args []interface{}
	if filter.Search != "" {
		where = " WHERE device_id ILIKE $1"
		args = append(args, "%"+filter.Search+"%")
	}

	row, err := pickRow(ctx, r.pool, tx, "SELECT COUNT(*) FROM device_bindings"+where, args...)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}

	q := "SELECT device_id, activation_code, plan_type, activated_at, expires_at FROM device_bindings" + where
	if where == "" {
		q += " ORDER BY activated_at DESC LIMIT $1 OFFSET $2"
	} else {
		q += " ORDER BY activated_at DESC LIMIT $2 OFFSET $3"
	}
	args = append(args, page.PerPage, page.Offset())

	rows, err := pickRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*model.DeviceBinding
	for rows.Next() {
		var b model.DeviceBinding
		if err := rows.Scan(&b.DeviceID, &b.ActivationCode, &b.PlanType, &b.ActivatedAt, &b.ExpiresAt); err != nil {
			return nil, 0, domain.ErrReadDatabaseRow
		}
		out = append(out, &b)
	}
	return out, total, rows.Err()
}

func (r *bindingRepo) CountByExpiry(ctx context.Context, tx repository.Tx, now time.Time) (int, int, error) {
	const q = `
SELECT COUNT(*) FILTER (WHERE expires_at > $1),
       COUNT(*) FILTER (WHERE expires_at <= $1)
  FROM device_bindings;
`
	row, err := pickRow(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, 0, err
	}
	var active, expired int
	if err := row.Scan(&active, &expired); err != nil {
		return 0, 0, domain.ErrReadDatabaseRow
	}
	return active, expired, nil
}
