package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"glyph-dict-activation/internal/domain"
	"glyph-dict-activation/internal/domain/model"
	"glyph-dict-activation/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.CodeRepository = (*codeRepo)(nil)

type codeRepo struct {
	pool *pgxpool.Pool
}

func NewCodeRepo(pool *pgxpool.Pool) repository.CodeRepository {
	return &codeRepo{pool: pool}
}

// InsertBatch inserts generated tokens one statement at a time inside the
// caller's transaction. ON CONFLICT DO NOTHING lets the caller detect a
// collided token (absent from the returned slice) and regenerate it.
func (r *codeRepo) InsertBatch(ctx context.Context, tx repository.Tx, codes []*model.ActivationCode) ([]string, error) {
	const q = `
INSERT INTO activation_codes (code, plan_type, redeemed_by, created_at)
VALUES ($1, $2, NULL, $3)
ON CONFLICT (code) DO NOTHING;
`
	inserted := make([]string, 0, len(codes))
	for _, c := range codes {
		tag, err := execSQL(ctx, r.pool, tx, q, c.Code, c.PlanType, c.CreatedAt)
		if err != nil {
			return inserted, err
		}
		if tag.RowsAffected() == 1 {
			inserted = append(inserted, c.Code)
		}
	}
	return inserted, nil
}

// FindForRedemption reads the code row and locks it until the enclosing
// transaction ends, so concurrent redemptions of the same code serialize.
func (r *codeRepo) FindForRedemption(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error) {
	const q = `
SELECT code, plan_type, redeemed_by, created_at
  FROM activation_codes
 WHERE code = $1
   FOR UPDATE;
`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}

	var ac model.ActivationCode
	err = row.Scan(&ac.Code, &ac.PlanType, &ac.RedeemedBy, &ac.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &ac, nil
}

// MarkRedeemed stamps the code with the consuming device. The redeemed_by
// IS NULL predicate makes the transition single-shot even without the row
// lock.
func (r *codeRepo) MarkRedeemed(ctx context.Context, tx repository.Tx, code, deviceID string) error {
	const q = `
UPDATE activation_codes
   SET redeemed_by = $2
 WHERE code = $1 AND redeemed_by IS NULL;
`
	tag, err := execSQL(ctx, r.pool, tx, q, code, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidCode
	}
	return nil
}

func (r *codeRepo) ClearRedemption(ctx context.Context, tx repository.Tx, code string) error {
	const q = `UPDATE activation_codes SET redeemed_by = NULL WHERE code = $1;`
	_, err := execSQL(ctx, r.pool, tx, q, code)
	return err
}

func (r *codeRepo) List(ctx context.Context, tx repository.Tx, filter repository.CodeFilter, page repository.Page) ([]*model.ActivationCode, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(code ILIKE $%d OR redeemed_by ILIKE $%d)", n, n))
	}
	if filter.UnusedOnly {
		conds = append(conds, "redeemed_by IS NULL")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	row, err := pickRow(ctx, r.pool, tx, "SELECT COUNT(*) FROM activation_codes"+where, args...)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}

	q := fmt.Sprintf(
		"SELECT code, plan_type, redeemed_by, created_at FROM activation_codes%s ORDER BY code DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2,
	)
	args = append(args, page.PerPage, page.Offset())

	rows, err := pickRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*model.ActivationCode
	for rows.Next() {
		var ac model.ActivationCode
		if err := rows.Scan(&ac.Code, &ac.PlanType, &ac.RedeemedBy, &ac.CreatedAt); err != nil {
			return nil, 0, domain.ErrReadDatabaseRow
		}
		out = append(out, &ac)
	}
	return out, total, rows.Err()
}

func (r *codeRepo) CountByRedemption(ctx context.Context, tx repository.Tx) (int, int, error) {
	const q = `
SELECT COUNT(*) FILTER (WHERE redeemed_by IS NULL),
       COUNT(*) FILTER (WHERE redeemed_by IS NOT NULL)
  FROM activation_codes;
`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, 0, err
	}
	var unused, used int
	if err := row.Scan(&unused, &used); err != nil {
		return 0, 0, domain.ErrReadDatabaseRow
	}
	return unused, used, nil
}
