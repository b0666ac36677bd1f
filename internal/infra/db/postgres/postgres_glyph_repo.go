package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"glyph-dict-activation/internal/domain"
	"glyph-dict-activation/internal/domain/model"
	"glyph-dict-activation/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.GlyphRepository = (*glyphRepo)(nil)

type glyphRepo struct {
	pool *pgxpool.Pool
}

func NewGlyphRepo(pool *pgxpool.Pool) repository.GlyphRepository {
	return &glyphRepo{pool: pool}
}

// LoadAll decodes every JSONB document into a typed entry. The glyph column
// is authoritative for the key; the document may omit it.
func (r *glyphRepo) LoadAll(ctx context.Context, tx repository.Tx) ([]*model.GlyphEntry, error) {
	const q = `SELECT glyph, data FROM glyphs;`
	rows, err := pickRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.GlyphEntry
	for rows.Next() {
		var (
			glyph string
			raw   []byte
		)
		if err := rows.Scan(&glyph, &raw); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		var e model.GlyphEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode glyph %q: %w", glyph, err)
		}
		e.Glyph = glyph
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *glyphRepo) UpsertBatch(ctx context.Context, tx repository.Tx, entries []*model.GlyphEntry) error {
	const q = `
INSERT INTO glyphs (glyph, data)
VALUES ($1, $2)
ON CONFLICT (glyph) DO UPDATE SET data = EXCLUDED.data;
`
	for _, e := range entries {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode glyph %q: %w", e.Glyph, err)
		}
		if _, err := execSQL(ctx, r.pool, tx, q, e.Glyph, raw); err != nil {
			return err
		}
	}
	return nil
}
