package repository

import (
	"context"

	"glyph-dict-activation/internal/domain/model"
)

// GlyphRepository is the port for the read-mostly glyph dictionary table.
type GlyphRepository interface {
	// LoadAll reads and decodes every entry. Called at startup and on an
	// explicit index reload, never per request.
	LoadAll(ctx context.Context, tx Tx) ([]*model.GlyphEntry, error)
	// UpsertBatch writes entries keyed by glyph, replacing existing rows.
	// Used by the seed importer.
	UpsertBatch(ctx context.Context, tx Tx, entries []*model.GlyphEntry) error
}
