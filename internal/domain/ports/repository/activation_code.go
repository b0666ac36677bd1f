package repository

import (
	"context"

	"glyph-dict-activation/internal/domain/model"
)

// Page bounds a listing query. Number is 1-based.
type Page struct {
	Number  int
	PerPage int
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.PerPage
}

// CodeFilter narrows code listings. Search matches the token or the
// redeeming device id as a substring; UnusedOnly keeps unredeemed codes.
type CodeFilter struct {
	Search     string
	UnusedOnly bool
}

// CodeRepository is the port for the activation code table. The store owns
// the rows exclusively; every mutation runs inside a single transaction
// supplied by the caller through tx.
type CodeRepository interface {
	// InsertBatch persists freshly generated codes, skipping any token that
	// collides with an existing primary key. Returns the tokens that were
	// actually inserted.
	InsertBatch(ctx context.Context, tx Tx, codes []*model.ActivationCode) ([]string, error)
	// FindForRedemption reads a code row and locks it for the duration of
	// the enclosing transaction. Returns domain.ErrNotFound when absent.
	FindForRedemption(ctx context.Context, tx Tx, code string) (*model.ActivationCode, error)
	// MarkRedeemed stamps the code with the consuming device id.
	MarkRedeemed(ctx context.Context, tx Tx, code, deviceID string) error
	// ClearRedemption resets RedeemedBy to NULL, freeing the code for reuse.
	ClearRedemption(ctx context.Context, tx Tx, code string) error
	// List returns a page of codes matching the filter, newest token first,
	// together with the total match count.
	List(ctx context.Context, tx Tx, filter CodeFilter, page Page) ([]*model.ActivationCode, int, error)
	// CountByRedemption returns (unused, used) totals.
	CountByRedemption(ctx context.Context, tx Tx) (int, int, error)
}
