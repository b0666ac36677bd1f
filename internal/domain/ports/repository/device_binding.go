package repository

import (
	"context"
	"time"

	"glyph-dict-activation/internal/domain/model"
)

// BindingFilter narrows binding listings. Search matches the device id as a
// substring.
type BindingFilter struct {
	Search string
}

// BindingRepository is the port for the device binding table.
type BindingRepository interface {
	// Insert creates the binding. The primary key constraint rejects a
	// second binding for the same device; that violation is surfaced as
	// domain.ErrAlreadyBound.
	Insert(ctx context.Context, tx Tx, b *model.DeviceBinding) error
	// FindByDevice returns the binding for deviceID, or domain.ErrNotFound.
	FindByDevice(ctx context.Context, tx Tx, deviceID string) (*model.DeviceBinding, error)
	// Delete removes the binding. Returns domain.ErrNotFound when absent.
	Delete(ctx context.Context, tx Tx, deviceID string) error
	// List returns a page of bindings matching the filter, most recently
	// activated first, together with the total match count.
	List(ctx context.Context, tx Tx, filter BindingFilter, page Page) ([]*model.DeviceBinding, int, error)
	// CountByExpiry returns (active, expired) totals relative to now.
	CountByExpiry(ctx context.Context, tx Tx, now time.Time) (int, int, error)
}
