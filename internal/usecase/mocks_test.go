//go:build !integration

package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"glyph-dict-activation/internal/domain"
	"glyph-dict-activation/internal/domain/model"
	"glyph-dict-activation/internal/domain/ports/repository"
)

// --- In-memory repositories for use case tests ---

// memTxManager serializes callbacks with a mutex, which stands in for the
// row locking the Postgres implementation relies on.
type memTxManager struct{ mu sync.Mutex }

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, nil)
}

type memCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.ActivationCode
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{codes: map[string]*model.ActivationCode{}}
}

func (m *memCodeRepo) InsertBatch(ctx context.Context, _ repository.Tx, codes []*model.ActivationCode) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var inserted []string
	for _, c := range codes {
		if _, exists := m.codes[c.Code]; exists {
			continue
		}
		cp := *c
		m.codes[c.Code] = &cp
		inserted = append(inserted, c.Code)
	}
	return inserted, nil
}

func (m *memCodeRepo) FindForRedemption(ctx context.Context, _ repository.Tx, code string) (*model.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCodeRepo) MarkRedeemed(ctx context.Context, _ repository.Tx, code, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[code]
	if !ok || c.RedeemedBy != nil {
		return domain.ErrInvalidCode
	}
	id := deviceID
	c.RedeemedBy = &id
	return nil
}

func (m *memCodeRepo) ClearRedemption(ctx context.Context, _ repository.Tx, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.codes[code]; ok {
		c.RedeemedBy = nil
	}
	return nil
}

func (m *memCodeRepo) List(ctx context.Context, _ repository.Tx, filter repository.CodeFilter, page repository.Page) ([]*model.ActivationCode, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*model.ActivationCode
	for _, c := range m.codes {
		if filter.UnusedOnly && c.RedeemedBy != nil {
			continue
		}
		if filter.Search != "" {
			hit := strings.Contains(c.Code, filter.Search)
			if !hit && c.RedeemedBy != nil {
				hit = strings.Contains(*c.RedeemedBy, filter.Search)
			}
			if !hit {
				continue
			}
		}
		cp := *c
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code > all[j].Code })
	total := len(all)
	return paginate(all, page), total, nil
}

func (m *memCodeRepo) CountByRedemption(ctx context.Context, _ repository.Tx) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var unused, used int
	for _, c := range m.codes {
		if c.RedeemedBy == nil {
			unused++
		} else {
			used++
		}
	}
	return unused, used, nil
}

type memBindingRepo struct {
	mu       sync.Mutex
	bindings map[string]*model.DeviceBinding
}

func newMemBindingRepo() *memBindingRepo {
	return &memBindingRepo{bindings: map[string]*model.DeviceBinding{}}
}

func (m *memBindingRepo) Insert(ctx context.Context, _ repository.Tx, b *model.DeviceBinding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bindings[b.DeviceID]; exists {
		return domain.ErrAlreadyBound
	}
	cp := *b
	m.bindings[b.DeviceID] = &cp
	return nil
}

func (m *memBindingRepo) FindByDevice(ctx context.Context, _ repository.Tx, deviceID string) (*model.DeviceBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bindings[deviceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBindingRepo) Delete(ctx context.Context, _ repository.Tx, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bindings[deviceID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.bindings, deviceID)
	return nil
}

func (m *memBindingRepo) List(ctx context.Context, _ repository.Tx, filter repository.BindingFilter, page repository.Page) ([]*model.DeviceBinding, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*model.DeviceBinding
	for _, b := range m.bindings {
		if filter.Search != "" && !strings.Contains(b.DeviceID, filter.Search) {
			continue
		}
		cp := *b
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ActivatedAt.After(all[j].ActivatedAt) })
	total := len(all)
	return paginate(all, page), total, nil
}

func (m *memBindingRepo) CountByExpiry(ctx context.Context, _ repository.Tx, now time.Time) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active, expired int
	for _, b := range m.bindings {
		if b.ExpiresAt.After(now) {
			active++
		} else {
			expired++
		}
	}
	return active, expired, nil
}

type memGlyphRepo struct {
	mu      sync.Mutex
	entries map[string]*model.GlyphEntry
}

func newMemGlyphRepo(entries ...*model.GlyphEntry) *memGlyphRepo {
	r := &memGlyphRepo{entries: map[string]*model.GlyphEntry{}}
	for _, e := range entries {
		r.entries[e.Glyph] = e
	}
	return r
}

func (m *memGlyphRepo) LoadAll(ctx context.Context, _ repository.Tx) ([]*model.GlyphEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.GlyphEntry
	for _, e := range m.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memGlyphRepo) UpsertBatch(ctx context.Context, _ repository.Tx, entries []*model.GlyphEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		cp := *e
		m.entries[e.Glyph] = &cp
	}
	return nil
}

func paginate[T any](in []T, page repository.Page) []T {
	off := page.Offset()
	if off >= len(in) {
		return nil
	}
	end := off + page.PerPage
	if page.PerPage <= 0 || end > len(in) {
		end = len(in)
	}
	return in[off:end]
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
