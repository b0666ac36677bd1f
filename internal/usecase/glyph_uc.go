package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"glyph-dict-activation/internal/domain"
	"glyph-dict-activation/internal/domain/model"
	"glyph-dict-activation/internal/domain/ports/repository"
)

// Search modes accepted by Search.
const (
	SearchDefinition    = "definition"
	SearchPinyin        = "pinyin"
	SearchCharType      = "char_type"
	SearchPhoneticGroup = "phonetic_group"
)

// Identity describes one query facet available for a glyph.
type Identity struct {
	Type  string `json:"type"`
	Query string `json:"query"`
	Label string `json:"label"`
}

// glyphIndex is an immutable snapshot of the dictionary built once from the
// glyph table. Readers share it without locking; Rebuild swaps in a fresh
// snapshot atomically.
type glyphIndex struct {
	byGlyph    map[string]*model.GlyphEntry
	byPinyin   map[string][]*model.GlyphEntry
	byCharType map[string][]*model.GlyphEntry
	byRadical  map[string][]*model.GlyphEntry
}

// GlyphUseCase serves dictionary lookups from the in-memory snapshot. It is
// read-only after Rebuild; the entitlement guard is applied by the transport
// layer before any of these queries run.
type GlyphUseCase struct {
	repo repository.GlyphRepository
	log  *zerolog.Logger
	snap atomic.Pointer[glyphIndex]
}

func NewGlyphUseCase(repo repository.GlyphRepository, logger *zerolog.Logger) *GlyphUseCase {
	return &GlyphUseCase{repo: repo, log: logger}
}

// Rebuild loads every entry and swaps the derived indexes in atomically.
// Called once at startup and again on an explicit admin reload.
func (uc *GlyphUseCase) Rebuild(ctx context.Context) error {
	entries, err := uc.repo.LoadAll(ctx, repository.NoTX)
	if err != nil {
		return fmt.Errorf("load glyph entries: %w", err)
	}

	idx := &glyphIndex{
		byGlyph:    make(map[string]*model.GlyphEntry, len(entries)),
		byPinyin:   make(map[string][]*model.GlyphEntry),
		byCharType: make(map[string][]*model.GlyphEntry),
		byRadical:  make(map[string][]*model.GlyphEntry),
	}
	for _, e := range entries {
		idx.byGlyph[e.Glyph] = e
		if p := strings.ToLower(e.Pinyin); p != "" {
			idx.byPinyin[p] = append(idx.byPinyin[p], e)
		}
		for _, t := range e.CharTypes {
			idx.byCharType[t] = append(idx.byCharType[t], e)
		}
		if e.Components != nil && e.Components.PhoneticRadical != "" {
			r := e.Components.PhoneticRadical
			idx.byRadical[r] = append(idx.byRadical[r], e)
		}
	}

	uc.snap.Store(idx)
	uc.log.Info().Int("entries", len(entries)).Msg("glyph index built")
	return nil
}

func (uc *GlyphUseCase) index() (*glyphIndex, error) {
	idx := uc.snap.Load()
	if idx == nil {
		return nil, fmt.Errorf("glyph index not built")
	}
	return idx, nil
}

// Count returns the number of indexed entries.
func (uc *GlyphUseCase) Count() int {
	if idx := uc.snap.Load(); idx != nil {
		return len(idx.byGlyph)
	}
	return 0
}

// Lookup returns the entry for an exact glyph key.
func (uc *GlyphUseCase) Lookup(glyph string) (*model.GlyphEntry, error) {
	idx, err := uc.index()
	if err != nil {
		return nil, err
	}
	e, ok := idx.byGlyph[glyph]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

// Identities lists the query facets available for a glyph: its definition
// always, and its phonetic group when the glyph is a radical or carries a
// radical back-reference.
func (uc *GlyphUseCase) Identities(glyph string) ([]Identity, error) {
	e, err := uc.Lookup(glyph)
	if err != nil {
		return nil, err
	}
	ids := []Identity{{
		Type:  SearchDefinition,
		Query: glyph,
		Label: fmt.Sprintf("查看“%s”的定义", glyph),
	}}
	if e.PhoneticRadical() != "" {
		ids = append(ids, Identity{
			Type:  SearchPhoneticGroup,
			Query: glyph,
			Label: fmt.Sprintf("查看“%s”所属的形声字组", glyph),
		})
	}
	return ids, nil
}

// Search runs one of the four query modes. Results are deduplicated by
// glyph before return.
func (uc *GlyphUseCase) Search(searchType, query string) ([]*model.GlyphEntry, error) {
	idx, err := uc.index()
	if err != nil {
		return nil, err
	}

	var results []*model.GlyphEntry
	switch searchType {
	case SearchDefinition:
		if e, ok := idx.byGlyph[query]; ok {
			results = append(results, e)
		}
	case SearchPinyin:
		results = idx.byPinyin[strings.ToLower(query)]
	case SearchCharType:
		results = idx.byCharType[query]
	case SearchPhoneticGroup:
		results = phoneticGroup(idx, query)
	default:
		return nil, domain.ErrInvalidArgument
	}
	return dedupeByGlyph(results), nil
}

// phoneticGroup resolves the group leader for query and returns every
// member sharing it, including the leader itself. A glyph with no group
// falls back to its own entry.
func phoneticGroup(idx *glyphIndex, query string) []*model.GlyphEntry {
	entry := idx.byGlyph[query]
	var radical string
	if entry != nil {
		radical = entry.PhoneticRadical()
	}
	if radical == "" {
		if entry != nil {
			return []*model.GlyphEntry{entry}
		}
		return nil
	}

	var out []*model.GlyphEntry
	if leader, ok := idx.byGlyph[radical]; ok {
		out = append(out, leader)
	}
	out = append(out, idx.byRadical[radical]...)
	return out
}

func dedupeByGlyph(in []*model.GlyphEntry) []*model.GlyphEntry {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]*model.GlyphEntry, 0, len(in))
	for _, e := range in {
		if _, dup := seen[e.Glyph]; dup {
			continue
		}
		seen[e.Glyph] = struct{}{}
		out = append(out, e)
	}
	return out
}
