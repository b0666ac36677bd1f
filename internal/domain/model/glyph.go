package model

// GlyphComponents holds structural decomposition of a glyph. Only the
// phonetic radical back-reference matters for group resolution.
type GlyphComponents struct {
	PhoneticRadical string `json:"phonetic_radical,omitempty"`
}

// GlyphEntry is one dictionary record, stored as a JSON document per row
// and decoded once at index-build time.
type GlyphEntry struct {
	Glyph             string           `json:"glyph"`
	Pinyin            string           `json:"pinyin,omitempty"`
	Definition        string           `json:"definition,omitempty"`
	CharTypes         []string         `json:"char_type,omitempty"`
	IsPhoneticRadical bool             `json:"is_phonetic_radical,omitempty"`
	Components        *GlyphComponents `json:"components,omitempty"`
}

// PhoneticRadical resolves the group leader for this entry: the entry's own
// glyph if it is marked as a radical, otherwise the back-reference from its
// components. Empty when the entry belongs to no phonetic group.
func (e *GlyphEntry) PhoneticRadical() string {
	if e.IsPhoneticRadical {
		return e.Glyph
	}
	if e.Components != nil {
		return e.Components.PhoneticRadical
	}
	return ""
}
