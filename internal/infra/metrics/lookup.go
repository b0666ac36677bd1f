package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		lookupsTotal,
		guardRejectionsTotal,
		glyphIndexEntries,
	)
}

var (
	lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glyph_lookups_total",
			Help: "Dictionary queries by search mode.",
		},
		[]string{"mode"}, // 'definition', 'pinyin', 'char_type', 'phonetic_group', 'identities'
	)

	guardRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guard_rejections_total",
			Help: "Entitlement guard rejections by reason.",
		},
		[]string{"reason"}, // 'unauthorized', 'expired'
	)

	glyphIndexEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "glyph_index_entries",
			Help: "Number of entries in the current glyph index snapshot.",
		},
	)
)

func IncLookup(mode string) {
	lookupsTotal.WithLabelValues(mode).Inc()
}

func IncGuardRejection(reason string) {
	guardRejectionsTotal.WithLabelValues(reason).Inc()
}

func SetGlyphIndexEntries(n int) {
	glyphIndexEntries.Set(float64(n))
}
