package otmetrics

import (
	"github.com/npillmayer/cjkmetrics/ot"
)

// Feature tags carrying alternate metrics.
var (
	TagPalt = ot.T("palt") // proportional alternate widths
	TagVpal = ot.T("vpal") // proportional alternate vertical metrics
)

// CanRead reports whether a GPOSReader can extract alternate metrics from
// the given font, i.e. whether the font carries a GPOS table. Absence of a
// vmtx table is tolerated.
func CanRead(otf *ot.Font) bool {
	return otf != nil && otf.Layout.GPos != nil
}

// GPOSReader extracts alternate metrics from the GPOS table of a compiled
// font. All indices are built once at construction from the parsed font and
// never mutated afterward; a GPOSReader is safe to query repeatedly.
type GPOSReader struct {
	otf  *ot.Font
	tags []ot.Tag // distinct feature tags, first-seen order

	// tag/lookup and lookup/adjustment indices form a shared many-to-many
	// structure. Lookups are keyed by their stable position in the GPOS
	// lookup list, so a lookup referenced by several feature tags is
	// decoded exactly once.
	tagLookups        map[ot.Tag][]int
	lookupAdjustments [][]Adjustment

	insets   map[string]EdgeInsets
	vmetrics map[string]VerticalMetrics
}

var _ Reader = &GPOSReader{}

// NewGPOSReader builds a metrics reader over a parsed font.
// Fonts without a GPOS table yield a reader with HasMetrics() == false and
// empty results; this is not an error.
func NewGPOSReader(otf *ot.Font) *GPOSReader {
	r := &GPOSReader{
		otf:        otf,
		tagLookups: make(map[ot.Tag][]int),
		insets:     make(map[string]EdgeInsets),
		vmetrics:   make(map[string]VerticalMetrics),
	}
	r.setup()
	return r
}

func (r *GPOSReader) setup() {
	if r.otf == nil {
		return
	}
	if gpos := r.otf.Layout.GPos; gpos != nil {
		fl := gpos.FeatureList()
		r.tags = fl.Tags()
		for _, tag := range r.tags {
			r.tagLookups[tag] = fl.LookupIndicesFor(tag)
		}
		// Decode every lookup of the lookup list, not just the referenced
		// ones, so that lookups shared between tags are cached by index.
		r.lookupAdjustments = make([][]Adjustment, gpos.LookupCount())
		for i := 0; i < gpos.LookupCount(); i++ {
			r.lookupAdjustments[i] = adjustmentsFromLookup(gpos.Lookup(i))
		}
		r.buildInsets()
	}
	r.buildVerticalMetrics()
	tracer().Debugf("metrics reader set up: %d tags, %d glyphs with insets, %d vertical metrics",
		len(r.tags), len(r.insets), len(r.vmetrics))
}

// buildInsets groups the adjustments of all palt/vpal lookups by glyph, then
// reduces each glyph's group into one EdgeInsets. A glyph referenced by both
// tags receives a single entry: the contributions are summed before
// reduction, not overridden. A glyph entry is present whenever at least one
// adjustment was aggregated, even if the insets cancel out to zero.
func (r *GPOSReader) buildInsets() {
	grouped := make(map[ot.GlyphIndex][]Adjustment)
	for _, tag := range r.tags {
		if tag != TagPalt && tag != TagVpal {
			continue
		}
		for _, inx := range r.tagLookups[tag] {
			if inx < 0 || inx >= len(r.lookupAdjustments) {
				continue
			}
			for _, adj := range r.lookupAdjustments[inx] {
				grouped[adj.Glyph] = append(grouped[adj.Glyph], adj)
			}
		}
	}
	for gid, adjustments := range grouped {
		r.insets[r.otf.GlyphName(gid)] = reduce(adjustments)
	}
}

func (r *GPOSReader) buildVerticalMetrics() {
	vmtx := r.otf.VerticalMetrics()
	if vmtx == nil {
		return
	}
	for gid := 0; gid < vmtx.GlyphCount(); gid++ {
		height, tsb, ok := vmtx.VMetrics(ot.GlyphIndex(gid))
		if !ok {
			continue
		}
		r.vmetrics[r.otf.GlyphName(ot.GlyphIndex(gid))] = VerticalMetrics{
			Height:         height,
			TopSideBearing: tsb,
		}
	}
}

// Tags returns the distinct feature tags of the font's GPOS feature list,
// in first-appearance order.
func (r *GPOSReader) Tags() []ot.Tag {
	tags := make([]ot.Tag, len(r.tags))
	copy(tags, r.tags)
	return tags
}

// HasMetrics reports whether the font carries a palt or vpal feature.
func (r *GPOSReader) HasMetrics() bool {
	for _, tag := range r.tags {
		if tag == TagPalt || tag == TagVpal {
			return true
		}
	}
	return false
}

// EdgeInsets returns the reduced edge insets per glyph name. Entries are
// present only for glyphs with at least one contributing adjustment.
func (r *GPOSReader) EdgeInsets() map[string]EdgeInsets {
	insets := make(map[string]EdgeInsets, len(r.insets))
	for name, ins := range r.insets {
		insets[name] = ins
	}
	return insets
}

// VerticalMetrics returns the vmtx metrics per glyph name, or an empty map
// for fonts without a vmtx table.
func (r *GPOSReader) VerticalMetrics() map[string]VerticalMetrics {
	vmetrics := make(map[string]VerticalMetrics, len(r.vmetrics))
	for name, vm := range r.vmetrics {
		vmetrics[name] = vm
	}
	return vmetrics
}

// AdjustmentsForTag returns the flattened adjustments of all lookups
// referenced by a feature tag, an inspection utility with no side effects.
// Unknown tags yield an empty slice.
func (r *GPOSReader) AdjustmentsForTag(tag ot.Tag) []Adjustment {
	var adjustments []Adjustment
	for _, inx := range r.tagLookups[tag] {
		adjustments = append(adjustments, r.AdjustmentsForLookup(inx)...)
	}
	return adjustments
}

// AdjustmentsForLookup returns the adjustments decoded from lookup #inx of
// the GPOS lookup list. Out-of-range indices yield an empty slice.
func (r *GPOSReader) AdjustmentsForLookup(inx int) []Adjustment {
	if inx < 0 || inx >= len(r.lookupAdjustments) {
		return nil
	}
	adjustments := make([]Adjustment, len(r.lookupAdjustments[inx]))
	copy(adjustments, r.lookupAdjustments[inx])
	return adjustments
}

// adjustmentsFromLookup decodes a lookup's subtables into a flat adjustment
// list. Only single-adjustment subtables contribute; lookups of any other
// type carry no decoded subtables and yield nothing, which is the expected
// case for features other than palt/vpal.
func adjustmentsFromLookup(lookup *ot.Lookup) []Adjustment {
	if lookup == nil {
		return nil
	}
	var adjustments []Adjustment
	for _, st := range lookup.SinglePos {
		adjustments = append(adjustments, adjustmentsFromSubtable(st)...)
	}
	return adjustments
}

func adjustmentsFromSubtable(st ot.SinglePosSubtable) []Adjustment {
	if !supportedValueFormat(st.ValueFormat) {
		tracer().Debugf("value format %#x not an alternate-metrics layout, subtable skipped", st.ValueFormat)
		return nil
	}
	glyphs := st.Coverage.Glyphs()
	values := st.Values
	// A single value record is broadcast to every covered glyph. Otherwise
	// coverage and value list must be parallel arrays; on mismatch the
	// subtable is skipped.
	if len(values) != 1 && len(values) != len(glyphs) {
		tracer().Infof("subtable covers %d glyphs but carries %d values, skipped", len(glyphs), len(values))
		return nil
	}
	adjustments := make([]Adjustment, 0, len(glyphs))
	for i, glyph := range glyphs {
		value := values[0]
		if len(values) > 1 {
			value = values[i]
		}
		adjustments = append(adjustments, adjustmentFor(glyph, st.ValueFormat, value))
	}
	return adjustments
}

// supportedValueFormat matches a ValueFormat against the six single-field
// layouts the palt/vpal convention uses. Any other bit combination is
// unsupported and yields no adjustments.
func supportedValueFormat(format ot.ValueFormat) bool {
	switch format {
	case ot.ValueFormatXPlacement,
		ot.ValueFormatYPlacement,
		ot.ValueFormatXAdvance,
		ot.ValueFormatXPlacement | ot.ValueFormatXAdvance,
		ot.ValueFormatYAdvance,
		ot.ValueFormatYPlacement | ot.ValueFormatYAdvance:
		return true
	}
	return false
}

// adjustmentFor maps one value record to an adjustment, exhaustively over
// the six supported ValueFormat layouts.
func adjustmentFor(glyph ot.GlyphIndex, format ot.ValueFormat, v ot.ValueRecord) Adjustment {
	adj := Adjustment{Glyph: glyph}
	switch format {
	case ot.ValueFormatXPlacement:
		adj.Placement, adj.Direction = v.XPlacement, Horizontal
	case ot.ValueFormatYPlacement:
		adj.Placement, adj.Direction = v.YPlacement, Vertical
	case ot.ValueFormatXAdvance:
		adj.Advance, adj.Direction = v.XAdvance, Horizontal
	case ot.ValueFormatXPlacement | ot.ValueFormatXAdvance:
		adj.Placement, adj.Advance, adj.Direction = v.XPlacement, v.XAdvance, Horizontal
	case ot.ValueFormatYAdvance:
		adj.Advance, adj.Direction = v.YAdvance, Vertical
	case ot.ValueFormatYPlacement | ot.ValueFormatYAdvance:
		adj.Placement, adj.Advance, adj.Direction = v.YPlacement, v.YAdvance, Vertical
	}
	return adj
}
