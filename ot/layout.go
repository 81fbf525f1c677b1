package ot

/*
From https://docs.microsoft.com/en-us/typography/opentype/spec/chapter2:

OpenType Layout consists of five tables: the Glyph Substitution table (GSUB),
the Glyph Positioning table (GPOS), the Baseline table (BASE),
the Justification table (JSTF), and the Glyph Definition table (GDEF).
These tables use some of the same data formats.

Of these, only GPOS is interpreted here, and only to the extent needed for
reading alternate-metrics features.
*/

import (
	"sort"
	"strconv"
)

// --- Layout tables ---------------------------------------------------------

// LayoutTable is a base type for layout tables.
// OpenType specifies two such tables–GPOS and GSUB–which share some of their
// structure. We only handle GPOS.
type LayoutTable struct {
	features *FeatureList
	lookups  []*Lookup
	header   *LayoutHeader
}

// Header returns the layout table header for this table.
func (t *LayoutTable) Header() LayoutHeader {
	return *t.header
}

// FeatureList returns the feature list of this layout table.
func (t *LayoutTable) FeatureList() *FeatureList {
	if t == nil {
		return nil
	}
	return t.features
}

// LookupCount returns the number of lookups in this layout table.
func (t *LayoutTable) LookupCount() int {
	if t == nil {
		return 0
	}
	return len(t.lookups)
}

// Lookup returns lookup #i from the lookup list, or nil if out of range.
// Lookup indices are stable; feature records reference lookups by index.
func (t *LayoutTable) Lookup(i int) *Lookup {
	if t == nil || i < 0 || i >= len(t.lookups) {
		return nil
	}
	return t.lookups[i]
}

// LayoutHeader represents header information common to the layout tables.
type LayoutHeader struct {
	versionHeader
	offsets layoutHeader11
}

// Version returns major and minor version numbers for this layout table.
func (h LayoutHeader) Version() (int, int) {
	return int(h.Major), int(h.Minor)
}

// offsetFor returns an offset for a layout table section within the layout
// table. A layout table contains four sections:
// ▪︎ Script Section,
// ▪︎ Feature Section,
// ▪︎ Lookup Section,
// ▪︎ Feature Variations Section.
func (h *LayoutHeader) offsetFor(which layoutTableSectionName) int {
	switch which {
	case layoutScriptSection:
		return int(h.offsets.ScriptListOffset)
	case layoutFeatureSection:
		return int(h.offsets.FeatureListOffset)
	case layoutLookupSection:
		return int(h.offsets.LookupListOffset)
	case layoutFeatureVariationsSection:
		return int(h.offsets.FeatureVariationsOffset)
	}
	tracer().Errorf("illegal section offset type into layout table: %d", which)
	return 0 // illegal call, nothing sensible to return
}

// versionHeader is the beginning of on-disk format of some format headers.
// See https://www.microsoft.com/typography/otspec/GPOS.htm
// Fields are public for reflection-access.
type versionHeader struct {
	Major uint16
	Minor uint16
}

// layoutHeader10 is the on-disk format of GPOS/GSUB version header when major=1 and minor=0.
// Fields are public for reflection-access.
type layoutHeader10 struct {
	ScriptListOffset  uint16 // offset to ScriptList table, from beginning of GPOS/GSUB table.
	FeatureListOffset uint16 // offset to FeatureList table, from beginning of GPOS/GSUB table.
	LookupListOffset  uint16 // offset to LookupList table, from beginning of GPOS/GSUB table.
}

// layoutHeader11 is the on-disk format of GPOS/GSUB version header when major=1 and minor=1.
// Fields are public for reflection-access.
type layoutHeader11 struct {
	layoutHeader10
	FeatureVariationsOffset uint32 // offset to FeatureVariations table, from beginning of GPOS/GSUB table (may be NULL).
}

// layoutTableSectionName lists the sections of OT layout tables.
type layoutTableSectionName int

const (
	layoutScriptSection layoutTableSectionName = iota
	layoutFeatureSection
	layoutLookupSection
	layoutFeatureVariationsSection
)

// LayoutTableLookupFlag is a flag type for layout tables (GPOS and GSUB).
type LayoutTableLookupFlag uint16

// Lookup flags of layout tables (GPOS and GSUB)
const ( // LookupFlag bit enumeration
	LOOKUP_FLAG_RIGHT_TO_LEFT             LayoutTableLookupFlag = 0x0001
	LOOKUP_FLAG_IGNORE_BASE_GLYPHS        LayoutTableLookupFlag = 0x0002 // If set, skips over base glyphs
	LOOKUP_FLAG_IGNORE_LIGATURES          LayoutTableLookupFlag = 0x0004 // If set, skips over ligatures
	LOOKUP_FLAG_IGNORE_MARKS              LayoutTableLookupFlag = 0x0008 // If set, skips over all combining marks
	LOOKUP_FLAG_USE_MARK_FILTERING_SET    LayoutTableLookupFlag = 0x0010 // If set, indicates that the lookup table structure is followed by a MarkFilteringSet field.
	LOOKUP_FLAG_MARK_ATTACHMENT_TYPE_MASK LayoutTableLookupFlag = 0xFF00 // If not zero, skips over all marks of attachment type different from specified.
)

// LayoutTableLookupType is a type identifier for layout lookup records.
type LayoutTableLookupType uint16

// --- Feature list ----------------------------------------------------------

// FeatureRecord is one entry of a layout table's feature list: a feature tag
// together with the indices of the lookups realizing the feature.
// A feature tag may occur more than once in a feature list, typically once
// per script/language-system it is registered for.
type FeatureRecord struct {
	Tag           Tag
	LookupIndices []uint16
}

// FeatureList is the list of feature records of a layout table, in file order.
type FeatureList struct {
	records []FeatureRecord
}

// Len returns the number of feature records.
func (fl *FeatureList) Len() int {
	if fl == nil {
		return 0
	}
	return len(fl.records)
}

// Record returns feature record #i.
func (fl *FeatureList) Record(i int) (FeatureRecord, bool) {
	if fl == nil || i < 0 || i >= len(fl.records) {
		return FeatureRecord{}, false
	}
	return fl.records[i], true
}

// Tags returns the feature tags of this list in file order, with duplicates
// removed (first occurrence wins).
func (fl *FeatureList) Tags() []Tag {
	if fl == nil {
		return nil
	}
	seen := make(map[Tag]bool, len(fl.records))
	tags := make([]Tag, 0, len(fl.records))
	for _, rec := range fl.records {
		if !seen[rec.Tag] {
			seen[rec.Tag] = true
			tags = append(tags, rec.Tag)
		}
	}
	return tags
}

// LookupIndicesFor returns the union of lookup indices over all feature
// records carrying the given tag, sorted ascending without duplicates.
func (fl *FeatureList) LookupIndicesFor(tag Tag) []int {
	if fl == nil {
		return nil
	}
	set := make(map[int]bool)
	for _, rec := range fl.records {
		if rec.Tag != tag {
			continue
		}
		for _, inx := range rec.LookupIndices {
			set[int(inx)] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	indices := make([]int, 0, len(set))
	for inx := range set {
		indices = append(indices, inx)
	}
	sort.Ints(indices)
	return indices
}

// --- Lookups ---------------------------------------------------------------

// Lookup is one lookup list entry of a layout table.
// For single-adjustment positioning lookups (GPOS type 1) the subtables are
// parsed into SinglePos entries; subtables of all other lookup types are left
// uninterpreted.
type Lookup struct {
	Type             LayoutTableLookupType
	Flag             LayoutTableLookupFlag
	MarkFilteringSet uint16
	SinglePos        []SinglePosSubtable
	subtableCount    int
}

// SubtableCount returns the number of subtables this lookup carries,
// including uninterpreted ones.
func (l *Lookup) SubtableCount() int {
	if l == nil {
		return 0
	}
	return l.subtableCount
}

// SinglePosSubtable is a GPOS lookup type 1 (single adjustment) subtable.
// Format 1 carries a single value record applying to every covered glyph,
// format 2 carries one value record per covered glyph.
type SinglePosSubtable struct {
	Format      uint16
	Coverage    Coverage
	ValueFormat ValueFormat
	Values      []ValueRecord // format 1: exactly one entry; format 2: parallel to coverage
}

// ValueFor returns the value record applying to the i-th covered glyph.
func (st SinglePosSubtable) ValueFor(i int) (ValueRecord, bool) {
	if st.Format == 1 {
		if len(st.Values) == 0 {
			return ValueRecord{}, false
		}
		return st.Values[0], true
	}
	if i < 0 || i >= len(st.Values) {
		return ValueRecord{}, false
	}
	return st.Values[i], true
}

// --- Coverage --------------------------------------------------------------

// Coverage denotes an indexed set of glyphs.
// Each lookup subtable in a lookup references a Coverage table, which
// specifies all the glyphs affected by a substitution or positioning
// operation described in the subtable.
//
// Ranges of format-2 coverage tables are expanded into a flat glyph list, as
// clients of this package need to enumerate the covered glyphs anyway.
type Coverage struct {
	Format uint16
	glyphs []GlyphIndex // in coverage order
}

// Count returns the number of covered glyphs.
func (c Coverage) Count() int {
	return len(c.glyphs)
}

// Glyphs returns the covered glyphs in coverage order. The returned slice is
// owned by the Coverage and must not be modified.
func (c Coverage) Glyphs() []GlyphIndex {
	return c.glyphs
}

// Match returns the coverage index for a glyph, and true if present.
func (c Coverage) Match(g GlyphIndex) (int, bool) {
	for i, covered := range c.glyphs {
		if covered == g {
			return i, true
		}
	}
	return 0, false
}

// --- GPOS value records ----------------------------------------------------

// GPOS Lookup Type Enumeration
const (
	GPosLookupTypeSingle            LayoutTableLookupType = 1 // Adjust position of a single glyph
	GPosLookupTypePair              LayoutTableLookupType = 2 // Adjust position of a pair of glyphs
	GPosLookupTypeCursive           LayoutTableLookupType = 3 // Attach cursive glyphs
	GPosLookupTypeMarkToBase        LayoutTableLookupType = 4 // Attach a combining mark to a base glyph
	GPosLookupTypeMarkToLigature    LayoutTableLookupType = 5 // Attach a combining mark to a ligature
	GPosLookupTypeMarkToMark        LayoutTableLookupType = 6 // Attach a combining mark to another mark
	GPosLookupTypeContextPos        LayoutTableLookupType = 7 // Position one or more glyphs in context
	GPosLookupTypeChainedContextPos LayoutTableLookupType = 8 // Position one or more glyphs in chained context
	GPosLookupTypeExtensionPos      LayoutTableLookupType = 9 // Extension mechanism for other positionings
)

const gposLookupTypeNames = "Single|Pair|Cursive|MarkToBase|MarkToLigature|MarkToMark|ContextPos|Chained|Ext"

var gposLookupTypeInx = [...]int{0, 7, 12, 20, 31, 46, 57, 68, 76, 80}

// GPosString interprets a layout table lookup type as a GPOS table type.
func (lt LayoutTableLookupType) GPosString() string {
	lt -= 1
	if lt < GPosLookupTypeExtensionPos {
		return gposLookupTypeNames[gposLookupTypeInx[lt] : gposLookupTypeInx[lt+1]-1]
	}
	return strconv.Itoa(int(lt))
}

// ValueFormat is a bitmask that describes which fields are present in a ValueRecord.
// https://docs.microsoft.com/en-us/typography/opentype/spec/gpos#value-record
type ValueFormat uint16

const (
	ValueFormatXPlacement ValueFormat = 0x0001 // Includes horizontal adjustment for placement
	ValueFormatYPlacement ValueFormat = 0x0002 // Includes vertical adjustment for placement
	ValueFormatXAdvance   ValueFormat = 0x0004 // Includes horizontal adjustment for advance
	ValueFormatYAdvance   ValueFormat = 0x0008 // Includes vertical adjustment for advance
	ValueFormatXPlaDevice ValueFormat = 0x0010 // Includes Device table for horizontal placement
	ValueFormatYPlaDevice ValueFormat = 0x0020 // Includes Device table for vertical placement
	ValueFormatXAdvDevice ValueFormat = 0x0040 // Includes Device table for horizontal advance
	ValueFormatYAdvDevice ValueFormat = 0x0080 // Includes Device table for vertical advance
	// Bits 0x0F00 are reserved for future use
)

// ValueRecord represents a positioning adjustment for a glyph.
// The actual fields present depend on the ValueFormat bitmask.
// https://docs.microsoft.com/en-us/typography/opentype/spec/gpos#value-record
type ValueRecord struct {
	XPlacement int16  // Horizontal adjustment for placement, in design units
	YPlacement int16  // Vertical adjustment for placement, in design units
	XAdvance   int16  // Horizontal adjustment for advance, in design units
	YAdvance   int16  // Vertical adjustment for advance, in design units
	XPlaDevice uint16 // Offset to Device table for horizontal placement (may be NULL)
	YPlaDevice uint16 // Offset to Device table for vertical placement (may be NULL)
	XAdvDevice uint16 // Offset to Device table for horizontal advance (may be NULL)
	YAdvDevice uint16 // Offset to Device table for vertical advance (may be NULL)
}
