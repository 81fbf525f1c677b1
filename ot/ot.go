package ot

import (
	"fmt"

	"github.com/npillmayer/cjkmetrics"
)

// Font represents the internal structure of an OpenType font.
// It is used to navigate the tables which carry alternate-metrics
// information for CJK glyphs.
type Font struct {
	F             *cjkmetrics.ScalableFont
	Header        *FontHeader
	tables        map[Tag]Table
	Head          *HeadTable    // typed access to head
	MaxP          *MaxPTable    // typed access to maxp
	Vhea          *VheaTable    // typed access to vhea
	Vmtx          *VmtxTable    // typed access to vmtx
	Post          *PostTable    // typed access to post
	parseErrors   []FontError   // Errors accumulated during parsing
	parseWarnings []FontWarning // Warnings accumulated during parsing
	Layout        struct {      // OpenType core layout tables
		GPos *GPosTable // OpenType layout GPOS
	}
}

// FontHeader is a directory of the top-level tables in a font. If the font file
// contains only one font, the table directory will begin at byte 0 of the file.
//
// OpenType fonts that contain TrueType outlines should use the value of 0x00010000
// for the FontType. OpenType fonts containing CFF data (version 1 or 2) should
// use 0x4F54544F ('OTTO', when re-interpreted as a Tag).
type FontHeader struct {
	FontType   uint32
	TableCount uint16
}

// Table returns the font table for a given tag. If a table for a tag cannot
// be found in the font, nil is returned.
//
// Only the tables carrying CJK alternate-metrics information are interpreted
// (GPOS, vhea, vmtx, post, head, maxp). However, `Table` will return at least
// a generic table type for each table contained in the font, i.e. no table
// information will be dropped.
//
// Table tag names are case-sensitive, following the names in the OpenType
// specification.
func (otf *Font) Table(tag Tag) Table {
	if t, ok := otf.tables[tag]; ok {
		return t
	}
	return nil
}

// TableTags returns a list of tags, one for each table contained in the font.
func (otf *Font) TableTags() []Tag {
	var tags = make([]Tag, 0, len(otf.tables))
	for tag := range otf.tables {
		tags = append(tags, tag)
	}
	return tags
}

// VerticalHeader returns the parsed vhea table, if present.
func (otf *Font) VerticalHeader() *VheaTable {
	if otf == nil {
		return nil
	}
	return otf.Vhea
}

// VerticalMetrics returns the parsed vmtx table, if present.
func (otf *Font) VerticalMetrics() *VmtxTable {
	if otf == nil {
		return nil
	}
	return otf.Vmtx
}

// GlyphName returns a name for a glyph. Names originate from the font's
// post table. For fonts without glyph names (post version 3, or no post
// table at all) a synthetic name of the form "glyph00042" is returned,
// following a convention widely used by font tooling.
func (otf *Font) GlyphName(gid GlyphIndex) string {
	if otf != nil && otf.Post != nil {
		if name, ok := otf.Post.GlyphName(gid); ok {
			return name
		}
	}
	return fmt.Sprintf("glyph%05d", gid)
}

// Errors returns all errors encountered during font parsing.
// These errors represent issues that were found but did not prevent parsing
// from completing. Clients can inspect these errors to determine if the font
// is suitable for their use case.
func (otf *Font) Errors() []FontError {
	if otf.parseErrors == nil {
		return []FontError{}
	}
	return otf.parseErrors
}

// Warnings returns all warnings encountered during font parsing.
// Warnings indicate potential issues that are generally safe to ignore.
func (otf *Font) Warnings() []FontWarning {
	if otf.parseWarnings == nil {
		return []FontWarning{}
	}
	return otf.parseWarnings
}

// HasCriticalErrors returns true if any critical errors were encountered
// during parsing. Fonts with critical errors may be unreliable or unusable.
func (otf *Font) HasCriticalErrors() bool {
	for _, err := range otf.parseErrors {
		if err.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// GlyphIndex is a glyph index in a font.
type GlyphIndex uint16

// --- Tag -------------------------------------------------------------------

// Tag is an array of four uint8s (length = 32 bits) used to identify a table,
// script, language system, feature, or baseline.
type Tag uint32

// MakeTag creates a Tag from 4 bytes, e.g.,
//
//	MakeTag([]byte("GPOS"))
//
// If b is shorter or longer, it will be silently extended or cut as appropriate.
func MakeTag(b []byte) Tag {
	if b == nil {
		b = []byte{0, 0, 0, 0}
	} else if len(b) > 4 {
		b = b[:4]
	} else if len(b) < 4 {
		b = append([]byte{0, 0, 0, 0}[:4-len(b)], b...)
	}
	return Tag(u32(b))
}

// T returns a Tag from a (4-letter) string.
// If t is shorter or longer, it will be silently extended or cut as appropriate.
func T(t string) Tag {
	t = (t + "    ")[:4]
	return Tag(u32([]byte(t)))
}

func (t Tag) String() string {
	bytes := []byte{
		byte(t >> 24 & 0xff),
		byte(t >> 16 & 0xff),
		byte(t >> 8 & 0xff),
		byte(t & 0xff),
	}
	return string(bytes)
}

// --- Table -----------------------------------------------------------------

// Table represents one of the various OpenType font tables.
//
// Required tables, according to the OpenType specification:
// 'cmap' (Character to glyph mapping), 'head' (Font header), 'hhea' (Horizontal header),
// 'hmtx' (Horizontal metrics), 'maxp' (Maximum profile), 'name' (Naming table),
// 'OS/2' (OS/2 and Windows specific metrics), 'post' (PostScript information).
//
// This package interprets only the subset of tables relevant for alternate
// metrics; all others are represented as generic tables.
type Table interface {
	Extent() (uint32, uint32) // offset and byte size within the font's binary data
	Binary() []byte           // the bytes of this table; should be treated as read-only by clients
	Self() TableSelf          // reference to itself
}

func newTable(tag Tag, b binarySegm, offset, size uint32) *genericTable {
	t := &genericTable{tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	},
	}
	t.self = t
	return t
}

type genericTable struct {
	tableBase
}

// tableBase is a common parent for all kinds of OpenType tables.
type tableBase struct {
	data   binarySegm // a table is a slice of font data
	name   Tag        // 4-byte name as an integer
	offset uint32     // from offset
	length uint32     // to offset + length
	self   any
}

// Extent returns offset and byte size of this table within the OpenType font.
func (tb *tableBase) Extent() (uint32, uint32) {
	return tb.offset, tb.length
}

// Binary returns the bytes of this table. Should be treated as read-only by
// clients, as it is a view into the original data.
func (tb *tableBase) Binary() []byte {
	return tb.data
}

func (tb *tableBase) Self() TableSelf {
	return TableSelf{tableBase: tb}
}

// TableSelf is a reference to a table. Its primary use is for converting
// a generic table to a concrete table flavour, and for reproducing the
// name tag of a table.
type TableSelf struct {
	tableBase *tableBase
}

// NameTag returns the 4-letter name of a table.
func (tself TableSelf) NameTag() Tag {
	return tself.tableBase.name
}

func safeSelf(tself TableSelf) any {
	if tself.tableBase == nil || tself.tableBase.self == nil {
		return TableSelf{}
	}
	return tself.tableBase.self
}

// AsGPos returns this table as a GPOS table, or nil.
func (tself TableSelf) AsGPos() *GPosTable {
	if g, ok := safeSelf(tself).(*GPosTable); ok {
		return g
	}
	return nil
}

// AsHead returns this table as a head table, or nil.
func (tself TableSelf) AsHead() *HeadTable {
	if k, ok := safeSelf(tself).(*HeadTable); ok {
		return k
	}
	return nil
}

// AsMaxP returns this table as a maxp table, or nil.
func (tself TableSelf) AsMaxP() *MaxPTable {
	if k, ok := safeSelf(tself).(*MaxPTable); ok {
		return k
	}
	return nil
}

// AsVhea returns this table as a vhea table, or nil.
func (tself TableSelf) AsVhea() *VheaTable {
	if k, ok := safeSelf(tself).(*VheaTable); ok {
		return k
	}
	return nil
}

// AsVmtx returns this table as a vmtx table, or nil.
func (tself TableSelf) AsVmtx() *VmtxTable {
	if k, ok := safeSelf(tself).(*VmtxTable); ok {
		return k
	}
	return nil
}

// AsPost returns this table as a post table, or nil.
func (tself TableSelf) AsPost() *PostTable {
	if k, ok := safeSelf(tself).(*PostTable); ok {
		return k
	}
	return nil
}

// --- Concrete table implementations ----------------------------------------

// HeadTable gives global information about the font.
// Only a small subset of fields are made public by HeadTable, as they are
// needed for consistency-checks and for scaling metric values.
type HeadTable struct {
	tableBase
	Flags      uint16 // see https://docs.microsoft.com/en-us/typography/opentype/spec/head
	UnitsPerEm uint16 // values 16 … 16384 are valid
}

func newHeadTable(tag Tag, b binarySegm, offset, size uint32) *HeadTable {
	t := &HeadTable{}
	base := tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	}
	t.tableBase = base
	t.self = t
	return t
}

// MaxPTable establishes the memory requirements for this font.
// The 'maxp' table contains a count for the number of glyphs in the font.
// Whenever this value changes, other tables which depend on it should also be updated.
type MaxPTable struct {
	tableBase
	NumGlyphs int
}

func newMaxPTable(tag Tag, b binarySegm, offset, size uint32) *MaxPTable {
	t := &MaxPTable{}
	base := tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	}
	t.tableBase = base
	t.self = t
	return t
}

// VheaTable contains information for vertical layout.
type VheaTable struct {
	tableBase
	Ascender             int16
	Descender            int16
	LineGap              int16
	AdvanceHeightMax     uint16
	MinTopSideBearing    int16
	MinBottomSideBearing int16
	YMaxExtent           int16
	CaretSlopeRise       int16
	CaretSlopeRun        int16
	CaretOffset          int16
	NumberOfVMetrics     int
}

func newVheaTable(tag Tag, b binarySegm, offset, size uint32) *VheaTable {
	t := &VheaTable{}
	base := tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	}
	t.tableBase = base
	t.self = t
	return t
}

// VmtxTable contains metric information for the vertical layout of each of the
// glyphs in the font. Each element in the contained vMetrics-array has two
// parts: the advance height and the top side bearing. The value
// NumberOfVMetrics is taken from the `vhea` table. Optionally, an array of top
// side bearings follows; the corresponding glyphs are assumed to have the
// same advance height as that found in the last entry in the vMetrics array.
// The number of entries in this trailing array is derived from the total
// number of glyphs in the font minus `Vhea.NumberOfVMetrics`, which is
// copied into the VmtxTable for easier access.
type VmtxTable struct {
	tableBase
	NumberOfVMetrics int
	numGlyphs        int
	longMetrics      []VMetricRecord
	topSideBearings  []int16
}

// VMetricRecord is one long vertical metric record from table vmtx.
type VMetricRecord struct {
	AdvanceHeight  uint16
	TopSideBearing int16
}

func newVmtxTable(tag Tag, b binarySegm, offset, size uint32) *VmtxTable {
	t := &VmtxTable{}
	base := tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	}
	t.tableBase = base
	t.self = t
	return t
}

func (t *VmtxTable) parseAll(numGlyphs, numberOfVMetrics int) error {
	if t == nil {
		return nil
	}
	if numGlyphs < 0 {
		return fmt.Errorf("invalid glyph count %d", numGlyphs)
	}
	if numberOfVMetrics < 0 || numberOfVMetrics > numGlyphs {
		return fmt.Errorf("invalid numberOfVMetrics %d (numGlyphs=%d)", numberOfVMetrics, numGlyphs)
	}
	required := numberOfVMetrics*4 + (numGlyphs-numberOfVMetrics)*2
	if required > len(t.data) {
		return fmt.Errorf("vmtx table too small: need %d bytes, have %d", required, len(t.data))
	}
	longMetrics := make([]VMetricRecord, numberOfVMetrics)
	for i := 0; i < numberOfVMetrics; i++ {
		ah, err := t.data.u16(i * 4)
		if err != nil {
			return fmt.Errorf("cannot parse vmtx long metric %d: %w", i, err)
		}
		tsb, err := t.data.u16(i*4 + 2)
		if err != nil {
			return fmt.Errorf("cannot parse vmtx long metric tsb %d: %w", i, err)
		}
		longMetrics[i] = VMetricRecord{
			AdvanceHeight:  ah,
			TopSideBearing: int16(tsb),
		}
	}
	tsbCount := numGlyphs - numberOfVMetrics
	topSideBearings := make([]int16, tsbCount)
	base := numberOfVMetrics * 4
	for i := 0; i < tsbCount; i++ {
		tsb, err := t.data.u16(base + i*2)
		if err != nil {
			return fmt.Errorf("cannot parse vmtx tsb %d: %w", i, err)
		}
		topSideBearings[i] = int16(tsb)
	}
	t.NumberOfVMetrics = numberOfVMetrics
	t.numGlyphs = numGlyphs
	t.longMetrics = longMetrics
	t.topSideBearings = topSideBearings
	return nil
}

// LongMetrics returns a copy of all long vertical metrics records.
func (t *VmtxTable) LongMetrics() []VMetricRecord {
	if t == nil || len(t.longMetrics) == 0 {
		return nil
	}
	metrics := make([]VMetricRecord, len(t.longMetrics))
	copy(metrics, t.longMetrics)
	return metrics
}

// TopSideBearings returns a copy of trailing TSB records.
func (t *VmtxTable) TopSideBearings() []int16 {
	if t == nil || len(t.topSideBearings) == 0 {
		return nil
	}
	tsbs := make([]int16, len(t.topSideBearings))
	copy(tsbs, t.topSideBearings)
	return tsbs
}

// GlyphCount returns the glyph count used when decoding this vmtx table.
func (t *VmtxTable) GlyphCount() int {
	if t == nil {
		return 0
	}
	return t.numGlyphs
}

// VMetrics returns the advance height and top side bearing for a glyph.
func (t *VmtxTable) VMetrics(g GlyphIndex) (uint16, int16, bool) {
	if t == nil || t.numGlyphs == 0 || int(g) < 0 || int(g) >= t.numGlyphs {
		return 0, 0, false
	}
	if int(g) < len(t.longMetrics) {
		m := t.longMetrics[int(g)]
		return m.AdvanceHeight, m.TopSideBearing, true
	}
	if len(t.longMetrics) == 0 {
		return 0, 0, false
	}
	i := int(g) - len(t.longMetrics)
	if i < 0 || i >= len(t.topSideBearings) {
		return 0, 0, false
	}
	return t.longMetrics[len(t.longMetrics)-1].AdvanceHeight, t.topSideBearings[i], true
}

// PostTable holds PostScript information, of which we only use the glyph
// names. Version 1.0 fonts use the standard Macintosh glyph order, version
// 2.0 fonts carry their own name table, and version 3.0 fonts carry no
// glyph names at all.
type PostTable struct {
	tableBase
	Version uint32
	names   []string // per-glyph names; empty for version 3.0
}

func newPostTable(tag Tag, b binarySegm, offset, size uint32) *PostTable {
	t := &PostTable{}
	base := tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	}
	t.tableBase = base
	t.self = t
	return t
}

// GlyphName returns the name of a glyph, if the font carries one.
func (t *PostTable) GlyphName(g GlyphIndex) (string, bool) {
	if t == nil || int(g) >= len(t.names) {
		return "", false
	}
	if name := t.names[int(g)]; name != "" {
		return name, true
	}
	return "", false
}
