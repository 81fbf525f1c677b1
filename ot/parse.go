package ot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Code comments often will cite passages from the
// OpenType specification version 1.8.4;
// see https://docs.microsoft.com/en-us/typography/opentype/spec/.

// ---------------------------------------------------------------------------

// Maximum reasonable counts for OpenType table structures.
// These limits prevent malicious fonts from claiming unreasonably large counts
// that could lead to excessive memory allocation or out-of-bounds reads.
const (
	MaxFeatureCount  = 500   // Features: typically < 200
	MaxLookupCount   = 1000  // Lookups: typically < 100
	MaxGlyphCount    = 65536 // Maximum glyph index (uint16)
	MaxCoverageCount = 65535 // Coverage tables
)

// ---------------------------------------------------------------------------

// Checked arithmetic operations to prevent integer overflow

// checkedMulInt checks for overflow in multiplication of two integers
func checkedMulInt(a, b int) (int, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > 0 && b > 0 && a > math.MaxInt/b {
		return 0, fmt.Errorf("integer overflow: %d * %d", a, b)
	}
	if a < 0 && b < 0 && a < math.MaxInt/b {
		return 0, fmt.Errorf("integer overflow: %d * %d", a, b)
	}
	if (a < 0 && b > 0 && a < math.MinInt/b) || (a > 0 && b < 0 && b < math.MinInt/a) {
		return 0, fmt.Errorf("integer overflow: %d * %d", a, b)
	}
	return a * b, nil
}

// checkedAddUint32 checks for overflow in addition of two uint32 values
func checkedAddUint32(a, b uint32) (uint32, error) {
	if a > math.MaxUint32-b {
		return 0, fmt.Errorf("integer overflow: %d + %d", a, b)
	}
	return a + b, nil
}

// ---------------------------------------------------------------------------

// errFontFormat produces user level errors for font parsing.
func errFontFormat(message string) error {
	return fmt.Errorf("OpenType font format: %s", message)
}

// ---------------------------------------------------------------------------

// Parse parses an OpenType font from a byte slice.
// An ot.Font needs ongoing access to the fonts byte-data after the Parse function returns.
// Its elements are assumed immutable while the ot.Font remains in use.
func Parse(font []byte) (*Font, error) {
	// https://www.microsoft.com/typography/otspec/otff.htm: Offset Table is 12 bytes.
	r := bytes.NewReader(font)
	h := FontHeader{}
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return nil, err
	}
	tracer().Debugf("header = %v, tag = %x|%s", h, h.FontType, Tag(h.FontType).String())

	// Collect errors during parsing instead of aborting on first sight
	ec := &errorCollector{}

	if !(h.FontType == 0x4f54544f || // OTTO
		h.FontType == 0x00010000 || // TrueType
		h.FontType == 0x74727565) { // true
		ec.addError(T(""), "Header", fmt.Sprintf("font type not supported: %x", h.FontType), SeverityCritical, 0)
		return nil, errFontFormat(fmt.Sprintf("font type not supported: %x", h.FontType))
	}
	otf := &Font{Header: &h, tables: make(map[Tag]Table)}
	src := binarySegm(font)
	// "The Offset Table is followed immediately by the Table Record entries …
	// sorted in ascending order by tag", 16 bytes each.

	tableRecordsSize, err := checkedMulInt(16, int(h.TableCount))
	if err != nil {
		ec.addError(T(""), "TableRecords", fmt.Sprintf("table count too large: %v", err), SeverityCritical, 12)
		return nil, errFontFormat(fmt.Sprintf("table count too large: %v", err))
	}

	buf, err := src.view(12, tableRecordsSize)
	if err != nil {
		ec.addError(T(""), "TableRecords", "table record entries", SeverityCritical, 12)
		return nil, errFontFormat("table record entries")
	}
	for b, prevTag := buf, Tag(0); len(b) > 0; b = b[16:] {
		tag := MakeTag(b)
		if tag < prevTag {
			ec.addError(T(""), "TableRecords", "table order", SeverityCritical, 12)
			return nil, errFontFormat("table order")
		}
		prevTag = tag
		off, size := u32(b[8:12]), u32(b[12:16])
		if off&3 != 0 { // ignore checksums, but "all tables must begin on four byte boundries".
			ec.addError(tag, "Offset", "invalid table offset", SeverityCritical, off)
			return nil, errFontFormat("invalid table offset")
		}

		// Validate table bounds before slicing to prevent panic
		tableEnd, err := checkedAddUint32(off, size)
		if err != nil {
			ec.addError(tag, "Size", fmt.Sprintf("size calculation overflow: %v", err), SeverityCritical, off)
			return nil, errFontFormat(fmt.Sprintf("table %s: size calculation overflow: %v", tag, err))
		}
		if off > uint32(len(src)) || tableEnd > uint32(len(src)) {
			ec.addError(tag, "Bounds", fmt.Sprintf("bounds [%d:%d] exceed font size %d", off, tableEnd, len(src)), SeverityCritical, off)
			return nil, errFontFormat(fmt.Sprintf("table %s: bounds [%d:%d] exceed font size %d",
				tag, off, tableEnd, len(src)))
		}

		otf.tables[tag], err = parseTable(tag, src[off:tableEnd], off, size, ec)
		if err != nil {
			return nil, err
		}
	}
	if err := extractMetricsInfo(otf, ec); err != nil {
		return nil, err
	}

	otf.parseErrors = ec.errors
	otf.parseWarnings = ec.warnings

	return otf, nil
}

// RequiredTables lists the tables a font must carry for metrics extraction
// to work at all. All other tables handled here (GPOS, vhea, vmtx, post) are
// optional: a font without them simply offers no alternate metrics.
var RequiredTables = []string{
	"head", "maxp",
}

func parseTable(t Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	switch t {
	case T("GPOS"):
		return parseGPos(t, b, offset, size, ec)
	case T("head"):
		return parseHead(t, b, offset, size, ec)
	case T("maxp"):
		return parseMaxP(t, b, offset, size, ec)
	case T("post"):
		return parsePost(t, b, offset, size, ec)
	case T("vhea"):
		return parseVhea(t, b, offset, size, ec)
	case T("vmtx"):
		return parseVmtx(t, b, offset, size, ec)
	}
	tracer().Infof("font contains table (%s), will not be interpreted", t)
	return newTable(t, b, offset, size), nil
}

// Consistency check and shortcuts to essential tables.
// The vmtx table cannot be decoded on its own: the count of long metrics
// comes from vhea and the glyph count from maxp, so the actual decoding
// happens here, after all tables have been read.
func extractMetricsInfo(otf *Font, ec *errorCollector) error {
	for _, tag := range RequiredTables {
		h := otf.tables[T(tag)]
		if h == nil {
			ec.addError(T(tag), "Missing", "missing required table", SeverityCritical, 0)
			return errFontFormat("missing required table " + tag)
		}
	}
	otf.Head = otf.tables[T("head")].Self().AsHead()
	otf.MaxP = otf.tables[T("maxp")].Self().AsMaxP()
	if p := otf.tables[T("post")]; p != nil {
		otf.Post = p.Self().AsPost()
	}
	if g := otf.tables[T("GPOS")]; g != nil {
		otf.Layout.GPos = g.Self().AsGPos()
	}
	if vh := otf.tables[T("vhea")]; vh != nil {
		otf.Vhea = vh.Self().AsVhea()
		if mx := otf.tables[T("vmtx")]; mx != nil {
			otf.Vmtx = mx.Self().AsVmtx()
			if err := otf.Vmtx.parseAll(otf.MaxP.NumGlyphs, otf.Vhea.NumberOfVMetrics); err != nil {
				ec.addError(T("vmtx"), "Metrics", err.Error(), SeverityMajor, 0)
				otf.Vmtx = nil
			}
		}
	} else if otf.tables[T("vmtx")] != nil {
		// Fonts that lack a vhea table must not have a vmtx table
		ec.addWarning(T("vmtx"), "vmtx present without vhea, ignored", 0)
	}
	return nil
}

// --- Head table ------------------------------------------------------------

func parseHead(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 54 {
		ec.addError(tag, "Size", fmt.Sprintf("head table too small: %d bytes (need 54)", size), SeverityCritical, offset)
		return nil, errFontFormat("size of head table")
	}
	t := newHeadTable(tag, b, offset, size)
	t.Flags, _ = b.u16(16)      // flags
	t.UnitsPerEm, _ = b.u16(18) // units per em
	return t, nil
}

// --- MaxP table ------------------------------------------------------------

// This table establishes the memory requirements for this font. Fonts with CFF data
// must use Version 0.5 of this table, specifying only the numGlyphs field. Fonts
// with TrueType outlines must use Version 1.0 of this table, where all data is required.
func parseMaxP(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size <= 6 {
		return nil, nil
	}
	t := newMaxPTable(tag, b, offset, size)
	n, _ := b.u16(4)
	t.NumGlyphs = int(n)
	return t, nil
}

// --- Vhea table ------------------------------------------------------------

// The vertical header table contains information needed for vertical layout
// of CJK fonts. A font may omit it entirely; vertical metrics are then simply
// unavailable.
func parseVhea(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size == 0 {
		return nil, nil
	}
	tracer().Debugf("vhea table has size %d", size)
	if size < 36 {
		ec.addError(tag, "Size", fmt.Sprintf("vhea table too small: %d bytes (need 36)", size), SeverityCritical, offset)
		return nil, errFontFormat("vhea table incomplete")
	}
	t := newVheaTable(tag, b, offset, size)
	t.Ascender = int16(b.U16(4))
	t.Descender = int16(b.U16(6))
	t.LineGap = int16(b.U16(8))
	t.AdvanceHeightMax = b.U16(10)
	t.MinTopSideBearing = int16(b.U16(12))
	t.MinBottomSideBearing = int16(b.U16(14))
	t.YMaxExtent = int16(b.U16(16))
	t.CaretSlopeRise = int16(b.U16(18))
	t.CaretSlopeRun = int16(b.U16(20))
	t.CaretOffset = int16(b.U16(22))
	n, _ := b.u16(34)
	t.NumberOfVMetrics = int(n)
	return t, nil
}

// --- Vmtx table ------------------------------------------------------------

// Dependencies: the value of the numOfLongVerMetrics field is found in the
// 'vhea' (Vertical Header) table. Fonts that lack a 'vhea' table must not
// have a 'vmtx' table. The actual decoding of the metrics arrays therefore
// happens later, in extractMetricsInfo.
func parseVmtx(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size == 0 {
		return nil, nil
	}
	t := newVmtxTable(tag, b, offset, size)
	return t, nil
}

// --- Post table ------------------------------------------------------------

// This table contains additional information needed to use TrueType or
// OpenType fonts on PostScript printers. We only care about the glyph names.
//
// Version 1.0 fonts use the standard Macintosh glyph set in standard order.
// Version 2.0 fonts carry a name index per glyph, referencing either the
// standard set (index < 258) or a list of Pascal strings following the index
// array. Version 3.0 fonts carry no glyph names at all.
func parsePost(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 32 {
		ec.addError(tag, "Size", fmt.Sprintf("post table too small: %d bytes (need 32)", size), SeverityMajor, offset)
		return newTable(tag, b, offset, size), nil
	}
	t := newPostTable(tag, b, offset, size)
	t.Version = b.U32(0)
	switch t.Version {
	case 0x00010000:
		t.names = macGlyphNames[:]
	case 0x00020000:
		names, err := parsePostV2Names(b)
		if err != nil {
			ec.addError(tag, "Names", err.Error(), SeverityMinor, offset)
			return t, nil
		}
		t.names = names
	case 0x00030000:
		// no glyph names
	default:
		ec.addWarning(tag, fmt.Sprintf("post table version %#x not interpreted", t.Version), offset)
	}
	return t, nil
}

func parsePostV2Names(b binarySegm) ([]string, error) {
	if len(b) < 34 {
		return nil, errFontFormat("post version 2.0 header incomplete")
	}
	numGlyphs := int(b.U16(32))
	if numGlyphs > MaxGlyphCount {
		return nil, errFontFormat(fmt.Sprintf("post table glyph count %d out of range", numGlyphs))
	}
	indexSize, err := checkedMulInt(numGlyphs, 2)
	if err != nil || 34+indexSize > len(b) {
		return nil, errFontFormat("post version 2.0 name index extends beyond bounds")
	}
	// The Pascal strings follow the index array, in index order
	var strings []string
	for pos := 34 + indexSize; pos < len(b); {
		strlen := int(b[pos])
		pos++
		if pos+strlen > len(b) {
			return nil, errFontFormat("post version 2.0 name string extends beyond bounds")
		}
		strings = append(strings, string(b[pos:pos+strlen]))
		pos += strlen
	}
	names := make([]string, numGlyphs)
	for i := 0; i < numGlyphs; i++ {
		inx := int(b.U16(34 + i*2))
		if inx < len(macGlyphNames) {
			names[i] = macGlyphNames[inx]
		} else if inx-len(macGlyphNames) < len(strings) {
			names[i] = strings[inx-len(macGlyphNames)]
		}
	}
	return names, nil
}
