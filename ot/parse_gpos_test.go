package ot

import (
	"encoding/binary"
	"testing"
)

func putU16(b []byte, at int, v uint16) {
	binary.BigEndian.PutUint16(b[at:at+2], v)
}

func putU32(b []byte, at int, v uint32) {
	binary.BigEndian.PutUint32(b[at:at+4], v)
}

func coverageFmt1(glyphs ...uint16) []byte {
	out := make([]byte, 4+len(glyphs)*2)
	putU16(out, 0, 1)
	putU16(out, 2, uint16(len(glyphs)))
	for i, g := range glyphs {
		putU16(out, 4+i*2, g)
	}
	return out
}

type coverageRange struct {
	start, end, index uint16
}

func coverageFmt2(ranges ...coverageRange) []byte {
	out := make([]byte, 4+len(ranges)*6)
	putU16(out, 0, 2)
	putU16(out, 2, uint16(len(ranges)))
	for i, r := range ranges {
		putU16(out, 4+i*6, r.start)
		putU16(out, 6+i*6, r.end)
		putU16(out, 8+i*6, r.index)
	}
	return out
}

// single adjustment format 1: one value record for every covered glyph
func singlePosFmt1(valueFormat uint16, value []uint16, coverage []byte) []byte {
	out := make([]byte, 6+len(value)*2+len(coverage))
	putU16(out, 0, 1)
	putU16(out, 2, uint16(6+len(value)*2)) // coverage offset
	putU16(out, 4, valueFormat)
	for i, v := range value {
		putU16(out, 6+i*2, v)
	}
	copy(out[6+len(value)*2:], coverage)
	return out
}

// single adjustment format 2: one value record per covered glyph
func singlePosFmt2(valueFormat uint16, values [][]uint16, coverage []byte) []byte {
	vsize := 0
	for _, value := range values {
		vsize += len(value) * 2
	}
	out := make([]byte, 8+vsize+len(coverage))
	putU16(out, 0, 2)
	putU16(out, 2, uint16(8+vsize)) // coverage offset
	putU16(out, 4, valueFormat)
	putU16(out, 6, uint16(len(values)))
	pos := 8
	for _, value := range values {
		for _, v := range value {
			putU16(out, pos, v)
			pos += 2
		}
	}
	copy(out[pos:], coverage)
	return out
}

func buildLookup(ltype, flag uint16, subtables ...[]byte) []byte {
	total := 6 + len(subtables)*2
	for _, st := range subtables {
		total += len(st)
	}
	out := make([]byte, total)
	putU16(out, 0, ltype)
	putU16(out, 2, flag)
	putU16(out, 4, uint16(len(subtables)))
	pos := 6 + len(subtables)*2
	for i, st := range subtables {
		putU16(out, 6+i*2, uint16(pos))
		copy(out[pos:], st)
		pos += len(st)
	}
	return out
}

func buildLookupList(lookups ...[]byte) []byte {
	total := 2 + len(lookups)*2
	for _, l := range lookups {
		total += len(l)
	}
	out := make([]byte, total)
	putU16(out, 0, uint16(len(lookups)))
	pos := 2 + len(lookups)*2
	for i, l := range lookups {
		putU16(out, 2+i*2, uint16(pos))
		copy(out[pos:], l)
		pos += len(l)
	}
	return out
}

type featureSpec struct {
	tag     string
	lookups []uint16
}

func buildFeatureList(features ...featureSpec) []byte {
	total := 2 + len(features)*6
	for _, f := range features {
		total += 4 + len(f.lookups)*2
	}
	out := make([]byte, total)
	putU16(out, 0, uint16(len(features)))
	pos := 2 + len(features)*6
	for i, f := range features {
		copy(out[2+i*6:], (f.tag + "    ")[:4])
		putU16(out, 2+i*6+4, uint16(pos))
		putU16(out, pos, 0) // featureParamsOffset
		putU16(out, pos+2, uint16(len(f.lookups)))
		for j, inx := range f.lookups {
			putU16(out, pos+4+j*2, inx)
		}
		pos += 4 + len(f.lookups)*2
	}
	return out
}

func buildGPosTable(features, lookups []byte) []byte {
	out := make([]byte, 10+len(features)+len(lookups))
	putU16(out, 0, 1)  // major
	putU16(out, 2, 0)  // minor
	putU16(out, 4, 0)  // no script list
	putU16(out, 6, 10) // feature list
	putU16(out, 8, uint16(10+len(features)))
	copy(out[10:], features)
	copy(out[10+len(features):], lookups)
	return out
}

// buildGPosTableV11 builds a GPOS table with a version 1.1 header, whose
// layout header carries an additional 32-bit FeatureVariations offset.
func buildGPosTableV11(features, lookups []byte, variationsOffset uint32) []byte {
	out := make([]byte, 14+len(features)+len(lookups))
	putU16(out, 0, 1)  // major
	putU16(out, 2, 1)  // minor
	putU16(out, 4, 0)  // no script list
	putU16(out, 6, 14) // feature list
	putU16(out, 8, uint16(14+len(features)))
	putU32(out, 10, variationsOffset)
	copy(out[14:], features)
	copy(out[14+len(features):], lookups)
	return out
}

// --- Tests -----------------------------------------------------------------

func TestParseSinglePosFormat1(t *testing.T) {
	// XPlacement = -10, coverage = [5]
	b := singlePosFmt1(0x0001, []uint16{0xfff6}, coverageFmt1(5))
	st, err := parseSinglePosSubtable(b)
	if err != nil {
		t.Fatalf("expected SinglePos format 1 to parse, err=%v", err)
	}
	if st.Format != 1 || st.ValueFormat != ValueFormatXPlacement {
		t.Fatalf("unexpected subtable header: format=%d valueFormat=%#x", st.Format, st.ValueFormat)
	}
	if len(st.Values) != 1 || st.Values[0].XPlacement != -10 {
		t.Fatalf("expected one value record with XPlacement -10, have %v", st.Values)
	}
	if glyphs := st.Coverage.Glyphs(); len(glyphs) != 1 || glyphs[0] != 5 {
		t.Fatalf("expected coverage [5], have %v", glyphs)
	}
}

func TestParseSinglePosFormat2(t *testing.T) {
	// XPlacement+XAdvance, values (-10,-20) and (5,10), coverage = [3,4]
	b := singlePosFmt2(0x0005, [][]uint16{{0xfff6, 0xffec}, {5, 10}}, coverageFmt1(3, 4))
	st, err := parseSinglePosSubtable(b)
	if err != nil {
		t.Fatalf("expected SinglePos format 2 to parse, err=%v", err)
	}
	if len(st.Values) != 2 {
		t.Fatalf("expected 2 value records, have %d", len(st.Values))
	}
	if st.Values[0].XPlacement != -10 || st.Values[0].XAdvance != -20 {
		t.Fatalf("unexpected first value record: %+v", st.Values[0])
	}
	if st.Values[1].XPlacement != 5 || st.Values[1].XAdvance != 10 {
		t.Fatalf("unexpected second value record: %+v", st.Values[1])
	}
	if vr, ok := st.ValueFor(1); !ok || vr.XAdvance != 10 {
		t.Fatalf("expected ValueFor(1) to yield XAdvance 10")
	}
}

func TestParseCoverageFormat2(t *testing.T) {
	b := coverageFmt2(coverageRange{5, 7, 0}, coverageRange{9, 9, 3})
	coverage, err := parseCoverage(b)
	if err != nil {
		t.Fatalf("expected coverage format 2 to parse, err=%v", err)
	}
	want := []GlyphIndex{5, 6, 7, 9}
	glyphs := coverage.Glyphs()
	if len(glyphs) != len(want) {
		t.Fatalf("expected %d covered glyphs, have %d", len(want), len(glyphs))
	}
	for i, g := range want {
		if glyphs[i] != g {
			t.Fatalf("expected glyph %d at coverage index %d, have %d", g, i, glyphs[i])
		}
	}
	if inx, ok := coverage.Match(9); !ok || inx != 3 {
		t.Fatalf("expected glyph 9 at coverage index 3")
	}
}

func TestValueRecordDeviceBits(t *testing.T) {
	// XPlacement = -3 plus a device offset; device entries consume record
	// space but carry no metric information
	format := ValueFormatXPlacement | ValueFormatXPlaDevice
	if size := valueRecordSize(format); size != 4 {
		t.Fatalf("expected record size 4, have %d", size)
	}
	b := make([]byte, 4)
	putU16(b, 0, 0xfffd)
	putU16(b, 2, 0x1234)
	vr, n := parseValueRecord(b, 0, format)
	if n != 4 {
		t.Fatalf("expected 4 bytes consumed, have %d", n)
	}
	if vr.XPlacement != -3 || vr.XPlaDevice != 0x1234 {
		t.Fatalf("unexpected value record: %+v", vr)
	}
	if size := valueRecordSize(0x00ff); size != 16 {
		t.Fatalf("expected full-mask record size 16, have %d", size)
	}
}

func TestParseLookupExtension(t *testing.T) {
	// An extension lookup wrapping a single adjustment subtable:
	// posFormat=1, extensionLookupType=1, extensionOffset=8
	single := singlePosFmt1(0x0004, []uint16{20}, coverageFmt1(2))
	ext := make([]byte, 8+len(single))
	putU16(ext, 0, 1)
	putU16(ext, 2, uint16(GPosLookupTypeSingle))
	putU32(ext, 4, 8)
	copy(ext[8:], single)
	b := buildLookup(uint16(GPosLookupTypeExtensionPos), 0, ext)

	ec := &errorCollector{}
	lookup, err := parseLookup(b, T("GPOS"), ec)
	if err != nil {
		t.Fatalf("expected extension lookup to parse, err=%v", err)
	}
	if lookup.Type != GPosLookupTypeExtensionPos {
		t.Fatalf("expected lookup type 9, have %d", lookup.Type)
	}
	if len(lookup.SinglePos) != 1 {
		t.Fatalf("expected one decoded subtable, have %d", len(lookup.SinglePos))
	}
	st := lookup.SinglePos[0]
	if st.ValueFormat != ValueFormatXAdvance || st.Values[0].XAdvance != 20 {
		t.Fatalf("unexpected resolved subtable: %+v", st)
	}
}

func TestParseLayoutHeaderV11(t *testing.T) {
	features := buildFeatureList(featureSpec{"palt", []uint16{0}})
	lookups := buildLookupList(
		buildLookup(uint16(GPosLookupTypeSingle), 0,
			singlePosFmt1(0x0001, []uint16{0xfff6}, coverageFmt1(1))))
	// the FeatureVariations offset points at the lookup list; the section is
	// not interpreted, but the offset must survive bounds validation
	b := buildGPosTableV11(features, lookups, uint32(14+len(features)))

	ec := &errorCollector{}
	table, err := parseGPos(T("GPOS"), b, 0, uint32(len(b)), ec)
	if err != nil {
		t.Fatalf("expected v1.1 GPOS table to parse, err=%v", err)
	}
	gpos := table.Self().AsGPos()
	if gpos == nil {
		t.Fatalf("expected a GPOS table")
	}
	if mj, mn := gpos.Header().Version(); mj != 1 || mn != 1 {
		t.Fatalf("expected layout version 1.1, have %d.%d", mj, mn)
	}
	if tags := gpos.FeatureList().Tags(); len(tags) != 1 || tags[0] != T("palt") {
		t.Fatalf("expected feature tags [palt], have %v", tags)
	}
	if l := gpos.Lookup(0); l == nil || len(l.SinglePos) != 1 ||
		l.SinglePos[0].Values[0].XPlacement != -10 {
		t.Fatalf("unexpected lookup 0: %+v", l)
	}
}

func TestParseLayoutHeaderV11BadVariationsOffset(t *testing.T) {
	features := buildFeatureList(featureSpec{"palt", []uint16{0}})
	lookups := buildLookupList(
		buildLookup(uint16(GPosLookupTypeSingle), 0,
			singlePosFmt1(0x0001, []uint16{0xfff6}, coverageFmt1(1))))
	b := buildGPosTableV11(features, lookups, 0xffff0000)

	ec := &errorCollector{}
	if _, err := parseGPos(T("GPOS"), b, 0, uint32(len(b)), ec); err == nil {
		t.Fatalf("expected out-of-bounds FeatureVariations offset to be rejected")
	}
}

func TestParseLookupIgnoresOtherTypes(t *testing.T) {
	// A pair adjustment lookup carries subtables, but none get decoded
	b := buildLookup(uint16(GPosLookupTypePair), 0, make([]byte, 12))
	ec := &errorCollector{}
	lookup, err := parseLookup(b, T("GPOS"), ec)
	if err != nil {
		t.Fatalf("expected pair lookup to parse, err=%v", err)
	}
	if lookup.SubtableCount() != 1 || len(lookup.SinglePos) != 0 {
		t.Fatalf("expected 1 subtable and 0 decoded, have %d/%d",
			lookup.SubtableCount(), len(lookup.SinglePos))
	}
}
