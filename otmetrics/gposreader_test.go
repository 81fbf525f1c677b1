package otmetrics

import (
	"encoding/binary"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/npillmayer/cjkmetrics/ot"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/suite"
)

// --- Synthetic font builders -----------------------------------------------

func putU16(b []byte, at int, v uint16) {
	binary.BigEndian.PutUint16(b[at:at+2], v)
}

func putU32(b []byte, at int, v uint32) {
	binary.BigEndian.PutUint32(b[at:at+4], v)
}

func coverage(glyphs ...uint16) []byte {
	out := make([]byte, 4+len(glyphs)*2)
	putU16(out, 0, 1)
	putU16(out, 2, uint16(len(glyphs)))
	for i, g := range glyphs {
		putU16(out, 4+i*2, g)
	}
	return out
}

// singlePos builds a format 1 single adjustment subtable: one value record,
// broadcast to every covered glyph.
func singlePos(valueFormat uint16, value []uint16, cov []byte) []byte {
	out := make([]byte, 6+len(value)*2+len(cov))
	putU16(out, 0, 1)
	putU16(out, 2, uint16(6+len(value)*2))
	putU16(out, 4, valueFormat)
	for i, v := range value {
		putU16(out, 6+i*2, v)
	}
	copy(out[6+len(value)*2:], cov)
	return out
}

// singlePosPairs builds a format 2 single adjustment subtable: one value
// record per covered glyph.
func singlePosPairs(valueFormat uint16, values [][]uint16, cov []byte) []byte {
	vsize := 0
	for _, value := range values {
		vsize += len(value) * 2
	}
	out := make([]byte, 8+vsize+len(cov))
	putU16(out, 0, 2)
	putU16(out, 2, uint16(8+vsize))
	putU16(out, 4, valueFormat)
	putU16(out, 6, uint16(len(values)))
	pos := 8
	for _, value := range values {
		for _, v := range value {
			putU16(out, pos, v)
			pos += 2
		}
	}
	copy(out[pos:], cov)
	return out
}

func buildLookup(ltype uint16, subtables ...[]byte) []byte {
	total := 6 + len(subtables)*2
	for _, st := range subtables {
		total += len(st)
	}
	out := make([]byte, total)
	putU16(out, 0, ltype)
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
		putU16(out, pos+2, uint16(len(f.lookups)))
		for j, inx := range f.lookups {
			putU16(out, pos+4+j*2, inx)
		}
		pos += 4 + len(f.lookups)*2
	}
	return out
}

func buildGPos(features, lookups []byte) []byte {
	out := make([]byte, 10+len(features)+len(lookups))
	putU16(out, 0, 1)
	putU16(out, 6, 10)
	putU16(out, 8, uint16(10+len(features)))
	copy(out[10:], features)
	copy(out[10+len(features):], lookups)
	return out
}

type tableSpec struct {
	tag  string
	data []byte
}

func buildFont(tables ...tableSpec) []byte {
	sort.Slice(tables, func(i, j int) bool { return tables[i].tag < tables[j].tag })
	n := len(tables)
	total := 12 + 16*n
	offsets := make([]int, n)
	for i, tb := range tables {
		for total%4 != 0 {
			total++
		}
		offsets[i] = total
		total += len(tb.data)
	}
	out := make([]byte, total)
	putU32(out, 0, 0x00010000)
	putU16(out, 4, uint16(n))
	for i, tb := range tables {
		rec := 12 + 16*i
		copy(out[rec:], (tb.tag + "    ")[:4])
		putU32(out, rec+8, uint32(offsets[i]))
		putU32(out, rec+12, uint32(len(tb.data)))
		copy(out[offsets[i]:], tb.data)
	}
	return out
}

func headTable(unitsPerEm uint16) []byte {
	out := make([]byte, 54)
	putU32(out, 0, 0x00010000)
	putU16(out, 18, unitsPerEm)
	return out
}

func maxpTable(numGlyphs uint16) []byte {
	out := make([]byte, 32)
	putU32(out, 0, 0x00010000)
	putU16(out, 4, numGlyphs)
	return out
}

func vheaTable(ascender, descender int16, numVMetrics uint16) []byte {
	out := make([]byte, 36)
	putU32(out, 0, 0x00010000)
	putU16(out, 4, uint16(ascender))
	putU16(out, 6, uint16(descender))
	putU16(out, 34, numVMetrics)
	return out
}

func vmtxTable(long [][2]int16, tsbs ...int16) []byte {
	out := make([]byte, len(long)*4+len(tsbs)*2)
	for i, m := range long {
		putU16(out, i*4, uint16(m[0]))
		putU16(out, i*4+2, uint16(m[1]))
	}
	base := len(long) * 4
	for i, tsb := range tsbs {
		putU16(out, base+i*2, uint16(tsb))
	}
	return out
}

// --- Test suite ------------------------------------------------------------

type GPOSReaderEnviron struct {
	suite.Suite
}

func TestGPOSReaderFunctions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "font.metrics")
	defer teardown()
	suite.Run(t, new(GPOSReaderEnviron))
}

func (env *GPOSReaderEnviron) parseFont(tables ...tableSpec) *ot.Font {
	otf, err := ot.Parse(buildFont(tables...))
	env.Require().NoError(err, "synthetic font must parse")
	return otf
}

// gposFont builds a font around one GPOS table with 8 glyphs.
func (env *GPOSReaderEnviron) gposFont(features, lookups []byte) *ot.Font {
	return env.parseFont(
		tableSpec{"head", headTable(1000)},
		tableSpec{"maxp", maxpTable(8)},
		tableSpec{"GPOS", buildGPos(features, lookups)},
	)
}

func (env *GPOSReaderEnviron) TestFontWithoutGPOS() {
	otf := env.parseFont(
		tableSpec{"head", headTable(1000)},
		tableSpec{"maxp", maxpTable(8)},
	)
	env.False(CanRead(otf), "font without GPOS cannot provide alternate metrics")
	reader := NewGPOSReader(otf)
	env.False(reader.HasMetrics())
	env.Empty(reader.Tags())
	env.Empty(reader.EdgeInsets())
	env.Empty(reader.VerticalMetrics())
}

func (env *GPOSReaderEnviron) TestFontWithoutAlternateMetrics() {
	otf := env.gposFont(
		buildFeatureList(featureSpec{"kern", []uint16{0}}),
		buildLookupList(buildLookup(2, make([]byte, 12))),
	)
	env.True(CanRead(otf))
	reader := NewGPOSReader(otf)
	env.False(reader.HasMetrics(), "kern alone does not provide alternate metrics")
	env.Equal([]ot.Tag{ot.T("kern")}, reader.Tags())
	env.Empty(reader.EdgeInsets())
}

func (env *GPOSReaderEnviron) TestTagOrder() {
	// tags may repeat in the feature list; clients see them deduplicated in
	// first-appearance order
	otf := env.gposFont(
		buildFeatureList(
			featureSpec{"kern", []uint16{2}},
			featureSpec{"palt", []uint16{0}},
			featureSpec{"kern", []uint16{2}},
			featureSpec{"vpal", []uint16{1}},
		),
		buildLookupList(
			buildLookup(1, singlePos(0x0001, []uint16{0xfff6}, coverage(1))),
			buildLookup(1, singlePos(0x0002, []uint16{5}, coverage(1))),
			buildLookup(2, make([]byte, 12)),
		),
	)
	reader := NewGPOSReader(otf)
	env.Equal([]ot.Tag{ot.T("kern"), TagPalt, TagVpal}, reader.Tags())
	env.True(reader.HasMetrics())
}

func (env *GPOSReaderEnviron) TestHorizontalSignConvention() {
	// XPlacement = -10 shifts the ink left; the glyph effectively starts
	// 10 units into its box and overshoots the right edge by 10
	otf := env.gposFont(
		buildFeatureList(featureSpec{"palt", []uint16{0}}),
		buildLookupList(buildLookup(1, singlePos(0x0001, []uint16{0xfff6}, coverage(1)))),
	)
	reader := NewGPOSReader(otf)
	insets := reader.EdgeInsets()
	env.Equal(EdgeInsets{Left: 10, Right: -10}, insets["glyph00001"])
}

func (env *GPOSReaderEnviron) TestVerticalSignConvention() {
	otf := env.gposFont(
		buildFeatureList(featureSpec{"vpal", []uint16{0}}),
		buildLookupList(buildLookup(1, singlePos(0x0002, []uint16{5}, coverage(1)))),
	)
	reader := NewGPOSReader(otf)
	insets := reader.EdgeInsets()
	env.Equal(EdgeInsets{Top: 5, Bottom: -5}, insets["glyph00001"])
}

func (env *GPOSReaderEnviron) TestAdditiveTags() {
	// palt and vpal both adjust glyph 1; the contributions merge into one
	// entry instead of overriding each other
	otf := env.gposFont(
		buildFeatureList(
			featureSpec{"palt", []uint16{0}},
			featureSpec{"vpal", []uint16{1}},
		),
		buildLookupList(
			buildLookup(1, singlePos(0x0001, []uint16{0xfff6}, coverage(1))),
			buildLookup(1, singlePos(0x0002, []uint16{5}, coverage(1))),
		),
	)
	reader := NewGPOSReader(otf)
	insets := reader.EdgeInsets()
	env.Len(insets, 1)
	env.Equal(EdgeInsets{Left: 10, Right: -10, Top: 5, Bottom: -5}, insets["glyph00001"])
}

func (env *GPOSReaderEnviron) TestBroadcastValueRecord() {
	// a format 1 subtable carries one value record for all covered glyphs
	otf := env.gposFont(
		buildFeatureList(featureSpec{"palt", []uint16{0}}),
		buildLookupList(buildLookup(1, singlePos(0x0004, []uint16{0xffce}, coverage(1, 2, 3)))),
	)
	reader := NewGPOSReader(otf)
	adjustments := reader.AdjustmentsForTag(TagPalt)
	env.Len(adjustments, 3)
	for _, adj := range adjustments {
		env.Equal(int16(-50), adj.Advance)
		env.Equal(Horizontal, adj.Direction)
	}
	insets := reader.EdgeInsets()
	env.Len(insets, 3)
	env.Equal(EdgeInsets{Right: 50}, insets["glyph00002"])
}

func (env *GPOSReaderEnviron) TestUnsupportedValueFormat() {
	// XPlacement|YPlacement mixes directions in one record and is not an
	// alternate-metrics layout; the subtable yields nothing
	otf := env.gposFont(
		buildFeatureList(featureSpec{"palt", []uint16{0}}),
		buildLookupList(buildLookup(1, singlePos(0x0003, []uint16{0xfff6, 5}, coverage(1)))),
	)
	reader := NewGPOSReader(otf)
	env.True(reader.HasMetrics(), "the tag is present even if its lookups yield nothing")
	env.Empty(reader.AdjustmentsForTag(TagPalt))
	env.Empty(reader.EdgeInsets())
}

func (env *GPOSReaderEnviron) TestValueCountMismatch() {
	// a format 2 subtable must carry one value record per covered glyph;
	// 2 records over a coverage of 3 is malformed and yields nothing
	otf := env.gposFont(
		buildFeatureList(featureSpec{"palt", []uint16{0}}),
		buildLookupList(buildLookup(1,
			singlePosPairs(0x0001, [][]uint16{{0xfff6}, {5}}, coverage(1, 2, 3)))),
	)
	reader := NewGPOSReader(otf)
	env.True(reader.HasMetrics(), "the tag is present even if its lookups yield nothing")
	env.Empty(reader.AdjustmentsForTag(TagPalt))
	env.Empty(reader.EdgeInsets())
}

func (env *GPOSReaderEnviron) TestZeroAdjustmentKeepsEntry() {
	// an explicit zero adjustment still marks the glyph as having metrics
	otf := env.gposFont(
		buildFeatureList(featureSpec{"palt", []uint16{0}}),
		buildLookupList(buildLookup(1, singlePos(0x0001, []uint16{0}, coverage(2)))),
	)
	reader := NewGPOSReader(otf)
	insets := reader.EdgeInsets()
	env.Len(insets, 1)
	ins, ok := insets["glyph00002"]
	env.True(ok)
	env.True(ins.IsZero())
}

func (env *GPOSReaderEnviron) TestIdempotence() {
	otf := env.gposFont(
		buildFeatureList(
			featureSpec{"palt", []uint16{0}},
			featureSpec{"vpal", []uint16{1}},
		),
		buildLookupList(
			buildLookup(1, singlePos(0x0005, []uint16{0xfff6, 0xffec}, coverage(1, 2))),
			buildLookup(1, singlePos(0x000a, []uint16{5, 10}, coverage(2, 3))),
		),
	)
	first := NewGPOSReader(otf).EdgeInsets()
	second := NewGPOSReader(otf).EdgeInsets()
	env.Empty(cmp.Diff(first, second), "reading twice must yield identical insets")
}

func (env *GPOSReaderEnviron) TestAdjustmentBounds() {
	otf := env.gposFont(
		buildFeatureList(featureSpec{"palt", []uint16{0}}),
		buildLookupList(buildLookup(1, singlePos(0x0001, []uint16{0xfff6}, coverage(1)))),
	)
	reader := NewGPOSReader(otf)
	env.Empty(reader.AdjustmentsForTag(ot.T("liga")))
	env.Empty(reader.AdjustmentsForLookup(-1))
	env.Empty(reader.AdjustmentsForLookup(99))
	env.Len(reader.AdjustmentsForLookup(0), 1)
}

func (env *GPOSReaderEnviron) TestVerticalMetricsFromVmtx() {
	otf := env.parseFont(
		tableSpec{"head", headTable(1000)},
		tableSpec{"maxp", maxpTable(3)},
		tableSpec{"vhea", vheaTable(880, -120, 2)},
		tableSpec{"vmtx", vmtxTable([][2]int16{{1000, 20}, {900, 10}}, 30)},
	)
	reader := NewGPOSReader(otf)
	vmetrics := reader.VerticalMetrics()
	env.Len(vmetrics, 3)
	env.Equal(VerticalMetrics{Height: 1000, TopSideBearing: 20}, vmetrics["glyph00000"])
	env.Equal(VerticalMetrics{Height: 900, TopSideBearing: 30}, vmetrics["glyph00002"])
}
