package ot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// parseGPos parses the GPOS (Glyph Positioning) table.
func parseGPos(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	var err error
	gpos := newGPosTable(tag, b, offset, size)
	err = parseLayoutHeader(&gpos.LayoutTable, b, err, tag, ec)
	err = parseLookupList(&gpos.LayoutTable, b, err, tag, ec)
	err = parseFeatureList(&gpos.LayoutTable, b, err, tag, ec)
	if err != nil {
		tracer().Errorf("error parsing GPOS table: %v", err)
		return gpos, err
	}
	mj, mn := gpos.header.Version()
	tracer().Debugf("GPOS table has version %d.%d", mj, mn)
	tracer().Debugf("GPOS table has %d lookup list entries", len(gpos.lookups))
	return gpos, err
}

// --- Layout header ---------------------------------------------------------

func parseLayoutHeader(lytt *LayoutTable, b binarySegm, err error, tableTag Tag, ec *errorCollector) error {
	if err != nil {
		return err
	}
	if len(b) < 10 {
		ec.addError(tableTag, "Header", fmt.Sprintf("header too small: %d bytes", len(b)), SeverityCritical, 0)
		return errFontFormat("layout table header too small")
	}

	h := &LayoutHeader{}
	r := bytes.NewReader(b)
	if err = binary.Read(r, binary.BigEndian, &h.versionHeader); err != nil {
		return err
	}
	if h.Major != 1 || (h.Minor != 0 && h.Minor != 1) {
		ec.addError(tableTag, "Header", fmt.Sprintf("unsupported version %d.%d", h.Major, h.Minor), SeverityMajor, 0)
		return fmt.Errorf("unsupported layout version (major: %d, minor: %d)",
			h.Major, h.Minor)
	}

	switch h.Minor {
	case 0:
		if err = binary.Read(r, binary.BigEndian, &h.offsets.layoutHeader10); err != nil {
			return err
		}
	case 1:
		if len(b) < 14 {
			ec.addError(tableTag, "Header", "v1.1 header incomplete", SeverityCritical, 0)
			return errFontFormat("layout v1.1 header incomplete")
		}
		if err = binary.Read(r, binary.BigEndian, &h.offsets); err != nil {
			return err
		}
	}

	// Validate all offsets point within table bounds
	tableSize := len(b)
	if h.offsets.ScriptListOffset > 0 && int(h.offsets.ScriptListOffset) >= tableSize {
		return fmt.Errorf("layout ScriptList offset out of bounds: %d >= %d",
			h.offsets.ScriptListOffset, tableSize)
	}
	if h.offsets.FeatureListOffset > 0 && int(h.offsets.FeatureListOffset) >= tableSize {
		return fmt.Errorf("layout FeatureList offset out of bounds: %d >= %d",
			h.offsets.FeatureListOffset, tableSize)
	}
	if h.offsets.LookupListOffset > 0 && int(h.offsets.LookupListOffset) >= tableSize {
		return fmt.Errorf("layout LookupList offset out of bounds: %d >= %d",
			h.offsets.LookupListOffset, tableSize)
	}
	if h.Minor >= 1 && h.offsets.FeatureVariationsOffset > 0 &&
		int(h.offsets.FeatureVariationsOffset) >= tableSize {
		return fmt.Errorf("layout FeatureVariations offset out of bounds: %d >= %d",
			h.offsets.FeatureVariationsOffset, tableSize)
	}

	lytt.header = h
	return nil
}

// --- Feature list ----------------------------------------------------------

// The FeatureList table enumerates features in an array of records (FeatureRecord) and
// specifies the total number of features (FeatureCount). Every feature must have a
// FeatureRecord, which consists of a FeatureTag that identifies the feature and an offset
// to a Feature table. The FeatureRecord array is arranged alphabetically
// by FeatureTag names; a tag may occur multiple times.
func parseFeatureList(lytt *LayoutTable, b binarySegm, err error, tableTag Tag, ec *errorCollector) error {
	if err != nil {
		return err
	}
	floffset := lytt.header.offsetFor(layoutFeatureSection)
	if floffset >= len(b) {
		return io.ErrUnexpectedEOF
	}
	b = b[floffset:]
	if len(b) < 2 {
		ec.addError(tableTag, "FeatureList", "header too small", SeverityCritical, 0)
		return errFontFormat("feature list header too small")
	}
	count := int(b.U16(0))
	if count > MaxFeatureCount {
		ec.addError(tableTag, "FeatureList", fmt.Sprintf("count %d exceeds maximum %d", count, MaxFeatureCount), SeverityCritical, 0)
		return fmt.Errorf("feature list count %d exceeds maximum %d", count, MaxFeatureCount)
	}
	if 2+count*6 > len(b) {
		ec.addError(tableTag, "FeatureList", "feature records out of bounds", SeverityCritical, 0)
		return errFontFormat("feature records out of bounds")
	}
	fl := &FeatureList{records: make([]FeatureRecord, 0, count)}
	for i := 0; i < count; i++ {
		recpos := 2 + i*6
		tag := MakeTag(b[recpos : recpos+4])
		featureOffset := int(b.U16(recpos + 4))
		indices, ferr := parseFeatureTable(b, featureOffset)
		if ferr != nil {
			ec.addError(tableTag, "Feature", fmt.Sprintf("feature %s: %v", tag, ferr), SeverityMajor, 0)
			continue
		}
		fl.records = append(fl.records, FeatureRecord{Tag: tag, LookupIndices: indices})
	}
	tracer().Debugf("feature list has %d records", len(fl.records))
	lytt.features = fl
	return nil
}

// A Feature table consists of an offset to FeatureParams (mostly NULL), a
// count of the lookups realizing the feature, and the lookup list indices.
func parseFeatureTable(b binarySegm, offset int) ([]uint16, error) {
	if offset <= 0 || offset+4 > len(b) {
		return nil, errBufferBounds
	}
	b = b[offset:]
	count := int(b.U16(2))
	if 4+count*2 > len(b) {
		return nil, errBufferBounds
	}
	indices := make([]uint16, count)
	for i := 0; i < count; i++ {
		indices[i] = b.U16(4 + i*2)
	}
	return indices, nil
}

// --- Lookup list -----------------------------------------------------------

// parseLookupList parses the LookupList.
// See https://www.microsoft.com/typography/otspec/chapter2.htm#lulTbl
func parseLookupList(lytt *LayoutTable, b binarySegm, err error, tableTag Tag, ec *errorCollector) error {
	if err != nil {
		return err
	}
	lloffset := lytt.header.offsetFor(layoutLookupSection)
	if lloffset >= len(b) {
		return io.ErrUnexpectedEOF
	}
	ll := b[lloffset:]

	if len(ll) < 2 {
		ec.addError(tableTag, "LookupList", "header too small", SeverityCritical, 0)
		return errFontFormat("lookup list header too small")
	}
	count := int(ll.U16(0))
	if count > MaxLookupCount {
		ec.addError(tableTag, "LookupList", fmt.Sprintf("count %d exceeds maximum %d", count, MaxLookupCount), SeverityCritical, 0)
		return fmt.Errorf("lookup list count %d exceeds maximum %d", count, MaxLookupCount)
	}
	if 2+count*2 > len(ll) {
		ec.addError(tableTag, "LookupList", "lookup offsets out of bounds", SeverityCritical, 0)
		return errFontFormat("lookup offsets out of bounds")
	}
	lookups := make([]*Lookup, count)
	for i := 0; i < count; i++ {
		off := int(ll.U16(2 + i*2))
		if off == 0 {
			lookups[i] = &Lookup{}
			continue
		}
		if off+6 > len(ll) {
			ec.addError(tableTag, "LookupList", fmt.Sprintf("lookup offset %d out of bounds (size %d)", off, len(ll)), SeverityCritical, 0)
			return errFontFormat("lookup offset out of bounds")
		}
		lookup, lerr := parseLookup(ll[off:], tableTag, ec)
		if lerr != nil {
			ec.addError(tableTag, "Lookup", fmt.Sprintf("lookup %d: %v", i, lerr), SeverityMajor, 0)
			lookups[i] = &Lookup{}
			continue
		}
		lookups[i] = lookup
	}
	lytt.lookups = lookups
	return nil
}

// A Lookup table starts with lookupType, lookupFlag and subTableCount,
// followed by the subtable offsets (from the start of the lookup) and an
// optional markFilteringSet.
//
// Subtables of lookup type 1 (single adjustment) are parsed; subtables of
// type 9 (extension) are resolved and parsed if they wrap a type 1 subtable.
// Subtables of all other types are counted but left uninterpreted.
func parseLookup(b binarySegm, tableTag Tag, ec *errorCollector) (*Lookup, error) {
	if len(b) < 6 {
		return nil, errBufferBounds
	}
	lookup := &Lookup{
		Type: LayoutTableLookupType(b.U16(0)),
		Flag: LayoutTableLookupFlag(b.U16(2)),
	}
	subtableCount := int(b.U16(4))
	if 6+subtableCount*2 > len(b) {
		return nil, errBufferBounds
	}
	if lookup.Flag&LOOKUP_FLAG_USE_MARK_FILTERING_SET != 0 {
		if 6+subtableCount*2+2 > len(b) {
			return nil, errBufferBounds
		}
		lookup.MarkFilteringSet = b.U16(6 + subtableCount*2)
	}
	lookup.subtableCount = subtableCount
	for i := 0; i < subtableCount; i++ {
		off := int(b.U16(6 + i*2))
		if off == 0 || off >= len(b) {
			continue
		}
		sub, subType := b[off:], lookup.Type
		if subType == GPosLookupTypeExtensionPos {
			resolved, resolvedType, ok := resolveExtensionSubtable(sub)
			if !ok {
				ec.addWarning(tableTag, "extension subtable unresolvable", 0)
				continue
			}
			sub, subType = resolved, resolvedType
		}
		if subType != GPosLookupTypeSingle {
			continue
		}
		st, serr := parseSinglePosSubtable(sub)
		if serr != nil {
			ec.addError(tableTag, "SinglePos", serr.Error(), SeverityMajor, 0)
			continue
		}
		lookup.SinglePos = append(lookup.SinglePos, st)
	}
	return lookup, nil
}

// An Extension positioning subtable redirects to a single subtable of any
// other lookup type, addressed with a 32-bit offset. This is the only place
// where 32-bit subtable offsets occur; fonts use it when the 16-bit offsets
// of a regular lookup cannot span the subtable data.
func resolveExtensionSubtable(b binarySegm) (binarySegm, LayoutTableLookupType, bool) {
	if len(b) < 8 {
		return nil, 0, false
	}
	if b.U16(0) != 1 { // posFormat
		return nil, 0, false
	}
	extType := LayoutTableLookupType(b.U16(2))
	extOffset := b.U32(4)
	if extType == GPosLookupTypeExtensionPos || extOffset == 0 || extOffset >= uint32(len(b)) {
		return nil, 0, false
	}
	return b[extOffset:], extType, true
}

// --- Single adjustment subtables -------------------------------------------

// A SinglePos subtable comes in two formats. Format 1 applies a single value
// record to all glyphs of the coverage, format 2 carries one value record
// per covered glyph.
func parseSinglePosSubtable(b binarySegm) (SinglePosSubtable, error) {
	st := SinglePosSubtable{}
	if len(b) < 6 {
		return st, errBufferBounds
	}
	st.Format = b.U16(0)
	coverageOffset := int(b.U16(2))
	st.ValueFormat = ValueFormat(b.U16(4))
	if coverageOffset <= 0 || coverageOffset >= len(b) {
		return st, errFontFormat("SinglePos coverage offset out of bounds")
	}
	coverage, err := parseCoverage(b[coverageOffset:])
	if err != nil {
		return st, err
	}
	st.Coverage = coverage
	size := valueRecordSize(st.ValueFormat)
	switch st.Format {
	case 1:
		if 6+size > len(b) {
			return st, errBufferBounds
		}
		vr, _ := parseValueRecord(b, 6, st.ValueFormat)
		st.Values = []ValueRecord{vr}
	case 2:
		if len(b) < 8 {
			return st, errBufferBounds
		}
		valueCount := int(b.U16(6))
		if 8+valueCount*size > len(b) {
			return st, errBufferBounds
		}
		values := make([]ValueRecord, valueCount)
		offset := 8
		for i := 0; i < valueCount; i++ {
			vr, n := parseValueRecord(b, offset, st.ValueFormat)
			values[i] = vr
			offset += n
		}
		st.Values = values
	default:
		return st, errFontFormat(fmt.Sprintf("unknown SinglePos format %d", st.Format))
	}
	return st, nil
}

// parseValueRecord reads a ValueRecord from binary data based on the ValueFormat bitmask.
// Returns the parsed ValueRecord and the number of bytes consumed.
// https://docs.microsoft.com/en-us/typography/opentype/spec/gpos#value-record
func parseValueRecord(b binarySegm, offset int, format ValueFormat) (ValueRecord, int) {
	vr := ValueRecord{}
	pos := offset

	if format&ValueFormatXPlacement != 0 {
		vr.XPlacement = int16(b.U16(pos))
		pos += 2
	}
	if format&ValueFormatYPlacement != 0 {
		vr.YPlacement = int16(b.U16(pos))
		pos += 2
	}
	if format&ValueFormatXAdvance != 0 {
		vr.XAdvance = int16(b.U16(pos))
		pos += 2
	}
	if format&ValueFormatYAdvance != 0 {
		vr.YAdvance = int16(b.U16(pos))
		pos += 2
	}
	if format&ValueFormatXPlaDevice != 0 {
		vr.XPlaDevice = b.U16(pos)
		pos += 2
	}
	if format&ValueFormatYPlaDevice != 0 {
		vr.YPlaDevice = b.U16(pos)
		pos += 2
	}
	if format&ValueFormatXAdvDevice != 0 {
		vr.XAdvDevice = b.U16(pos)
		pos += 2
	}
	if format&ValueFormatYAdvDevice != 0 {
		vr.YAdvDevice = b.U16(pos)
		pos += 2
	}

	return vr, pos - offset
}

// valueRecordSize returns the size in bytes of a ValueRecord based on its format.
func valueRecordSize(format ValueFormat) int {
	size := 0
	if format&ValueFormatXPlacement != 0 {
		size += 2
	}
	if format&ValueFormatYPlacement != 0 {
		size += 2
	}
	if format&ValueFormatXAdvance != 0 {
		size += 2
	}
	if format&ValueFormatYAdvance != 0 {
		size += 2
	}
	if format&ValueFormatXPlaDevice != 0 {
		size += 2
	}
	if format&ValueFormatYPlaDevice != 0 {
		size += 2
	}
	if format&ValueFormatXAdvDevice != 0 {
		size += 2
	}
	if format&ValueFormatYAdvDevice != 0 {
		size += 2
	}
	return size
}

// --- Coverage --------------------------------------------------------------

// Read a coverage table-module, which comes in two formats (1 and 2).
// A Coverage table defines a unique index value, the Coverage Index, for each
// covered glyph. Range records of format 2 are expanded into a flat glyph
// list here.
func parseCoverage(b binarySegm) (Coverage, error) {
	tracer().Debugf("parsing Coverage")
	if len(b) < 4 {
		return Coverage{}, errBufferBounds
	}
	format := b.U16(0)
	count := int(b.U16(2))
	tracer().Debugf("coverage header format %d has count = %d ", format, count)

	switch format {
	case 1:
		// Format 1: array of glyph IDs (2 bytes each)
		if 4+count*2 > len(b) {
			return Coverage{}, errFontFormat("coverage format 1 extends beyond bounds")
		}
		glyphs := make([]GlyphIndex, count)
		for i := 0; i < count; i++ {
			glyphs[i] = GlyphIndex(b.U16(4 + i*2))
		}
		return Coverage{Format: format, glyphs: glyphs}, nil
	case 2:
		// Format 2: array of range records (6 bytes each: start, end, startCoverageIndex)
		if 4+count*6 > len(b) {
			return Coverage{}, errFontFormat("coverage format 2 extends beyond bounds")
		}
		var glyphs []GlyphIndex
		for i := 0; i < count; i++ {
			recpos := 4 + i*6
			start := GlyphIndex(b.U16(recpos))
			end := GlyphIndex(b.U16(recpos + 2))
			if end < start {
				return Coverage{}, errFontFormat("coverage range end precedes start")
			}
			if len(glyphs)+int(end-start)+1 > MaxCoverageCount {
				return Coverage{}, errFontFormat("coverage glyph count out of range")
			}
			for g := start; ; g++ {
				glyphs = append(glyphs, g)
				if g == end {
					break
				}
			}
		}
		return Coverage{Format: format, glyphs: glyphs}, nil
	}
	return Coverage{}, errFontFormat(fmt.Sprintf("unknown coverage format %d", format))
}
