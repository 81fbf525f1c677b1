package ot

// GPosTable is a type representing an OpenType GPOS table
// (see https://docs.microsoft.com/en-us/typography/opentype/spec/gpos).
//
// Of the nine GPOS lookup types, only type 1 (single adjustment) is parsed
// into a structured representation, as this is the lookup type carrying
// alternate-metrics features like 'palt' and 'vpal'. All other lookup types
// are listed but left uninterpreted.
type GPosTable struct {
	tableBase
	LayoutTable
}

func newGPosTable(tag Tag, b binarySegm, offset, size uint32) *GPosTable {
	t := &GPosTable{}
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

var _ Table = &GPosTable{}
