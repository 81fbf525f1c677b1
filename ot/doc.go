/*
Package ot provides access to the OpenType font tables needed for
reading CJK alternate-metrics information.

This is not a general-purpose OpenType parser. Only the tables relevant
for extracting palt/vpal positioning data are interpreted:

▪︎ GPOS: feature list, lookup list, and single-adjustment (type 1)
positioning subtables with their value records.

▪︎ vhea/vmtx: vertical header and vertical metrics.

▪︎ post: glyph names.

▪︎ head, maxp: global font information and glyph count.

Every other table contained in a font is still exposed as a generic
table (offset, length and bytes), i.e. no table information is dropped,
but no interpretation is attempted.

Code comments often cite passages from the OpenType specification
version 1.8.4; see https://docs.microsoft.com/en-us/typography/opentype/spec/.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package ot

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'font.opentype'
func tracer() tracing.Trace {
	return tracing.Select("font.opentype")
}
