/*
Package otmetrics reads per-glyph alternate metrics for CJK fonts.

Two readers are provided, implementing the same read contract:

▪︎ GPOSReader walks the GPOS table of a compiled font binary and reduces
the value records of the "palt" and "vpal" features into per-glyph edge
insets. It also reads the vmtx table, if present.

▪︎ GuideReader derives edge insets from user-placed alignment guides of
a font-project source, for fonts that have not been compiled yet.

Both readers are pure transforms: all state is derived eagerly at
construction from an immutable input, and queries may be repeated
without re-computation or locking.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package otmetrics

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'font.metrics'
func tracer() tracing.Trace {
	return tracing.Select("font.metrics")
}
