package otmetrics

import (
	"github.com/npillmayer/cjkmetrics/ot"
)

// Direction distinguishes horizontal from vertical positioning adjustments.
type Direction int8

const (
	Horizontal Direction = iota
	Vertical
)

func (d Direction) String() string {
	if d == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Adjustment is one positioning adjustment for one glyph, decoded from a
// GPOS value record. Adjustments are inputs to the inset reduction and are
// never mutated.
type Adjustment struct {
	Glyph     ot.GlyphIndex
	Placement int16 // shift of the glyph's ink origin, in design units
	Advance   int16 // change of the glyph's advance, in design units
	Direction Direction
}

// EdgeInsets describes, for one glyph, the inward offset from each side of
// the glyph's advance box to where the true visual/spacing boundary lies.
// All values are in design units.
type EdgeInsets struct {
	Left   int16
	Right  int16
	Top    int16
	Bottom int16
}

// IsZero reports whether all four insets are zero.
func (insets EdgeInsets) IsZero() bool {
	return insets.Left == 0 && insets.Right == 0 && insets.Top == 0 && insets.Bottom == 0
}

// VerticalMetrics is the vertical advance information for one glyph,
// sourced from a vmtx table.
type VerticalMetrics struct {
	Height         uint16
	TopSideBearing int16
}

// Reader is the read contract shared by the GPOS-based and the guide-based
// metrics readers.
type Reader interface {
	Tags() []ot.Tag                              // distinct feature tags, first-seen order
	HasMetrics() bool                            // true iff alternate metrics are present
	EdgeInsets() map[string]EdgeInsets           // per glyph name
	VerticalMetrics() map[string]VerticalMetrics // per glyph name; empty without a vmtx table
}

// reduce folds all adjustments accumulated for one glyph into edge insets.
//
// Placements shift the glyph's ink origin, advances change the total
// advance; the right/bottom insets account for the combined effect of shift
// plus advance change. The sign asymmetry between the horizontal and the
// vertical case reflects the inverted advance direction of vertical layout
// and is a fixed contract.
func reduce(adjustments []Adjustment) EdgeInsets {
	var px, ax, py, ay int
	for _, adj := range adjustments {
		if adj.Direction == Vertical {
			py += int(adj.Placement)
			ay += int(adj.Advance)
		} else {
			px += int(adj.Placement)
			ax += int(adj.Advance)
		}
	}
	return EdgeInsets{
		Left:   int16(-px),
		Right:  int16(-(ax - px)),
		Top:    int16(py),
		Bottom: int16(-(ay + py)),
	}
}
