package otmetrics

import (
	"sort"

	"github.com/npillmayer/cjkmetrics/ot"
)

// Guide angles recognized by the guide-based reader. Horizontal spacing
// guides stand upright (angle 90) and contribute an X coordinate, vertical
// spacing guides lie flat (angle 0) and contribute a Y coordinate. Angles
// are matched exactly; a slanted guide is not a spacing guide.
const (
	GuideAngleHorizontal = 90.0
	GuideAngleVertical   = 0.0
)

// SourceGuide is one user-placed alignment guide of a source-format glyph.
type SourceGuide struct {
	Angle float64 // in degrees
	X     int16   // in design units
	Y     int16
}

// SourceMaster carries the master-wide vertical dimensions of a font
// project source.
type SourceMaster struct {
	Ascender  int16
	Descender int16 // typically negative
}

// SourceGlyph is one glyph of a font project source, with the guides the
// designer attached to it.
type SourceGlyph struct {
	Name   string
	Width  int16 // advance width, in design units
	Guides []SourceGuide
}

// GuideReader derives edge insets from user-placed alignment guides of a
// font-project source, for fonts that have no compiled GPOS table yet.
// It implements the same read contract as GPOSReader.
//
// Only the last declared master's ascender/descender is used. This
// single-master assumption mirrors the source convention the guides come
// from and is deliberate, not a shortcut.
type GuideReader struct {
	insets map[string]EdgeInsets
}

var _ Reader = &GuideReader{}

// NewGuideReader builds a metrics reader over source-format glyphs.
func NewGuideReader(masters []SourceMaster, glyphs []SourceGlyph) *GuideReader {
	r := &GuideReader{insets: make(map[string]EdgeInsets)}
	var master SourceMaster
	hasMaster := len(masters) > 0
	if hasMaster {
		master = masters[len(masters)-1]
	}
	for _, glyph := range glyphs {
		insets, ok := guideInsets(glyph, master, hasMaster)
		if ok {
			r.insets[glyph.Name] = insets
		}
	}
	tracer().Debugf("guide reader set up: %d glyphs with insets", len(r.insets))
	return r
}

// guideInsets computes the insets of one glyph from its guides. An entry is
// only emitted if at least one of the four values is non-zero; a glyph with
// fewer than two guides per direction contributes nothing for that
// direction.
func guideInsets(glyph SourceGlyph, master SourceMaster, hasMaster bool) (EdgeInsets, bool) {
	var xs, ys []int
	for _, guide := range glyph.Guides {
		switch guide.Angle {
		case GuideAngleHorizontal:
			xs = append(xs, int(guide.X))
		case GuideAngleVertical:
			ys = append(ys, int(guide.Y))
		}
	}
	sort.Ints(xs)
	sort.Ints(ys)

	insets := EdgeInsets{}
	if len(xs) >= 2 {
		insets.Left = int16(xs[0])
		insets.Right = int16(int(glyph.Width) - xs[len(xs)-1])
	}
	if len(ys) >= 2 && hasMaster {
		insets.Top = int16(int(master.Ascender) - ys[len(ys)-1])
		insets.Bottom = int16(-(int(master.Descender) - ys[0]))
	}
	if insets.IsZero() {
		return EdgeInsets{}, false
	}
	return insets, true
}

// Tags returns no tags; source-format guides are not organized by feature.
func (r *GuideReader) Tags() []ot.Tag {
	return nil
}

// HasMetrics reports whether at least one glyph produced non-empty insets.
func (r *GuideReader) HasMetrics() bool {
	return len(r.insets) > 0
}

// EdgeInsets returns the computed edge insets per glyph name.
func (r *GuideReader) EdgeInsets() map[string]EdgeInsets {
	insets := make(map[string]EdgeInsets, len(r.insets))
	for name, ins := range r.insets {
		insets[name] = ins
	}
	return insets
}

// VerticalMetrics returns an empty map; the source format has no
// vertical-metrics concept.
func (r *GuideReader) VerticalMetrics() map[string]VerticalMetrics {
	return make(map[string]VerticalMetrics)
}
