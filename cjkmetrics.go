/*
Package cjkmetrics extracts per-glyph side-bearing information from
OpenType fonts carrying the "palt" (proportional alternate widths) and
"vpal" (proportional alternate vertical metrics) features.

CJK fonts are designed on a square em. Proportional spacing for such
fonts is not expressed through advance widths, but through GPOS
positioning adjustments attached to the palt/vpal features. This module
walks the GPOS table of a compiled font and reduces those adjustments
into per-glyph edge insets (left/right/top/bottom), which a font editor
can use to place side-bearing guide anchors.

Package structure:

▪︎ cjkmetrics (this package): loading of font binaries.

▪︎ ot: low-level access to the OpenType tables needed here
(GPOS, vmtx, vhea, post, head, maxp).

▪︎ otmetrics: the metrics readers, reducing GPOS value records or
source-format alignment guides into edge insets.

______________________________________________________________________

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package cjkmetrics

import (
	"os"

	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/image/font/sfnt"
)

// tracer writes to trace with key 'cjkmetrics'
func tracer() tracing.Trace {
	return tracing.Select("cjkmetrics")
}

// ScalableFont is an internal representation of an outline-font of type
// TTF of OTF.
type ScalableFont struct {
	Fontname string
	Filepath string     // file path
	Binary   []byte     // raw data
	SFNT     *sfnt.Font // the font's container
}

// LoadOpenTypeFont loads an OpenType font (TTF or OTF) from a file.
func LoadOpenTypeFont(fontfile string) (*ScalableFont, error) {
	bytez, err := os.ReadFile(fontfile)
	if err != nil {
		return nil, err
	}
	f, err := ParseOpenTypeFont(bytez)
	if err != nil {
		return nil, err
	}
	f.Filepath = fontfile
	return f, nil
}

// ParseOpenTypeFont loads an OpenType font (TTF or OTF) from memory.
func ParseOpenTypeFont(fbytes []byte) (f *ScalableFont, err error) {
	f = &ScalableFont{Binary: fbytes}
	f.SFNT, err = sfnt.Parse(f.Binary)
	if err != nil {
		return nil, err
	}
	if f.Fontname, err = f.SFNT.Name(nil, sfnt.NameIDFull); err == nil {
		tracer().Debugf("loaded and parsed SFNT %s", f.Fontname)
	}
	return f, nil
}
