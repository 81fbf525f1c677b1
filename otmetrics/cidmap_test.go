package otmetrics

import (
	"strings"
	"testing"
)

func TestCIDRenameMapRoundTrip(t *testing.T) {
	mapfile := strings.Join([]string{
		"# CID map for a Japanese typeface",
		"",
		"1434\tuni3041",
		"1435\tuni3042",
		"0\t.notdef",
	}, "\n")
	m, err := ParseCIDRenameMap(strings.NewReader(mapfile))
	if err != nil {
		t.Fatalf("expected map file to parse, err=%v", err)
	}
	if m.Len() != 3 {
		t.Fatalf("expected 3 mapped glyphs, have %d", m.Len())
	}
	if cid, ok := m.CIDName("uni3041"); !ok || cid != "cid01434" {
		t.Fatalf("expected 'uni3041' to map to 'cid01434', have '%s'", cid)
	}
	if name, ok := m.GlyphName("cid01434"); !ok || name != "uni3041" {
		t.Fatalf("expected 'cid01434' to map back to 'uni3041', have '%s'", name)
	}
	if cid, ok := m.CIDName(".notdef"); !ok || cid != "cid00000" {
		t.Fatalf("expected '.notdef' to map to 'cid00000', have '%s'", cid)
	}
}

func TestCIDRenameMapSkipsMalformedLines(t *testing.T) {
	mapfile := strings.Join([]string{
		"no tab separator here",
		"abc\tuni3041",   // non-numeric CID
		"-5\tuni3042",    // negative CID
		"7\t",            // empty name
		"12\tuni3043",    // valid
		"13 \t uni3044 ", // valid, with stray blanks
	}, "\n")
	m, err := ParseCIDRenameMap(strings.NewReader(mapfile))
	if err != nil {
		t.Fatalf("expected map file to parse, err=%v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 mapped glyphs, have %d", m.Len())
	}
	if cid, ok := m.CIDName("uni3044"); !ok || cid != "cid00013" {
		t.Fatalf("expected blanks to be trimmed, have '%s'", cid)
	}
}

func TestCIDRenameMapUnknownNames(t *testing.T) {
	m, err := ParseCIDRenameMap(strings.NewReader("1434\tuni3041\n"))
	if err != nil {
		t.Fatalf("expected map file to parse, err=%v", err)
	}
	if _, ok := m.CIDName("uni9999"); ok {
		t.Fatalf("expected unknown glyph name to miss")
	}
	if _, ok := m.GlyphName("cid99999"); ok {
		t.Fatalf("expected unknown CID name to miss")
	}
	var nilMap *CIDRenameMap
	if nilMap.Len() != 0 {
		t.Fatalf("expected nil map to be empty")
	}
	if _, ok := nilMap.CIDName("uni3041"); ok {
		t.Fatalf("expected nil map lookups to miss")
	}
}
