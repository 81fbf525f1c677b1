package otmetrics

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CIDRenameMap translates between developer glyph names and the synthetic
// "cidNNNNN" names used by CID-keyed CJK fonts. The map is read from the
// tab-separated MapFile resources shipped with CID font tooling; each line
// carries a CID and the corresponding glyph name:
//
//	1434	uni3041
//
// Callers use it as a fallback when looking up edge insets: a font compiled
// as CID-keyed reports its glyphs as "cid01434" while the editor knows the
// glyph as "uni3041".
type CIDRenameMap struct {
	toCID  map[string]string
	toName map[string]string
}

// ParseCIDRenameMap reads a tab-separated MapFile. Lines that do not carry
// a numeric CID and a name are skipped; only read failures are an error.
func ParseCIDRenameMap(r io.Reader) (*CIDRenameMap, error) {
	m := &CIDRenameMap{
		toCID:  make(map[string]string),
		toName: make(map[string]string),
	}
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			tracer().Infof("map file line %d has no tab separator, skipped", lineno)
			continue
		}
		cid, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil || cid < 0 {
			tracer().Infof("map file line %d has no numeric CID, skipped", lineno)
			continue
		}
		name := strings.TrimSpace(fields[1])
		if name == "" {
			continue
		}
		cidName := fmt.Sprintf("cid%05d", cid)
		m.toCID[name] = cidName
		m.toName[cidName] = name
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Len returns the number of mapped glyphs.
func (m *CIDRenameMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.toCID)
}

// CIDName returns the "cidNNNNN" name for a developer glyph name.
func (m *CIDRenameMap) CIDName(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	cid, ok := m.toCID[name]
	return cid, ok
}

// GlyphName returns the developer glyph name for a "cidNNNNN" name.
func (m *CIDRenameMap) GlyphName(cidName string) (string, bool) {
	if m == nil {
		return "", false
	}
	name, ok := m.toName[cidName]
	return name, ok
}
