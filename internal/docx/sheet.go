// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"
)

// sheet is an XML part read as a root element and its direct children,
// such as word/styles.xml, word/footnotes.xml or word/numbering.xml.
type sheet struct {
	data []byte
	// rootEnd is the offset just past the root start tag.
	rootEnd int
	// closeAt is the offset of the root end tag.
	closeAt int
	ns      map[string]string
	// prefix is bound to WordprocessingML on the root, if any.
	prefix  string
	entries []entry
}

// entry is one child of a sheet's root element.
type entry struct {
	name string
	// attrs holds the WordprocessingML attributes by local name.
	attrs      map[string]string
	start, end int
}

func (s *sheet) raw(e entry) []byte {
	return s.data[e.start:e.end]
}

var errNoRoot = errors.New("part has no root element")

func parseSheet(data []byte) (*sheet, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	s := &sheet{data: data, rootEnd: -1, closeAt: -1, ns: map[string]string{}}

	var (
		depth int
		root  xml.Name
		cur   entry
	)
	for {
		pos := dec.InputOffset()
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing part XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				root = t.Name
				s.rootEnd = int(dec.InputOffset())
				collectNamespaces(t, s.ns)
				if ps := prefixesFor(s.ns, nsWordML); len(ps) > 0 {
					s.prefix = ps[0]
				}
			case 2:
				cur = entry{name: t.Name.Local, attrs: map[string]string{}, start: int(pos)}
				for _, a := range t.Attr {
					if s.prefix != "" && a.Name.Space == s.prefix {
						cur.attrs[a.Name.Local] = a.Value
					}
				}
			}
		case xml.EndElement:
			switch depth {
			case 2:
				cur.end = int(dec.InputOffset())
				s.entries = append(s.entries, cur)
			case 1:
				s.closeAt = int(pos)
			}
			depth--
		}
	}
	if s.rootEnd < 0 || s.closeAt < 0 {
		return nil, errNoRoot
	}
	if s.closeAt == s.rootEnd && bytes.HasSuffix(data[:s.rootEnd], []byte("/>")) {
		return parseSheet(expandRoot(data, s.rootEnd, root))
	}
	return s, nil
}

// expandRoot rewrites a self-closing root <x:root/> as <x:root></x:root>.
func expandRoot(data []byte, rootEnd int, name xml.Name) []byte {
	qname := name.Local
	if name.Space != "" {
		qname = name.Space + ":" + name.Local
	}
	out := bytes.TrimRight(bytes.Clone(data[:rootEnd-2]), " \t\r\n")
	out = append(out, '>')
	out = append(out, "</"+qname+">"...)
	return append(out, data[rootEnd:]...)
}

// insertPoint returns where entries of group order[idx] go: after the last
// entry of that group or an earlier one, else before the first entry of a
// later group, else at the end of the root.
func (s *sheet) insertPoint(order []string, idx int) int {
	at := -1
	for _, e := range s.entries {
		if slices.Contains(order[:idx+1], e.name) {
			at = e.end
		}
	}
	if at >= 0 {
		return at
	}
	for _, e := range s.entries {
		if slices.Contains(order[idx+1:], e.name) {
			return e.start
		}
	}
	return s.closeAt
}

type insertion struct {
	at   int
	data []byte
}

// splice returns the sheet with ins applied and decls declared on the
// root. Insertions at the same offset keep their order.
func (s *sheet) splice(ins []insertion, decls map[string]string) []byte {
	slices.SortStableFunc(ins, func(a, b insertion) int { return a.at - b.at })
	var out bytes.Buffer
	last := 0
	for _, in := range ins {
		out.Write(s.data[last:in.at])
		out.Write(in.data)
		last = in.at
	}
	out.Write(s.data[last:])
	data, _ := insertNamespaces(out.Bytes(), s.rootEnd, decls)
	return data
}

// missingNamespaces returns the bindings of src that dst lacks. A prefix
// bound to different namespaces in the two is an error.
func missingNamespaces(dst, src map[string]string) (map[string]string, error) {
	missing := map[string]string{}
	for prefix, uri := range src {
		have, ok := dst[prefix]
		if !ok {
			missing[prefix] = uri
			continue
		}
		if have != uri {
			return nil, fmt.Errorf("namespace prefix %q is bound to %s, source binds it to %s", prefix, have, uri)
		}
	}
	return missing, nil
}

// quotedValue matches an attribute value in either quote style, capturing
// it in group 2 for double quotes or group 3 for single quotes.
const quotedValue = `(?:"([^"]*)"|'([^']*)')`

func alternation(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	return strings.Join(quoted, "|")
}

// attrPattern matches attribute attr on any of the elements elems, where
// both are qualified with one of prefixes, e.g. w:id on
// w:footnoteReference. It returns nil when no prefix is given.
func attrPattern(prefixes, elems []string, attr string) *regexp.Regexp {
	prefixes = slices.DeleteFunc(slices.Clone(prefixes), func(p string) bool { return p == "" })
	if len(prefixes) == 0 {
		return nil
	}
	p := alternation(prefixes)
	return regexp.MustCompile(`(<(?:` + p + `):(?:` + alternation(elems) + `)\b[^>]*?\s(?:` + p + `):` +
		regexp.QuoteMeta(attr) + `\s*=\s*)` + quotedValue)
}

// replaceValues substitutes every attribute value matched by pattern with
// the result of fn, keeping the original quote style. A nil pattern leaves
// raw unchanged. On error the first one is returned.
func replaceValues(raw []byte, pattern *regexp.Regexp, fn func(string) (string, error)) ([]byte, error) {
	if pattern == nil {
		return raw, nil
	}
	var firstErr error
	out := pattern.ReplaceAllFunc(raw, func(m []byte) []byte {
		loc := pattern.FindSubmatchIndex(m)
		quote, lo, hi := byte('"'), loc[4], loc[5]
		if lo < 0 {
			quote, lo, hi = '\'', loc[6], loc[7]
		}
		val, err := fn(string(m[lo:hi]))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return m
		}
		res := make([]byte, 0, len(m)+4)
		res = append(res, m[:loc[3]]...)
		res = append(res, quote)
		res = append(res, val...)
		res = append(res, quote)
		return append(res, m[loc[1]:]...)
	})
	return out, firstErr
}

// renameValues rewrites matched values found in ids and leaves the rest.
func renameValues(raw []byte, pattern *regexp.Regexp, ids map[string]string) []byte {
	if len(ids) == 0 {
		return raw
	}
	out, _ := replaceValues(raw, pattern, func(v string) (string, error) {
		if to, ok := ids[v]; ok {
			return to, nil
		}
		return v, nil
	})
	return out
}

// matchedValues collects every attribute value pattern matches in blocks.
func matchedValues(blocks []Block, pattern *regexp.Regexp) map[string]bool {
	found := map[string]bool{}
	if pattern == nil {
		return found
	}
	for _, blk := range blocks {
		for _, loc := range pattern.FindAllSubmatchIndex(blk.Raw, -1) {
			lo, hi := loc[4], loc[5]
			if lo < 0 {
				lo, hi = loc[6], loc[7]
			}
			found[string(blk.Raw[lo:hi])] = true
		}
	}
	return found
}
