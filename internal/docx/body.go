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
	"strconv"
	"strings"
)

// Block is one top-level child of the document body: a paragraph, a
// table, a content control and so on. Raw holds the element exactly as it
// appears in the package.
type Block struct {
	// Name is the element's local name, e.g. "p" or "tbl".
	Name string
	Raw  []byte
}

// Text returns the plain text of the block. Paragraphs nested inside the
// block (table cells, content controls) are separated by newlines.
func (b Block) Text() string {
	dec := xml.NewDecoder(bytes.NewReader(b.Raw))
	var sb strings.Builder
	var inText bool
	var runDepth int
	for {
		tok, err := dec.RawToken()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "r":
				runDepth++
			case "tab":
				if runDepth > 0 {
					sb.WriteByte('\t')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "r":
				runDepth--
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// IsPageBreak reports whether the block is a paragraph that holds nothing
// but a page break.
func (b Block) IsPageBreak() bool {
	if b.Name != "p" {
		return false
	}
	dec := xml.NewDecoder(bytes.NewReader(b.Raw))
	found := false
	for {
		tok, err := dec.RawToken()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "br":
				for _, a := range t.Attr {
					if a.Name.Local == "type" && a.Value == "page" {
						found = true
					}
				}
			case "t", "drawing", "pict", "object":
				return false
			}
		}
	}
	return found
}

// body is the main document part split around its w:body children.
type body struct {
	// head runs from the start of the part through the body start tag.
	head []byte
	// rootEnd is the offset in head just past the root start tag.
	rootEnd int
	blocks  []Block
	// sectPr is the trailing section properties element, if any.
	sectPr []byte
	// tail runs from the body end tag to the end of the part.
	tail []byte
	// ns maps prefixes declared on the root element to namespace URIs.
	// The default namespace has the empty prefix.
	ns map[string]string
}

var errNoBody = errors.New("document part has no body")

func parseBody(data []byte) (*body, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	b := &body{ns: map[string]string{}}

	var (
		depth      int
		rootEnd    int64 = -1
		bodyOpen   int64 = -1
		bodyClose  int64 = -1
		bodyPrefix string
		selfClosed bool
		blockStart int64
		blockName  string
	)
	inBody := func() bool { return bodyOpen >= 0 && bodyClose < 0 }

	for {
		pos := dec.InputOffset()
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing document XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch {
			case depth == 1:
				rootEnd = dec.InputOffset()
				collectNamespaces(t, b.ns)
			case depth == 2 && t.Name.Local == "body" && bodyOpen < 0:
				bodyOpen = dec.InputOffset()
				bodyPrefix = t.Name.Space
			case depth == 3 && inBody():
				blockStart, blockName = pos, t.Name.Local
			}
		case xml.EndElement:
			switch {
			case depth == 3 && inBody():
				raw := bytes.Clone(data[blockStart:dec.InputOffset()])
				b.blocks = append(b.blocks, Block{Name: blockName, Raw: raw})
			case depth == 2 && t.Name.Local == "body" && inBody():
				bodyClose = pos
				selfClosed = pos == bodyOpen && bytes.HasSuffix(data[:bodyOpen], []byte("/>"))
			}
			depth--
		}
	}

	if rootEnd < 0 || bodyOpen < 0 || bodyClose < 0 {
		return nil, errNoBody
	}
	b.rootEnd = int(rootEnd)

	if selfClosed {
		// <w:body/> becomes <w:body></w:body> so blocks can be added.
		closeTag := "</body>"
		if bodyPrefix != "" {
			closeTag = "</" + bodyPrefix + ":body>"
		}
		head := bytes.TrimRight(bytes.Clone(data[:bodyOpen-2]), " \t\r\n")
		b.head = append(head, '>')
		b.tail = append([]byte(closeTag), data[bodyOpen:]...)
	} else {
		b.head = bytes.Clone(data[:bodyOpen])
		b.tail = bytes.Clone(data[bodyClose:])
	}

	if n := len(b.blocks); n > 0 && b.blocks[n-1].Name == "sectPr" {
		b.sectPr = b.blocks[n-1].Raw
		b.blocks = b.blocks[:n-1]
	}
	return b, nil
}

// collectNamespaces records the xmlns declarations of start into ns.
func collectNamespaces(start xml.StartElement, ns map[string]string) {
	for _, a := range start.Attr {
		switch {
		case a.Name.Space == "xmlns":
			ns[a.Name.Local] = a.Value
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			ns[""] = a.Value
		}
	}
}

// prefixesFor returns every prefix bound to uri, sorted.
func prefixesFor(ns map[string]string, uri string) []string {
	var out []string
	for p, u := range ns {
		if u == uri && p != "" {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `"`, "&quot;")

// insertNamespaces adds xmlns declarations for decls just before the end of
// the root start tag, which finishes at rootEnd. It returns the new bytes
// and the new rootEnd. Prefixes are written in sorted order.
func insertNamespaces(data []byte, rootEnd int, decls map[string]string) ([]byte, int) {
	if len(decls) == 0 {
		return data, rootEnd
	}
	prefixes := make([]string, 0, len(decls))
	for p := range decls {
		prefixes = append(prefixes, p)
	}
	slices.Sort(prefixes)

	var attrs bytes.Buffer
	for _, p := range prefixes {
		name := "xmlns"
		if p != "" {
			name += ":" + p
		}
		fmt.Fprintf(&attrs, ` %s="%s"`, name, attrEscaper.Replace(decls[p]))
	}

	at := rootEnd - 1
	out := make([]byte, 0, len(data)+attrs.Len())
	out = append(out, data[:at]...)
	out = append(out, attrs.Bytes()...)
	out = append(out, data[at:]...)
	return out, rootEnd + attrs.Len()
}

// declare binds prefixes on the root element. Prefixes that are already
// bound are skipped; callers check for conflicting bindings first.
func (b *body) declare(decls map[string]string) {
	fresh := make(map[string]string, len(decls))
	for p, u := range decls {
		if _, bound := b.ns[p]; !bound {
			fresh[p] = u
		}
	}
	b.head, b.rootEnd = insertNamespaces(b.head, b.rootEnd, fresh)
	for p, u := range fresh {
		b.ns[p] = u
	}
}

func (b *body) render() []byte {
	var buf bytes.Buffer
	buf.Write(b.head)
	for _, blk := range b.blocks {
		buf.Write(blk.Raw)
	}
	buf.Write(b.sectPr)
	buf.Write(b.tail)
	return buf.Bytes()
}

var drawingIDPattern = regexp.MustCompile(`(<[A-Za-z][\w.-]*:docPr\b[^>]*?\sid=")(\d+)(")`)

// maxDrawingID returns the largest wp:docPr id used in the body.
func (b *body) maxDrawingID() int {
	highest := 0
	for _, blk := range b.blocks {
		for _, m := range drawingIDPattern.FindAllSubmatch(blk.Raw, -1) {
			if n, err := strconv.Atoi(string(m[2])); err == nil && n > highest {
				highest = n
			}
		}
	}
	return highest
}

// renumberDrawingIDs gives every drawing in raw a fresh id starting at
// *next. Word rejects documents in which two drawings share an id.
func renumberDrawingIDs(raw []byte, next *int) []byte {
	return drawingIDPattern.ReplaceAllFunc(raw, func(m []byte) []byte {
		sub := drawingIDPattern.FindSubmatch(m)
		out := make([]byte, 0, len(m)+4)
		out = append(out, sub[1]...)
		out = strconv.AppendInt(out, int64(*next), 10)
		out = append(out, sub[3]...)
		*next++
		return out
	})
}
