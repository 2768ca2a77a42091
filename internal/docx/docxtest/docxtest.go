// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docxtest builds small .docx packages for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const (
	nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	RelTypeImage     = nsR + "/image"
	RelTypeHyperlink = nsR + "/hyperlink"
	RelTypeFootnotes = nsR + "/footnotes"
	RelTypeNumbering = nsR + "/numbering"
	relTypeStyles    = nsR + "/styles"

	ContentTypeFootnotes = "application/vnd.openxmlformats-officedocument.wordprocessingml.footnotes+xml"
	ContentTypeNumbering = "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"
)

// Rel is an extra relationship of the main document part.
type Rel struct {
	ID       string
	Type     string
	Target   string
	External bool
}

// Options describes a package to build.
type Options struct {
	// Paragraphs become one w:p each, in order.
	Paragraphs []string

	// Body is raw XML appended after the paragraphs, inside w:body.
	Body string

	// Rels are declared on word/document.xml in addition to the styles
	// relationship (rId1).
	Rels []Rel

	// Parts are extra package parts keyed by name, e.g. word/media/image1.png.
	Parts map[string][]byte

	// Overrides are content type overrides keyed by part name, e.g.
	// /word/footnotes.xml.
	Overrides map[string]string

	// StyleIDs are paragraph styles defined in word/styles.xml.
	// Defaults to Normal.
	StyleIDs []string

	// Namespaces are extra xmlns declarations on w:document.
	Namespaces map[string]string
}

// Paragraphs returns a package holding one paragraph per text.
func Paragraphs(texts ...string) []byte {
	return Build(Options{Paragraphs: texts})
}

// Write stores a package holding one paragraph per text at dir/name and
// returns its path.
func Write(t testing.TB, dir, name string, texts ...string) string {
	t.Helper()
	return WriteBytes(t, dir, name, Paragraphs(texts...))
}

// WriteBytes stores data at dir/name and returns the path.
func WriteBytes(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// Build assembles a package from opts.
func Build(opts Options) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	add := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			panic(err)
		}
	}

	add("[Content_Types].xml", contentTypes(opts))
	add("_rels/.rels", xml.Header+`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
		`<Relationship Id="rId1" Type="`+nsR+`/officeDocument" Target="word/document.xml"/></Relationships>`)
	add("word/document.xml", document(opts))
	add("word/_rels/document.xml.rels", documentRels(opts))
	add("word/styles.xml", styles(opts))
	for _, name := range slices.Sorted(maps.Keys(opts.Parts)) {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(opts.Parts[name]); err != nil {
			panic(err)
		}
	}

	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func contentTypes(opts Options) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	for name := range opts.Parts {
		if strings.HasSuffix(name, ".png") {
			b.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
			break
		}
	}
	b.WriteString(`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	b.WriteString(`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`)
	for _, name := range slices.Sorted(maps.Keys(opts.Overrides)) {
		fmt.Fprintf(&b, `<Override PartName="%s" ContentType="%s"/>`, name, opts.Overrides[name])
	}
	b.WriteString(`</Types>`)
	return b.String()
}

func document(opts Options) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, `<w:document xmlns:w="%s" xmlns:r="%s"`, nsW, nsR)
	for _, prefix := range slices.Sorted(maps.Keys(opts.Namespaces)) {
		fmt.Fprintf(&b, ` xmlns:%s="%s"`, prefix, opts.Namespaces[prefix])
	}
	b.WriteString(`><w:body>`)
	for _, p := range opts.Paragraphs {
		b.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		xml.EscapeText(&b, []byte(p))
		b.WriteString(`</w:t></w:r></w:p>`)
	}
	b.WriteString(opts.Body)
	b.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/></w:sectPr></w:body></w:document>`)
	return b.String()
}

func documentRels(opts Options) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	fmt.Fprintf(&b, `<Relationship Id="rId1" Type="%s" Target="styles.xml"/>`, relTypeStyles)
	for _, r := range opts.Rels {
		mode := ""
		if r.External {
			mode = ` TargetMode="External"`
		}
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s" Target="%s"%s/>`, r.ID, r.Type, r.Target, mode)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

func styles(opts Options) string {
	ids := opts.StyleIDs
	if len(ids) == 0 {
		ids = []string{"Normal"}
	}
	var b strings.Builder
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, `<w:styles xmlns:w="%s">`, nsW)
	for _, id := range ids {
		fmt.Fprintf(&b, `<w:style w:type="paragraph" w:styleId="%s"><w:name w:val="%s"/></w:style>`, id, id)
	}
	b.WriteString(`</w:styles>`)
	return b.String()
}
