// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docx reads, composes and writes Office Open XML word-processing
// packages (.docx). A Document keeps every part of the package in memory;
// only the main document body is interpreted, as a sequence of raw
// top-level blocks that can be appended from other documents.
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotWordDocument is returned when a zip package has no word-processing
// main document part.
var ErrNotWordDocument = errors.New("not a word-processing document")

// Document is an in-memory .docx package.
type Document struct {
	parts map[string][]byte
	// names preserves the part order of the source package.
	names []string
	// main is the main document part name, usually word/document.xml.
	main  string
	body  *body
	rels  *relationships
	types *contentTypes
}

// Read parses a .docx package held in data.
func Read(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("reading package: %w", err)
	}

	d := &Document{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		name := strings.TrimPrefix(f.Name, "/")
		if _, dup := d.parts[name]; dup {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading part %s: %w", name, err)
		}
		d.parts[name] = content
		d.names = append(d.names, name)
	}

	ctData, ok := d.parts[contentTypesPart]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrNotWordDocument, contentTypesPart)
	}
	if d.types, err = parseContentTypes(ctData); err != nil {
		return nil, err
	}

	pkgData, ok := d.parts[packageRelsPart]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrNotWordDocument, packageRelsPart)
	}
	pkgRels, err := parseRelationships(pkgData)
	if err != nil {
		return nil, err
	}
	rel, ok := pkgRels.byType(relTypeOfficeDocument, relTypeOfficeDocumentStrict)
	if !ok {
		return nil, fmt.Errorf("%w: no officeDocument relationship", ErrNotWordDocument)
	}
	d.main = resolveTarget("", rel.Target)

	docData, ok := d.parts[d.main]
	if !ok {
		return nil, fmt.Errorf("%w: missing main part %s", ErrNotWordDocument, d.main)
	}
	if d.body, err = parseBody(docData); err != nil {
		return nil, fmt.Errorf("%s: %w", d.main, err)
	}

	d.rels = &relationships{}
	if relsData, ok := d.parts[relsPartFor(d.main)]; ok {
		if d.rels, err = parseRelationships(relsData); err != nil {
			return nil, fmt.Errorf("%s: %w", relsPartFor(d.main), err)
		}
	}

	return d, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Blocks returns the body blocks in document order, excluding the final
// section properties.
func (d *Document) Blocks() []Block {
	out := make([]Block, len(d.body.blocks))
	copy(out, d.body.blocks)
	return out
}

// Len returns the number of body blocks.
func (d *Document) Len() int {
	return len(d.body.blocks)
}

// AddPageBreak appends a paragraph containing a single page break.
func (d *Document) AddPageBreak() error {
	var prefix string
	if ps := prefixesFor(d.body.ns, nsWordML); len(ps) > 0 {
		prefix = ps[0]
	} else {
		if uri, taken := d.body.ns["w"]; taken {
			return fmt.Errorf("cannot declare WordprocessingML namespace: prefix w bound to %s", uri)
		}
		d.body.declare(map[string]string{"w": nsWordML})
		prefix = "w"
	}
	raw := fmt.Sprintf(`<%[1]s:p><%[1]s:r><%[1]s:br %[1]s:type="page"/></%[1]s:r></%[1]s:p>`, prefix)
	d.body.blocks = append(d.body.blocks, Block{Name: "p", Raw: []byte(raw)})
	return nil
}

// Save writes the package to path. The file is written next to path and
// renamed into place, so a failed save leaves any previous file intact.
func (d *Document) Save(path string) error {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".docx-merge-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

// WriteTo serialises the package as a zip archive. Entries carry no
// timestamps, so equal documents produce identical bytes.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	relsName := relsPartFor(d.main)
	names := d.names
	if _, ok := d.parts[relsName]; !ok && len(d.rels.Items) > 0 {
		names = append(names[:len(names):len(names)], relsName)
	}

	for _, name := range names {
		content, err := d.partBytes(name, relsName)
		if err != nil {
			return cw.n, err
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return cw.n, fmt.Errorf("adding %s: %w", name, err)
		}
		if _, err := fw.Write(content); err != nil {
			return cw.n, fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("finishing package: %w", err)
	}
	return cw.n, nil
}

func (d *Document) partBytes(name, relsName string) ([]byte, error) {
	switch name {
	case d.main:
		return d.body.render(), nil
	case relsName:
		return d.rels.marshal()
	case contentTypesPart:
		return d.types.marshal()
	default:
		return d.parts[name], nil
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
