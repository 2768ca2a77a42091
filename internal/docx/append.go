// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// AppendOption configures Append.
type AppendOption func(*appendOptions)

type appendOptions struct {
	pageBreak bool
}

// WithPageBreak inserts a page break before the appended content.
func WithPageBreak() AppendOption {
	return func(o *appendOptions) { o.pageBreak = true }
}

// Append adds every body block of src to the end of d. The final section
// properties of src are dropped so d keeps its own page setup.
//
// Relationships referenced by the appended blocks are re-declared on d
// under fresh ids. Internal targets such as images and charts are copied
// into d, following their own relationships. Footnotes, endnotes, comments
// and list definitions the blocks refer to are merged into d's parts under
// fresh ids. Namespace prefixes and style definitions that d lacks are
// carried over. If Append returns an error, d is unchanged.
func (d *Document) Append(src *Document, opts ...AppendOption) error {
	var o appendOptions
	for _, opt := range opts {
		opt(&o)
	}

	tx := newAppendTx(d, src)
	if err := tx.prepare(); err != nil {
		return err
	}
	if o.pageBreak {
		if err := d.AddPageBreak(); err != nil {
			return err
		}
	}
	tx.commit()
	return nil
}

// appendTx stages every change to dst so a failed append leaves it intact.
type appendTx struct {
	dst, src *Document

	// main re-declares relationships of src's main part on dst's.
	main *relMapper
	// lists maps src list ids to the ids they get in dst.
	lists listMap

	ns          map[string]string
	parts       map[string][]byte
	order       []string
	used        map[string]bool
	copied      map[string]string
	defaults    []ctDefault
	overrides   []ctOverride
	blocks      []Block
	nextDrawing int
}

func newAppendTx(dst, src *Document) *appendTx {
	tx := &appendTx{
		dst:    dst,
		src:    src,
		ns:     map[string]string{},
		parts:  map[string][]byte{},
		used:   map[string]bool{},
		copied: map[string]string{},
	}
	tx.main = tx.newRelMapper(src.main, src.rels, dst.main, dst.rels)
	for _, name := range dst.names {
		tx.used[strings.ToLower(name)] = true
	}
	tx.used[strings.ToLower(relsPartFor(dst.main))] = true
	return tx
}

func (tx *appendTx) prepare() error {
	for prefix, uri := range tx.src.body.ns {
		have, ok := tx.dst.body.ns[prefix]
		if !ok {
			tx.ns[prefix] = uri
			continue
		}
		if have != uri {
			return fmt.Errorf("namespace prefix %q is bound to %s, source binds it to %s", prefix, have, uri)
		}
	}

	tx.nextDrawing = tx.dst.body.maxDrawingID() + 1
	if err := tx.mergeNumbering(); err != nil {
		return err
	}

	wPrefixes := prefixesFor(tx.src.body.ns, nsWordML)
	noteIDs := make([]map[string]string, len(noteKinds))
	for i, k := range noteKinds {
		ids, err := tx.mergeNotes(k, wPrefixes)
		if err != nil {
			return err
		}
		noteIDs[i] = ids
	}

	relAttrs := relAttrPattern(prefixesFor(tx.src.body.ns, nsOfficeRels))
	noteRefs := make([]*regexp.Regexp, len(noteKinds))
	for i, k := range noteKinds {
		noteRefs[i] = attrPattern(wPrefixes, k.refs, "id")
	}
	for _, blk := range tx.src.body.blocks {
		raw, err := tx.main.remap(blk.Raw, relAttrs)
		if err != nil {
			return err
		}
		raw = renumberDrawingIDs(raw, &tx.nextDrawing)
		for i, pattern := range noteRefs {
			raw = renameValues(raw, pattern, noteIDs[i])
		}
		raw = tx.lists.rewrite(raw, wPrefixes)
		tx.blocks = append(tx.blocks, Block{Name: blk.Name, Raw: raw})
	}

	return tx.mergeStyles()
}

func (tx *appendTx) commit() {
	d := tx.dst
	d.body.declare(tx.ns)
	for _, name := range tx.order {
		if _, exists := d.parts[name]; !exists {
			d.names = append(d.names, name)
		}
		d.parts[name] = tx.parts[name]
	}
	d.rels.Items = append(d.rels.Items, tx.main.added...)
	d.types.Defaults = append(d.types.Defaults, tx.defaults...)
	d.types.Overrides = append(d.types.Overrides, tx.overrides...)
	d.body.blocks = append(d.body.blocks, tx.blocks...)
}

// relAttrPattern matches attributes in any of the relationship namespace
// prefixes, e.g. r:id="rId4" or r:embed='rId7'.
func relAttrPattern(prefixes []string) *regexp.Regexp {
	if len(prefixes) == 0 {
		return nil
	}
	return regexp.MustCompile(`(\s(?:` + alternation(prefixes) + `):[A-Za-z]+\s*=\s*)` + quotedValue)
}

// relMapper re-declares the relationships of one source part on one
// destination part under ids the destination does not use.
type relMapper struct {
	tx       *appendTx
	srcOwner string
	srcRels  *relationships
	dstOwner string
	dstRels  *relationships

	ids   map[string]string
	taken map[string]bool
	added []relationship
}

func (tx *appendTx) newRelMapper(srcOwner string, srcRels *relationships, dstOwner string, dstRels *relationships) *relMapper {
	return &relMapper{
		tx:       tx,
		srcOwner: srcOwner,
		srcRels:  srcRels,
		dstOwner: dstOwner,
		dstRels:  dstRels,
		ids:      map[string]string{},
		taken:    map[string]bool{},
	}
}

func (m *relMapper) remap(raw []byte, pattern *regexp.Regexp) ([]byte, error) {
	return replaceValues(raw, pattern, m.mapID)
}

// mapID returns the destination id for a source relationship id.
func (m *relMapper) mapID(id string) (string, error) {
	if id == "" {
		return id, nil
	}
	if mapped, ok := m.ids[id]; ok {
		return mapped, nil
	}
	rel, ok := m.srcRels.byID(id)
	if !ok {
		return "", fmt.Errorf("relationship %s is not declared by %s in the source document", id, m.srcOwner)
	}

	if !rel.external() {
		part, err := m.tx.copyPart(resolveTarget(m.srcOwner, rel.Target))
		if err != nil {
			return "", err
		}
		rel.Target = targetFrom(m.dstOwner, part)
	}
	newID := m.declare(rel)
	m.ids[id] = newID
	return newID, nil
}

// declare adds rel to the destination part under a fresh id.
func (m *relMapper) declare(rel relationship) string {
	rel.ID = m.dstRels.nextID(m.taken)
	m.taken[rel.ID] = true
	m.added = append(m.added, rel)
	return rel.ID
}

// stageRels writes the destination part's relationships when the mapper
// added any. The main part's relationships are committed separately.
func (m *relMapper) stageRels() error {
	if len(m.added) == 0 {
		return nil
	}
	all := &relationships{Items: append(m.dstRels.Items[:len(m.dstRels.Items):len(m.dstRels.Items)], m.added...)}
	out, err := all.marshal()
	if err != nil {
		return err
	}
	name := relsPartFor(m.dstOwner)
	if _, exists := m.tx.dst.parts[name]; !exists {
		m.tx.claim(name)
		m.tx.carryDefault("rels")
	}
	m.tx.stage(name, out)
	return nil
}

// partRels parses the relationships of part in doc, or returns an empty
// set when the part has none.
func partRels(doc *Document, part string) (*relationships, error) {
	data, ok := doc.parts[relsPartFor(part)]
	if !ok {
		return &relationships{}, nil
	}
	rels, err := parseRelationships(data)
	if err != nil {
		return nil, fmt.Errorf("part %s: %w", part, err)
	}
	return rels, nil
}

// copyPart stages a copy of srcPart and everything it references, and
// returns the name of the copy in dst.
func (tx *appendTx) copyPart(srcPart string) (string, error) {
	if srcPart == tx.src.main {
		return tx.dst.main, nil
	}
	if dstPart, ok := tx.copied[srcPart]; ok {
		return dstPart, nil
	}
	data, ok := tx.src.parts[srcPart]
	if !ok {
		return "", fmt.Errorf("part %s is missing from the source package", srcPart)
	}

	dstPart := tx.freeName(srcPart)
	tx.copied[srcPart] = dstPart
	tx.carryContentType(srcPart, dstPart)

	if relsData, ok := tx.src.parts[relsPartFor(srcPart)]; ok {
		rels, err := parseRelationships(relsData)
		if err != nil {
			return "", fmt.Errorf("part %s: %w", srcPart, err)
		}
		for i, rel := range rels.Items {
			if rel.external() {
				continue
			}
			child, err := tx.copyPart(resolveTarget(srcPart, rel.Target))
			if err != nil {
				return "", err
			}
			rels.Items[i].Target = targetFrom(dstPart, child)
		}
		out, err := rels.marshal()
		if err != nil {
			return "", err
		}
		relsName := relsPartFor(dstPart)
		tx.claim(relsName)
		tx.carryDefault("rels")
		tx.stage(relsName, out)
	}

	tx.stage(dstPart, data)
	return dstPart, nil
}

// adoptPart copies the whole of srcPart into dst and links it from dst's
// main part with relType. It returns the name of the copy.
func (tx *appendTx) adoptPart(srcPart, relType string) (string, error) {
	part, err := tx.copyPart(srcPart)
	if err != nil {
		return "", err
	}
	tx.main.declare(relationship{Type: relType, Target: targetFrom(tx.dst.main, part)})
	return part, nil
}

// currentPart returns the staged content of a dst part, or its committed
// content when nothing is staged.
func (tx *appendTx) currentPart(name string) ([]byte, bool) {
	if data, ok := tx.parts[name]; ok {
		return data, true
	}
	data, ok := tx.dst.parts[name]
	return data, ok
}

// freeName returns part if dst has no part by that name, otherwise the
// first name made by replacing trailing digits of the stem with a counter:
// word/media/image1.png, word/media/image2.png...
func (tx *appendTx) freeName(part string) string {
	if !tx.used[strings.ToLower(part)] {
		tx.claim(part)
		return part
	}
	dir, file := path.Split(part)
	ext := path.Ext(file)
	stem := strings.TrimRight(strings.TrimSuffix(file, ext), "0123456789")
	for n := 1; ; n++ {
		candidate := dir + stem + strconv.Itoa(n) + ext
		if !tx.used[strings.ToLower(candidate)] {
			tx.claim(candidate)
			return candidate
		}
	}
}

func (tx *appendTx) claim(part string) {
	tx.used[strings.ToLower(part)] = true
}

func (tx *appendTx) stage(name string, data []byte) {
	if _, ok := tx.parts[name]; !ok {
		tx.order = append(tx.order, name)
	}
	tx.parts[name] = data
}

// carryContentType makes sure dstPart resolves to the same content type in
// dst as srcPart does in src.
func (tx *appendTx) carryContentType(srcPart, dstPart string) {
	if ct, ok := tx.src.types.overrideFor(srcPart); ok {
		tx.overrides = append(tx.overrides, ctOverride{PartName: "/" + dstPart, ContentType: ct})
		return
	}
	ext := extOf(srcPart)
	srcCT, ok := tx.src.types.defaultFor(ext)
	if !ok {
		return
	}
	dstCT, ok := tx.defaultFor(ext)
	switch {
	case !ok:
		tx.defaults = append(tx.defaults, ctDefault{Extension: ext, ContentType: srcCT})
	case dstCT != srcCT:
		tx.overrides = append(tx.overrides, ctOverride{PartName: "/" + dstPart, ContentType: srcCT})
	}
}

func (tx *appendTx) carryDefault(ext string) {
	if _, ok := tx.defaultFor(ext); ok {
		return
	}
	if ct, ok := tx.src.types.defaultFor(ext); ok {
		tx.defaults = append(tx.defaults, ctDefault{Extension: ext, ContentType: ct})
	}
}

// defaultFor looks up ext in dst including staged defaults.
func (tx *appendTx) defaultFor(ext string) (string, bool) {
	if ct, ok := tx.dst.types.defaultFor(ext); ok {
		return ct, true
	}
	for _, d := range tx.defaults {
		if strings.EqualFold(d.Extension, ext) {
			return d.ContentType, true
		}
	}
	return "", false
}

// mergeStyles copies style definitions from src that dst does not define.
func (tx *appendTx) mergeStyles() error {
	dstRel, ok := tx.dst.rels.byType(relTypeStyles)
	if !ok {
		return nil
	}
	srcRel, ok := tx.src.rels.byType(relTypeStyles)
	if !ok {
		return nil
	}
	dstPart := resolveTarget(tx.dst.main, dstRel.Target)
	dstData, ok := tx.currentPart(dstPart)
	if !ok {
		return nil
	}
	srcData, ok := tx.src.parts[resolveTarget(tx.src.main, srcRel.Target)]
	if !ok {
		return nil
	}

	merged, added, err := mergeStyleSheets(dstData, srcData, func(raw []byte, prefix string) []byte {
		return tx.lists.rewrite(raw, []string{prefix})
	})
	if err != nil {
		return fmt.Errorf("merging styles: %w", err)
	}
	if added > 0 {
		tx.stage(dstPart, merged)
	}
	return nil
}
