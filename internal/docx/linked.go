// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// noteKind is a part whose entries body content refers to by w:id.
type noteKind struct {
	part    string
	relType string
	entry   string
	refs    []string
}

var noteKinds = []noteKind{
	{part: "footnotes", relType: nsOfficeRels + "/footnotes", entry: "footnote", refs: []string{"footnoteReference"}},
	{part: "endnotes", relType: nsOfficeRels + "/endnotes", entry: "endnote", refs: []string{"endnoteReference"}},
	{part: "comments", relType: nsOfficeRels + "/comments", entry: "comment", refs: []string{"commentRangeStart", "commentRangeEnd", "commentReference"}},
}

const relTypeNumbering = nsOfficeRels + "/numbering"

// numberingOrder is the schema order of the children of w:numbering.
var numberingOrder = []string{"numPicBullet", "abstractNum", "num", "numIdMacAtCleanup"}

// listMap maps source w:numId values to the ids they get in dst.
type listMap map[string]string

// rewrite points list references in raw at the dst definitions.
func (l listMap) rewrite(raw []byte, prefixes []string) []byte {
	if len(l) == 0 {
		return raw
	}
	return renameValues(raw, attrPattern(prefixes, []string{"numId"}, "val"), l)
}

// mergeNotes brings the entries of kind k that the src body refers to into
// dst and returns how their ids changed. When dst has no such part the
// whole src part is copied and ids stay as they are.
func (tx *appendTx) mergeNotes(k noteKind, prefixes []string) (map[string]string, error) {
	used := matchedValues(tx.src.body.blocks, attrPattern(prefixes, k.refs, "id"))
	if len(used) == 0 {
		return nil, nil
	}
	srcRel, ok := tx.src.rels.byType(k.relType)
	if !ok {
		return nil, fmt.Errorf("source document refers to %s but has no %s part", k.part, k.part)
	}
	srcPart := resolveTarget(tx.src.main, srcRel.Target)
	srcData, ok := tx.src.parts[srcPart]
	if !ok {
		return nil, fmt.Errorf("part %s is missing from the source package", srcPart)
	}

	dstRel, ok := tx.dst.rels.byType(k.relType)
	if !ok {
		part, err := tx.adoptPart(srcPart, k.relType)
		if err != nil {
			return nil, err
		}
		tx.rewriteLists(part)
		return nil, nil
	}

	dstPart := resolveTarget(tx.dst.main, dstRel.Target)
	d, s, rels, err := tx.openLinked(dstPart, srcPart, srcData)
	if err != nil {
		return nil, err
	}
	decls, err := missingNamespaces(d.ns, s.ns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dstPart, err)
	}

	relAttrs := relAttrPattern(prefixesFor(s.ns, nsOfficeRels))
	idAttr := attrPattern([]string{s.prefix}, []string{k.entry}, "id")
	next := maxEntryID(d, k.entry, "id") + 1
	ids := map[string]string{}
	var add bytes.Buffer
	for _, e := range s.entries {
		old := e.attrs["id"]
		if e.name != k.entry || !used[old] {
			continue
		}
		if _, dup := ids[old]; dup {
			continue
		}
		ids[old] = strconv.Itoa(next)
		next++

		raw := renameValues(s.raw(e), idAttr, map[string]string{old: ids[old]})
		raw, err := rels.remap(raw, relAttrs)
		if err != nil {
			return nil, err
		}
		raw = renumberDrawingIDs(raw, &tx.nextDrawing)
		add.Write(tx.lists.rewrite(raw, []string{s.prefix}))
	}
	for _, id := range slices.Sorted(maps.Keys(used)) {
		if _, ok := ids[id]; !ok {
			return nil, fmt.Errorf("%s %s is referenced but not defined in %s", k.entry, id, srcPart)
		}
	}

	tx.stage(dstPart, d.splice([]insertion{{at: d.insertPoint([]string{k.entry}, 0), data: add.Bytes()}}, decls))
	if err := rels.stageRels(); err != nil {
		return nil, err
	}
	return ids, nil
}

// mergeNumbering copies every list definition of src into dst under fresh
// ids and records the w:numId mapping in tx.lists.
func (tx *appendTx) mergeNumbering() error {
	srcRel, ok := tx.src.rels.byType(relTypeNumbering)
	if !ok {
		return nil
	}
	srcPart := resolveTarget(tx.src.main, srcRel.Target)
	srcData, ok := tx.src.parts[srcPart]
	if !ok {
		return nil
	}

	dstRel, ok := tx.dst.rels.byType(relTypeNumbering)
	if !ok {
		_, err := tx.adoptPart(srcPart, relTypeNumbering)
		return err
	}

	dstPart := resolveTarget(tx.dst.main, dstRel.Target)
	d, s, rels, err := tx.openLinked(dstPart, srcPart, srcData)
	if err != nil {
		return err
	}
	decls, err := missingNamespaces(d.ns, s.ns)
	if err != nil {
		return fmt.Errorf("%s: %w", dstPart, err)
	}

	pics := renumberEntries(d, s, "numPicBullet", "numPicBulletId")
	abstracts := renumberEntries(d, s, "abstractNum", "abstractNumId")
	nums := renumberEntries(d, s, "num", "numId")

	p := []string{s.prefix}
	var (
		picID    = attrPattern(p, []string{"numPicBullet"}, "numPicBulletId")
		lvlPic   = attrPattern(p, []string{"lvlPicBulletId"}, "val")
		absID    = attrPattern(p, []string{"abstractNum"}, "abstractNumId")
		absRef   = attrPattern(p, []string{"abstractNumId"}, "val")
		numID    = attrPattern(p, []string{"num"}, "numId")
		relAttrs = relAttrPattern(prefixesFor(s.ns, nsOfficeRels))
	)

	groups := make([]bytes.Buffer, 3)
	for _, e := range s.entries {
		raw := s.raw(e)
		var g int
		switch e.name {
		case "numPicBullet":
			g = 0
			raw = renameValues(raw, picID, pics)
			if raw, err = rels.remap(raw, relAttrs); err != nil {
				return err
			}
		case "abstractNum":
			g = 1
			raw = renameValues(raw, absID, abstracts)
			raw = renameValues(raw, lvlPic, pics)
		case "num":
			g = 2
			raw = renameValues(raw, numID, nums)
			raw = renameValues(raw, absRef, abstracts)
		default:
			continue
		}
		groups[g].Write(raw)
	}

	var ins []insertion
	for g := range groups {
		if groups[g].Len() > 0 {
			ins = append(ins, insertion{at: d.insertPoint(numberingOrder, g), data: groups[g].Bytes()})
		}
	}
	tx.stage(dstPart, d.splice(ins, decls))
	if err := rels.stageRels(); err != nil {
		return err
	}
	tx.lists = nums
	return nil
}

// openLinked parses a dst part and the src part merged into it, and
// returns a relationship mapper between the two.
func (tx *appendTx) openLinked(dstPart, srcPart string, srcData []byte) (*sheet, *sheet, *relMapper, error) {
	dstData, ok := tx.currentPart(dstPart)
	if !ok {
		return nil, nil, nil, fmt.Errorf("part %s is missing from the destination package", dstPart)
	}
	d, err := parseSheet(dstData)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", dstPart, err)
	}
	s, err := parseSheet(srcData)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", srcPart, err)
	}
	srcRels, err := partRels(tx.src, srcPart)
	if err != nil {
		return nil, nil, nil, err
	}
	dstRels, err := partRels(tx.dst, dstPart)
	if err != nil {
		return nil, nil, nil, err
	}
	return d, s, tx.newRelMapper(srcPart, srcRels, dstPart, dstRels), nil
}

// rewriteLists applies the list id mapping to a staged part.
func (tx *appendTx) rewriteLists(part string) {
	if len(tx.lists) == 0 {
		return
	}
	data := tx.parts[part]
	s, err := parseSheet(data)
	if err != nil {
		return
	}
	tx.stage(part, tx.lists.rewrite(data, []string{s.prefix}))
}

// maxEntryID returns the largest integer attr among entries named name.
func maxEntryID(s *sheet, name, attr string) int {
	highest := 0
	for _, e := range s.entries {
		if e.name != name {
			continue
		}
		if n, err := strconv.Atoi(e.attrs[attr]); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}

// renumberEntries assigns every src entry named name an id above those
// used in dst and returns the mapping.
func renumberEntries(dst, src *sheet, name, attr string) map[string]string {
	next := maxEntryID(dst, name, attr) + 1
	ids := map[string]string{}
	for _, e := range src.entries {
		old := e.attrs[attr]
		if e.name != name || old == "" {
			continue
		}
		if _, dup := ids[old]; dup {
			continue
		}
		ids[old] = strconv.Itoa(next)
		next++
	}
	return ids
}
