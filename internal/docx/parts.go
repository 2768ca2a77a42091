// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"encoding/xml"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

const (
	nsOfficeRels = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWordML     = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

	relTypeOfficeDocument       = nsOfficeRels + "/officeDocument"
	relTypeOfficeDocumentStrict = "http://purl.oclc.org/ooxml/officeDocument/relationships/officeDocument"
	relTypeStyles               = nsOfficeRels + "/styles"

	targetModeExternal = "External"

	contentTypesPart = "[Content_Types].xml"
	packageRelsPart  = "_rels/.rels"
)

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

func (r relationship) external() bool {
	return r.TargetMode == targetModeExternal
}

type relationships struct {
	XMLName xml.Name       `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Items   []relationship `xml:"Relationship"`
}

func parseRelationships(data []byte) (*relationships, error) {
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("parsing relationships: %w", err)
	}
	return &rels, nil
}

func (r *relationships) byID(id string) (relationship, bool) {
	for _, rel := range r.Items {
		if rel.ID == id {
			return rel, true
		}
	}
	return relationship{}, false
}

func (r *relationships) byType(types ...string) (relationship, bool) {
	for _, rel := range r.Items {
		for _, t := range types {
			if rel.Type == t {
				return rel, true
			}
		}
	}
	return relationship{}, false
}

var relIDPattern = regexp.MustCompile(`^rId(\d+)$`)

// nextID returns an rIdN identifier unused by r and by any id in taken.
func (r *relationships) nextID(taken map[string]bool) string {
	highest := 0
	for _, rel := range r.Items {
		if m := relIDPattern.FindStringSubmatch(rel.ID); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
				highest = n
			}
		}
	}
	for {
		highest++
		id := "rId" + strconv.Itoa(highest)
		if _, exists := r.byID(id); !exists && !taken[id] {
			return id
		}
	}
}

func (r *relationships) marshal() ([]byte, error) {
	out, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling relationships: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

type ctDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type ctOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type contentTypes struct {
	XMLName   xml.Name     `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Defaults  []ctDefault  `xml:"Default"`
	Overrides []ctOverride `xml:"Override"`
}

func parseContentTypes(data []byte) (*contentTypes, error) {
	var ct contentTypes
	if err := xml.Unmarshal(data, &ct); err != nil {
		return nil, fmt.Errorf("parsing content types: %w", err)
	}
	return &ct, nil
}

func (c *contentTypes) defaultFor(ext string) (string, bool) {
	for _, d := range c.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return d.ContentType, true
		}
	}
	return "", false
}

func (c *contentTypes) overrideFor(part string) (string, bool) {
	name := "/" + part
	for _, o := range c.Overrides {
		if strings.EqualFold(o.PartName, name) {
			return o.ContentType, true
		}
	}
	return "", false
}

func (c *contentTypes) marshal() ([]byte, error) {
	out, err := xml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling content types: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// relsPartFor returns the relationships part name for part,
// e.g. word/document.xml -> word/_rels/document.xml.rels.
func relsPartFor(part string) string {
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}

// resolveTarget resolves a relationship target relative to the part that
// owns the relationship. Absolute targets are rooted at the package.
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return strings.TrimPrefix(path.Join(path.Dir(source), target), "/")
}

// targetFrom expresses part as a relationship target for source: relative
// when part lives under source's directory, absolute otherwise.
func targetFrom(source, part string) string {
	dir := path.Dir(source)
	if dir == "." {
		return part
	}
	if rel, ok := strings.CutPrefix(part, dir+"/"); ok {
		return rel
	}
	return "/" + part
}

// extOf returns the lower-case extension of part without the dot.
func extOf(part string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(part), "."))
}
