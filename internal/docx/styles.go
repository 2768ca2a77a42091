// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import "bytes"

var styleOrder = []string{"docDefaults", "latentStyles", "style"}

// mergeStyleSheets appends to dst every style of src whose id dst does not
// define and returns the new sheet with the number of styles added. Each
// copied style passes through rewrite along with the WordprocessingML
// prefix of src. When the two sheets bind a prefix to different namespaces
// dst is returned unchanged.
func mergeStyleSheets(dst, src []byte, rewrite func(raw []byte, prefix string) []byte) ([]byte, int, error) {
	d, err := parseSheet(dst)
	if err != nil {
		return nil, 0, err
	}
	s, err := parseSheet(src)
	if err != nil {
		return nil, 0, err
	}
	missing, err := missingNamespaces(d.ns, s.ns)
	if err != nil {
		return dst, 0, nil
	}

	seen := map[string]bool{}
	for _, e := range d.entries {
		if e.name == "style" {
			seen[e.attrs["styleId"]] = true
		}
	}

	var add bytes.Buffer
	added := 0
	for _, e := range s.entries {
		id := e.attrs["styleId"]
		if e.name != "style" || id == "" || seen[id] {
			continue
		}
		seen[id] = true
		add.Write(rewrite(s.raw(e), s.prefix))
		added++
	}
	if added == 0 {
		return dst, 0, nil
	}
	out := d.splice([]insertion{{at: d.insertPoint(styleOrder, 2), data: add.Bytes()}}, missing)
	return out, added, nil
}
