// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docx-merge/internal/docx/docxtest"
)

// texts returns the text of every block, with page breaks shown as "<PB>".
func texts(d *Document) []string {
	var out []string
	for _, b := range d.Blocks() {
		if b.IsPageBreak() {
			out = append(out, "<PB>")
			continue
		}
		out = append(out, b.Text())
	}
	return out
}

func mustRead(t *testing.T, data []byte) *Document {
	t.Helper()
	d, err := Read(data)
	require.NoError(t, err)
	return d
}

// roundTrip serialises d and parses the result.
func roundTrip(t *testing.T, d *Document) *Document {
	t.Helper()
	var buf bytes.Buffer
	_, err := d.WriteTo(&buf)
	require.NoError(t, err)
	return mustRead(t, buf.Bytes())
}

func zipParts(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	parts := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		parts[f.Name] = string(b)
	}
	return parts
}

func TestRead(t *testing.T) {
	d := mustRead(t, docxtest.Paragraphs("Hello", "World & more"))

	assert.Equal(t, "word/document.xml", d.main)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []string{"Hello", "World & more"}, texts(d))
	assert.Contains(t, string(d.body.sectPr), "pgSz")
}

func TestRead_Errors(t *testing.T) {
	var noDoc bytes.Buffer
	zw := zip.NewWriter(&noDoc)
	w, _ := zw.Create("[Content_Types].xml")
	_, _ = w.Write([]byte(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`))
	require.NoError(t, zw.Close())

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "not a zip", data: []byte("definitely not a zip")},
		{name: "zip without main part", data: noDoc.Bytes(), wantErr: ErrNotWordDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(tt.data)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestBlockText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "runs concatenate",
			raw:  `<w:p><w:r><w:t>Hel</w:t></w:r><w:r><w:t>lo</w:t></w:r></w:p>`,
			want: "Hello",
		},
		{
			name: "tab inside run",
			raw:  `<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t></w:r></w:p>`,
			want: "a\tb",
		},
		{
			name: "table cells on separate lines",
			raw:  `<w:tbl><w:tr><w:tc><w:p><w:r><w:t>x</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>y</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`,
			want: "x\ny",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Block{Name: "p", Raw: []byte(tt.raw)}.Text())
		})
	}
}

func TestAddPageBreak(t *testing.T) {
	d := mustRead(t, docxtest.Paragraphs("one"))
	require.NoError(t, d.AddPageBreak())

	got := roundTrip(t, d)
	assert.Equal(t, []string{"one", "<PB>"}, texts(got))
	assert.False(t, got.Blocks()[0].IsPageBreak())
}

func TestAppend(t *testing.T) {
	tests := []struct {
		name      string
		pageBreak bool
		want      []string
	}{
		{name: "without page breaks", want: []string{"a1", "a2", "b1", "c1"}},
		{name: "with page breaks", pageBreak: true, want: []string{"a1", "a2", "<PB>", "b1", "<PB>", "c1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := mustRead(t, docxtest.Paragraphs("a1", "a2"))
			var opts []AppendOption
			if tt.pageBreak {
				opts = append(opts, WithPageBreak())
			}
			for _, src := range [][]byte{docxtest.Paragraphs("b1"), docxtest.Paragraphs("c1")} {
				require.NoError(t, acc.Append(mustRead(t, src), opts...))
			}

			got := roundTrip(t, acc)
			assert.Equal(t, tt.want, texts(got))
			// The accumulator keeps its own section properties.
			assert.Contains(t, string(got.body.sectPr), "pgSz")
		})
	}
}

func TestAppend_CopiesImagesAndHyperlinks(t *testing.T) {
	png := []byte("\x89PNG fake image")
	drawing := `<w:p><w:r><w:drawing><wp:inline><wp:docPr id="1" name="Picture 1"/>` +
		`<a:graphic><a:graphicData><a:blip r:embed="rId5"/></a:graphicData></a:graphic>` +
		`</wp:inline></w:drawing></w:r></w:p>`
	link := `<w:p><w:hyperlink r:id="rId6"><w:r><w:t>site</w:t></w:r></w:hyperlink></w:p>`
	ns := map[string]string{
		"wp": "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing",
		"a":  "http://schemas.openxmlformats.org/drawingml/2006/main",
	}
	rels := []docxtest.Rel{
		{ID: "rId5", Type: docxtest.RelTypeImage, Target: "media/image1.png"},
		{ID: "rId6", Type: docxtest.RelTypeHyperlink, Target: "https://example.com", External: true},
	}

	// Both documents use rId5, image1.png and docPr id 1.
	master := mustRead(t, docxtest.Build(docxtest.Options{
		Body: drawing, Rels: rels, Namespaces: ns,
		Parts: map[string][]byte{"word/media/image1.png": []byte("master image")},
	}))
	src := mustRead(t, docxtest.Build(docxtest.Options{
		Paragraphs: []string{"second"},
		Body:       drawing + link,
		Rels:       rels,
		Namespaces: ns,
		Parts:      map[string][]byte{"word/media/image1.png": png},
	}))

	require.NoError(t, master.Append(src))

	var buf bytes.Buffer
	_, err := master.WriteTo(&buf)
	require.NoError(t, err)
	parts := zipParts(t, buf.Bytes())

	assert.Equal(t, "master image", parts["word/media/image1.png"])
	assert.Equal(t, string(png), parts["word/media/image2.png"])

	got := mustRead(t, buf.Bytes())
	blocks := got.Blocks()
	require.Len(t, blocks, 4)
	appended := string(blocks[2].Raw)
	assert.NotContains(t, appended, `r:embed="rId5"`)
	assert.Contains(t, appended, `id="2"`, "drawing ids must be unique")

	var imageRel, linkRel relationship
	for _, rel := range got.rels.Items {
		switch {
		case rel.Target == "media/image2.png":
			imageRel = rel
		case rel.Target == "https://example.com" && rel.ID != "rId6":
			linkRel = rel
		}
	}
	require.NotEmpty(t, imageRel.ID)
	require.NotEmpty(t, linkRel.ID)
	assert.Contains(t, appended, `r:embed="`+imageRel.ID+`"`)
	assert.Contains(t, string(blocks[3].Raw), `r:id="`+linkRel.ID+`"`)
	assert.Equal(t, targetModeExternal, linkRel.TargetMode)
}

func TestAppend_CarriesNamespacesAndStyles(t *testing.T) {
	master := mustRead(t, docxtest.Build(docxtest.Options{Paragraphs: []string{"m"}}))
	src := mustRead(t, docxtest.Build(docxtest.Options{
		Body:       `<w:p w14:paraId="1A2B3C4D"><w:pPr><w:pStyle w:val="Quote"/></w:pPr><w:r><w:t>q</w:t></w:r></w:p>`,
		StyleIDs:   []string{"Normal", "Quote"},
		Namespaces: map[string]string{"w14": "http://schemas.microsoft.com/office/word/2010/wordml"},
	}))

	require.NoError(t, master.Append(src))

	var buf bytes.Buffer
	_, err := master.WriteTo(&buf)
	require.NoError(t, err)
	parts := zipParts(t, buf.Bytes())

	assert.Contains(t, parts["word/document.xml"], `xmlns:w14="http://schemas.microsoft.com/office/word/2010/wordml"`)
	assert.Equal(t, 1, strings.Count(parts["word/styles.xml"], `w:styleId="Normal"`))
	assert.Contains(t, parts["word/styles.xml"], `w:styleId="Quote"`)
	assert.Equal(t, []string{"m", "q"}, texts(mustRead(t, buf.Bytes())))
}

func TestAppend_FailureLeavesDocumentUnchanged(t *testing.T) {
	master := mustRead(t, docxtest.Paragraphs("m"))
	src := mustRead(t, docxtest.Build(docxtest.Options{
		Body: `<w:p><w:hyperlink r:id="rId99"><w:r><w:t>dangling</w:t></w:r></w:hyperlink></w:p>`,
	}))

	var before bytes.Buffer
	_, err := master.WriteTo(&before)
	require.NoError(t, err)

	err = master.Append(src, WithPageBreak())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rId99")

	var after bytes.Buffer
	_, err = master.WriteTo(&after)
	require.NoError(t, err)
	assert.Equal(t, before.Bytes(), after.Bytes())
}

// notedList builds a document whose single paragraph is a list item with
// a footnote. Its footnote 1 reads note; its list 1 uses abstract list 0.
func notedList(note string) []byte {
	footnotes := `<?xml version="1.0"?><w:footnotes xmlns:w="` + nsWordML + `">` +
		`<w:footnote w:type="separator" w:id="-1"><w:p><w:r><w:separator/></w:r></w:p></w:footnote>` +
		`<w:footnote w:type="continuationSeparator" w:id="0"><w:p><w:r><w:continuationSeparator/></w:r></w:p></w:footnote>` +
		`<w:footnote w:id="1"><w:p><w:r><w:t>` + note + `</w:t></w:r></w:p></w:footnote></w:footnotes>`
	numbering := `<?xml version="1.0"?><w:numbering xmlns:w="` + nsWordML + `">` +
		`<w:abstractNum w:abstractNumId="0"><w:lvl w:ilvl="0"><w:numFmt w:val="decimal"/></w:lvl></w:abstractNum>` +
		`<w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num></w:numbering>`
	return docxtest.Build(docxtest.Options{
		Body: `<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr>` +
			`<w:r><w:t>item</w:t></w:r><w:r><w:footnoteReference w:id="1"/></w:r></w:p>`,
		Rels: []docxtest.Rel{
			{ID: "rId7", Type: docxtest.RelTypeFootnotes, Target: "footnotes.xml"},
			{ID: "rId8", Type: docxtest.RelTypeNumbering, Target: "numbering.xml"},
		},
		Parts: map[string][]byte{
			"word/footnotes.xml": []byte(footnotes),
			"word/numbering.xml": []byte(numbering),
		},
		Overrides: map[string]string{
			"/word/footnotes.xml": docxtest.ContentTypeFootnotes,
			"/word/numbering.xml": docxtest.ContentTypeNumbering,
		},
	})
}

// entries lists "name:attr" for every child of a part's root element.
func entries(t *testing.T, data string, attrs map[string]string) []string {
	t.Helper()
	s, err := parseSheet([]byte(data))
	require.NoError(t, err)
	var out []string
	for _, e := range s.entries {
		out = append(out, e.name+":"+e.attrs[attrs[e.name]])
	}
	return out
}

func TestAppend_FootnotesAndListsIntoPlainDocument(t *testing.T) {
	master := mustRead(t, docxtest.Paragraphs("m"))
	require.NoError(t, master.Append(mustRead(t, notedList("source note")), WithPageBreak()))

	var buf bytes.Buffer
	_, err := master.WriteTo(&buf)
	require.NoError(t, err)
	parts := zipParts(t, buf.Bytes())

	require.Contains(t, parts, "word/footnotes.xml")
	require.Contains(t, parts, "word/numbering.xml")
	assert.Contains(t, parts["word/footnotes.xml"], "source note")
	assert.Contains(t, parts["[Content_Types].xml"], `PartName="/word/footnotes.xml"`)
	assert.Contains(t, parts["[Content_Types].xml"], `PartName="/word/numbering.xml"`)

	got := mustRead(t, buf.Bytes())
	footRel, ok := got.rels.byType(docxtest.RelTypeFootnotes)
	require.True(t, ok)
	assert.Equal(t, "footnotes.xml", footRel.Target)
	numRel, ok := got.rels.byType(docxtest.RelTypeNumbering)
	require.True(t, ok)
	assert.Equal(t, "numbering.xml", numRel.Target)

	blocks := got.Blocks()
	require.Len(t, blocks, 3)
	appended := string(blocks[2].Raw)
	assert.Contains(t, appended, `<w:footnoteReference w:id="1"/>`)
	assert.Contains(t, appended, `<w:numId w:val="1"/>`)
}

func TestAppend_FootnotesAndListsRenumbered(t *testing.T) {
	master := mustRead(t, notedList("master note"))
	require.NoError(t, master.Append(mustRead(t, notedList("source note"))))

	var buf bytes.Buffer
	_, err := master.WriteTo(&buf)
	require.NoError(t, err)
	parts := zipParts(t, buf.Bytes())

	notes := entries(t, parts["word/footnotes.xml"], map[string]string{"footnote": "id"})
	assert.Equal(t, []string{"footnote:-1", "footnote:0", "footnote:1", "footnote:2"}, notes)
	assert.Contains(t, parts["word/footnotes.xml"], `<w:footnote w:id="2"><w:p><w:r><w:t>source note</w:t>`)
	assert.Contains(t, parts["word/footnotes.xml"], `<w:footnote w:id="1"><w:p><w:r><w:t>master note</w:t>`)

	lists := entries(t, parts["word/numbering.xml"], map[string]string{"abstractNum": "abstractNumId", "num": "numId"})
	assert.Equal(t, []string{"abstractNum:0", "abstractNum:1", "num:1", "num:2"}, lists)
	assert.Contains(t, parts["word/numbering.xml"], `<w:num w:numId="2"><w:abstractNumId w:val="1"/></w:num>`)

	got := mustRead(t, buf.Bytes())
	blocks := got.Blocks()
	require.Len(t, blocks, 2)
	assert.Contains(t, string(blocks[0].Raw), `<w:footnoteReference w:id="1"/>`)
	assert.Contains(t, string(blocks[0].Raw), `<w:numId w:val="1"/>`)
	assert.Contains(t, string(blocks[1].Raw), `<w:footnoteReference w:id="2"/>`)
	assert.Contains(t, string(blocks[1].Raw), `<w:numId w:val="2"/>`)
}

func TestAppend_UndefinedFootnote(t *testing.T) {
	master := mustRead(t, notedList("master note"))
	src := mustRead(t, notedList("source note"))
	src.body.blocks[0].Raw = bytes.Replace(src.body.blocks[0].Raw, []byte(`w:id="1"`), []byte(`w:id="5"`), 1)

	err := master.Append(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "footnote 5")
	assert.Equal(t, 1, master.Len())
}

func TestAppend_SingleQuotedRelationship(t *testing.T) {
	master := mustRead(t, docxtest.Paragraphs("m"))
	src := mustRead(t, docxtest.Build(docxtest.Options{
		Body: `<w:p><w:hyperlink r:id='rId6'><w:r><w:t>site</w:t></w:r></w:hyperlink></w:p>`,
		Rels: []docxtest.Rel{{ID: "rId6", Type: docxtest.RelTypeHyperlink, Target: "https://example.com", External: true}},
	}))

	require.NoError(t, master.Append(src))

	var link relationship
	for _, rel := range master.rels.Items {
		if rel.Target == "https://example.com" {
			link = rel
		}
	}
	require.NotEmpty(t, link.ID)
	appended := string(master.Blocks()[1].Raw)
	assert.Contains(t, appended, `r:id='`+link.ID+`'`)
	assert.NotContains(t, appended, `'rId6'`)
}

func TestReplaceValues(t *testing.T) {
	pattern := attrPattern([]string{"w"}, []string{"footnoteReference"}, "id")
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "double quotes", raw: `<w:footnoteReference w:id="1"/>`, want: `<w:footnoteReference w:id="9"/>`},
		{name: "single quotes", raw: `<w:footnoteReference w:id='1'/>`, want: `<w:footnoteReference w:id='9'/>`},
		{name: "other attributes first", raw: `<w:footnoteReference w:customMarkFollows="1" w:id="1"/>`, want: `<w:footnoteReference w:customMarkFollows="1" w:id="9"/>`},
		{name: "unknown id kept", raw: `<w:footnoteReference w:id="2"/>`, want: `<w:footnoteReference w:id="2"/>`},
		{name: "other element untouched", raw: `<w:endnoteReference w:id="1"/>`, want: `<w:endnoteReference w:id="1"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renameValues([]byte(tt.raw), pattern, map[string]string{"1": "9"})
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestParseSheet_SelfClosingRoot(t *testing.T) {
	s, err := parseSheet([]byte(`<w:footnotes xmlns:w="` + nsWordML + `"/>`))
	require.NoError(t, err)
	out := s.splice([]insertion{{at: s.insertPoint([]string{"footnote"}, 0), data: []byte(`<w:footnote w:id="1"/>`)}}, nil)
	assert.Equal(t, `<w:footnotes xmlns:w="`+nsWordML+`"><w:footnote w:id="1"/></w:footnotes>`, string(out))
}

func TestSave_Deterministic(t *testing.T) {
	dir := t.TempDir()
	build := func(name string) []byte {
		acc := mustRead(t, docxtest.Paragraphs("a"))
		require.NoError(t, acc.Append(mustRead(t, docxtest.Paragraphs("b")), WithPageBreak()))
		p := filepath.Join(dir, name)
		require.NoError(t, acc.Save(p))
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		return data
	}

	assert.Equal(t, build("one.docx"), build("two.docx"))
}

func TestParseBody_SelfClosingBody(t *testing.T) {
	data := []byte(`<?xml version="1.0"?><w:document xmlns:w="` + nsWordML + `"><w:body/></w:document>`)
	b, err := parseBody(data)
	require.NoError(t, err)
	assert.Empty(t, b.blocks)
	assert.Equal(t, `<?xml version="1.0"?><w:document xmlns:w="`+nsWordML+`"><w:body></w:body></w:document>`, string(b.render()))
}

func TestParseBody_NoBody(t *testing.T) {
	_, err := parseBody([]byte(`<w:document xmlns:w="` + nsWordML + `"></w:document>`))
	assert.ErrorIs(t, err, errNoBody)
}

func TestTargets(t *testing.T) {
	assert.Equal(t, "word/media/image1.png", resolveTarget("word/document.xml", "media/image1.png"))
	assert.Equal(t, "word/media/image1.png", resolveTarget("word/document.xml", "/word/media/image1.png"))
	assert.Equal(t, "customXml/item1.xml", resolveTarget("word/document.xml", "../customXml/item1.xml"))
	assert.Equal(t, "media/image2.png", targetFrom("word/document.xml", "word/media/image2.png"))
	assert.Equal(t, "/customXml/item1.xml", targetFrom("word/document.xml", "customXml/item1.xml"))
	assert.Equal(t, "word/_rels/document.xml.rels", relsPartFor("word/document.xml"))
}
