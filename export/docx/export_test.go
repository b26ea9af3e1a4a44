package docx

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"scribe/manuscript"
)

func exportToParts(t *testing.T, m *manuscript.Manuscript) map[string]string {
	t.Helper()
	var buf bytes.Buffer
	if err := Export(&buf, m); err != nil {
		t.Fatalf("Export: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("output is not a zip archive: %v", err)
	}
	parts := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		parts[f.Name] = string(data)
	}
	return parts
}

func testManuscript() *manuscript.Manuscript {
	return &manuscript.Manuscript{
		Title:  "Doc Test",
		Author: "A. Writer",
		Sections: []*manuscript.Section{
			{Title: "Cover", Type: manuscript.SectionTypeCover, Content: "![x](c.jpg)"},
			{Title: "Contents", Type: manuscript.SectionTypeToc, Content: "One"},
			{Title: "One", Type: manuscript.SectionTypeChapter, Content: "Plain text with **bold** words.\n\n>Centered line<"},
			{Title: "Two", Type: manuscript.SectionTypeChapter, Content: "Second chapter."},
		},
	}
}

func TestExportStructure(t *testing.T) {
	parts := exportToParts(t, testManuscript())

	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"word/_rels/document.xml.rels",
		"word/styles.xml",
		"word/document.xml",
	} {
		if _, ok := parts[name]; !ok {
			t.Errorf("archive part %s missing", name)
		}
	}
	if !strings.Contains(parts["[Content_Types].xml"], "wordprocessingml.document.main+xml") {
		t.Error("content types do not declare the main document part")
	}
	if !strings.Contains(parts["_rels/.rels"], "word/document.xml") {
		t.Error("package relationships do not point at the document")
	}
}

func TestExportDocument(t *testing.T) {
	parts := exportToParts(t, testManuscript())

	doc := etree.NewDocument()
	if err := doc.ReadFromString(parts["word/document.xml"]); err != nil {
		t.Fatalf("document.xml does not parse: %v", err)
	}
	body := doc.FindElement("//w:body")
	if body == nil {
		t.Fatal("document has no body")
	}

	var text strings.Builder
	for _, el := range doc.FindElements("//w:t") {
		text.WriteString(el.Text())
	}
	for _, want := range []string{"One", "Two", "Plain text with ", "bold", "Second chapter."} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("document text missing %q", want)
		}
	}
	// cover and toc sections are skipped entirely
	if strings.Contains(text.String(), "Contents") {
		t.Error("toc section leaked into document")
	}
}

func TestExportHeadingsAndRuns(t *testing.T) {
	parts := exportToParts(t, testManuscript())
	doc := etree.NewDocument()
	if err := doc.ReadFromString(parts["word/document.xml"]); err != nil {
		t.Fatal(err)
	}

	headings := 0
	for _, st := range doc.FindElements("//w:pStyle") {
		if st.SelectAttrValue("w:val", "") == "Heading1" {
			headings++
		}
	}
	if headings != 2 {
		t.Errorf("got %d headings, want 2", headings)
	}

	boldFound := false
	for _, r := range doc.FindElements("//w:r") {
		if r.FindElement("w:rPr/w:b") == nil {
			continue
		}
		if tEl := r.FindElement("w:t"); tEl != nil && tEl.Text() == "bold" {
			boldFound = true
		}
	}
	if !boldFound {
		t.Error("bold run not emitted")
	}

	centered := false
	for _, jc := range doc.FindElements("//w:jc") {
		if jc.SelectAttrValue("w:val", "") == "center" {
			centered = true
		}
	}
	if !centered {
		t.Error("centered paragraph missing w:jc")
	}
}

func TestExportStyles(t *testing.T) {
	parts := exportToParts(t, testManuscript())
	if !strings.Contains(parts["word/styles.xml"], `w:styleId="Heading1"`) {
		t.Error("Heading1 style not declared")
	}
	if !strings.Contains(parts["word/_rels/document.xml.rels"], "styles.xml") {
		t.Error("document relationships do not reference styles")
	}
}
