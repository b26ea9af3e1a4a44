// Package docx writes manuscripts as minimal WordprocessingML documents.
package docx

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/beevik/etree"

	"scribe/manuscript"
	"scribe/markdown"
)

const (
	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsWordML        = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relOfficeDoc    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relStyles       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
)

// Export writes the manuscript to w as a docx archive. Every section
// contributes a heading followed by its paragraphs; front matter sections
// with no body text still get their heading so the document keeps the
// manuscript's shape.
func Export(w io.Writer, m *manuscript.Manuscript) error {
	archive := zip.NewWriter(w)

	parts := []struct {
		name  string
		build func() *etree.Document
	}{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", packageRels},
		{"word/_rels/document.xml.rels", documentRels},
		{"word/styles.xml", styles},
		{"word/document.xml", func() *etree.Document { return document(m) }},
	}
	for _, p := range parts {
		f, err := archive.Create(p.name)
		if err != nil {
			return fmt.Errorf("unable to create %s: %w", p.name, err)
		}
		doc := p.build()
		doc.Indent(2)
		if _, err := doc.WriteTo(f); err != nil {
			return fmt.Errorf("unable to write %s: %w", p.name, err)
		}
	}
	if err := archive.Close(); err != nil {
		return fmt.Errorf("unable to finalize document: %w", err)
	}
	return nil
}

func newDoc() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return doc
}

func contentTypes() *etree.Document {
	doc := newDoc()
	types := doc.CreateElement("Types")
	types.CreateAttr("xmlns", nsContentTypes)

	rels := types.CreateElement("Default")
	rels.CreateAttr("Extension", "rels")
	rels.CreateAttr("ContentType", "application/vnd.openxmlformats-package.relationships+xml")

	xml := types.CreateElement("Default")
	xml.CreateAttr("Extension", "xml")
	xml.CreateAttr("ContentType", "application/xml")

	main := types.CreateElement("Override")
	main.CreateAttr("PartName", "/word/document.xml")
	main.CreateAttr("ContentType", "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml")

	st := types.CreateElement("Override")
	st.CreateAttr("PartName", "/word/styles.xml")
	st.CreateAttr("ContentType", "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml")
	return doc
}

func packageRels() *etree.Document {
	doc := newDoc()
	rels := doc.CreateElement("Relationships")
	rels.CreateAttr("xmlns", nsRelationships)
	rel := rels.CreateElement("Relationship")
	rel.CreateAttr("Id", "rId1")
	rel.CreateAttr("Type", relOfficeDoc)
	rel.CreateAttr("Target", "word/document.xml")
	return doc
}

func documentRels() *etree.Document {
	doc := newDoc()
	rels := doc.CreateElement("Relationships")
	rels.CreateAttr("xmlns", nsRelationships)
	rel := rels.CreateElement("Relationship")
	rel.CreateAttr("Id", "rId1")
	rel.CreateAttr("Type", relStyles)
	rel.CreateAttr("Target", "styles.xml")
	return doc
}

func styles() *etree.Document {
	doc := newDoc()
	root := doc.CreateElement("w:styles")
	root.CreateAttr("xmlns:w", nsWordML)

	heading := root.CreateElement("w:style")
	heading.CreateAttr("w:type", "paragraph")
	heading.CreateAttr("w:styleId", "Heading1")
	heading.CreateElement("w:name").CreateAttr("w:val", "heading 1")
	rpr := heading.CreateElement("w:rPr")
	rpr.CreateElement("w:b")
	rpr.CreateElement("w:sz").CreateAttr("w:val", "32")
	return doc
}

func document(m *manuscript.Manuscript) *etree.Document {
	doc := newDoc()
	root := doc.CreateElement("w:document")
	root.CreateAttr("xmlns:w", nsWordML)
	body := root.CreateElement("w:body")

	first := true
	for _, s := range m.Sections {
		if s.Type == manuscript.SectionTypeCover || s.Type == manuscript.SectionTypeToc {
			continue
		}
		if !first {
			// two blank lines separate a chapter from the previous one
			emptyParagraph(body)
			emptyParagraph(body)
		}
		first = false
		heading(body, s.Title)

		blocks := markdown.ParseBlocks(s.Content)
		for _, b := range blocks {
			emptyParagraph(body)
			paragraph(body, b)
		}
	}
	return doc
}

func emptyParagraph(body *etree.Element) {
	body.CreateElement("w:p")
}

func heading(body *etree.Element, title string) {
	p := body.CreateElement("w:p")
	ppr := p.CreateElement("w:pPr")
	ppr.CreateElement("w:pStyle").CreateAttr("w:val", "Heading1")
	run(p, title, false, false)
}

func paragraph(body *etree.Element, b markdown.Block) {
	p := body.CreateElement("w:p")
	if b.Centered {
		ppr := p.CreateElement("w:pPr")
		ppr.CreateElement("w:jc").CreateAttr("w:val", "center")
	}
	for _, in := range b.Inlines {
		switch in.Kind {
		case markdown.InlineBold:
			run(p, in.Text, true, false)
		case markdown.InlineItalic:
			run(p, in.Text, false, true)
		case markdown.InlineLink:
			run(p, in.Text, false, false)
		case markdown.InlineImage:
			// images are dropped from the flat text rendition
		default:
			run(p, in.Text, false, false)
		}
	}
}

func run(p *etree.Element, text string, bold, italic bool) {
	r := p.CreateElement("w:r")
	if bold || italic {
		rpr := r.CreateElement("w:rPr")
		if bold {
			rpr.CreateElement("w:b")
		}
		if italic {
			rpr.CreateElement("w:i")
		}
	}
	t := r.CreateElement("w:t")
	t.CreateAttr("xml:space", "preserve")
	t.SetText(text)
}
