package epub

import (
	"github.com/beevik/etree"

	"scribe/manuscript"
	"scribe/markdown"
)

type chapterData struct {
	ID           string
	Filename     string
	Title        string
	Doc          *etree.Document
	IncludeInTOC bool
	Linear       bool
}

// createXHTMLDocument builds an empty XHTML page and returns it together
// with its body element.
func createXHTMLDocument(lang, title string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")
	if lang != "" {
		html.CreateAttr("xml:lang", lang)
	}

	head := html.CreateElement("head")

	meta := head.CreateElement("meta")
	meta.CreateAttr("http-equiv", "Content-Type")
	meta.CreateAttr("content", "text/html; charset=utf-8")

	link := head.CreateElement("link")
	link.CreateAttr("rel", "stylesheet")
	link.CreateAttr("type", "text/css")
	link.CreateAttr("href", "stylesheet.css")

	t := head.CreateElement("title")
	t.SetText(title)

	return doc, html.CreateElement("body")
}

// sectionToXHTML renders one manuscript section as a standalone page.
func sectionToXHTML(m *manuscript.Manuscript, s *manuscript.Section) *etree.Document {
	doc, body := createXHTMLDocument(m.Language, s.Title)

	div := body.CreateElement("div")
	div.CreateAttr("class", string(s.Type))
	div.CreateAttr("id", s.ID)

	if s.Title != "" && s.Type != manuscript.SectionTypeCover {
		h1 := div.CreateElement("h1")
		h1.CreateAttr("class", "section-title")
		h1.SetText(s.Title)
	}

	for _, b := range markdown.ParseBlocks(s.Content) {
		appendBlock(div, b)
	}
	return doc
}

func appendBlock(parent *etree.Element, b markdown.Block) {
	p := parent.CreateElement("p")
	if b.Centered {
		p.CreateAttr("class", "centered")
	}
	for _, in := range b.Inlines {
		switch in.Kind {
		case markdown.InlineBold:
			strong := p.CreateElement("strong")
			strong.SetText(in.Text)
		case markdown.InlineItalic:
			em := p.CreateElement("em")
			em.SetText(in.Text)
		case markdown.InlineLink:
			a := p.CreateElement("a")
			a.CreateAttr("href", in.Target)
			a.SetText(in.Text)
		case markdown.InlineImage:
			img := p.CreateElement("img")
			img.CreateAttr("src", "images/"+in.Target)
			img.CreateAttr("alt", in.Text)
		default:
			appendText(p, in.Text)
		}
	}
}

// appendText attaches text after the last child so mixed inline content
// keeps its order.
func appendText(p *etree.Element, text string) {
	children := p.ChildElements()
	if len(children) == 0 {
		p.SetText(p.Text() + text)
		return
	}
	last := children[len(children)-1]
	last.SetTail(last.Tail() + text)
}
