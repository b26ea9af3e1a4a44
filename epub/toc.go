package epub

import (
	"archive/zip"
	"path"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// resolveTOCTitles builds a container-path → title map from the book's table
// of contents: EPUB3 nav document first, NCX fallback. An empty map is a
// soft degradation, spine processing falls back to per-document titles.
func resolveTOCTitles(files map[string]*zip.File, items map[string]manifestItem, spine *etree.Element, opfDir string, log *zap.Logger) map[string]string {
	for _, item := range items {
		if hasProperty(item.properties, "nav") {
			if f, ok := files[item.href]; ok {
				if titles := parseNavTitles(f, path.Dir(item.href)); len(titles) > 0 {
					return titles
				}
				log.Debug("Navigation document yields no titles", zap.String("href", item.href))
			}
		}
	}

	// EPUB2: spine@toc names the NCX manifest item, but some books just
	// declare the media type
	ncxID := spine.SelectAttrValue("toc", "")
	for _, item := range items {
		if item.id != ncxID && item.mediaType != "application/x-dtbncx+xml" {
			continue
		}
		f, ok := files[item.href]
		if !ok {
			continue
		}
		if titles := parseNCXTitles(f, path.Dir(item.href)); len(titles) > 0 {
			return titles
		}
		log.Debug("NCX yields no titles", zap.String("href", item.href))
	}

	log.Debug("No usable table of contents")
	return map[string]string{}
}

// parseNavTitles extracts href → text pairs from an EPUB3 nav document.
// The nav with epub:type="toc" wins, any nav serves as fallback.
func parseNavTitles(f *zip.File, baseDir string) map[string]string {
	rc, err := f.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()

	root, err := html.Parse(rc)
	if err != nil {
		return nil
	}

	var tocNav, anyNav *html.Node
	var findNav func(*html.Node)
	findNav = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "nav" {
			if anyNav == nil {
				anyNav = n
			}
			for _, a := range n.Attr {
				if strings.HasSuffix(a.Key, "type") && a.Val == "toc" && tocNav == nil {
					tocNav = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findNav(c)
		}
	}
	findNav(root)

	nav := tocNav
	if nav == nil {
		nav = anyNav
	}
	if nav == nil {
		return nil
	}

	titles := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attrValue(n, "href")
			text := strings.TrimSpace(nodeText(n))
			if href != "" && text != "" {
				key := resolveHref(baseDir, href)
				if _, exists := titles[key]; !exists {
					titles[key] = text
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(nav)
	return titles
}

// parseNCXTitles extracts href → label pairs from an EPUB2 NCX document.
func parseNCXTitles(f *zip.File, baseDir string) map[string]string {
	doc, err := readXML(f)
	if err != nil {
		return nil
	}

	titles := make(map[string]string)
	for _, navPoint := range doc.FindElements("//navPoint") {
		content := navPoint.SelectElement("content")
		label := navPoint.SelectElement("navLabel")
		if content == nil || label == nil {
			continue
		}
		src := content.SelectAttrValue("src", "")
		text := ""
		if t := label.SelectElement("text"); t != nil {
			text = strings.TrimSpace(t.Text())
		}
		if src == "" || text == "" {
			continue
		}
		key := resolveHref(baseDir, src)
		if _, exists := titles[key]; !exists {
			titles[key] = text
		}
	}
	return titles
}

// htmlTitle returns the <title> of an XHTML document, empty when absent.
func htmlTitle(content string) string {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(nodeText(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return title
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// classify assigns a section type. Explicit signals (nav property, cover
// references) win, then file name heuristics, then linearity.
func classify(section *Section, item manifestItem, book *Book) string {
	if hasProperty(item.properties, "nav") {
		return "toc"
	}

	name := strings.ToLower(path.Base(section.Href) + " " + item.id)
	switch {
	case book.Cover != nil && strings.Contains(section.Content, path.Base(book.Cover.Href)):
		return "cover"
	case strings.Contains(name, "cover"):
		return "cover"
	case strings.Contains(name, "titlepage"), strings.Contains(name, "title-page"), strings.Contains(name, "title_page"), strings.Contains(name, "titlepg"):
		return "title-page"
	case strings.Contains(name, "copyright"), strings.Contains(name, "imprint"):
		return "copyright"
	case strings.Contains(name, "toc"), strings.Contains(name, "contents"):
		return "toc"
	}

	if !section.Linear {
		return "no-matter"
	}
	return "chapter"
}
