// Package markdown converts between section XHTML and the restricted
// markdown dialect manuscripts are edited in. The dialect keeps only four
// inline forms: **bold**, __italic__, [text](url) links and
// ![alt](file) images. Everything else is unwrapped to plain text.
package markdown

import (
	"path"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"scribe/css"
)

// Options adjust extraction. Zero value is valid.
type Options struct {
	// Hints from the book stylesheets: hidden blocks are dropped, centered
	// blocks are wrapped in >text< markers when MarkCentered is set.
	Hints        *css.Hints
	MarkCentered bool
}

var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"blockquote": {}, "li": {}, "tr": {}, "br": {},
}

var skipTags = map[string]struct{}{
	"head": {}, "script": {}, "style": {}, "title": {}, "template": {},
}

var manyNewlines = regexp.MustCompile(`\n{3,}`)

// Extract converts one section's XHTML into manuscript markdown. The
// transform is pure: identical input and options always produce identical
// output.
func Extract(xhtml string, opts Options) (string, error) {
	root, err := html.Parse(strings.NewReader(xhtml))
	if err != nil {
		return "", err
	}

	e := &extractor{opts: opts}
	e.walk(root, false)
	e.flush()

	out := strings.Join(e.blocks, "\n\n")
	out = manyNewlines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out), nil
}

type extractor struct {
	opts   Options
	blocks []string
	cur    strings.Builder
	// centered is set while rendering a block the stylesheets center
	centered bool
}

func (e *extractor) walk(n *html.Node, centered bool) {
	switch n.Type {
	case html.TextNode:
		text := collapseSpace(n.Data)
		if strings.TrimSpace(text) == "" {
			// whitespace-only node still separates adjacent inline elements
			if text != "" && e.cur.Len() > 0 && !strings.HasSuffix(e.cur.String(), " ") {
				e.cur.WriteString(" ")
			}
			return
		}
		if e.cur.Len() == 0 {
			text = strings.TrimLeft(text, " ")
			e.centered = centered
		}
		e.cur.WriteString(text)
		return

	case html.ElementNode:
		if _, skip := skipTags[n.Data]; skip {
			return
		}

		classes := strings.Fields(attr(n, "class"))
		styleCentered, styleHidden := css.ScanStyleAttr(attr(n, "style"))
		if styleHidden || e.opts.Hints.Hidden(n.Data, classes) {
			return
		}
		centered = centered || styleCentered || e.opts.Hints.Centered(n.Data, classes) || hasClass(classes, "centered")

		_, isBlock := blockTags[n.Data]
		if isBlock {
			e.flush()
			e.centered = centered
		}

		switch n.Data {
		case "strong", "b":
			e.inlineWrap(n, "**", centered)
		case "em", "i":
			e.inlineWrap(n, "__", centered)
		case "a":
			e.link(n, centered)
		case "img":
			e.image(n)
		default:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				e.walk(c, centered)
			}
		}

		if isBlock {
			e.flush()
		}
		return

	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			e.walk(c, centered)
		}
	}
}

// inlineWrap renders children surrounded by an inline marker. Empty inline
// elements vanish instead of leaving bare markers behind.
func (e *extractor) inlineWrap(n *html.Node, marker string, centered bool) {
	var inner extractor
	inner.opts = e.opts
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		inner.walk(c, centered)
	}
	inner.flushInline()
	text := strings.TrimSpace(strings.Join(inner.blocks, " "))
	if text == "" {
		return
	}
	e.cur.WriteString(marker)
	e.cur.WriteString(text)
	e.cur.WriteString(marker)
}

func (e *extractor) link(n *html.Node, centered bool) {
	href := attr(n, "href")
	var inner extractor
	inner.opts = e.opts
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		inner.walk(c, centered)
	}
	inner.flushInline()
	text := strings.TrimSpace(strings.Join(inner.blocks, " "))
	if text == "" {
		return
	}
	if href == "" {
		e.cur.WriteString(text)
		return
	}
	e.cur.WriteString("[" + text + "](" + href + ")")
}

func (e *extractor) image(n *html.Node) {
	src := attr(n, "src")
	if src == "" {
		src = attr(n, "xlink:href")
	}
	if src == "" {
		return
	}
	alt := strings.TrimSpace(attr(n, "alt"))
	e.cur.WriteString("![" + alt + "](" + path.Base(src) + ")")
}

func (e *extractor) flush() {
	text := strings.TrimSpace(e.cur.String())
	e.cur.Reset()
	if text == "" {
		e.centered = false
		return
	}
	if e.centered && e.opts.MarkCentered {
		text = ">" + text + "<"
	}
	e.centered = false
	e.blocks = append(e.blocks, text)
}

// flushInline is flush without centering markers, used for nested inline
// content where markers would corrupt the enclosing block.
func (e *extractor) flushInline() {
	text := strings.TrimSpace(e.cur.String())
	e.cur.Reset()
	if text != "" {
		e.blocks = append(e.blocks, text)
	}
}

// collapseSpace folds runs of whitespace into single spaces, preserving a
// single leading/trailing space so adjacent inline nodes do not fuse words.
func collapseSpace(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	if len(s) > 0 && isSpace(s[0]) {
		collapsed = " " + collapsed
	}
	if len(s) > 1 && isSpace(s[len(s)-1]) && collapsed != " " {
		collapsed += " "
	}
	return collapsed
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// hasClass reports whether the dialect's own "centered" marker class (or
// any other literal class) is present.
func hasClass(classes []string, name string) bool {
	for _, c := range classes {
		if c == name {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
