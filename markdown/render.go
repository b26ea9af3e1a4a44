package markdown

import (
	"html"
	"strings"
)

// Inline node kinds of the manuscript dialect.
const (
	InlineText = iota
	InlineBold
	InlineItalic
	InlineLink
	InlineImage
)

// Inline is a single run of text inside a block. Target carries the link
// URL or image file name.
type Inline struct {
	Kind   int
	Text   string
	Target string
}

// Block is one paragraph of manuscript markdown.
type Block struct {
	Text     string // marker-free text
	Centered bool
	Inlines  []Inline
}

// ParseBlocks splits manuscript markdown into blocks with parsed inline
// runs. Blocks are separated by blank lines.
func ParseBlocks(md string) []Block {
	var blocks []Block
	for _, raw := range strings.Split(md, "\n\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		b := Block{}
		if strings.HasPrefix(raw, ">") && strings.HasSuffix(raw, "<") && len(raw) > 2 {
			b.Centered = true
			raw = strings.TrimSpace(raw[1 : len(raw)-1])
		}
		b.Inlines = ParseInline(raw)
		for _, in := range b.Inlines {
			b.Text += in.Text
		}
		blocks = append(blocks, b)
	}
	return blocks
}

// ParseInline splits a block into runs of plain text, bold, italic, links
// and images. Unterminated markers are treated as literal text.
func ParseInline(s string) []Inline {
	var out []Inline
	text := func(t string) {
		if t == "" {
			return
		}
		if len(out) > 0 && out[len(out)-1].Kind == InlineText {
			out[len(out)-1].Text += t
			return
		}
		out = append(out, Inline{Kind: InlineText, Text: t})
	}

	for len(s) > 0 {
		i, kind := nextMarker(s)
		if i < 0 {
			text(s)
			break
		}
		text(s[:i])
		s = s[i:]

		switch kind {
		case InlineBold, InlineItalic:
			marker := s[:2]
			end := strings.Index(s[2:], marker)
			if end < 0 {
				text(marker)
				s = s[2:]
				continue
			}
			out = append(out, Inline{Kind: kind, Text: s[2 : 2+end]})
			s = s[2+end+2:]

		case InlineLink, InlineImage:
			skip := 1
			if kind == InlineImage {
				skip = 2
			}
			mid := strings.Index(s[skip:], "](")
			if mid < 0 {
				text(s[:skip])
				s = s[skip:]
				continue
			}
			mid += skip
			end := strings.Index(s[mid:], ")")
			if end < 0 {
				text(s[:skip])
				s = s[skip:]
				continue
			}
			end += mid
			out = append(out, Inline{
				Kind:   kind,
				Text:   s[skip:mid],
				Target: s[mid+2 : end],
			})
			s = s[end+1:]
		}
	}
	return out
}

// nextMarker returns position and kind of the earliest inline marker.
func nextMarker(s string) (int, int) {
	best, kind := -1, InlineText
	consider := func(idx, k int) {
		if idx >= 0 && (best < 0 || idx < best) {
			best, kind = idx, k
		}
	}
	consider(strings.Index(s, "**"), InlineBold)
	consider(strings.Index(s, "__"), InlineItalic)
	consider(strings.Index(s, "!["), InlineImage)
	// a bare "[" that is not part of "![" starts a link
	for i := 0; i < len(s); i++ {
		if s[i] == '[' && (i == 0 || s[i-1] != '!') {
			consider(i, InlineLink)
			break
		}
	}
	return best, kind
}

// Render converts manuscript markdown into an XHTML fragment, one <p> per
// block. It is the inverse of Extract for the restricted dialect: plain
// paragraphs survive a round trip unchanged.
func Render(md string) string {
	return RenderWith(md, func(file string) string { return file })
}

// RenderWith renders markdown resolving image file names through resolve,
// so exporters can point images at their own directory layout.
func RenderWith(md string, resolve func(file string) string) string {
	var b strings.Builder
	for _, block := range ParseBlocks(md) {
		if block.Centered {
			b.WriteString(`<p class="centered">`)
		} else {
			b.WriteString("<p>")
		}
		for _, in := range block.Inlines {
			switch in.Kind {
			case InlineBold:
				b.WriteString("<strong>" + html.EscapeString(in.Text) + "</strong>")
			case InlineItalic:
				b.WriteString("<em>" + html.EscapeString(in.Text) + "</em>")
			case InlineLink:
				b.WriteString(`<a href="` + html.EscapeString(in.Target) + `">` + html.EscapeString(in.Text) + "</a>")
			case InlineImage:
				b.WriteString(`<img src="` + html.EscapeString(resolve(in.Target)) + `" alt="` + html.EscapeString(in.Text) + `"/>`)
			default:
				b.WriteString(html.EscapeString(in.Text))
			}
		}
		b.WriteString("</p>\n")
	}
	return b.String()
}
