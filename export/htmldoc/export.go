// Package htmldoc renders a manuscript as a single self-contained HTML page.
package htmldoc

import (
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"strings"

	"scribe/manuscript"
	"scribe/markdown"
)

// Options control the HTML rendition.
type Options struct {
	// EmbedMedia inlines images as data URIs. When false image references
	// point at the bundle's images directory.
	EmbedMedia bool
	// Stylesheet is embedded in a style element when present.
	Stylesheet []byte
	// TOCTitle is the heading of the generated table of contents.
	TOCTitle string
}

// Export writes the whole manuscript as one HTML document. A generated
// table of contents is placed right after the copyright section so the
// front matter stays in its fixed order.
func Export(w io.Writer, m *manuscript.Manuscript, opts Options) error {
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	fmt.Fprintf(&sb, "<html lang=%q>\n<head>\n<meta charset=\"utf-8\"/>\n", m.Language)
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(m.Title))
	if len(opts.Stylesheet) > 0 {
		sb.WriteString("<style>\n")
		sb.Write(opts.Stylesheet)
		sb.WriteString("\n</style>\n")
	}
	sb.WriteString("</head>\n<body>\n")

	resolve := imageResolver(m, opts.EmbedMedia)
	for _, s := range m.Sections {
		if s.Type == manuscript.SectionTypeToc {
			// regenerated below, stale imported contents are dropped
			continue
		}
		writeSection(&sb, s, resolve)
		if s.Type == manuscript.SectionTypeCopyright {
			writeTOC(&sb, m, opts.TOCTitle)
		}
	}

	sb.WriteString("</body>\n</html>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeSection(sb *strings.Builder, s *manuscript.Section, resolve func(string) string) {
	fmt.Fprintf(sb, "<section id=%q class=%q>\n", s.ID, string(s.Type))
	if s.Title != "" && s.Type != manuscript.SectionTypeCover {
		fmt.Fprintf(sb, "<h1>%s</h1>\n", html.EscapeString(s.Title))
	}
	if body := markdown.RenderWith(s.Content, resolve); body != "" {
		sb.WriteString(body)
		sb.WriteString("\n")
	}
	sb.WriteString("</section>\n")
}

func writeTOC(sb *strings.Builder, m *manuscript.Manuscript, title string) {
	var entries []*manuscript.Section
	for _, s := range m.Sections {
		if s.Type == manuscript.SectionTypeChapter {
			entries = append(entries, s)
		}
	}
	if len(entries) == 0 {
		return
	}
	sb.WriteString("<section class=\"toc\">\n")
	if title != "" {
		fmt.Fprintf(sb, "<h1>%s</h1>\n", html.EscapeString(title))
	}
	sb.WriteString("<ul>\n")
	for _, s := range entries {
		fmt.Fprintf(sb, "<li><a href=\"#%s\">%s</a></li>\n", s.ID, html.EscapeString(s.Title))
	}
	sb.WriteString("</ul>\n</section>\n")
}

func imageResolver(m *manuscript.Manuscript, embed bool) func(string) string {
	if !embed {
		return func(name string) string { return "images/" + name }
	}
	return func(name string) string {
		img := m.ImageByName(name)
		if img == nil {
			return "images/" + name
		}
		return "data:" + img.MediaType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	}
}
