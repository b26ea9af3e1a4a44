// Package epub reads EPUB (OCF) containers into an intermediate book
// representation: ordered spine sections with raw XHTML plus metadata,
// media and stylesheets. Converting XHTML to manuscript markdown is the
// importer's job, not ours.
package epub

// Section is a single spine item in reading order.
type Section struct {
	ID      string // manifest item id
	Title   string // resolved from nav/ncx/html title, never empty
	Href    string // path inside container, relative to OPF directory
	Content string // raw XHTML
	Type    string // cover, title-page, copyright, toc, chapter, no-matter
	Linear  bool
}

// Media is a binary resource from the manifest (images only, everything
// else is dropped on import).
type Media struct {
	ID        string
	Name      string // base file name, unique within the book
	Href      string
	MediaType string
	Data      []byte
}

// Book is a parsed EPUB container.
type Book struct {
	Title       string
	Author      string
	Language    string
	Cover       *Media
	Sections    []*Section
	Images      []*Media
	Stylesheets [][]byte
}
