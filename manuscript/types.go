// Package manuscript defines the working representation of a book: ordered
// markdown sections plus metadata and media. It is what import produces,
// what review mutates and what every exporter consumes.
package manuscript

// Kind of a manuscript section.
// ENUM(cover, title-page, copyright, toc, chapter, no-matter)
type SectionType string

// Section is a single reading-order unit of a manuscript. Content is
// markdown in the restricted dialect produced by the extractor.
type Section struct {
	ID       string            `yaml:"id"`
	Title    string            `yaml:"title"`
	FileName string            `yaml:"file"`
	Type     SectionType       `yaml:"type"`
	Fountain map[string]string `yaml:"fountain,omitempty"`
	Content  string            `yaml:"-"`
}

// Image is a binary media item referenced from section markdown.
type Image struct {
	Name      string `yaml:"name"`
	MediaType string `yaml:"media_type"`
	Data      []byte `yaml:"-"`
}

// Manuscript is the complete in-memory book.
type Manuscript struct {
	Title     string            `yaml:"title"`
	Author    string            `yaml:"author"`
	Language  string            `yaml:"language"`
	CoverName string            `yaml:"cover,omitempty"`
	TitlePage map[string]string `yaml:"title_page,omitempty"`
	Sections  []*Section        `yaml:"sections"`
	Images    []*Image          `yaml:"images,omitempty"`
}

// Cover returns cover image or nil when manuscript has none.
func (m *Manuscript) Cover() *Image {
	if m.CoverName == "" {
		return nil
	}
	return m.ImageByName(m.CoverName)
}

// ImageByName returns named image or nil.
func (m *Manuscript) ImageByName(name string) *Image {
	for _, img := range m.Images {
		if img.Name == name {
			return img
		}
	}
	return nil
}

// SectionByID returns section with given ID or nil.
func (m *Manuscript) SectionByID(id string) *Section {
	for _, s := range m.Sections {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Text returns concatenated markdown of all main matter sections separated
// by blank lines. This is the text the review workflow patches.
func (m *Manuscript) Text() string {
	var parts []string
	for _, s := range m.Sections {
		if s.Type != SectionTypeChapter {
			continue
		}
		if len(s.Content) == 0 {
			continue
		}
		parts = append(parts, s.Content)
	}
	return joinBlocks(parts)
}
