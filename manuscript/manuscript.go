package manuscript

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"
)

// protectedOrder lists section types pinned to the head of a manuscript, in
// the order they must appear. These sections may not be reordered or removed,
// only their content may change.
var protectedOrder = []SectionType{SectionTypeCover, SectionTypeTitlePage, SectionTypeCopyright}

// Normalize pins the first three sections to {Cover, Title Page, Copyright}
// regardless of the order sections arrived in, synthesizing any that are
// missing. The rest of the manuscript keeps its relative order. It also
// makes sure every section has an ID and a file name.
func (m *Manuscript) Normalize() {
	var head []*Section
	rest := m.Sections

	for _, want := range protectedOrder {
		found := -1
		for i, s := range rest {
			if s.Type == want {
				found = i
				break
			}
		}
		if found >= 0 {
			head = append(head, rest[found])
			rest = append(rest[:found:found], rest[found+1:]...)
			continue
		}
		head = append(head, m.synthesize(want))
	}

	m.Sections = append(head, rest...)

	ids := make(map[string]struct{}, len(m.Sections))
	for i, s := range m.Sections {
		if s.ID == "" {
			s.ID = fmt.Sprintf("section-%d", i+1)
		}
		// duplicate manifest IDs do happen in the wild
		for {
			if _, dup := ids[s.ID]; !dup {
				break
			}
			s.ID += "x"
		}
		ids[s.ID] = struct{}{}
		if s.FileName == "" {
			s.FileName = fmt.Sprintf("%03d-%s.md", i+1, slug.Make(s.Title))
		}
	}
}

// Protected reports whether section at given index may be reordered or
// deleted by the caller.
func (m *Manuscript) Protected(index int) bool {
	return index >= 0 && index < len(protectedOrder)
}

func (m *Manuscript) synthesize(t SectionType) *Section {
	switch t {
	case SectionTypeCover:
		content := ""
		if m.CoverName != "" {
			content = fmt.Sprintf("![%s](%s)", m.Title, m.CoverName)
		}
		return &Section{Title: "Cover", Type: SectionTypeCover, Content: content}
	case SectionTypeTitlePage:
		var b strings.Builder
		fmt.Fprintf(&b, "# %s", m.Title)
		if m.Author != "" {
			fmt.Fprintf(&b, "\n\n__%s__", m.Author)
		}
		return &Section{Title: "Title Page", Type: SectionTypeTitlePage, Content: b.String()}
	case SectionTypeCopyright:
		content := "All rights reserved."
		if m.Author != "" {
			content = fmt.Sprintf("© %s. All rights reserved.", m.Author)
		}
		return &Section{Title: "Copyright", Type: SectionTypeCopyright, Content: content}
	default:
		// this should never happen
		panic("section type cannot be synthesized: " + string(t))
	}
}

func joinBlocks(parts []string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p = strings.TrimRight(p, "\n"); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}
