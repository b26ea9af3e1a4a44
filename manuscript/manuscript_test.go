package manuscript

import (
	"strings"
	"testing"
)

func chapter(title, content string) *Section {
	return &Section{Title: title, Type: SectionTypeChapter, Content: content}
}

func TestNormalizeSynthesizesFrontMatter(t *testing.T) {
	m := &Manuscript{
		Title:  "My Book",
		Author: "J. Doe",
		Sections: []*Section{
			chapter("One", "First."),
			chapter("Two", "Second."),
		},
	}
	m.Normalize()

	if len(m.Sections) != 5 {
		t.Fatalf("got %d sections, want 5", len(m.Sections))
	}
	wantTypes := []SectionType{
		SectionTypeCover, SectionTypeTitlePage, SectionTypeCopyright,
		SectionTypeChapter, SectionTypeChapter,
	}
	for i, want := range wantTypes {
		if m.Sections[i].Type != want {
			t.Errorf("section %d type = %s, want %s", i, m.Sections[i].Type, want)
		}
	}

	title := m.Sections[1]
	if !strings.Contains(title.Content, "# My Book") || !strings.Contains(title.Content, "__J. Doe__") {
		t.Errorf("title page content = %q", title.Content)
	}
	if !strings.Contains(m.Sections[2].Content, "© J. Doe") {
		t.Errorf("copyright content = %q", m.Sections[2].Content)
	}
}

func TestNormalizeReordersExistingFrontMatter(t *testing.T) {
	m := &Manuscript{
		Title: "Book",
		Sections: []*Section{
			chapter("One", "text"),
			{Title: "Rights", Type: SectionTypeCopyright, Content: "(c)"},
			{Title: "The Cover", Type: SectionTypeCover},
			{Title: "Opening", Type: SectionTypeTitlePage},
		},
	}
	m.Normalize()

	wantTitles := []string{"The Cover", "Opening", "Rights", "One"}
	if len(m.Sections) != len(wantTitles) {
		t.Fatalf("got %d sections, want %d", len(m.Sections), len(wantTitles))
	}
	for i, want := range wantTitles {
		if m.Sections[i].Title != want {
			t.Errorf("section %d title = %q, want %q", i, m.Sections[i].Title, want)
		}
	}
	// existing front matter is moved, not replaced
	if m.Sections[2].Content != "(c)" {
		t.Errorf("copyright content = %q, want original preserved", m.Sections[2].Content)
	}
}

func TestNormalizeAssignsIDsAndFileNames(t *testing.T) {
	m := &Manuscript{
		Title: "Book",
		Sections: []*Section{
			{Title: "Cover", Type: SectionTypeCover},
			{Title: "Title Page", Type: SectionTypeTitlePage},
			{Title: "Copyright", Type: SectionTypeCopyright},
			{Title: "Chapter One", Type: SectionTypeChapter, ID: "dup"},
			{Title: "Chapter Two", Type: SectionTypeChapter, ID: "dup"},
		},
	}
	m.Normalize()

	seen := make(map[string]bool)
	for i, s := range m.Sections {
		if s.ID == "" {
			t.Errorf("section %d has no ID", i)
		}
		if seen[s.ID] {
			t.Errorf("duplicate ID %q", s.ID)
		}
		seen[s.ID] = true
		if s.FileName == "" {
			t.Errorf("section %d has no file name", i)
		}
	}
	if m.Sections[3].ID != "dup" || m.Sections[4].ID != "dupx" {
		t.Errorf("duplicate IDs resolved as %q, %q", m.Sections[3].ID, m.Sections[4].ID)
	}
	if m.Sections[3].FileName != "004-chapter-one.md" {
		t.Errorf("file name = %q, want 004-chapter-one.md", m.Sections[3].FileName)
	}
}

func TestNormalizeCoverUsesCoverImage(t *testing.T) {
	m := &Manuscript{
		Title:     "Book",
		CoverName: "cover.jpg",
		Sections:  []*Section{chapter("One", "text")},
	}
	m.Normalize()

	if want := "![Book](cover.jpg)"; m.Sections[0].Content != want {
		t.Errorf("cover content = %q, want %q", m.Sections[0].Content, want)
	}
}

func TestProtected(t *testing.T) {
	m := &Manuscript{Title: "Book", Sections: []*Section{chapter("One", "x")}}
	m.Normalize()

	for i := 0; i < 3; i++ {
		if !m.Protected(i) {
			t.Errorf("Protected(%d) = false, want true", i)
		}
	}
	if m.Protected(3) {
		t.Error("Protected(3) = true, want false")
	}
	if m.Protected(-1) {
		t.Error("Protected(-1) = true, want false")
	}
}

func TestText(t *testing.T) {
	m := &Manuscript{
		Title:  "Book",
		Author: "A",
		Sections: []*Section{
			chapter("One", "First chapter."),
			{Title: "Ads", Type: SectionTypeNoMatter, Content: "Buy more books."},
			chapter("Two", "Second chapter.\n"),
			chapter("Empty", ""),
		},
	}
	m.Normalize()

	want := "First chapter.\n\nSecond chapter."
	if got := m.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestAccessors(t *testing.T) {
	img := &Image{Name: "cover.jpg", MediaType: "image/jpeg"}
	m := &Manuscript{
		CoverName: "cover.jpg",
		Images:    []*Image{img, {Name: "other.png"}},
		Sections:  []*Section{{ID: "s1", Title: "One"}},
	}

	if m.Cover() != img {
		t.Error("Cover() did not return cover image")
	}
	if m.ImageByName("other.png") == nil {
		t.Error("ImageByName(other.png) = nil")
	}
	if m.ImageByName("missing") != nil {
		t.Error("ImageByName(missing) != nil")
	}
	if m.SectionByID("s1") == nil {
		t.Error("SectionByID(s1) = nil")
	}
	if m.SectionByID("nope") != nil {
		t.Error("SectionByID(nope) != nil")
	}

	m.CoverName = ""
	if m.Cover() != nil {
		t.Error("Cover() != nil without cover name")
	}
}
