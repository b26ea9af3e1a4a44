package fountain

import (
	"strings"
	"testing"

	"scribe/manuscript"
)

func TestInfer(t *testing.T) {
	cases := []struct {
		name     string
		prev     ElementType
		text     string
		centered bool
		want     ElementType
	}{
		{"scene heading int", "", "INT. HOUSE - DAY", false, TypeSceneHeading},
		{"scene heading ext", "", "ext. beach - night", false, TypeSceneHeading},
		{"forced scene heading", "", ".BARN LOFT", false, TypeSceneHeading},
		{"ellipsis is not forced heading", "", "..and then", false, TypeAction},
		{"transition", "", "CUT TO:", false, TypeTransition},
		{"forced transition", "", "> Burn to white", false, TypeTransition},
		{"mixed case to colon is action", "", "cut to:", false, TypeAction},
		{"centered", "", "THE END", true, TypeCentered},
		{"page break", "", "===", false, TypePageBreak},
		{"short equals run is synopsis", "", "==", false, TypeSynopsis},
		{"section", "", "## Act Two", false, TypeSection},
		{"synopsis", "", "= Jack returns home", false, TypeSynopsis},
		{"lyrics", "", "~Willy Wonka, Willy Wonka", false, TypeLyrics},
		{"note", "", "[[check continuity]]", false, TypeNote},
		{"character", "", "JOHN", false, TypeCharacter},
		{"character with extension", "", "JOHN (V.O.)", false, TypeCharacter},
		{"lowercase is action", "", "John walks in.", false, TypeAction},
		{"long caps line is action", "", strings.Repeat("A", maxCharacterLen+1), false, TypeAction},
		{"dialogue after character", TypeCharacter, "You can't be serious.", false, TypeDialogue},
		{"dialogue after parenthetical", TypeParenthetical, "Not a chance.", false, TypeDialogue},
		{"parenthetical after character", TypeCharacter, "(whispering)", false, TypeParenthetical},
		{"parenthetical after dialogue", TypeDialogue, "(beat)", false, TypeParenthetical},
		{"parenthetical outside dialogue is action", TypeAction, "(a long pause)", false, TypeAction},
		{"plain action", "", "The door slams.", false, TypeAction},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Infer(c.prev, c.text, c.centered)
			if got.Type != c.want {
				t.Errorf("Infer(%q, %q) type = %s, want %s", c.prev, c.text, got.Type, c.want)
			}
		})
	}
}

func TestInferDetails(t *testing.T) {
	if el := Infer("", "JOHN ^", false); el.Type != TypeCharacter || !el.Dual || el.Text != "JOHN" {
		t.Errorf("dual character = %+v", el)
	}
	if el := Infer("", "### Deep Part", false); el.Depth != 3 || el.Text != "Deep Part" {
		t.Errorf("section = %+v", el)
	}
	if el := Infer("", "[[a note]]", false); el.Text != "a note" {
		t.Errorf("note text = %q", el.Text)
	}
	if el := Infer("", ".FORCED PLACE", false); el.Text != "FORCED PLACE" {
		t.Errorf("forced heading text = %q", el.Text)
	}
}

func TestClassifyFold(t *testing.T) {
	blocks := []ClassifyInput{
		{Text: "INT. KITCHEN - DAY"},
		{Text: "The kettle whistles."},
		{Text: "MARY"},
		{Text: "(startled)"},
		{Text: "Who left this on?"},
		{Text: "She turns it off."},
	}
	got := Classify(blocks)
	want := []ElementType{
		TypeSceneHeading, TypeAction, TypeCharacter,
		TypeParenthetical, TypeDialogue, TypeAction,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d elements, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Type != w {
			t.Errorf("element %d = %s, want %s", i, got[i].Type, w)
		}
	}
}

func TestClassifyExplicitTypes(t *testing.T) {
	blocks := []ClassifyInput{
		{Text: "Scene", Type: TypeSection, Depth: 1},
		{Text: "MARY", Type: TypeCharacter},
		{Text: "quietly now.", Type: TypeDialogue},
		{Text: "(beat)"},
	}
	got := Classify(blocks)
	want := []ElementType{TypeSection, TypeCharacter, TypeDialogue, TypeParenthetical}
	if len(got) != len(want) {
		t.Fatalf("got %d elements, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Type != w {
			t.Errorf("element %d = %s, want %s", i, got[i].Type, w)
		}
	}
	if got[0].Depth != 1 {
		t.Errorf("section depth = %d, want 1", got[0].Depth)
	}
}

func screenplay(sections ...*manuscript.Section) *manuscript.Manuscript {
	return &manuscript.Manuscript{
		Title:    "Untitled",
		Author:   "Someone",
		Sections: sections,
	}
}

func TestExportSpacing(t *testing.T) {
	m := screenplay(&manuscript.Section{
		Title: "Scene",
		Type:  manuscript.SectionTypeChapter,
		Content: "INT. KITCHEN - DAY\n\nMARY\n\n(startled)\n\nWho left this on?\n\nShe turns it off.",
	})
	out := string(Export(m, false))

	// dialogue blocks stay contiguous
	if !strings.Contains(out, "MARY\n(startled)\nWho left this on?") {
		t.Errorf("dialogue block not contiguous:\n%s", out)
	}
	// action is separated by a blank line
	if !strings.Contains(out, "Who left this on?\n\nShe turns it off.") {
		t.Errorf("action not separated:\n%s", out)
	}
	// section title becomes a top level section marker
	if !strings.HasPrefix(out, "# Scene\n") {
		t.Errorf("missing section marker:\n%s", out)
	}
}

func TestExportSkipsFrontMatter(t *testing.T) {
	m := screenplay(
		&manuscript.Section{Title: "Cover", Type: manuscript.SectionTypeCover, Content: "![x](c.jpg)"},
		&manuscript.Section{Title: "Title Page", Type: manuscript.SectionTypeTitlePage, Content: "# Untitled"},
		&manuscript.Section{Title: "One", Type: manuscript.SectionTypeChapter, Content: "Action here."},
	)
	out := string(Export(m, false))
	if strings.Contains(out, "c.jpg") || strings.Contains(out, "# Untitled") {
		t.Errorf("front matter leaked into screenplay:\n%s", out)
	}
	if !strings.Contains(out, "Action here.") {
		t.Errorf("chapter content missing:\n%s", out)
	}
}

func TestExportPageBreakBetweenSections(t *testing.T) {
	m := screenplay(
		&manuscript.Section{Title: "One", Type: manuscript.SectionTypeChapter, Content: "First."},
		&manuscript.Section{Title: "Two", Type: manuscript.SectionTypeChapter, Content: "Second."},
	)
	out := string(Export(m, false))
	if !strings.Contains(out, "\n===\n") {
		t.Errorf("no page break between sections:\n%s", out)
	}
}

func TestExportExplicitTypes(t *testing.T) {
	m := screenplay(&manuscript.Section{
		Title:    "Scene",
		Type:     manuscript.SectionTypeChapter,
		Content:  "mary\n\nquietly now.",
		Fountain: map[string]string{"0": "character", "1": "dialogue"},
	})
	out := string(Export(m, false))
	// explicit character cue is uppercased and joined to its dialogue
	if !strings.Contains(out, "MARY\nquietly now.") {
		t.Errorf("explicit types not honored:\n%s", out)
	}
}

func TestExportTitlePage(t *testing.T) {
	m := screenplay(&manuscript.Section{Title: "One", Type: manuscript.SectionTypeChapter, Content: "Go."})
	m.TitlePage = map[string]string{
		"author":  "Jane Smith",
		"Title":   "The Big One",
		"Contact": "Jane Smith\n123 Main St",
		"Genre":   "Drama",
	}
	out := string(Export(m, true))

	titleIdx := strings.Index(out, "Title: The Big One")
	authorIdx := strings.Index(out, "Author: Jane Smith")
	contactIdx := strings.Index(out, "Contact:\n    Jane Smith\n    123 Main St")
	genreIdx := strings.Index(out, "Genre: Drama")

	if titleIdx < 0 || authorIdx < 0 || contactIdx < 0 || genreIdx < 0 {
		t.Fatalf("title page incomplete:\n%s", out)
	}
	if !(titleIdx < authorIdx && authorIdx < contactIdx && contactIdx < genreIdx) {
		t.Errorf("title page keys out of order:\n%s", out)
	}
}

func TestExportTitlePageDefaults(t *testing.T) {
	m := screenplay(&manuscript.Section{Title: "One", Type: manuscript.SectionTypeChapter, Content: "Go."})
	out := string(Export(m, true))
	if !strings.Contains(out, "Title: Untitled") || !strings.Contains(out, "Author: Someone") {
		t.Errorf("metadata fallback missing:\n%s", out)
	}
	if !strings.Contains(out, "Draft date: ") {
		t.Errorf("draft date fallback missing:\n%s", out)
	}
}

func TestExportCentered(t *testing.T) {
	m := screenplay(&manuscript.Section{
		Title:   "End",
		Type:    manuscript.SectionTypeChapter,
		Content: ">THE END<",
	})
	out := string(Export(m, false))
	if !strings.Contains(out, "> THE END <") {
		t.Errorf("centered block not rendered:\n%s", out)
	}
}
