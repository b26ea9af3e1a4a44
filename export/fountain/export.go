package fountain

import (
	"strconv"
	"strings"
	"time"

	"scribe/manuscript"
	"scribe/markdown"
)

// titlePageOrder is the canonical key order for the title page. Keys not
// listed here follow in the order they appear in the manuscript metadata.
var titlePageOrder = []string{
	"Title", "Credit", "Author", "Authors", "Source", "Draft date", "Contact", "Copyright",
}

// Export renders the manuscript as a Fountain document. Only chapter and
// no-matter sections contribute content; the front matter maps onto the
// Fountain title page instead.
func Export(m *manuscript.Manuscript, withTitlePage bool) []byte {
	var sb strings.Builder

	if withTitlePage {
		writeTitlePage(&sb, m)
	}

	first := true
	for _, s := range m.Sections {
		switch s.Type {
		case manuscript.SectionTypeChapter, manuscript.SectionTypeNoMatter:
		default:
			continue
		}
		if !first {
			sb.WriteString("\n===\n")
		}
		first = false

		elements := sectionElements(s)
		serialize(&sb, elements)
	}
	return []byte(sb.String())
}

func sectionElements(s *manuscript.Section) []Element {
	blocks := markdown.ParseBlocks(s.Content)

	inputs := make([]ClassifyInput, 0, len(blocks)+1)
	if s.Title != "" {
		inputs = append(inputs, ClassifyInput{Text: s.Title, Type: TypeSection, Depth: 1})
	}
	for i, b := range blocks {
		in := ClassifyInput{Text: b.Text, Centered: b.Centered}
		// explicit types recorded in the bundle win over inference
		if t, ok := s.Fountain[strconv.Itoa(i)]; ok {
			in.Type = ElementType(t)
		}
		inputs = append(inputs, in)
	}
	return Classify(inputs)
}

// joined reports whether cur follows prev on the next line instead of
// after a blank line. Elements of one dialogue block stay contiguous.
func joined(prev, cur ElementType) bool {
	switch {
	case prev == TypeCharacter && cur == TypeDialogue:
		return true
	case prev == TypeCharacter && cur == TypeParenthetical:
		return true
	case prev == TypeParenthetical && cur == TypeDialogue:
		return true
	case prev == TypeParenthetical && cur == TypeParenthetical:
		return true
	case prev == TypeDialogue && cur == TypeParenthetical:
		return true
	}
	return false
}

func serialize(sb *strings.Builder, elements []Element) {
	prev := ElementType("")
	for i, el := range elements {
		if i > 0 || sb.Len() > 0 {
			if joined(prev, el.Type) {
				sb.WriteString("\n")
			} else {
				sb.WriteString("\n\n")
			}
		}
		writeElement(sb, el)
		prev = el.Type
	}
	sb.WriteString("\n")
}

func writeElement(sb *strings.Builder, el Element) {
	switch el.Type {
	case TypeSceneHeading:
		upper := strings.ToUpper(el.Text)
		if isSceneHeading(upper) {
			sb.WriteString(upper)
		} else {
			sb.WriteString("." + upper)
		}
	case TypeCharacter:
		sb.WriteString(strings.ToUpper(el.Text))
		if el.Dual {
			sb.WriteString(" ^")
		}
	case TypeParenthetical:
		sb.WriteString(el.Text)
	case TypeTransition:
		upper := strings.ToUpper(el.Text)
		if isTransition(upper) {
			sb.WriteString(upper)
		} else {
			sb.WriteString("> " + upper)
		}
	case TypeCentered:
		sb.WriteString("> " + el.Text + " <")
	case TypeLyrics:
		for i, line := range strings.Split(el.Text, "\n") {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString("~" + line)
		}
	case TypeSection:
		depth := el.Depth
		if depth < 1 {
			depth = 1
		}
		sb.WriteString(strings.Repeat("#", depth) + " " + el.Text)
	case TypeSynopsis:
		sb.WriteString("= " + el.Text)
	case TypeNote:
		sb.WriteString("[[" + el.Text + "]]")
	case TypePageBreak:
		sb.WriteString("===")
	default:
		sb.WriteString(el.Text)
	}
}

func writeTitlePage(sb *strings.Builder, m *manuscript.Manuscript) {
	entries := titlePageEntries(m)
	if len(entries) == 0 {
		return
	}
	for _, e := range entries {
		if strings.Contains(e.value, "\n") {
			sb.WriteString(e.key + ":\n")
			for _, line := range strings.Split(e.value, "\n") {
				sb.WriteString("    " + line + "\n")
			}
		} else {
			sb.WriteString(e.key + ": " + e.value + "\n")
		}
	}
}

type titleEntry struct {
	key, value string
}

func titlePageEntries(m *manuscript.Manuscript) []titleEntry {
	src := m.TitlePage
	if len(src) == 0 {
		src = map[string]string{
			"Title":      m.Title,
			"Author":     m.Author,
			"Draft date": time.Now().Format("2006-01-02"),
		}
	}

	seen := make(map[string]bool, len(src))
	var entries []titleEntry
	for _, key := range titlePageOrder {
		if v, ok := lookupFold(src, key); ok && v != "" {
			entries = append(entries, titleEntry{key, v})
			seen[strings.ToLower(key)] = true
		}
	}
	var rest []string
	for k := range src {
		if !seen[strings.ToLower(k)] && src[k] != "" {
			rest = append(rest, k)
		}
	}
	// deterministic output for keys outside the canonical list
	for i := 0; i < len(rest); i++ {
		for j := i + 1; j < len(rest); j++ {
			if rest[j] < rest[i] {
				rest[i], rest[j] = rest[j], rest[i]
			}
		}
	}
	for _, k := range rest {
		entries = append(entries, titleEntry{k, src[k]})
	}
	return entries
}

func lookupFold(m map[string]string, key string) (string, bool) {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}
