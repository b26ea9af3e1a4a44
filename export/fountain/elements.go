// Package fountain serializes manuscripts into Fountain screenplay markup.
// Callers that know element types pass them explicitly; markdown content
// goes through heuristic inference keyed on the previous element type.
package fountain

import (
	"strings"
)

// ElementType is the Fountain block kind.
type ElementType string

const (
	TypeAction        ElementType = "action"
	TypeSceneHeading  ElementType = "scene-heading"
	TypeCharacter     ElementType = "character"
	TypeDialogue      ElementType = "dialogue"
	TypeParenthetical ElementType = "parenthetical"
	TypeTransition    ElementType = "transition"
	TypeCentered      ElementType = "centered"
	TypeLyrics        ElementType = "lyrics"
	TypeSection       ElementType = "section"
	TypeSynopsis      ElementType = "synopsis"
	TypeNote          ElementType = "note"
	TypePageBreak     ElementType = "page-break"
)

// Element is one Fountain block ready for serialization.
type Element struct {
	Text  string
	Type  ElementType
	Depth int  // section nesting, 1-based
	Dual  bool // dual dialogue marker on a character
}

// maxCharacterLen bounds how long an ALL-CAPS line can be and still read
// as a character cue rather than shouted action.
const maxCharacterLen = 40

// Infer classifies a single block given the type of the immediately
// preceding element. It is a pure function: the whole classification pass
// is a fold carrying prev through the block list.
func Infer(prev ElementType, text string, centered bool) Element {
	trimmed := strings.TrimSpace(text)

	switch {
	case centered:
		return Element{Text: trimmed, Type: TypeCentered}

	case isPageBreak(trimmed):
		return Element{Type: TypePageBreak}

	case strings.HasPrefix(trimmed, "#"):
		depth := 0
		for depth < len(trimmed) && trimmed[depth] == '#' {
			depth++
		}
		return Element{Text: strings.TrimSpace(trimmed[depth:]), Type: TypeSection, Depth: depth}

	case strings.HasPrefix(trimmed, "="):
		return Element{Text: strings.TrimSpace(trimmed[1:]), Type: TypeSynopsis}

	case strings.HasPrefix(trimmed, "~"):
		return Element{Text: strings.TrimSpace(trimmed[1:]), Type: TypeLyrics}

	case strings.HasPrefix(trimmed, "[[") && strings.HasSuffix(trimmed, "]]"):
		return Element{Text: strings.TrimSpace(trimmed[2 : len(trimmed)-2]), Type: TypeNote}

	case strings.HasPrefix(trimmed, ".") && len(trimmed) > 1 && trimmed[1] != '.':
		// forced scene heading
		return Element{Text: strings.TrimSpace(trimmed[1:]), Type: TypeSceneHeading}

	case isSceneHeading(trimmed):
		return Element{Text: trimmed, Type: TypeSceneHeading}

	case strings.HasPrefix(trimmed, ">") && !strings.HasSuffix(trimmed, "<"):
		// forced transition
		return Element{Text: strings.TrimSpace(trimmed[1:]), Type: TypeTransition}

	case isTransition(trimmed):
		return Element{Text: trimmed, Type: TypeTransition}

	case isParenthetical(trimmed) && inDialogue(prev):
		return Element{Text: trimmed, Type: TypeParenthetical}

	case prev == TypeCharacter || prev == TypeParenthetical:
		return Element{Text: trimmed, Type: TypeDialogue}

	case isCharacter(trimmed):
		if strings.HasSuffix(trimmed, "^") {
			return Element{Text: strings.TrimSpace(strings.TrimSuffix(trimmed, "^")), Type: TypeCharacter, Dual: true}
		}
		return Element{Text: trimmed, Type: TypeCharacter}

	default:
		return Element{Text: trimmed, Type: TypeAction}
	}
}

// Classify folds Infer over block texts. Blocks carrying an explicit type
// skip inference but still advance the fold state.
func Classify(blocks []ClassifyInput) []Element {
	elements := make([]Element, 0, len(blocks))
	prev := ElementType("")
	for _, b := range blocks {
		var el Element
		if b.Type != "" {
			el = Element{Text: strings.TrimSpace(b.Text), Type: b.Type, Depth: b.Depth}
		} else {
			el = Infer(prev, b.Text, b.Centered)
		}
		elements = append(elements, el)
		prev = el.Type
	}
	return elements
}

// ClassifyInput is one markdown block before classification. Type, when
// set, is taken as is instead of inferred.
type ClassifyInput struct {
	Text     string
	Centered bool
	Type     ElementType
	Depth    int
}

func inDialogue(t ElementType) bool {
	return t == TypeCharacter || t == TypeDialogue || t == TypeParenthetical
}

func isPageBreak(s string) bool {
	if len(s) < 3 {
		return false
	}
	for _, r := range s {
		if r != '=' {
			return false
		}
	}
	return true
}

var sceneHeadingPrefixes = []string{"INT.", "EXT.", "INT./EXT.", "EXT./INT.", "INT ", "EXT ", "I/E.", "I/E "}

func isSceneHeading(s string) bool {
	upper := strings.ToUpper(s)
	for _, p := range sceneHeadingPrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

func isTransition(s string) bool {
	return s == strings.ToUpper(s) && strings.HasSuffix(s, "TO:")
}

func isParenthetical(s string) bool {
	return strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
}

// isCharacter detects a character cue: a short single line in ALL CAPS
// containing at least one letter and no sentence-ending punctuation.
// A parenthetical extension like (V.O.) is allowed.
func isCharacter(s string) bool {
	if s == "" || len(s) > maxCharacterLen || strings.Contains(s, "\n") {
		return false
	}
	name := s
	if i := strings.IndexByte(s, '('); i > 0 {
		name = strings.TrimSpace(s[:i])
	}
	name = strings.TrimSuffix(name, "^")
	if name == "" || name != strings.ToUpper(name) {
		return false
	}
	hasLetter := false
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
		if r == '.' || r == '!' || r == '?' || r == ',' {
			return false
		}
	}
	return hasLetter
}
