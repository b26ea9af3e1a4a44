// Package css extracts layout hints from EPUB stylesheets. We do not keep
// styling on import, but two declarations change what the text means:
// display:none hides matter entirely and text-align:center marks blocks the
// screenplay exporter must center. Everything else is ignored.
package css

import (
	"bytes"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Hints accumulates selectors whose rules affect text extraction. Only
// simple selectors are tracked: bare element names and single class names.
// Anything more specific is skipped, costing at worst a mis-centered line.
type Hints struct {
	centeredTags    map[string]struct{}
	centeredClasses map[string]struct{}
	hiddenTags      map[string]struct{}
	hiddenClasses   map[string]struct{}
}

func NewHints() *Hints {
	return &Hints{
		centeredTags:    make(map[string]struct{}),
		centeredClasses: make(map[string]struct{}),
		hiddenTags:      make(map[string]struct{}),
		hiddenClasses:   make(map[string]struct{}),
	}
}

// Scan parses one stylesheet and records matching rules. Parse errors end
// the scan silently, partial hints are fine.
func (h *Hints) Scan(data []byte, log *zap.Logger) {
	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	var selectors []string

	for {
		gt, _, tokenData := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && err.Error() != "EOF" {
				log.Debug("Stylesheet scan stopped", zap.Error(err))
			}
			return

		case css.BeginRulesetGrammar, css.QualifiedRuleGrammar:
			selectors = collectSelectors(tokenData, parser.Values())

		case css.DeclarationGrammar:
			property := strings.ToLower(string(tokenData))
			value := strings.ToLower(tokensValue(parser.Values()))
			switch {
			case property == "text-align" && value == "center":
				h.record(selectors, h.centeredTags, h.centeredClasses)
			case property == "display" && value == "none":
				h.record(selectors, h.hiddenTags, h.hiddenClasses)
			}

		case css.EndRulesetGrammar:
			selectors = nil
		}
	}
}

// ScanStyleAttr handles inline style="..." attributes found on a block.
func ScanStyleAttr(style string) (centered, hidden bool) {
	for _, decl := range strings.Split(style, ";") {
		property, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		property = strings.ToLower(strings.TrimSpace(property))
		value = strings.ToLower(strings.TrimSpace(value))
		switch {
		case property == "text-align" && value == "center":
			centered = true
		case property == "display" && value == "none":
			hidden = true
		}
	}
	return centered, hidden
}

// Centered reports whether a block with given tag and classes has a
// text-align:center rule. A nil receiver reports false.
func (h *Hints) Centered(tag string, classes []string) bool {
	if h == nil {
		return false
	}
	return match(tag, classes, h.centeredTags, h.centeredClasses)
}

// Hidden reports whether a block with given tag and classes is display:none.
// A nil receiver reports false.
func (h *Hints) Hidden(tag string, classes []string) bool {
	if h == nil {
		return false
	}
	return match(tag, classes, h.hiddenTags, h.hiddenClasses)
}

func match(tag string, classes []string, tags, classSet map[string]struct{}) bool {
	if _, ok := tags[strings.ToLower(tag)]; ok {
		return true
	}
	for _, c := range classes {
		if _, ok := classSet[strings.ToLower(c)]; ok {
			return true
		}
	}
	return false
}

func (h *Hints) record(selectors []string, tags, classSet map[string]struct{}) {
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		switch {
		case sel == "":
		case strings.HasPrefix(sel, "."):
			rest := sel[1:]
			if isSimpleIdent(rest) {
				classSet[strings.ToLower(rest)] = struct{}{}
			}
		case isSimpleIdent(sel):
			tags[strings.ToLower(sel)] = struct{}{}
		}
	}
}

// collectSelectors splits the selector prelude on commas keeping only the
// raw text of each selector.
func collectSelectors(data []byte, values []css.Token) []string {
	var b strings.Builder
	b.Write(data)
	for _, t := range values {
		b.Write(t.Data)
	}
	var out []string
	for _, s := range strings.Split(b.String(), ",") {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

func tokensValue(values []css.Token) string {
	var b strings.Builder
	for _, t := range values {
		b.Write(t.Data)
	}
	return strings.TrimSpace(b.String())
}

func isSimpleIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
