package patch

import (
	"fmt"
	"strings"
)

// Issue is one suggested edit from an externally produced proofreading
// report.
type Issue struct {
	ID          string
	Passage     string // exact text to locate, verbatim
	Issues      string // what is wrong with it
	Replacement string // suggested new text
	Explanation string
}

// Report block markers. The report format is plain text: repeated blocks of
// marker-introduced fields, optionally separated by ---/=== ruler lines.
const (
	markerOriginal    = "ORIGINAL TEXT:"
	markerIssues      = "ISSUES IDENTIFIED:"
	markerChanges     = "SUGGESTED CHANGES:"
	markerExplanation = "EXPLANATION:"
)

// ParseReport parses an AI proofreading report into issues. Ruler lines
// consisting only of dashes or equal signs are stripped before parsing.
// A block without a passage or a replacement is dropped: there is nothing
// the patcher could do with it.
func ParseReport(text string) ([]*Issue, error) {
	var (
		issues  []*Issue
		current *Issue
		active  *strings.Builder

		passage, issueText, changes, explanation strings.Builder
	)

	finishIssue := func() {
		if current == nil {
			return
		}
		current.Passage = strings.TrimSpace(passage.String())
		current.Issues = strings.TrimSpace(issueText.String())
		current.Replacement = strings.TrimSpace(changes.String())
		current.Explanation = strings.TrimSpace(explanation.String())
		if current.Passage != "" && current.Replacement != "" {
			issues = append(issues, current)
		}
		current = nil
		passage.Reset()
		issueText.Reset()
		changes.Reset()
		explanation.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if isRulerLine(line) {
			continue
		}

		marker, rest := splitMarker(line)
		switch marker {
		case markerOriginal:
			finishIssue()
			current = &Issue{ID: fmt.Sprintf("issue-%d", len(issues)+1)}
			active = &passage
			appendLine(active, rest)
		case markerIssues:
			active = &issueText
			appendLine(active, rest)
		case markerChanges:
			active = &changes
			appendLine(active, rest)
		case markerExplanation:
			active = &explanation
			appendLine(active, rest)
		default:
			if current != nil && active != nil {
				appendLine(active, line)
			}
		}
	}
	finishIssue()

	if len(issues) == 0 {
		return nil, fmt.Errorf("report contains no usable issues")
	}
	return issues, nil
}

func splitMarker(line string) (marker, rest string) {
	trimmed := strings.TrimSpace(line)
	for _, m := range []string{markerOriginal, markerIssues, markerChanges, markerExplanation} {
		if strings.HasPrefix(trimmed, m) {
			return m, strings.TrimSpace(strings.TrimPrefix(trimmed, m))
		}
	}
	return "", line
}

func appendLine(b *strings.Builder, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(strings.TrimRight(line, " \t"))
}

// isRulerLine reports whether line consists only of dashes or equal signs
// (at least two of them).
func isRulerLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 2 {
		return false
	}
	for _, r := range trimmed {
		if r != '-' && r != '=' {
			return false
		}
	}
	return true
}
