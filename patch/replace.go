// Package patch applies suggested edits to manuscript text. The only
// mutation primitive is the single-occurrence replace: a passage must match
// exactly once in the current text or nothing changes at all.
package patch

import (
	"fmt"
	"regexp"
)

// Result describes the outcome of a safe replace. NewContent is set only on
// success; on failure Reason explains why and the text is untouched.
type Result struct {
	Success    bool
	NewContent string
	MatchCount int
	Reason     string
}

// SafeReplace replaces passage with replacement in content if and only if
// passage occurs exactly once. The operation is atomic at the string level:
// either the full new content is returned or nothing is modified. This
// guards against applying a suggested edit to the wrong location when the
// manuscript repeats the same phrasing.
func SafeReplace(content, passage, replacement string) Result {
	if passage == "" {
		return Result{Reason: "Passage is empty"}
	}

	re := regexp.MustCompile(regexp.QuoteMeta(passage))
	matches := re.FindAllStringIndex(content, -1)

	switch n := len(matches); n {
	case 0:
		return Result{MatchCount: 0, Reason: "Passage not found in manuscript"}
	case 1:
		loc := matches[0]
		return Result{
			Success:    true,
			MatchCount: 1,
			NewContent: content[:loc[0]] + replacement + content[loc[1]:],
		}
	default:
		return Result{MatchCount: n, Reason: fmt.Sprintf("Passage appears %d times - not unique enough", n)}
	}
}

// CountOccurrences counts literal occurrences of passage in content using
// the same matching rules as SafeReplace.
func CountOccurrences(content, passage string) int {
	if passage == "" {
		return 0
	}
	re := regexp.MustCompile(regexp.QuoteMeta(passage))
	return len(re.FindAllStringIndex(content, -1))
}
