package patch

import (
	"strings"
	"testing"
)

const sampleReport = `
PROOFREADING REPORT
===================

ORIGINAL TEXT: The quick brown fox jump over the lazy dog.
ISSUES IDENTIFIED: Subject-verb agreement.
SUGGESTED CHANGES: The quick brown fox jumps over the lazy dog.
EXPLANATION: "fox" is singular, the verb must be "jumps".

-----------------------------------------------------------

ORIGINAL TEXT:
He said "lets go".
ISSUES IDENTIFIED:
Missing apostrophe.
SUGGESTED CHANGES:
He said "let's go".
`

func TestParseReport(t *testing.T) {
	issues, err := ParseReport(sampleReport)
	if err != nil {
		t.Fatalf("ParseReport() error = %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("got %d issues, want 2", len(issues))
	}

	first := issues[0]
	if first.ID != "issue-1" {
		t.Errorf("ID = %q, want issue-1", first.ID)
	}
	if first.Passage != "The quick brown fox jump over the lazy dog." {
		t.Errorf("Passage = %q", first.Passage)
	}
	if first.Issues != "Subject-verb agreement." {
		t.Errorf("Issues = %q", first.Issues)
	}
	if first.Replacement != "The quick brown fox jumps over the lazy dog." {
		t.Errorf("Replacement = %q", first.Replacement)
	}
	if !strings.Contains(first.Explanation, "singular") {
		t.Errorf("Explanation = %q", first.Explanation)
	}

	second := issues[1]
	if second.ID != "issue-2" {
		t.Errorf("ID = %q, want issue-2", second.ID)
	}
	if second.Passage != `He said "lets go".` {
		t.Errorf("Passage = %q", second.Passage)
	}
	if second.Replacement != `He said "let's go".` {
		t.Errorf("Replacement = %q", second.Replacement)
	}
	if second.Explanation != "" {
		t.Errorf("Explanation = %q, want empty", second.Explanation)
	}
}

func TestParseReportMultilinePassage(t *testing.T) {
	report := `
ORIGINAL TEXT:
First line of passage.
Second line of passage.
SUGGESTED CHANGES:
Replacement text.
`
	issues, err := ParseReport(report)
	if err != nil {
		t.Fatalf("ParseReport() error = %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	want := "First line of passage.\nSecond line of passage."
	if issues[0].Passage != want {
		t.Errorf("Passage = %q, want %q", issues[0].Passage, want)
	}
}

func TestParseReportDropsIncompleteBlocks(t *testing.T) {
	report := `
ORIGINAL TEXT: no replacement follows
ISSUES IDENTIFIED: something

ORIGINAL TEXT: complete block
SUGGESTED CHANGES: fixed block
`
	issues, err := ParseReport(report)
	if err != nil {
		t.Fatalf("ParseReport() error = %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	if issues[0].Passage != "complete block" {
		t.Errorf("Passage = %q", issues[0].Passage)
	}
	if issues[0].ID != "issue-1" {
		t.Errorf("ID = %q, dropped blocks must not consume IDs", issues[0].ID)
	}
}

func TestParseReportNoIssues(t *testing.T) {
	for _, report := range []string{
		"",
		"just some prose without any markers",
		"ORIGINAL TEXT: passage without changes",
	} {
		if _, err := ParseReport(report); err == nil {
			t.Errorf("ParseReport(%q) expected error", report)
		}
	}
}
