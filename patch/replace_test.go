package patch

import (
	"strings"
	"testing"
)

func TestSafeReplace(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		passage     string
		replacement string
		wantOK      bool
		wantMatches int
		wantContent string
	}{
		{
			name:        "single match",
			content:     "Hello world",
			passage:     "Hello",
			replacement: "Hi",
			wantOK:      true,
			wantMatches: 1,
			wantContent: "Hi world",
		},
		{
			name:        "not found",
			content:     "Hello world",
			passage:     "Goodbye",
			replacement: "Hi",
			wantOK:      false,
			wantMatches: 0,
		},
		{
			name:        "ambiguous passage",
			content:     "A cat sat. A cat ran.",
			passage:     "A cat",
			replacement: "The cat",
			wantOK:      false,
			wantMatches: 2,
		},
		{
			name:        "empty passage",
			content:     "Hello world",
			passage:     "",
			replacement: "Hi",
			wantOK:      false,
			wantMatches: 0,
		},
		{
			name:        "regex metacharacters are literal",
			content:     "cost is $10 (net). done",
			passage:     "$10 (net).",
			replacement: "$12 (gross).",
			wantOK:      true,
			wantMatches: 1,
			wantContent: "cost is $12 (gross). done",
		},
		{
			name:        "passage spanning lines",
			content:     "first line\nsecond line\nthird line",
			passage:     "line\nsecond",
			replacement: "line\n2nd",
			wantOK:      true,
			wantMatches: 1,
			wantContent: "first line\n2nd line\nthird line",
		},
		{
			name:        "replacement equal to passage",
			content:     "same text here",
			passage:     "same text",
			replacement: "same text",
			wantOK:      true,
			wantMatches: 1,
			wantContent: "same text here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := SafeReplace(tt.content, tt.passage, tt.replacement)

			if res.Success != tt.wantOK {
				t.Errorf("Success = %v, want %v (reason: %s)", res.Success, tt.wantOK, res.Reason)
			}
			if res.MatchCount != tt.wantMatches {
				t.Errorf("MatchCount = %d, want %d", res.MatchCount, tt.wantMatches)
			}
			if tt.wantOK {
				if res.NewContent != tt.wantContent {
					t.Errorf("NewContent = %q, want %q", res.NewContent, tt.wantContent)
				}
				if res.Reason != "" {
					t.Errorf("Reason = %q, want empty on success", res.Reason)
				}
			} else {
				if res.NewContent != "" {
					t.Errorf("NewContent = %q, want empty on failure", res.NewContent)
				}
				if res.Reason == "" {
					t.Error("Reason is empty on failure")
				}
			}
		})
	}
}

func TestSafeReplaceReasons(t *testing.T) {
	if res := SafeReplace("text", "", "x"); !strings.Contains(res.Reason, "empty") {
		t.Errorf("empty passage reason = %q", res.Reason)
	}
	if res := SafeReplace("text", "missing", "x"); !strings.Contains(res.Reason, "not found") {
		t.Errorf("not found reason = %q", res.Reason)
	}
	if res := SafeReplace("a b a b", "a b", "x"); !strings.Contains(res.Reason, "2 times") {
		t.Errorf("ambiguity reason = %q", res.Reason)
	}
}

func TestCountOccurrences(t *testing.T) {
	tests := []struct {
		content string
		passage string
		want    int
	}{
		{"A cat sat. A cat ran.", "A cat", 2},
		{"Hello world", "Hello", 1},
		{"Hello world", "cat", 0},
		{"aaa", "aa", 1}, // non-overlapping
		{"anything", "", 0},
	}
	for _, tt := range tests {
		if got := CountOccurrences(tt.content, tt.passage); got != tt.want {
			t.Errorf("CountOccurrences(%q, %q) = %d, want %d", tt.content, tt.passage, got, tt.want)
		}
	}
}
