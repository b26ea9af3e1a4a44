package review

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStoreSaveLoad(t *testing.T) {
	st := openTestStore(t)

	s := newTestSession(
		"Some text with a typo here.",
		issue("issue-1", "a typo", "an error"),
		issue("issue-2", "here", "there"),
	)
	if res := s.Accept(); !res.Success {
		t.Fatal(res.Reason)
	}
	if err := st.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := st.Load(s.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Bundle != s.Bundle {
		t.Errorf("bundle = %q, want %q", loaded.Bundle, s.Bundle)
	}
	if loaded.WorkingContent != s.WorkingContent || loaded.OriginalContent != s.OriginalContent {
		t.Error("content not preserved")
	}
	if loaded.Cursor != 1 {
		t.Errorf("cursor = %d, want 1", loaded.Cursor)
	}
	if len(loaded.Issues) != 2 {
		t.Fatalf("got %d issues, want 2", len(loaded.Issues))
	}
	if loaded.Issues[0].Status != IssueStatusAccepted {
		t.Errorf("issue 0 status = %s", loaded.Issues[0].Status)
	}
	if loaded.Issues[1].Status != IssueStatusPending {
		t.Errorf("issue 1 status = %s", loaded.Issues[1].Status)
	}
	if loaded.Issues[0].Replacement != "an error" {
		t.Errorf("issue 0 replacement = %q", loaded.Issues[0].Replacement)
	}
}

func TestStoreSaveRewrites(t *testing.T) {
	st := openTestStore(t)

	s := newTestSession("one two three", issue("issue-1", "two", "2"))
	if err := st.Save(s); err != nil {
		t.Fatal(err)
	}
	if res := s.Accept(); !res.Success {
		t.Fatal(res.Reason)
	}
	if err := st.Save(s); err != nil {
		t.Fatal(err)
	}

	loaded, err := st.Load(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.WorkingContent != "one 2 three" {
		t.Errorf("working content = %q", loaded.WorkingContent)
	}
	if len(loaded.Issues) != 1 {
		t.Errorf("issues duplicated on re-save: %d", len(loaded.Issues))
	}
}

func TestStoreLoadPrefix(t *testing.T) {
	st := openTestStore(t)

	s := newTestSession("text", issue("issue-1", "text", "words"))
	if err := st.Save(s); err != nil {
		t.Fatal(err)
	}

	loaded, err := st.Load(s.ID[:8])
	if err != nil {
		t.Fatalf("prefix load: %v", err)
	}
	if loaded.ID != s.ID {
		t.Errorf("loaded %s, want %s", loaded.ID, s.ID)
	}

	if _, err := st.Load("no-such-session"); err == nil {
		t.Error("loading a missing session succeeded")
	}
}

func TestStoreLoadAmbiguousPrefix(t *testing.T) {
	st := openTestStore(t)

	a := newTestSession("a", issue("issue-1", "a", "b"))
	b := newTestSession("b", issue("issue-1", "b", "c"))
	a.ID = "feed0000-aaaa-bbbb-cccc-000000000001"
	b.ID = "feed0000-aaaa-bbbb-cccc-000000000002"
	for _, s := range []*Session{a, b} {
		if err := st.Save(s); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := st.Load("feed0000"); err == nil {
		t.Error("ambiguous prefix load succeeded")
	}
	if _, err := st.Load(a.ID); err != nil {
		t.Errorf("full id load failed: %v", err)
	}
}

func TestStoreList(t *testing.T) {
	st := openTestStore(t)

	s := newTestSession("alpha beta",
		issue("issue-1", "alpha", "a"),
		issue("issue-2", "beta", "b"),
	)
	if res := s.Accept(); !res.Success {
		t.Fatal(res.Reason)
	}
	if err := st.Save(s); err != nil {
		t.Fatal(err)
	}

	summaries, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	sum := summaries[0]
	if sum.ID != s.ID || sum.Bundle != s.Bundle {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Issues != 2 || sum.Pending != 1 {
		t.Errorf("summary counts = %d/%d, want 2/1", sum.Issues, sum.Pending)
	}
}

func TestStoreDelete(t *testing.T) {
	st := openTestStore(t)

	s := newTestSession("text", issue("issue-1", "text", "words"))
	if err := st.Save(s); err != nil {
		t.Fatal(err)
	}
	if err := st.Delete(s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := st.Load(s.ID); err == nil {
		t.Error("deleted session still loads")
	}
	summaries, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Errorf("deleted session still listed: %d", len(summaries))
	}
}
