// Package review implements one-by-one application of AI proofreading
// reports: each suggested edit is accepted, skipped or customized in user
// order, and the whole session survives program restarts in a local SQLite
// database.
package review

import (
	"time"

	"github.com/google/uuid"

	"scribe/patch"
)

// Status of a single issue within a session.
type IssueStatus string

const (
	IssueStatusPending  IssueStatus = "pending"
	IssueStatusAccepted IssueStatus = "accepted"
	IssueStatusSkipped  IssueStatus = "skipped"
	IssueStatusCustom   IssueStatus = "custom"
)

// IssueWithStatus is a report issue plus its review lifecycle state.
type IssueWithStatus struct {
	patch.Issue
	Status            IssueStatus
	CustomReplacement string
	// Reason keeps the failure explanation from the last apply attempt so
	// the user can see why an issue would not go in.
	Reason string
}

// Session is the persistent state of a one-by-one review. WorkingContent
// starts equal to OriginalContent and accumulates accepted replacements in
// review order. Passage uniqueness is always judged against the working
// text: accepting one issue can legitimately make a later passage ambiguous
// or gone, which surfaces as an ordinary apply failure.
type Session struct {
	ID              string
	Bundle          string
	OriginalContent string
	WorkingContent  string
	Issues          []*IssueWithStatus
	Cursor          int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewSession creates a session over the given manuscript text.
func NewSession(bundle, content string, issues []*patch.Issue) *Session {
	s := &Session{
		ID:              uuid.NewString(),
		Bundle:          bundle,
		OriginalContent: content,
		WorkingContent:  content,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	for _, issue := range issues {
		s.Issues = append(s.Issues, &IssueWithStatus{Issue: *issue, Status: IssueStatusPending})
	}
	return s
}

// Current returns the issue under review, nil when the session is done.
func (s *Session) Current() *IssueWithStatus {
	if s.Cursor < 0 || s.Cursor >= len(s.Issues) {
		return nil
	}
	return s.Issues[s.Cursor]
}

// Done reports whether every issue has been decided.
func (s *Session) Done() bool {
	return s.Current() == nil
}

// Remaining counts undecided issues.
func (s *Session) Remaining() int {
	n := 0
	for _, issue := range s.Issues {
		if issue.Status == IssueStatusPending {
			n++
		}
	}
	return n
}

// Accept applies the current issue's suggested replacement. On success the
// working text is updated and the cursor advances; on failure nothing
// changes except the recorded reason, letting the user skip or customize.
func (s *Session) Accept() patch.Result {
	return s.apply(IssueStatusAccepted, "")
}

// AcceptCustom applies a user supplied replacement instead of the
// suggested one.
func (s *Session) AcceptCustom(replacement string) patch.Result {
	return s.apply(IssueStatusCustom, replacement)
}

func (s *Session) apply(status IssueStatus, custom string) patch.Result {
	issue := s.Current()
	if issue == nil {
		return patch.Result{Reason: "No issue under review"}
	}

	replacement := issue.Replacement
	if status == IssueStatusCustom {
		replacement = custom
	}

	res := patch.SafeReplace(s.WorkingContent, issue.Passage, replacement)
	if !res.Success {
		issue.Reason = res.Reason
		s.touch()
		return res
	}

	s.WorkingContent = res.NewContent
	issue.Status = status
	issue.CustomReplacement = custom
	issue.Reason = ""
	s.advance()
	return res
}

// Skip marks the current issue skipped and advances.
func (s *Session) Skip() {
	if issue := s.Current(); issue != nil {
		issue.Status = IssueStatusSkipped
		s.advance()
	}
}

func (s *Session) advance() {
	s.Cursor++
	s.touch()
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}
