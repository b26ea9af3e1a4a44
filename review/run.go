package review

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"scribe/manuscript"
	"scribe/patch"
	"scribe/state"
)

// RunStart parses an editorial report and opens a new review session over
// the bundle's main matter text.
func RunStart(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("review")

	bundleDir := cmd.Args().Get(0)
	reportPath := cmd.Args().Get(1)
	if bundleDir == "" || reportPath == "" {
		return errors.New("both bundle and report file must be specified")
	}

	m, err := manuscript.LoadBundle(bundleDir)
	if err != nil {
		return fmt.Errorf("unable to load bundle: %w", err)
	}

	reportText, err := os.ReadFile(reportPath)
	if err != nil {
		return fmt.Errorf("unable to read report: %w", err)
	}
	issues, err := patch.ParseReport(string(reportText))
	if err != nil {
		return fmt.Errorf("unable to parse report: %w", err)
	}

	session := NewSession(bundleDir, m.Text(), issues)

	st, err := OpenStore(env.Cfg.Review.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Save(session); err != nil {
		return err
	}

	log.Info("Review session started",
		zap.String("session", session.ID),
		zap.String("bundle", bundleDir),
		zap.Int("issues", len(session.Issues)))

	fmt.Printf("Session %s: %d issue(s) to review\n\n", shortID(session.ID), len(session.Issues))
	printCurrent(session)
	return nil
}

// RunNext shows the issue the cursor points at.
func RunNext(ctx context.Context, cmd *cli.Command) error {
	return withSession(ctx, cmd, func(s *Session, _ *Store) (bool, error) {
		printCurrent(s)
		return false, nil
	})
}

// RunAccept applies the suggested replacement of the current issue.
func RunAccept(ctx context.Context, cmd *cli.Command) error {
	return withSession(ctx, cmd, func(s *Session, _ *Store) (bool, error) {
		cur := s.Current()
		if cur == nil {
			fmt.Println("No issues left to review.")
			return false, nil
		}
		res := s.Accept()
		printResult(cur, res)
		printCurrent(s)
		return true, nil
	})
}

// RunCustom applies a replacement supplied on the command line instead of
// the suggested one.
func RunCustom(ctx context.Context, cmd *cli.Command) error {
	replacement := cmd.Args().Get(0)
	if replacement == "" {
		return errors.New("no replacement text has been specified")
	}
	return withSession(ctx, cmd, func(s *Session, _ *Store) (bool, error) {
		cur := s.Current()
		if cur == nil {
			fmt.Println("No issues left to review.")
			return false, nil
		}
		res := s.AcceptCustom(replacement)
		printResult(cur, res)
		printCurrent(s)
		return true, nil
	})
}

// RunSkip leaves the current issue unapplied and moves on.
func RunSkip(ctx context.Context, cmd *cli.Command) error {
	return withSession(ctx, cmd, func(s *Session, _ *Store) (bool, error) {
		cur := s.Current()
		if cur == nil {
			fmt.Println("No issues left to review.")
			return false, nil
		}
		s.Skip()
		fmt.Printf("Skipped %s.\n\n", cur.ID)
		printCurrent(s)
		return true, nil
	})
}

// RunFinish writes accepted changes back into the bundle sections and
// removes the session.
func RunFinish(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("review")

	return withSession(ctx, cmd, func(s *Session, st *Store) (bool, error) {
		m, err := manuscript.LoadBundle(s.Bundle)
		if err != nil {
			return false, fmt.Errorf("unable to load bundle: %w", err)
		}

		applied, failed := applyToBundle(m, s, log)
		if err := manuscript.SaveBundle(m, s.Bundle); err != nil {
			return false, fmt.Errorf("unable to save bundle: %w", err)
		}
		if err := st.Delete(s.ID); err != nil {
			return false, err
		}

		log.Info("Review session finished",
			zap.String("session", s.ID),
			zap.Int("applied", applied),
			zap.Int("failed", failed))
		fmt.Printf("Applied %d change(s) to %s", applied, s.Bundle)
		if failed > 0 {
			fmt.Printf(", %d change(s) could not be placed (see log)", failed)
		}
		fmt.Println(".")
		return false, nil
	})
}

// RunDiscard drops the session without touching the bundle.
func RunDiscard(ctx context.Context, cmd *cli.Command) error {
	return withSession(ctx, cmd, func(s *Session, st *Store) (bool, error) {
		if err := st.Delete(s.ID); err != nil {
			return false, err
		}
		fmt.Printf("Discarded session %s.\n", shortID(s.ID))
		return false, nil
	})
}

// RunList prints all stored sessions.
func RunList(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	st, err := OpenStore(env.Cfg.Review.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	summaries, err := st.List()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No review sessions.")
		return nil
	}
	for _, sum := range summaries {
		fmt.Printf("%s  %-30s  %d issue(s), %d pending, updated %s\n",
			shortID(sum.ID), sum.Bundle, sum.Issues, sum.Pending,
			sum.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// RunShow prints the full state of one session.
func RunShow(ctx context.Context, cmd *cli.Command) error {
	return withSession(ctx, cmd, func(s *Session, _ *Store) (bool, error) {
		fmt.Printf("Session %s over %s, %d of %d issue(s) reviewed\n\n",
			shortID(s.ID), s.Bundle, s.Cursor, len(s.Issues))
		for i, issue := range s.Issues {
			marker := " "
			if i == s.Cursor {
				marker = ">"
			}
			fmt.Printf("%s %s [%s]\n", marker, issue.ID, issue.Status)
			fmt.Printf("    passage:     %s\n", condense(issue.Passage))
			fmt.Printf("    replacement: %s\n", condense(effectiveReplacement(issue)))
			if issue.Reason != "" {
				fmt.Printf("    note:        %s\n", issue.Reason)
			}
		}
		return false, nil
	})
}

// withSession loads the addressed session, runs fn and saves the session
// back when fn reports a change.
func withSession(ctx context.Context, cmd *cli.Command, fn func(*Session, *Store) (bool, error)) error {
	env := state.EnvFromContext(ctx)

	st, err := OpenStore(env.Cfg.Review.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	id := cmd.String("session")
	if id == "" {
		summaries, err := st.List()
		if err != nil {
			return err
		}
		switch len(summaries) {
		case 0:
			return errors.New("no review sessions, start one first")
		case 1:
			id = summaries[0].ID
		default:
			return errors.New("multiple review sessions exist, select one with --session")
		}
	}

	s, err := st.Load(id)
	if err != nil {
		return err
	}

	changed, err := fn(s, st)
	if err != nil {
		return err
	}
	if changed {
		return st.Save(s)
	}
	return nil
}

// applyToBundle replays accepted replacements section by section. Every
// accepted passage was unique in the combined text when it was applied, so
// at most one section can host it.
func applyToBundle(m *manuscript.Manuscript, s *Session, log *zap.Logger) (applied, failed int) {
	for _, issue := range s.Issues {
		if issue.Status != IssueStatusAccepted && issue.Status != IssueStatusCustom {
			continue
		}
		replacement := effectiveReplacement(issue)
		placed := false
		for _, section := range m.Sections {
			if section.Type != manuscript.SectionTypeChapter {
				continue
			}
			res := patch.SafeReplace(section.Content, issue.Passage, replacement)
			if res.Success {
				section.Content = res.NewContent
				placed = true
				break
			}
		}
		if placed {
			applied++
		} else {
			failed++
			log.Warn("Accepted change could not be placed in any section",
				zap.String("issue", issue.ID),
				zap.String("passage", condense(issue.Passage)))
		}
	}
	return applied, failed
}

func effectiveReplacement(issue *IssueWithStatus) string {
	if issue.Status == IssueStatusCustom && issue.CustomReplacement != "" {
		return issue.CustomReplacement
	}
	return issue.Replacement
}

func printCurrent(s *Session) {
	cur := s.Current()
	if cur == nil {
		fmt.Println("All issues reviewed. Use finish to apply accepted changes.")
		return
	}
	fmt.Printf("Issue %s (%d remaining)\n", cur.ID, s.Remaining())
	fmt.Printf("  passage:     %s\n", condense(cur.Passage))
	if cur.Issues != "" {
		fmt.Printf("  problem:     %s\n", condense(cur.Issues))
	}
	fmt.Printf("  replacement: %s\n", condense(cur.Replacement))
	if cur.Explanation != "" {
		fmt.Printf("  explanation: %s\n", condense(cur.Explanation))
	}
}

func printResult(issue *IssueWithStatus, res patch.Result) {
	if res.Success {
		fmt.Printf("Applied %s.\n\n", issue.ID)
		return
	}
	fmt.Printf("Could not apply %s: %s\n\n", issue.ID, res.Reason)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func condense(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const limit = 100
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
