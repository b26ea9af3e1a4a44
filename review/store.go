package review

import (
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"scribe/patch"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	bundle     TEXT NOT NULL,
	original   TEXT NOT NULL,
	working    TEXT NOT NULL,
	cursor     INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS issues (
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	ord         INTEGER NOT NULL,
	issue_id    TEXT NOT NULL,
	passage     TEXT NOT NULL,
	issues      TEXT NOT NULL,
	replacement TEXT NOT NULL,
	explanation TEXT NOT NULL,
	status      TEXT NOT NULL,
	custom      TEXT NOT NULL,
	reason      TEXT NOT NULL,
	PRIMARY KEY (session_id, ord)
);
`

// Store persists review sessions. Saving a session rewrites it whole: the
// last writer wins, there is no merge.
type Store struct {
	conn *sqlite.Conn
}

// OpenStore opens (creating when necessary) the session database.
func OpenStore(path string) (*Store, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("unable to open session database: %w", err)
	}
	if err := sqlitex.ExecScript(conn, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to prepare session database: %w", err)
	}
	if err := sqlitex.Execute(conn, "PRAGMA foreign_keys = ON;", nil); err != nil {
		conn.Close()
		return nil, err
	}
	return &Store{conn: conn}, nil
}

func (st *Store) Close() error {
	return st.conn.Close()
}

// Save writes the complete session state atomically.
func (st *Store) Save(s *Session) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(st.conn)
	if err != nil {
		return fmt.Errorf("unable to start transaction: %w", err)
	}
	defer endFn(&err)

	err = sqlitex.Execute(st.conn,
		`INSERT INTO sessions (id, bundle, original, working, cursor, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   bundle=excluded.bundle, original=excluded.original, working=excluded.working,
		   cursor=excluded.cursor, updated_at=excluded.updated_at`,
		&sqlitex.ExecOptions{Args: []any{
			s.ID, s.Bundle, s.OriginalContent, s.WorkingContent, s.Cursor,
			s.CreatedAt.Unix(), s.UpdatedAt.Unix(),
		}})
	if err != nil {
		return fmt.Errorf("unable to save session: %w", err)
	}

	err = sqlitex.Execute(st.conn, `DELETE FROM issues WHERE session_id = ?`,
		&sqlitex.ExecOptions{Args: []any{s.ID}})
	if err != nil {
		return fmt.Errorf("unable to clear session issues: %w", err)
	}

	for i, issue := range s.Issues {
		err = sqlitex.Execute(st.conn,
			`INSERT INTO issues (session_id, ord, issue_id, passage, issues, replacement, explanation, status, custom, reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				s.ID, i, issue.ID, issue.Passage, issue.Issues, issue.Replacement,
				issue.Explanation, string(issue.Status), issue.CustomReplacement, issue.Reason,
			}})
		if err != nil {
			return fmt.Errorf("unable to save session issue %d: %w", i, err)
		}
	}
	return nil
}

// Load reads a session by ID. Prefix match is accepted as long as it is
// unambiguous, so users can type the short form of a UUID.
func (st *Store) Load(id string) (*Session, error) {
	var found []*Session
	err := sqlitex.Execute(st.conn,
		`SELECT id, bundle, original, working, cursor, created_at, updated_at
		 FROM sessions WHERE id LIKE ? ORDER BY updated_at DESC`,
		&sqlitex.ExecOptions{
			Args: []any{id + "%"},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = append(found, &Session{
					ID:              stmt.ColumnText(0),
					Bundle:          stmt.ColumnText(1),
					OriginalContent: stmt.ColumnText(2),
					WorkingContent:  stmt.ColumnText(3),
					Cursor:          int(stmt.ColumnInt64(4)),
					CreatedAt:       time.Unix(stmt.ColumnInt64(5), 0).UTC(),
					UpdatedAt:       time.Unix(stmt.ColumnInt64(6), 0).UTC(),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to load session: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("session %s not found", id)
	case 1:
	default:
		return nil, fmt.Errorf("session id %s is ambiguous (%d matches)", id, len(found))
	}
	s := found[0]

	err = sqlitex.Execute(st.conn,
		`SELECT issue_id, passage, issues, replacement, explanation, status, custom, reason
		 FROM issues WHERE session_id = ? ORDER BY ord`,
		&sqlitex.ExecOptions{
			Args: []any{s.ID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				s.Issues = append(s.Issues, &IssueWithStatus{
					Issue: patch.Issue{
						ID:          stmt.ColumnText(0),
						Passage:     stmt.ColumnText(1),
						Issues:      stmt.ColumnText(2),
						Replacement: stmt.ColumnText(3),
						Explanation: stmt.ColumnText(4),
					},
					Status:            IssueStatus(stmt.ColumnText(5)),
					CustomReplacement: stmt.ColumnText(6),
					Reason:            stmt.ColumnText(7),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to load session issues: %w", err)
	}
	return s, nil
}

// Summary is what List returns per session, content omitted.
type Summary struct {
	ID        string
	Bundle    string
	Issues    int
	Pending   int
	UpdatedAt time.Time
}

// List returns summaries of all stored sessions, most recent first.
func (st *Store) List() ([]*Summary, error) {
	var out []*Summary
	err := sqlitex.Execute(st.conn,
		`SELECT s.id, s.bundle, s.updated_at,
		        COUNT(i.ord), SUM(CASE WHEN i.status = 'pending' THEN 1 ELSE 0 END)
		 FROM sessions s LEFT JOIN issues i ON i.session_id = s.id
		 GROUP BY s.id ORDER BY s.updated_at DESC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				out = append(out, &Summary{
					ID:        stmt.ColumnText(0),
					Bundle:    stmt.ColumnText(1),
					UpdatedAt: time.Unix(stmt.ColumnInt64(2), 0).UTC(),
					Issues:    int(stmt.ColumnInt64(3)),
					Pending:   int(stmt.ColumnInt64(4)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to list sessions: %w", err)
	}
	return out, nil
}

// Delete discards a stored session.
func (st *Store) Delete(id string) error {
	if err := sqlitex.Execute(st.conn, `DELETE FROM issues WHERE session_id = ?`,
		&sqlitex.ExecOptions{Args: []any{id}}); err != nil {
		return fmt.Errorf("unable to delete session issues: %w", err)
	}
	if err := sqlitex.Execute(st.conn, `DELETE FROM sessions WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{id}}); err != nil {
		return fmt.Errorf("unable to delete session: %w", err)
	}
	return nil
}
