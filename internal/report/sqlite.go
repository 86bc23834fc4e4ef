package report

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE meta (
		revision TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		total_lines INTEGER NOT NULL,
		unresolved INTEGER NOT NULL
	)`,
	`CREATE TABLE authors (
		git_id TEXT PRIMARY KEY,
		display_name TEXT,
		lines INTEGER NOT NULL,
		reclaimed INTEGER NOT NULL
	)`,
	`CREATE TABLE contributions (
		hash TEXT PRIMARY KEY,
		author TEXT NOT NULL,
		date TEXT,
		title TEXT,
		body TEXT,
		lines INTEGER NOT NULL
	)`,
	`CREATE TABLE lines (
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		text TEXT,
		direct_author TEXT,
		true_author TEXT NOT NULL,
		commit_hash TEXT,
		path TEXT,
		hops INTEGER NOT NULL,
		stop TEXT,
		error TEXT
	)`,
	"CREATE INDEX idx_lines_file ON lines(file)",
	"CREATE INDEX idx_lines_true_author ON lines(true_author)",
	"CREATE INDEX idx_lines_commit ON lines(commit_hash)",
}

// WriteSQLite replaces the database at path with the contents of r.
func WriteSQLite(path string, r *Report) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	_ = os.Remove(path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`INSERT INTO meta VALUES (?, ?, ?, ?)`,
		r.Revision, r.GeneratedAt.Format(time.RFC3339), r.TotalLines, r.Unresolved); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}

	for _, a := range r.Authors {
		if _, err = tx.Exec(`INSERT INTO authors VALUES (?, ?, ?, ?)`,
			a.GitID, a.DisplayName, a.Lines, a.Reclaimed); err != nil {
			return fmt.Errorf("insert author %s: %w", a.GitID, err)
		}
	}

	for _, c := range r.Commits {
		date := ""
		if !c.Date.IsZero() {
			date = c.Date.Format(time.RFC3339)
		}
		if _, err = tx.Exec(`INSERT INTO contributions VALUES (?, ?, ?, ?, ?, ?)`,
			c.Hash, c.Author, date, c.Title, c.Body, c.Lines); err != nil {
			return fmt.Errorf("insert commit %s: %w", c.Hash, err)
		}
	}

	stmt, err := tx.Prepare(`
		INSERT INTO lines
		(file, line, text, direct_author, true_author, commit_hash, path, hops, stop, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range r.Lines {
		if _, err = stmt.Exec(l.File, l.Line, l.Text, l.DirectAuthor, l.TrueAuthor,
			l.Commit, l.Path, l.Hops, l.Stop, l.Error); err != nil {
			return fmt.Errorf("insert line %s:%d: %w", l.File, l.Line, err)
		}
	}

	return tx.Commit()
}

// Stats summarizes a stored report.
type Stats struct {
	Revision    string
	GeneratedAt time.Time
	TotalLines  int
	Unresolved  int
	Commits     int
	Files       int
	Rewalked    int // lines whose origin is older than their direct blame
	Authors     []AuthorSummary
}

// ReadSQLiteStats reads the summary of a report written by WriteSQLite.
func ReadSQLiteStats(path string) (*Stats, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	s := &Stats{}
	var generated string
	err = db.QueryRow(`SELECT revision, generated_at, total_lines, unresolved FROM meta`).
		Scan(&s.Revision, &generated, &s.TotalLines, &s.Unresolved)
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	s.GeneratedAt, _ = time.Parse(time.RFC3339, generated)

	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM contributions`, &s.Commits},
		{`SELECT COUNT(DISTINCT file) FROM lines`, &s.Files},
		{`SELECT COUNT(*) FROM lines WHERE hops > 0`, &s.Rewalked},
	}
	for _, c := range counts {
		if err := db.QueryRow(c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("read stats: %w", err)
		}
	}

	rows, err := db.Query(`SELECT git_id, display_name, lines, reclaimed FROM authors ORDER BY lines DESC, git_id`)
	if err != nil {
		return nil, fmt.Errorf("read authors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a AuthorSummary
		if err := rows.Scan(&a.GitID, &a.DisplayName, &a.Lines, &a.Reclaimed); err != nil {
			return nil, err
		}
		s.Authors = append(s.Authors, a)
	}
	return s, rows.Err()
}
