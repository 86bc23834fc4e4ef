// Package report folds true-blame attributions into per-author,
// per-commit and per-file contribution records and writes them out.
package report

import (
	"sort"
	"time"

	"github.com/jensroland/git-trueblame/internal/author"
	"github.com/jensroland/git-trueblame/internal/repo"
	"github.com/jensroland/git-trueblame/internal/trueblame"
)

// MetadataSource supplies commit metadata for contribution records.
type MetadataSource interface {
	CommitInfo(hash string) repo.CommitInfo
}

// Report is the result of one analysis run.
type Report struct {
	Revision    string          `yaml:"revision" json:"revision"`
	GeneratedAt time.Time       `yaml:"generated_at" json:"generated_at"`
	TotalLines  int             `yaml:"total_lines" json:"total_lines"`
	Unresolved  int             `yaml:"unresolved" json:"unresolved"`
	Authors     []AuthorSummary `yaml:"authors" json:"authors"`
	Commits     []Contribution  `yaml:"commits" json:"commits"`
	Files       []FileSummary   `yaml:"files" json:"files"`
	Lines       []LineRecord    `yaml:"lines,omitempty" json:"lines,omitempty"`
}

// AuthorSummary counts the lines truly written by one author. Reclaimed
// counts lines plain blame credits to someone else.
type AuthorSummary struct {
	GitID       string `yaml:"git_id" json:"git_id"`
	DisplayName string `yaml:"display_name" json:"display_name"`
	Lines       int    `yaml:"lines" json:"lines"`
	Reclaimed   int    `yaml:"reclaimed" json:"reclaimed"`
}

// Contribution is one origin commit and the lines it still owns.
type Contribution struct {
	Hash   string    `yaml:"hash" json:"hash"`
	Author string    `yaml:"author" json:"author"`
	Date   time.Time `yaml:"date" json:"date"`
	Title  string    `yaml:"title" json:"title"`
	Body   string    `yaml:"body,omitempty" json:"body,omitempty"`
	Lines  int       `yaml:"lines" json:"lines"`
	Files  []string  `yaml:"files" json:"files"`
}

// FileSummary maps each author to the lines they own in one file.
type FileSummary struct {
	Path    string         `yaml:"path" json:"path"`
	Lines   int            `yaml:"lines" json:"lines"`
	Authors map[string]int `yaml:"authors" json:"authors"`
}

// LineRecord is the attribution of a single line.
type LineRecord struct {
	File         string `yaml:"file" json:"file"`
	Line         int    `yaml:"line" json:"line"`
	Text         string `yaml:"text" json:"text"`
	DirectAuthor string `yaml:"direct_author" json:"direct_author"`
	TrueAuthor   string `yaml:"true_author" json:"true_author"`
	Commit       string `yaml:"commit" json:"commit"`
	Path         string `yaml:"path" json:"path"`
	Hops         int    `yaml:"hops" json:"hops"`
	Stop         string `yaml:"stop" json:"stop"`
	Error        string `yaml:"error,omitempty" json:"error,omitempty"`
}

// Build folds attributions into a report.
//
// Lines attributed to author.Unknown count toward the Unknown author
// summary but never produce a commit contribution. Unresolvable lines keep
// their fallback author and are also counted in Unresolved.
func Build(revision string, atts []trueblame.Attribution, meta MetadataSource) *Report {
	r := &Report{Revision: revision, GeneratedAt: time.Now().UTC(), TotalLines: len(atts)}

	authors := map[string]*AuthorSummary{}
	commits := map[string]*Contribution{}
	commitFiles := map[string]map[string]bool{}
	files := map[string]*FileSummary{}

	for _, a := range atts {
		who := a.Author
		if who == nil {
			who = author.Unknown
		}
		if a.Err != nil {
			r.Unresolved++
		}

		as, ok := authors[who.GitID]
		if !ok {
			as = &AuthorSummary{GitID: who.GitID, DisplayName: who.Name()}
			authors[who.GitID] = as
		}
		as.Lines++
		if fb := a.Query.Fallback; fb != nil && fb.GitID != who.GitID {
			as.Reclaimed++
		}

		file := a.Query.File
		if file == "" {
			file = a.Query.Path
		}
		fs, ok := files[file]
		if !ok {
			fs = &FileSummary{Path: file, Authors: map[string]int{}}
			files[file] = fs
		}
		fs.Lines++
		fs.Authors[who.GitID]++

		r.Lines = append(r.Lines, lineRecord(file, a, who))

		if who.IsUnknown() || a.Err != nil || a.Commit == "" {
			continue
		}
		c, ok := commits[a.Commit]
		if !ok {
			c = &Contribution{Hash: a.Commit, Author: who.GitID}
			if meta != nil {
				info := meta.CommitInfo(a.Commit)
				c.Date, c.Title, c.Body = info.Date, info.Title, info.Body
			}
			commits[a.Commit] = c
			commitFiles[a.Commit] = map[string]bool{}
		}
		c.Lines++
		commitFiles[a.Commit][file] = true
	}

	for _, as := range authors {
		r.Authors = append(r.Authors, *as)
	}
	sort.Slice(r.Authors, func(i, j int) bool {
		if r.Authors[i].Lines != r.Authors[j].Lines {
			return r.Authors[i].Lines > r.Authors[j].Lines
		}
		return r.Authors[i].GitID < r.Authors[j].GitID
	})

	for hash, c := range commits {
		for f := range commitFiles[hash] {
			c.Files = append(c.Files, f)
		}
		sort.Strings(c.Files)
		r.Commits = append(r.Commits, *c)
	}
	sort.Slice(r.Commits, func(i, j int) bool {
		if !r.Commits[i].Date.Equal(r.Commits[j].Date) {
			return r.Commits[i].Date.Before(r.Commits[j].Date)
		}
		return r.Commits[i].Hash < r.Commits[j].Hash
	})

	for _, fs := range files {
		r.Files = append(r.Files, *fs)
	}
	sort.Slice(r.Files, func(i, j int) bool { return r.Files[i].Path < r.Files[j].Path })

	return r
}

func lineRecord(file string, a trueblame.Attribution, who *author.Identity) LineRecord {
	rec := LineRecord{
		File:       file,
		Line:       a.Query.Line,
		Text:       a.Query.Text,
		TrueAuthor: who.GitID,
		Commit:     a.Commit,
		Path:       a.Path,
		Hops:       len(a.Hops),
		Stop:       string(a.Stop),
	}
	if a.Query.Fallback != nil {
		rec.DirectAuthor = a.Query.Fallback.GitID
	}
	if a.Err != nil {
		rec.Error = a.Err.Error()
	}
	return rec
}
