// Package author maps raw git author signatures to canonical identities
// and decides which attributions are excluded.
package author

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Identity is a canonical author.
type Identity struct {
	GitID       string
	Emails      []string
	Aliases     []string
	DisplayName string
	IgnoreGlobs []string
}

// Unknown marks attribution that was explicitly excluded.
var Unknown = &Identity{GitID: "-", DisplayName: "Unknown"}

// Name returns the display name, falling back to the git id.
func (a *Identity) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.GitID
}

// Email returns the primary email, or "".
func (a *Identity) Email() string {
	if len(a.Emails) == 0 {
		return ""
	}
	return a.Emails[0]
}

// IsUnknown reports whether a is the Unknown sentinel.
func (a *Identity) IsUnknown() bool {
	return a == nil || a == Unknown
}

// IgnoreGlobMatches reports whether path matches one of the author's
// ignore globs. Globs use doublestar syntax, so "**" crosses directories.
func (a *Identity) IgnoreGlobMatches(path string) bool {
	if a == nil {
		return false
	}
	for _, g := range a.IgnoreGlobs {
		if ok, err := doublestar.Match(g, path); err == nil && ok {
			return true
		}
	}
	return false
}

func (a *Identity) String() string {
	if e := a.Email(); e != "" {
		return fmt.Sprintf("%s <%s>", a.Name(), e)
	}
	return a.Name()
}

// Resolver returns the canonical identity for a name/email pair.
type Resolver interface {
	Resolve(name, email string) *Identity
}

// Config describes one configured author.
type Config struct {
	GitID       string   `mapstructure:"git_id" yaml:"git_id"`
	Emails      []string `mapstructure:"emails" yaml:"emails"`
	Aliases     []string `mapstructure:"aliases" yaml:"aliases"`
	DisplayName string   `mapstructure:"display_name" yaml:"display_name"`
	IgnoreGlobs []string `mapstructure:"ignore_globs" yaml:"ignore_globs"`
}

// Registry resolves signatures against a configured author list.
//
// With an empty list every signature becomes its own identity, keyed by
// name. With a non-empty list, signatures that match no configured author
// resolve to Unknown.
type Registry struct {
	shared []string

	byName  map[string]*Identity
	byEmail map[string]*Identity
	listed  bool

	mu      sync.Mutex
	dynamic map[string]*Identity
}

// NewRegistry builds a Registry. sharedIgnore globs apply to every author.
func NewRegistry(authors []Config, sharedIgnore []string) (*Registry, error) {
	for _, g := range sharedIgnore {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid ignore glob %q", g)
		}
	}

	r := &Registry{
		shared:  sharedIgnore,
		byName:  make(map[string]*Identity),
		byEmail: make(map[string]*Identity),
		listed:  len(authors) > 0,
		dynamic: make(map[string]*Identity),
	}

	for _, c := range authors {
		if c.GitID == "" {
			return nil, errors.New("author entry without git_id")
		}
		for _, g := range c.IgnoreGlobs {
			if !doublestar.ValidatePattern(g) {
				return nil, fmt.Errorf("author %s: invalid ignore glob %q", c.GitID, g)
			}
		}
		id := &Identity{
			GitID:       c.GitID,
			Emails:      c.Emails,
			Aliases:     c.Aliases,
			DisplayName: c.DisplayName,
			IgnoreGlobs: append(append([]string{}, c.IgnoreGlobs...), sharedIgnore...),
		}
		r.byName[key(c.GitID)] = id
		for _, alias := range c.Aliases {
			r.byName[key(alias)] = id
		}
		for _, e := range c.Emails {
			r.byEmail[key(e)] = id
		}
	}
	return r, nil
}

// Resolve implements Resolver. Lookups ignore case and surrounding space;
// email wins over name when both match different authors.
func (r *Registry) Resolve(name, email string) *Identity {
	email = strings.Trim(strings.TrimSpace(email), "<>")
	if id, ok := r.byEmail[key(email)]; ok && email != "" {
		return id
	}
	if id, ok := r.byName[key(name)]; ok {
		return id
	}
	if r.listed {
		return Unknown
	}

	name = strings.TrimSpace(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.dynamic[key(name)]; ok {
		return id
	}
	id := &Identity{GitID: name, IgnoreGlobs: r.shared}
	if email != "" {
		id.Emails = []string{email}
	}
	r.dynamic[key(name)] = id
	return id
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IgnoreCommits is a list of commit hashes excluded from attribution.
// Entries may be abbreviated.
type IgnoreCommits []string

// Contains reports whether hash matches an entry by prefix.
func (l IgnoreCommits) Contains(hash string) bool {
	hash = strings.ToLower(hash)
	for _, c := range l {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" && strings.HasPrefix(hash, c) {
			return true
		}
	}
	return false
}

// Policy combines author resolution with the ignore rules.
type Policy struct {
	Resolver      Resolver
	IgnoreCommits IgnoreCommits
}

// Attribute resolves the author of commit for a line in path, returning
// Unknown when the author ignores path or the commit is ignored.
func (p Policy) Attribute(name, email, commit, path string) *Identity {
	id := p.Resolver.Resolve(name, email)
	if id.IgnoreGlobMatches(path) || p.IgnoreCommits.Contains(commit) {
		return Unknown
	}
	return id
}
