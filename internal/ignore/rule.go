package ignore

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ErrBadPattern is wrapped by every PatternError caused by malformed glob syntax
var ErrBadPattern = errors.New("bad pattern")

// Source identifies where a rule came from
type Source int

const (
	SourceGitIgnore Source = iota
	SourceIndexIgnore
	SourceBuiltin
	SourceExtra
	SourceInclude
)

func (s Source) String() string {
	switch s {
	case SourceGitIgnore:
		return GitIgnoreFile
	case SourceIndexIgnore:
		return IndexIgnoreFile
	case SourceBuiltin:
		return "builtin"
	case SourceExtra:
		return "extra"
	case SourceInclude:
		return "include"
	default:
		return "unknown"
	}
}

// Rule is one compiled gitignore-style pattern
type Rule struct {
	Pattern  string // Pattern as written, including a leading "!"
	Source   Source
	Line     int  // 1-based line (file sources) or position (builtin, extra, include)
	Negated  bool // "!pattern" re-includes a path
	DirOnly  bool // trailing "/" matches directories only
	Anchored bool // leading or inner "/" anchors the pattern to the root

	matcher      gitignore.Pattern
	contentsOnly bool // "dir/**" matches below dir but not dir itself
}

// PatternError reports a pattern that cannot be compiled
type PatternError struct {
	Source  Source
	Line    int
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q (%s:%d): %v", e.Pattern, e.Source, e.Line, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// ParseRule compiles a single, already trimmed, pattern line
func ParseRule(line string, src Source, lineNo int) (Rule, error) {
	rule := Rule{
		Pattern: line,
		Source:  src,
		Line:    lineNo,
	}

	body := line
	if strings.HasPrefix(body, "!") {
		rule.Negated = true
		body = body[1:]
	}
	if strings.HasSuffix(body, "/") {
		rule.DirOnly = true
		body = strings.TrimSuffix(body, "/")
	}
	rule.Anchored = strings.Contains(body, "/")

	if strings.Trim(body, "/") == "" {
		return Rule{}, &PatternError{Source: src, Line: lineNo, Pattern: line, Err: fmt.Errorf("%w: empty pattern", ErrBadPattern)}
	}
	if err := validateGlob(body); err != nil {
		return Rule{}, &PatternError{Source: src, Line: lineNo, Pattern: line, Err: err}
	}

	rule.matcher = gitignore.ParsePattern(line, nil)
	if prefix, ok := strings.CutSuffix(body, "/**"); ok && strings.Trim(prefix, "/") != "" {
		rule.contentsOnly = true
	}
	return rule, nil
}

// match reports whether the rule matches the split path
func (r *Rule) match(parts []string, isDir bool) bool {
	if r.matcher == nil {
		return false
	}
	if r.contentsOnly {
		// The containing directory must match, which leaves at least one component below the prefix
		if len(parts) < 2 || (r.DirOnly && !isDir) {
			return false
		}
		return r.matcher.Match(parts[:len(parts)-1], true) != gitignore.NoMatch
	}
	return r.matcher.Match(parts, isDir) != gitignore.NoMatch
}

// validateGlob checks every path segment for malformed glob syntax
func validateGlob(body string) error {
	for _, seg := range strings.Split(body, "/") {
		if seg == "" || seg == "**" {
			continue
		}
		if _, err := path.Match(seg, ""); err != nil {
			return fmt.Errorf("%w: %w", ErrBadPattern, err)
		}
	}
	return nil
}

// splitPath turns a relative path in either separator convention into path segments
func splitPath(rel string) []string {
	rel = strings.ReplaceAll(rel, "\\", "/")
	rel = path.Clean("/" + rel)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return nil
	}
	return strings.Split(rel, "/")
}
