package ignore

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
)

const (
	// GitIgnoreFile is the version-control ignore file read from the scan root
	GitIgnoreFile = ".gitignore"
	// IndexIgnoreFile is the scanner's own ignore file read from the scan root
	IndexIgnoreFile = ".indexignore"
)

// BuiltinPatterns are always applied after both ignore files
var BuiltinPatterns = []string{
	".git/",
	"target/",
	"node_modules/",
	".DS_Store",
	"Thumbs.db",
	GitIgnoreFile,
	IndexIgnoreFile,
}

// RuleSet is an ordered, immutable list of rules. Later rules take precedence.
// It is safe for concurrent use once built.
type RuleSet struct {
	rules     []Rule
	negations bool
}

// NewRuleSet wraps already compiled rules, lowest precedence first
func NewRuleSet(rules []Rule) *RuleSet {
	rs := &RuleSet{rules: make([]Rule, len(rules))}
	copy(rs.rules, rules)
	for _, r := range rs.rules {
		if r.Negated {
			rs.negations = true
			break
		}
	}
	return rs
}

// Load builds the rule set for a scan root. Layers, in increasing precedence:
// .gitignore, .indexignore, builtin excludes, extra patterns.
// Missing ignore files are skipped; unreadable ones and malformed patterns are errors.
func Load(fsys billy.Filesystem, extra []string) (*RuleSet, error) {
	var rules []Rule

	files := []struct {
		name string
		src  Source
	}{
		{GitIgnoreFile, SourceGitIgnore},
		{IndexIgnoreFile, SourceIndexIgnore},
	}
	for _, f := range files {
		fileRules, err := readRulesFile(fsys, f.name, f.src)
		if err != nil {
			return nil, err
		}
		rules = append(rules, fileRules...)
	}

	for i, p := range BuiltinPatterns {
		r, err := ParseRule(p, SourceBuiltin, i+1)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	for i, p := range extra {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		r, err := ParseRule(p, SourceExtra, i+1)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	return NewRuleSet(rules), nil
}

// readRulesFile parses one ignore file. A missing file yields no rules.
func readRulesFile(fsys billy.Filesystem, name string, src Source) ([]Rule, error) {
	if _, err := fsys.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	var rules []Rule
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := ParseRule(line, src, lineNo)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	return rules, nil
}

// Rules returns a copy of the compiled rules in precedence order
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len returns the number of rules
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// HasNegations reports whether any rule can re-include a path
func (rs *RuleSet) HasNegations() bool {
	return rs.negations
}

// ShouldIgnore reports whether a forward-slash path relative to the root is ignored
func (rs *RuleSet) ShouldIgnore(rel string, isDir bool) bool {
	r, ok := rs.Match(rel, isDir)
	return ok && !r.Negated
}

// Match returns the rule deciding rel. The path itself is evaluated first, then each
// parent directory from the nearest upwards; the last matching rule at the first level
// that matches anything wins.
func (rs *RuleSet) Match(rel string, isDir bool) (Rule, bool) {
	parts := splitPath(rel)
	if len(parts) == 0 {
		return Rule{}, false
	}

	if r, ok := rs.lastMatch(parts, isDir); ok {
		return r, true
	}
	for i := len(parts) - 1; i > 0; i-- {
		if r, ok := rs.lastMatch(parts[:i], true); ok {
			return r, true
		}
	}
	return Rule{}, false
}

func (rs *RuleSet) lastMatch(parts []string, isDir bool) (Rule, bool) {
	for i := len(rs.rules) - 1; i >= 0; i-- {
		if rs.rules[i].match(parts, isDir) {
			return rs.rules[i], true
		}
	}
	return Rule{}, false
}
