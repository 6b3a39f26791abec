package ignore

import "strings"

// IncludeFilter is the coarse include-glob prefilter applied before the ignore rules.
// Globs use gitignore syntax; a "!glob" excludes. A file is kept when the last matching
// glob is positive, or when nothing matches and there are no positive globs.
type IncludeFilter struct {
	rules     []Rule
	positives int
}

// NewIncludeFilter compiles include globs. An empty list keeps everything.
func NewIncludeFilter(globs []string) (*IncludeFilter, error) {
	f := &IncludeFilter{}
	for i, g := range globs {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		r, err := ParseRule(g, SourceInclude, i+1)
		if err != nil {
			return nil, err
		}
		if !r.Negated {
			f.positives++
		}
		f.rules = append(f.rules, r)
	}
	return f, nil
}

// IncludeFile reports whether a file path passes the filter
func (f *IncludeFilter) IncludeFile(rel string) bool {
	if f == nil || len(f.rules) == 0 {
		return true
	}
	r, ok := f.lastMatch(splitPath(rel), false)
	if !ok {
		return f.positives == 0
	}
	return !r.Negated
}

// PruneDir reports whether a directory subtree is excluded by a "!glob".
// Directories that merely fail to match a positive glob are still descended.
func (f *IncludeFilter) PruneDir(rel string) bool {
	if f == nil || len(f.rules) == 0 {
		return false
	}
	r, ok := f.lastMatch(splitPath(rel), true)
	return ok && r.Negated
}

func (f *IncludeFilter) lastMatch(parts []string, isDir bool) (Rule, bool) {
	if len(parts) == 0 {
		return Rule{}, false
	}
	for i := len(f.rules) - 1; i >= 0; i-- {
		if f.rules[i].match(parts, isDir) {
			return f.rules[i], true
		}
	}
	return Rule{}, false
}
