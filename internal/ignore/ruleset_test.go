package ignore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFS(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func TestLoad_LayeredFilesAndNegation(t *testing.T) {
	fs := newFS(t, map[string]string{
		GitIgnoreFile:   "foo/\n",
		IndexIgnoreFile: "build/\n!build/README.md\nsecret.txt\n",
	})

	rs, err := Load(fs, []string{"temp/"})
	require.NoError(t, err)

	tests := []struct {
		path   string
		ignore bool
	}{
		{"foo/a.txt", true},
		{"secret.txt", true},
		{"temp/x", true},
		{"build/README.md", false},
		{"build/app.bin", true},
		{"src/main.rs", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.ignore, rs.ShouldIgnore(tt.path, false))
		})
	}
	assert.True(t, rs.HasNegations())
}

func TestLoad_MissingFilesOnlyBuiltins(t *testing.T) {
	rs, err := Load(memfs.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, len(BuiltinPatterns), rs.Len())
	assert.False(t, rs.HasNegations())

	assert.True(t, rs.ShouldIgnore(".git/config", false))
	assert.True(t, rs.ShouldIgnore("target/debug/app", false))
	assert.True(t, rs.ShouldIgnore("web/node_modules/react/index.js", false))
	assert.True(t, rs.ShouldIgnore("sub/.DS_Store", false))
	assert.True(t, rs.ShouldIgnore(".gitignore", false))
	assert.True(t, rs.ShouldIgnore(".indexignore", false))
	assert.False(t, rs.ShouldIgnore(".env", false))
	assert.False(t, rs.ShouldIgnore("targets.txt", false))
}

func TestLoad_CommentsAndBlankLines(t *testing.T) {
	fs := newFS(t, map[string]string{
		IndexIgnoreFile: "# build output\n\n   \n  *.log  \n\\#literal\n",
	})

	rs, err := Load(fs, []string{"", "# not a rule"})
	require.NoError(t, err)

	var sources []Source
	for _, r := range rs.Rules() {
		if r.Source != SourceBuiltin {
			sources = append(sources, r.Source)
		}
	}
	assert.Equal(t, []Source{SourceIndexIgnore, SourceIndexIgnore}, sources)
	assert.True(t, rs.ShouldIgnore("logs/app.log", false))
	assert.True(t, rs.ShouldIgnore("#literal", false))
}

func TestLoad_ExtraPatternsTakePrecedence(t *testing.T) {
	fs := newFS(t, map[string]string{
		GitIgnoreFile: "*.md\n",
	})

	rs, err := Load(fs, []string{"!README.md"})
	require.NoError(t, err)

	assert.True(t, rs.ShouldIgnore("docs/guide.md", false))
	assert.False(t, rs.ShouldIgnore("README.md", false))

	r, ok := rs.Match("README.md", false)
	require.True(t, ok)
	assert.Equal(t, SourceExtra, r.Source)
	assert.True(t, r.Negated)
}

func TestLoad_ExtraCanReincludeBuiltin(t *testing.T) {
	rs, err := Load(memfs.New(), []string{"!.gitignore"})
	require.NoError(t, err)
	assert.False(t, rs.ShouldIgnore(".gitignore", false))
}

func TestLoad_LaterRuleOverridesEarlier(t *testing.T) {
	fs := newFS(t, map[string]string{
		GitIgnoreFile:   "!keep.txt\n",
		IndexIgnoreFile: "keep.txt\n",
	})

	rs, err := Load(fs, nil)
	require.NoError(t, err)
	assert.True(t, rs.ShouldIgnore("keep.txt", false))

	r, ok := rs.Match("keep.txt", false)
	require.True(t, ok)
	assert.Equal(t, SourceIndexIgnore, r.Source)
	assert.Equal(t, 1, r.Line)
}

func TestLoad_MalformedPattern(t *testing.T) {
	fs := newFS(t, map[string]string{
		IndexIgnoreFile: "ok.txt\nbad[\n",
	})

	_, err := Load(fs, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadPattern))

	var perr *PatternError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, SourceIndexIgnore, perr.Source)
	assert.Equal(t, 2, perr.Line)
	assert.Equal(t, "bad[", perr.Pattern)
}

func TestLoad_MalformedExtraPattern(t *testing.T) {
	_, err := Load(memfs.New(), []string{"[z-"})
	require.ErrorIs(t, err, ErrBadPattern)
}

func TestLoad_UnreadableIgnoreFile(t *testing.T) {
	root := t.TempDir()
	// A directory in place of the file exists but cannot be read as one
	require.NoError(t, os.Mkdir(filepath.Join(root, GitIgnoreFile), 0o755))

	_, err := Load(osfs.New(root), nil)
	require.Error(t, err)
}

func TestRuleSet_GitignoreSemantics(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		isDir   bool
		ignore  bool
	}{
		{"name matches at any depth", "*.log", "a/b/c.log", false, true},
		{"name matches dir component", "cache", "x/cache/data.bin", false, true},
		{"anchored at root", "/config.yml", "config.yml", false, true},
		{"anchored not nested", "/config.yml", "sub/config.yml", false, false},
		{"inner slash anchors", "docs/api", "docs/api/index.html", false, true},
		{"inner slash not nested", "docs/api", "src/docs/api/index.html", false, false},
		{"dir only ignores files inside", "out/", "out/main.o", false, true},
		{"dir only skips file of same name", "out/", "out", false, false},
		{"dir only matches dir", "out/", "out", true, true},
		{"leading double star", "**/fixtures", "a/b/fixtures/x.json", false, true},
		{"middle double star", "a/**/z.txt", "a/b/c/z.txt", false, true},
		{"middle double star zero dirs", "a/**/z.txt", "a/z.txt", false, true},
		{"trailing double star", "vendor/**", "vendor/lib/x.go", false, true},
		{"trailing double star keeps file of same name", "docs/**", "docs", false, false},
		{"trailing double star keeps the dir itself", "docs/**", "docs", true, false},
		{"trailing double star direct child", "docs/**", "docs/x", false, true},
		{"trailing double star nested child", "docs/**", "docs/a/b", false, true},
		{"trailing double star anchored", "docs/**", "sub/docs/x", false, false},
		{"trailing double star dir only skips files", "docs/**/", "docs/x", false, false},
		{"trailing double star dir only matches subdir", "docs/**/", "docs/a", true, true},
		{"question mark", "file?.txt", "file1.txt", false, true},
		{"character class", "img[0-9].png", "img7.png", false, true},
		{"character class miss", "img[0-9].png", "imgx.png", false, false},
		{"backslash separators", "*.tmp", `dir\x.tmp`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseRule(tt.pattern, SourceExtra, 1)
			require.NoError(t, err)
			rs := NewRuleSet([]Rule{r})
			assert.Equal(t, tt.ignore, rs.ShouldIgnore(tt.path, tt.isDir))
		})
	}
}

func TestRuleSet_NegationUnderBroaderRule(t *testing.T) {
	var rules []Rule
	for i, p := range []string{"*.txt", "!important.txt", "logs/"} {
		r, err := ParseRule(p, SourceIndexIgnore, i+1)
		require.NoError(t, err)
		rules = append(rules, r)
	}
	rs := NewRuleSet(rules)

	assert.True(t, rs.ShouldIgnore("notes.txt", false))
	assert.False(t, rs.ShouldIgnore("important.txt", false))
	assert.False(t, rs.ShouldIgnore("docs/important.txt", false))
	assert.True(t, rs.ShouldIgnore("logs/important.txt", false))
}

func TestRuleSet_NoMatch(t *testing.T) {
	rs := NewRuleSet(nil)
	_, ok := rs.Match("anything/at/all.go", false)
	assert.False(t, ok)
	assert.False(t, rs.ShouldIgnore("", false))
}

func TestParseRule_Flags(t *testing.T) {
	r, err := ParseRule("!/build/", SourceExtra, 3)
	require.NoError(t, err)
	assert.True(t, r.Negated)
	assert.True(t, r.DirOnly)
	assert.True(t, r.Anchored)
	assert.Equal(t, "!/build/", r.Pattern)

	r, err = ParseRule("*.o", SourceExtra, 1)
	require.NoError(t, err)
	assert.False(t, r.Negated)
	assert.False(t, r.DirOnly)
	assert.False(t, r.Anchored)
}

func TestParseRule_Empty(t *testing.T) {
	for _, p := range []string{"!", "/", "!/"} {
		_, err := ParseRule(p, SourceExtra, 1)
		assert.ErrorIs(t, err, ErrBadPattern, p)
	}
}

func TestSource_String(t *testing.T) {
	assert.Equal(t, ".gitignore", SourceGitIgnore.String())
	assert.Equal(t, ".indexignore", SourceIndexIgnore.String())
	assert.Equal(t, "builtin", SourceBuiltin.String())
	assert.Equal(t, "extra", SourceExtra.String())
	assert.Equal(t, "include", SourceInclude.String())
}
