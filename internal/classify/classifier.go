package classify

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultSampleBytes is the number of leading bytes inspected when the extension is inconclusive
const DefaultSampleBytes = 4096

// Kind is the classification result for a single file
type Kind int

const (
	Text Kind = iota
	Binary
)

func (k Kind) String() string {
	if k == Binary {
		return "binary"
	}
	return "text"
}

// IsBinary reports whether k is Binary
func (k Kind) IsBinary() bool {
	return k == Binary
}

// Well-known text extensions; these never trigger a content read
var textExtensions = map[string]bool{
	// Plain text and docs
	".txt": true, ".md": true, ".markdown": true, ".rst": true, ".adoc": true,
	".tex": true, ".csv": true, ".tsv": true, ".log": true,
	// Source
	".go": true, ".rs": true, ".py": true, ".js": true, ".jsx": true, ".mjs": true,
	".cjs": true, ".ts": true, ".tsx": true, ".c": true, ".h": true, ".cc": true,
	".cpp": true, ".hpp": true, ".java": true, ".kt": true, ".swift": true,
	".rb": true, ".php": true, ".cs": true, ".scala": true, ".lua": true,
	".sh": true, ".bash": true, ".zsh": true, ".fish": true, ".ps1": true,
	".sql": true, ".vue": true, ".svelte": true, ".dart": true, ".zig": true,
	// Markup and styles
	".html": true, ".htm": true, ".xml": true, ".svg": true, ".css": true,
	".scss": true, ".sass": true, ".less": true,
	// Config
	".json": true, ".toml": true, ".yaml": true, ".yml": true, ".ini": true,
	".cfg": true, ".conf": true, ".env": true, ".proto": true, ".graphql": true,
	".gql": true, ".mod": true, ".sum": true,
}

// Well-known binary extensions; these never trigger a content read
var binaryExtensions = map[string]bool{
	// Images
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".webp": true, ".ico": true, ".tiff": true, ".tif": true, ".psd": true,
	".heic": true, ".heif": true, ".avif": true, ".svgz": true,
	// Documents
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".epub": true,
	// Archives
	".zip": true, ".tar": true, ".gz": true, ".tgz": true, ".bz2": true,
	".xz": true, ".zst": true, ".lz4": true, ".7z": true, ".rar": true,
	".jar": true, ".war": true, ".iso": true, ".dmg": true, ".deb": true,
	".rpm": true,
	// Executables and objects
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".wasm": true,
	".bin": true, ".o": true, ".a": true, ".class": true, ".pyc": true,
	// Fonts
	".ttf": true, ".otf": true, ".woff": true, ".woff2": true, ".eot": true,
	// Audio and video
	".mp3": true, ".wav": true, ".flac": true, ".aac": true, ".ogg": true,
	".m4a": true, ".opus": true, ".mp4": true, ".mkv": true, ".mov": true,
	".avi": true, ".webm": true, ".wmv": true, ".flv": true,
	// Databases
	".db": true, ".sqlite": true, ".sqlite3": true,
}

// OpenFunc opens a file for sampling
type OpenFunc func(name string) (io.ReadCloser, error)

// Classifier decides text vs. binary for single files.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	sampleBytes int
	open        OpenFunc
}

// New creates a classifier reading at most sampleBytes per file.
// A non-positive value selects DefaultSampleBytes.
func New(sampleBytes int) *Classifier {
	if sampleBytes <= 0 {
		sampleBytes = DefaultSampleBytes
	}
	return &Classifier{
		sampleBytes: sampleBytes,
		open: func(name string) (io.ReadCloser, error) {
			return os.Open(name)
		},
	}
}

// WithOpener replaces the function used to open files for sampling
func (c *Classifier) WithOpener(open OpenFunc) *Classifier {
	cp := *c
	cp.open = open
	return &cp
}

// SampleBytes returns the configured sample size
func (c *Classifier) SampleBytes() int {
	return c.sampleBytes
}

// Classify returns the kind of the file at path. Known extensions are decided
// without touching the file; everything else is decided from a bounded sample.
func (c *Classifier) Classify(path string) (Kind, error) {
	if kind, ok := ByExtension(path); ok {
		return kind, nil
	}

	f, err := c.open(path)
	if err != nil {
		return Text, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, c.sampleBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Text, fmt.Errorf("failed to read sample: %w", err)
	}

	return Sample(buf[:n]), nil
}

// ByExtension looks up the lowercase extension of name in the fixed tables
func ByExtension(name string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return Text, false
	}
	if textExtensions[ext] {
		return Text, true
	}
	if binaryExtensions[ext] {
		return Binary, true
	}
	return Text, false
}

// Sample classifies a leading byte sample. Empty input is text.
func Sample(b []byte) Kind {
	if len(b) == 0 {
		return Text
	}

	mt := mimetype.Detect(b)
	if !isTextual(mt) {
		return Binary
	}

	// UTF-16/32 text legitimately carries NUL bytes
	if charset := mt.String(); strings.Contains(charset, "utf-16") || strings.Contains(charset, "utf-32") {
		return Text
	}

	// The detector only looks at its own read window; a NUL anywhere in the sample still counts
	if bytes.IndexByte(b, 0) >= 0 {
		return Binary
	}
	return Text
}

func isTextual(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
