package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/IvanShishkin/indexscan/internal/classify"
	"github.com/IvanShishkin/indexscan/internal/ignore"
	"github.com/IvanShishkin/indexscan/pkg/models"
	"go.uber.org/zap"
)

// WalkOptions configures one traversal
type WalkOptions struct {
	Root           string // Canonical absolute root
	Concurrency    int    // Worker count, values below 1 mean 1
	FollowSymlinks bool
	Absolute       bool  // Fill FileRecord.AbsPath
	LimitSize      bool  // Enforce MaxSizeBytes
	MaxSizeBytes   int64 // Largest accepted size, 0 keeps only empty files
}

// DiagnosticFunc receives per-entry failures. It may be called from several workers at once.
type DiagnosticFunc func(models.Diagnostic)

// dirKey identifies a directory for cycle detection
type dirKey struct {
	dev  uint64
	ino  uint64
	path string
}

// Walker enumerates regular files under a root with a fixed pool of workers
// sharing one directory queue
type Walker struct {
	opts       WalkOptions
	rules      *ignore.RuleSet
	include    *ignore.IncludeFilter
	classifier *classify.Classifier
	logger     *zap.Logger
	onDiag     DiagnosticFunc

	dirs       atomic.Int64
	filesSeen  atomic.Int64
	ignored    atomic.Int64
	excluded   atomic.Int64
	oversize   atomic.Int64
	nonRegular atomic.Int64
	errors     atomic.Int64
}

// NewWalker creates a new filesystem walker. rules and include may be nil.
func NewWalker(opts WalkOptions, rules *ignore.RuleSet, include *ignore.IncludeFilter, classifier *classify.Classifier, logger *zap.Logger) *Walker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if rules == nil {
		rules = ignore.NewRuleSet(nil)
	}
	if classifier == nil {
		classifier = classify.New(classify.DefaultSampleBytes)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Walker{
		opts:       opts,
		rules:      rules,
		include:    include,
		classifier: classifier,
		logger:     logger,
	}
}

// OnDiagnostic registers a callback for skipped entries
func (w *Walker) OnDiagnostic(fn DiagnosticFunc) {
	w.onDiag = fn
}

// Walk traverses the tree and sends one record per surviving regular file to out.
// It blocks while out is full and returns once every worker has finished.
// out is not closed. The only error is ctx.Err() after cancellation.
func (w *Walker) Walk(ctx context.Context, out chan<- *models.FileRecord) error {
	q := newDirQueue()
	stop := context.AfterFunc(ctx, q.abort)
	defer stop()

	root := dirJob{abs: w.opts.Root}
	if w.opts.FollowSymlinks {
		if info, err := os.Stat(w.opts.Root); err == nil {
			root.ancestors = []dirKey{identity(w.opts.Root, info)}
		}
	}
	q.push(root)

	w.logger.Debug("Starting walk",
		zap.String("root", w.opts.Root),
		zap.Int("workers", w.opts.Concurrency))

	var wg sync.WaitGroup
	for i := 0; i < w.opts.Concurrency; i++ {
		wg.Add(1)
		go w.worker(ctx, &wg, q, out)
	}
	wg.Wait()

	return ctx.Err()
}

// Stats returns the traversal counters collected so far
func (w *Walker) Stats() models.ScanStats {
	return models.ScanStats{
		Root:       w.opts.Root,
		Workers:    w.opts.Concurrency,
		Dirs:       w.dirs.Load(),
		FilesSeen:  w.filesSeen.Load(),
		Ignored:    w.ignored.Load(),
		Excluded:   w.excluded.Load(),
		Oversize:   w.oversize.Load(),
		NonRegular: w.nonRegular.Load(),
		Errors:     w.errors.Load(),
	}
}

// worker processes directories until the queue closes
func (w *Walker) worker(ctx context.Context, wg *sync.WaitGroup, q *dirQueue, out chan<- *models.FileRecord) {
	defer wg.Done()

	for {
		job, ok := q.pop()
		if !ok {
			return
		}
		w.readDir(ctx, job, q, out)
		q.done()
	}
}

// readDir handles every entry of one directory, queueing subdirectories
func (w *Walker) readDir(ctx context.Context, job dirJob, q *dirQueue, out chan<- *models.FileRecord) {
	entries, err := os.ReadDir(job.abs)
	if err != nil {
		w.diagnose(displayPath(job.rel), "readdir", err)
		return
	}
	w.dirs.Add(1)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}

		abs := filepath.Join(job.abs, entry.Name())
		rel := entry.Name()
		if job.rel != "" {
			rel = job.rel + "/" + rel
		}

		var info os.FileInfo
		isDir := entry.IsDir()
		if entry.Type()&os.ModeSymlink != 0 && w.opts.FollowSymlinks {
			info, err = os.Stat(abs)
			if err != nil {
				w.diagnose(rel, "stat", err)
				continue
			}
			isDir = info.IsDir()
		}

		if isDir {
			w.enterDir(job, dirJob{abs: abs, rel: rel}, info, q)
			continue
		}

		rec, ok := w.visitFile(abs, rel, entry, info)
		if !ok {
			continue
		}
		select {
		case out <- rec:
		case <-ctx.Done():
			return
		}
	}
}

// enterDir applies the directory filters and queues the directory for reading
func (w *Walker) enterDir(parent, job dirJob, info os.FileInfo, q *dirQueue) {
	if w.include.PruneDir(job.rel) {
		w.excluded.Add(1)
		w.logger.Debug("Skipping excluded directory", zap.String("path", job.rel))
		return
	}
	// With negated rules present a file below an ignored directory can still be re-included
	if !w.rules.HasNegations() && w.rules.ShouldIgnore(job.rel, true) {
		w.ignored.Add(1)
		w.logger.Debug("Skipping ignored directory", zap.String("path", job.rel))
		return
	}

	if w.opts.FollowSymlinks {
		if info == nil {
			var err error
			if info, err = os.Stat(job.abs); err != nil {
				w.diagnose(job.rel, "stat", err)
				return
			}
		}
		// A directory is a cycle only when it is its own ancestor. Other aliases are walked again.
		key := identity(job.abs, info)
		for _, a := range parent.ancestors {
			if a == key {
				w.logger.Debug("Skipping symlink cycle", zap.String("path", job.rel))
				return
			}
		}
		job.ancestors = make([]dirKey, len(parent.ancestors), len(parent.ancestors)+1)
		copy(job.ancestors, parent.ancestors)
		job.ancestors = append(job.ancestors, key)
	}

	q.push(job)
}

// visitFile runs the per-file pipeline and returns the record when the file survives it
func (w *Walker) visitFile(abs, rel string, entry os.DirEntry, info os.FileInfo) (*models.FileRecord, bool) {
	w.filesSeen.Add(1)

	if !w.include.IncludeFile(rel) {
		w.excluded.Add(1)
		return nil, false
	}
	if w.rules.ShouldIgnore(rel, false) {
		w.ignored.Add(1)
		return nil, false
	}

	if info == nil {
		var err error
		if info, err = entry.Info(); err != nil {
			w.diagnose(rel, "stat", err)
			return nil, false
		}
	}
	if !info.Mode().IsRegular() {
		w.nonRegular.Add(1)
		return nil, false
	}
	if w.opts.LimitSize && info.Size() > w.opts.MaxSizeBytes {
		w.oversize.Add(1)
		return nil, false
	}

	kind, err := w.classifier.Classify(abs)
	if err != nil {
		w.diagnose(rel, "classify", err)
		return nil, false
	}

	rec := &models.FileRecord{
		RelPath: rel,
		Size:    info.Size(),
		MtimeMs: models.MillisSinceEpoch(info.ModTime()),
		Binary:  kind.IsBinary(),
	}
	if w.opts.Absolute {
		rec.AbsPath = abs
	}
	return rec, true
}

// diagnose reports a skipped entry
func (w *Walker) diagnose(path, op string, err error) {
	w.errors.Add(1)
	w.logger.Warn("Skipping entry",
		zap.String("path", path),
		zap.String("op", op),
		zap.Error(err))
	if w.onDiag != nil {
		w.onDiag(models.Diagnostic{Path: path, Op: op, Err: err})
	}
}

// resolvedKey identifies a directory by its symlink-free path
func resolvedKey(path string) dirKey {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return dirKey{path: path}
}

func displayPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}
