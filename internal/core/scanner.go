package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/IvanShishkin/indexscan/internal/classify"
	"github.com/IvanShishkin/indexscan/internal/filesystem"
	"github.com/IvanShishkin/indexscan/internal/ignore"
	"github.com/IvanShishkin/indexscan/pkg/models"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrRootNotFound is returned when the scan root does not exist
	ErrRootNotFound = errors.New("root not found")
	// ErrRootNotDirectory is returned when the scan root is not a directory
	ErrRootNotDirectory = errors.New("root is not a directory")
)

// Options is the immutable configuration of one scan
type Options struct {
	Root            string
	Include         []string // Include globs, gitignore syntax; empty keeps everything
	Ignore          []string // Extra ignore patterns, highest precedence
	LimitSize       bool     // false disables the size limit
	MaxSizeBytes    int64    // Largest accepted size when LimitSize is set
	Concurrency     int
	FollowSymlinks  bool
	Absolute        bool
	SampleBytes     int
	ChannelCapacity int
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Root:            ".",
		Include:         []string{"**/*"},
		LimitSize:       true,
		MaxSizeBytes:    5 * 1024 * 1024,
		Concurrency:     runtime.NumCPU() * 2,
		SampleBytes:     classify.DefaultSampleBytes,
		ChannelCapacity: DefaultChannelCapacity,
	}
}

// Scanner is the main scanner engine
type Scanner struct {
	opts   Options
	logger *zap.Logger
	onDiag filesystem.DiagnosticFunc
}

// NewScanner creates a new scanner instance
func NewScanner(opts Options, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		opts:   opts,
		logger: logger,
	}
}

// SetDiagnosticFunc sets the callback receiving per-entry failures.
// It may be called concurrently from several workers.
func (s *Scanner) SetDiagnosticFunc(fn filesystem.DiagnosticFunc) {
	s.onDiag = fn
}

// ResolveRoot validates the configured root and returns its canonical absolute form
func (s *Scanner) ResolveRoot() (string, error) {
	abs, err := filepath.Abs(s.opts.Root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root %s: %w", s.opts.Root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrRootNotFound, abs)
		}
		return "", fmt.Errorf("failed to stat root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrRootNotDirectory, abs)
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize root %s: %w", abs, err)
	}
	return canonical, nil
}

// LoadRules builds the ignore rule set for the configured root
func (s *Scanner) LoadRules() (*ignore.RuleSet, error) {
	root, err := s.ResolveRoot()
	if err != nil {
		return nil, err
	}
	return s.loadRules(root)
}

func (s *Scanner) loadRules(root string) (*ignore.RuleSet, error) {
	rules, err := ignore.Load(osfs.New(root), s.opts.Ignore)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore rules: %w", err)
	}
	return rules, nil
}

// Scan walks the root and hands every surviving record to emit, one at a time.
// Fatal errors are returned before emit is first called. Per-entry failures are
// logged, counted and skipped. An error returned by emit stops the scan and is
// returned unchanged.
func (s *Scanner) Scan(ctx context.Context, emit EmitFunc) (*models.ScanStats, error) {
	startTime := time.Now()

	root, err := s.ResolveRoot()
	if err != nil {
		return nil, err
	}
	rules, err := s.loadRules(root)
	if err != nil {
		return nil, err
	}
	include, err := ignore.NewIncludeFilter(s.opts.Include)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}

	scanID := uuid.NewString()
	logger := s.logger.With(zap.String("scan_id", scanID))

	workers := s.opts.Concurrency
	if workers < 1 {
		workers = 1
	}

	logger.Info("Starting scan",
		zap.String("root", root),
		zap.Int("workers", workers),
		zap.Int("rules", rules.Len()),
		zap.Bool("limit_size", s.opts.LimitSize),
		zap.Int64("max_size", s.opts.MaxSizeBytes))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	walker := filesystem.NewWalker(filesystem.WalkOptions{
		Root:           root,
		Concurrency:    workers,
		FollowSymlinks: s.opts.FollowSymlinks,
		Absolute:       s.opts.Absolute,
		LimitSize:      s.opts.LimitSize,
		MaxSizeBytes:   s.opts.MaxSizeBytes,
	}, rules, include, classify.New(s.opts.SampleBytes), logger)
	walker.OnDiagnostic(s.onDiag)

	agg := NewAggregator(s.opts.ChannelCapacity)
	agg.Produce(func(out chan<- *models.FileRecord) error {
		return walker.Walk(ctx, out)
	})
	agg.Seal()

	var emitted, binary, totalSize int64
	scanErr := agg.Drain(func(rec *models.FileRecord) error {
		if err := emit(rec); err != nil {
			cancel()
			return err
		}
		emitted++
		totalSize += rec.Size
		if rec.Binary {
			binary++
		}
		return nil
	})

	stats := walker.Stats()
	stats.ScanID = scanID
	stats.StartTime = startTime
	stats.Duration = time.Since(startTime)
	stats.Emitted = emitted
	stats.Binary = binary
	stats.TotalSize = totalSize

	if scanErr != nil {
		logger.Warn("Scan stopped",
			zap.Int64("emitted", emitted),
			zap.Error(scanErr))
		return &stats, scanErr
	}

	logger.Info("Scan completed",
		zap.Int64("dirs", stats.Dirs),
		zap.Int64("emitted", stats.Emitted),
		zap.Int64("ignored", stats.Ignored),
		zap.Int64("errors", stats.Errors),
		zap.Duration("duration", stats.Duration))

	return &stats, nil
}

// Collect runs a scan and gathers every record in emission order
func (s *Scanner) Collect(ctx context.Context) ([]models.FileRecord, *models.ScanStats, error) {
	var records []models.FileRecord
	stats, err := s.Scan(ctx, func(rec *models.FileRecord) error {
		records = append(records, *rec)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return records, stats, nil
}
