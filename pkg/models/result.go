package models

import (
	"fmt"
	"time"
)

// Diagnostic describes a per-entry failure. The entry is skipped and the scan continues.
type Diagnostic struct {
	Path string // Path of the entry (relative when known)
	Op   string // Operation that failed: readdir, stat, classify, ...
	Err  error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s %s: %v", d.Op, d.Path, d.Err)
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}

// ScanStats contains counters collected during one scan
type ScanStats struct {
	ScanID    string        `json:"scan_id"`
	Root      string        `json:"root"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Workers   int           `json:"workers"`

	Dirs       int64 `json:"dirs"`        // Directories read
	FilesSeen  int64 `json:"files_seen"`  // Non-directory entries visited
	Emitted    int64 `json:"emitted"`     // Records handed to the caller
	Ignored    int64 `json:"ignored"`     // Entries dropped by the ignore rules
	Excluded   int64 `json:"excluded"`    // Entries dropped by the include globs
	Oversize   int64 `json:"oversize"`    // Files over the size limit
	NonRegular int64 `json:"non_regular"` // Symlinks (when not followed), devices, sockets...
	Binary     int64 `json:"binary"`      // Emitted records classified as binary
	TotalSize  int64 `json:"total_size"`  // Sum of emitted record sizes
	Errors     int64 `json:"errors"`      // Per-entry diagnostics
}

// FilesPerSecond returns the emission rate
func (s *ScanStats) FilesPerSecond() float64 {
	if s.Duration.Seconds() == 0 {
		return 0
	}
	return float64(s.Emitted) / s.Duration.Seconds()
}
