package models

import (
	"time"
)

// FileRecord is one scanned file, serialized as a single NDJSON line
type FileRecord struct {
	RelPath string `json:"rel_path"`           // Forward-slash path relative to the canonical root
	AbsPath string `json:"abs_path,omitempty"` // Set only when absolute output is requested
	Size    int64  `json:"size"`               // Size in bytes
	MtimeMs int64  `json:"mtime_ms"`           // Modification time, ms since epoch (0 if unknown)
	Binary  bool   `json:"binary"`             // Classifier result
}

// MillisSinceEpoch converts a modification time to the record's mtime_ms field.
// Zero and pre-epoch times map to 0.
func MillisSinceEpoch(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	return ms
}
