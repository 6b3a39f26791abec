//go:build windows

package filesystem

import (
	"os"
)

// identity falls back to the resolved path on Windows, where FileInfo carries no file index
func identity(path string, _ os.FileInfo) dirKey {
	return resolvedKey(path)
}
