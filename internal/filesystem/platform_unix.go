//go:build !windows

package filesystem

import (
	"os"
	"syscall"
)

// identity returns the (device, inode) pair of a directory
func identity(path string, info os.FileInfo) dirKey {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return dirKey{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}
	}
	return resolvedKey(path)
}
