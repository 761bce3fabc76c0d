//go:build windows

package common

import (
	"io"
	"os"
)

// MmapFile falls back to a full read on Windows. The syscall-level mapping
// (MapViewOfFile) needs unsafe pointer arithmetic this module doesn't carry
// a dependency for; a full read preserves read-only, borrow-free semantics
// for the record slices that are handed out, at the cost of touching
// physical memory for files that would otherwise exceed it. Fixing this
// properly needs a Windows-specific mmap package such as
// github.com/edsrzf/mmap-go.
func MmapFile(f *os.File) ([]byte, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, Wrap(KindIO, "read file", err)
	}
	return data, nil
}

// MunmapFile is a no-op on Windows since MmapFile did not actually map
// anything.
func MunmapFile(data []byte) error {
	return nil
}
