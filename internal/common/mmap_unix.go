//go:build unix

package common

import (
	"os"

	"golang.org/x/sys/unix"
)

// MmapFile memory-maps the whole of f read-only, shared. The mapping is
// valid for the lifetime of the returned slice; callers must call
// MunmapFile exactly once when done. External mutation of the underlying
// file while mapped is undefined, per the FileMap resource policy.
func MmapFile(f *os.File) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, Wrap(KindIO, "stat file for mmap", err)
	}

	size := info.Size()
	if size == 0 {
		// Mapping a zero-length file fails on most platforms; an empty
		// slice is a faithful representation of zero records.
		return []byte{}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, Wrap(KindIO, "mmap file", err)
	}
	return data, nil
}

// MunmapFile releases a mapping previously returned by MmapFile. Safe to
// call with a nil/empty slice.
func MunmapFile(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := unix.Munmap(data); err != nil {
		return Wrap(KindIO, "munmap file", err)
	}
	return nil
}
