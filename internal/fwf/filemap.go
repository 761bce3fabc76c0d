// Package fwf implements the data-model layer of the fixed-width-field
// scan engine: memory-mapped file access (FileMap), record geometry
// derivation, and field-name resolution (FieldTable).
package fwf

import (
	"os"

	"github.com/fwftable/fwftable/internal/common"
)

// FileMap read-only memory-maps a file and exposes bounds-checked byte
// access to it. All record slices handed out by the scan engine are
// borrows into this mapping — never copied — so a FileMap must outlive
// every scan and sink that reads from it.
type FileMap struct {
	data []byte
}

// OpenFileMap opens path and maps its entire contents read-only.
func OpenFileMap(path string) (*FileMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.Wrap(common.KindIO, "open file", err)
	}
	defer func() { _ = f.Close() }()

	data, err := common.MmapFile(f)
	if err != nil {
		return nil, err
	}
	return &FileMap{data: data}, nil
}

// Len returns the mapped length in bytes.
func (m *FileMap) Len() int { return len(m.data) }

// Bytes returns the full mapped region. Callers must not retain beyond the
// FileMap's lifetime and must not mutate it.
func (m *FileMap) Bytes() []byte { return m.data }

// Slice returns data[start:end], bounds-checked against the mapping.
func (m *FileMap) Slice(start, end int) ([]byte, error) {
	if start < 0 || end > len(m.data) || start > end {
		return nil, common.New(common.KindOutOfRange,
			"slice outside mapped region")
	}
	return m.data[start:end], nil
}

// Close releases the mapping. Safe to call once; any slices obtained from
// this FileMap must not be used afterward.
func (m *FileMap) Close() error {
	err := common.MunmapFile(m.data)
	m.data = nil
	return err
}
