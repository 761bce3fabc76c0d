package fwf

import "github.com/fwftable/fwftable/internal/common"

// CommentPredicate decides whether the record at the given byte offset (the
// first bytes of a candidate record) is a comment/preamble record to be
// skipped rather than counted as data. It is only ever evaluated against
// records at the front of the file, in order, until it returns false.
type CommentPredicate func(record []byte) bool

// RecordGeometry derives record width, start offset and record count for a
// file spec, per §4.2. W is treated as authoritative: scanning never
// searches for newlines, it only trusts W.
type RecordGeometry struct {
	Width        int // W: bytes per record, including newline bytes
	NewlineBytes int // N: 0, 1, or 2
	Start        int // S: byte offset of the first data record
	Count        int // R: number of data records
}

// DeriveGeometry computes a RecordGeometry from a file's mapped length, the
// sum of field widths, the newline byte count, and an optional comment
// predicate applied to the leading records.
func DeriveGeometry(data []byte, fieldWidthSum int, newlineBytes int, comment CommentPredicate) (RecordGeometry, error) {
	if newlineBytes < 0 || newlineBytes > 2 {
		return RecordGeometry{}, common.New(common.KindConfig, "newline_bytes must be 0, 1, or 2")
	}
	width := fieldWidthSum + newlineBytes
	if width <= 0 {
		return RecordGeometry{}, common.New(common.KindConfig, "record width must be > 0")
	}

	start := 0
	if comment != nil {
		for start+width <= len(data) {
			if !comment(data[start : start+width]) {
				break
			}
			start += width
		}
	}

	remaining := len(data) - start
	if remaining < 0 {
		remaining = 0
	}
	count := remaining / width // trailing partial record silently ignored

	return RecordGeometry{
		Width:        width,
		NewlineBytes: newlineBytes,
		Start:        start,
		Count:        count,
	}, nil
}

// End returns the byte offset one past the last whole data record.
func (g RecordGeometry) End() int {
	return g.Start + g.Count*g.Width
}

// DataWidth returns W - N, the portion of a record that fields may occupy.
func (g RecordGeometry) DataWidth() int {
	return g.Width - g.NewlineBytes
}
