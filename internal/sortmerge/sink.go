package sortmerge

import (
	"github.com/fwftable/fwftable/internal/common"
	"github.com/fwftable/fwftable/internal/fwf"
)

// Sink feeds a ScanLoop's passing records into a Sorter instead of an
// in-memory index, the entry point for building a persisted index over a
// file too large to hold its full key set in memory at once (§B.2).
type Sink struct {
	start, length int
	asInt         bool
	fileID        int32
	sorter        *Sorter
}

// NewSink builds a sink over field [start,start+length) of every passing
// record, feeding it to sorter. fileID tags every Record, for later
// MultiFile-style provenance once reloaded.
func NewSink(sorter *Sorter, start, length, fileID int, asInt bool) *Sink {
	return &Sink{start: start, length: length, asInt: asInt, fileID: int32(fileID), sorter: sorter}
}

func (s *Sink) Accept(lineNo int64, record []byte) error {
	field := record[s.start : s.start+s.length]

	var rawKey any
	if s.asInt {
		v, err := fwf.ParseDecimalInt64(field)
		if err != nil {
			if pe, ok := err.(*common.ParseError); ok {
				pe.LineNo = lineNo
				return pe
			}
			return err
		}
		rawKey = v
	} else {
		rawKey = string(field)
	}

	return s.sorter.Add(Record{RawKey: rawKey, FileID: s.fileID, LineNo: lineNo})
}

// Finalize merges every spilled chunk and returns the persisted index's
// distinct-key count.
func (s *Sink) Finalize() (any, error) {
	return s.sorter.Finalize()
}
