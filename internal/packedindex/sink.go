package packedindex

import (
	"github.com/fwftable/fwftable/internal/common"
	"github.com/fwftable/fwftable/internal/fwf"
)

// Sink feeds a ScanLoop's passing records into a PackedMultiIndex, keyed
// either by raw field bytes or a parsed integer (§4.6, §4.8). line_no is
// stored as int32: the packed representation trades the full int64
// coordinate range for memory density, matching §4.8's stated tradeoff, and
// Accept rejects a line number above the int32 range with an error.
type Sink struct {
	start, length int
	asInt         bool
	index         *PackedMultiIndex
}

// NewSink builds a sink over field [start,start+length) of every passing
// record, backed by a PackedMultiIndex pre-sized for capacity records.
func NewSink(start, length, capacity int, asInt bool) *Sink {
	return &Sink{start: start, length: length, asInt: asInt, index: New(capacity)}
}

func (s *Sink) Accept(lineNo int64, record []byte) error {
	if lineNo > int32max {
		return common.New(common.KindOutOfRange, "line number exceeds packed index int32 range")
	}
	field := record[s.start : s.start+s.length]
	if !s.asInt {
		return s.index.InsertBytes(string(field), int32(lineNo))
	}
	v, err := fwf.ParseDecimalInt64(field)
	if err != nil {
		if pe, ok := err.(*common.ParseError); ok {
			pe.LineNo = lineNo
		}
		return err
	}
	return s.index.InsertInt(v, int32(lineNo))
}

// Finalize freezes the underlying index and returns it.
func (s *Sink) Finalize() (any, error) {
	s.index.Finalize()
	return s.index, nil
}

const int32max = 1<<31 - 1
