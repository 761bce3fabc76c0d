package scan

import (
	"github.com/fwftable/fwftable/internal/common"
	"github.com/fwftable/fwftable/internal/fwf"
)

// IntColumnSink parses a field as a signed decimal integer per §4.7 and
// writes it into an int64 vector. A per-record parse error is fatal to the
// scan and surfaces with the offending line_no and raw bytes (§4.11); the
// caller may retry with a lenient wrapper sink that skips offending rows.
type IntColumnSink struct {
	start, length int
	values        []int64
}

// NewIntColumnSink pre-sizes the output vector to capacity.
func NewIntColumnSink(start, length, capacity int) *IntColumnSink {
	return &IntColumnSink{start: start, length: length, values: make([]int64, 0, capacity)}
}

func (s *IntColumnSink) Accept(lineNo int64, record []byte) error {
	v, err := fwf.ParseDecimalInt64(record[s.start : s.start+s.length])
	if err != nil {
		if pe, ok := err.(*common.ParseError); ok {
			pe.LineNo = lineNo
			return pe
		}
		return err
	}
	s.values = append(s.values, v)
	return nil
}

func (s *IntColumnSink) Finalize() (any, error) {
	return s.values, nil
}

// LenientIntColumnSink wraps IntColumnSink and skips records that fail to
// parse instead of aborting the scan, per §4.11's "caller may wrap with a
// lenient policy that skips".
type LenientIntColumnSink struct {
	inner  *IntColumnSink
	Errors []*common.ParseError
}

// NewLenientIntColumnSink wraps a fresh IntColumnSink.
func NewLenientIntColumnSink(start, length, capacity int) *LenientIntColumnSink {
	return &LenientIntColumnSink{inner: NewIntColumnSink(start, length, capacity)}
}

func (s *LenientIntColumnSink) Accept(lineNo int64, record []byte) error {
	if err := s.inner.Accept(lineNo, record); err != nil {
		if pe, ok := err.(*common.ParseError); ok {
			s.Errors = append(s.Errors, pe)
			return nil
		}
		return err
	}
	return nil
}

func (s *LenientIntColumnSink) Finalize() (any, error) {
	return s.inner.Finalize()
}
