// Package scan implements the hot scan loop (§4.5) and its pluggable
// consumers (§4.6).
package scan

// Sink is the capability every record consumer implements. Concrete sinks
// compose rather than inherit (§9's "multiple inheritance collapses to the
// Sink capability"). accept receives the record's byte slice as a borrow:
// it is only valid for the duration of the call and must be copied if
// retained.
type Sink interface {
	Accept(lineNo int64, record []byte) error
	Finalize() (any, error)
}

// LineNumberSink appends the line number of every passing record to a
// pre-sized int64 vector, per §4.6.
type LineNumberSink struct {
	lines []int64
}

// NewLineNumberSink pre-sizes the output vector to capacity, the maximum
// number of records the scan could produce.
func NewLineNumberSink(capacity int) *LineNumberSink {
	return &LineNumberSink{lines: make([]int64, 0, capacity)}
}

func (s *LineNumberSink) Accept(lineNo int64, record []byte) error {
	s.lines = append(s.lines, lineNo)
	return nil
}

func (s *LineNumberSink) Finalize() (any, error) {
	return s.lines, nil
}

// BytesColumnSink writes a copy of one field's bytes per passing record
// into a contiguous, row-major fixed-width byte matrix (§4.6).
type BytesColumnSink struct {
	start, length int
	stride        int
	buf           []byte
	rows          int
}

// NewBytesColumnSink pre-allocates storage for up to capacity rows of a
// field occupying [start, start+length) in each record.
func NewBytesColumnSink(start, length, capacity int) *BytesColumnSink {
	return &BytesColumnSink{
		start:  start,
		length: length,
		stride: length,
		buf:    make([]byte, 0, length*capacity),
	}
}

func (s *BytesColumnSink) Accept(lineNo int64, record []byte) error {
	s.buf = append(s.buf, record[s.start:s.start+s.length]...)
	s.rows++
	return nil
}

// BytesColumnResult is the (count, field.len)-shaped output of
// BytesColumnSink.
type BytesColumnResult struct {
	Data   []byte
	Rows   int
	Stride int
}

// Row returns a view of row i's bytes. Valid only until the next mutation
// of the underlying Data slice (there is none after Finalize).
func (r BytesColumnResult) Row(i int) []byte {
	return r.Data[i*r.Stride : (i+1)*r.Stride]
}

func (s *BytesColumnSink) Finalize() (any, error) {
	return BytesColumnResult{Data: s.buf, Rows: s.rows, Stride: s.stride}, nil
}
